package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"coroner/internal/config"
	"coroner/internal/db"
	"coroner/internal/domain"
	"coroner/internal/engine"
	"coroner/internal/migrate"
	"coroner/internal/repo"
	"coroner/internal/store"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	return newTestServerWithConfig(t, config.Default())
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	st, err := store.New(store.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(st, cfg)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return now }
	handler, err := New(Config{
		Engine:   e,
		Repo:     repo.Repo{DB: conn},
		Registry: cfg,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:           "test-secret",
			AllowHeaderIdentity: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func completePayload() map[string]any {
	return map[string]any{
		"thana_id":         "thana-7",
		"case_type":        "UD",
		"case_no":          "12/2024",
		"ref_date":         "2024-04-28",
		"pm_no":            "PM-2024-001",
		"report_date":      "2024-05-01",
		"station":          "Sadar",
		"person_name":      "Abdul Karim",
		"gender":           "male",
		"age":              "45",
		"origin_village":   "Charpara",
		"origin_thana":     "Sadar",
		"constable_name":   "Constable Rahman",
		"relatives_names":  []string{"Rahim"},
		"sent_datetime":    "2024-04-30T22:00",
		"brought_datetime": "2024-05-01T08:00",
		"exam_datetime":    "2024-05-01T09:30",
		"police_info":      "UD case, body recovered from river",
		"identifier_name":  "Rahim",
	}
}

type reportEnvelope struct {
	OK   bool          `json:"ok"`
	Data domain.Report `json:"data"`
}

type errorEnvelope struct {
	OK      bool           `json:"ok"`
	Message string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func TestReportLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	clerk := map[string]string{"X-Actor-Id": "clerk-1"}

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", completePayload(), clerk)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created reportEnvelope
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal create: %v", err)
	}
	if !created.OK || created.Data.ID == "" {
		t.Fatalf("create envelope: %s", string(data))
	}
	if created.Data.Status != "draft" || created.Data.Locked {
		t.Fatalf("new report must be an unlocked draft: %+v", created.Data.Meta)
	}
	id := created.Data.ID

	// submit locks
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"id": id, "action": "submit",
	}, map[string]string{"X-Actor-Id": "dr-khan"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d: %s", res.StatusCode, string(data))
	}
	var submitted reportEnvelope
	_ = json.Unmarshal(data, &submitted)
	if submitted.Data.Status != "submitted" || !submitted.Data.Locked {
		t.Fatalf("submit must lock: %+v", submitted.Data.Meta)
	}
	if submitted.Data.SubmittedBy != "dr-khan" {
		t.Fatalf("submitted_by = %s", submitted.Data.SubmittedBy)
	}

	// editing a locked report conflicts
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"id": id, "station": "Kotwali",
	}, clerk)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("locked edit: expected 409, got %d %s", res.StatusCode, string(data))
	}
	var conflict errorEnvelope
	_ = json.Unmarshal(data, &conflict)
	if conflict.OK || conflict.Code != "locked" {
		t.Fatalf("conflict envelope: %s", string(data))
	}
	if conflict.Message != "Report is locked and cannot be edited" {
		t.Fatalf("conflict message = %q", conflict.Message)
	}

	// non-admin cannot unlock
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"id": id, "action": "unlock",
	}, clerk)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("unlock by clerk: expected 403, got %d %s", res.StatusCode, string(data))
	}
	var forbidden errorEnvelope
	_ = json.Unmarshal(data, &forbidden)
	if forbidden.Message != "Only admin can unlock." {
		t.Fatalf("forbidden message = %q", forbidden.Message)
	}

	// admin unlocks
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"id": id, "action": "unlock",
	}, map[string]string{"X-Actor-Id": "admin"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unlock status %d: %s", res.StatusCode, string(data))
	}
	var unlocked reportEnvelope
	_ = json.Unmarshal(data, &unlocked)
	if unlocked.Data.Locked {
		t.Fatalf("unlock must clear the lock: %+v", unlocked.Data.Meta)
	}
	if unlocked.Data.Status != "submitted" {
		t.Fatalf("unlock keeps status submitted, got %s", unlocked.Data.Status)
	}

	// audit endpoint returns the trail
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/reports/"+id+"/audit", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("audit status %d: %s", res.StatusCode, string(data))
	}
	var audit struct {
		OK   bool                `json:"ok"`
		Data []domain.AuditEntry `json:"data"`
	}
	if err := json.Unmarshal(data, &audit); err != nil {
		t.Fatalf("unmarshal audit: %v", err)
	}
	if len(audit.Data) != 1 || audit.Data[0].By != "clerk-1" {
		t.Fatalf("audit trail should hold the creating clerk only, got %+v", audit.Data)
	}
}

func TestSubmitValidation(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	payload := completePayload()
	delete(payload, "pm_no")
	payload["action"] = "submit"
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", payload, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.StatusCode, string(data))
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Code != "validation_failed" {
		t.Fatalf("code = %s", envelope.Code)
	}
	if envelope.Message != "Missing required fields: pm_no" {
		t.Fatalf("message = %q", envelope.Message)
	}
}

func TestAnonymousActorRecorded(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"person_name": "Unknown male",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created reportEnvelope
	_ = json.Unmarshal(data, &created)
	if created.Data.CreatedBy != "anonymous" {
		t.Fatalf("unauthenticated writes must record the anonymous actor, got %q", created.Data.CreatedBy)
	}
}

func TestGetMissingReport(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/reports/no-such-id", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	var envelope errorEnvelope
	_ = json.Unmarshal(data, &envelope)
	if envelope.Code != "not_found" {
		t.Fatalf("code = %s", envelope.Code)
	}
}

func TestDevLoginAndBearerUnlock(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", completePayload(), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created reportEnvelope
	_ = json.Unmarshal(data, &created)
	id := created.Data.ID
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"id": id, "action": "submit",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"actor_id":  "magistrate",
		"superuser": true,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, string(data))
	}
	var login struct {
		OK    bool   `json:"ok"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &login); err != nil || login.Token == "" {
		t.Fatalf("dev login body: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"id": id, "action": "unlock",
	}, map[string]string{"Authorization": "Bearer " + login.Token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("bearer unlock status %d: %s", res.StatusCode, string(data))
	}
	var unlocked reportEnvelope
	_ = json.Unmarshal(data, &unlocked)
	if unlocked.Data.Locked {
		t.Fatalf("superuser bearer unlock must clear the lock")
	}
}

func TestSaveIgnoresUnknownKeys(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	// Legacy entry forms post keys outside the field map; they project away
	// instead of failing the request.
	payload := map[string]any{
		"person_name":   "Abdul Karim",
		"case_diary_no": "CD-19",
	}
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", payload, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for payload with unknown keys, got %d %s", res.StatusCode, string(data))
	}
	var created reportEnvelope
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal create: %v", err)
	}
	if name := created.Data.General.PersonName; name == nil || *name != "Abdul Karim" {
		t.Fatalf("known key must survive the projection: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/reports/"+created.Data.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status %d: %s", res.StatusCode, string(data))
	}
	if bytes.Contains(data, []byte("case_diary_no")) {
		t.Fatalf("unknown key leaked into the stored record: %s", string(data))
	}
}

func TestUnlockWebhookCarriesReason(t *testing.T) {
	received := make(chan webhookEvent, 1)
	hookLn, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	hookSrv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Coroner-Secret") != "hook-secret" {
			t.Errorf("secret header = %q", r.Header.Get("X-Coroner-Secret"))
		}
		var evt webhookEvent
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		received <- evt
	})}
	go hookSrv.Serve(hookLn)
	defer func() {
		hookSrv.Shutdown(context.Background())
		hookLn.Close()
	}()

	cfg := config.Default()
	cfg.Webhooks = []config.WebhookConfig{{
		URL:    "http://" + hookLn.Addr().String(),
		Secret: "hook-secret",
		Events: []string{"report.unlocked"},
	}}
	srv, cleanup := newTestServerWithConfig(t, cfg)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", completePayload(), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created reportEnvelope
	_ = json.Unmarshal(data, &created)
	id := created.Data.ID
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"id": id, "action": "submit",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reports", map[string]any{
		"id": id, "action": "unlock", "lock_reason": "magistrate ordered correction",
	}, map[string]string{"X-Actor-Id": "admin"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unlock status %d: %s", res.StatusCode, string(data))
	}
	var unlocked reportEnvelope
	_ = json.Unmarshal(data, &unlocked)
	if unlocked.Data.LockReason != "" {
		t.Fatalf("unlocked record keeps no lock_reason, got %q", unlocked.Data.LockReason)
	}

	select {
	case evt := <-received:
		if evt.Type != "report.unlocked" {
			t.Fatalf("event type = %s", evt.Type)
		}
		if evt.ReportID != id || evt.ActorID != "admin" {
			t.Fatalf("event %+v", evt)
		}
		if evt.Reason != "magistrate ordered correction" {
			t.Fatalf("event reason = %q", evt.Reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no webhook delivery")
	}
}

func TestInvalidBearerRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/reports", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	var envelope errorEnvelope
	_ = json.Unmarshal(data, &envelope)
	if envelope.Code != "invalid_credentials" {
		t.Fatalf("code = %s", envelope.Code)
	}
}
