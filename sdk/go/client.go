// Package coronersdk is a minimal Coroner HTTP API client.
package coronersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a Coroner API server. Reports travel in the flat wire
// shape the API accepts; responses carry the nested shape.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Report is the nested report model as returned by the API (partial:
// section contents stay schemaless on the client side).
type Report struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Locked      bool           `json:"locked"`
	LockedAt    string         `json:"locked_at,omitempty"`
	LockedBy    string         `json:"locked_by,omitempty"`
	LockReason  string         `json:"lock_reason,omitempty"`
	SubmittedAt string         `json:"submitted_at,omitempty"`
	SubmittedBy string         `json:"submitted_by,omitempty"`
	CreatedAt   string         `json:"created_at,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	UpdatedAt   string         `json:"updated_at,omitempty"`
	UpdatedBy   string         `json:"updated_by,omitempty"`
	Audit       []AuditEntry   `json:"audit,omitempty"`
	Header      map[string]any `json:"header"`
	General     map[string]any `json:"general"`
	Opinions    map[string]any `json:"opinions"`
}

// AuditEntry groups one actor's logged edits.
type AuditEntry struct {
	By      string        `json:"by"`
	Actions []AuditAction `json:"actions"`
}

// AuditAction is one coalesced edit burst.
type AuditAction struct {
	At     string   `json:"at"`
	Fields []string `json:"fields"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type reportEnvelope struct {
	OK   bool   `json:"ok"`
	Data Report `json:"data"`
}

type reportListEnvelope struct {
	OK   bool     `json:"ok"`
	Data []Report `json:"data"`
}

type auditEnvelope struct {
	OK   bool         `json:"ok"`
	Data []AuditEntry `json:"data"`
}

// ListReports returns every stored report.
func (c *Client) ListReports(ctx context.Context) ([]Report, error) {
	var resp reportListEnvelope
	err := c.do(ctx, http.MethodGet, "v0/reports", nil, &resp)
	return resp.Data, err
}

// GetReport fetches one report by id.
func (c *Client) GetReport(ctx context.Context, id string) (Report, error) {
	var resp reportEnvelope
	endpoint := fmt.Sprintf("v0/reports/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Data, err
}

// Audit fetches the audit trail of one report.
func (c *Client) Audit(ctx context.Context, id string) ([]AuditEntry, error) {
	var resp auditEnvelope
	endpoint := fmt.Sprintf("v0/reports/%s/audit", url.PathEscape(id))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Data, err
}

// SaveReport creates or updates a draft from a flat payload of wire-key
// fields (for example "person_name", "cause_of_death").
func (c *Client) SaveReport(ctx context.Context, payload map[string]any) (Report, error) {
	return c.post(ctx, payload, "")
}

// SubmitReport submits and locks a report, merging any extra payload fields
// first.
func (c *Client) SubmitReport(ctx context.Context, id string, payload map[string]any) (Report, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["id"] = id
	return c.post(ctx, payload, "submit")
}

// UnlockReport reopens a submitted report. Admin only.
func (c *Client) UnlockReport(ctx context.Context, id string) (Report, error) {
	return c.post(ctx, map[string]any{"id": id}, "unlock")
}

func (c *Client) post(ctx context.Context, payload map[string]any, action string) (Report, error) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	if action != "" {
		body["action"] = action
	}
	var resp reportEnvelope
	err := c.do(ctx, http.MethodPost, "v0/reports", body, &resp)
	return resp.Data, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Error
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
