package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"coroner/internal/config"
	"coroner/internal/domain"
)

const defaultWebhookTimeout = 5 * time.Second

// webhookNotifier posts lifecycle events to the configured endpoints.
// Delivery is fire-and-forget; a failed hook is logged, never retried, and
// never blocks the request that triggered it.
type webhookNotifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client
}

func newWebhookNotifier(cfg *config.Config) *webhookNotifier {
	n := &webhookNotifier{client: &http.Client{Timeout: defaultWebhookTimeout}}
	if cfg != nil {
		n.webhooks = cfg.Webhooks
	}
	return n
}

type webhookEvent struct {
	Type     string        `json:"type"`
	ReportID string        `json:"report_id"`
	ActorID  string        `json:"actor_id"`
	TS       string        `json:"ts"`
	Reason   string        `json:"reason,omitempty"`
	Report   domain.Report `json:"report"`
}

// notify dispatches an event to every matching hook. reason is the reason
// text supplied with an unlock request; the stored record drops it, so the
// event is where it survives.
func (n *webhookNotifier) notify(event string, report domain.Report, actor domain.Actor, reason string) {
	if n == nil || len(n.webhooks) == 0 || event == "" {
		return
	}
	evt := webhookEvent{
		Type:     event,
		ReportID: report.ID,
		ActorID:  actor.ID,
		TS:       time.Now().UTC().Format(time.RFC3339),
		Reason:   reason,
		Report:   report,
	}
	for _, hook := range n.webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		if !newEventFilter(hook.Events).match(event) {
			continue
		}
		go func(hook config.WebhookConfig) {
			if err := n.post(context.Background(), hook, evt); err != nil {
				log.Printf("webhook: deliver to %s failed: %v", hook.URL, err)
			}
		}(hook)
	}
}

func (n *webhookNotifier) post(ctx context.Context, hook config.WebhookConfig, evt webhookEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	client := n.client
	if hook.TimeoutSeconds > 0 {
		timeout := time.Duration(hook.TimeoutSeconds) * time.Second
		if timeout != n.client.Timeout {
			client = &http.Client{Timeout: timeout}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Coroner-Event", evt.Type)
	req.Header.Set("X-Coroner-Report", evt.ReportID)
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Coroner-Secret", hook.Secret)
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return nil
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(events []string) eventFilter {
	if len(events) == 0 {
		return eventFilter{all: true}
	}
	set := make(map[string]struct{}, len(events))
	for _, evt := range events {
		key := strings.TrimSpace(evt)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[evt]
	return ok
}
