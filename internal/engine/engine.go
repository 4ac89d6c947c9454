// Package engine implements the report lifecycle: draft saves, submit,
// unlock, and the audit trail folded into every field edit.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coroner/internal/audit"
	"coroner/internal/changeset"
	"coroner/internal/config"
	"coroner/internal/domain"
	"coroner/internal/store"
)

// Actions accepted by Upsert. The empty action is a plain draft save.
const (
	ActionSubmit = "submit"
	ActionUnlock = "unlock"
)

// Lifecycle events reported back to the caller, used to drive webhook
// notifications.
const (
	EventCreated   = "report.created"
	EventUpdated   = "report.updated"
	EventSubmitted = "report.submitted"
	EventUnlocked  = "report.unlocked"
)

// Engine coordinates all report mutations through the store. Now is
// injectable for tests.
type Engine struct {
	Store  *store.Store
	Config *config.Config
	Now    func() time.Time
}

func New(st *store.Store, cfg *config.Config) *Engine {
	return &Engine{Store: st, Config: cfg, Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// List returns every stored report.
func (e *Engine) List(ctx context.Context) ([]domain.Report, error) {
	return e.Store.List(ctx)
}

// Get returns one report by id.
func (e *Engine) Get(ctx context.Context, id string) (domain.Report, error) {
	return e.Store.Get(ctx, id)
}

// Upsert applies one mutation to the collection and returns the resulting
// report together with the lifecycle event that happened.
func (e *Engine) Upsert(ctx context.Context, incoming domain.FlatReport, action string, actor domain.Actor) (domain.Report, string, error) {
	switch action {
	case "":
		return e.save(ctx, incoming, actor)
	case ActionSubmit:
		return e.submit(ctx, incoming, actor)
	case ActionUnlock:
		return e.unlock(ctx, incoming.ID, actor)
	default:
		return domain.Report{}, "", fmt.Errorf("unknown action %q", action)
	}
}

// save creates or updates a draft. Field edits fold into the audit trail;
// locked reports reject the write.
func (e *Engine) save(ctx context.Context, incoming domain.FlatReport, actor domain.Actor) (domain.Report, string, error) {
	var (
		saved domain.Report
		event string
	)
	err := e.Store.Update(ctx, func(reports []domain.Report) ([]domain.Report, error) {
		now := e.now()
		idx := indexOf(reports, incoming.ID)
		if idx < 0 {
			saved = e.create(incoming, actor, now)
			event = EventCreated
			return append(reports, saved), nil
		}
		existing := reports[idx]
		if existing.Locked {
			return nil, LockedError{ID: existing.ID}
		}
		next, err := mergeInto(existing, incoming)
		if err != nil {
			return nil, err
		}
		if incoming.Status != "" {
			next.Status = incoming.Status
		} else if next.Status == "" {
			next.Status = domain.StatusDraft
		}
		next.UpdatedAt = now.Format(time.RFC3339)
		next.UpdatedBy = actor.ID
		next.Audit = audit.Fold(existing.Audit, actor.ID, now, changeset.Diff(existing, next))
		reports[idx] = next
		saved = next
		event = EventUpdated
		return reports, nil
	})
	if err != nil {
		return domain.Report{}, "", err
	}
	return saved, event, nil
}

// submit validates required fields, then stamps and locks the report. The
// transition itself leaves the audit trail untouched; pending field edits
// bundled into the same call are rejected by validation or merged like a
// draft save.
func (e *Engine) submit(ctx context.Context, incoming domain.FlatReport, actor domain.Actor) (domain.Report, string, error) {
	var saved domain.Report
	err := e.Store.Update(ctx, func(reports []domain.Report) ([]domain.Report, error) {
		now := e.now()
		ts := now.Format(time.RFC3339)
		idx := indexOf(reports, incoming.ID)
		var next domain.Report
		if idx < 0 {
			next = e.create(incoming, actor, now)
		} else {
			existing := reports[idx]
			if existing.Locked {
				return nil, LockedError{ID: existing.ID}
			}
			merged, err := mergeInto(existing, incoming)
			if err != nil {
				return nil, err
			}
			merged.Audit = existing.Audit
			next = merged
		}
		if missing := missingRequired(next.ToFlat()); len(missing) > 0 {
			return nil, ValidationError{Missing: missing}
		}
		next.Status = domain.StatusSubmitted
		next.Locked = true
		next.LockedAt = ts
		next.LockedBy = actor.ID
		next.SubmittedAt = ts
		next.SubmittedBy = actor.ID
		next.UpdatedAt = ts
		next.UpdatedBy = actor.ID
		if idx < 0 {
			reports = append(reports, next)
		} else {
			reports[idx] = next
		}
		saved = next
		return reports, nil
	})
	if err != nil {
		return domain.Report{}, "", err
	}
	return saved, EventSubmitted, nil
}

// unlock reopens a submitted report for editing. Admin only; the status
// stays submitted and the audit trail is untouched.
func (e *Engine) unlock(ctx context.Context, id string, actor domain.Actor) (domain.Report, string, error) {
	if !e.isAdmin(actor) {
		return domain.Report{}, "", UnlockAuthError{Actor: actor.ID}
	}
	var saved domain.Report
	err := e.Store.Update(ctx, func(reports []domain.Report) ([]domain.Report, error) {
		idx := indexOf(reports, id)
		if idx < 0 {
			return nil, store.ErrNotFound
		}
		now := e.now()
		r := reports[idx]
		r.Locked = false
		r.LockReason = ""
		r.UpdatedAt = now.Format(time.RFC3339)
		r.UpdatedBy = actor.ID
		reports[idx] = r
		saved = r
		return reports, nil
	})
	if err != nil {
		return domain.Report{}, "", err
	}
	return saved, EventUnlocked, nil
}

// create builds a fresh record from the incoming payload. Server-controlled
// metadata is reset regardless of what the client sent; every populated
// field lands in the opening audit entry.
func (e *Engine) create(incoming domain.FlatReport, actor domain.Actor, now time.Time) domain.Report {
	ts := now.Format(time.RFC3339)
	next := incoming.ToNested()
	if next.ID == "" {
		next.ID = NewReportID(now)
	}
	if next.Status == "" {
		next.Status = domain.StatusDraft
	}
	next.Locked = false
	next.LockedAt = ""
	next.LockedBy = ""
	next.LockReason = ""
	next.SubmittedAt = ""
	next.SubmittedBy = ""
	next.CreatedAt = ts
	next.CreatedBy = actor.ID
	next.UpdatedAt = ts
	next.UpdatedBy = actor.ID
	next.Audit = audit.Fold(nil, actor.ID, now, changeset.Populated(next))
	return next
}

func (e *Engine) isAdmin(actor domain.Actor) bool {
	if actor.Superuser {
		return true
	}
	admin := "admin"
	if e.Config != nil && e.Config.Auth.AdminUser != "" {
		admin = e.Config.Auth.AdminUser
	}
	return actor.ID == admin
}

// NewReportID builds a fresh report id from the creation instant plus a
// short random suffix.
func NewReportID(now time.Time) string {
	return fmt.Sprintf("pm-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

func indexOf(reports []domain.Report, id string) int {
	if id == "" {
		return -1
	}
	for i, r := range reports {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// metaKeys are server-controlled and never merged from a client payload.
var metaKeys = map[string]struct{}{
	"id":           {},
	"status":       {},
	"locked":       {},
	"locked_at":    {},
	"locked_by":    {},
	"lock_reason":  {},
	"submitted_at": {},
	"submitted_by": {},
	"created_at":   {},
	"created_by":   {},
	"updated_at":   {},
	"updated_by":   {},
	"audit":        {},
}

// mergeInto overlays the fields the client actually sent onto the existing
// report. Absent fields keep their stored values; explicit blanks clear
// them. Metadata stays server-controlled.
func mergeInto(existing domain.Report, incoming domain.FlatReport) (domain.Report, error) {
	base, err := json.Marshal(existing.ToFlat())
	if err != nil {
		return domain.Report{}, err
	}
	overlay, err := json.Marshal(incoming)
	if err != nil {
		return domain.Report{}, err
	}
	var baseMap, overlayMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return domain.Report{}, err
	}
	if err := json.Unmarshal(overlay, &overlayMap); err != nil {
		return domain.Report{}, err
	}
	for k, v := range overlayMap {
		if _, meta := metaKeys[k]; meta {
			continue
		}
		baseMap[k] = v
	}
	merged, err := json.Marshal(baseMap)
	if err != nil {
		return domain.Report{}, err
	}
	var flat domain.FlatReport
	if err := json.Unmarshal(merged, &flat); err != nil {
		return domain.Report{}, err
	}
	next := flat.ToNested()
	next.Audit = existing.Audit
	return next, nil
}
