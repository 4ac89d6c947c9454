// Package audit maintains the per-actor, time-windowed audit trail carried
// on every report.
package audit

import (
	"sort"
	"time"

	"coroner/internal/domain"
)

// CoalesceWindow is the span within which consecutive actions by the same
// actor are merged into a single action.
const CoalesceWindow = 60 * time.Second

// Fold merges a set of changed-field dot-paths for one actor at one instant
// into the trail. The input is never mutated; callers get a structurally
// independent copy. An empty change set is a no-op.
func Fold(entries []domain.AuditEntry, actorID string, at time.Time, changed []string) []domain.AuditEntry {
	if len(changed) == 0 {
		return entries
	}
	out := clone(entries)
	ts := at.UTC().Format(time.RFC3339)

	idx := -1
	for i := range out {
		if out[i].By == actorID {
			idx = i
			break
		}
	}
	if idx < 0 {
		out = append(out, domain.AuditEntry{By: actorID})
		idx = len(out) - 1
	}

	actions := out[idx].Actions
	if n := len(actions); n > 0 && withinWindow(actions[n-1].At, at) {
		last := &actions[n-1]
		last.Fields = dedup(append(last.Fields, changed...))
		last.At = ts
	} else {
		actions = append(actions, domain.AuditAction{At: ts, Fields: dedup(changed)})
	}
	out[idx].Actions = actions
	return out
}

func withinWindow(lastAt string, now time.Time) bool {
	t, err := time.Parse(time.RFC3339, lastAt)
	if err != nil {
		return false
	}
	d := now.Sub(t)
	if d < 0 {
		d = -d
	}
	return d <= CoalesceWindow
}

func dedup(fields []string) []string {
	set := map[string]struct{}{}
	for _, f := range fields {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func clone(entries []domain.AuditEntry) []domain.AuditEntry {
	out := make([]domain.AuditEntry, len(entries))
	for i, e := range entries {
		actions := make([]domain.AuditAction, len(e.Actions))
		for j, a := range e.Actions {
			fields := make([]string, len(a.Fields))
			copy(fields, a.Fields)
			actions[j] = domain.AuditAction{At: a.At, Fields: fields}
		}
		out[i] = domain.AuditEntry{By: e.By, Actions: actions}
	}
	return out
}
