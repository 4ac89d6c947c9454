// Package changeset computes which report fields changed between two
// versions, as dot-path identifiers suitable for the audit trail.
package changeset

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/gowebpki/jcs"

	"coroner/internal/domain"
)

// Lifecycle/metadata keys are never audit-tracked, at any nesting level.
var skipKeys = map[string]struct{}{
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

// Diff returns the sorted set of dot-paths whose value changed between prev
// and next in a way worth recording: the new value is meaningful, or a
// previously meaningful value was cleared. Shuffles between two
// not-meaningful states (empty string, nil, blank) are ignored.
func Diff(prev, next domain.Report) []string {
	set := map[string]struct{}{}
	walk("", toMap(prev), toMap(next), set)
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Populated lists every meaningful leaf of a brand-new report; creation is
// treated as a change from an entirely empty report.
func Populated(next domain.Report) []string {
	return Diff(domain.Report{}, next)
}

func toMap(r domain.Report) map[string]any {
	b, err := json.Marshal(r)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func walk(prefix string, prev, next map[string]any, out map[string]struct{}) {
	keys := map[string]struct{}{}
	for k := range prev {
		keys[k] = struct{}{}
	}
	for k := range next {
		keys[k] = struct{}{}
	}
	for k := range keys {
		if _, skip := skipKeys[k]; skip {
			continue
		}
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		pv, nv := prev[k], next[k]
		pm, prevIsObj := pv.(map[string]any)
		nm, nextIsObj := nv.(map[string]any)
		if prevIsObj && nextIsObj {
			walk(path, pm, nm, out)
			continue
		}
		if equalCanonical(pv, nv) {
			continue
		}
		if meaningful(nv) || meaningful(pv) {
			out[path] = struct{}{}
		}
	}
}

// equalCanonical compares two values by canonical JSON form so that key
// ordering cannot produce spurious diffs.
func equalCanonical(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	return bytes.Equal(canonical(a), canonical(b))
}

func canonical(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	c, err := jcs.Transform(raw)
	if err != nil {
		return raw
	}
	return c
}

// meaningful reports whether a value carries data worth auditing: nil,
// blank strings and zero-length arrays/objects are all treated as absent.
func meaningful(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
