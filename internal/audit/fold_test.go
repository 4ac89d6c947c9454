package audit

import (
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestFoldCoalescesWithinWindow(t *testing.T) {
	trail := Fold(nil, "dr-khan", t0, []string{"header.pm_no"})
	trail = Fold(trail, "dr-khan", t0.Add(10*time.Second), []string{"general.person_name"})

	if len(trail) != 1 {
		t.Fatalf("expected one entry, got %d", len(trail))
	}
	entry := trail[0]
	if entry.By != "dr-khan" {
		t.Fatalf("entry actor = %s", entry.By)
	}
	if len(entry.Actions) != 1 {
		t.Fatalf("edits 10s apart must coalesce, got %d actions", len(entry.Actions))
	}
	action := entry.Actions[0]
	want := []string{"general.person_name", "header.pm_no"}
	if !reflect.DeepEqual(action.Fields, want) {
		t.Fatalf("fields = %v, want %v", action.Fields, want)
	}
	if action.At != t0.Add(10*time.Second).Format(time.RFC3339) {
		t.Fatalf("coalesced action must advance its timestamp, got %s", action.At)
	}
}

func TestFoldSeparateActionsOutsideWindow(t *testing.T) {
	trail := Fold(nil, "dr-khan", t0, []string{"header.pm_no"})
	trail = Fold(trail, "dr-khan", t0.Add(90*time.Second), []string{"general.person_name"})

	if len(trail) != 1 || len(trail[0].Actions) != 2 {
		t.Fatalf("edits 90s apart must append a second action, got %+v", trail)
	}
}

func TestFoldWindowBoundaryInclusive(t *testing.T) {
	trail := Fold(nil, "dr-khan", t0, []string{"a"})
	trail = Fold(trail, "dr-khan", t0.Add(CoalesceWindow), []string{"b"})
	if len(trail[0].Actions) != 1 {
		t.Fatalf("an edit exactly at the window edge must coalesce, got %+v", trail[0].Actions)
	}
}

func TestFoldSeparatesActors(t *testing.T) {
	trail := Fold(nil, "dr-khan", t0, []string{"header.pm_no"})
	trail = Fold(trail, "clerk-1", t0.Add(5*time.Second), []string{"general.age"})

	if len(trail) != 2 {
		t.Fatalf("each actor gets their own entry, got %+v", trail)
	}
	if trail[0].By != "dr-khan" || trail[1].By != "clerk-1" {
		t.Fatalf("entry order must follow first appearance, got %+v", trail)
	}
}

func TestFoldDedupsFields(t *testing.T) {
	trail := Fold(nil, "dr-khan", t0, []string{"header.pm_no"})
	trail = Fold(trail, "dr-khan", t0.Add(time.Second), []string{"header.pm_no", "header.station"})

	fields := trail[0].Actions[0].Fields
	want := []string{"header.pm_no", "header.station"}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
}

func TestFoldEmptyChangeSetIsNoOp(t *testing.T) {
	trail := Fold(nil, "dr-khan", t0, []string{"header.pm_no"})
	out := Fold(trail, "dr-khan", t0.Add(time.Second), nil)
	if !reflect.DeepEqual(out, trail) {
		t.Fatalf("empty change set must leave the trail untouched")
	}
}

func TestFoldDoesNotMutateInput(t *testing.T) {
	trail := Fold(nil, "dr-khan", t0, []string{"header.pm_no"})
	before := trail[0].Actions[0].Fields[0]
	_ = Fold(trail, "dr-khan", t0.Add(time.Second), []string{"general.age"})
	if trail[0].Actions[0].Fields[0] != before || len(trail[0].Actions[0].Fields) != 1 {
		t.Fatalf("input trail was mutated: %+v", trail)
	}
}
