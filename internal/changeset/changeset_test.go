package changeset

import (
	"reflect"
	"testing"

	"coroner/internal/domain"
)

func str(s string) *string { return &s }

func TestDiffReportsChangedFields(t *testing.T) {
	prev := domain.Report{
		Meta:    domain.Meta{ID: "pm-1", Status: domain.StatusDraft},
		Header:  domain.Header{PMNo: str("PM-1"), Station: str("Sadar")},
		General: domain.General{PersonName: str("Abdul Karim")},
	}
	next := prev
	next.Header.Station = str("Kotwali")
	next.Opinions.CauseOfDeath = str("drowning")

	got := Diff(prev, next)
	want := []string{"header.station", "opinions.cause_of_death"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("diff = %v, want %v", got, want)
	}
}

func TestDiffIgnoresMetadata(t *testing.T) {
	prev := domain.Report{Meta: domain.Meta{ID: "pm-1", Status: domain.StatusDraft}}
	next := prev
	next.Status = domain.StatusSubmitted
	next.Locked = true
	next.UpdatedAt = "2024-05-01T10:00:00Z"
	next.UpdatedBy = "someone"

	if got := Diff(prev, next); len(got) != 0 {
		t.Fatalf("metadata changes must not be tracked, got %v", got)
	}
}

func TestDiffBlankShuffleNotRecorded(t *testing.T) {
	prev := domain.Report{Meta: domain.Meta{ID: "pm-1"}}
	next := prev
	// nil -> explicit empty string: neither side is meaningful.
	next.General.PoliceInfo = str("")
	if got := Diff(prev, next); len(got) != 0 {
		t.Fatalf("nil to blank must not be recorded, got %v", got)
	}
	// whitespace only is still blank
	next.General.PoliceInfo = str("   ")
	if got := Diff(prev, next); len(got) != 0 {
		t.Fatalf("nil to whitespace must not be recorded, got %v", got)
	}
}

func TestDiffClearingIsRecorded(t *testing.T) {
	prev := domain.Report{Meta: domain.Meta{ID: "pm-1"}}
	prev.General.PoliceInfo = str("UD case 12")
	next := prev
	next.General.PoliceInfo = str("")

	got := Diff(prev, next)
	want := []string{"general.police_info"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("clearing a value must be recorded, got %v", got)
	}
}

func TestDiffArrays(t *testing.T) {
	prev := domain.Report{Meta: domain.Meta{ID: "pm-1"}}
	prev.General.RelativesNames = []string{"Rahim"}
	next := prev
	next.General.RelativesNames = []string{"Rahim", "Fatema"}

	got := Diff(prev, next)
	want := []string{"general.relatives_names"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("array growth must be recorded, got %v", got)
	}

	// nil vs empty array is not a change worth recording
	next.General.RelativesNames = []string{}
	prev.General.RelativesNames = nil
	if got := Diff(prev, next); len(got) != 0 {
		t.Fatalf("nil vs empty array must not be recorded, got %v", got)
	}
}

func TestDiffEqualReportsEmpty(t *testing.T) {
	r := domain.Report{
		Meta:    domain.Meta{ID: "pm-1", Status: domain.StatusDraft},
		Header:  domain.Header{PMNo: str("PM-1")},
		General: domain.General{RelativesNames: []string{"Rahim", "Fatema"}},
	}
	if got := Diff(r, r); len(got) != 0 {
		t.Fatalf("identical reports must produce an empty diff, got %v", got)
	}
}

func TestPopulatedListsEveryMeaningfulLeaf(t *testing.T) {
	r := domain.Report{
		Meta:     domain.Meta{ID: "pm-1", Status: domain.StatusDraft},
		Header:   domain.Header{ThanaID: str("thana-7"), PMNo: str("PM-1")},
		General:  domain.General{PersonName: str("Abdul Karim")},
		Opinions: domain.Opinions{Remarks: str("")},
	}
	got := Populated(r)
	want := []string{"general.person_name", "header.pm_no", "header.thana_id"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("populated = %v, want %v", got, want)
	}
}
