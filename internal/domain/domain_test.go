package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func str(s string) *string { return &s }

func TestFlatNestedRoundTrip(t *testing.T) {
	flat := FlatReport{
		Meta: Meta{ID: "pm-1", Status: StatusDraft},
		Header: Header{
			ThanaID: str("thana-7"),
			PMNo:    str("PM-2024-001"),
		},
		General: General{
			PersonName:     str("Abdul Karim"),
			RelativesNames: []string{"Rahim", "Fatema"},
		},
		Opinions: Opinions{
			CauseOfDeath: str("asphyxia"),
		},
	}
	nested := flat.ToNested()
	if nested.Header.PMNo == nil || *nested.Header.PMNo != "PM-2024-001" {
		t.Fatalf("pm_no not carried into header: %+v", nested.Header)
	}
	if nested.Opinions.CauseOfDeath == nil || *nested.Opinions.CauseOfDeath != "asphyxia" {
		t.Fatalf("cause_of_death not carried into opinions: %+v", nested.Opinions)
	}
	back := nested.ToFlat()
	if !reflect.DeepEqual(flat, back) {
		t.Fatalf("round trip mismatch:\nflat: %+v\nback: %+v", flat, back)
	}
}

func TestFlatJSONIsSingleLevel(t *testing.T) {
	flat := FlatReport{
		Meta:    Meta{ID: "pm-1", Status: StatusDraft},
		Header:  Header{ThanaID: str("thana-7")},
		General: General{PersonName: str("Abdul Karim")},
	}
	data, err := json.Marshal(flat)
	if err != nil {
		t.Fatalf("marshal flat: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["thana_id"]; !ok {
		t.Fatalf("expected top-level thana_id, got keys %v", keys(m))
	}
	if _, ok := m["header"]; ok {
		t.Fatalf("flat shape must not carry a header object")
	}
}

func TestNestedJSONGroupsSections(t *testing.T) {
	nested := Report{
		Meta:   Meta{ID: "pm-1", Status: StatusDraft},
		Header: Header{ThanaID: str("thana-7")},
	}
	data, err := json.Marshal(nested)
	if err != nil {
		t.Fatalf("marshal nested: %v", err)
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	header, ok := outer["header"]
	if !ok {
		t.Fatalf("expected header object in nested shape")
	}
	var h map[string]any
	if err := json.Unmarshal(header, &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h["thana_id"] != "thana-7" {
		t.Fatalf("expected header.thana_id, got %v", h)
	}
	if _, ok := outer["thana_id"]; ok {
		t.Fatalf("nested shape must not carry top-level thana_id")
	}
}

func TestFlatDecodeDropsUnknownKeys(t *testing.T) {
	payload := []byte(`{"id":"pm-1","person_name":"Abdul Karim","bogus_field":"x"}`)
	var flat FlatReport
	if err := json.Unmarshal(payload, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if flat.General.PersonName == nil || *flat.General.PersonName != "Abdul Karim" {
		t.Fatalf("canonical field lost: %+v", flat.General)
	}
	out, _ := json.Marshal(flat)
	var m map[string]any
	_ = json.Unmarshal(out, &m)
	if _, ok := m["bogus_field"]; ok {
		t.Fatalf("unknown key survived the projection")
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
