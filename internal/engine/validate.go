package engine

import (
	"strings"

	"coroner/internal/domain"
)

// requiredFields lists the fields a report must carry before it can be
// submitted. Names match the flat wire keys so validation errors read the
// same as the payload.
var requiredFields = []struct {
	name string
	get  func(f domain.FlatReport) any
}{
	{"thana_id", func(f domain.FlatReport) any { return f.ThanaID }},
	{"case_type", func(f domain.FlatReport) any { return f.CaseType }},
	{"case_no", func(f domain.FlatReport) any { return f.CaseNo }},
	{"ref_date", func(f domain.FlatReport) any { return f.RefDate }},
	{"pm_no", func(f domain.FlatReport) any { return f.PMNo }},
	{"report_date", func(f domain.FlatReport) any { return f.ReportDate }},
	{"station", func(f domain.FlatReport) any { return f.Station }},
	{"person_name", func(f domain.FlatReport) any { return f.PersonName }},
	{"gender", func(f domain.FlatReport) any { return f.Gender }},
	{"age", func(f domain.FlatReport) any { return f.Age }},
	{"origin_village", func(f domain.FlatReport) any { return f.OriginVillage }},
	{"origin_thana", func(f domain.FlatReport) any { return f.OriginThana }},
	{"constable_name", func(f domain.FlatReport) any { return f.ConstableName }},
	{"relatives_names", func(f domain.FlatReport) any { return f.RelativesNames }},
	{"sent_datetime", func(f domain.FlatReport) any { return f.SentDatetime }},
	{"brought_datetime", func(f domain.FlatReport) any { return f.BroughtDatetime }},
	{"exam_datetime", func(f domain.FlatReport) any { return f.ExamDatetime }},
	{"police_info", func(f domain.FlatReport) any { return f.PoliceInfo }},
	{"identifier_name", func(f domain.FlatReport) any { return f.IdentifierName }},
}

// missingRequired returns the names of required fields that are absent or
// blank, in declaration order.
func missingRequired(f domain.FlatReport) []string {
	var missing []string
	for _, rf := range requiredFields {
		if !fieldPresent(rf.get(f)) {
			missing = append(missing, rf.name)
		}
	}
	return missing
}

func fieldPresent(v any) bool {
	switch t := v.(type) {
	case *string:
		return t != nil && strings.TrimSpace(*t) != ""
	case []string:
		return len(t) > 0
	}
	return v != nil
}
