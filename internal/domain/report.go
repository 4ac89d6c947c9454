package domain

// The nine fixed domain sections of a post-mortem report. Every field is
// optional: a nil pointer (or nil slice) means the field was never filled
// in, which is distinct from an explicitly cleared value. Field names are
// unique across all sections so the flat shape can hold them side by side.

type Header struct {
	ThanaID    *string `json:"thana_id,omitempty"`
	CaseType   *string `json:"case_type,omitempty"`
	CaseNo     *string `json:"case_no,omitempty"`
	RefDate    *string `json:"ref_date,omitempty"`
	PMNo       *string `json:"pm_no,omitempty"`
	ReportDate *string `json:"report_date,omitempty"`
	Station    *string `json:"station,omitempty"`
	District   *string `json:"district,omitempty"`
}

type General struct {
	PersonName      *string  `json:"person_name,omitempty"`
	Gender          *string  `json:"gender,omitempty"`
	Age             *string  `json:"age,omitempty"`
	Religion        *string  `json:"religion,omitempty"`
	OriginVillage   *string  `json:"origin_village,omitempty"`
	OriginThana     *string  `json:"origin_thana,omitempty"`
	OriginDistrict  *string  `json:"origin_district,omitempty"`
	ConstableName   *string  `json:"constable_name,omitempty"`
	RelativesNames  []string `json:"relatives_names,omitempty"`
	SentDatetime    *string  `json:"sent_datetime,omitempty"`
	BroughtDatetime *string  `json:"brought_datetime,omitempty"`
	ExamDatetime    *string  `json:"exam_datetime,omitempty"`
	PoliceInfo      *string  `json:"police_info,omitempty"`
	IdentifierName  *string  `json:"identifier_name,omitempty"`
}

type ExternalSigns struct {
	ClothingDesc       *string  `json:"clothing_desc,omitempty"`
	Physique           *string  `json:"physique,omitempty"`
	DecompositionState *string  `json:"decomposition_state,omitempty"`
	RigorMortis        *string  `json:"rigor_mortis,omitempty"`
	ExternalWounds     *string  `json:"external_wounds,omitempty"`
	ExternalInjuries   *string  `json:"external_injuries,omitempty"`
	IdentifyingMarks   []string `json:"identifying_marks,omitempty"`
}

type HeadSpine struct {
	ScalpDesc      *string `json:"scalp_desc,omitempty"`
	SkullDesc      *string `json:"skull_desc,omitempty"`
	BrainMembranes *string `json:"brain_membranes,omitempty"`
	BrainDesc      *string `json:"brain_desc,omitempty"`
	VertebraeDesc  *string `json:"vertebrae_desc,omitempty"`
	SpinalCordDesc *string `json:"spinal_cord_desc,omitempty"`
}

type ChestLungs struct {
	RibsDesc        *string `json:"ribs_desc,omitempty"`
	PleuraDesc      *string `json:"pleura_desc,omitempty"`
	LarynxTrachea   *string `json:"larynx_trachea,omitempty"`
	RightLung       *string `json:"right_lung,omitempty"`
	LeftLung        *string `json:"left_lung,omitempty"`
	Pericardium     *string `json:"pericardium,omitempty"`
	HeartDesc       *string `json:"heart_desc,omitempty"`
	ThoracicVessels *string `json:"thoracic_vessels,omitempty"`
}

type Abdomen struct {
	AbdominalWalls  *string `json:"abdominal_walls,omitempty"`
	PeritoneumDesc  *string `json:"peritoneum_desc,omitempty"`
	MouthPharynx    *string `json:"mouth_pharynx,omitempty"`
	StomachContents *string `json:"stomach_contents,omitempty"`
	SmallIntestine  *string `json:"small_intestine,omitempty"`
	LargeIntestine  *string `json:"large_intestine,omitempty"`
	LiverDesc       *string `json:"liver_desc,omitempty"`
	SpleenDesc      *string `json:"spleen_desc,omitempty"`
	KidneysDesc     *string `json:"kidneys_desc,omitempty"`
	BladderDesc     *string `json:"bladder_desc,omitempty"`
	GenitalOrgans   *string `json:"genital_organs,omitempty"`
}

type Musculoskeletal struct {
	MusclesDesc      *string `json:"muscles_desc,omitempty"`
	BonesDesc        *string `json:"bones_desc,omitempty"`
	JointsDesc       *string `json:"joints_desc,omitempty"`
	FracturesDesc    *string `json:"fractures_desc,omitempty"`
	DislocationsDesc *string `json:"dislocations_desc,omitempty"`
}

type DetailedPathology struct {
	PathologyFindings *string  `json:"pathology_findings,omitempty"`
	ChemicalAnalysis  *string  `json:"chemical_analysis,omitempty"`
	HistologyNotes    *string  `json:"histology_notes,omitempty"`
	SamplesTaken      []string `json:"samples_taken,omitempty"`
}

type Opinions struct {
	CauseOfDeath   *string `json:"cause_of_death,omitempty"`
	OpinionSummary *string `json:"opinion_summary,omitempty"`
	ExaminerName   *string `json:"examiner_name,omitempty"`
	Remarks        *string `json:"remarks,omitempty"`
}

// Report is the nested, section-grouped shape used for storage.
type Report struct {
	Meta
	Header            Header            `json:"header"`
	General           General           `json:"general"`
	ExternalSigns     ExternalSigns     `json:"external_signs"`
	HeadSpine         HeadSpine         `json:"head_spine"`
	ChestLungs        ChestLungs        `json:"chest_lungs"`
	Abdomen           Abdomen           `json:"abdomen"`
	Musculoskeletal   Musculoskeletal   `json:"musculoskeletal"`
	DetailedPathology DetailedPathology `json:"detailed_pathology"`
	Opinions          Opinions          `json:"opinions"`
}

// FlatReport is the single-level shape produced and consumed by form UIs:
// every section field sits at the top level next to the lifecycle metadata.
// Keys that are not part of the canonical section map are dropped when a
// payload is decoded into this type; the mapping is a projection, not a
// generic copy.
type FlatReport struct {
	Meta
	Header
	General
	ExternalSigns
	HeadSpine
	ChestLungs
	Abdomen
	Musculoskeletal
	DetailedPathology
	Opinions
}

// ToNested regroups a flat report under the fixed section keys. The
// lifecycle metadata is copied through unchanged.
func (f FlatReport) ToNested() Report {
	return Report{
		Meta:              f.Meta,
		Header:            f.Header,
		General:           f.General,
		ExternalSigns:     f.ExternalSigns,
		HeadSpine:         f.HeadSpine,
		ChestLungs:        f.ChestLungs,
		Abdomen:           f.Abdomen,
		Musculoskeletal:   f.Musculoskeletal,
		DetailedPathology: f.DetailedPathology,
		Opinions:          f.Opinions,
	}
}

// ToFlat is the inverse of ToNested. Round-tripping preserves every
// canonical field's value.
func (r Report) ToFlat() FlatReport {
	return FlatReport{
		Meta:              r.Meta,
		Header:            r.Header,
		General:           r.General,
		ExternalSigns:     r.ExternalSigns,
		HeadSpine:         r.HeadSpine,
		ChestLungs:        r.ChestLungs,
		Abdomen:           r.Abdomen,
		Musculoskeletal:   r.Musculoskeletal,
		DetailedPathology: r.DetailedPathology,
		Opinions:          r.Opinions,
	}
}
