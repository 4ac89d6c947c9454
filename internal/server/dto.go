package server

import (
	"coroner/internal/domain"
)

// Request payloads

// SaveReportRequest carries the flat report payload. The optional action
// selects the submit or unlock transition; absent means a draft save.
// Form UIs and legacy records carry keys outside the canonical field map;
// those must decode as a projection (unknown keys dropped), not be rejected.
type SaveReportRequest struct {
	_ struct{} `json:"-" additionalProperties:"true"`
	domain.FlatReport
	Action string `json:"action,omitempty" enum:"submit,unlock"`
}

type DevLoginRequest struct {
	ActorID   string `json:"actor_id"`
	Role      string `json:"role,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
}

// Response envelopes

type ReportEnvelope struct {
	OK   bool          `json:"ok"`
	Data domain.Report `json:"data"`
}

type ReportListEnvelope struct {
	OK   bool            `json:"ok"`
	Data []domain.Report `json:"data"`
}

type AuditEnvelope struct {
	OK   bool                `json:"ok"`
	Data []domain.AuditEntry `json:"data"`
}

type DevLoginResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}
