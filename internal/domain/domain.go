package domain

// Report statuses.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// Meta carries the lifecycle metadata shared by the flat and nested report
// shapes. Timestamps are RFC3339 strings. Locked is the authoritative
// mutation gate, independent of Status.
type Meta struct {
	ID          string       `json:"id,omitempty"`
	Status      string       `json:"status,omitempty" enum:"draft,submitted"`
	Locked      bool         `json:"locked" required:"false"`
	LockedAt    string       `json:"locked_at,omitempty" format:"date-time"`
	LockedBy    string       `json:"locked_by,omitempty"`
	LockReason  string       `json:"lock_reason,omitempty"`
	SubmittedAt string       `json:"submitted_at,omitempty" format:"date-time"`
	SubmittedBy string       `json:"submitted_by,omitempty"`
	CreatedAt   string       `json:"created_at,omitempty" format:"date-time"`
	CreatedBy   string       `json:"created_by,omitempty"`
	UpdatedAt   string       `json:"updated_at,omitempty" format:"date-time"`
	UpdatedBy   string       `json:"updated_by,omitempty"`
	Audit       []AuditEntry `json:"audit,omitempty"`
}

// AuditEntry groups the recorded actions of one actor, in order of first
// activity. Entries are append-only; only the most recent action of an
// entry may be merged into.
type AuditEntry struct {
	By      string        `json:"by"`
	Actions []AuditAction `json:"actions"`
}

// AuditAction is one coalesced burst of edits: the dot-paths of the fields
// that changed, stamped with the time of the latest fold.
type AuditAction struct {
	At     string   `json:"at" format:"date-time"`
	Fields []string `json:"fields"`
}

// Actor is the resolved identity of a request, supplied by the auth layer.
type Actor struct {
	ID        string `json:"id"`
	Role      string `json:"role,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
}

// Anonymous is the sentinel actor used when no identity could be resolved.
var Anonymous = Actor{ID: "anonymous"}

// APIKey is a hashed server credential bound to an actor.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// ActorRecord is a locally known actor, carrying the superuser flag used by
// the unlock authorization check.
type ActorRecord struct {
	ID        string `json:"id"`
	Superuser bool   `json:"superuser"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
