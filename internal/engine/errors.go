package engine

import "strings"

// LockedError indicates a mutation attempt against a locked report.
type LockedError struct {
	ID string
}

func (e LockedError) Error() string {
	return "Report is locked and cannot be edited"
}

// ValidationError indicates a submit with missing required fields.
type ValidationError struct {
	Missing []string
}

func (e ValidationError) Error() string {
	return "Missing required fields: " + strings.Join(e.Missing, ", ")
}

// UnlockAuthError indicates an unlock attempt by a non-admin actor.
type UnlockAuthError struct {
	Actor string
}

func (e UnlockAuthError) Error() string {
	return "Only admin can unlock."
}
