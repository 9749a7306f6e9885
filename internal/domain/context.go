package domain

import "context"

// Role determines which slice of the ledger a caller may see.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RoleAuditor Role = "auditor"
	RolePatient Role = "patient"
)

// ParseRole normalizes a client-supplied role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleDoctor, RoleAuditor, RolePatient:
		return Role(s), true
	default:
		return "", false
	}
}

// Caller carries the authenticated identity through every core operation.
// Identity is always explicit per-request, never ambient state.
type Caller struct {
	ID   string
	Role Role
}

type callerKey struct{}

// WithCaller stores a Caller in the context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext extracts the Caller from the context.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
