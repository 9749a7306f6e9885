package domain

import "time"

// User is a registered identity. The ledger core never checks credentials
// itself; the auth service verifies PasswordHash and hands the core an
// already-authenticated Caller.
type User struct {
	ID           string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
