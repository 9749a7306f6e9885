package domain

import "context"

// LedgerRepository is the persistence port for audit entries. Implementations
// must treat the entries table as append-only: Insert is the only write.
type LedgerRepository interface {
	// Insert persists a fully-formed entry (sequence, hashes included).
	Insert(ctx context.Context, e *Entry) error
	// Tip returns the highest-sequence entry, or nil for an empty ledger.
	Tip(ctx context.Context) (*Entry, error)
	// Latest returns the most recent entry for one patient, or nil.
	Latest(ctx context.Context, patientID string) (*Entry, error)
	// List returns entries matching the filter in ascending sequence order.
	List(ctx context.Context, f EntryFilter) ([]Entry, error)
	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, f EntryFilter) (int64, error)
}

// UserRepository is the persistence port for registered users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, userID string) (*User, error)
}
