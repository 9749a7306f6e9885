package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ehrledger/internal/domain"
)

// Store is the single authoritative writer for the audit ledger. It assigns
// sequence numbers, stamps timestamps, threads the hash chain, and delegates
// persistence to the repository. All other components read through it.
type Store struct {
	repo   domain.LedgerRepository
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex // guards tipHash, nextSeq, lastTS across appends
	tipHash string
	nextSeq int64
	lastTS  time.Time
}

// Open creates a Store and recovers the chain tail from the repository.
// If the ledger already has entries, the tip's entry_hash seeds the next
// append's prev_hash.
func Open(ctx context.Context, repo domain.LedgerRepository, logger *slog.Logger) (*Store, error) {
	s := &Store{
		repo:    repo,
		logger:  logger,
		now:     time.Now,
		tipHash: GenesisHash,
		nextSeq: 1,
	}

	tip, err := repo.Tip(ctx)
	if err != nil {
		return nil, fmt.Errorf("recover chain tip: %w", err)
	}
	if tip != nil {
		s.tipHash = tip.EntryHash
		s.nextSeq = tip.SequenceID + 1
		s.lastTS = tip.Timestamp
		logger.Info("ledger opened", "entries", tip.SequenceID, "tip", tip.EntryHash)
	} else {
		logger.Info("ledger opened", "entries", 0)
	}

	return s, nil
}

// Append assigns the next sequence id, stamps a monotone non-decreasing UTC
// timestamp, links the entry to the current chain tip, and persists it.
// On persistence failure the in-memory tip is left unchanged so the ledger
// and the chain state never diverge.
func (s *Store) Append(ctx context.Context, actorID, patientID string, action domain.Action, p domain.Payload) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}

	e := domain.Entry{
		SequenceID: s.nextSeq,
		Timestamp:  ts,
		ActorID:    actorID,
		PatientID:  patientID,
		Action:     action,
		Payload:    p,
		PrevHash:   s.tipHash,
	}

	hash, err := EntryHash(&e)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("hash entry: %w", err)
	}
	e.EntryHash = hash

	if err := s.repo.Insert(ctx, &e); err != nil {
		return domain.Entry{}, err
	}

	s.tipHash = e.EntryHash
	s.nextSeq++
	s.lastTS = ts

	s.logger.Debug("entry appended",
		"sequence_id", e.SequenceID, "actor_id", actorID,
		"patient_id", patientID, "action", action)
	return e, nil
}

// List returns entries matching the filter in ascending sequence order.
func (s *Store) List(ctx context.Context, f domain.EntryFilter) ([]domain.Entry, error) {
	return s.repo.List(ctx, f)
}

// Count returns the number of entries matching the filter.
func (s *Store) Count(ctx context.Context, f domain.EntryFilter) (int64, error) {
	return s.repo.Count(ctx, f)
}

// Latest returns the most recent entry for one patient, or nil. Served from
// the write pool so a submit sees its own just-committed append.
func (s *Store) Latest(ctx context.Context, patientID string) (*domain.Entry, error) {
	return s.repo.Latest(ctx, patientID)
}

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Entries  int    `json:"entries"`
	BrokenAt int64  `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Err converts an invalid result into a ChainIntegrityError, or nil.
func (r VerifyResult) Err() error {
	if r.Valid {
		return nil
	}
	return &domain.ChainIntegrityError{SequenceID: r.BrokenAt, Message: r.Reason}
}

// VerifyChain recomputes every entry hash from the sequence start and confirms
// each links to its predecessor. It only reads, so it is safe to run while
// appends continue; entries appended after the scan starts are not covered.
func (s *Store) VerifyChain(ctx context.Context) (VerifyResult, error) {
	entries, err := s.repo.List(ctx, domain.EntryFilter{})
	if err != nil {
		return VerifyResult{}, fmt.Errorf("read ledger for verification: %w", err)
	}

	prevHash := GenesisHash
	prevSeq := int64(0)
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return VerifyResult{}, err
		}
		e := &entries[i]

		if e.SequenceID != prevSeq+1 {
			return VerifyResult{
				Entries: len(entries), BrokenAt: e.SequenceID,
				Reason: fmt.Sprintf("sequence gap: %d follows %d", e.SequenceID, prevSeq),
			}, nil
		}
		if e.PrevHash != prevHash {
			return VerifyResult{
				Entries: len(entries), BrokenAt: e.SequenceID,
				Reason: fmt.Sprintf("prev_hash mismatch: expected %s, got %s", prevHash, e.PrevHash),
			}, nil
		}

		recomputed, err := EntryHash(e)
		if err != nil {
			return VerifyResult{}, fmt.Errorf("rehash entry %d: %w", e.SequenceID, err)
		}
		if recomputed != e.EntryHash {
			return VerifyResult{
				Entries: len(entries), BrokenAt: e.SequenceID,
				Reason: fmt.Sprintf("entry_hash mismatch: recomputed %s, stored %s", recomputed, e.EntryHash),
			}, nil
		}

		prevHash = e.EntryHash
		prevSeq = e.SequenceID
	}

	return VerifyResult{Valid: true, Entries: len(entries)}, nil
}
