// Package service implements the application services over the ledger store:
// record lifecycle, access scoping, analytics, chat routing, and auth.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ehrledger/internal/domain"
	"ehrledger/internal/ledger"
)

// visitDateLayout is the calendar-date format accepted for visit_date.
const visitDateLayout = "2006-01-02"

// LifecycleService validates and sequences create/modify/delete submissions
// against the current state derivable from the ledger. It never edits
// history: a delete is an appended tombstone, not a removal.
type LifecycleService struct {
	store *ledger.Store
	locks keyedLocks
}

// NewLifecycleService creates a LifecycleService over the ledger store.
func NewLifecycleService(store *ledger.Store) *LifecycleService {
	return &LifecycleService{store: store}
}

// Submit validates an action against the patient's current state and appends
// the resulting entry. The existence check and the append run as one critical
// section per patient id, so two concurrent creates for the same new id
// resolve to exactly one success and one ConflictError.
func (s *LifecycleService) Submit(ctx context.Context, actorID, patientID string, action domain.Action, p domain.Payload) (domain.Entry, error) {
	if patientID == "" {
		return domain.Entry{}, domain.ErrValidation("missing required field", "patient_id")
	}
	if actorID == "" {
		return domain.Entry{}, domain.ErrValidation("missing required field", "user_id")
	}

	unlock := s.locks.lock(patientID)
	defer unlock()

	current, err := s.currentState(ctx, patientID)
	if err != nil {
		return domain.Entry{}, err
	}

	switch action {
	case domain.ActionCreate:
		if current != nil {
			return domain.Entry{}, domain.ErrConflict("record for patient %q already exists", patientID)
		}
		if err := validateCreatePayload(p); err != nil {
			return domain.Entry{}, err
		}
	case domain.ActionModify:
		if current == nil {
			return domain.Entry{}, domain.ErrNotFound("no record to modify for patient %q", patientID)
		}
		if err := validateModifyPayload(p); err != nil {
			return domain.Entry{}, err
		}
		// A modify entry carries the full post-update state so the current
		// state is always the latest non-delete entry's payload.
		p = current.Merge(p)
	case domain.ActionDelete:
		if current == nil {
			return domain.Entry{}, domain.ErrNotFound("no record to delete for patient %q", patientID)
		}
		// Tombstones carry identification only.
		p = domain.Payload{}
	default:
		return domain.Entry{}, domain.ErrValidation(fmt.Sprintf("invalid action %q", action), "action")
	}

	return s.store.Append(ctx, actorID, patientID, action, p)
}

// currentState returns the patient's live clinical state, or nil when the
// patient has never been created or their latest entry is a delete.
func (s *LifecycleService) currentState(ctx context.Context, patientID string) (*domain.Payload, error) {
	latest, err := s.store.Latest(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Action == domain.ActionDelete {
		return nil, nil
	}
	return &latest.Payload, nil
}

func validateCreatePayload(p domain.Payload) error {
	var fields []string
	if p.PatientName == "" {
		fields = append(fields, "patient_name")
	}
	if p.Age == nil {
		fields = append(fields, "age")
	}
	if len(fields) > 0 {
		return domain.ErrValidation("missing required field", fields...)
	}
	return validateCommonPayload(p)
}

func validateModifyPayload(p domain.Payload) error {
	if p.IsZero() {
		return domain.ErrValidation("modify requires at least one clinical field")
	}
	return validateCommonPayload(p)
}

func validateCommonPayload(p domain.Payload) error {
	var fields []string
	if p.Age != nil && *p.Age < 0 {
		fields = append(fields, "age")
	}
	if p.VisitDate != "" {
		if _, err := time.Parse(visitDateLayout, p.VisitDate); err != nil {
			fields = append(fields, "visit_date")
		}
	}
	if len(fields) > 0 {
		return domain.ErrValidation("invalid field value", fields...)
	}
	return nil
}

// keyedLocks serializes submissions per patient id. Entries are tiny and the
// patient id space is small, so locks are kept for process lifetime.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
