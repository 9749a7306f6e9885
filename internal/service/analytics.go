package service

import (
	"context"
	"sort"
	"time"

	"ehrledger/internal/domain"
	"ehrledger/internal/ledger"
)

// cancelCheckInterval is how many entries an aggregation scans between
// context checks. Aggregations only read, so abort simply discards partials.
const cancelCheckInterval = 256

// NameCount is one row of a frequency aggregation.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PatientSummary aggregates one patient's visible history.
type PatientSummary struct {
	PatientID    string         `json:"patient_id"`
	CurrentState domain.Payload `json:"current_state"`
	Deleted      bool           `json:"deleted"`
	TotalLogs    int64          `json:"total_logs"`
	LastVisit    time.Time      `json:"last_visit"`
}

// AnalyticsService answers structured questions over a caller's visible entry
// set. Every operation scopes through the access filter first; the engine
// itself performs no access checks, so an auditor's aggregate differs from a
// doctor's by construction.
type AnalyticsService struct {
	store  *ledger.Store
	access *AccessService
}

// NewAnalyticsService creates an AnalyticsService.
func NewAnalyticsService(store *ledger.Store, access *AccessService) *AnalyticsService {
	return &AnalyticsService{store: store, access: access}
}

// List returns the caller's visible entries matching the requested filter.
func (s *AnalyticsService) List(ctx context.Context, caller domain.Caller, requested domain.EntryFilter) ([]domain.Entry, error) {
	return s.store.List(ctx, s.access.Scope(caller, requested))
}

// Count returns the number of visible entries matching the requested filter.
func (s *AnalyticsService) Count(ctx context.Context, caller domain.Caller, requested domain.EntryFilter) (int64, error) {
	return s.store.Count(ctx, s.access.Scope(caller, requested))
}

// LastVisit returns the most recent visible entry's timestamp, optionally
// restricted to one patient.
func (s *AnalyticsService) LastVisit(ctx context.Context, caller domain.Caller, patientID string) (time.Time, error) {
	entries, err := s.List(ctx, caller, domain.EntryFilter{PatientID: patientID})
	if err != nil {
		return time.Time{}, err
	}
	if len(entries) == 0 {
		if patientID != "" {
			return time.Time{}, domain.ErrNotFound("no visible entries for patient %q", patientID)
		}
		return time.Time{}, domain.ErrNotFound("no visible entries")
	}
	return entries[len(entries)-1].Timestamp, nil
}

// TopDiagnoses returns the n most frequent diagnoses across visible current
// (non-deleted) states, descending by count, ties broken by first-seen order
// in the ledger.
func (s *AnalyticsService) TopDiagnoses(ctx context.Context, caller domain.Caller, n int) ([]NameCount, error) {
	return s.topField(ctx, caller, n, func(p domain.Payload) string { return p.Diagnosis })
}

// TopMedications is TopDiagnoses over the medication field.
func (s *AnalyticsService) TopMedications(ctx context.Context, caller domain.Caller, n int) ([]NameCount, error) {
	return s.topField(ctx, caller, n, func(p domain.Payload) string { return p.Medication })
}

// Summary returns the aggregate view for one patient: current state, total
// visible entry count, and most recent timestamp. NotFound when the caller
// has no visible entries for the id.
func (s *AnalyticsService) Summary(ctx context.Context, caller domain.Caller, patientID string) (PatientSummary, error) {
	entries, err := s.List(ctx, caller, domain.EntryFilter{PatientID: patientID})
	if err != nil {
		return PatientSummary{}, err
	}
	if len(entries) == 0 {
		return PatientSummary{}, domain.ErrNotFound("no visible entries for patient %q", patientID)
	}

	last := entries[len(entries)-1]
	summary := PatientSummary{
		PatientID: patientID,
		TotalLogs: int64(len(entries)),
		LastVisit: last.Timestamp,
	}
	if last.Action == domain.ActionDelete {
		summary.Deleted = true
	} else {
		summary.CurrentState = last.Payload
	}
	return summary, nil
}

// CountPatients returns the number of distinct patient ids with a live
// (non-deleted) current state in the caller's visible set.
func (s *AnalyticsService) CountPatients(ctx context.Context, caller domain.Caller) (int64, error) {
	states, err := s.currentStates(ctx, caller)
	if err != nil {
		return 0, err
	}
	return int64(len(states)), nil
}

// RecentVisits returns up to n visible entries carrying a visit date,
// most recent visit first.
func (s *AnalyticsService) RecentVisits(ctx context.Context, caller domain.Caller, n int) ([]domain.Entry, error) {
	entries, err := s.List(ctx, caller, domain.EntryFilter{})
	if err != nil {
		return nil, err
	}

	var visits []domain.Entry
	for i, e := range entries {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if e.Payload.VisitDate != "" {
			visits = append(visits, e)
		}
	}

	// Latest visit date first; later ledger order wins within a date.
	sort.SliceStable(visits, func(i, j int) bool {
		if visits[i].Payload.VisitDate != visits[j].Payload.VisitDate {
			return visits[i].Payload.VisitDate > visits[j].Payload.VisitDate
		}
		return visits[i].SequenceID > visits[j].SequenceID
	})
	if n > 0 && len(visits) > n {
		visits = visits[:n]
	}
	return visits, nil
}

// patientState pairs a live patient with the order their id first appeared.
type patientState struct {
	firstSeen int
	payload   domain.Payload
}

// currentStates folds the caller's visible entries into the live state per
// patient: the latest non-delete payload, dropped entirely when the latest
// entry is a tombstone.
func (s *AnalyticsService) currentStates(ctx context.Context, caller domain.Caller) (map[string]patientState, error) {
	entries, err := s.List(ctx, caller, domain.EntryFilter{})
	if err != nil {
		return nil, err
	}

	states := make(map[string]patientState)
	order := 0
	for i, e := range entries {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if e.Action == domain.ActionDelete {
			delete(states, e.PatientID)
			continue
		}
		st, ok := states[e.PatientID]
		if !ok {
			st = patientState{firstSeen: order}
			order++
		}
		st.payload = e.Payload
		states[e.PatientID] = st
	}
	return states, nil
}

func (s *AnalyticsService) topField(ctx context.Context, caller domain.Caller, n int, field func(domain.Payload) string) ([]NameCount, error) {
	states, err := s.currentStates(ctx, caller)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for _, st := range states {
		v := field(st.payload)
		if v == "" {
			continue
		}
		counts[v]++
		if seen, ok := firstSeen[v]; !ok || st.firstSeen < seen {
			firstSeen[v] = st.firstSeen
		}
	}

	out := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].Name] < firstSeen[out[j].Name]
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
