package domain

import "time"

// EntryFilter selects a subset of ledger entries. Zero-value fields are
// unbounded. Results are always returned in ascending sequence order.
type EntryFilter struct {
	PatientID   string
	ActorID     string
	PatientName string
	From        time.Time
	To          time.Time

	// None marks a fail-closed filter that matches nothing. Produced by the
	// access control filter when a caller requests data outside their scope.
	None bool
}

// Narrow merges a role predicate with a caller-supplied filter by logical AND.
// Conflicting exact-match fields collapse to the empty filter.
func (f EntryFilter) Narrow(with EntryFilter) EntryFilter {
	if f.None || with.None {
		return EntryFilter{None: true}
	}
	out := f
	if with.PatientID != "" {
		if out.PatientID != "" && out.PatientID != with.PatientID {
			return EntryFilter{None: true}
		}
		out.PatientID = with.PatientID
	}
	if with.ActorID != "" {
		if out.ActorID != "" && out.ActorID != with.ActorID {
			return EntryFilter{None: true}
		}
		out.ActorID = with.ActorID
	}
	if with.PatientName != "" {
		out.PatientName = with.PatientName
	}
	if !with.From.IsZero() && with.From.After(out.From) {
		out.From = with.From
	}
	if !with.To.IsZero() && (out.To.IsZero() || with.To.Before(out.To)) {
		out.To = with.To
	}
	return out
}
