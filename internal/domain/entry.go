// Package domain defines core types, interfaces, and errors for the audit ledger.
package domain

import "time"

// Action is the lifecycle action recorded by an audit entry.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// ParseAction normalizes a client-supplied action string.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionCreate, ActionModify, ActionDelete:
		return Action(s), true
	default:
		return "", false
	}
}

// Payload holds the clinical fields carried by an audit entry.
// All fields are scalars (no map[string]any) to guarantee deterministic
// JSON field order for reproducible hashing.
type Payload struct {
	PatientName string `json:"patient_name,omitempty"`
	Age         *int   `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Diagnosis   string `json:"diagnosis,omitempty"`
	Medication  string `json:"medication,omitempty"`
	Notes       string `json:"notes,omitempty"`
	VisitDate   string `json:"visit_date,omitempty"`
	Vitals      string `json:"vitals,omitempty"`
}

// IsZero reports whether no clinical field is set.
func (p Payload) IsZero() bool {
	return p.PatientName == "" && p.Age == nil && p.Gender == "" &&
		p.Diagnosis == "" && p.Medication == "" && p.Notes == "" &&
		p.VisitDate == "" && p.Vitals == ""
}

// Merge returns a copy of p with every non-empty field of over applied on top.
// Used to derive the post-modify state from a partial update.
func (p Payload) Merge(over Payload) Payload {
	out := p
	if over.PatientName != "" {
		out.PatientName = over.PatientName
	}
	if over.Age != nil {
		out.Age = over.Age
	}
	if over.Gender != "" {
		out.Gender = over.Gender
	}
	if over.Diagnosis != "" {
		out.Diagnosis = over.Diagnosis
	}
	if over.Medication != "" {
		out.Medication = over.Medication
	}
	if over.Notes != "" {
		out.Notes = over.Notes
	}
	if over.VisitDate != "" {
		out.VisitDate = over.VisitDate
	}
	if over.Vitals != "" {
		out.Vitals = over.Vitals
	}
	return out
}

// Entry is one immutable record in the hash-chained audit ledger.
// Entries are created exclusively by the ledger store's append and are
// never mutated afterwards.
type Entry struct {
	SequenceID int64
	Timestamp  time.Time
	ActorID    string
	PatientID  string
	Action     Action
	Payload    Payload
	PrevHash   string
	EntryHash  string
}
