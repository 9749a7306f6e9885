package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ehrledger/internal/domain"
)

func TestChat_CountPatients(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	seedPatient(t, s, "dr_chen", "P-1", "A", 30, domain.Payload{})
	seedPatient(t, s, "dr_chen", "P-2", "B", 31, domain.Payload{})

	answer := s.chat.Route(ctx, auditor, "How many patients are there?", "")
	assert.Equal(t, "There are 2 patients with an active record.", answer.Answer)
}

func TestChat_CountRecords(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	seedPatient(t, s, "dr_chen", "P-1", "A", 30, domain.Payload{})
	_, err := s.lifecycle.Submit(ctx, "dr_chen", "P-1", domain.ActionModify,
		domain.Payload{Notes: "x"})
	require.NoError(t, err)

	answer := s.chat.Route(ctx, auditor, "How many logs do we have?", "")
	assert.Equal(t, "There are 2 audit records logged.", answer.Answer)
}

func TestChat_CountRespectsScope(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	seedPatient(t, s, "dr_chen", "P-1", "A", 30, domain.Payload{})
	seedPatient(t, s, "dr_patel", "P-2", "B", 31, domain.Payload{})

	answer := s.chat.Route(ctx, doctorChen, "how many records are there?", "")
	assert.Equal(t, "There are 1 audit records logged.", answer.Answer)
}

func TestChat_LastVisit(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	e := seedPatient(t, s, "dr_chen", "P-1", "A", 30, domain.Payload{})

	answer := s.chat.Route(ctx, auditor, "When was the last visit?", "P-1")
	assert.Equal(t, fmt.Sprintf("Patient P-1 was last seen on %s.",
		e.Timestamp.Format("2006-01-02 15:04")), answer.Answer)
}

func TestChat_TopDiagnosis(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	seedPatient(t, s, "dr_chen", "P-1", "A", 30, domain.Payload{Diagnosis: "Asthma"})
	seedPatient(t, s, "dr_chen", "P-2", "B", 31, domain.Payload{Diagnosis: "Asthma"})

	answer := s.chat.Route(ctx, auditor, "What's the most common diagnosis?", "")
	assert.Equal(t, "The most common diagnosis is Asthma (2 patients).", answer.Answer)
	require.Len(t, answer.Stats, 1)
	assert.Equal(t, NameCount{Name: "Asthma", Count: 2}, answer.Stats[0])
}

func TestChat_Summary(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	seedPatient(t, s, "dr_chen", "P-1", "John Smith", 54,
		domain.Payload{Diagnosis: "Hypertension", Medication: "Lisinopril"})

	answer := s.chat.Route(ctx, auditor, "Give me a summary", "P-1")
	assert.Contains(t, answer.Answer, "John Smith")
	assert.Contains(t, answer.Answer, "Hypertension")
	assert.Contains(t, answer.Answer, "Lisinopril")
}

func TestChat_SummaryWithoutHint(t *testing.T) {
	s := setupServices(t)

	answer := s.chat.Route(context.Background(), auditor, "summary please", "")
	assert.Equal(t, "Please select a patient to summarize.", answer.Answer)
}

func TestChat_RecentVisits(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	seedPatient(t, s, "dr_chen", "P-1", "A", 30, domain.Payload{VisitDate: "2026-03-10"})
	seedPatient(t, s, "dr_chen", "P-2", "B", 31, domain.Payload{VisitDate: "2026-03-14"})

	answer := s.chat.Route(ctx, auditor, "Show me the recent visits", "")
	assert.Equal(t, "Here are the 2 most recent visits.", answer.Answer)
	require.Len(t, answer.Rows, 2)
	assert.Equal(t, "P-2", answer.Rows[0].PatientID)
}

func TestChat_UnmatchedQuestionGetsNonAnswer(t *testing.T) {
	s := setupServices(t)

	answer := s.chat.Route(context.Background(), auditor, "What's the weather like?", "")
	assert.Equal(t, noAnswer, answer.Answer)
}

func TestChat_ErrorsDegradeToNonAnswer(t *testing.T) {
	s := setupServices(t)

	// Last-visit over an empty visible set fails internally with NotFound.
	answer := s.chat.Route(context.Background(), auditor, "last visit?", "")
	assert.Equal(t, noAnswer, answer.Answer)
}
