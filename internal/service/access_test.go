package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"ehrledger/internal/domain"
)

func TestAccess_Scope(t *testing.T) {
	access := NewAccessService()

	tests := []struct {
		name      string
		caller    domain.Caller
		requested domain.EntryFilter
		want      domain.EntryFilter
	}{
		{
			name:   "doctor sees own authored entries",
			caller: doctorChen,
			want:   domain.EntryFilter{ActorID: "dr_chen"},
		},
		{
			name:      "doctor cannot widen to another actor",
			caller:    doctorChen,
			requested: domain.EntryFilter{ActorID: "dr_patel"},
			want:      domain.EntryFilter{None: true},
		},
		{
			name:      "doctor narrows by patient",
			caller:    doctorChen,
			requested: domain.EntryFilter{PatientID: "P-1001"},
			want:      domain.EntryFilter{ActorID: "dr_chen", PatientID: "P-1001"},
		},
		{
			name:   "auditor unrestricted",
			caller: auditor,
			want:   domain.EntryFilter{},
		},
		{
			name:      "auditor keeps requested filter",
			caller:    auditor,
			requested: domain.EntryFilter{ActorID: "dr_chen"},
			want:      domain.EntryFilter{ActorID: "dr_chen"},
		},
		{
			name:   "patient sees own record only",
			caller: domain.Caller{ID: "P-1001", Role: domain.RolePatient},
			want:   domain.EntryFilter{PatientID: "P-1001"},
		},
		{
			name:      "patient asking for another patient fails closed",
			caller:    domain.Caller{ID: "P-1001", Role: domain.RolePatient},
			requested: domain.EntryFilter{PatientID: "P-1002"},
			want:      domain.EntryFilter{None: true},
		},
		{
			name:   "unknown role fails closed",
			caller: domain.Caller{ID: "x", Role: domain.Role("superuser")},
			want:   domain.EntryFilter{None: true},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, access.Scope(tc.caller, tc.requested))
		})
	}
}

func TestAccess_ScopeEnforcedOnReads(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	seedPatient(t, s, "dr_chen", "P-1001", "John Smith", 54, domain.Payload{})
	seedPatient(t, s, "dr_patel", "P-1002", "Maria Lopez", 61, domain.Payload{})

	chenEntries, err := s.analytics.List(ctx, doctorChen, domain.EntryFilter{})
	assert.NoError(t, err)
	assert.Len(t, chenEntries, 1)
	assert.Equal(t, "dr_chen", chenEntries[0].ActorID)

	allEntries, err := s.analytics.List(ctx, auditor, domain.EntryFilter{})
	assert.NoError(t, err)
	assert.Len(t, allEntries, 2)

	patient := domain.Caller{ID: "P-1002", Role: domain.RolePatient}
	own, err := s.analytics.List(ctx, patient, domain.EntryFilter{})
	assert.NoError(t, err)
	assert.Len(t, own, 1)
	assert.Equal(t, "P-1002", own[0].PatientID)

	foreign, err := s.analytics.List(ctx, patient, domain.EntryFilter{PatientID: "P-1001"})
	assert.NoError(t, err)
	assert.Empty(t, foreign)
}
