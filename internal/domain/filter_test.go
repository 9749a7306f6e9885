package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntryFilter_Narrow(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		base EntryFilter
		with EntryFilter
		want EntryFilter
	}{
		{
			name: "empty with empty",
			want: EntryFilter{},
		},
		{
			name: "adds missing fields",
			base: EntryFilter{ActorID: "dr_chen"},
			with: EntryFilter{PatientID: "P-1", PatientName: "John"},
			want: EntryFilter{ActorID: "dr_chen", PatientID: "P-1", PatientName: "John"},
		},
		{
			name: "agreeing exact match kept",
			base: EntryFilter{PatientID: "P-1"},
			with: EntryFilter{PatientID: "P-1"},
			want: EntryFilter{PatientID: "P-1"},
		},
		{
			name: "conflicting patient id fails closed",
			base: EntryFilter{PatientID: "P-1"},
			with: EntryFilter{PatientID: "P-2"},
			want: EntryFilter{None: true},
		},
		{
			name: "conflicting actor id fails closed",
			base: EntryFilter{ActorID: "dr_chen"},
			with: EntryFilter{ActorID: "dr_patel"},
			want: EntryFilter{None: true},
		},
		{
			name: "none is sticky",
			base: EntryFilter{None: true},
			with: EntryFilter{PatientID: "P-1"},
			want: EntryFilter{None: true},
		},
		{
			name: "time range intersects",
			base: EntryFilter{From: t1},
			with: EntryFilter{From: t2, To: t2},
			want: EntryFilter{From: t2, To: t2},
		},
		{
			name: "later from wins earlier to wins",
			base: EntryFilter{From: t2, To: t2},
			with: EntryFilter{From: t1, To: t1},
			want: EntryFilter{From: t2, To: t1},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.base.Narrow(tc.with))
		})
	}
}
