package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	internaldb "ehrledger/internal/db"
	"ehrledger/internal/db/repository"
	"ehrledger/internal/domain"
	"ehrledger/internal/ledger"
)

type testServices struct {
	store     *ledger.Store
	lifecycle *LifecycleService
	access    *AccessService
	analytics *AnalyticsService
	chat      *ChatService
}

func setupServices(t *testing.T) *testServices {
	t.Helper()

	writeDB, readDB := internaldb.OpenTestSQLite(t)
	repo := repository.NewLedgerRepo(writeDB, readDB)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := ledger.Open(context.Background(), repo, logger)
	require.NoError(t, err)

	access := NewAccessService()
	analytics := NewAnalyticsService(store, access)
	return &testServices{
		store:     store,
		lifecycle: NewLifecycleService(store),
		access:    access,
		analytics: analytics,
		chat:      NewChatService(analytics, logger),
	}
}

func intPtr(i int) *int { return &i }

var (
	doctorChen  = domain.Caller{ID: "dr_chen", Role: domain.RoleDoctor}
	doctorPatel = domain.Caller{ID: "dr_patel", Role: domain.RoleDoctor}
	auditor     = domain.Caller{ID: "aud_1", Role: domain.RoleAuditor}
)

// seedPatient appends a create entry for the patient through the lifecycle.
func seedPatient(t *testing.T, s *testServices, actorID, patientID, name string, age int, p domain.Payload) domain.Entry {
	t.Helper()
	p.PatientName = name
	p.Age = intPtr(age)
	e, err := s.lifecycle.Submit(context.Background(), actorID, patientID, domain.ActionCreate, p)
	require.NoError(t, err)
	return e
}
