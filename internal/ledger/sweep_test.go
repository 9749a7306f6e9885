package ledger

import (
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_StartOffDisables(t *testing.T) {
	store, _ := setupStore(t)
	sweeper := NewSweeper(store, slog.Default())

	require.NoError(t, sweeper.Start("off"))
	sweeper.Stop()
}

func TestSweeper_RejectsBadSchedule(t *testing.T) {
	store, _ := setupStore(t)
	sweeper := NewSweeper(store, slog.Default())

	err := sweeper.Start("not a cron expression")
	assert.Error(t, err)
}

func TestSweeper_StartsWithValidSchedule(t *testing.T) {
	store, _ := setupStore(t)
	sweeper := NewSweeper(store, slog.Default())

	require.NoError(t, sweeper.Start("@hourly"))
	sweeper.Stop()
}
