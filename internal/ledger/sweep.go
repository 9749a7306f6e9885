package ledger

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper runs periodic chain-integrity verification off the write hot path.
// A broken chain is logged at error level and left untouched; detected
// tampering is never silently repaired.
type Sweeper struct {
	cron   *cron.Cron
	store  *Store
	logger *slog.Logger
}

// NewSweeper creates a Sweeper for the given store.
func NewSweeper(store *Store, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cron:   cron.New(),
		store:  store,
		logger: logger,
	}
}

// Start schedules verification on the given cron expression and starts the
// scheduler. The expression "off" disables the sweep.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "off" {
		s.logger.Info("integrity sweep disabled")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		result, err := s.store.VerifyChain(context.Background())
		if err != nil {
			s.logger.Warn("integrity sweep failed", "error", err)
			return
		}
		if !result.Valid {
			s.logger.Error("audit chain integrity broken",
				"broken_at", result.BrokenAt, "reason", result.Reason)
			return
		}
		s.logger.Info("integrity sweep ok", "entries", result.Entries)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("integrity sweep scheduled", "schedule", schedule)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}
