// Package app provides application-level wiring for the audit ledger service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"ehrledger/internal/config"
	"ehrledger/internal/db/repository"
	"ehrledger/internal/ledger"
	"ehrledger/internal/service"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the root logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups all service pointers the API handler needs.
type Services struct {
	Lifecycle *service.LifecycleService
	Analytics *service.AnalyticsService
	Chat      *service.ChatService
	Auth      *service.AuthService
}

// App holds the fully-wired application.
type App struct {
	Services Services
	Store    *ledger.Store
	Sweeper  *ledger.Sweeper
}

// New wires repositories, the ledger store, and services from the provided
// deps. The store recovers the chain tail from the database on open.
func New(ctx context.Context, deps Deps) (*App, error) {
	ledgerRepo := repository.NewLedgerRepo(deps.WriteDB, deps.ReadDB)
	userRepo := repository.NewUserRepo(deps.WriteDB)

	store, err := ledger.Open(ctx, ledgerRepo, deps.Logger.With("component", "ledger"))
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}

	access := service.NewAccessService()
	analytics := service.NewAnalyticsService(store, access)

	return &App{
		Services: Services{
			Lifecycle: service.NewLifecycleService(store),
			Analytics: analytics,
			Chat:      service.NewChatService(analytics, deps.Logger.With("component", "chat")),
			Auth:      service.NewAuthService(userRepo, []byte(deps.Cfg.JWTSecret), deps.Cfg.TokenTTL),
		},
		Store:   store,
		Sweeper: ledger.NewSweeper(store, deps.Logger.With("component", "sweeper")),
	}, nil
}
