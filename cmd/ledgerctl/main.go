// Command ledgerctl provides offline maintenance for an EHR audit ledger
// database: chain verification and user provisioning.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"ehrledger/internal/db"
	"ehrledger/internal/db/repository"
	"ehrledger/internal/domain"
	"ehrledger/internal/ledger"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "EHR audit ledger maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "ehr_ledger.sqlite", "path to the ledger database")

	rootCmd.AddCommand(newVerifyCmd(&dbPath))
	rootCmd.AddCommand(newUserAddCmd(&dbPath))
	return rootCmd
}

func newVerifyCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Walk the full hash chain and report the first broken link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			write, read, err := db.OpenSQLitePair(*dbPath, 2)
			if err != nil {
				return err
			}
			defer write.Close()
			defer read.Close()

			store, err := ledger.Open(cmd.Context(), repository.NewLedgerRepo(write, read), slog.Default())
			if err != nil {
				return err
			}
			result, err := store.VerifyChain(cmd.Context())
			if err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("chain broken at entry %d: %s", result.BrokenAt, result.Reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chain valid: %d entries\n", result.Entries)
			return nil
		},
	}
}

func newUserAddCmd(dbPath *string) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "user-add <user-id> <password>",
		Short: "Create a user with a bcrypt-hashed password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedRole, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(args[1]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			write, read, err := db.OpenSQLitePair(*dbPath, 2)
			if err != nil {
				return err
			}
			defer write.Close()
			defer read.Close()

			if err := db.RunMigrations(write); err != nil {
				return err
			}

			users := repository.NewUserRepo(write)
			if err := users.Create(context.Background(), &domain.User{
				ID:           args[0],
				PasswordHash: string(hash),
				Role:         parsedRole,
				CreatedAt:    time.Now().UTC(),
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", args[0], parsedRole)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "doctor", "user role: doctor, auditor or patient")
	return cmd
}
