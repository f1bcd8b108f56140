package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"donamaha/database"
	"donamaha/ledger"
	"donamaha/middleware"
	"donamaha/routes"
	"donamaha/utils"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnv(append(dbEnv(), "JWT_SECRET")...); err != nil {
				return err
			}
			db, err := database.Connect()
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			// Auto-migrate only in development to avoid accidental production schema changes
			if autoMigrate || strings.ToLower(os.Getenv("ENV")) == "development" {
				if err := database.Migrate(db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				slog.Info("[serve] auto-migration completed")
			}

			ctx := cmd.Context()
			utils.InitRedis(ctx)
			if err := utils.InitImageStore(ctx); err != nil {
				return fmt.Errorf("image store: %w", err)
			}

			router := routes.InitRouter()

			// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery -> Suspicious Activity.
			// Metrics run inside the router so route templates are known.
			handler := middleware.RequestLogMiddleware(
				middleware.SecurityHeadersMiddleware(
					middleware.RequestIDMiddleware(
						middleware.MaxBodyMiddleware(
							middleware.TimeoutMiddleware(
								middleware.RecoveryMiddleware(
									middleware.SuspiciousActivityMiddleware(router),
								),
							),
						),
					),
				),
			)

			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			server := &http.Server{
				Addr:         ":" + port,
				Handler:      handler,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("[serve] server starting", "port", port)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-quit:
			}
			slog.Info("[serve] shutting down")

			// Give outstanding requests 30 seconds to complete
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("forced shutdown: %w", err)
			}
			slog.Info("[serve] server exited")
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run AutoMigrate before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	var backup string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnv(dbEnv()...); err != nil {
				return err
			}
			if backup != "" {
				if err := database.BackupDatabase(cmd.Context(), backup); err != nil {
					return err
				}
				slog.Info("[migrate] backup written", "path", backup)
			}
			db, err := database.Connect()
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			slog.Info("[migrate] schema up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&backup, "backup", "", "write a mysqldump to this path before migrating")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account from SEED_ADMIN_* if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnv(append(dbEnv(), "SEED_ADMIN_EMAIL", "SEED_ADMIN_PASSWORD")...); err != nil {
				return err
			}
			db, err := database.Connect()
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			created, err := database.SeedAdmin(cmd.Context(), db,
				os.Getenv("SEED_ADMIN_NAME"), os.Getenv("SEED_ADMIN_EMAIL"), os.Getenv("SEED_ADMIN_PASSWORD"))
			if err != nil {
				return err
			}
			slog.Info("[seed] admin account", "email", os.Getenv("SEED_ADMIN_EMAIL"), "written", created)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare every campaign total with its received donations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnv(dbEnv()...); err != nil {
				return err
			}
			db, err := database.Connect()
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			recs, err := ledger.RecalculateAll(cmd.Context(), db, fix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			drifting := 0
			for _, rec := range recs {
				if rec.Drift == 0 {
					continue
				}
				drifting++
				fmt.Fprintf(out, "campaign %d: stored=%d expected=%d drift=%d fixed=%t\n",
					rec.CampaignID, rec.Stored, rec.Expected, rec.Drift, rec.Fixed)
			}
			fmt.Fprintf(out, "%d of %d campaign(s) drifting\n", drifting, len(recs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "overwrite drifting totals")
	return cmd
}
