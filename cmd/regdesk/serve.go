// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/regdesk/regdesk/internal/api"
	"github.com/regdesk/regdesk/internal/auth"
	authpg "github.com/regdesk/regdesk/internal/auth/postgres"
	"github.com/regdesk/regdesk/internal/config"
	"github.com/regdesk/regdesk/internal/logging"
	"github.com/regdesk/regdesk/internal/observability"
	"github.com/regdesk/regdesk/internal/store"
	"github.com/regdesk/regdesk/internal/student"
	studentpg "github.com/regdesk/regdesk/internal/student/postgres"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal HTTP server",
		Long: `Start the portal HTTP server: student self-service and admin
console routes, plus a separate observability listener for metrics and
health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	cmd.Flags().String("listen", "", "API listen address")
	cmd.Flags().String("metrics.listen", "", "metrics/health listen address (empty = config default)")
	cmd.Flags().String("log.format", "", "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("regdesk", version, cfg.Log.Format)
	logger := slog.Default()

	logger.Info("starting regdesk", "listen", cfg.Listen)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger.Info("connected to database")

	// Wire repositories and services.
	sessionRepo := authpg.NewSessionRepository(pool)
	studentRepo := studentpg.NewStudentRepository(pool)

	sessions, err := auth.NewSessionStore(sessionRepo, logger)
	if err != nil {
		return err
	}

	hasher := auth.NewHasher()
	authSvc, err := auth.NewService(studentRepo, sessions, hasher, auth.AdminConfig{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	}, logger)
	if err != nil {
		return err
	}

	studentSvc, err := student.NewService(studentRepo, hasher, authSvc, sessions, logger)
	if err != nil {
		return err
	}

	// Observability server: readiness is a live database ping.
	obsServer := observability.NewServer(cfg.Metrics.Listen, func() bool {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
		defer pingCancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, obsErrCh, "observability")

	apiServer := api.NewServer(cfg.Listen, authSvc, studentSvc, obsServer.Metrics(), logger)
	apiErrCh := apiServer.Start()
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	// Periodic session sweep keeps the sessions table small; lazy
	// expiry-on-touch remains authoritative.
	go sweepSessions(ctx, sessions, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// sweepInterval is how often expired sessions are purged in bulk.
const sweepInterval = time.Hour

func sweepSessions(ctx context.Context, sessions *auth.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := sessions.Sweep(ctx)
			if err != nil {
				logger.Warn("session sweep failed", "error", err)
				continue
			}
			if count > 0 {
				logger.Info("swept expired sessions", "count", count)
			}
		}
	}
}

// monitorServerErrors cancels the context when a server reports a terminal
// error, so one failed listener shuts the whole process down cleanly.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
