// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/auth/postgres"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/store"
	"github.com/inkwell/inkwell/internal/web"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API and, when metrics.addr is set, the observability
server with Prometheus metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	cmd.Flags().String("addr", "", "API listen address (default :8080)")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().String("log-format", "", "log format (json or text)")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")

	return cmd
}

// runServeWithDeps starts the API with injectable dependencies and blocks
// until ctx is cancelled, a signal arrives or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = func(ctx context.Context, url string, logger *slog.Logger) (Database, error) {
			opts := store.DefaultConnectOptions()
			opts.Logger = logger
			return store.Connect(ctx, url, opts)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	// The secret is copied into the token service here and never re-read.
	tokens, err := auth.NewTokenService([]byte(cfg.Auth.Secret))
	if err != nil {
		return err
	}
	hasher, err := auth.NewHasher(cfg.Auth.Hasher)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting inkwell",
		"addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"hasher", cfg.Auth.Hasher,
	)

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, databaseReady(db), logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metrics = obsServer.Metrics()
	}

	handler, err := buildAPI(cfg, db, hasher, tokens, metrics, logger)
	if err != nil {
		stopObservability(obsServer)
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer)
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	apiErrCh := make(chan error, 1)
	go func() {
		defer close(apiErrCh)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrCh <- serveErr
		}
	}()

	cmd.Println("Inkwell started")
	logger.InfoContext(ctx, "api server listening", "addr", listener.Addr().String())

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-apiErrCh:
		serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

// buildAPI wires the repository, credential service, gate and router.
// metrics may be nil when the observability server is disabled.
func buildAPI(cfg *config.Config, db Database, hasher auth.PasswordHasher, tokens *auth.TokenService,
	metrics *observability.Metrics, logger *slog.Logger,
) (http.Handler, error) {
	svcOpts := []auth.ServiceOption{auth.WithLogger(logger)}
	gateOpts := []web.GateOption{web.WithGateLogger(logger)}
	routerOpts := web.RouterOptions{CORSOrigins: cfg.HTTP.CORSOrigins, Logger: logger}

	if cfg.Auth.HashConcurrency > 0 {
		svcOpts = append(svcOpts, auth.WithHashConcurrency(cfg.Auth.HashConcurrency))
	}
	if metrics != nil {
		svcOpts = append(svcOpts, auth.WithRecorder(metrics))
		gateOpts = append(gateOpts, web.WithDecisionRecorder(metrics))
		routerOpts.Observer = metrics
	}

	svc, err := auth.NewService(postgres.NewUserRepository(db), hasher, tokens, svcOpts...)
	if err != nil {
		return nil, err
	}
	gate, err := web.NewGate(tokens, cfg.Auth.PublicPaths, gateOpts...)
	if err != nil {
		return nil, err
	}

	routerOpts.Service = svc
	routerOpts.Gate = gate
	return web.NewRouter(routerOpts)
}

// databaseReady reports ready while the database answers a ping.
func databaseReady(db Database) observability.ReadinessChecker {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return oops.Code("DB_PING_FAILED").Wrap(err)
		}
		return nil
	}
}

func stopObservability(s ObservabilityServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
// It exits when an error is received, the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
