package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/releaseboard/internal/config"
	"github.com/JonMunkholm/releaseboard/internal/core"
	"github.com/JonMunkholm/releaseboard/internal/logging"
	"github.com/JonMunkholm/releaseboard/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"editable_columns", len(cfg.API.EditableColumns),
		"ingest_max_concurrent", cfg.API.MaxConcurrentIngests,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_database", cfg.Audit.Enabled(),
	)

	ctx := context.Background()

	opts := []core.Option{core.WithEditableFields(cfg.API.EditableColumns)}

	if cfg.Audit.Enabled() {
		pool, err := connectAudit(ctx, cfg.Audit)
		if err != nil {
			slog.Error("failed to connect audit database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		auditLog := core.NewPostgresAuditLog(pool)
		if err := auditLog.Ensure(ctx); err != nil {
			slog.Error("failed to prepare audit table", "error", err)
			os.Exit(1)
		}
		opts = append(opts, core.WithAuditLog(auditLog))
	} else {
		slog.Info("audit trail kept in memory", "entries", cfg.Audit.MemoryEntries)
		opts = append(opts, core.WithAuditLog(core.NewMemoryAuditLog(cfg.Audit.MemoryEntries)))
	}

	service := core.NewService(core.NewStore(), opts...)
	if fields := service.EditableFields(); fields != nil {
		slog.Info("editable fields restricted", "fields", strings.Join(fields, ","))
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// connectAudit opens and verifies the audit database pool.
func connectAudit(ctx context.Context, cfg config.AuditConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		slog.Info("connected to audit database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
