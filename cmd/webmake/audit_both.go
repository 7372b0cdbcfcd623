//go:build sqlite && postgres

package main

import (
	"context"

	"webmake/internal/audit"
	"webmake/internal/config"
	"webmake/internal/observability"
)

// selectAuditLogger picks PostgreSQL if DATABASE_URL is set, otherwise SQLite.
func selectAuditLogger(ctx context.Context, logger observability.Logger, cfg config.AuditConfig) (audit.AuditLogger, func() error) {
	if cfg.DatabaseURL != "" {
		al, err := audit.NewPostgresAuditLogger(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres audit logger init failed; falling back to sqlite", "error", err)
		} else {
			logger.Info("using postgres audit logger")
			return al, al.Close
		}
	}
	dsn := cfg.SQLite()
	al, err := audit.NewSQLiteAuditLogger(dsn)
	if err != nil {
		logger.Error("sqlite audit logger init failed; falling back to memory", "error", err)
		return audit.NewMemoryAuditLogger(), noopClose
	}
	logger.Info("using sqlite audit logger", "dsn", dsn)
	return al, al.Close
}
