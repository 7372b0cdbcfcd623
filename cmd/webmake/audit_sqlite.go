//go:build sqlite && !postgres

package main

import (
	"context"

	"webmake/internal/audit"
	"webmake/internal/config"
	"webmake/internal/observability"
)

// selectAuditLogger returns a SQLite-backed audit log when built with the
// 'sqlite' tag. Configure with SQLITE_DSN.
func selectAuditLogger(_ context.Context, logger observability.Logger, cfg config.AuditConfig) (audit.AuditLogger, func() error) {
	dsn := cfg.SQLite()
	al, err := audit.NewSQLiteAuditLogger(dsn)
	if err != nil {
		logger.Error("sqlite audit logger init failed; falling back to memory", "error", err)
		return audit.NewMemoryAuditLogger(), noopClose
	}
	logger.Info("using sqlite audit logger", "dsn", dsn)
	return al, al.Close
}
