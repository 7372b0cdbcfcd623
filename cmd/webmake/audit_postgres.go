//go:build postgres && !sqlite

package main

import (
	"context"

	"webmake/internal/audit"
	"webmake/internal/config"
	"webmake/internal/observability"
)

// selectAuditLogger returns a PostgreSQL-backed audit log when built with the
// 'postgres' tag. Configure with DATABASE_URL.
func selectAuditLogger(ctx context.Context, logger observability.Logger, cfg config.AuditConfig) (audit.AuditLogger, func() error) {
	al, err := audit.NewPostgresAuditLogger(ctx, cfg.Postgres())
	if err != nil {
		logger.Error("postgres audit logger init failed; falling back to memory", "error", err)
		return audit.NewMemoryAuditLogger(), noopClose
	}
	logger.Info("using postgres audit logger")
	return al, al.Close
}
