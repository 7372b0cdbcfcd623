//go:build !sqlite && !postgres

package main

import (
	"context"

	"webmake/internal/audit"
	"webmake/internal/config"
	"webmake/internal/observability"
)

// selectAuditLogger returns the in-memory audit log when built without a
// storage tag. A configured DSN only produces a rebuild hint.
func selectAuditLogger(_ context.Context, logger observability.Logger, cfg config.AuditConfig) (audit.AuditLogger, func() error) {
	if cfg.SQLiteDSN != "" || cfg.DatabaseURL != "" {
		logger.Warn("audit DSN set, but binary not built with -tags sqlite or postgres; using in-memory audit log")
	}
	logger.Info("using memory audit logger")
	return audit.NewMemoryAuditLogger(), noopClose
}
