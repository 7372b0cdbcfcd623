//go:build postgres

package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAuditLogger is a PostgreSQL-backed implementation of AuditLogger.
type PostgresAuditLogger struct {
	pool    *pgxpool.Pool
	ownPool bool // true if we created the pool (and should close it)
}

// NewPostgresAuditLogger creates a logger with its own connection pool and
// creates the audit table if missing.
func NewPostgresAuditLogger(ctx context.Context, connStr string) (*PostgresAuditLogger, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	s := &PostgresAuditLogger{pool: pool, ownPool: true}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresAuditLoggerFromPool uses an existing pool, which the caller
// keeps ownership of.
func NewPostgresAuditLoggerFromPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresAuditLogger, error) {
	s := &PostgresAuditLogger{pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresAuditLogger) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaFor("TIMESTAMPTZ")); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, indexStatement)
	return err
}

// Close closes the database connection if we own it.
func (s *PostgresAuditLogger) Close() error {
	if s.ownPool {
		s.pool.Close()
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresAuditLogger) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Log records an audit event to the database.
func (s *PostgresAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if event == nil {
		return nil
	}
	prepare(event)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, timestamp, actor, action, provider, outcome,
			error_kind, url, request_id, ip_address, status_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Timestamp, event.Actor, event.Action,
		nullStr(event.Provider), event.Outcome,
		nullStr(event.ErrorKind),
		nullStr(event.URL),
		nullStr(event.RequestID),
		nullStr(event.IPAddress),
		event.StatusCode,
	)
	return err
}

// List retrieves audit events with optional filtering.
func (s *PostgresAuditLogger) List(ctx context.Context, opts ListOptions) ([]*AuditEvent, int, error) {
	where, args := whereClause(opts,
		func(n int) string { return "$" + strconv.Itoa(n) },
		func(t time.Time) any { return t },
	)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	opts = opts.normalize()
	n := len(args)
	query := "SELECT id, timestamp, actor, action, provider, outcome, error_kind, url, request_id, ip_address, status_code FROM audit_events WHERE " + where +
		" ORDER BY timestamp DESC LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events, err := scanAuditEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func scanAuditEvents(rows pgx.Rows) ([]*AuditEvent, error) {
	var events []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var provider, errorKind, url, requestID, ipAddress *string

		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Actor, &e.Action, &provider, &e.Outcome,
			&errorKind, &url, &requestID, &ipAddress, &e.StatusCode,
		); err != nil {
			return nil, err
		}

		e.Timestamp = e.Timestamp.UTC()
		e.Provider = deref(provider)
		e.ErrorKind = deref(errorKind)
		e.URL = deref(url)
		e.RequestID = deref(requestID)
		e.IPAddress = deref(ipAddress)
		events = append(events, &e)
	}

	return events, rows.Err()
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
