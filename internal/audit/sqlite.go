//go:build sqlite

package audit

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // CGO-less SQLite driver
)

// sqliteTimeFormat is fixed width so stored timestamps sort lexically.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteAuditLogger is a SQLite-backed implementation of AuditLogger.
type SQLiteAuditLogger struct {
	db *sql.DB
}

// NewSQLiteAuditLogger opens dsn and creates the audit table if missing.
func NewSQLiteAuditLogger(dsn string) (*SQLiteAuditLogger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLiteAuditLogger{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteAuditLoggerFromDB uses an existing DB connection. The caller
// owns db; the table is created if missing.
func NewSQLiteAuditLoggerFromDB(db *sql.DB) (*SQLiteAuditLogger, error) {
	s := &SQLiteAuditLogger{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteAuditLogger) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaFor("TEXT")); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, indexStatement)
	return err
}

// Close closes the database connection.
func (s *SQLiteAuditLogger) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteAuditLogger) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Log records an audit event to the database.
func (s *SQLiteAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if event == nil {
		return nil
	}
	prepare(event)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, timestamp, actor, action, provider, outcome, error_kind, url, request_id, ip_address, status_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.Timestamp.UTC().Format(sqliteTimeFormat),
		event.Actor,
		event.Action,
		nullString(event.Provider),
		event.Outcome,
		nullString(event.ErrorKind),
		nullString(event.URL),
		nullString(event.RequestID),
		nullString(event.IPAddress),
		event.StatusCode,
	)
	return err
}

// List retrieves audit events with optional filtering.
func (s *SQLiteAuditLogger) List(ctx context.Context, opts ListOptions) ([]*AuditEvent, int, error) {
	where, args := whereClause(opts,
		func(int) string { return "?" },
		func(t time.Time) any { return t.UTC().Format(sqliteTimeFormat) },
	)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	opts = opts.normalize()
	query := "SELECT id, timestamp, actor, action, provider, outcome, error_kind, url, request_id, ip_address, status_code FROM audit_events WHERE " +
		where + " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var timestamp string
		var provider, errorKind, url, requestID, ipAddress sql.NullString

		if err := rows.Scan(&e.ID, &timestamp, &e.Actor, &e.Action, &provider, &e.Outcome, &errorKind, &url, &requestID, &ipAddress, &e.StatusCode); err != nil {
			return nil, 0, err
		}

		e.Timestamp, _ = time.Parse(sqliteTimeFormat, timestamp)
		e.Provider = provider.String
		e.ErrorKind = errorKind.String
		e.URL = url.String
		e.RequestID = requestID.String
		e.IPAddress = ipAddress.String
		events = append(events, &e)
	}

	return events, total, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
