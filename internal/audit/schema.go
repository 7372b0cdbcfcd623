//go:build sqlite || postgres

package audit

import (
	"fmt"
	"time"
)

const schemaTemplate = `CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	timestamp   %s NOT NULL,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	provider    TEXT,
	outcome     TEXT NOT NULL,
	error_kind  TEXT,
	url         TEXT,
	request_id  TEXT,
	ip_address  TEXT,
	status_code INTEGER NOT NULL
)`

const indexStatement = `CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events (timestamp DESC)`

// schemaFor returns the table DDL with the dialect's timestamp type.
func schemaFor(timestampType string) string {
	return fmt.Sprintf(schemaTemplate, timestampType)
}

// whereClause builds the shared WHERE clause. placeholder renders the n-th
// (1-based) bind parameter for the dialect.
func whereClause(opts ListOptions, placeholder func(n int) string, ts func(time.Time) any) (string, []any) {
	where := "1=1"
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where += " AND " + clause + " " + placeholder(len(args))
	}
	if opts.Action != "" {
		add("action =", opts.Action)
	}
	if opts.Provider != "" {
		add("provider =", opts.Provider)
	}
	if opts.Outcome != "" {
		add("outcome =", opts.Outcome)
	}
	if opts.Since != nil {
		add("timestamp >=", ts(*opts.Since))
	}
	if opts.Until != nil {
		add("timestamp <=", ts(*opts.Until))
	}
	return where, args
}
