// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

// Package usage persists token accounting for remote completions in SQLite.
package usage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
)

// Record is one completed remote call.
type Record struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Provider       string    `json:"provider"`
	RequestedModel string    `json:"requested_model"`
	Model          string    `json:"model"`
	InputTokens    int       `json:"prompt_tokens"`
	OutputTokens   int       `json:"completion_tokens"`
	TotalTokens    int       `json:"total_tokens"`
	CreatedAt      time.Time `json:"created_at"`
}

// Totals aggregates every record in the ledger.
type Totals struct {
	Calls        int64 `json:"calls"`
	InputTokens  int64 `json:"prompt_tokens"`
	OutputTokens int64 `json:"completion_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Ledger is an append-only usage log backed by SQLite.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at dbPath.
func Open(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeUsageStoreFailure, "opening usage db",
			bridgeerr.Field("path", dbPath))
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeUsageStoreFailure, "pinging usage db",
			bridgeerr.Field("path", dbPath))
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeUsageStoreFailure, "migrating usage tables")
	}

	return &Ledger{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS usage_records (
	rowid           INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT UNIQUE NOT NULL,
	session_id      TEXT NOT NULL,
	provider        TEXT NOT NULL,
	requested_model TEXT NOT NULL DEFAULT '',
	model           TEXT NOT NULL DEFAULT '',
	input_tokens    INTEGER NOT NULL DEFAULT 0,
	output_tokens   INTEGER NOT NULL DEFAULT 0,
	total_tokens    INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_records_created ON usage_records(created_at);
CREATE INDEX IF NOT EXISTS idx_usage_records_session ON usage_records(session_id);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends rec. ID, CreatedAt and TotalTokens are filled in when unset.
func (l *Ledger) Record(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.TotalTokens == 0 {
		rec.TotalTokens = rec.InputTokens + rec.OutputTokens
	}

	const q = `INSERT INTO usage_records (id, session_id, provider, requested_model, model, input_tokens, output_tokens, total_tokens, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := l.db.ExecContext(ctx, q,
		rec.ID,
		rec.SessionID,
		rec.Provider,
		rec.RequestedModel,
		rec.Model,
		rec.InputTokens,
		rec.OutputTokens,
		rec.TotalTokens,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return bridgeerr.Wrap(err, bridgeerr.CodeUsageStoreFailure, "appending usage record",
			bridgeerr.FieldSessionID(rec.SessionID))
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `SELECT id, session_id, provider, requested_model, model, input_tokens, output_tokens, total_tokens, created_at
FROM usage_records
ORDER BY rowid DESC
LIMIT ?`

	rows, err := l.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeUsageStoreFailure, "listing usage records")
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Provider,
			&rec.RequestedModel,
			&rec.Model,
			&rec.InputTokens,
			&rec.OutputTokens,
			&rec.TotalTokens,
			&createdAt,
		); err != nil {
			return nil, bridgeerr.Wrap(err, bridgeerr.CodeUsageStoreFailure, "scanning usage record")
		}
		rec.CreatedAt = parseTime(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, bridgeerr.Wrap(err, bridgeerr.CodeUsageStoreFailure, "iterating usage records")
	}
	return records, nil
}

// Totals sums every record.
func (l *Ledger) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*),
	COALESCE(SUM(input_tokens), 0),
	COALESCE(SUM(output_tokens), 0),
	COALESCE(SUM(total_tokens), 0)
FROM usage_records`).Scan(&t.Calls, &t.InputTokens, &t.OutputTokens, &t.TotalTokens)
	if err != nil {
		return Totals{}, bridgeerr.Wrap(err, bridgeerr.CodeUsageStoreFailure, "summing usage records")
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
