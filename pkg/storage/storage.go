// Package storage archives emitted proposal records in a local sqlite
// database so new discoveries can be spotted across runs. It persists
// results only; crawl state (frontier, visited set) is never stored.
package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fundingbot/grantscope/pkg/emit"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS proposals (
  id             INTEGER PRIMARY KEY,
  link           TEXT NOT NULL UNIQUE,
  source         TEXT NOT NULL,
  title          TEXT,
  organization   TEXT,
  year           INTEGER,
  funding_source TEXT,
  currency       TEXT,
  amount_usd     REAL,
  amount_inr     INTEGER,
  themes         TEXT,
  geography      TEXT,
  notes          TEXT,
  first_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_proposals_source ON proposals(source);
CREATE TABLE IF NOT EXISTS proposal_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  link        TEXT NOT NULL,
  source      TEXT NOT NULL,
  title       TEXT,
  change_type TEXT NOT NULL CHECK (change_type IN ('added','updated'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON proposal_changes(occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Change is one archive delta produced by RecordRun.
type Change struct {
	OccurredAt time.Time
	Link       string
	Source     string
	Title      string
	ChangeType string // added | updated
}

// RecordRun upserts one run's records inside a transaction and returns what
// changed relative to previous runs. Records that merely re-appear bump
// last_seen_at without a change row. Nothing is ever deleted: a proposal
// missing from one bounded crawl is not evidence it disappeared.
func (d *DB) RecordRun(ctx context.Context, source string, records []emit.ProposalRecord) ([]Change, error) {
	now := time.Now().UTC()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var changes []Change
	for _, r := range records {
		if r.Link == "" {
			continue
		}

		var existingTitle, existingNotes sql.NullString
		qErr := tx.QueryRowContext(ctx, "SELECT title, notes FROM proposals WHERE link = ?", r.Link).Scan(&existingTitle, &existingNotes)
		switch {
		case qErr == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx, `INSERT INTO proposals(link, source, title, organization, year, funding_source, currency, amount_usd, amount_inr, themes, geography, notes, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`,
				r.Link, source, r.Title, r.Organization, nullIfZero(r.Year), r.FundingSource, r.Currency, nullFloat(r.AmountUSD), nullInt(r.AmountINR), r.Themes, r.Geography, r.Notes)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{OccurredAt: now, Link: r.Link, Source: source, Title: r.Title, ChangeType: "added"})
		case qErr != nil:
			err = qErr
			return nil, err
		default:
			if existingTitle.String != r.Title || existingNotes.String != r.Notes {
				_, err = tx.ExecContext(ctx, `UPDATE proposals SET title = ?, organization = ?, year = ?, funding_source = ?, currency = ?, amount_usd = ?, amount_inr = ?, themes = ?, geography = ?, notes = ?, last_seen_at = CURRENT_TIMESTAMP WHERE link = ?`,
					r.Title, r.Organization, nullIfZero(r.Year), r.FundingSource, r.Currency, nullFloat(r.AmountUSD), nullInt(r.AmountINR), r.Themes, r.Geography, r.Notes, r.Link)
				if err != nil {
					return nil, err
				}
				changes = append(changes, Change{OccurredAt: now, Link: r.Link, Source: source, Title: r.Title, ChangeType: "updated"})
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE proposals SET last_seen_at = CURRENT_TIMESTAMP WHERE link = ?`, r.Link)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	for _, ch := range changes {
		if _, err = tx.ExecContext(ctx, `INSERT INTO proposal_changes(occurred_at, link, source, title, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?, ?)`, ch.Link, ch.Source, ch.Title, ch.ChangeType); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// Stats summarizes the archive.
type Stats struct {
	Proposals int
	Changes   int
	Sources   int
}

func (d *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM proposals").Scan(&s.Proposals); err != nil {
		return s, err
	}
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM proposal_changes").Scan(&s.Changes); err != nil {
		return s, err
	}
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(DISTINCT source) FROM proposals").Scan(&s.Sources); err != nil {
		return s, err
	}
	return s, nil
}

// RecentChanges returns the newest archive deltas, newest first.
func (d *DB) RecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT occurred_at, link, source, title, change_type FROM proposal_changes ORDER BY occurred_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var ch Change
		var title sql.NullString
		if err := rows.Scan(&ch.OccurredAt, &ch.Link, &ch.Source, &title, &ch.ChangeType); err != nil {
			return nil, err
		}
		ch.Title = title.String
		out = append(out, ch)
	}
	return out, rows.Err()
}

func nullIfZero(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(n *int64) interface{} {
	if n == nil {
		return nil
	}
	return *n
}
