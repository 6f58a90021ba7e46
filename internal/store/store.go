// Package store is the embedded persistence layer: a single sqlite database
// holding postings, candidate profiles, decisions and the audit trail.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store wraps the sqlite pool. All outputs are append-only; only the
// explicit reset clears a posting's decision state.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and if necessary creates) the database at path and applies
// the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite wants a single writer.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS postings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	external_id TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	client_name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	skills TEXT NOT NULL DEFAULT '[]',
	budget TEXT NOT NULL DEFAULT '',
	budget_min REAL NOT NULL DEFAULT 0,
	budget_max REAL NOT NULL DEFAULT 0,
	location TEXT NOT NULL DEFAULT '',
	remote INTEGER NOT NULL DEFAULT 0,
	public_sector INTEGER NOT NULL DEFAULT 0,
	kind TEXT NOT NULL DEFAULT 'freelance',
	cpv_codes TEXT NOT NULL DEFAULT '[]',
	document_text TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMP,
	deadline TIMESTAMP,
	scraped_at TIMESTAMP NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	proposed_rate REAL NOT NULL DEFAULT 0,
	analyzed_at TIMESTAMP,
	keyword_score INTEGER NOT NULL DEFAULT 0,
	keyword_confidence TEXT NOT NULL DEFAULT '',
	combo_bonus INTEGER NOT NULL DEFAULT 0,
	tier1_keywords TEXT NOT NULL DEFAULT '[]',
	tier2_keywords TEXT NOT NULL DEFAULT '[]',
	reject_keywords TEXT NOT NULL DEFAULT '[]',
	notes TEXT NOT NULL DEFAULT '',
	UNIQUE(source, external_id)
);

CREATE INDEX IF NOT EXISTS idx_postings_status ON postings(status);
CREATE INDEX IF NOT EXISTS idx_postings_scraped_at ON postings(scraped_at);

CREATE TABLE IF NOT EXISTS profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT '',
	skills TEXT NOT NULL DEFAULT '[]',
	years_experience INTEGER NOT NULL DEFAULT 0,
	min_hourly_rate REAL NOT NULL DEFAULT 0,
	embedding BLOB
);

CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	posting_id INTEGER NOT NULL REFERENCES postings(id),
	score INTEGER NOT NULL,
	breakdown TEXT NOT NULL DEFAULT '{}',
	decision TEXT NOT NULL,
	candidate_id INTEGER NOT NULL DEFAULT 0,
	candidate_name TEXT NOT NULL DEFAULT '',
	proposed_rate REAL NOT NULL DEFAULT 0,
	rationale TEXT NOT NULL DEFAULT '',
	strengths TEXT NOT NULL DEFAULT '[]',
	weaknesses TEXT NOT NULL DEFAULT '[]',
	rejection_code TEXT NOT NULL DEFAULT '',
	raw_evidence TEXT NOT NULL DEFAULT '',
	decided_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS rejection_reasons (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	posting_id INTEGER NOT NULL REFERENCES postings(id),
	code TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS review_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	posting_id INTEGER NOT NULL REFERENCES postings(id),
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP,
	resolution TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS score_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	posting_id INTEGER NOT NULL REFERENCES postings(id),
	run_id TEXT NOT NULL DEFAULT '',
	schema_version INTEGER NOT NULL,
	score INTEGER NOT NULL,
	breakdown TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL
);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
