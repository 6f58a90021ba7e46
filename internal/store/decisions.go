package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quellwerk/akquise-engine/internal/posting"
)

// SaveDecision appends the terminal pipeline artifact for a posting. The
// rejection-code invariant is enforced here as a last line of defense.
func (s *Store) SaveDecision(ctx context.Context, d *posting.Decision) (int64, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("decision for posting %d violates the rejection-code invariant", d.PostingID)
	}

	breakdown, _ := json.Marshal(d.Breakdown)
	strengths, _ := json.Marshal(d.Strengths)
	weaknesses, _ := json.Marshal(d.Weaknesses)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			posting_id, score, breakdown, decision, candidate_id, candidate_name,
			proposed_rate, rationale, strengths, weaknesses, rejection_code,
			raw_evidence, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.PostingID, d.Score, string(breakdown), d.Decision, d.CandidateID, d.CandidateName,
		d.ProposedRate, d.Rationale, string(strengths), string(weaknesses), d.RejectionCode,
		d.RawEvidence, d.DecidedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("save decision for posting %d: %w", d.PostingID, err)
	}
	return res.LastInsertId()
}

// LatestDecision returns the most recent decision for a posting, or nil.
func (s *Store) LatestDecision(ctx context.Context, postingID int64) (*posting.Decision, error) {
	var d posting.Decision
	var breakdown, strengths, weaknesses string

	err := s.db.QueryRowContext(ctx, `
		SELECT posting_id, score, breakdown, decision, candidate_id, candidate_name,
			proposed_rate, rationale, strengths, weaknesses, rejection_code,
			raw_evidence, decided_at
		FROM decisions WHERE posting_id = ? ORDER BY id DESC LIMIT 1`, postingID,
	).Scan(
		&d.PostingID, &d.Score, &breakdown, &d.Decision, &d.CandidateID, &d.CandidateName,
		&d.ProposedRate, &d.Rationale, &strengths, &weaknesses, &d.RejectionCode,
		&d.RawEvidence, &d.DecidedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load decision for posting %d: %w", postingID, err)
	}

	_ = json.Unmarshal([]byte(breakdown), &d.Breakdown)
	_ = json.Unmarshal([]byte(strengths), &d.Strengths)
	_ = json.Unmarshal([]byte(weaknesses), &d.Weaknesses)
	return &d, nil
}

// AddRejectionReason appends a rejection audit row.
func (s *Store) AddRejectionReason(ctx context.Context, postingID int64, code string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO rejection_reasons (posting_id, code, description, created_at)
		VALUES (?, ?, ?, ?)`,
		postingID, code, posting.RejectionDescriptions[code], time.Now(),
	); err != nil {
		return fmt.Errorf("add rejection reason for posting %d: %w", postingID, err)
	}
	return nil
}

// ReviewEntry is an unresolved review-queue item.
type ReviewEntry struct {
	ID        int64
	PostingID int64
	Reason    string
	CreatedAt time.Time
}

// EnqueueReview puts a posting in the manual review queue.
func (s *Store) EnqueueReview(ctx context.Context, postingID int64, reason string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO review_queue (posting_id, reason, created_at)
		VALUES (?, ?, ?)`,
		postingID, reason, time.Now(),
	); err != nil {
		return fmt.Errorf("enqueue review for posting %d: %w", postingID, err)
	}
	return nil
}

// OpenReviews returns the unresolved review-queue entries, oldest first.
func (s *Store) OpenReviews(ctx context.Context) ([]ReviewEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, posting_id, reason, created_at
		FROM review_queue WHERE resolved_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query review queue: %w", err)
	}
	defer rows.Close()

	var entries []ReviewEntry
	for rows.Next() {
		var e ReviewEntry
		if err := rows.Scan(&e.ID, &e.PostingID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ResolveReview closes a review-queue entry with the given resolution.
func (s *Store) ResolveReview(ctx context.Context, id int64, resolution string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE review_queue SET resolved_at = ?, resolution = ? WHERE id = ?`,
		time.Now(), resolution, id,
	); err != nil {
		return fmt.Errorf("resolve review %d: %w", id, err)
	}
	return nil
}

// AddScoreHistory appends an audit row for one assessment.
func (s *Store) AddScoreHistory(ctx context.Context, postingID int64, runID string, schemaVersion, score int, breakdown map[string]int) error {
	encoded, _ := json.Marshal(breakdown)
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO score_history (posting_id, run_id, schema_version, score, breakdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		postingID, runID, schemaVersion, score, string(encoded), time.Now(),
	); err != nil {
		return fmt.Errorf("add score history for posting %d: %w", postingID, err)
	}
	return nil
}
