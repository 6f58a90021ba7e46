package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
	"github.com/quellwerk/akquise-engine/internal/rules"
)

const postingColumns = `id, source, external_id, url, title, client_name, description,
	skills, budget, budget_min, budget_max, location, remote, public_sector,
	kind, cpv_codes, document_text, published_at, deadline, scraped_at,
	status, proposed_rate, analyzed_at,
	keyword_score, keyword_confidence, combo_bonus,
	tier1_keywords, tier2_keywords, reject_keywords, notes`

// InsertPosting persists a newly scraped posting in status pending.
func (s *Store) InsertPosting(ctx context.Context, raw *posting.RawPosting) (int64, error) {
	skills, _ := json.Marshal(raw.Skills)
	cpvCodes, _ := json.Marshal(raw.CPVCodes)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO postings (
			source, external_id, url, title, client_name, description,
			skills, budget, budget_min, budget_max, location, remote,
			public_sector, kind, cpv_codes, document_text,
			published_at, deadline, scraped_at, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		raw.Source, raw.ExternalID, raw.URL, raw.Title, raw.ClientName, raw.Description,
		string(skills), raw.Budget, raw.BudgetMin, raw.BudgetMax, raw.Location, raw.Remote,
		raw.PublicSector, string(raw.Kind), string(cpvCodes), raw.DocumentText,
		raw.PublishedAt, raw.Deadline, raw.ScrapedAt, posting.StatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("insert posting: %w", err)
	}
	return res.LastInsertId()
}

// PendingPostings returns every posting waiting for the pipeline.
func (s *Store) PendingPostings(ctx context.Context) ([]*posting.Posting, error) {
	return s.queryPostings(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE status = ? ORDER BY scraped_at`,
		posting.StatusPending)
}

// PostingsSince returns the lookback window for deduplication, newest last.
func (s *Store) PostingsSince(ctx context.Context, since time.Time) ([]*posting.Posting, error) {
	return s.queryPostings(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE scraped_at >= ? AND status != ? ORDER BY scraped_at`,
		since, posting.StatusDuplicate)
}

// PostingByID loads one posting.
func (s *Store) PostingByID(ctx context.Context, id int64) (*posting.Posting, error) {
	postings, err := s.queryPostings(ctx,
		`SELECT `+postingColumns+` FROM postings WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(postings) == 0 {
		return nil, fmt.Errorf("posting %d not found", id)
	}
	return postings[0], nil
}

// UpdateStatus moves a posting to a new status. The transition graph is
// enforced; the explicit reset path bypasses it via ResetPosting.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) error {
	var current string
	if err := s.db.QueryRowContext(ctx,
		`SELECT status FROM postings WHERE id = ?`, id).Scan(&current); err != nil {
		return fmt.Errorf("load status of posting %d: %w", id, err)
	}
	if err := rules.ValidateTransition(current, status); err != nil {
		return fmt.Errorf("posting %d: %w", id, err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE postings SET status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("update status of posting %d: %w", id, err)
	}
	return nil
}

// SaveKeywordAudit persists the keyword result columns of a posting.
func (s *Store) SaveKeywordAudit(ctx context.Context, id int64, result keyword.Result) error {
	tier1, _ := json.Marshal(result.Tier1Keywords)
	tier2, _ := json.Marshal(result.Tier2Keywords)
	reject, _ := json.Marshal(result.RejectKeywords)

	if _, err := s.db.ExecContext(ctx, `
		UPDATE postings SET
			keyword_score = ?, keyword_confidence = ?, combo_bonus = ?,
			tier1_keywords = ?, tier2_keywords = ?, reject_keywords = ?
		WHERE id = ?`,
		result.TotalScore, result.Confidence, result.ComboBonus,
		string(tier1), string(tier2), string(reject), id,
	); err != nil {
		return fmt.Errorf("save keyword audit for posting %d: %w", id, err)
	}
	return nil
}

// MarkAnalyzed stamps the posting with its proposed rate and analysis time.
func (s *Store) MarkAnalyzed(ctx context.Context, id int64, proposedRate float64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE postings SET proposed_rate = ?, analyzed_at = ? WHERE id = ?`,
		proposedRate, at, id); err != nil {
		return fmt.Errorf("mark posting %d analyzed: %w", id, err)
	}
	return nil
}

// MarkDuplicate flags the posting as a duplicate of primaryID. The record is
// kept; a provenance note referencing the primary is appended to its notes.
func (s *Store) MarkDuplicate(ctx context.Context, id, primaryID int64, confidence float64) error {
	note := fmt.Sprintf("[%s] Duplikat von Posting #%d (Konfidenz %.2f)",
		time.Now().Format("2006-01-02"), primaryID, confidence)

	if _, err := s.db.ExecContext(ctx, `
		UPDATE postings SET
			status = ?,
			notes = CASE WHEN notes = '' THEN ? ELSE notes || char(10) || ? END
		WHERE id = ?`,
		posting.StatusDuplicate, note, note, id,
	); err != nil {
		return fmt.Errorf("mark posting %d duplicate: %w", id, err)
	}

	s.logger.Debug("posting marked duplicate",
		zap.Int64("posting_id", id),
		zap.Int64("primary_id", primaryID),
		zap.Float64("confidence", confidence),
	)
	return nil
}

// ResetPosting clears a decided posting back to pending for re-scoring.
// Decision and history rows stay in place as audit trail.
func (s *Store) ResetPosting(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE postings SET status = ?, proposed_rate = 0, analyzed_at = NULL
		WHERE id = ? AND status IN (?, ?, ?, ?)`,
		posting.StatusPending, id,
		posting.StatusApplied, posting.StatusRejected, posting.StatusReview, posting.StatusAssessed,
	)
	if err != nil {
		return fmt.Errorf("reset posting %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("posting %d is not in a resettable state", id)
	}

	s.logger.Info("posting reset", zap.Int64("posting_id", id))
	return nil
}

// CountByStatus counts postings in the given status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM postings WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count postings by status: %w", err)
	}
	return count, nil
}

func (s *Store) queryPostings(ctx context.Context, query string, args ...any) ([]*posting.Posting, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query postings: %w", err)
	}
	defer rows.Close()

	var postings []*posting.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func scanPosting(rows *sql.Rows) (*posting.Posting, error) {
	var p posting.Posting
	var skills, cpvCodes, tier1, tier2, reject string
	var kind string
	var publishedAt, deadline, analyzedAt sql.NullTime
	var notes string

	if err := rows.Scan(
		&p.ID, &p.Source, &p.ExternalID, &p.URL, &p.Title, &p.ClientName, &p.Description,
		&skills, &p.Budget, &p.BudgetMin, &p.BudgetMax, &p.Location, &p.Remote, &p.PublicSector,
		&kind, &cpvCodes, &p.DocumentText, &publishedAt, &deadline, &p.ScrapedAt,
		&p.Status, &p.ProposedRate, &analyzedAt,
		&p.KeywordScore, &p.KeywordConfidence, &p.KeywordComboBonus,
		&tier1, &tier2, &reject, &notes,
	); err != nil {
		return nil, fmt.Errorf("scan posting: %w", err)
	}

	p.Kind = posting.Kind(kind)
	if publishedAt.Valid {
		p.PublishedAt = publishedAt.Time
	}
	if deadline.Valid {
		p.Deadline = &deadline.Time
	}
	if analyzedAt.Valid {
		p.AnalyzedAt = &analyzedAt.Time
	}

	_ = json.Unmarshal([]byte(skills), &p.Skills)
	_ = json.Unmarshal([]byte(cpvCodes), &p.CPVCodes)
	_ = json.Unmarshal([]byte(tier1), &p.KeywordTier1)
	_ = json.Unmarshal([]byte(tier2), &p.KeywordTier2)
	_ = json.Unmarshal([]byte(reject), &p.KeywordReject)

	return &p, nil
}
