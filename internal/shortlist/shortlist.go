// Package shortlist selects the candidate profiles worth assessing against a
// posting. Ranking is delegated to a similarity service so the engine never
// depends on how the scores are produced.
package shortlist

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/posting"
)

const (
	// DefaultTopK is how many candidates are put in front of the assessor.
	DefaultTopK = 3
	// DefaultMinSimilarity drops candidates with no plausible fit. An empty
	// shortlist is a valid terminal outcome, not an error.
	DefaultMinSimilarity = 0.25
)

// Ranked is one similarity-service result.
type Ranked struct {
	ProfileID int64
	Score     float64
}

// SimilarityService ranks candidate profiles against free text.
type SimilarityService interface {
	Rank(ctx context.Context, query string, topK int) ([]Ranked, error)
}

// ProfileStore loads candidate profiles by id.
type ProfileStore interface {
	ProfileByID(ctx context.Context, id int64) (*posting.CandidateProfile, error)
}

// Shortlister turns a posting into the ranked candidate list used for
// assessment.
type Shortlister struct {
	service       SimilarityService
	profiles      ProfileStore
	topK          int
	minSimilarity float64
	logger        *zap.Logger
}

// New creates a Shortlister with the default cut-offs.
func New(service SimilarityService, profiles ProfileStore, logger *zap.Logger) *Shortlister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shortlister{
		service:       service,
		profiles:      profiles,
		topK:          DefaultTopK,
		minSimilarity: DefaultMinSimilarity,
		logger:        logger,
	}
}

// WithTopK overrides how many candidates are requested.
func (s *Shortlister) WithTopK(k int) *Shortlister {
	if k > 0 {
		s.topK = k
	}
	return s
}

// WithMinSimilarity overrides the similarity floor.
func (s *Shortlister) WithMinSimilarity(min float64) *Shortlister {
	s.minSimilarity = min
	return s
}

// Shortlist ranks profiles against the posting text and returns them with
// their similarity attached, best first. An empty result means no viable
// candidate exists for this posting.
func (s *Shortlister) Shortlist(ctx context.Context, p *posting.Posting) ([]posting.CandidateProfile, error) {
	query := buildQuery(p)
	ranked, err := s.service.Rank(ctx, query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}

	var out []posting.CandidateProfile
	for _, r := range ranked {
		if r.Score < s.minSimilarity {
			continue
		}
		profile, err := s.profiles.ProfileByID(ctx, r.ProfileID)
		if err != nil {
			return nil, fmt.Errorf("load profile %d: %w", r.ProfileID, err)
		}
		profile.Similarity = r.Score
		out = append(out, *profile)
	}

	s.logger.Debug("candidate shortlist",
		zap.Int64("posting_id", p.ID),
		zap.Int("ranked", len(ranked)),
		zap.Int("shortlisted", len(out)),
	)

	return out, nil
}

// buildQuery assembles the text the similarity service ranks against. The
// description dominates, title and skills sharpen it.
func buildQuery(p *posting.Posting) string {
	parts := []string{p.Title}
	if len(p.Skills) > 0 {
		parts = append(parts, strings.Join(p.Skills, ", "))
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	return strings.Join(parts, "\n")
}
