package dedup

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/posting"
)

// SimilarityThreshold is the combined similarity above which two titles from
// different sources are treated as the same opportunity.
const SimilarityThreshold = 0.85

// minFuzzyTitleLen guards the fuzzy stage: very short normalized titles
// produce too many false positives.
const minFuzzyTitleLen = 20

// Match describes a detected duplicate of an incoming posting.
type Match struct {
	Raw        *posting.RawPosting
	Existing   *posting.Posting
	Similarity float64
	MatchedOn  string // "external_id", "title_normalized" or "title"
}

// IncomingMatcher checks newly scraped postings against a window of existing
// records before they are persisted.
type IncomingMatcher struct {
	logger *zap.Logger
}

// NewIncomingMatcher creates the matcher used by the ingestion path.
func NewIncomingMatcher(logger *zap.Logger) *IncomingMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncomingMatcher{logger: logger}
}

// Split partitions raw postings into unique ones and duplicate matches
// against the provided window of existing records. The first qualifying
// match wins; ties are not specially resolved.
func (m *IncomingMatcher) Split(raws []*posting.RawPosting, existing []*posting.Posting) ([]*posting.RawPosting, []Match) {
	if len(raws) == 0 {
		return nil, nil
	}

	externalIDs := make(map[string]*posting.Posting, len(existing))
	titles := make(map[string][]*posting.Posting)
	for _, p := range existing {
		externalIDs[externalKey(p.Source, p.ExternalID)] = p

		norm := NormalizeTitle(p.Title)
		titles[norm] = append(titles[norm], p)
	}

	var unique []*posting.RawPosting
	var matches []Match

	for _, raw := range raws {
		match := m.findMatch(raw, externalIDs, titles, existing)
		if match == nil {
			unique = append(unique, raw)
			continue
		}

		matches = append(matches, *match)
		m.logger.Debug("incoming duplicate",
			zap.String("title", raw.Title),
			zap.String("source", raw.Source),
			zap.String("matched_on", match.MatchedOn),
			zap.Float64("similarity", match.Similarity),
			zap.Int64("existing_id", match.Existing.ID),
		)
	}

	m.logger.Info("incoming deduplication",
		zap.Int("checked", len(raws)),
		zap.Int("unique", len(unique)),
		zap.Int("duplicates", len(matches)),
	)

	return unique, matches
}

func (m *IncomingMatcher) findMatch(
	raw *posting.RawPosting,
	externalIDs map[string]*posting.Posting,
	titles map[string][]*posting.Posting,
	existing []*posting.Posting,
) *Match {
	// 1. Exact (source, external id) key.
	if p, ok := externalIDs[externalKey(raw.Source, raw.ExternalID)]; ok {
		return &Match{Raw: raw, Existing: p, Similarity: 1.0, MatchedOn: "external_id"}
	}

	// 2. Exact normalized title. Prefer a same-source record when present.
	norm := NormalizeTitle(raw.Title)
	if candidates, ok := titles[norm]; ok && norm != "" {
		for _, p := range candidates {
			if p.Source == raw.Source {
				return &Match{Raw: raw, Existing: p, Similarity: 1.0, MatchedOn: "title_normalized"}
			}
		}
		return &Match{Raw: raw, Existing: candidates[0], Similarity: 1.0, MatchedOn: "title_normalized"}
	}

	// 3. Fuzzy title match against other sources only. Same-source re-posts
	// are intentionally left to the external-id key.
	if len(norm) < minFuzzyTitleLen {
		return nil
	}

	for _, p := range existing {
		if p.Source == raw.Source {
			continue
		}
		similarity := Combined(norm, NormalizeTitle(p.Title))
		if similarity >= SimilarityThreshold {
			return &Match{Raw: raw, Existing: p, Similarity: similarity, MatchedOn: "title"}
		}
	}

	return nil
}

func externalKey(source, externalID string) string {
	return fmt.Sprintf("%s\x00%s", source, externalID)
}
