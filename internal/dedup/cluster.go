package dedup

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/cpv"
	"github.com/quellwerk/akquise-engine/internal/posting"
)

// Batch clustering constants.
const (
	// TitleSimilarityFloor is the minimum title similarity for a pair to
	// stay in consideration at all.
	TitleSimilarityFloor = 0.8
	// ClientSimilarityVeto rejects a pair outright when both client names
	// are present but clearly different.
	ClientSimilarityVeto = 0.3
	// PairThreshold is the final score at or above which a pair is a
	// duplicate.
	PairThreshold = 0.7
	// DeadlineToleranceDays is the tolerance for the deadline component.
	DeadlineToleranceDays = 3
)

// PairResult carries the outcome of a single pair comparison.
type PairResult struct {
	IsDuplicate bool
	Confidence  float64
	Reasons     []string
}

// ComparePair scores two postings as a potential duplicate pair.
//
// The score is 0.5*title + 0.25*client (when both present) + 0.25*deadline
// (±3 days, or both absent) plus up to 0.1 bonus for classification-code
// overlap. The cross-source precondition is mandatory; same-source postings
// are never paired here.
func ComparePair(p1, p2 *posting.Posting) PairResult {
	if p1.Source == p2.Source {
		return PairResult{}
	}

	title1 := NormalizeTitle(p1.Title)
	title2 := NormalizeTitle(p2.Title)
	titleSim := Combined(title1, title2)
	if titleSim < TitleSimilarityFloor {
		return PairResult{Confidence: titleSim, Reasons: []string{"title similarity too low"}}
	}

	confidence := titleSim * 0.5
	reasons := []string{fmt.Sprintf("title match: %.0f%%", titleSim*100)}

	client1 := NormalizeClientName(p1.ClientName)
	client2 := NormalizeClientName(p2.ClientName)
	if client1 != "" && client2 != "" {
		clientSim := Combined(client1, client2)
		if clientSim < ClientSimilarityVeto {
			return PairResult{Confidence: confidence, Reasons: []string{"client names too different"}}
		}
		if clientSim >= 0.6 {
			confidence += clientSim * 0.25
			reasons = append(reasons, fmt.Sprintf("client match: %.0f%%", clientSim*100))
		}
	}

	if deadlinesMatch(p1.Deadline, p2.Deadline) {
		confidence += 0.25
		reasons = append(reasons, "deadline match")
	} else if p1.Deadline != nil && p2.Deadline != nil {
		confidence -= 0.1
	}

	if overlap := codeOverlap(p1.CPVCodes, p2.CPVCodes); overlap > 0 {
		confidence = math.Min(1.0, confidence+0.1)
		reasons = append(reasons, fmt.Sprintf("classification overlap: %d codes", overlap))
	}

	return PairResult{
		IsDuplicate: confidence >= PairThreshold,
		Confidence:  confidence,
		Reasons:     reasons,
	}
}

// Clusterer groups a lookback window of postings into duplicate groups.
// The comparison loop is O(n²) over the window and runs over one consistent
// snapshot; it is not safe to parallelize without an external boundary.
type Clusterer struct {
	logger *zap.Logger
}

// NewClusterer creates a batch clusterer.
func NewClusterer(logger *zap.Logger) *Clusterer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clusterer{logger: logger}
}

// Cluster greedily groups the snapshot chronologically: each unassigned
// record starts a group and absorbs every later unassigned record that
// pair-matches it. Once assigned, a record is never re-evaluated.
func (c *Clusterer) Cluster(window []*posting.Posting) []posting.DuplicateGroup {
	snapshot := make([]*posting.Posting, len(window))
	copy(snapshot, window)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].ScrapedAt.Before(snapshot[j].ScrapedAt)
	})

	assigned := make(map[int64]bool)
	var groups []posting.DuplicateGroup

	for i, p1 := range snapshot {
		if assigned[p1.ID] {
			continue
		}

		var duplicates []int64
		var allReasons []string
		best := 0.0

		for _, p2 := range snapshot[i+1:] {
			if assigned[p2.ID] {
				continue
			}

			result := ComparePair(p1, p2)
			if !result.IsDuplicate {
				continue
			}

			duplicates = append(duplicates, p2.ID)
			if result.Confidence > best {
				best = result.Confidence
			}
			allReasons = append(allReasons, result.Reasons...)
			assigned[p2.ID] = true
		}

		if len(duplicates) == 0 {
			continue
		}

		assigned[p1.ID] = true
		groups = append(groups, posting.DuplicateGroup{
			PrimaryID:    p1.ID,
			DuplicateIDs: duplicates,
			Confidence:   best,
			MatchReasons: dedupeReasons(allReasons),
		})

		c.logger.Debug("duplicate group",
			zap.Int64("primary_id", p1.ID),
			zap.Int64s("duplicate_ids", duplicates),
			zap.Float64("confidence", best),
		)
	}

	c.logger.Info("batch clustering finished",
		zap.Int("window", len(snapshot)),
		zap.Int("groups", len(groups)),
	)

	return groups
}

// DuplicateMarker persists duplicate markings. Marking never deletes; it
// flags the record and appends a provenance note referencing the primary.
type DuplicateMarker interface {
	MarkDuplicate(postingID, primaryID int64, confidence float64) error
}

// Mark applies the groups through the marker. With dryRun set the identical
// comparisons have already happened; nothing is mutated and only the count
// of would-be markings is returned.
func (c *Clusterer) Mark(marker DuplicateMarker, groups []posting.DuplicateGroup, dryRun bool) (int, error) {
	marked := 0
	for _, group := range groups {
		for _, id := range group.DuplicateIDs {
			if !dryRun {
				if err := marker.MarkDuplicate(id, group.PrimaryID, group.Confidence); err != nil {
					return marked, fmt.Errorf("mark duplicate %d: %w", id, err)
				}
			}
			marked++
		}
	}

	c.logger.Info("duplicate marking",
		zap.Int("marked", marked),
		zap.Bool("dry_run", dryRun),
	)
	return marked, nil
}

// deadlinesMatch is true when both deadlines fall within the tolerance or
// when neither posting carries one. A single missing deadline is neutral
// and handled by the caller.
func deadlinesMatch(d1, d2 *time.Time) bool {
	if d1 == nil && d2 == nil {
		return true
	}
	if d1 == nil || d2 == nil {
		return false
	}
	diff := d1.Sub(*d2)
	if diff < 0 {
		diff = -diff
	}
	return diff <= DeadlineToleranceDays*24*time.Hour
}

// codeOverlap counts shared normalized classification codes.
func codeOverlap(codes1, codes2 []string) int {
	if len(codes1) == 0 || len(codes2) == 0 {
		return 0
	}
	set := make(map[string]bool, len(codes1))
	for _, code := range codes1 {
		set[cpv.Normalize(code)] = true
	}
	overlap := 0
	for _, code := range codes2 {
		if set[cpv.Normalize(code)] {
			overlap++
		}
	}
	return overlap
}

func dedupeReasons(reasons []string) []string {
	seen := make(map[string]bool, len(reasons))
	out := reasons[:0]
	for _, r := range reasons {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
