package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/dedup"
	"github.com/quellwerk/akquise-engine/internal/posting"
)

// IngestStats summarizes one ingestion batch.
type IngestStats struct {
	Scraped    int
	New        int
	Duplicates int
}

// Ingest checks a batch of scraped postings against the lookback window and
// persists the unique ones in status pending. Duplicates are dropped before
// insert; the already-stored record stays untouched.
func (e *Engine) Ingest(ctx context.Context, raws []*posting.RawPosting) (IngestStats, error) {
	stats := IngestStats{Scraped: len(raws)}
	if len(raws) == 0 {
		return stats, nil
	}

	since := time.Now().AddDate(0, 0, -e.cfg.LookbackDays)
	window, err := e.deps.Store.PostingsSince(ctx, since)
	if err != nil {
		return stats, fmt.Errorf("load lookback window: %w", err)
	}

	matcher := dedup.NewIncomingMatcher(e.logger)
	unique, matches := matcher.Split(raws, window)
	stats.Duplicates = len(matches)

	for _, raw := range unique {
		if _, err := e.deps.Store.InsertPosting(ctx, raw); err != nil {
			return stats, fmt.Errorf("insert posting %q: %w", raw.Title, err)
		}
		stats.New++
	}

	e.logger.Info("ingestion finished",
		zap.Int("scraped", stats.Scraped),
		zap.Int("new", stats.New),
		zap.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}

// DedupeBatch clusters the lookback window and marks every group member
// except the primary as duplicate. With dryRun the identical comparisons run
// and nothing is written.
func (e *Engine) DedupeBatch(ctx context.Context, days int, dryRun bool) (int, error) {
	if days <= 0 {
		days = e.cfg.LookbackDays
	}

	window, err := e.deps.Store.PostingsSince(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return 0, fmt.Errorf("load lookback window: %w", err)
	}

	clusterer := dedup.NewClusterer(e.logger)
	groups := clusterer.Cluster(window)

	return clusterer.Mark(&contextMarker{ctx: ctx, store: e.deps.Store}, groups, dryRun)
}

// contextMarker binds the run context onto the storage marking call.
type contextMarker struct {
	ctx   context.Context
	store Storage
}

func (m *contextMarker) MarkDuplicate(postingID, primaryID int64, confidence float64) error {
	return m.store.MarkDuplicate(m.ctx, postingID, primaryID, confidence)
}
