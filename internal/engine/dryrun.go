package engine

import (
	"context"
	"time"

	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
)

// dryRunStorage passes reads through and swallows every write. The pipeline
// runs its full gate and assessment sequence against it without touching a
// single record.
type dryRunStorage struct {
	Storage
}

func readOnly(s Storage) Storage {
	return &dryRunStorage{Storage: s}
}

func (d *dryRunStorage) InsertPosting(context.Context, *posting.RawPosting) (int64, error) {
	return 0, nil
}

func (d *dryRunStorage) UpdateStatus(context.Context, int64, string) error {
	return nil
}

func (d *dryRunStorage) SaveKeywordAudit(context.Context, int64, keyword.Result) error {
	return nil
}

func (d *dryRunStorage) MarkAnalyzed(context.Context, int64, float64, time.Time) error {
	return nil
}

func (d *dryRunStorage) MarkDuplicate(context.Context, int64, int64, float64) error {
	return nil
}

func (d *dryRunStorage) SaveDecision(context.Context, *posting.Decision) (int64, error) {
	return 0, nil
}

func (d *dryRunStorage) AddRejectionReason(context.Context, int64, string) error {
	return nil
}

func (d *dryRunStorage) EnqueueReview(context.Context, int64, string) error {
	return nil
}

func (d *dryRunStorage) AddScoreHistory(context.Context, int64, string, int, int, map[string]int) error {
	return nil
}
