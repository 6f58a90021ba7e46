package cmd

import (
	"testing"

	"github.com/quellwerk/akquise-engine/internal/engine"
)

func TestAssessConfigReviewBand(t *testing.T) {
	cfg := engine.DefaultConfig()
	got := assessConfig(cfg)

	if got.ThresholdReject != cfg.ThresholdReject || got.ThresholdApply != cfg.ThresholdApply {
		t.Fatalf("thresholds not carried over: %+v", got)
	}
	// The prompt renders "Score reject-review: review"; both edges inclusive.
	if got.ThresholdReview != cfg.ThresholdApply-1 {
		t.Fatalf("review band upper edge = %d, want %d", got.ThresholdReview, cfg.ThresholdApply-1)
	}
	if got.ThresholdReview <= got.ThresholdReject {
		t.Fatalf("review band is degenerate: %d-%d", got.ThresholdReject, got.ThresholdReview)
	}
	if got.MaxActive != cfg.MaxActiveApplications {
		t.Fatalf("max active = %d, want %d", got.MaxActive, cfg.MaxActiveApplications)
	}
}
