package assess

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
)

const validResponse = `{
	"score": 78,
	"score_breakdown": {"skill_match": 30, "experience": 20, "embedding": 12, "market_fit": 8, "risk_factors": 8},
	"best_candidate_name": "Anna Beispiel",
	"proposed_rate": 95,
	"rate_reasoning": "Unteres Marktsegment",
	"strengths": ["Stack-Passung"],
	"weaknesses": ["Kurze Frist"],
	"decision": "apply"
}`

func TestParseOutputValid(t *testing.T) {
	t.Parallel()

	out, warnings, err := ParseOutput(validResponse, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warnings != 0 {
		t.Fatalf("expected no warnings, got %d", warnings)
	}
	if out.Score != 78 || out.ScoreBreakdown.SkillMatch != 30 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestParseOutputStripsCodeFences(t *testing.T) {
	t.Parallel()

	fenced := "```json\n" + validResponse + "\n```"
	out, _, err := ParseOutput(fenced, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Score != 78 {
		t.Fatalf("unexpected score: %d", out.Score)
	}
}

func TestParseOutputClampsOutOfRangeComponent(t *testing.T) {
	t.Parallel()

	raw := `{
		"score": 90,
		"score_breakdown": {"skill_match": 999, "experience": 20, "embedding": 10, "market_fit": 5, "risk_factors": -3},
		"best_candidate_name": "Anna Beispiel",
		"proposed_rate": 90,
		"decision": "apply"
	}`

	out, warnings, err := ParseOutput(raw, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ScoreBreakdown.SkillMatch != 40 {
		t.Fatalf("skill_match should clamp to 40, got %d", out.ScoreBreakdown.SkillMatch)
	}
	if out.ScoreBreakdown.RiskFactors != 0 {
		t.Fatalf("risk_factors should clamp to 0, got %d", out.ScoreBreakdown.RiskFactors)
	}
	if warnings != 2 {
		t.Fatalf("expected 2 clamp warnings, got %d", warnings)
	}
}

func TestParseOutputInvalidDecision(t *testing.T) {
	t.Parallel()

	raw := `{"score": 50, "best_candidate_name": "X", "proposed_rate": 80, "decision": "maybe"}`

	_, _, err := ParseOutput(raw, zap.NewNop())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestParseOutputGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := ParseOutput("sorry, I cannot help with that", zap.NewNop())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func candidates() []posting.CandidateProfile {
	return []posting.CandidateProfile{
		{ID: 1, Name: "Anna Beispiel", MinHourlyRate: 85},
		{ID: 2, Name: "Ben Muster", MinHourlyRate: 100},
	}
}

func TestReconcileKeywordOverride(t *testing.T) {
	t.Parallel()

	out, _, err := ParseOutput(validResponse, zap.NewNop())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	kw := &keyword.Result{TotalScore: 38}
	got := Reconcile(out, kw, 0, candidates(), zap.NewNop())

	if got.Breakdown.SkillMatch != 38 {
		t.Fatalf("skill_match must adopt keyword score, got %d", got.Breakdown.SkillMatch)
	}
	// 38 + 20 + 12 + 8 + 8
	if got.Score != 86 {
		t.Fatalf("total must be recomputed from the breakdown, got %d", got.Score)
	}
}

func TestReconcileLegacyBonusCapped(t *testing.T) {
	t.Parallel()

	out, _, err := ParseOutput(validResponse, zap.NewNop())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out.Score = 95
	out.ScoreBreakdown = nil

	got := Reconcile(out, nil, 10, candidates(), zap.NewNop())
	if got.Score != 100 {
		t.Fatalf("legacy bonus must cap at 100, got %d", got.Score)
	}
}

func TestReconcileRateFloor(t *testing.T) {
	t.Parallel()

	out, _, err := ParseOutput(validResponse, zap.NewNop())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out.BestCandidateName = "ben muster"
	out.ProposedRate = 70

	got := Reconcile(out, nil, 0, candidates(), zap.NewNop())
	if got.BestCandidate.ID != 2 {
		t.Fatalf("candidate should resolve case-insensitively, got %+v", got.BestCandidate)
	}
	if got.ProposedRate != 100 {
		t.Fatalf("rate must be floored at candidate minimum, got %f", got.ProposedRate)
	}
}

func TestReconcileUnknownCandidateFallsBack(t *testing.T) {
	t.Parallel()

	out, _, err := ParseOutput(validResponse, zap.NewNop())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out.BestCandidateName = "Niemand Bekanntes"

	got := Reconcile(out, nil, 0, candidates(), zap.NewNop())
	if got.BestCandidate.ID != 1 {
		t.Fatalf("unknown name must fall back to top-shortlisted, got %+v", got.BestCandidate)
	}
}
