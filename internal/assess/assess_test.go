package assess

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
)

type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	var resp string
	if i < len(g.responses) {
		resp = g.responses[i]
	}
	return resp, err
}

func stubBackoff(t *testing.T) {
	t.Helper()
	original := backoffWait
	backoffWait = func(ctx context.Context, d time.Duration) error { return nil }
	t.Cleanup(func() { backoffWait = original })
}

func assessRequest() Request {
	return Request{
		Posting: &posting.Posting{
			ID: 7,
			RawPosting: posting.RawPosting{
				Title:       "Relaunch Serviceportal",
				Description: "Go und React Entwicklung.",
				Skills:      []string{"go", "react"},
			},
		},
		Keyword:    &keyword.Result{TotalScore: 30, Confidence: "high"},
		Candidates: candidates(),
	}
}

func TestAssessRetriesTransientErrors(t *testing.T) {
	stubBackoff(t)

	gen := &scriptedGenerator{
		responses: []string{"", validResponse},
		errs:      []error{&TransientError{Err: errors.New("rate limited")}, nil},
	}

	a := New(gen, nil, Config{MaxActive: 40, ThresholdReject: 60, ThresholdReview: 74, ThresholdApply: 75}, zap.NewNop())
	got, err := a.Assess(context.Background(), assessRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", gen.calls)
	}
	if got.Breakdown.SkillMatch != 30 {
		t.Fatalf("keyword score not adopted: %+v", got.Breakdown)
	}
}

func TestAssessDoesNotRetryTerminalErrors(t *testing.T) {
	stubBackoff(t)

	gen := &scriptedGenerator{
		errs: []error{errors.New("invalid api key")},
	}

	a := New(gen, nil, Config{}, zap.NewNop())
	if _, err := a.Assess(context.Background(), assessRequest()); err == nil {
		t.Fatal("expected error")
	}
	if gen.calls != 1 {
		t.Fatalf("terminal errors must not be retried, got %d calls", gen.calls)
	}
}

func TestAssessExhaustsRetries(t *testing.T) {
	stubBackoff(t)

	transient := &TransientError{Err: errors.New("timeout")}
	gen := &scriptedGenerator{errs: []error{transient, transient, transient}}

	a := New(gen, nil, Config{}, zap.NewNop())
	_, err := a.Assess(context.Background(), assessRequest())
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.calls)
	}
	if !IsTransient(err) {
		t.Fatalf("exhaustion should surface the transient cause, got %v", err)
	}
}

func TestAssessEmbedsKeywordInstruction(t *testing.T) {
	stubBackoff(t)

	gen := &scriptedGenerator{responses: []string{validResponse}}
	a := New(gen, nil, Config{MaxActive: 40}, zap.NewNop())

	if _, err := a.Assess(context.Background(), assessRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "Übernimm diesen Score für skill_match") {
		t.Fatal("prompt must instruct verbatim keyword adoption")
	}
	if !strings.Contains(prompt, "Keyword-Score: 30/40") {
		t.Fatal("prompt must embed the precomputed keyword score")
	}
}

func TestBuildPromptTruncatesWithMarker(t *testing.T) {
	t.Parallel()

	longDescription := strings.Repeat("a", MaxDescriptionChars+500)
	longDocument := strings.Repeat("b", MaxDocumentTextChars+500)

	prompt := BuildPrompt(PromptInput{
		Title:        "T",
		Description:  longDescription,
		DocumentText: longDocument,
	})

	if !strings.Contains(prompt, truncationMarker) {
		t.Fatal("truncation must be marked")
	}
	if strings.Contains(prompt, strings.Repeat("a", MaxDescriptionChars+1)) {
		t.Fatal("description exceeded its budget")
	}
	if strings.Contains(prompt, strings.Repeat("b", MaxDocumentTextChars+1)) {
		t.Fatal("document text exceeded its budget")
	}
}

func TestParseResearchDefaults(t *testing.T) {
	t.Parallel()

	raw := `{"client_info": "Landesbehörde", "project_type": "Neuentwicklung"}`
	research, err := parseResearch(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !research.Fit.ConsortiumAllowed {
		t.Fatal("absent consortium flag must default to allowed")
	}
	if research.Fit.ExclusionRisk != "low" {
		t.Fatalf("absent risk must default to low, got %q", research.Fit.ExclusionRisk)
	}
}

func TestParseResearchFitAnalysis(t *testing.T) {
	t.Parallel()

	raw := `{
		"client_info": "Bund",
		"fit_analysis": {
			"consortium_allowed": false,
			"exclusion_risk": "high",
			"exclusion_reasons": ["BG ausgeschlossen", "Ü2 nötig"],
			"min_team_size_required": 8
		}
	}`
	research, err := parseResearch(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if research.Fit.ConsortiumAllowed {
		t.Fatal("explicit false must override the default")
	}
	if research.Fit.MinTeamSizeRequired != 8 {
		t.Fatalf("got %d", research.Fit.MinTeamSizeRequired)
	}
	if research.Fit.ExclusionRisk != "high" {
		t.Fatalf("got %q", research.Fit.ExclusionRisk)
	}
}
