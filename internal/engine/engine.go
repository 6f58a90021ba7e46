// Package engine orchestrates the scoring pipeline per posting: capacity
// guard, keyword pre-filter, classification filter, candidate shortlist,
// research, assessment and the deterministic rule overlay. Every stage that
// can terminate a posting does so before the next external call is made.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quellwerk/akquise-engine/internal/assess"
	"github.com/quellwerk/akquise-engine/internal/cpv"
	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
	"github.com/quellwerk/akquise-engine/internal/rules"
)

// Storage is the persistence surface the pipeline needs. *store.Store
// satisfies it.
type Storage interface {
	InsertPosting(ctx context.Context, raw *posting.RawPosting) (int64, error)
	PendingPostings(ctx context.Context) ([]*posting.Posting, error)
	PostingsSince(ctx context.Context, since time.Time) ([]*posting.Posting, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	SaveKeywordAudit(ctx context.Context, id int64, result keyword.Result) error
	MarkAnalyzed(ctx context.Context, id int64, proposedRate float64, at time.Time) error
	MarkDuplicate(ctx context.Context, id, primaryID int64, confidence float64) error
	CountByStatus(ctx context.Context, status string) (int, error)
	SaveDecision(ctx context.Context, d *posting.Decision) (int64, error)
	AddRejectionReason(ctx context.Context, postingID int64, code string) error
	EnqueueReview(ctx context.Context, postingID int64, reason string) error
	AddScoreHistory(ctx context.Context, postingID int64, runID string, schemaVersion, score int, breakdown map[string]int) error
}

// Shortlister selects the candidate profiles for a posting.
type Shortlister interface {
	Shortlist(ctx context.Context, p *posting.Posting) ([]posting.CandidateProfile, error)
}

// Researcher runs the optional client/project analysis.
type Researcher interface {
	Research(ctx context.Context, p *posting.Posting) (*assess.Research, error)
}

// Assessor produces the reconciled assessment for a posting.
type Assessor interface {
	Assess(ctx context.Context, req assess.Request) (*assess.Assessment, error)
}

// Deps bundles the pipeline collaborators. Researcher may be nil; the
// neutral fit analysis is used then.
type Deps struct {
	Store       Storage
	Shortlister Shortlister
	Researcher  Researcher
	Assessor    Assessor
	Overlay     *rules.Overlay
	Keywords    *keyword.Config
	CPV         *cpv.Filter
	Logger      *zap.Logger
}

// Engine drives one pipeline run over all pending postings.
type Engine struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// New validates the configuration and assembles the engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DryRun {
		deps.Store = readOnly(deps.Store)
		logger.Info("dry run: nothing will be written")
	}
	return &Engine{cfg: cfg, deps: deps, logger: logger}, nil
}

// Stats summarizes one pipeline run.
type Stats struct {
	Processed int
	Applied   int
	Review    int
	Rejected  int
	Errors    int
}

// Run processes every pending posting with a bounded worker pool. A failing
// posting is isolated: it moves to status error and the run continues.
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	runID := uuid.NewString()

	pending, err := e.deps.Store.PendingPostings(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load pending postings: %w", err)
	}

	e.logger.Info("pipeline run started",
		zap.String("run_id", runID),
		zap.Int("pending", len(pending)),
		zap.Int("workers", e.cfg.Workers),
	)

	var stats statsCollector
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for _, p := range pending {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			decision, err := e.processPosting(ctx, runID, p)
			if err != nil {
				e.logger.Error("posting failed",
					zap.Int64("posting_id", p.ID),
					zap.String("title", p.Title),
					zap.Error(err),
				)
				if statusErr := e.deps.Store.UpdateStatus(ctx, p.ID, posting.StatusError); statusErr != nil {
					e.logger.Error("status update failed", zap.Int64("posting_id", p.ID), zap.Error(statusErr))
				}
				stats.record("error")
				return nil
			}
			stats.record(decision)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats.snapshot(), err
	}

	result := stats.snapshot()
	e.logger.Info("pipeline run finished",
		zap.String("run_id", runID),
		zap.Int("processed", result.Processed),
		zap.Int("applied", result.Applied),
		zap.Int("review", result.Review),
		zap.Int("rejected", result.Rejected),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// processPosting runs the full gate sequence for one posting and returns the
// decision label. The cheap deterministic gates run first; the posting never
// reaches an external service once any of them fires.
func (e *Engine) processPosting(ctx context.Context, runID string, p *posting.Posting) (string, error) {
	active, err := e.deps.Store.CountByStatus(ctx, posting.StatusApplied)
	if err != nil {
		return "", fmt.Errorf("count active applications: %w", err)
	}
	if active >= e.cfg.MaxActiveApplications {
		return posting.DecisionReview, e.routeToReview(ctx, p,
			fmt.Sprintf("Kapazitätsgrenze erreicht: %d aktive Bewerbungen", active))
	}

	kw := e.deps.Keywords.Score(p.Title, p.Description, p.DocumentText)
	if err := e.deps.Store.SaveKeywordAudit(ctx, p.ID, kw); err != nil {
		return "", err
	}

	if kw.ShouldReject {
		return posting.DecisionReject, e.rejectEarly(ctx, runID, p, posting.RejectKeyword, kw.TotalScore,
			[]string{"Reject-Keywords gefunden: " + joinLimited(kw.RejectKeywords, 5)})
	}

	// The classification bonus of a passing tender feeds the final overlay
	// score; freelance postings carry none.
	cpvBonus := 0
	if p.Kind == posting.KindTender {
		filter := e.deps.CPV.Apply(p.CPVCodes, p.Title, p.Description)
		if !filter.Passes {
			return posting.DecisionReject, e.rejectEarly(ctx, runID, p, posting.RejectCPVExcluded, kw.TotalScore,
				[]string{filter.Reason})
		}
		cpvBonus = filter.BonusScore
	}

	if kw.TotalScore < e.cfg.LowKeywordThreshold && kw.Confidence == keyword.ConfidenceHigh {
		return posting.DecisionReject, e.rejectEarly(ctx, runID, p, posting.RejectLowKeywordScore, kw.TotalScore,
			[]string{fmt.Sprintf("Keyword-Score %d unter Schwelle %d bei hoher Konfidenz",
				kw.TotalScore, e.cfg.LowKeywordThreshold)})
	}

	candidates, err := e.deps.Shortlister.Shortlist(ctx, p)
	if err != nil {
		return "", fmt.Errorf("shortlist: %w", err)
	}
	if len(candidates) == 0 {
		return posting.DecisionReject, e.rejectEarly(ctx, runID, p, posting.RejectNoCandidate, kw.TotalScore,
			[]string{"Kein Kandidat über der Ähnlichkeitsschwelle"})
	}

	if err := e.deps.Store.UpdateStatus(ctx, p.ID, posting.StatusShortlisted); err != nil {
		return "", err
	}

	// Research is best effort. A failed analysis falls back to the neutral
	// fit so a service hiccup never blocks a posting.
	fit := assess.DefaultFitAnalysis()
	var research *assess.Research
	if e.deps.Researcher != nil {
		research, err = e.deps.Researcher.Research(ctx, p)
		if err != nil {
			e.logger.Warn("research failed, using neutral fit",
				zap.Int64("posting_id", p.ID),
				zap.Error(err),
			)
			research = nil
		} else {
			fit = research.Fit
		}
	}

	if hard := e.deps.Overlay.CheckHardExclusions(fit); hard != nil {
		return posting.DecisionReject, e.rejectEarly(ctx, runID, p, hard.RejectionCode, hard.Score, hard.Weaknesses)
	}

	// The flat boost bonus only takes effect when the service response
	// carries no score breakdown; the tiered result wins otherwise.
	check := e.deps.Keywords.Check(p.Title, p.Description)

	assessment, err := e.deps.Assessor.Assess(ctx, assess.Request{
		Posting:            p,
		Keyword:            &kw,
		LegacyBonus:        check.ScoreModifier,
		Research:           research,
		Candidates:         candidates,
		ActiveApplications: active,
	})
	if err != nil {
		return "", fmt.Errorf("assess: %w", err)
	}

	if err := e.deps.Store.UpdateStatus(ctx, p.ID, posting.StatusAssessed); err != nil {
		return "", err
	}

	outcome := e.deps.Overlay.Apply(assessment, fit, p.PublicSector, cpvBonus)
	return outcome.Decision, e.finalize(ctx, runID, p, assessment, outcome)
}

// finalize persists the assessment artifacts and executes the decision.
func (e *Engine) finalize(ctx context.Context, runID string, p *posting.Posting, a *assess.Assessment, outcome rules.Outcome) error {
	now := time.Now()

	if err := e.deps.Store.MarkAnalyzed(ctx, p.ID, a.ProposedRate, now); err != nil {
		return err
	}

	breakdown := map[string]int{}
	if a.Breakdown != nil {
		breakdown = a.Breakdown.Map()
	}
	if err := e.deps.Store.AddScoreHistory(ctx, p.ID, runID, assess.SchemaVersion, outcome.Score, breakdown); err != nil {
		return err
	}

	decision := &posting.Decision{
		PostingID:     p.ID,
		Score:         outcome.Score,
		Breakdown:     breakdown,
		Decision:      outcome.Decision,
		CandidateID:   a.BestCandidate.ID,
		CandidateName: a.BestCandidate.Name,
		ProposedRate:  a.ProposedRate,
		Rationale:     a.RateReasoning,
		Strengths:     a.Strengths,
		Weaknesses:    outcome.Weaknesses,
		RejectionCode: outcome.RejectionCode,
		RawEvidence:   a.Raw,
		DecidedAt:     now,
	}
	if _, err := e.deps.Store.SaveDecision(ctx, decision); err != nil {
		return err
	}

	switch outcome.Decision {
	case posting.DecisionApply:
		e.logger.Info("decision: apply",
			zap.Int64("posting_id", p.ID),
			zap.Int("score", outcome.Score),
			zap.String("candidate", a.BestCandidate.Name),
			zap.Float64("proposed_rate", a.ProposedRate),
		)
		return e.deps.Store.UpdateStatus(ctx, p.ID, posting.StatusApplied)

	case posting.DecisionReview:
		if err := e.deps.Store.EnqueueReview(ctx, p.ID,
			fmt.Sprintf("Score %d im Review-Band", outcome.Score)); err != nil {
			return err
		}
		return e.deps.Store.UpdateStatus(ctx, p.ID, posting.StatusReview)

	default:
		if err := e.deps.Store.AddRejectionReason(ctx, p.ID, outcome.RejectionCode); err != nil {
			return err
		}
		e.logger.Info("decision: reject",
			zap.Int64("posting_id", p.ID),
			zap.Int("score", outcome.Score),
			zap.String("code", outcome.RejectionCode),
		)
		return e.deps.Store.UpdateStatus(ctx, p.ID, posting.StatusRejected)
	}
}

// rejectEarly terminates a posting before or instead of an assessment. The
// decision record carries the deterministic score known at that point.
func (e *Engine) rejectEarly(ctx context.Context, runID string, p *posting.Posting, code string, score int, weaknesses []string) error {
	now := time.Now()

	if err := e.deps.Store.AddScoreHistory(ctx, p.ID, runID, assess.SchemaVersion, score, map[string]int{"skill_match": score}); err != nil {
		return err
	}

	decision := &posting.Decision{
		PostingID:     p.ID,
		Score:         score,
		Breakdown:     map[string]int{"skill_match": score},
		Decision:      posting.DecisionReject,
		Weaknesses:    weaknesses,
		RejectionCode: code,
		DecidedAt:     now,
	}
	if _, err := e.deps.Store.SaveDecision(ctx, decision); err != nil {
		return err
	}
	if err := e.deps.Store.AddRejectionReason(ctx, p.ID, code); err != nil {
		return err
	}

	e.logger.Info("early reject",
		zap.Int64("posting_id", p.ID),
		zap.String("code", code),
		zap.Int("score", score),
	)
	return e.deps.Store.UpdateStatus(ctx, p.ID, posting.StatusRejected)
}

// routeToReview puts a posting in the manual queue without any assessment.
func (e *Engine) routeToReview(ctx context.Context, p *posting.Posting, reason string) error {
	if err := e.deps.Store.EnqueueReview(ctx, p.ID, reason); err != nil {
		return err
	}
	e.logger.Info("routed to review",
		zap.Int64("posting_id", p.ID),
		zap.String("reason", reason),
	)
	return e.deps.Store.UpdateStatus(ctx, p.ID, posting.StatusReview)
}

func joinLimited(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
