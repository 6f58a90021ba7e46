// Package assess turns a posting plus its shortlisted candidates into a
// reconciled assessment via an external generation service. The service
// output is untrusted: every response is clamped, validated and corrected
// deterministically before anything downstream sees it.
package assess

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
	"github.com/quellwerk/akquise-engine/internal/utils"
)

// Generator produces a text completion for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Request bundles everything one assessment needs.
type Request struct {
	Posting            *posting.Posting
	Keyword            *keyword.Result
	LegacyBonus        int
	Research           *Research
	Candidates         []posting.CandidateProfile
	ActiveApplications int
}

// Config holds the assessor knobs surfaced through the CLI config.
type Config struct {
	MaxActive       int
	ThresholdReject int
	ThresholdReview int
	ThresholdApply  int
}

// Assessor drives the prompt → service → reconcile cycle with retry and
// rate limiting.
type Assessor struct {
	generator Generator
	limiter   *rate.Limiter
	cfg       Config
	logger    *zap.Logger
	maxLogLen int
}

// New creates an Assessor. A nil limiter disables rate limiting.
func New(generator Generator, limiter *rate.Limiter, cfg Config, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{
		generator: generator,
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
		maxLogLen: 200,
	}
}

// Assess runs one assessment. Transient service failures are retried with
// backoff; an invalid response after clamping is terminal for the posting.
func (a *Assessor) Assess(ctx context.Context, req Request) (*Assessment, error) {
	prompt := BuildPrompt(PromptInput{
		Title:              req.Posting.Title,
		Description:        req.Posting.Description,
		Skills:             req.Posting.Skills,
		DocumentText:       req.Posting.DocumentText,
		Keyword:            req.Keyword,
		Research:           req.Research,
		Candidates:         req.Candidates,
		ActiveApplications: req.ActiveApplications,
		MaxActive:          a.cfg.MaxActive,
		PublicSector:       req.Posting.PublicSector,
		ThresholdReject:    a.cfg.ThresholdReject,
		ThresholdReview:    a.cfg.ThresholdReview,
		ThresholdApply:     a.cfg.ThresholdApply,
	})

	a.logger.Debug("assessment request",
		zap.Int64("posting_id", req.Posting.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var raw string
	err := withRetry(ctx, a.logger, "assessment", func() error {
		var genErr error
		raw, genErr = a.generator.GenerateContent(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("assessment response",
		zap.Int64("posting_id", req.Posting.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	out, warnings, err := ParseOutput(raw, a.logger)
	if err != nil {
		return nil, err
	}

	assessment := Reconcile(out, req.Keyword, req.LegacyBonus, req.Candidates, a.logger)
	assessment.Raw = raw
	assessment.Warnings = warnings
	return assessment, nil
}
