package assess

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
)

// Output is the raw assessment response after clamping and structural
// validation, before business reconciliation.
type Output struct {
	Score               int        `mapstructure:"score" validate:"gte=0,lte=100"`
	ScoreBreakdown      *Breakdown `mapstructure:"score_breakdown" validate:"omitempty"`
	BestCandidateName   string     `mapstructure:"best_candidate_name" validate:"required"`
	ProposedRate        float64    `mapstructure:"proposed_rate" validate:"gt=0"`
	RateReasoning       string     `mapstructure:"rate_reasoning"`
	Strengths           []string   `mapstructure:"strengths"`
	Weaknesses          []string   `mapstructure:"weaknesses"`
	Decision            string     `mapstructure:"decision" validate:"oneof=apply review reject"`
	RejectionReasonCode string     `mapstructure:"rejection_reason_code"`
}

var validate = validator.New()

// ParseOutput turns the raw service response into a validated Output. Code
// fences are stripped, every declared breakdown component is clamped to its
// bounds before validation, and only then is the payload decoded and
// structurally validated. A validation failure is terminal for the attempt.
func ParseOutput(raw string, logger *zap.Logger) (*Output, int, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, 0, NewValidationError("not a JSON object: "+err.Error(), raw)
	}

	warnings := clampBreakdown(data, logger)

	var out Output
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, warnings, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, warnings, NewValidationError("decode: "+err.Error(), raw)
	}

	if err := validate.Struct(&out); err != nil {
		return nil, warnings, NewValidationError("schema: "+err.Error(), raw)
	}

	return &out, warnings, nil
}

// Assessment is the reconciled result handed to the business-rule overlay.
// Score and breakdown are already consistent with each other; the decision
// label is the service's suggestion and not final.
type Assessment struct {
	Score         int
	Breakdown     *Breakdown
	BestCandidate posting.CandidateProfile
	ProposedRate  float64
	RateReasoning string
	Strengths     []string
	Weaknesses    []string
	Decision      string
	RejectionCode string
	Raw           string
	Warnings      int
}

// legacyBonusCap keeps the flat keyword bonus from pushing past 100.
const legacyBonusCap = 100

// Reconcile applies the deterministic corrections to a validated output.
//
// The skill-match component is never trusted from the service: when a
// keyword result exists it is overridden with the precomputed score and the
// total recomputed as the breakdown sum. Without one, the legacy flat bonus
// applies instead, capped at 100. The proposed rate is floored at the chosen
// candidate's minimum; the candidate is resolved by name with fallback to
// the top-shortlisted profile.
func Reconcile(out *Output, kw *keyword.Result, legacyBonus int, candidates []posting.CandidateProfile, logger *zap.Logger) *Assessment {
	score := out.Score
	breakdown := out.ScoreBreakdown

	if kw != nil && breakdown != nil {
		adjusted := *breakdown
		adjusted.SkillMatch = kw.TotalScore
		breakdown = &adjusted
		score = adjusted.Total()
		logger.Debug("score recomputed with keyword override",
			zap.Int("score", score),
			zap.Int("skill_match", adjusted.SkillMatch),
			zap.Int("experience", adjusted.Experience),
			zap.Int("embedding", adjusted.Embedding),
			zap.Int("market_fit", adjusted.MarketFit),
			zap.Int("risk_factors", adjusted.RiskFactors),
		)
	} else if legacyBonus > 0 {
		score += legacyBonus
		if score > legacyBonusCap {
			score = legacyBonusCap
		}
		logger.Debug("applied legacy keyword bonus", zap.Int("bonus", legacyBonus), zap.Int("score", score))
	}

	best := resolveCandidate(out.BestCandidateName, candidates)

	rate := out.ProposedRate
	if rate < best.MinHourlyRate {
		logger.Debug("proposed rate floored at candidate minimum",
			zap.Float64("proposed", rate),
			zap.Float64("minimum", best.MinHourlyRate),
		)
		rate = best.MinHourlyRate
	}

	return &Assessment{
		Score:         score,
		Breakdown:     breakdown,
		BestCandidate: best,
		ProposedRate:  rate,
		RateReasoning: out.RateReasoning,
		Strengths:     out.Strengths,
		Weaknesses:    out.Weaknesses,
		Decision:      out.Decision,
		RejectionCode: out.RejectionReasonCode,
	}
}

// resolveCandidate matches the service's candidate name against the
// shortlist, case-insensitively. An unknown name falls back to the
// top-shortlisted profile.
func resolveCandidate(name string, candidates []posting.CandidateProfile) posting.CandidateProfile {
	if len(candidates) == 0 {
		return posting.CandidateProfile{}
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, c := range candidates {
		if strings.ToLower(c.Name) == lower {
			return c
		}
	}
	return candidates[0]
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
