// Package rules applies the deterministic business overlay on top of a
// reconciled assessment: hard exclusions, bonuses, soft maluses, threshold
// mapping and rejection-code selection.
package rules

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/assess"
	"github.com/quellwerk/akquise-engine/internal/posting"
)

// Score adjustments of the fit overlay.
const (
	MalusTeamSize        = 30
	MalusBudgetOver      = 25
	MalusExclusionHigh   = 40
	MalusExclusionMedium = 15
	BonusArchetype       = 5

	// Reasons appended per exclusion-risk tier. Top reasons only.
	highRiskReasons   = 3
	mediumRiskReasons = 2
)

// Config carries the validated overlay settings.
type Config struct {
	// BudgetCeiling is the maximum project budget the team bids on.
	BudgetCeiling float64
	// BudgetHardMargin is the fraction above the ceiling at which the
	// budget becomes a hard exclusion instead of a malus.
	BudgetHardMargin float64
	// TeamSizeCap is the required team size above which the posting is
	// excluded outright.
	TeamSizeCap int
	// PublicSectorBonus is the flat bonus for public-sector postings.
	PublicSectorBonus int
	// ThresholdReject and ThresholdApply bound the review band:
	// score < reject → reject, score ≥ apply → apply, in between → review.
	ThresholdReject int
	ThresholdApply  int
}

// DefaultConfig mirrors the production settings.
func DefaultConfig() Config {
	return Config{
		BudgetCeiling:     250_000,
		BudgetHardMargin:  0.20,
		TeamSizeCap:       5,
		PublicSectorBonus: 5,
		ThresholdReject:   60,
		ThresholdApply:    75,
	}
}

// Outcome is the final decision material produced by the overlay.
type Outcome struct {
	Score         int
	Decision      string
	RejectionCode string
	Weaknesses    []string
	HardExcluded  bool
}

// Overlay applies the business rules in fixed order.
type Overlay struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an Overlay.
func New(cfg Config, logger *zap.Logger) *Overlay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Overlay{cfg: cfg, logger: logger}
}

// hardBudgetLimit is the ceiling plus the hard margin.
func (o *Overlay) hardBudgetLimit() float64 {
	return o.cfg.BudgetCeiling * (1 + o.cfg.BudgetHardMargin)
}

// CheckHardExclusions evaluates the short-circuit criteria. A non-nil
// outcome is a terminal reject that bypasses scoring entirely.
func (o *Overlay) CheckHardExclusions(fit assess.FitAnalysis) *Outcome {
	if !fit.ConsortiumAllowed {
		return o.hardReject(posting.RejectConsortiumNotAllowed,
			"Bietergemeinschaft ausgeschlossen",
			"Nur Einzelbieter zugelassen",
		)
	}

	if fit.RequiresSecurityClearance {
		return o.hardReject(posting.RejectSecurityClearance,
			"Sicherheitsüberprüfung (Ü1/Ü2/Ü3) erforderlich",
			"Team hat keine Sicherheitsfreigabe",
		)
	}

	if fit.EstimatedBudgetMax > o.hardBudgetLimit() {
		return o.hardReject(posting.RejectBudgetTooHigh,
			fmt.Sprintf("Budget €%.0f über Limit (€%.0f)", fit.EstimatedBudgetMax, o.cfg.BudgetCeiling),
			"Projektumfang für kleines Team nicht machbar",
		)
	}

	if fit.MinTeamSizeRequired > o.cfg.TeamSizeCap {
		return o.hardReject(posting.RejectTeamSizeMismatch,
			fmt.Sprintf("Mindestens %d Personen erforderlich", fit.MinTeamSizeRequired),
			"Kleines Team nicht ausreichend",
		)
	}

	return nil
}

func (o *Overlay) hardReject(code string, weaknesses ...string) *Outcome {
	o.logger.Info("hard exclusion", zap.String("code", code))
	return &Outcome{
		Score:         0,
		Decision:      posting.DecisionReject,
		RejectionCode: code,
		Weaknesses:    weaknesses,
		HardExcluded:  true,
	}
}

// Apply runs the full overlay over a reconciled assessment. Processing
// order is fixed: hard exclusions, public-sector bonus, classification
// bonus, soft maluses, archetype bonus, threshold mapping, rejection-code
// selection. cpvBonus is the accumulated classification-code bonus of a
// tender; zero for freelance postings.
func (o *Overlay) Apply(a *assess.Assessment, fit assess.FitAnalysis, publicSector bool, cpvBonus int) Outcome {
	if hard := o.CheckHardExclusions(fit); hard != nil {
		return *hard
	}

	score := a.Score
	weaknesses := append([]string(nil), a.Weaknesses...)

	if publicSector {
		score = min(100, score+o.cfg.PublicSectorBonus)
		o.logger.Debug("public sector bonus", zap.Int("bonus", o.cfg.PublicSectorBonus))
	}

	if cpvBonus > 0 {
		score = min(100, score+cpvBonus)
		o.logger.Debug("classification bonus", zap.Int("bonus", cpvBonus))
	}

	if !fit.FitsSmallTeam && fit.MinTeamSizeRequired <= o.cfg.TeamSizeCap {
		score = max(0, score-MalusTeamSize)
		weaknesses = append(weaknesses,
			fmt.Sprintf("Team-Größe kritisch: %d Personen empfohlen", fit.MinTeamSizeRequired))
		o.logger.Debug("team size malus", zap.Int("malus", MalusTeamSize))
	}

	if fit.EstimatedBudgetMax > o.cfg.BudgetCeiling && fit.EstimatedBudgetMax <= o.hardBudgetLimit() {
		score = max(0, score-MalusBudgetOver)
		weaknesses = append(weaknesses,
			fmt.Sprintf("Budget €%.0f knapp über Limit", fit.EstimatedBudgetMax))
		o.logger.Debug("budget malus", zap.Int("malus", MalusBudgetOver))
	}

	switch fit.ExclusionRisk {
	case "high":
		score = max(0, score-MalusExclusionHigh)
		weaknesses = append(weaknesses, topReasons(fit.ExclusionReasons, highRiskReasons)...)
		o.logger.Debug("exclusion risk malus", zap.String("risk", "high"), zap.Int("malus", MalusExclusionHigh))
	case "medium":
		score = max(0, score-MalusExclusionMedium)
		weaknesses = append(weaknesses, topReasons(fit.ExclusionReasons, mediumRiskReasons)...)
		o.logger.Debug("exclusion risk malus", zap.String("risk", "medium"), zap.Int("malus", MalusExclusionMedium))
	}

	if fit.IsWebApp || fit.IsMobileApp || fit.IsAPIBackend {
		score = min(100, score+BonusArchetype)
		o.logger.Debug("archetype bonus", zap.Int("bonus", BonusArchetype))
	}

	decision := o.Decide(score)

	code := ""
	if decision == posting.DecisionReject {
		code = a.RejectionCode
		if !posting.KnownRejectionCode(code) {
			code = o.RejectionCode(fit)
		}
	}

	return Outcome{
		Score:         score,
		Decision:      decision,
		RejectionCode: code,
		Weaknesses:    weaknesses,
	}
}

// Decide maps a score onto the decision bands. The review band is
// guaranteed non-empty by config validation.
func (o *Overlay) Decide(score int) string {
	switch {
	case score >= o.cfg.ThresholdApply:
		return posting.DecisionApply
	case score >= o.cfg.ThresholdReject:
		return posting.DecisionReview
	default:
		return posting.DecisionReject
	}
}

// RejectionCode picks the code for a rejection the assessment did not
// explain, by fixed priority over the fired fit conditions.
func (o *Overlay) RejectionCode(fit assess.FitAnalysis) string {
	switch {
	case !fit.ConsortiumAllowed:
		return posting.RejectConsortiumNotAllowed
	case fit.RequiresSecurityClearance:
		return posting.RejectSecurityClearance
	case len(fit.RequiresCertifications) > 0:
		return posting.RejectCertificationRequired
	case fit.RequiresReferences:
		return posting.RejectReferencesRequired
	case fit.RequiresSpecificLegalForm:
		return posting.RejectLegalFormMismatch
	case fit.MinAnnualRevenue > 0 || fit.MinEmployeeCount > 0:
		return posting.RejectMinSizeNotMet
	case !fit.FitsSmallTeam:
		return posting.RejectTeamSizeMismatch
	case fit.EstimatedBudgetMax > o.cfg.BudgetCeiling:
		return posting.RejectBudgetTooHigh
	default:
		return posting.RejectProjectTooLarge
	}
}

func topReasons(reasons []string, n int) []string {
	if len(reasons) <= n {
		return reasons
	}
	return reasons[:n]
}
