package assess

import (
	"go.uber.org/zap"
)

// SchemaVersion identifies the breakdown layout persisted with each score
// history row. Bump it whenever the component set or its bounds change.
const SchemaVersion = 2

// Breakdown is the per-component score decomposition. The bounds sum to 100,
// so a reconciled total needs no further normalization.
type Breakdown struct {
	SkillMatch  int `mapstructure:"skill_match" json:"skill_match" validate:"gte=0,lte=40"`
	Experience  int `mapstructure:"experience" json:"experience" validate:"gte=0,lte=25"`
	Embedding   int `mapstructure:"embedding" json:"embedding" validate:"gte=0,lte=15"`
	MarketFit   int `mapstructure:"market_fit" json:"market_fit" validate:"gte=0,lte=10"`
	RiskFactors int `mapstructure:"risk_factors" json:"risk_factors" validate:"gte=0,lte=10"`
}

// Total sums the components.
func (b Breakdown) Total() int {
	return b.SkillMatch + b.Experience + b.Embedding + b.MarketFit + b.RiskFactors
}

// Map converts the breakdown to the generic form stored on a decision.
func (b Breakdown) Map() map[string]int {
	return map[string]int{
		"skill_match":  b.SkillMatch,
		"experience":   b.Experience,
		"embedding":    b.Embedding,
		"market_fit":   b.MarketFit,
		"risk_factors": b.RiskFactors,
	}
}

// breakdownBounds drives clamping of the raw response. Order matters only
// for deterministic logging.
var breakdownBounds = []struct {
	field string
	max   int
}{
	{"skill_match", 40},
	{"experience", 25},
	{"embedding", 15},
	{"market_fit", 10},
	{"risk_factors", 10},
}

// clampBreakdown forces every declared breakdown component of the raw
// decoded payload into its [0,max] range before structural validation runs.
// Out-of-range values from the external service are repaired, not fatal;
// every repair is logged. Returns the number of clamped fields.
func clampBreakdown(data map[string]any, logger *zap.Logger) int {
	raw, ok := data["score_breakdown"].(map[string]any)
	if !ok {
		return 0
	}

	clamped := 0
	for _, bound := range breakdownBounds {
		value, ok := raw[bound.field]
		if !ok {
			continue
		}
		number, ok := asFloat(value)
		if !ok {
			continue
		}

		original := int(number)
		repaired := original
		if repaired < 0 {
			repaired = 0
		}
		if repaired > bound.max {
			repaired = bound.max
		}
		raw[bound.field] = repaired

		if repaired != original {
			clamped++
			logger.Warn("clamped breakdown component",
				zap.String("field", bound.field),
				zap.Int("old", original),
				zap.Int("new", repaired),
				zap.Int("max", bound.max),
			)
		}
	}
	return clamped
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
