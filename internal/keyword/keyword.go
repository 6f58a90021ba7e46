// Package keyword implements the deterministic keyword pre-filter that runs
// before any external call. Scoring is tiered: core-competence keywords score
// highest, each tier is capped, valuable keyword combinations earn an extra
// bonus and weighted reject keywords can terminate a posting outright.
package keyword

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Confidence levels derived from keyword density.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Config holds the curated keyword lists and scoring knobs. All values are
// injected; DefaultConfig returns the curated production set.
type Config struct {
	Tier1 []string
	Tier2 []string
	Tier3 []string

	Tier1Points int
	Tier2Points int
	Tier3Points int

	Tier1Max int
	Tier2Max int
	Tier3Max int

	// Combos maps a sorted, "+"-joined keyword pair to its bonus.
	Combos   map[string]int
	ComboMax int

	// TotalMax caps the overall keyword score.
	TotalMax int

	// RejectWeights assigns a severity weight per reject keyword. The
	// posting is rejected when the summed weight of distinct matches
	// reaches RejectThreshold.
	RejectWeights   map[string]int
	RejectThreshold int

	// BoostKeywords and BoostPoints drive the legacy flat bonus: one flat
	// bonus when at least one boost keyword matches, regardless of count.
	BoostKeywords []string
	BoostPoints   int
	// SimpleRejectThreshold is the distinct-match count that triggers a
	// reject in the simple boost/reject check (default 1).
	SimpleRejectThreshold int
}

// Result is the detailed outcome of the tiered keyword analysis. It is
// recomputed fresh per posting; identical input yields an identical result.
type Result struct {
	TotalScore     int
	Tier1Keywords  []string
	Tier2Keywords  []string
	Tier3Keywords  []string
	RejectKeywords []string
	Tier1Score     int
	Tier2Score     int
	Tier3Score     int
	ComboBonus     int
	RejectScore    int
	ShouldReject   bool
	Confidence     string
}

// CheckResult is the outcome of the simple boost/reject check.
type CheckResult struct {
	Boost          bool
	Reject         bool
	BoostKeywords  []string
	RejectKeywords []string
	ScoreModifier  int
}

// ComboKey builds the lookup key for a keyword pair bonus.
func ComboKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "+" + b
}

// Score computes the tiered keyword score over title, description and
// attached document text.
func (c *Config) Score(title, description, documentText string) Result {
	text := strings.ToLower(title + " " + description + " " + documentText)

	tier1 := findKeywords(text, c.Tier1)
	tier2 := findKeywords(text, c.Tier2)
	tier3 := findKeywords(text, c.Tier3)

	rejectScore, rejectFound := c.rejectScore(text)

	tier1Score := capped(len(tier1)*c.Tier1Points, c.Tier1Max)
	tier2Score := capped(len(tier2)*c.Tier2Points, c.Tier2Max)
	tier3Score := capped(len(tier3)*c.Tier3Points, c.Tier3Max)

	combo := c.comboBonus(tier1, tier2)

	total := capped(tier1Score+tier2Score+tier3Score+combo, c.TotalMax)

	found := len(tier1) + len(tier2) + len(tier3)
	confidence := ConfidenceLow
	switch {
	case found >= 5:
		confidence = ConfidenceHigh
	case found >= 2:
		confidence = ConfidenceMedium
	}

	return Result{
		TotalScore:     total,
		Tier1Keywords:  tier1,
		Tier2Keywords:  tier2,
		Tier3Keywords:  tier3,
		RejectKeywords: rejectFound,
		Tier1Score:     tier1Score,
		Tier2Score:     tier2Score,
		Tier3Score:     tier3Score,
		ComboBonus:     combo,
		RejectScore:    rejectScore,
		ShouldReject:   rejectScore >= c.RejectThreshold,
		Confidence:     confidence,
	}
}

// Check performs the simple boost/reject scan used as the legacy fallback
// when no tiered score is available. A single flat bonus applies when at
// least one boost keyword matches and no reject fired.
func (c *Config) Check(title, description string) CheckResult {
	text := strings.ToLower(title + " " + description)

	boostFound := findKeywords(text, c.BoostKeywords)
	rejectFound := findKeywords(text, sortedKeys(c.RejectWeights))

	threshold := c.SimpleRejectThreshold
	if threshold <= 0 {
		threshold = 1
	}

	boost := len(boostFound) > 0
	reject := len(rejectFound) >= threshold

	modifier := 0
	if boost && !reject {
		modifier = c.BoostPoints
	}

	return CheckResult{
		Boost:          boost,
		Reject:         reject,
		BoostKeywords:  boostFound,
		RejectKeywords: rejectFound,
		ScoreModifier:  modifier,
	}
}

func (c *Config) rejectScore(text string) (int, []string) {
	score := 0
	var found []string
	for _, kw := range sortedKeys(c.RejectWeights) {
		if containsWord(text, kw) {
			score += c.RejectWeights[kw]
			found = append(found, kw)
		}
	}
	return score, found
}

func (c *Config) comboBonus(tier1, tier2 []string) int {
	all := make(map[string]bool, len(tier1)+len(tier2))
	for _, kw := range tier1 {
		all[kw] = true
	}
	for _, kw := range tier2 {
		all[kw] = true
	}

	bonus := 0
	for key, points := range c.Combos {
		pair := strings.SplitN(key, "+", 2)
		if len(pair) != 2 {
			continue
		}
		if all[pair[0]] && all[pair[1]] {
			bonus += points
		}
	}
	return capped(bonus, c.ComboMax)
}

func findKeywords(text string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if containsWord(text, kw) {
			found = append(found, kw)
		}
	}
	sort.Strings(found)
	return found
}

// containsWord reports whether keyword occurs in text delimited by
// non-alphanumeric runes. This keeps "api" from matching "capital" and still
// handles tokens like "c#" and ".net" that regexp word boundaries mishandle.
func containsWord(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(text[start:], keyword)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(keyword)

		leftOK := idx == 0
		if !leftOK {
			r, _ := utf8.DecodeLastRuneInString(text[:idx])
			leftOK = !isWordRune(r)
		}
		rightOK := end == len(text)
		if !rightOK {
			r, _ := utf8.DecodeRuneInString(text[end:])
			rightOK = !isWordRune(r)
		}
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func capped(v, maximum int) int {
	if v > maximum {
		return maximum
	}
	if v < 0 {
		return 0
	}
	return v
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
