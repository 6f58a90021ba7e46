// Package cpv filters tenders by Common Procurement Vocabulary codes before
// any text analysis. The taxonomy coverage is intentionally incomplete:
// unknown codes pass through so the free-text stages can decide.
package cpv

import (
	"fmt"
	"sort"
	"strings"
)

// FilterResult is the verdict of the classification-code filter.
type FilterResult struct {
	Passes        bool
	RelevantCodes []string
	ExcludedCodes []string
	BonusScore    int
	Reason        string
}

// Filter holds the relevant/excluded code sets. All sets are injected;
// DefaultFilter returns the curated production taxonomy subset.
type Filter struct {
	// Relevant maps normalized 8-digit codes to descriptions.
	Relevant map[string]string
	// Excluded maps normalized 8-digit codes to descriptions.
	Excluded map[string]string
	// Bonus assigns extra points to particularly relevant codes.
	Bonus map[string]int
	// HierarchyPrefixes maps 2-5 digit prefixes to category descriptions.
	HierarchyPrefixes map[string]string
	// FallbackKeywords let tenders without any code pass on text evidence.
	FallbackKeywords []string
}

// Normalize brings a CPV code into the 8-digit comparison form: the check
// digit after "-" is dropped and short prefixes are right-padded with zeros.
func Normalize(code string) string {
	code = strings.TrimSpace(strings.SplitN(code, "-", 2)[0])
	if len(code) < 8 {
		code = code + strings.Repeat("0", 8-len(code))
	}
	return code[:8]
}

// Apply checks the tender's codes against the filter sets.
//
// Excluded-only codes reject. Any relevant (or hierarchy) match passes and
// accumulates bonus points across codes. Unknown codes pass through for text
// analysis. Without codes, a software-keyword scan of title/description
// decides.
func (f *Filter) Apply(codes []string, title, description string) FilterResult {
	if len(codes) == 0 {
		return f.textFallback(title, description)
	}

	var relevant, excluded, hierarchy []string
	bonus := 0

	for _, code := range codes {
		normalized := Normalize(code)

		if desc, ok := f.Relevant[normalized]; ok {
			relevant = append(relevant, fmt.Sprintf("%s (%s)", normalized, desc))
			bonus += f.Bonus[normalized]
			continue
		}

		if desc, ok := f.Excluded[normalized]; ok {
			excluded = append(excluded, fmt.Sprintf("%s (%s)", normalized, desc))
			continue
		}

		if match, hierarchyBonus, desc := f.matchHierarchy(normalized); match {
			hierarchy = append(hierarchy, fmt.Sprintf("%s (%s)", normalized, desc))
			bonus += hierarchyBonus
		}
	}

	if len(excluded) > 0 && len(relevant) == 0 && len(hierarchy) == 0 {
		return FilterResult{
			Passes:        false,
			ExcludedCodes: excluded,
			Reason:        "only excluded classification codes: " + strings.Join(excluded, ", "),
		}
	}

	if len(relevant) > 0 {
		return FilterResult{
			Passes:        true,
			RelevantCodes: relevant,
			ExcludedCodes: excluded,
			BonusScore:    bonus,
			Reason:        "relevant classification codes: " + strings.Join(relevant, ", "),
		}
	}

	if len(hierarchy) > 0 {
		return FilterResult{
			Passes:        true,
			RelevantCodes: hierarchy,
			ExcludedCodes: excluded,
			BonusScore:    bonus,
			Reason:        "classification hierarchy match: " + strings.Join(hierarchy, ", "),
		}
	}

	return FilterResult{
		Passes: true,
		Reason: "no known classification codes, deferring to text analysis",
	}
}

// matchHierarchy checks prefixes from long to short. Shorter prefixes are
// less specific and earn a smaller bonus.
func (f *Filter) matchHierarchy(code string) (bool, int, string) {
	for _, prefixLen := range []int{5, 4, 3, 2} {
		if prefixLen > len(code) {
			continue
		}
		prefix := code[:prefixLen]
		if desc, ok := f.HierarchyPrefixes[prefix]; ok {
			bonus := 5 - prefixLen
			if bonus < 1 {
				bonus = 1
			}
			return true, bonus, fmt.Sprintf("hierarchy %s: %s", prefix, desc)
		}
	}
	return false, 0, ""
}

func (f *Filter) textFallback(title, description string) FilterResult {
	text := strings.ToLower(title + " " + description)
	// Sorted copy: the first reported keyword stays deterministic without
	// reordering the configured slice.
	keywords := append([]string(nil), f.FallbackKeywords...)
	sort.Strings(keywords)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return FilterResult{
				Passes: true,
				Reason: "text fallback: software keyword " + kw,
			}
		}
	}
	return FilterResult{
		Passes: false,
		Reason: "no classification codes and no software keywords in text",
	}
}

// Description returns the taxonomy description for a code, if known.
func (f *Filter) Description(code string) (string, bool) {
	normalized := Normalize(code)
	if desc, ok := f.Relevant[normalized]; ok {
		return desc, true
	}
	if desc, ok := f.Excluded[normalized]; ok {
		return desc, true
	}
	return "", false
}
