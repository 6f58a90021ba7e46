// Package dedup detects the same real-world opportunity appearing on
// multiple source feeds. It implements two algorithms: an incoming-vs-existing
// check that runs before persistence and a periodic batch clustering over a
// bounded lookback window.
package dedup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	longNumberRE  = regexp.MustCompile(`\b\d{4,}\b`)
	dottedDateRE  = regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`)
	isoDateRE     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	boilerplateRE = regexp.MustCompile(`(?i)\b(ausschreibung|vergabe|projekt|bekanntmachung)\b`)
	nonAlnumRE    = regexp.MustCompile(`[^a-z0-9\s]`)
)

var diacriticsFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeText lowercases, strips diacritics and punctuation and collapses
// whitespace, producing the comparison form used by all similarity measures.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	if folded, _, err := transform.String(diacriticsFold, text); err == nil {
		text = folded
	}
	text = nonAlnumRE.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeTitle prepares a posting title for duplicate comparison. On top of
// NormalizeText it removes long numbers (reference ids), date substrings and
// administrative boilerplate words that differ between portals.
func NormalizeTitle(title string) string {
	// Dates first: stripping long numbers would leave date fragments behind.
	title = dottedDateRE.ReplaceAllString(title, "")
	title = isoDateRE.ReplaceAllString(title, "")
	title = longNumberRE.ReplaceAllString(title, "")
	title = boilerplateRE.ReplaceAllString(title, "")
	return NormalizeText(title)
}

var clientSuffixes = []string{
	"gmbh", "ag", "kg", "ohg", "ev", "eg", "mbh", "ug", "gbr", "se",
	"bundesamt", "ministerium", "landesamt", "stadt", "kommune",
	"behoerde", "behorde", "amt", "verwaltung", "des", "der", "fuer", "fur",
}

// NormalizeClientName strips legal-form and authority suffixes that carry no
// identity information when comparing contracting parties.
func NormalizeClientName(name string) string {
	normalized := NormalizeText(name)
	if normalized == "" {
		return ""
	}

	fields := strings.Fields(normalized)
	kept := fields[:0]
	for _, word := range fields {
		suffix := false
		for _, s := range clientSuffixes {
			if word == s {
				suffix = true
				break
			}
		}
		if !suffix {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

// JaccardWords computes word-set Jaccard similarity of two normalized strings.
func JaccardWords(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0
	}

	set1 := wordSet(s1)
	set2 := wordSet(s2)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	intersection := 0
	for w := range set1 {
		if set2[w] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

// JaccardTrigrams computes character 3-gram Jaccard similarity, which picks
// up typos and minor spelling variations the word comparison misses.
func JaccardTrigrams(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0
	}

	set1 := trigramSet(s1)
	set2 := trigramSet(s2)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	intersection := 0
	for g := range set1 {
		if set2[g] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

// Combined is the weighted similarity used for duplicate detection. Word
// overlap is weighted more heavily because it captures meaning; trigrams
// cover spelling drift.
func Combined(s1, s2 string) float64 {
	return 0.7*JaccardWords(s1, s2) + 0.3*JaccardTrigrams(s1, s2)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func trigramSet(s string) map[string]bool {
	s = strings.ReplaceAll(s, " ", "")
	set := make(map[string]bool)
	runes := []rune(s)
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[string(runes)] = true
		}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}
