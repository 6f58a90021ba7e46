package assess

import (
	"fmt"
	"strconv"
	"strings"

	_ "embed"

	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
)

//go:embed prompt.md
var promptTemplate string

// Character budgets keep the prompt bounded regardless of input size.
const (
	MaxDescriptionChars  = 3000
	MaxDocumentTextChars = 5000
)

// truncationMarker makes a cut visible to the service instead of silently
// ending mid-sentence.
const truncationMarker = "\n[...]"

// PromptInput carries everything the assessment prompt embeds.
type PromptInput struct {
	Title              string
	Description        string
	Skills             []string
	DocumentText       string
	Keyword            *keyword.Result
	Research           *Research
	Candidates         []posting.CandidateProfile
	ActiveApplications int
	MaxActive          int
	PublicSector       bool
	ThresholdReject    int
	ThresholdReview    int
	ThresholdApply     int
}

// BuildPrompt renders the assessment prompt from the embedded template.
func BuildPrompt(in PromptInput) string {
	prompt := promptTemplate

	description := truncateText(in.Description, MaxDescriptionChars)
	if description == "" {
		description = "Keine Beschreibung"
	}

	skills := "Nicht spezifiziert"
	if len(in.Skills) > 0 {
		skills = strings.Join(in.Skills, ", ")
	}

	publicSector := "Nein"
	if in.PublicSector {
		publicSector = "Ja (bevorzugt)"
	}

	replacements := map[string]string{
		"{{TITLE}}":               in.Title,
		"{{DESCRIPTION}}":         description,
		"{{SKILLS}}":              skills,
		"{{DOCUMENT_SECTION}}":    documentSection(in.DocumentText),
		"{{KEYWORD_SECTION}}":     keywordSection(in.Keyword),
		"{{RESEARCH_SECTION}}":    researchSection(in.Research),
		"{{CANDIDATES}}":          candidatesSection(in.Candidates),
		"{{ACTIVE_APPLICATIONS}}": strconv.Itoa(in.ActiveApplications),
		"{{MAX_ACTIVE}}":          strconv.Itoa(in.MaxActive),
		"{{PUBLIC_SECTOR}}":       publicSector,
		"{{THRESHOLD_REJECT}}":    strconv.Itoa(in.ThresholdReject),
		"{{THRESHOLD_REVIEW}}":    strconv.Itoa(in.ThresholdReview),
		"{{THRESHOLD_APPLY}}":     strconv.Itoa(in.ThresholdApply),
		"{{REJECTION_CODES}}":     strings.Join(promptRejectionCodes, ", "),
	}

	for placeholder, value := range replacements {
		prompt = strings.ReplaceAll(prompt, placeholder, value)
	}
	return prompt
}

// promptRejectionCodes is the subset the service may choose from; overlay
// codes are selected deterministically and never requested from the service.
var promptRejectionCodes = []string{
	posting.RejectBudgetTooLow,
	posting.RejectTechStackMismatch,
	posting.RejectExperienceInsufficient,
	posting.RejectTimelineConflict,
	posting.RejectCapacityFull,
}

func documentSection(text string) string {
	truncated := truncateText(text, MaxDocumentTextChars)
	if truncated == "" {
		return ""
	}
	return fmt.Sprintf("\nAUSSCHREIBUNGSUNTERLAGEN (PDF)\n==============================\n%s\n", truncated)
}

func keywordSection(kw *keyword.Result) string {
	if kw == nil {
		return ""
	}

	tier1 := "keine"
	if len(kw.Tier1Keywords) > 0 {
		tier1 = strings.Join(kw.Tier1Keywords, ", ")
	}
	tier2 := "keine"
	if len(kw.Tier2Keywords) > 0 {
		tier2 = strings.Join(kw.Tier2Keywords, ", ")
	}

	return fmt.Sprintf(`
KEYWORD-ANALYSE (vorberechnet)
==============================
Keyword-Score: %d/40 Punkte
Tier-1 Keywords (Kernkompetenz): %s
Tier-2 Keywords (starke Passung): %s
Combo-Bonus: +%d Punkte
Confidence: %s
WICHTIG: Übernimm diesen Score für skill_match!
`, kw.TotalScore, tier1, tier2, kw.ComboBonus, kw.Confidence)
}

func researchSection(r *Research) string {
	if r == nil {
		return "Keine Kundenanalyse vorhanden"
	}

	redFlags := "Keine"
	if len(r.RedFlags) > 0 {
		redFlags = strings.Join(r.RedFlags, ", ")
	}
	opportunities := "Keine"
	if len(r.Opportunities) > 0 {
		opportunities = strings.Join(r.Opportunities, ", ")
	}

	return fmt.Sprintf("Projekttyp: %s\nBudget-Einschätzung: %s\nRed Flags: %s\nChancen: %s",
		r.ProjectType, r.EstimatedBudgetRange, redFlags, opportunities)
}

func candidatesSection(candidates []posting.CandidateProfile) string {
	if len(candidates) == 0 {
		return "Keine Kandidaten"
	}

	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		skills := c.Skills
		if len(skills) > 10 {
			skills = skills[:10]
		}
		lines = append(lines, fmt.Sprintf(
			"- %s (%s): Skills: %s, Erfahrung: %d Jahre, Min. Rate: %.0f€/h, Ähnlichkeit: %.2f",
			c.Name, c.Role, strings.Join(skills, ", "), c.YearsExperience, c.MinHourlyRate, c.Similarity,
		))
	}
	return strings.Join(lines, "\n")
}

// truncateText cuts text to the budget and appends the marker when it did.
func truncateText(text string, maxChars int) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + truncationMarker
}
