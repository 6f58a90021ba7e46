package assess

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/posting"
	"github.com/quellwerk/akquise-engine/internal/utils"
)

//go:embed research_prompt.md
var researchPromptTemplate string

// Research is the client/project analysis embedded into the assessment
// prompt and consumed by the rule overlay via its fit analysis.
type Research struct {
	ClientInfo           string      `mapstructure:"client_info"`
	ProjectType          string      `mapstructure:"project_type"`
	EstimatedBudgetRange string      `mapstructure:"estimated_budget_range"`
	RedFlags             []string    `mapstructure:"red_flags"`
	Opportunities        []string    `mapstructure:"opportunities"`
	Recommendation       string      `mapstructure:"recommendation"`
	Fit                  FitAnalysis `mapstructure:"fit_analysis"`
	Raw                  string      `mapstructure:"-"`
}

// FitAnalysis is the suitability analysis for a small consortium team. It
// feeds the hard exclusions and soft maluses of the rule overlay.
type FitAnalysis struct {
	EstimatedBudgetMin float64 `mapstructure:"estimated_budget_min"`
	EstimatedBudgetMax float64 `mapstructure:"estimated_budget_max"`
	BudgetSource       string  `mapstructure:"budget_source"`

	MinTeamSizeRequired int  `mapstructure:"min_team_size_required"`
	FitsSmallTeam       bool `mapstructure:"fits_small_team"`

	IsWebApp     bool `mapstructure:"is_webapp"`
	IsMobileApp  bool `mapstructure:"is_mobile_app"`
	IsAPIBackend bool `mapstructure:"is_api_backend"`

	RequiresReferences        bool     `mapstructure:"requires_references"`
	RequiresCertifications    []string `mapstructure:"requires_certifications"`
	RequiresSecurityClearance bool     `mapstructure:"requires_security_clearance"`
	RequiresSpecificLegalForm bool     `mapstructure:"requires_specific_legal_form"`
	ConsortiumAllowed         bool     `mapstructure:"consortium_allowed"`
	MinAnnualRevenue          float64  `mapstructure:"min_annual_revenue"`
	MinEmployeeCount          int      `mapstructure:"min_employee_count"`

	ExclusionRisk    string   `mapstructure:"exclusion_risk"`
	ExclusionReasons []string `mapstructure:"exclusion_reasons"`
}

// DefaultFitAnalysis is the neutral analysis used when no research ran. It
// blocks nothing: consortium allowed, small team fits, low risk.
func DefaultFitAnalysis() FitAnalysis {
	return FitAnalysis{
		MinTeamSizeRequired: 1,
		FitsSmallTeam:       true,
		ConsortiumAllowed:   true,
		ExclusionRisk:       "low",
	}
}

// Researcher runs the client/project analysis through the generator.
type Researcher struct {
	generator Generator
	logger    *zap.Logger
}

// NewResearcher creates a Researcher.
func NewResearcher(generator Generator, logger *zap.Logger) *Researcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{generator: generator, logger: logger}
}

// Research analyzes the posting. Missing fit-analysis fields decode to the
// neutral defaults, so a sparse response never blocks a posting by accident.
func (r *Researcher) Research(ctx context.Context, p *posting.Posting) (*Research, error) {
	prompt := buildResearchPrompt(p)

	r.logger.Debug("research request",
		zap.Int64("posting_id", p.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, 200)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	research, err := parseResearch(raw)
	if err != nil {
		return nil, err
	}
	research.Raw = raw
	return research, nil
}

func buildResearchPrompt(p *posting.Posting) string {
	prompt := researchPromptTemplate
	description := truncateText(p.Description, MaxDescriptionChars)
	if description == "" {
		description = "Keine Beschreibung"
	}
	client := p.ClientName
	if client == "" {
		client = "Unbekannt"
	}

	prompt = strings.ReplaceAll(prompt, "{{TITLE}}", p.Title)
	prompt = strings.ReplaceAll(prompt, "{{CLIENT}}", client)
	prompt = strings.ReplaceAll(prompt, "{{DESCRIPTION}}", description)
	prompt = strings.ReplaceAll(prompt, "{{DOCUMENT_SECTION}}", documentSection(p.DocumentText))
	return prompt
}

func parseResearch(raw string) (*Research, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, NewValidationError("research not a JSON object: "+err.Error(), raw)
	}

	research := Research{Fit: DefaultFitAnalysis()}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &research,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, NewValidationError("research decode: "+err.Error(), raw)
	}

	return &research, nil
}
