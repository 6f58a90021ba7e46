package posting

// Rejection codes form a closed taxonomy. Every reject decision carries
// exactly one of these.
const (
	RejectBudgetTooLow           = "BUDGET_TOO_LOW"
	RejectTechStackMismatch      = "TECH_STACK_MISMATCH"
	RejectExperienceInsufficient = "EXPERIENCE_INSUFFICIENT"
	RejectTimelineConflict       = "TIMELINE_CONFLICT"
	RejectCapacityFull           = "CAPACITY_FULL"
	RejectKeyword                = "KEYWORD_REJECT"
	RejectLowKeywordScore        = "LOW_KEYWORD_SCORE"
	RejectCPVExcluded            = "CPV_EXCLUDED"
	RejectTeamSizeMismatch       = "TEAM_SIZE_MISMATCH"
	RejectProjectTooLarge        = "PROJECT_TOO_LARGE"
	RejectBudgetTooHigh          = "BUDGET_TOO_HIGH"
	RejectReferencesRequired     = "REFERENCES_REQUIRED"
	RejectCertificationRequired  = "CERTIFICATION_REQUIRED"
	RejectSecurityClearance      = "SECURITY_CLEARANCE"
	RejectLegalFormMismatch      = "LEGAL_FORM_MISMATCH"
	RejectConsortiumNotAllowed   = "BG_NOT_ALLOWED"
	RejectMinSizeNotMet          = "MIN_SIZE_NOT_MET"
	RejectNoCandidate            = "NO_CANDIDATE"
)

// RejectionDescriptions maps each code to a short human-readable explanation.
var RejectionDescriptions = map[string]string{
	RejectBudgetTooLow:           "budget below minimum rate",
	RejectTechStackMismatch:      "technology stack does not fit",
	RejectExperienceInsufficient: "experience not sufficient",
	RejectTimelineConflict:       "timeline not feasible",
	RejectCapacityFull:           "no capacity available",
	RejectKeyword:                "reject keywords found",
	RejectLowKeywordScore:        "keyword score below threshold",
	RejectCPVExcluded:            "only excluded classification codes",
	RejectTeamSizeMismatch:       "required team size exceeds capacity",
	RejectProjectTooLarge:        "project scope too large for team",
	RejectBudgetTooHigh:          "budget above configured ceiling",
	RejectReferencesRequired:     "required references not available",
	RejectCertificationRequired:  "required certification missing",
	RejectSecurityClearance:      "security clearance required",
	RejectLegalFormMismatch:      "required legal form does not match",
	RejectConsortiumNotAllowed:   "bidding consortium not permitted",
	RejectMinSizeNotMet:          "minimum revenue or headcount not met",
	RejectNoCandidate:            "no viable candidate above similarity threshold",
}

// KnownRejectionCode reports whether code belongs to the taxonomy.
func KnownRejectionCode(code string) bool {
	_, ok := RejectionDescriptions[code]
	return ok
}
