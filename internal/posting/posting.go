// Package posting defines the data model shared by the scoring,
// deduplication and decision pipeline.
package posting

import "time"

// Kind distinguishes freelance projects from public tenders.
type Kind string

const (
	KindFreelance Kind = "freelance"
	KindTender    Kind = "tender"
)

// Status values for a posting inside the pipeline.
const (
	StatusPending     = "pending"
	StatusShortlisted = "shortlisted"
	StatusAssessed    = "assessed"
	StatusApplied     = "applied"
	StatusReview      = "review"
	StatusRejected    = "rejected"
	StatusDuplicate   = "duplicate"
	StatusError       = "error"
)

// Decision labels.
const (
	DecisionApply  = "apply"
	DecisionReview = "review"
	DecisionReject = "reject"
)

// RawPosting is a scraped posting as delivered by an ingestion collaborator.
// It is read-only to the engine; no field is ever mutated here.
type RawPosting struct {
	Source       string
	ExternalID   string
	URL          string
	Title        string
	ClientName   string
	Description  string
	Skills       []string
	Budget       string
	BudgetMin    float64
	BudgetMax    float64
	Location     string
	Remote       bool
	PublicSector bool
	Kind         Kind
	CPVCodes     []string
	DocumentText string
	PublishedAt  time.Time
	Deadline     *time.Time
	ScrapedAt    time.Time
}

// Posting is the persisted form of a RawPosting plus pipeline state.
type Posting struct {
	ID int64
	RawPosting

	Status       string
	ProposedRate float64
	AnalyzedAt   *time.Time

	// Keyword audit columns, persisted for transparency and resume.
	KeywordScore      int
	KeywordConfidence string
	KeywordComboBonus int
	KeywordTier1      []string
	KeywordTier2      []string
	KeywordReject     []string
}

// DuplicateGroup collects postings recognized as the same real-world
// opportunity across sources. Members are flagged, never deleted.
type DuplicateGroup struct {
	PrimaryID    int64
	DuplicateIDs []int64
	Confidence   float64
	MatchReasons []string
}

// CandidateProfile is a team member considered for a posting. The similarity
// score is attached at shortlist time and is not an intrinsic attribute.
type CandidateProfile struct {
	ID              int64
	Name            string
	Role            string
	Skills          []string
	YearsExperience int
	MinHourlyRate   float64
	Similarity      float64
}

// Decision is the terminal artifact of a pipeline run for one posting.
// A reject decision always carries a rejection code from the closed
// taxonomy; any other decision never does.
type Decision struct {
	PostingID     int64
	Score         int
	Breakdown     map[string]int
	Decision      string
	CandidateID   int64
	CandidateName string
	ProposedRate  float64
	Rationale     string
	Strengths     []string
	Weaknesses    []string
	RejectionCode string
	RawEvidence   string
	DecidedAt     time.Time
}

// Valid reports whether the decision honors the rejection-code invariant.
func (d *Decision) Valid() bool {
	if d.Decision == DecisionReject {
		return d.RejectionCode != ""
	}
	return d.RejectionCode == ""
}
