package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/assess"
	"github.com/quellwerk/akquise-engine/internal/cpv"
	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/posting"
	"github.com/quellwerk/akquise-engine/internal/rules"
)

type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	postings  map[int64]*posting.Posting
	decisions []*posting.Decision
	reviews   []string
	reasons   []string
	history   int
	applied   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{postings: make(map[int64]*posting.Posting)}
}

func (f *fakeStore) add(p *posting.Posting) *posting.Posting {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	if p.Status == "" {
		p.Status = posting.StatusPending
	}
	f.postings[p.ID] = p
	return p
}

func (f *fakeStore) InsertPosting(_ context.Context, raw *posting.RawPosting) (int64, error) {
	p := f.add(&posting.Posting{RawPosting: *raw})
	return p.ID, nil
}

func (f *fakeStore) PendingPostings(context.Context) ([]*posting.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*posting.Posting
	for _, p := range f.postings {
		if p.Status == posting.StatusPending {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) PostingsSince(context.Context, time.Time) ([]*posting.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*posting.Posting
	for _, p := range f.postings {
		if p.Status != posting.StatusDuplicate {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postings[id].Status = status
	return nil
}

func (f *fakeStore) SaveKeywordAudit(_ context.Context, id int64, result keyword.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postings[id].KeywordScore = result.TotalScore
	f.postings[id].KeywordConfidence = result.Confidence
	return nil
}

func (f *fakeStore) MarkAnalyzed(_ context.Context, id int64, rate float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postings[id].ProposedRate = rate
	f.postings[id].AnalyzedAt = &at
	return nil
}

func (f *fakeStore) MarkDuplicate(_ context.Context, id, _ int64, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postings[id].Status = posting.StatusDuplicate
	return nil
}

func (f *fakeStore) CountByStatus(_ context.Context, status string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == posting.StatusApplied {
		return f.applied, nil
	}
	count := 0
	for _, p := range f.postings {
		if p.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) SaveDecision(_ context.Context, d *posting.Decision) (int64, error) {
	if !d.Valid() {
		return 0, errors.New("invalid decision")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, d)
	return int64(len(f.decisions)), nil
}

func (f *fakeStore) AddRejectionReason(_ context.Context, _ int64, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, code)
	return nil
}

func (f *fakeStore) EnqueueReview(_ context.Context, _ int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, reason)
	return nil
}

func (f *fakeStore) AddScoreHistory(context.Context, int64, string, int, int, map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history++
	return nil
}

type fakeShortlister struct {
	mu         sync.Mutex
	calls      int
	candidates []posting.CandidateProfile
	err        error
}

func (f *fakeShortlister) Shortlist(context.Context, *posting.Posting) ([]posting.CandidateProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.candidates, f.err
}

type fakeAssessor struct {
	mu         sync.Mutex
	calls      int
	lastReq    assess.Request
	assessment *assess.Assessment
	err        error
}

func (f *fakeAssessor) Assess(_ context.Context, req assess.Request) (*assess.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	return f.assessment, f.err
}

func (f *fakeAssessor) request() assess.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

type fakeResearcher struct {
	mu       sync.Mutex
	calls    int
	research *assess.Research
	err      error
}

func (f *fakeResearcher) Research(context.Context, *posting.Posting) (*assess.Research, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.research, f.err
}

// testKeywords scores tier-1 keywords at 10 points and rejects on "sap".
func testKeywords() *keyword.Config {
	return &keyword.Config{
		Tier1:                 []string{"go", "react", "typescript", "kubernetes", "postgres"},
		Tier1Points:           10,
		Tier1Max:              40,
		TotalMax:              40,
		RejectWeights:         map[string]int{"sap": 10},
		RejectThreshold:       10,
		BoostKeywords:         []string{"portal"},
		BoostPoints:           7,
		SimpleRejectThreshold: 1,
	}
}

func testFilter() *cpv.Filter {
	return &cpv.Filter{
		Relevant:         map[string]string{"72230000": "custom software development"},
		Excluded:         map[string]string{"45000000": "construction"},
		Bonus:            map[string]int{"72230000": 8},
		FallbackKeywords: []string{"software"},
	}
}

func testEngine(t *testing.T, store *fakeStore, sl Shortlister, as *fakeAssessor, re Researcher) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	deps := Deps{
		Store:       store,
		Shortlister: sl,
		Assessor:    as,
		Researcher:  re,
		Overlay:     rules.New(rules.DefaultConfig(), zap.NewNop()),
		Keywords:    testKeywords(),
		CPV:         testFilter(),
		Logger:      zap.NewNop(),
	}

	e, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func pendingPosting(title, description string) *posting.Posting {
	return &posting.Posting{RawPosting: posting.RawPosting{
		Source:      "freelance_de",
		Title:       title,
		Description: description,
		Kind:        posting.KindFreelance,
		ScrapedAt:   time.Now(),
	}}
}

func goodAssessment() *assess.Assessment {
	return &assess.Assessment{
		Score:         80,
		Breakdown:     &assess.Breakdown{SkillMatch: 35, Experience: 20, Embedding: 10, MarketFit: 8, RiskFactors: 7},
		BestCandidate: posting.CandidateProfile{ID: 1, Name: "Anna Beispiel", MinHourlyRate: 90},
		ProposedRate:  95,
		Decision:      posting.DecisionApply,
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ThresholdReject = 80
	cfg.ThresholdApply = 75

	_, err := New(cfg, Deps{})
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if !strings.Contains(confErr.Error(), "review band") {
		t.Errorf("unexpected message: %s", confErr.Error())
	}
}

func TestKeywordRejectMakesNoExternalCalls(t *testing.T) {
	store := newFakeStore()
	p := store.add(pendingPosting("SAP Einführung", "sap rollout für konzern"))

	sl := &fakeShortlister{}
	as := &fakeAssessor{}
	re := &fakeResearcher{}
	e := testEngine(t, store, sl, as, re)

	stats, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sl.calls != 0 || as.calls != 0 || re.calls != 0 {
		t.Errorf("external calls made: shortlist=%d assess=%d research=%d", sl.calls, as.calls, re.calls)
	}
	if store.postings[p.ID].Status != posting.StatusRejected {
		t.Errorf("status = %s, want rejected", store.postings[p.ID].Status)
	}
	if len(store.decisions) != 1 || store.decisions[0].RejectionCode != posting.RejectKeyword {
		t.Fatalf("decisions = %+v", store.decisions)
	}
	if stats.Rejected != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCapacityRoutesToReviewBeforeAnyCall(t *testing.T) {
	store := newFakeStore()
	store.applied = DefaultConfig().MaxActiveApplications
	p := store.add(pendingPosting("Go Backend", "go microservices"))

	sl := &fakeShortlister{}
	as := &fakeAssessor{}
	e := testEngine(t, store, sl, as, nil)

	stats, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sl.calls != 0 || as.calls != 0 {
		t.Errorf("external calls made: shortlist=%d assess=%d", sl.calls, as.calls)
	}
	if store.postings[p.ID].Status != posting.StatusReview {
		t.Errorf("status = %s, want review", store.postings[p.ID].Status)
	}
	if len(store.reviews) != 1 || !strings.Contains(store.reviews[0], "Kapazität") {
		t.Errorf("reviews = %v", store.reviews)
	}
	if stats.Review != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCPVExclusionRejectsTender(t *testing.T) {
	store := newFakeStore()
	p := store.add(&posting.Posting{RawPosting: posting.RawPosting{
		Source:   "evergabe",
		Title:    "Neubau Verwaltungsgebäude",
		Kind:     posting.KindTender,
		CPVCodes: []string{"45000000-7"},
	}})

	sl := &fakeShortlister{}
	as := &fakeAssessor{}
	e := testEngine(t, store, sl, as, nil)

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.postings[p.ID].Status != posting.StatusRejected {
		t.Errorf("status = %s, want rejected", store.postings[p.ID].Status)
	}
	if len(store.reasons) != 1 || store.reasons[0] != posting.RejectCPVExcluded {
		t.Errorf("reasons = %v", store.reasons)
	}
	if as.calls != 0 {
		t.Errorf("assessor called %d times", as.calls)
	}
}

func TestLowKeywordScoreWithHighConfidenceRejects(t *testing.T) {
	store := newFakeStore()
	p := store.add(pendingPosting("Mixed Stack", "go react typescript kubernetes postgres"))

	sl := &fakeShortlister{}
	as := &fakeAssessor{}

	cfg := DefaultConfig()
	cfg.Workers = 1
	// Five tier-3 matches at one point each: score 5, confidence high.
	deps := Deps{
		Store:       store,
		Shortlister: sl,
		Assessor:    as,
		Overlay:     rules.New(rules.DefaultConfig(), zap.NewNop()),
		Keywords: &keyword.Config{
			Tier3:           []string{"go", "react", "typescript", "kubernetes", "postgres"},
			Tier3Points:     1,
			Tier3Max:        5,
			TotalMax:        40,
			RejectThreshold: 10,
		},
		CPV:    testFilter(),
		Logger: zap.NewNop(),
	}
	e, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.postings[p.ID].Status != posting.StatusRejected {
		t.Errorf("status = %s, want rejected", store.postings[p.ID].Status)
	}
	if len(store.reasons) != 1 || store.reasons[0] != posting.RejectLowKeywordScore {
		t.Errorf("reasons = %v", store.reasons)
	}
	if sl.calls != 0 || as.calls != 0 {
		t.Errorf("external calls made: shortlist=%d assess=%d", sl.calls, as.calls)
	}
}

func TestEmptyShortlistRejects(t *testing.T) {
	store := newFakeStore()
	p := store.add(pendingPosting("Go Backend", "go microservices"))

	sl := &fakeShortlister{}
	as := &fakeAssessor{}
	e := testEngine(t, store, sl, as, nil)

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.postings[p.ID].Status != posting.StatusRejected {
		t.Errorf("status = %s, want rejected", store.postings[p.ID].Status)
	}
	if len(store.reasons) != 1 || store.reasons[0] != posting.RejectNoCandidate {
		t.Errorf("reasons = %v", store.reasons)
	}
	if as.calls != 0 {
		t.Errorf("assessor called %d times", as.calls)
	}
}

func TestHardExclusionSkipsAssessment(t *testing.T) {
	store := newFakeStore()
	p := store.add(pendingPosting("Go Backend", "go microservices"))

	fit := assess.DefaultFitAnalysis()
	fit.ConsortiumAllowed = false

	sl := &fakeShortlister{candidates: []posting.CandidateProfile{{ID: 1, Name: "Anna Beispiel"}}}
	as := &fakeAssessor{}
	re := &fakeResearcher{research: &assess.Research{Fit: fit}}
	e := testEngine(t, store, sl, as, re)

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if as.calls != 0 {
		t.Errorf("assessor called %d times", as.calls)
	}
	if store.postings[p.ID].Status != posting.StatusRejected {
		t.Errorf("status = %s, want rejected", store.postings[p.ID].Status)
	}
	if len(store.reasons) != 1 || store.reasons[0] != posting.RejectConsortiumNotAllowed {
		t.Errorf("reasons = %v", store.reasons)
	}
}

func TestHappyPathApplies(t *testing.T) {
	store := newFakeStore()
	p := store.add(pendingPosting("Go Backend", "go microservices"))

	sl := &fakeShortlister{candidates: []posting.CandidateProfile{{ID: 1, Name: "Anna Beispiel", MinHourlyRate: 90}}}
	as := &fakeAssessor{assessment: goodAssessment()}
	e := testEngine(t, store, sl, as, nil)

	stats, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.postings[p.ID].Status != posting.StatusApplied {
		t.Errorf("status = %s, want applied", store.postings[p.ID].Status)
	}
	if store.postings[p.ID].ProposedRate != 95 {
		t.Errorf("proposed rate = %f, want 95", store.postings[p.ID].ProposedRate)
	}
	if len(store.decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(store.decisions))
	}
	d := store.decisions[0]
	if d.Decision != posting.DecisionApply || d.CandidateName != "Anna Beispiel" || d.RejectionCode != "" {
		t.Errorf("decision = %+v", d)
	}
	if store.history != 1 {
		t.Errorf("score history rows = %d, want 1", store.history)
	}
	if stats.Applied != 1 || stats.Processed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTenderClassificationBonusLiftsScore(t *testing.T) {
	store := newFakeStore()
	p := store.add(&posting.Posting{RawPosting: posting.RawPosting{
		Source:   "evergabe",
		Title:    "Go Fachverfahren Weiterentwicklung",
		Kind:     posting.KindTender,
		CPVCodes: []string{"72230000-9"},
	}})

	sl := &fakeShortlister{candidates: []posting.CandidateProfile{{ID: 1, Name: "Anna Beispiel", MinHourlyRate: 90}}}
	// Score 70 alone lands in the review band; the code bonus of 8 lifts it
	// over the apply threshold.
	as := &fakeAssessor{assessment: &assess.Assessment{
		Score:         70,
		BestCandidate: posting.CandidateProfile{ID: 1, Name: "Anna Beispiel", MinHourlyRate: 90},
		ProposedRate:  95,
	}}
	e := testEngine(t, store, sl, as, nil)

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if store.postings[p.ID].Status != posting.StatusApplied {
		t.Errorf("status = %s, want applied", store.postings[p.ID].Status)
	}
	if len(store.decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(store.decisions))
	}
	if store.decisions[0].Score != 78 {
		t.Errorf("final score = %d, want 78 (70 + bonus 8)", store.decisions[0].Score)
	}
}

func TestBoostModifierForwardedToAssessor(t *testing.T) {
	store := newFakeStore()
	store.add(pendingPosting("Go Portal Relaunch", "go microservices"))

	sl := &fakeShortlister{candidates: []posting.CandidateProfile{{ID: 1, Name: "Anna Beispiel"}}}
	as := &fakeAssessor{assessment: goodAssessment()}
	e := testEngine(t, store, sl, as, nil)

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := as.request().LegacyBonus; got != 7 {
		t.Errorf("legacy bonus = %d, want the flat boost of 7", got)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	store := newFakeStore()
	p := store.add(pendingPosting("Go Backend", "go microservices"))

	sl := &fakeShortlister{candidates: []posting.CandidateProfile{{ID: 1, Name: "Anna Beispiel", MinHourlyRate: 90}}}
	as := &fakeAssessor{assessment: goodAssessment()}

	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.DryRun = true

	e, err := New(cfg, Deps{
		Store:       store,
		Shortlister: sl,
		Assessor:    as,
		Overlay:     rules.New(rules.DefaultConfig(), zap.NewNop()),
		Keywords:    testKeywords(),
		CPV:         testFilter(),
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stats, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if as.calls != 1 {
		t.Errorf("assessor calls = %d, want 1 (dry run still assesses)", as.calls)
	}
	if stats.Applied != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if store.postings[p.ID].Status != posting.StatusPending {
		t.Errorf("status = %s, want untouched pending", store.postings[p.ID].Status)
	}
	if len(store.decisions) != 0 || store.history != 0 {
		t.Errorf("writes happened: decisions=%d history=%d", len(store.decisions), store.history)
	}
}

func TestResearchFailureFallsBackToNeutralFit(t *testing.T) {
	store := newFakeStore()
	p := store.add(pendingPosting("Go Backend", "go microservices"))

	sl := &fakeShortlister{candidates: []posting.CandidateProfile{{ID: 1, Name: "Anna Beispiel"}}}
	as := &fakeAssessor{assessment: goodAssessment()}
	re := &fakeResearcher{err: errors.New("service unavailable")}
	e := testEngine(t, store, sl, as, re)

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if as.calls != 1 {
		t.Errorf("assessor calls = %d, want 1", as.calls)
	}
	if store.postings[p.ID].Status != posting.StatusApplied {
		t.Errorf("status = %s, want applied", store.postings[p.ID].Status)
	}
}

func TestFailingPostingIsIsolated(t *testing.T) {
	store := newFakeStore()
	bad := store.add(pendingPosting("Go Backend kaputt", "go microservices"))
	good := store.add(pendingPosting("Go Backend ok", "go microservices"))

	calls := 0
	sl := &flakyShortlister{
		fail: func() bool {
			calls++
			return calls == 1
		},
		candidates: []posting.CandidateProfile{{ID: 1, Name: "Anna Beispiel"}},
	}
	as := &fakeAssessor{assessment: goodAssessment()}
	e := testEngine(t, store, sl, as, nil)

	stats, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Errors != 1 {
		t.Errorf("stats = %+v, want one error", stats)
	}
	statuses := map[string]int{
		store.postings[bad.ID].Status:  1,
		store.postings[good.ID].Status: 1,
	}
	if statuses[posting.StatusError] != 1 || statuses[posting.StatusApplied] != 1 {
		t.Errorf("statuses: bad=%s good=%s", store.postings[bad.ID].Status, store.postings[good.ID].Status)
	}
}

type flakyShortlister struct {
	fail       func() bool
	candidates []posting.CandidateProfile
}

func (f *flakyShortlister) Shortlist(context.Context, *posting.Posting) ([]posting.CandidateProfile, error) {
	if f.fail() {
		return nil, errors.New("ranking backend down")
	}
	return f.candidates, nil
}

func TestIngestDropsDuplicates(t *testing.T) {
	store := newFakeStore()
	store.add(&posting.Posting{RawPosting: posting.RawPosting{
		Source:     "evergabe",
		ExternalID: "ev-1",
		Title:      "Portal Relaunch",
		ScrapedAt:  time.Now(),
	}})

	e := testEngine(t, store, &fakeShortlister{}, &fakeAssessor{}, nil)

	stats, err := e.Ingest(context.Background(), []*posting.RawPosting{
		{Source: "evergabe", ExternalID: "ev-1", Title: "Portal Relaunch", ScrapedAt: time.Now()},
		{Source: "evergabe", ExternalID: "ev-2", Title: "Völlig anderes Fachverfahren", ScrapedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if stats.Scraped != 2 || stats.New != 1 || stats.Duplicates != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(store.postings) != 2 {
		t.Errorf("stored postings = %d, want 2", len(store.postings))
	}
}

func TestDedupeBatchDryRun(t *testing.T) {
	store := newFakeStore()
	deadline := time.Now().AddDate(0, 1, 0)
	first := store.add(&posting.Posting{RawPosting: posting.RawPosting{
		Source:    "evergabe",
		Title:     "Weiterentwicklung Fachverfahren Wohngeld",
		Deadline:  &deadline,
		ScrapedAt: time.Now().Add(-time.Hour),
	}})
	second := store.add(&posting.Posting{RawPosting: posting.RawPosting{
		Source:    "service_bund",
		Title:     "Weiterentwicklung Fachverfahren Wohngeld",
		Deadline:  &deadline,
		ScrapedAt: time.Now(),
	}})

	e := testEngine(t, store, &fakeShortlister{}, &fakeAssessor{}, nil)

	marked, err := e.DedupeBatch(context.Background(), 30, true)
	if err != nil {
		t.Fatalf("DedupeBatch: %v", err)
	}
	if marked != 1 {
		t.Errorf("marked = %d, want 1", marked)
	}
	if store.postings[second.ID].Status == posting.StatusDuplicate {
		t.Error("dry run must not mutate")
	}

	marked, err = e.DedupeBatch(context.Background(), 30, false)
	if err != nil {
		t.Fatalf("DedupeBatch: %v", err)
	}
	if marked != 1 {
		t.Errorf("marked = %d, want 1", marked)
	}
	if store.postings[second.ID].Status != posting.StatusDuplicate {
		t.Errorf("second status = %s, want duplicate", store.postings[second.ID].Status)
	}
	if store.postings[first.ID].Status == posting.StatusDuplicate {
		t.Error("primary must stay")
	}
}
