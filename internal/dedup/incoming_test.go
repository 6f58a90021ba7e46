package dedup

import (
	"testing"

	"github.com/quellwerk/akquise-engine/internal/posting"
)

func existingPosting(id int64, source, externalID, title string) *posting.Posting {
	return &posting.Posting{
		ID: id,
		RawPosting: posting.RawPosting{
			Source:     source,
			ExternalID: externalID,
			Title:      title,
		},
	}
}

func TestSplitMatchesOnExternalID(t *testing.T) {
	t.Parallel()

	existing := []*posting.Posting{
		existingPosting(1, "freelance_de", "fd-123", "Irrelevanter Titel"),
	}
	raws := []*posting.RawPosting{
		{Source: "freelance_de", ExternalID: "fd-123", Title: "Völlig anderer Titel"},
	}

	m := NewIncomingMatcher(nil)
	unique, matches := m.Split(raws, existing)

	if len(unique) != 0 || len(matches) != 1 {
		t.Fatalf("expected 0 unique and 1 match, got %d/%d", len(unique), len(matches))
	}
	if matches[0].MatchedOn != "external_id" {
		t.Fatalf("matched on %q", matches[0].MatchedOn)
	}
	if matches[0].Existing.ID != 1 {
		t.Fatalf("matched existing id %d", matches[0].Existing.ID)
	}
}

func TestSplitMatchesOnNormalizedTitle(t *testing.T) {
	t.Parallel()

	existing := []*posting.Posting{
		existingPosting(7, "evergabe", "ev-1", "Ausschreibung: Entwicklung Bürgerportal 2024-0042"),
	}
	raws := []*posting.RawPosting{
		// Different reference id and boilerplate, same normalized title.
		{Source: "service_bund", ExternalID: "sb-9", Title: "Entwicklung Bürgerportal Vergabe 2025-0007"},
	}

	m := NewIncomingMatcher(nil)
	unique, matches := m.Split(raws, existing)

	if len(unique) != 0 || len(matches) != 1 {
		t.Fatalf("expected title match, got unique=%d matches=%d", len(unique), len(matches))
	}
	if matches[0].MatchedOn != "title_normalized" {
		t.Fatalf("matched on %q", matches[0].MatchedOn)
	}
}

func TestSplitTitleMatchPrefersSameSource(t *testing.T) {
	t.Parallel()

	existing := []*posting.Posting{
		existingPosting(1, "evergabe", "ev-1", "Entwicklung Serviceportal"),
		existingPosting(2, "freelance_de", "fd-1", "Entwicklung Serviceportal"),
	}
	raws := []*posting.RawPosting{
		{Source: "freelance_de", ExternalID: "fd-2", Title: "Entwicklung Serviceportal"},
	}

	m := NewIncomingMatcher(nil)
	_, matches := m.Split(raws, existing)

	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if matches[0].Existing.ID != 2 {
		t.Fatalf("expected same-source record preferred, got id %d", matches[0].Existing.ID)
	}
}

func TestSplitFuzzyMatchesOtherSourcesOnly(t *testing.T) {
	t.Parallel()

	// Same words, different portal-specific ordering. Word overlap is full,
	// trigram overlap high, normalized strings unequal.
	title1 := "Verwaltungsplattform Weiterentwicklung für das Landesamt"
	title2 := "Weiterentwicklung Verwaltungsplattform für das Landesamt"

	sameSource := []*posting.Posting{
		existingPosting(1, "evergabe", "ev-1", title1),
	}
	otherSource := []*posting.Posting{
		existingPosting(2, "service_bund", "sb-1", title1),
	}
	raws := []*posting.RawPosting{
		{Source: "evergabe", ExternalID: "ev-2", Title: title2},
	}

	m := NewIncomingMatcher(nil)

	// Same source: fuzzy stage must not fire, external id is authoritative.
	unique, matches := m.Split(raws, sameSource)
	if len(unique) != 1 || len(matches) != 0 {
		t.Fatalf("same-source fuzzy must not match, got unique=%d matches=%d", len(unique), len(matches))
	}

	// Other source: fuzzy stage matches.
	unique, matches = m.Split(raws, otherSource)
	if len(unique) != 0 || len(matches) != 1 {
		t.Fatalf("cross-source fuzzy should match, got unique=%d matches=%d", len(unique), len(matches))
	}
	if matches[0].MatchedOn != "title" {
		t.Fatalf("matched on %q", matches[0].MatchedOn)
	}
	if matches[0].Similarity < SimilarityThreshold {
		t.Fatalf("similarity %f below threshold", matches[0].Similarity)
	}
}

func TestSplitShortTitlesSkipFuzzyStage(t *testing.T) {
	t.Parallel()

	existing := []*posting.Posting{
		existingPosting(1, "evergabe", "ev-1", "App Relaunch X"),
	}
	raws := []*posting.RawPosting{
		{Source: "service_bund", ExternalID: "sb-1", Title: "App Relaunch Y"},
	}

	m := NewIncomingMatcher(nil)
	unique, matches := m.Split(raws, existing)

	if len(unique) != 1 || len(matches) != 0 {
		t.Fatalf("short titles must not fuzzy-match, got unique=%d matches=%d", len(unique), len(matches))
	}
}

func TestSplitEmptyInput(t *testing.T) {
	t.Parallel()

	m := NewIncomingMatcher(nil)
	unique, matches := m.Split(nil, nil)
	if unique != nil || matches != nil {
		t.Fatalf("expected nil results for empty input")
	}
}
