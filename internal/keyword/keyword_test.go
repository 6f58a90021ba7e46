package keyword

import (
	"reflect"
	"testing"
)

func TestScoreRejectKeyword(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	result := cfg.Score("SAP Consultant für Modulbetreuung", "Betreuung der SAP-Landschaft", "")

	if !result.ShouldReject {
		t.Fatalf("expected reject for SAP posting, got %+v", result)
	}
	if result.RejectScore < cfg.RejectThreshold {
		t.Fatalf("expected reject score >= %d, got %d", cfg.RejectThreshold, result.RejectScore)
	}
	if len(result.RejectKeywords) == 0 || result.RejectKeywords[0] != "sap" {
		t.Fatalf("expected sap in reject keywords, got %v", result.RejectKeywords)
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	title := "Fullstack Entwicklung mit Vue und Python"
	desc := "Webanwendung mit Django Backend, PostgreSQL und Docker Deployment"

	first := cfg.Score(title, desc, "")
	for i := 0; i < 5; i++ {
		again := cfg.Score(title, desc, "")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("score not idempotent: %+v vs %+v", first, again)
		}
	}
}

func TestScoreTierCapsAndTotalCap(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	// Many keywords from every tier; every component must stay within its cap.
	result := cfg.Score(
		"Vue Nuxt Python Django FastAPI Java Spring Fullstack Backend Frontend",
		"react angular typescript docker kubernetes postgresql graphql rest api scrum git jest cypress linux kafka",
		"",
	)

	if result.Tier1Score > cfg.Tier1Max {
		t.Fatalf("tier 1 score %d exceeds cap %d", result.Tier1Score, cfg.Tier1Max)
	}
	if result.Tier2Score > cfg.Tier2Max {
		t.Fatalf("tier 2 score %d exceeds cap %d", result.Tier2Score, cfg.Tier2Max)
	}
	if result.Tier3Score > cfg.Tier3Max {
		t.Fatalf("tier 3 score %d exceeds cap %d", result.Tier3Score, cfg.Tier3Max)
	}
	if result.ComboBonus > cfg.ComboMax {
		t.Fatalf("combo bonus %d exceeds cap %d", result.ComboBonus, cfg.ComboMax)
	}
	if result.TotalScore > cfg.TotalMax {
		t.Fatalf("total score %d exceeds cap %d", result.TotalScore, cfg.TotalMax)
	}
	if result.Confidence != ConfidenceHigh {
		t.Fatalf("expected high confidence, got %s", result.Confidence)
	}
}

func TestContainsWordBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		keyword string
		expect  bool
	}{
		{"plain word", "rest api design", "api", true},
		{"no match inside word", "capital expenditure", "api", false},
		{"hash suffix token", "entwicklung mit c# und azure", "c#", true},
		{"hash token not inside word", "abc#def", "c#", false},
		{"dot prefix token", "migration nach .net 8", ".net", true},
		{"start of text", "vue frontend", "vue", true},
		{"end of text", "frontend vue", "vue", true},
		{"umlaut before keyword is a letter", "cafégo standort", "go", false},
		{"umlaut after keyword is a letter", "goä betrieb", "go", false},
		{"multibyte punctuation is a boundary", "go–live termin", "go", true},
		{"umlaut word next to keyword", "qualität api messung", "api", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := containsWord(tt.text, tt.keyword); got != tt.expect {
				t.Fatalf("containsWord(%q, %q) = %v, want %v", tt.text, tt.keyword, got, tt.expect)
			}
		})
	}
}

func TestCheckFlatBoostAppliesOnce(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	result := cfg.Check("Vue Portal Relaunch", "Webanwendung mit React und TypeScript")

	if !result.Boost {
		t.Fatalf("expected boost")
	}
	if result.Reject {
		t.Fatalf("did not expect reject: %v", result.RejectKeywords)
	}
	// One flat bonus regardless of how many boost keywords matched.
	if result.ScoreModifier != cfg.BoostPoints {
		t.Fatalf("expected modifier %d, got %d", cfg.BoostPoints, result.ScoreModifier)
	}
	if len(result.BoostKeywords) < 2 {
		t.Fatalf("expected multiple boost keywords, got %v", result.BoostKeywords)
	}
}

func TestCheckRejectWins(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	result := cfg.Check("Vue Frontend für SAP Portal", "")

	if !result.Reject {
		t.Fatalf("expected reject")
	}
	if result.ScoreModifier != 0 {
		t.Fatalf("expected no modifier on reject, got %d", result.ScoreModifier)
	}
}

func TestComboBonus(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	result := cfg.Score("Vue und Python Fullstack", "", "")

	if result.ComboBonus == 0 {
		t.Fatalf("expected combo bonus for vue+python, got %+v", result)
	}
}
