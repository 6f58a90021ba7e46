package dedup

import "testing"

func TestNormalizeTitleStripsNoise(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			"reference id removed",
			"Webportal Relaunch 2024-0815",
			"webportal relaunch",
		},
		{
			"dotted date removed",
			"IT-Dienstleistung bis 31.12.2026",
			"it dienstleistung bis",
		},
		{
			"boilerplate removed",
			"Ausschreibung: Entwicklung Fachverfahren",
			"entwicklung fachverfahren",
		},
		{
			"diacritics folded",
			"Öffentliche Vergabe für Bürgerportal",
			"offentliche fur burgerportal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeTitle(tt.input); got != tt.expect {
				t.Fatalf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestNormalizeClientNameDropsLegalForms(t *testing.T) {
	t.Parallel()

	got := NormalizeClientName("Musterfirma Software GmbH")
	if got != "musterfirma software" {
		t.Fatalf("got %q", got)
	}

	got = NormalizeClientName("Bundesamt für Statistik")
	if got != "statistik" {
		t.Fatalf("got %q", got)
	}
}

func TestCombinedIdenticalIsOne(t *testing.T) {
	t.Parallel()

	s := NormalizeTitle("Entwicklung einer Verwaltungsplattform")
	if got := Combined(s, s); got != 1.0 {
		t.Fatalf("identical strings must score 1.0, got %f", got)
	}
}

func TestCombinedDisjointIsZero(t *testing.T) {
	t.Parallel()

	if got := Combined("alpha beta", "gamma delta"); got != 0 {
		t.Fatalf("disjoint strings must score 0, got %f", got)
	}
}

func TestCombinedToleratesSpellingDrift(t *testing.T) {
	t.Parallel()

	s1 := NormalizeTitle("Webanwendung für das Bürgerportal des Landes")
	s2 := NormalizeTitle("Webanwendungen für das Bürgerportal des Landes")

	if got := Combined(s1, s2); got < 0.5 {
		t.Fatalf("near-identical titles should stay similar, got %f", got)
	}
}

func TestCombinedEmptyInput(t *testing.T) {
	t.Parallel()

	if got := Combined("", "anything"); got != 0 {
		t.Fatalf("empty input must score 0, got %f", got)
	}
}
