package textutil_test

import (
	"testing"

	"shelfsync/internal/textutil"
)

func TestNormalizeCollapsesAndStrips(t *testing.T) {
	cases := map[string]string{
		"  The   Way of KINGS  ": "the way of kings",
		"Café & Crème":           "cafe and creme",
		"Rock + Roll":            "rock and roll",
		"":                       "",
	}
	for input, want := range cases {
		if got := textutil.Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeKeyDropsPunctuation(t *testing.T) {
	if got := textutil.NormalizeKey("The Way of Kings!"); got != "thewayofkings" {
		t.Fatalf("NormalizeKey = %q", got)
	}
	if textutil.NormalizeKey("Dune") != textutil.NormalizeKey("  DUNE  ") {
		t.Fatal("expected case and whitespace insensitive keys")
	}
}

func TestTitleSimilarityIdenticalTitles(t *testing.T) {
	if sim := textutil.TitleSimilarity("The Way of Kings", "the way of KINGS"); sim != 1.0 {
		t.Fatalf("expected 1.0 for equal titles, got %f", sim)
	}
}

func TestTitleSimilarityOverlappingTitles(t *testing.T) {
	sim := textutil.TitleSimilarity("The Way of Kings: Part One", "The Way of Kings")
	if sim <= 0.6 || sim >= 1.0 {
		t.Fatalf("expected overlap similarity in (0.6, 1.0), got %f", sim)
	}

	unrelated := textutil.TitleSimilarity("The Way of Kings", "A Memory of Light")
	if unrelated >= sim {
		t.Fatalf("expected unrelated titles to score lower: %f >= %f", unrelated, sim)
	}
}

func TestTitleSimilarityEmptyInput(t *testing.T) {
	if sim := textutil.TitleSimilarity("", "The Way of Kings"); sim != 0 {
		t.Fatalf("expected 0 for empty title, got %f", sim)
	}
}

func TestTitleVariants(t *testing.T) {
	variants := textutil.TitleVariants("The Way of Kings: Part One of the Stormlight Archive", 3)
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants, got %v", variants)
	}
	if variants[0] != "The Way of Kings: Part One of the Stormlight Archive" {
		t.Fatalf("expected full title first, got %q", variants[0])
	}
	if variants[1] != "The Way of Kings" {
		t.Fatalf("expected delimiter-cut variant, got %q", variants[1])
	}
	if variants[2] != "The Way of" {
		t.Fatalf("expected first-words variant, got %q", variants[2])
	}
}

func TestTitleVariantsDeduplicates(t *testing.T) {
	variants := textutil.TitleVariants("Dune", 5)
	if len(variants) != 1 || variants[0] != "Dune" {
		t.Fatalf("expected single variant, got %v", variants)
	}
	if textutil.TitleVariants("", 5) != nil {
		t.Fatal("expected nil for empty title")
	}
}
