package taxonomy_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/duartefn/rotulo/internal/taxonomy"
)

func TestResolve_CanonicalAndSynonyms(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want taxonomy.Code
	}{
		{"GLUTEN", taxonomy.Gluten},
		{"gluten", taxonomy.Gluten},
		{"GLÚTEN", taxonomy.Gluten},
		{"  Glúten  ", taxonomy.Gluten},
		{"amendoim", taxonomy.Peanut},
		{"en:peanuts", taxonomy.Peanut},
		{"peanuts", taxonomy.Peanut},
		{"hazelnut", taxonomy.TreeNuts},
		{"tremoço", taxonomy.Lupin},
		{"en:milk", taxonomy.Milk},
	}
	for _, tc := range cases {
		got, ok := taxonomy.Resolve(tc.in)
		if !ok {
			t.Errorf("Resolve(%q): not recognized", tc.in)
			continue
		}
		if got != tc.want {
			t.Errorf("Resolve(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestResolve_Unknown(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   ", "chocolate", "xyzzy"} {
		if code, ok := taxonomy.Resolve(in); ok {
			t.Errorf("Resolve(%q) unexpectedly resolved to %s", in, code)
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()
	for _, code := range taxonomy.Codes() {
		got, ok := taxonomy.Resolve(string(code))
		if !ok || got != code {
			t.Errorf("Resolve(%s) = (%s, %v), want itself", code, got, ok)
		}
	}
}

func TestCodes_StableCatalog(t *testing.T) {
	t.Parallel()
	codes := taxonomy.Codes()
	if len(codes) != 14 {
		t.Fatalf("expected 14 catalog entries, got %d", len(codes))
	}
	if codes[0] != taxonomy.Gluten {
		t.Errorf("catalog should start with GLUTEN, got %s", codes[0])
	}
	for _, code := range codes {
		if !taxonomy.Known(code) {
			t.Errorf("Known(%s) = false for a catalog code", code)
		}
	}
	if taxonomy.Known("CHOCOLATE") {
		t.Error("Known(CHOCOLATE) = true, want false")
	}
}

func TestLabel_LanguageFallback(t *testing.T) {
	t.Parallel()
	if got := taxonomy.Label(taxonomy.Milk, "pt"); got != "Leite e produtos lácteos, incluindo lactose" {
		t.Errorf("pt label mismatch: %q", got)
	}
	en := taxonomy.Label(taxonomy.Milk, "en")
	if got := taxonomy.Label(taxonomy.Milk, "de"); got != en {
		t.Errorf("unknown language should fall back to English, got %q", got)
	}
	if got := taxonomy.Label("NOT_A_CODE", "en"); got != "NOT_A_CODE" {
		t.Errorf("unknown code should echo itself, got %q", got)
	}
}

func TestTokenize_DropsShortAndPunctuation(t *testing.T) {
	t.Parallel()
	got := taxonomy.Tokenize("Wheat flour, sugar; WHOLE Milk (3%)")
	want := []string{"wheat", "flour", "sugar", "whole", "milk"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectInTexts_MultiWordAndSorted(t *testing.T) {
	t.Parallel()
	texts := []string{
		"sugar, brazil nut pieces, wheat flour",
		"emulsifier: soy lecithin",
	}
	got := taxonomy.DetectInTexts(texts)
	want := []taxonomy.Code{taxonomy.Gluten, taxonomy.Soy, taxonomy.TreeNuts}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DetectInTexts mismatch (-want +got):\n%s", diff)
	}

	// Same input again must yield the identical slice.
	again := taxonomy.DetectInTexts(texts)
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("DetectInTexts not deterministic (-first +second):\n%s", diff)
	}
}

func TestNormalize_StripsDiacritics(t *testing.T) {
	t.Parallel()
	if got := taxonomy.Normalize("Sésamo"); got != "sesamo" {
		t.Errorf("Normalize(Sésamo) = %q, want sesamo", got)
	}
	if taxonomy.Normalize("GLÚTEN") != taxonomy.Normalize("gluten") {
		t.Error("GLÚTEN and gluten should normalize identically")
	}
}
