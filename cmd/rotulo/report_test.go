package main

import (
	"strings"
	"testing"

	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

func TestRenderBar(t *testing.T) {
	t.Parallel()
	if got := renderBar(0); got != "["+strings.Repeat(".", 30)+"]" {
		t.Errorf("renderBar(0) = %q", got)
	}
	if got := renderBar(100); got != "["+strings.Repeat("#", 30)+"]" {
		t.Errorf("renderBar(100) = %q", got)
	}
	if got := renderBar(50); strings.Count(got, "#") != 15 {
		t.Errorf("renderBar(50) = %q, want 15 filled cells", got)
	}
}

func TestRiskLabel_Thresholds(t *testing.T) {
	t.Parallel()
	cases := []struct {
		score float64
		want  string
	}{
		{95, "very high"},
		{80, "very high"},
		{60, "high"},
		{40, "moderate"},
		{20, "low"},
		{5, "very low"},
	}
	for _, tc := range cases {
		if got := riskLabel(tc.score, "en"); got != tc.want {
			t.Errorf("riskLabel(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
	if got := riskLabel(95, "pt"); got != "muito alto" {
		t.Errorf("pt label = %q, want muito alto", got)
	}
	// Unknown languages fall back to English.
	if got := riskLabel(95, "de"); got != "very high" {
		t.Errorf("fallback label = %q", got)
	}
}

func TestRenderTextResult_Sections(t *testing.T) {
	t.Parallel()
	result := &model.RiskResult{
		TotalScore: 100,
		Product: &model.ProductInfo{
			EAN:   "5601",
			Name:  "Wafer Mix",
			Brand: "Demo Foods",
			Facts: []model.AllergenFact{
				{Code: taxonomy.Milk, Presence: model.Contains, Source: "label", Weight: 1, Confidence: 1},
				{Code: taxonomy.Peanut, Presence: model.MayContain, Source: "label:traces", Weight: 0.6, Confidence: 0.6},
			},
			RawPayload: map[string]any{"ingredients_text_en": "wheat flour, milk powder"},
		},
		PerAllergen: map[taxonomy.Code]model.RiskDetail{
			taxonomy.Milk:   {Code: taxonomy.Milk, Score: 100, Reasons: []string{"contains via label (w=1, conf=1)"}},
			taxonomy.Peanut: {Code: taxonomy.Peanut, Score: 14.04, Reasons: []string{"may_contain via label:traces (w=0.6, conf=0.6)"}},
		},
	}

	out := renderTextResult(result, "en")
	for _, want := range []string{
		"=== Quick view ===",
		"Wafer Mix (5601) · Demo Foods",
		"Total risk: 100.0/100 (very high)",
		"Highest concern: MILK",
		"Ingredients:",
		"Declared allergens:",
		"Traces / may contain:",
		"=== Details ===",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Details are ordered by descending score.
	details := out[strings.Index(out, "=== Details ==="):]
	if strings.Index(details, "MILK") > strings.Index(details, "PEANUT") {
		t.Errorf("details should list MILK before PEANUT:\n%s", details)
	}
}

func TestSortedDetails_Deterministic(t *testing.T) {
	t.Parallel()
	per := map[taxonomy.Code]model.RiskDetail{
		taxonomy.Milk:   {Code: taxonomy.Milk, Score: 50},
		taxonomy.Gluten: {Code: taxonomy.Gluten, Score: 50},
		taxonomy.Peanut: {Code: taxonomy.Peanut, Score: 80},
	}
	got := sortedDetails(per)
	if got[0].Code != taxonomy.Peanut {
		t.Errorf("highest score should come first, got %s", got[0].Code)
	}
	if got[1].Code != taxonomy.Gluten || got[2].Code != taxonomy.Milk {
		t.Errorf("ties should break by code: %v, %v", got[1].Code, got[2].Code)
	}
}
