package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/duartefn/rotulo/internal/fooddict"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

// translations holds the CLI output strings per language. English is the
// fallback for unknown languages and missing keys.
var translations = map[string]map[string]string{
	"en": {
		"quick_view":             "=== Quick view ===",
		"details":                "=== Details ===",
		"per_allergen_breakdown": "Per-allergen breakdown:",
		"total_risk":             "Total risk",
		"highest_concern":        "Highest concern",
		"product_not_found":      "Product not found.",
		"section_ingredients":    "Ingredients",
		"section_contains":       "Declared allergens",
		"section_may_contain":    "Traces / may contain",
		"section_facility":       "Facility cross-contact",
		"risk_very_high":         "very high",
		"risk_high":              "high",
		"risk_moderate":          "moderate",
		"risk_low":               "low",
		"risk_very_low":          "very low",
		"presence_contains":      "contains",
		"presence_may_contain":   "may contain",
		"presence_facility_risk": "facility risk",
	},
	"pt": {
		"quick_view":             "=== Visão rápida ===",
		"details":                "=== Detalhes ===",
		"per_allergen_breakdown": "Análise por alérgeno:",
		"total_risk":             "Risco total",
		"highest_concern":        "Maior preocupação",
		"product_not_found":      "Produto não encontrado.",
		"section_ingredients":    "Ingredientes",
		"section_contains":       "Alérgenos declarados",
		"section_may_contain":    "Traços / pode conter",
		"section_facility":       "Risco de fábrica",
		"risk_very_high":         "muito alto",
		"risk_high":              "alto",
		"risk_moderate":          "moderado",
		"risk_low":               "baixo",
		"risk_very_low":          "muito baixo",
		"presence_contains":      "contém",
		"presence_may_contain":   "pode conter",
		"presence_facility_risk": "risco na fábrica",
	},
}

func translate(key, lang string) string {
	bundle, ok := translations[lang]
	if !ok {
		bundle = translations["en"]
	}
	if msg, ok := bundle[key]; ok {
		return msg
	}
	if msg, ok := translations["en"][key]; ok {
		return msg
	}
	return key
}

// renderBar draws an ASCII gauge for a 0-100 score.
func renderBar(score float64) string {
	const width = 30
	filled := int(score / 100.0 * width)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// riskLabel maps a numeric score to a qualitative label.
func riskLabel(score float64, lang string) string {
	switch {
	case score >= 80:
		return translate("risk_very_high", lang)
	case score >= 60:
		return translate("risk_high", lang)
	case score >= 40:
		return translate("risk_moderate", lang)
	case score >= 20:
		return translate("risk_low", lang)
	default:
		return translate("risk_very_low", lang)
	}
}

// displayName renders "CODE (label)" unless the label adds nothing.
func displayName(code taxonomy.Code, lang string) string {
	label := taxonomy.Label(code, lang)
	if label != "" && !strings.EqualFold(label, string(code)) {
		return fmt.Sprintf("%s (%s)", code, label)
	}
	return string(code)
}

func presenceLabel(presence model.PresenceType, lang string) string {
	return translate("presence_"+string(presence), lang)
}

func formatFact(fact model.AllergenFact, lang string) string {
	return fmt.Sprintf("%s (%s, source: %s)",
		displayName(fact.Code, lang), presenceLabel(fact.Presence, lang), fact.Source)
}

// renderTextResult writes the text dashboard: a quick view first, then the
// ingredient and fact sections, then the per-allergen breakdown.
func renderTextResult(result *model.RiskResult, lang string) string {
	var lines []string

	headline := fmt.Sprintf("%s (%s)", result.Product.Name, result.Product.EAN)
	if result.Product.Brand != "" {
		headline += " · " + result.Product.Brand
	}
	worst := result.WorstOffender()

	lines = append(lines, translate("quick_view", lang))
	lines = append(lines, headline)
	lines = append(lines, fmt.Sprintf("%s: %.1f/100 (%s) %s",
		translate("total_risk", lang), result.TotalScore,
		riskLabel(result.TotalScore, lang), renderBar(result.TotalScore)))
	if worst != nil {
		lines = append(lines, fmt.Sprintf("%s: %s %.1f/100 (%s)",
			translate("highest_concern", lang), displayName(worst.Code, lang),
			worst.Score, riskLabel(worst.Score, lang)))
	}

	if ingredients := fooddict.CollectIngredientTexts(result.Product); len(ingredients) > 0 {
		lines = append(lines, "", translate("section_ingredients", lang)+":")
		lines = append(lines, "  "+strings.Join(ingredients, ", "))
	}

	var contains, may, facility []model.AllergenFact
	for _, fact := range result.Product.Facts {
		switch fact.Presence {
		case model.Contains:
			contains = append(contains, fact)
		case model.MayContain:
			may = append(may, fact)
		case model.FacilityRisk:
			facility = append(facility, fact)
		}
	}
	appendSection := func(key string, facts []model.AllergenFact) {
		if len(facts) == 0 {
			return
		}
		lines = append(lines, "", translate(key, lang)+":")
		for _, fact := range facts {
			lines = append(lines, "  - "+formatFact(fact, lang))
		}
	}
	appendSection("section_contains", contains)
	appendSection("section_may_contain", may)
	appendSection("section_facility", facility)

	lines = append(lines, "", translate("details", lang))
	lines = append(lines, translate("per_allergen_breakdown", lang))
	for _, detail := range sortedDetails(result.PerAllergen) {
		lines = append(lines, fmt.Sprintf("  - %s: %.1f/100 (%s) %s | %s",
			displayName(detail.Code, lang), detail.Score,
			riskLabel(detail.Score, lang), renderBar(detail.Score),
			strings.Join(detail.Reasons, "; ")))
	}
	return strings.Join(lines, "\n")
}

// sortedDetails orders details by descending score, then code.
func sortedDetails(per map[taxonomy.Code]model.RiskDetail) []model.RiskDetail {
	out := make([]model.RiskDetail, 0, len(per))
	for _, detail := range per {
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Code < out[j].Code
	})
	return out
}
