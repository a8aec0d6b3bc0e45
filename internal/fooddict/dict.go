// Package fooddict infers additional allergen facts from ingredient text
// using keyword rules derived from FoodDB food-group relationships, including
// cross-reactive families (pulses vs. peanuts, legumes vs. soy).
package fooddict

import (
	"sort"

	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

// Rule maps one matched ingredient token to an allergen contribution.
type Rule struct {
	Code       taxonomy.Code
	Weight     float64
	Confidence float64
	Rationale  string
}

// keywordRules is the token -> contributions table. A single token can feed
// several codes (e.g. lupin raises LUPIN, PEANUT and TREE_NUTS).
var keywordRules = map[string][]Rule{
	// Nuts and close relatives
	"peanut":    {{taxonomy.Peanut, 1.0, 0.95, "peanut detected"}},
	"groundnut": {{taxonomy.Peanut, 1.0, 0.9, "groundnut detected"}},
	"nut":       {{taxonomy.TreeNuts, 0.8, 0.8, "nut family ingredient"}},
	"nuts":      {{taxonomy.TreeNuts, 0.85, 0.8, "nut family ingredient"}},
	"almond":    {{taxonomy.TreeNuts, 1.0, 0.95, "almond ingredient"}},
	"cashew":    {{taxonomy.TreeNuts, 1.0, 0.95, "cashew ingredient"}},
	"walnut":    {{taxonomy.TreeNuts, 1.0, 0.95, "walnut ingredient"}},
	"pecan":     {{taxonomy.TreeNuts, 1.0, 0.9, "pecan ingredient"}},
	"hazelnut":  {{taxonomy.TreeNuts, 1.0, 0.9, "hazelnut ingredient"}},
	"pistachio": {{taxonomy.TreeNuts, 1.0, 0.9, "pistachio ingredient"}},
	"macadamia": {{taxonomy.TreeNuts, 1.0, 0.9, "macadamia ingredient"}},
	"lupin": {
		{taxonomy.Lupin, 1.0, 0.9, "lupin ingredient"},
		{taxonomy.Peanut, 0.55, 0.65, "pulse cousin of peanuts"},
		{taxonomy.TreeNuts, 0.45, 0.6, "pulse cousin of nuts"},
	},
	"lupine": {
		{taxonomy.Lupin, 1.0, 0.9, "lupine ingredient"},
		{taxonomy.Peanut, 0.55, 0.65, "pulse cousin of peanuts"},
		{taxonomy.TreeNuts, 0.45, 0.6, "pulse cousin of nuts"},
	},
	"pulse": {
		{taxonomy.Peanut, 0.7, 0.65, "pulse/legume family"},
		{taxonomy.Soy, 0.6, 0.6, "pulse/legume family"},
		{taxonomy.TreeNuts, 0.45, 0.55, "pulse/legume cousin"},
	},
	"pulses": {
		{taxonomy.Peanut, 0.7, 0.65, "pulse/legume family"},
		{taxonomy.Soy, 0.6, 0.6, "pulse/legume family"},
		{taxonomy.TreeNuts, 0.45, 0.55, "pulse/legume cousin"},
	},
	"legume": {
		{taxonomy.Peanut, 0.7, 0.65, "legume family"},
		{taxonomy.Soy, 0.6, 0.6, "legume family"},
		{taxonomy.TreeNuts, 0.4, 0.5, "legume cousin"},
	},
	"legumes": {
		{taxonomy.Peanut, 0.7, 0.65, "legume family"},
		{taxonomy.Soy, 0.6, 0.6, "legume family"},
		{taxonomy.TreeNuts, 0.4, 0.5, "legume cousin"},
	},
	"soy":      {{taxonomy.Soy, 1.0, 0.95, "soy ingredient"}},
	"soybean":  {{taxonomy.Soy, 1.0, 0.95, "soy ingredient"}},
	"soybeans": {{taxonomy.Soy, 1.0, 0.95, "soy ingredient"}},
	// Seeds
	"sesame": {{taxonomy.Sesame, 1.0, 0.95, "sesame seed ingredient"}},
	// Gluten-bearing cereals
	"wheat":  {{taxonomy.Gluten, 1.0, 0.95, "gluten cereal (wheat)"}},
	"barley": {{taxonomy.Gluten, 1.0, 0.95, "gluten cereal (barley)"}},
	"rye":    {{taxonomy.Gluten, 1.0, 0.9, "gluten cereal (rye)"}},
	"spelt":  {{taxonomy.Gluten, 1.0, 0.9, "gluten cereal (spelt)"}},
	"oat":    {{taxonomy.Gluten, 0.45, 0.75, "cereal (oat)"}},
	"oats":   {{taxonomy.Gluten, 0.45, 0.75, "cereal (oats)"}},
	"cereal": {{taxonomy.Gluten, 0.7, 0.65, "cereal/grain family"}},
	"grain":  {{taxonomy.Gluten, 0.6, 0.6, "cereal/grain family"}},
	// Animal products
	"milk":   {{taxonomy.Milk, 1.0, 0.95, "milk/dairy ingredient"}},
	"dairy":  {{taxonomy.Milk, 0.9, 0.85, "dairy ingredient"}},
	"cheese": {{taxonomy.Milk, 0.85, 0.8, "cheese (dairy)"}},
	"casein": {{taxonomy.Milk, 0.9, 0.85, "casein (milk protein)"}},
	"egg":    {{taxonomy.Egg, 1.0, 0.95, "egg ingredient"}},
	"eggs":   {{taxonomy.Egg, 1.0, 0.95, "egg ingredient"}},
	"fish":   {{taxonomy.Fish, 1.0, 0.95, "fish ingredient"}},
	"salmon": {{taxonomy.Fish, 0.9, 0.9, "fish ingredient (salmon)"}},
	"tuna":   {{taxonomy.Fish, 0.9, 0.9, "fish ingredient (tuna)"}},
	// Condiments
	"mustard": {{taxonomy.Mustard, 1.0, 0.95, "mustard ingredient"}},
}

var plantMilkMarkers = map[string]struct{}{
	"soy": {}, "soya": {}, "almond": {}, "oat": {}, "rice": {},
	"coconut": {}, "hazelnut": {}, "pea": {}, "cashew": {},
}

var dairyMarkers = map[string]struct{}{
	"lactose": {}, "whey": {}, "casein": {}, "butter": {}, "cheese": {},
	"cream": {}, "yogurt": {}, "yoghurt": {},
}

// Dictionary applies the keyword rules to a product's ingredient text. An
// optional FoodDB record index (see records.go) adds food-group context for
// diagnostics; inference itself only needs the rule table.
type Dictionary struct {
	records []FoodRecord
	index   map[string][]int
}

// New returns a rules-only dictionary, ready for inference.
func New() *Dictionary {
	return &Dictionary{}
}

// InferAllergenFacts scans the product's ingredient text and emits one
// contains-fact per matching rule. Only codes in allowed are emitted, so the
// engine never introduces facts for allergens outside the user's profile.
// Tokens are visited in sorted order to keep the fact list deterministic.
func (d *Dictionary) InferAllergenFacts(product *model.ProductInfo, allowed []taxonomy.Code) []model.AllergenFact {
	texts := CollectIngredientTexts(product)
	if len(texts) == 0 {
		return nil
	}

	allowedSet := make(map[taxonomy.Code]struct{}, len(allowed))
	for _, code := range allowed {
		allowedSet[code] = struct{}{}
	}

	tokenSet := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range taxonomy.Tokenize(text) {
			tokenSet[tok] = struct{}{}
		}
	}
	tokens := make([]string, 0, len(tokenSet))
	for tok := range tokenSet {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	var facts []model.AllergenFact
	for _, tok := range tokens {
		for _, rule := range keywordRules[tok] {
			if _, ok := allowedSet[rule.Code]; !ok {
				continue
			}
			// A "milk" mention alongside only plant-based qualifiers is a
			// plant drink, not a dairy allergen.
			if rule.Code == taxonomy.Milk && isPlantBasedMilk(tokenSet) {
				continue
			}
			facts = append(facts, model.AllergenFact{
				Code:       rule.Code,
				Presence:   model.Contains,
				Source:     "foodb:keyword:" + tok,
				Weight:     rule.Weight,
				Confidence: rule.Confidence,
			})
		}
	}
	return facts
}

// CollectIngredientTexts gathers the ingredient text fields a source may have
// left in the raw payload, plus structured ingredient entries.
func CollectIngredientTexts(product *model.ProductInfo) []string {
	raw := product.RawPayload
	if raw == nil {
		return nil
	}
	var texts []string
	for _, key := range []string{
		"ingredients_text_en",
		"ingredients_text",
		"ingredients_text_fr",
		"ingredients_text_es",
	} {
		if text, ok := raw[key].(string); ok && text != "" {
			texts = append(texts, text)
		}
	}
	if entries, ok := raw["ingredients"].([]any); ok {
		for _, entry := range entries {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := obj["text"].(string); ok && text != "" {
				texts = append(texts, text)
			}
		}
	}
	return texts
}

// isPlantBasedMilk reports whether the token set describes a plant-based
// "milk" (soy milk, oat milk, ...) with no true dairy marker present.
func isPlantBasedMilk(tokens map[string]struct{}) bool {
	if _, ok := tokens["milk"]; !ok {
		return false
	}
	hasPlant := false
	for marker := range plantMilkMarkers {
		if _, ok := tokens[marker]; ok {
			hasPlant = true
			break
		}
	}
	if !hasPlant {
		return false
	}
	for marker := range dairyMarkers {
		if _, ok := tokens[marker]; ok {
			return false
		}
	}
	return true
}
