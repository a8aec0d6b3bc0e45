package main

import (
	"fmt"

	"github.com/duartefn/rotulo/internal/crosscontact"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/risk"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

// demoProduct builds a product record the way a source backend would, with a
// declared allergen, a traces warning and a facility profile.
func demoProduct() *model.ProductInfo {
	proportion := 0.3
	return &model.ProductInfo{
		EAN:    "5601234567890",
		Name:   "Chocolate Hazelnut Wafers",
		Brand:  "Demo Foods",
		Source: "demo",
		Facts: []model.AllergenFact{
			{Code: taxonomy.Gluten, Presence: model.Contains, Source: "label", Weight: 1.0, Confidence: 1.0},
			{Code: taxonomy.TreeNuts, Presence: model.Contains, Source: "label", Weight: 1.0, Confidence: 1.0},
			{Code: taxonomy.Milk, Presence: model.MayContain, Source: "label:traces", Weight: 0.6, Confidence: 0.6},
		},
		Facilities: []model.FacilityAllergenProfile{
			{Code: taxonomy.Peanut, ProcessType: "shared_line", ProportionOfProducts: &proportion},
		},
		Category: "chocolate wafers",
		CategoryStats: map[taxonomy.Code]model.SignalStats{
			taxonomy.Peanut: {Freq: 0.4, CoOccurrence: 0.5},
		},
		TracesTags: []string{"en:milk"},
	}
}

func main() {
	engine := risk.New(risk.Config{
		CrossContact: func() *crosscontact.Config { c := crosscontact.DefaultConfig(); return &c }(),
	})

	profile := &model.UserAllergyProfile{
		Codes:             []string{"GLUTEN", "MILK", "PEANUT", "EGG"},
		AvoidTraces:       true,
		AvoidFacilityRisk: true,
	}

	result, err := engine.AssessProduct(demoProduct(), profile)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("%s (%s)\n", result.Product.Name, result.Product.EAN)
	fmt.Printf("Total risk: %.2f/100\n", result.TotalScore)
	for _, code := range profile.NormalizedCodes() {
		detail := result.PerAllergen[code]
		fmt.Printf("  %-8s %6.2f/100\n", code, detail.Score)
		for _, reason := range detail.Reasons {
			fmt.Printf("           %s\n", reason)
		}
	}
}
