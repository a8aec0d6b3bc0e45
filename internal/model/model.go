// Package model holds the evidence types every pipeline stage produces and
// consumes: allergen facts, facility profiles, the normalized product record,
// the user profile, and the scored result.
package model

import (
	"strings"

	"github.com/duartefn/rotulo/internal/taxonomy"
)

// PresenceType classifies how an allergen is present. It determines the base
// severity weighting during scoring.
type PresenceType string

const (
	// Contains means the allergen is explicitly declared present.
	Contains PresenceType = "contains"

	// MayContain covers trace / cross-contact declarations on the label.
	MayContain PresenceType = "may_contain"

	// FacilityRisk is inferred probabilistic facility contamination.
	FacilityRisk PresenceType = "facility_risk"
)

// AllergenFact is one unit of evidence that an allergen may be present in or
// around a product. Facts are immutable once created; pipeline stages append
// new facts, they never modify existing ones.
type AllergenFact struct {
	Code       taxonomy.Code `json:"allergen_code"`
	Presence   PresenceType  `json:"presence_type"`
	Source     string        `json:"source"`
	Weight     float64       `json:"weight"`
	Confidence float64       `json:"confidence"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizedScore returns the 0-100 severity score for this fact before user
// context. Facility-risk weights are already probability-like quantities from
// the cross-contact estimator, so they scale directly; other presence types
// apply a base factor first. Out-of-range weight or confidence is clamped,
// never rejected.
func (f AllergenFact) NormalizedScore() float64 {
	w := clamp01(f.Weight)
	conf := clamp01(f.Confidence)

	if f.Presence == FacilityRisk {
		return min(100.0, 100.0*w*conf)
	}

	base := 1.0
	if f.Presence == MayContain {
		base = 0.65
	}
	return min(100.0, 100.0*base*w*conf)
}

// FacilityAllergenProfile describes a manufacturing facility's historical
// handling of one allergen.
type FacilityAllergenProfile struct {
	FacilityID           *int64        `json:"facility_id,omitempty"`
	Code                 taxonomy.Code `json:"allergen_code"`
	ProcessType          string        `json:"process_type"`
	ProportionOfProducts *float64      `json:"proportion_of_products,omitempty"`
}

// ToFact converts the profile into one facility-risk fact. A missing or zero
// proportion falls back to a conservative mid-level weight; confidence is
// higher when the proportion was actually measured.
func (p FacilityAllergenProfile) ToFact() AllergenFact {
	weight := 0.5
	if p.ProportionOfProducts != nil && *p.ProportionOfProducts != 0 {
		weight = *p.ProportionOfProducts
	}
	confidence := 0.8
	if p.ProportionOfProducts == nil {
		confidence = 0.6
	}
	return AllergenFact{
		Code:       p.Code,
		Presence:   FacilityRisk,
		Source:     "facility_profile",
		Weight:     weight,
		Confidence: confidence,
	}
}

// SignalStats is a frequency / co-occurrence pair in [0,1] used as an
// ingredient-derived predictor by the cross-contact estimator.
type SignalStats struct {
	Freq         float64 `json:"freq"`
	CoOccurrence float64 `json:"co_occurrence"`
}

// ProductInfo is the standardized product record, independent of which source
// produced it. One assessment owns one ProductInfo; concurrent assessments
// must not share an instance because the fact list grows during enrichment.
type ProductInfo struct {
	EAN            string                  `json:"ean"`
	Name           string                  `json:"name"`
	Brand          string                  `json:"brand,omitempty"`
	ManufacturerID *int64                  `json:"manufacturer_id,omitempty"`
	Source         string                  `json:"source"`
	Facts          []AllergenFact          `json:"allergen_facts"`
	Facilities     []FacilityAllergenProfile `json:"facilities,omitempty"`

	// Category and the stats maps feed the cross-contact estimator.
	Category      string                         `json:"category,omitempty"`
	CategoryStats map[taxonomy.Code]SignalStats  `json:"category_stats,omitempty"`
	BrandStats    map[taxonomy.Code]SignalStats  `json:"brand_stats,omitempty"`

	// TracesTags are raw "may contain" declarations from the source.
	TracesTags []string `json:"traces_tags,omitempty"`

	// RawPayload preserves the source document for traceability.
	RawPayload map[string]any `json:"raw,omitempty"`

	// DataNotes explain missing or inconclusive data from the source and
	// surface as fallback reasons when no facts survive filtering.
	DataNotes []string `json:"data_notes,omitempty"`
}

// FactCodes returns the unique allergen codes present in the fact list, in
// first-appearance order.
func (p *ProductInfo) FactCodes() []taxonomy.Code {
	seen := make(map[taxonomy.Code]struct{}, len(p.Facts))
	var out []taxonomy.Code
	for _, fact := range p.Facts {
		if _, ok := seen[fact.Code]; ok {
			continue
		}
		seen[fact.Code] = struct{}{}
		out = append(out, fact.Code)
	}
	return out
}

// HasFactFor reports whether any fact references code.
func (p *ProductInfo) HasFactFor(code taxonomy.Code) bool {
	for _, fact := range p.Facts {
		if fact.Code == code {
			return true
		}
	}
	return false
}

// UserAllergyProfile captures which allergens the user wants evaluated and
// how strict to be about indirect evidence.
type UserAllergyProfile struct {
	Codes             []string `json:"allergen_codes"`
	AvoidTraces       bool     `json:"avoid_traces"`
	AvoidFacilityRisk bool     `json:"avoid_facility_risk"`
}

// NormalizedCodes uppercases and deduplicates the requested codes, keeping
// input order so reports are deterministic.
func (u UserAllergyProfile) NormalizedCodes() []taxonomy.Code {
	seen := make(map[taxonomy.Code]struct{}, len(u.Codes))
	var out []taxonomy.Code
	for _, raw := range u.Codes {
		code := taxonomy.Code(strings.ToUpper(strings.TrimSpace(raw)))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// RiskDetail is the per-allergen breakdown: the aggregated score, one reason
// string per contributing fact (insertion order), and the facts themselves.
type RiskDetail struct {
	Code    taxonomy.Code  `json:"allergen_code"`
	Score   float64        `json:"score"`
	Reasons []string       `json:"reasons"`
	Facts   []AllergenFact `json:"facts"`
}

// RiskResult is the outcome of one assessment. It is immutable after
// construction.
type RiskResult struct {
	TotalScore  float64                        `json:"total_score"`
	Product     *ProductInfo                   `json:"product"`
	PerAllergen map[taxonomy.Code]RiskDetail   `json:"per_allergen"`
}

// WorstOffender returns the detail with the highest score, breaking ties by
// code so the answer is stable. Returns nil when there are no details.
func (r *RiskResult) WorstOffender() *RiskDetail {
	var worst *RiskDetail
	for code := range r.PerAllergen {
		detail := r.PerAllergen[code]
		if worst == nil || detail.Score > worst.Score ||
			(detail.Score == worst.Score && detail.Code < worst.Code) {
			worst = &detail
		}
	}
	return worst
}
