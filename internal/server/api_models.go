package server

import (
	"github.com/duartefn/rotulo/internal/crosscontact"
	"github.com/duartefn/rotulo/internal/model"
)

// RiskRequest is the payload for POST /risk.
type RiskRequest struct {
	// Barcode is the product EAN/UPC.
	Barcode string `json:"barcode" example:"737628064502"`

	// UserAllergens are allergen codes or any recognized synonym.
	UserAllergens []string `json:"user_allergens" example:"[\"MILK\",\"PEANUT\"]"`

	// ConsiderMayContain treats "may contain" / traces as risky.
	ConsiderMayContain *bool `json:"consider_may_contain,omitempty" example:"true"`

	// ConsiderFacility includes facility cross-contact in scoring.
	ConsiderFacility bool `json:"consider_facility" example:"false"`
}

// RiskResponse is the result payload for POST /risk.
type RiskResponse struct {
	RequestID    string                        `json:"request_id"`
	Product      ProductSummary                `json:"product"`
	CrossContact map[string]crosscontact.Blend `json:"cross_contact,omitempty"`
	Risk         RiskBreakdown                 `json:"risk"`
}

// ProductSummary is a JSON-friendly view of the assessed product.
type ProductSummary struct {
	EAN             string         `json:"ean"`
	Name            string         `json:"name"`
	Brand           string         `json:"brand,omitempty"`
	Source          string         `json:"source"`
	TracesTags      []string       `json:"traces_tags,omitempty"`
	IngredientsText string         `json:"ingredients_text,omitempty"`
	Raw             map[string]any `json:"raw,omitempty"`
}

// RiskBreakdown carries the per-allergen details and the overall score.
type RiskBreakdown struct {
	PerAllergen map[string]AllergenRisk `json:"per_allergen"`
	FinalScore  float64                 `json:"final_score"`
}

// AllergenRisk is one allergen's score and reasons.
type AllergenRisk struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// AllergenInfo describes one catalog entry for GET /allergens.
type AllergenInfo struct {
	Code  string `json:"code" example:"MILK"`
	Label string `json:"label" example:"Milk and dairy products including lactose"`
}

// ResolveRequest is the payload for POST /resolve.
type ResolveRequest struct {
	Token string `json:"token" example:"glúten"`
}

// ResolveResponse reports the canonical code for a token, if any.
type ResolveResponse struct {
	Token    string `json:"token"`
	Code     string `json:"allergen_code,omitempty"`
	Resolved bool   `json:"resolved"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}

// wsMessage frames one streaming update on /ws/risk.
type wsMessage struct {
	Type   string            `json:"type"` // "detail" or "summary"
	Detail *model.RiskDetail `json:"detail,omitempty"`
	Total  *float64          `json:"total_score,omitempty"`
}
