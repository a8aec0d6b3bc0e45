// Package risk contains the evidence fusion engine: it collects allergen
// facts from the product, facility profiles, the ingredient dictionary and
// the cross-contact estimator, filters them by user preference and aggregates
// them into per-allergen and overall scores on [0,100].
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/duartefn/rotulo/internal/crosscontact"
	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/source"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

var (
	// ErrNilProduct signals a call-contract violation, not a data problem.
	ErrNilProduct = errors.New("nil product")

	// ErrNilProfile signals a call-contract violation, not a data problem.
	ErrNilProfile = errors.New("nil user profile")
)

// Dictionary is the ingredient-dictionary collaborator contract.
// Implementations must only emit facts whose code is in allowed.
type Dictionary interface {
	InferAllergenFacts(product *model.ProductInfo, allowed []taxonomy.Code) []model.AllergenFact
}

// DefaultFallbackScore is the conservative score applied when no facts
// survive filtering for an allergen.
const DefaultFallbackScore = 5.0

// proximityTrigger elevates risk for a target allergen when a closely
// related allergen is already present (shared lines).
type proximityTrigger struct {
	trigger    taxonomy.Code
	weight     float64
	confidence float64
	rationale  string
}

// proximityTriggers: hazelnut/tree nuts often share lines with peanuts, and
// the reverse.
var proximityTriggers = map[taxonomy.Code][]proximityTrigger{
	taxonomy.Peanut: {
		{taxonomy.TreeNuts, 0.35, 0.6, "Close contact with tree nuts (e.g., hazelnut)"},
	},
	taxonomy.TreeNuts: {
		{taxonomy.Peanut, 0.35, 0.6, "Close contact with peanuts"},
	},
}

// Config carries the engine's collaborators and tuning knobs.
type Config struct {
	// Source resolves barcodes for Assess. Optional when callers only use
	// AssessProduct.
	Source source.ProductSource

	// Dictionary, when set, enriches products with ingredient-derived facts.
	Dictionary Dictionary

	// FacilityProfiles are engine-level defaults converted into facility
	// facts for every assessed product, on top of the product's own.
	FacilityProfiles []model.FacilityAllergenProfile

	// FallbackScore replaces DefaultFallbackScore when > 0.
	FallbackScore float64

	// CrossContact overrides the estimator hyperparameters.
	CrossContact *crosscontact.Config

	Logger logging.Logger
}

// Engine computes risk scores. Safe for concurrent use: all state is
// read-only after construction, and each assessment owns its product.
type Engine struct {
	src              source.ProductSource
	dict             Dictionary
	facilityProfiles []model.FacilityAllergenProfile
	fallbackScore    float64
	ccCfg            crosscontact.Config
	logger           logging.Logger
}

// New builds an Engine from cfg, filling in defaults.
func New(cfg Config) *Engine {
	fallback := cfg.FallbackScore
	if fallback <= 0 {
		fallback = DefaultFallbackScore
	}
	ccCfg := crosscontact.DefaultConfig()
	if cfg.CrossContact != nil {
		ccCfg = *cfg.CrossContact
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Engine{
		src:              cfg.Source,
		dict:             cfg.Dictionary,
		facilityProfiles: cfg.FacilityProfiles,
		fallbackScore:    fallback,
		ccCfg:            ccCfg,
		logger:           logger.With(logging.Field{Key: "component", Value: "risk_engine"}),
	}
}

// Assess fetches a product by EAN from the configured source and scores it
// against the user profile. Source errors (including not-found) pass through
// wrapped; check with errors.Is(err, source.ErrNotFound).
func (e *Engine) Assess(ctx context.Context, ean string, profile *model.UserAllergyProfile) (*model.RiskResult, error) {
	if e.src == nil {
		return nil, errors.New("no product source configured")
	}
	product, err := e.src.Get(ctx, ean)
	if err != nil {
		return nil, fmt.Errorf("assess %s: %w", ean, err)
	}
	return e.AssessProduct(product, profile)
}

// AssessProduct scores a fully formed product (e.g. OCR or test input)
// without fetching. The product is enriched in place with derived facts; one
// assessment must own the product exclusively for its duration.
func (e *Engine) AssessProduct(product *model.ProductInfo, profile *model.UserAllergyProfile) (*model.RiskResult, error) {
	if product == nil {
		return nil, ErrNilProduct
	}
	if profile == nil {
		return nil, ErrNilProfile
	}

	normalizedCodes := profile.NormalizedCodes()

	// Enrichment works on a local accumulator and writes back once, so no
	// stage observes another's partial state.
	facts := append([]model.AllergenFact(nil), product.Facts...)
	for _, fp := range product.Facilities {
		facts = append(facts, fp.ToFact())
	}
	for _, fp := range e.facilityProfiles {
		facts = append(facts, fp.ToFact())
	}
	if e.dict != nil {
		facts = append(facts, e.dict.InferAllergenFacts(product, normalizedCodes)...)
	}
	product.Facts = facts

	var features crosscontact.Features
	if profile.AvoidFacilityRisk {
		features = buildFeatures(product)
	}

	perAllergen := make(map[taxonomy.Code]model.RiskDetail, len(normalizedCodes))
	for _, code := range normalizedCodes {
		var selected []model.AllergenFact
		for _, fact := range product.Facts {
			if fact.Code == code && includeFact(fact, profile) {
				selected = append(selected, fact)
			}
		}
		selected = append(selected, e.proximityFacts(product, code, profile)...)

		if profile.AvoidFacilityRisk {
			blend := crosscontact.FinalRisk(features, code, e.ccCfg)
			if blend.Risk > 0 {
				selected = append(selected, model.AllergenFact{
					Code:       code,
					Presence:   model.FacilityRisk,
					Source:     "bhm:cross_contact",
					Weight:     blend.Risk,
					Confidence: 1.0,
				})
			}
		}

		var score float64
		var reasons []string
		if len(selected) > 0 {
			scores := make([]float64, 0, len(selected))
			for _, fact := range selected {
				scores = append(scores, fact.NormalizedScore())
				reasons = append(reasons, factReason(fact))
			}
			score = aggregateScores(scores)
		} else {
			score = e.fallbackScore
			reasons = fallbackReasons(product)
		}

		perAllergen[code] = model.RiskDetail{
			Code:    code,
			Score:   score,
			Reasons: reasons,
			Facts:   selected,
		}
	}

	// Overall score uses the same complementary-probability rule across the
	// per-allergen scores, walked in profile order for determinism.
	scores := make([]float64, 0, len(normalizedCodes))
	for _, code := range normalizedCodes {
		scores = append(scores, perAllergen[code].Score)
	}
	total := aggregateScores(scores)

	e.logger.Debug("assessment complete",
		logging.Field{Key: "ean", Value: product.EAN},
		logging.Field{Key: "allergens", Value: len(perAllergen)},
		logging.Field{Key: "total", Value: total})

	return &model.RiskResult{
		TotalScore:  math.Round(total*100) / 100,
		Product:     product,
		PerAllergen: perAllergen,
	}, nil
}

// CrossContact exposes the blended estimator output per requested code, for
// callers that want the probability breakdown alongside the risk result.
func (e *Engine) CrossContact(product *model.ProductInfo, codes []taxonomy.Code) map[taxonomy.Code]crosscontact.Blend {
	if product == nil {
		return nil
	}
	features := buildFeatures(product)
	out := make(map[taxonomy.Code]crosscontact.Blend, len(codes))
	for _, code := range codes {
		out[code] = crosscontact.FinalRisk(features, code, e.ccCfg)
	}
	return out
}

// includeFact respects user preferences about traces and facility
// cross-contact; explicit declarations always count.
func includeFact(fact model.AllergenFact, profile *model.UserAllergyProfile) bool {
	switch fact.Presence {
	case model.FacilityRisk:
		return profile.AvoidFacilityRisk
	case model.MayContain:
		return profile.AvoidTraces
	}
	return true
}

// proximityFacts synthesizes may-contain facts when a trigger allergen is
// already present anywhere in the product's enriched fact list.
func (e *Engine) proximityFacts(product *model.ProductInfo, target taxonomy.Code, profile *model.UserAllergyProfile) []model.AllergenFact {
	triggers := proximityTriggers[target]
	if len(triggers) == 0 {
		return nil
	}
	var facts []model.AllergenFact
	for _, trig := range triggers {
		if !product.HasFactFor(trig.trigger) {
			continue
		}
		fact := model.AllergenFact{
			Code:       target,
			Presence:   model.MayContain,
			Source:     "proximity:" + strings.ToLower(string(trig.trigger)),
			Weight:     trig.weight,
			Confidence: trig.confidence,
		}
		if includeFact(fact, profile) {
			facts = append(facts, fact)
		}
	}
	return facts
}

// aggregateScores combines scores via complementary probability so multiple
// signals for the same allergen do not overcount:
//
//	combined = 100 * (1 - prod(1 - s_i/100))
func aggregateScores(scores []float64) float64 {
	complement := 1.0
	for _, score := range scores {
		complement *= math.Max(0.0, 1.0-math.Min(score, 100.0)/100.0)
	}
	return math.Min(100.0, (1.0-complement)*100.0)
}

// factReason renders one human-readable reason line per contributing fact.
func factReason(fact model.AllergenFact) string {
	return fmt.Sprintf("%s via %s (w=%s, conf=%s)",
		fact.Presence, fact.Source,
		strconv.FormatFloat(fact.Weight, 'g', -1, 64),
		strconv.FormatFloat(fact.Confidence, 'g', -1, 64))
}

// fallbackReasons explains why the conservative fallback applies, preferring
// the source's own data-quality notes.
func fallbackReasons(product *model.ProductInfo) []string {
	if len(product.DataNotes) == 0 {
		return []string{"No direct data; applying conservative fallback"}
	}
	reasons := append([]string(nil), product.DataNotes...)
	return append(reasons, "Applying conservative fallback score")
}

// buildFeatures maps the product record (and any raw payload leftovers) to
// the estimator's feature view.
func buildFeatures(product *model.ProductInfo) crosscontact.Features {
	payload := product.RawPayload

	category := product.Category
	if category == "" && payload != nil {
		if tags, ok := payload["categories_tags"].([]any); ok && len(tags) > 0 {
			if s, ok := tags[0].(string); ok {
				category = s
			}
		}
		if category == "" {
			if s, ok := payload["category"].(string); ok {
				category = s
			}
		}
	}

	brand := product.Brand
	if brand == "" && payload != nil {
		if s, ok := payload["brands"].(string); ok {
			brand = s
		}
	}

	traces := product.TracesTags
	if len(traces) == 0 && payload != nil {
		if tags, ok := payload["traces_tags"].([]any); ok {
			for _, tag := range tags {
				if s, ok := tag.(string); ok {
					traces = append(traces, s)
				}
			}
		}
	}
	mayContain := make(map[taxonomy.Code]bool, len(traces))
	for _, tag := range traces {
		key := tag
		if _, suffix, ok := strings.Cut(tag, ":"); ok {
			key = suffix
		}
		mayContain[taxonomy.Code(strings.ToUpper(key))] = true
	}

	return crosscontact.Features{
		Category:      category,
		Brand:         brand,
		MayContain:    mayContain,
		CategoryStats: product.CategoryStats,
		BrandStats:    product.BrandStats,
		Declared:      product.FactCodes(),
	}
}
