// Package crosscontact estimates P(facility cross-contact) for a
// (product, allergen) pair under a two-level hierarchical logistic model with
// a category random effect, a brand random effect, an ingredient-derived
// signal and a deterministic "may contain" boost.
//
// There is no sampling: posterior mean and 95% credible interval come from a
// closed-form normal approximation on the logit scale, which keeps the
// estimator cheap enough to run inline for every requested allergen.
package crosscontact

import (
	"math"

	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

// Config holds the model hyperparameters. Callers may override per
// assessment; DefaultConfig matches the calibrated baseline.
type Config struct {
	// MuCategory is the category prior mean on the logit scale. The default
	// corresponds to roughly a 3% baseline contamination probability.
	MuCategory float64 `yaml:"mu_category"`

	// SigmaCategory is the category effect standard deviation.
	SigmaCategory float64 `yaml:"sigma_category"`

	// SigmaBrand is the zero-mean brand effect standard deviation.
	SigmaBrand float64 `yaml:"sigma_brand"`

	// SigmaGamma is the ingredient-signal coefficient standard deviation.
	SigmaGamma float64 `yaml:"sigma_gamma"`

	// SigmaDelta is the "may contain" boost standard deviation, applied only
	// when the boost is NOT active (an active boost is a fixed shift).
	SigmaDelta float64 `yaml:"sigma_delta"`

	// DeltaMayContainBoost is the fixed positive logit shift applied when the
	// product declares "may contain" for the allergen.
	DeltaMayContainBoost float64 `yaml:"delta_may_contain_boost"`
}

// DefaultConfig returns the baseline hyperparameters.
func DefaultConfig() Config {
	return Config{
		MuCategory:           -3.5,
		SigmaCategory:        0.5,
		SigmaBrand:           0.3,
		SigmaGamma:           0.5,
		SigmaDelta:           0.5,
		DeltaMayContainBoost: 2.5,
	}
}

// Features is the estimator's view of a product.
type Features struct {
	Category      string
	Brand         string
	MayContain    map[taxonomy.Code]bool
	CategoryStats map[taxonomy.Code]model.SignalStats
	BrandStats    map[taxonomy.Code]model.SignalStats

	// Declared lists allergen codes with explicit presence facts.
	Declared []taxonomy.Code
}

// Estimate is the closed-form posterior approximation for one allergen.
type Estimate struct {
	Probability float64 `json:"probability"`
	LowerCI     float64 `json:"lower_ci"`
	UpperCI     float64 `json:"upper_ci"`
	Signal      float64 `json:"signal"`
}

// Blend is the final risk contribution after mixing the posterior with the
// deterministic presence and "may contain" indicators.
type Blend struct {
	Risk        float64 `json:"risk"`
	Probability float64 `json:"probability"`
	LowerCI     float64 `json:"lower_ci"`
	UpperCI     float64 `json:"upper_ci"`
	Signal      float64 `json:"signal"`
	Presence    float64 `json:"presence"`
	MayContain  float64 `json:"may_contain"`
}

const logitEps = 1e-6

func safeLogit(p float64) float64 {
	p = math.Min(math.Max(p, logitEps), 1-logitEps)
	return math.Log(p / (1 - p))
}

func safeInvLogit(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ingredientSignal blends category and brand frequency / co-occurrence stats
// into one deterministic predictor. Missing stats contribute 0.
func ingredientSignal(f Features, code taxonomy.Code) float64 {
	cat := f.CategoryStats[code]
	brand := f.BrandStats[code]
	return 0.4*cat.Freq + 0.3*cat.CoOccurrence + 0.2*brand.Freq + 0.1*brand.CoOccurrence
}

// EstimateRisk approximates the posterior mean and 95% credible interval of
// the cross-contact probability for one allergen.
func EstimateRisk(f Features, code taxonomy.Code, cfg Config) Estimate {
	// Category effect centered on the prior mean; brand effect is zero-mean.
	alphaCat := cfg.MuCategory
	varCat := cfg.SigmaCategory * cfg.SigmaCategory
	varBrand := cfg.SigmaBrand * cfg.SigmaBrand

	// The ingredient coefficient is zero-mean, so the signal contributes
	// variance but not mean.
	signal := ingredientSignal(f, code)
	varGamma := cfg.SigmaGamma * cfg.SigmaGamma * signal * signal

	// An active "may contain" boost is a fixed shift; only the inactive case
	// carries boost uncertainty.
	mayContain := f.MayContain[code]
	delta := 0.0
	varDelta := cfg.SigmaDelta * cfg.SigmaDelta
	if mayContain {
		delta = cfg.DeltaMayContainBoost
		varDelta = 0
	}

	meanLogit := alphaCat + delta
	varLogit := varCat + varBrand + varGamma + varDelta
	sdLogit := math.Sqrt(math.Max(varLogit, 1e-9))

	return Estimate{
		Probability: safeInvLogit(meanLogit),
		LowerCI:     safeInvLogit(meanLogit - 1.96*sdLogit),
		UpperCI:     safeInvLogit(meanLogit + 1.96*sdLogit),
		Signal:      signal,
	}
}

// FinalRisk blends the posterior probability with the deterministic presence
// and "may contain" indicators:
//
//	risk = min(1.0, presence + 0.7*mayContain + 0.5*probability)
//
// When there is no direct evidence at all (no declaration, no trace flag and
// a negligible ingredient signal) the posterior is dampened by 0.2 so weak,
// evidence-free priors cannot inflate risk for obscure allergens.
func FinalRisk(f Features, code taxonomy.Code, cfg Config) Blend {
	est := EstimateRisk(f, code, cfg)

	presence := 0.0
	for _, declared := range f.Declared {
		if declared == code {
			presence = 1.0
			break
		}
	}
	mayFlag := 0.0
	if f.MayContain[code] {
		mayFlag = 1.0
	}

	prob := est.Probability
	if presence == 0 && mayFlag == 0 && est.Signal <= 0.05 {
		prob *= 0.2
	}

	return Blend{
		Risk:        math.Min(1.0, presence+0.7*mayFlag+0.5*prob),
		Probability: est.Probability,
		LowerCI:     est.LowerCI,
		UpperCI:     est.UpperCI,
		Signal:      est.Signal,
		Presence:    presence,
		MayContain:  mayFlag,
	}
}
