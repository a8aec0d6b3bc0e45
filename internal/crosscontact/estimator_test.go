package crosscontact

import (
	"math"
	"testing"

	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

func TestSafeLogit_ClampsExtremes(t *testing.T) {
	t.Parallel()
	for _, p := range []float64{0, 1, -0.5, 2.0} {
		if v := safeLogit(p); math.IsInf(v, 0) || math.IsNaN(v) {
			t.Errorf("safeLogit(%v) = %v, want finite", p, v)
		}
	}
	if safeLogit(0.2) >= safeLogit(0.8) {
		t.Error("safeLogit should be increasing")
	}
	if got := safeInvLogit(safeLogit(0.3)); math.Abs(got-0.3) > 1e-6 {
		t.Errorf("round trip through logit drifted: %v", got)
	}
}

func TestIngredientSignal_Weighting(t *testing.T) {
	t.Parallel()
	f := Features{
		CategoryStats: map[taxonomy.Code]model.SignalStats{
			taxonomy.Peanut: {Freq: 1.0, CoOccurrence: 0.5},
		},
		BrandStats: map[taxonomy.Code]model.SignalStats{
			taxonomy.Peanut: {Freq: 0.5, CoOccurrence: 1.0},
		},
	}
	want := 0.4*1.0 + 0.3*0.5 + 0.2*0.5 + 0.1*1.0
	if got := ingredientSignal(f, taxonomy.Peanut); math.Abs(got-want) > 1e-9 {
		t.Errorf("ingredientSignal = %v, want %v", got, want)
	}
	if got := ingredientSignal(f, taxonomy.Milk); got != 0 {
		t.Errorf("missing stats should contribute 0, got %v", got)
	}
}

func TestEstimateRisk_Baseline(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	est := EstimateRisk(Features{}, taxonomy.Milk, cfg)

	wantP := safeInvLogit(cfg.MuCategory)
	if math.Abs(est.Probability-wantP) > 1e-9 {
		t.Errorf("baseline probability = %v, want %v", est.Probability, wantP)
	}
	if !(est.LowerCI < est.Probability && est.Probability < est.UpperCI) {
		t.Errorf("CI should bracket the mean: [%v, %v] around %v", est.LowerCI, est.UpperCI, est.Probability)
	}
	if est.LowerCI < 0 || est.UpperCI > 1 {
		t.Errorf("CI escaped [0,1]: [%v, %v]", est.LowerCI, est.UpperCI)
	}
}

func TestEstimateRisk_MayContainBoost(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	base := EstimateRisk(Features{}, taxonomy.Milk, cfg)
	boosted := EstimateRisk(Features{
		MayContain: map[taxonomy.Code]bool{taxonomy.Milk: true},
	}, taxonomy.Milk, cfg)

	if boosted.Probability <= base.Probability {
		t.Errorf("boost should raise the mean: %v <= %v", boosted.Probability, base.Probability)
	}
	wantP := safeInvLogit(cfg.MuCategory + cfg.DeltaMayContainBoost)
	if math.Abs(boosted.Probability-wantP) > 1e-9 {
		t.Errorf("boosted probability = %v, want %v", boosted.Probability, wantP)
	}
	// Fixed shift carries no boost variance, so the interval tightens.
	baseWidth := base.UpperCI - base.LowerCI
	boostedLogitWidth := safeLogit(boosted.UpperCI) - safeLogit(boosted.LowerCI)
	baseLogitWidth := safeLogit(base.UpperCI) - safeLogit(base.LowerCI)
	if boostedLogitWidth >= baseLogitWidth {
		t.Errorf("boosted logit-scale CI %v should be narrower than base %v (prob widths %v)",
			boostedLogitWidth, baseLogitWidth, baseWidth)
	}
}

func TestEstimateRisk_MonotonicInBoostMagnitude(t *testing.T) {
	t.Parallel()
	features := Features{MayContain: map[taxonomy.Code]bool{taxonomy.Milk: true}}

	prev := -1.0
	for _, boost := range []float64{0.0, 0.5, 1.0, 2.5, 4.0, 8.0} {
		cfg := DefaultConfig()
		cfg.DeltaMayContainBoost = boost
		est := EstimateRisk(features, taxonomy.Milk, cfg)
		if est.Probability <= prev {
			t.Errorf("probability not increasing: boost=%v gave %v, previous %v", boost, est.Probability, prev)
		}
		if est.Probability <= 0 || est.Probability >= 1 {
			t.Errorf("probability escaped (0,1) at boost=%v: %v", boost, est.Probability)
		}
		prev = est.Probability
	}
}

func TestEstimateRisk_SignalWidensInterval(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	base := EstimateRisk(Features{}, taxonomy.Peanut, cfg)
	withSignal := EstimateRisk(Features{
		CategoryStats: map[taxonomy.Code]model.SignalStats{
			taxonomy.Peanut: {Freq: 1.0, CoOccurrence: 1.0},
		},
	}, taxonomy.Peanut, cfg)

	baseW := safeLogit(base.UpperCI) - safeLogit(base.LowerCI)
	sigW := safeLogit(withSignal.UpperCI) - safeLogit(withSignal.LowerCI)
	if sigW <= baseW {
		t.Errorf("a stronger signal should widen the logit interval: %v <= %v", sigW, baseW)
	}
	if withSignal.Signal <= 0 {
		t.Errorf("Signal = %v, want > 0", withSignal.Signal)
	}
}

func TestFinalRisk_PresenceDominates(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	blend := FinalRisk(Features{Declared: []taxonomy.Code{taxonomy.Milk}}, taxonomy.Milk, cfg)
	if blend.Risk != 1.0 {
		t.Errorf("declared presence should cap risk at 1.0, got %v", blend.Risk)
	}
	if blend.Presence != 1.0 {
		t.Errorf("Presence = %v, want 1", blend.Presence)
	}
}

func TestFinalRisk_MayContainFloor(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	blend := FinalRisk(Features{
		MayContain: map[taxonomy.Code]bool{taxonomy.Milk: true},
	}, taxonomy.Milk, cfg)
	if blend.Risk < 0.7 {
		t.Errorf("may-contain flag should contribute at least 0.7, got %v", blend.Risk)
	}
	if blend.MayContain != 1.0 {
		t.Errorf("MayContain = %v, want 1", blend.MayContain)
	}
}

func TestFinalRisk_DampensEvidenceFreePrior(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	blend := FinalRisk(Features{}, taxonomy.Molluscs, cfg)

	wantRisk := 0.5 * 0.2 * safeInvLogit(cfg.MuCategory)
	if math.Abs(blend.Risk-wantRisk) > 1e-9 {
		t.Errorf("dampened risk = %v, want %v", blend.Risk, wantRisk)
	}
	// The reported probability stays undampened for transparency.
	if math.Abs(blend.Probability-safeInvLogit(cfg.MuCategory)) > 1e-9 {
		t.Errorf("Probability = %v should stay the raw posterior mean", blend.Probability)
	}
}

func TestFinalRisk_SignalSuppressesDampening(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	blend := FinalRisk(Features{
		CategoryStats: map[taxonomy.Code]model.SignalStats{
			taxonomy.Peanut: {Freq: 0.5, CoOccurrence: 0.5},
		},
	}, taxonomy.Peanut, cfg)
	if math.Abs(blend.Risk-0.5*blend.Probability) > 1e-9 {
		t.Errorf("signal above threshold should use the raw posterior: risk=%v prob=%v", blend.Risk, blend.Probability)
	}
}
