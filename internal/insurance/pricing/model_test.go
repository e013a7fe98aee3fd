package pricing_test

import (
	"errors"
	"math"
	"testing"

	"github.com/securepremium/securepremium/internal/insurance/model"
	"github.com/securepremium/securepremium/internal/insurance/pricing"
)

func fp(v float64) *float64 { return &v }

func TestTier_unknownTier(t *testing.T) {
	m := pricing.NewModel()
	_, err := m.Tier("platinum")
	var invalid *model.ErrInvalidCoverageTier
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidCoverageTier, got %v", err)
	}
}

func TestTiers_orderedAndComplete(t *testing.T) {
	m := pricing.NewModel()
	tiers := m.Tiers()
	if len(tiers) != 3 {
		t.Fatalf("got %d tiers, want 3", len(tiers))
	}
	wantMultipliers := []float64{1.0, 1.5, 2.5}
	for i, want := range wantMultipliers {
		if tiers[i].BaseMultiplier != want {
			t.Errorf("tier %q multiplier: got %v, want %v", tiers[i].Name, tiers[i].BaseMultiplier, want)
		}
	}
	// Richer tiers must cover at least what cheaper tiers cover.
	if len(tiers[0].CoverageItems) >= len(tiers[1].CoverageItems) ||
		len(tiers[1].CoverageItems) >= len(tiers[2].CoverageItems) {
		t.Error("coverage items should grow with tier")
	}
}

func TestRiskMultiplier_piecewiseAtFullConfidence(t *testing.T) {
	cases := []struct {
		risk float64
		want float64
	}{
		{0.0, 0.5},
		{0.3, 0.8},
		{0.5, 1.2},
		{0.7, 2.0},
		{1.0, 4.0},
	}
	for _, tc := range cases {
		got := pricing.RiskMultiplier(tc.risk, 1.0)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("RiskMultiplier(%v, 1.0) = %v, want %v", tc.risk, got, tc.want)
		}
	}
}

func TestRiskMultiplier_confidenceDampening(t *testing.T) {
	// raw multiplier at risk 1.0 is 4.0; zero confidence keeps half the
	// distance from 1.0: 1 + 3*0.5 = 2.5.
	got := pricing.RiskMultiplier(1.0, 0.0)
	if math.Abs(got-2.5) > 1e-9 {
		t.Errorf("RiskMultiplier(1.0, 0.0) = %v, want 2.5", got)
	}

	// Dampening pulls toward 1.0 from both sides.
	low := pricing.RiskMultiplier(0.0, 0.0)
	if math.Abs(low-0.75) > 1e-9 {
		t.Errorf("RiskMultiplier(0.0, 0.0) = %v, want 0.75", low)
	}

	// Monotone in confidence for a risky device.
	if pricing.RiskMultiplier(0.9, 0.3) >= pricing.RiskMultiplier(0.9, 0.9) {
		t.Error("higher confidence should widen the multiplier for high risk")
	}
}

func TestReputationAdjustment_bands(t *testing.T) {
	cases := []struct {
		score float64
		want  float64
	}{
		{0.10, 1.25},
		{0.29, 1.25},
		{0.30, 1.10},
		{0.49, 1.10},
		{0.50, 1.00},
		{0.69, 1.00},
		{0.70, 0.90},
		{0.84, 0.90},
		{0.85, 0.80},
		{1.0, 0.80},
	}
	for _, tc := range cases {
		if got := pricing.ReputationAdjustment(&tc.score); got != tc.want {
			t.Errorf("ReputationAdjustment(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
	if got := pricing.ReputationAdjustment(nil); got != 1.0 {
		t.Errorf("nil reputation adjustment: got %v, want 1.0", got)
	}
}

func TestVolumeDiscountRate_brackets(t *testing.T) {
	cases := []struct {
		count int
		want  float64
	}{
		{1, 0.0},
		{9, 0.0},
		{10, 0.05},
		{49, 0.05},
		{50, 0.10},
		{99, 0.10},
		{100, 0.15},
		{500, 0.15},
		{501, 0.20},
	}
	for _, tc := range cases {
		if got := pricing.VolumeDiscountRate(tc.count); got != tc.want {
			t.Errorf("VolumeDiscountRate(%d) = %v, want %v", tc.count, got, tc.want)
		}
	}
}

func TestCalculateBasePremium_clampsToBounds(t *testing.T) {
	m := pricing.NewModel()

	// Minimal risk, best reputation, basic tier: 120*0.5*1.0*0.8 = 48,
	// above the floor so no clamp.
	low, err := m.CalculateBasePremium(0.0, 1.0, "basic", fp(0.95))
	if err != nil {
		t.Fatal(err)
	}
	if low != 48.00 {
		t.Errorf("low-risk premium: got %v, want 48.00", low)
	}

	// Maximal risk on the premium tier blows past the cap: clamp to 500.
	high, err := m.CalculateBasePremium(1.0, 1.0, "premium", fp(0.10))
	if err != nil {
		t.Fatal(err)
	}
	if high != pricing.MaxAnnualPremium {
		t.Errorf("high-risk premium: got %v, want %v", high, pricing.MaxAnnualPremium)
	}
}

func TestCalculateBasePremium_rejectsInvalidScores(t *testing.T) {
	m := pricing.NewModel()

	if _, err := m.CalculateBasePremium(1.5, 1.0, "basic", nil); err == nil {
		t.Error("expected error for risk score above 1")
	}
	if _, err := m.CalculateBasePremium(0.5, -0.1, "basic", nil); err == nil {
		t.Error("expected error for negative confidence")
	}
	if _, err := m.CalculateBasePremium(0.5, math.NaN(), "basic", nil); err == nil {
		t.Error("expected error for NaN confidence")
	}
	if _, err := m.CalculateBasePremium(0.5, 1.0, "basic", fp(2.0)); err == nil {
		t.Error("expected error for reputation score above 1")
	}
	if _, err := m.CalculateBasePremium(0.5, 1.0, "deluxe", nil); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestApplyVolumeDiscount_roundsToCents(t *testing.T) {
	m := pricing.NewModel()
	discounted, rate := m.ApplyVolumeDiscount(333.33, 100)
	if rate != 0.15 {
		t.Errorf("rate: got %v, want 0.15", rate)
	}
	if discounted != 283.33 {
		t.Errorf("discounted premium: got %v, want 283.33", discounted)
	}
}

func TestCalculateAnnualPolicyCost_termDiscounts(t *testing.T) {
	m := pricing.NewModel()

	oneYear := m.CalculateAnnualPolicyCost(10.0, 12, true, 0)
	if oneYear.FinalAnnualCost != 120.00 {
		t.Errorf("12-month cost: got %v, want 120.00", oneYear.FinalAnnualCost)
	}
	if oneYear.Adjustments["term_discount"] != 0.0 {
		t.Errorf("12-month term discount: got %v, want 0", oneYear.Adjustments["term_discount"])
	}

	twoYear := m.CalculateAnnualPolicyCost(10.0, 24, true, 0)
	if twoYear.Adjustments["term_discount"] != 0.05 {
		t.Errorf("24-month term discount: got %v, want 0.05", twoYear.Adjustments["term_discount"])
	}
	if twoYear.FinalAnnualCost != 228.00 {
		t.Errorf("24-month cost: got %v, want 228.00", twoYear.FinalAnnualCost)
	}

	threeYear := m.CalculateAnnualPolicyCost(10.0, 36, true, 0)
	if threeYear.Adjustments["term_discount"] != 0.10 {
		t.Errorf("36-month term discount: got %v, want 0.10", threeYear.Adjustments["term_discount"])
	}
}

func TestCalculateAnnualPolicyCost_bulkOnlyWhenNotIncluded(t *testing.T) {
	m := pricing.NewModel()

	withBulk := m.CalculateAnnualPolicyCost(10.0, 12, false, 100)
	if withBulk.Adjustments["bulk_discount"] != 0.15 {
		t.Errorf("bulk discount: got %v, want 0.15", withBulk.Adjustments["bulk_discount"])
	}

	alreadyIncluded := m.CalculateAnnualPolicyCost(10.0, 12, true, 100)
	if _, ok := alreadyIncluded.Adjustments["bulk_discount"]; ok {
		t.Error("bulk discount must not stack when the premium already includes it")
	}
}
