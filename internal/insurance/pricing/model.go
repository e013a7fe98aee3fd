// Package pricing converts risk, confidence, and reputation into priced
// insurance premiums. The Model holds the static pricing tables (tiers,
// multipliers, discount brackets); the Engine composes them into quotes.
package pricing

import (
	"math"

	"github.com/securepremium/securepremium/internal/insurance/model"
)

// Base pricing constants (annual, USD).
const (
	BaseAnnualPremium = 120.0
	MinAnnualPremium  = 30.0
	MaxAnnualPremium  = 500.0
)

// Model holds the coverage tier table and discount brackets.
type Model struct {
	tiers map[string]model.CoverageTier
}

// NewModel returns a Model loaded with the standard coverage tiers.
func NewModel() *Model {
	return &Model{
		tiers: map[string]model.CoverageTier{
			"basic": {
				Name:           "basic",
				BaseMultiplier: 1.0,
				MaxAnnualClaim: 5000,
				Deductible:     500,
				CoverageItems: []string{
					"malware_removal", "data_recovery", "incident_support",
				},
			},
			"standard": {
				Name:           "standard",
				BaseMultiplier: 1.5,
				MaxAnnualClaim: 25000,
				Deductible:     250,
				CoverageItems: []string{
					"malware_removal", "data_recovery", "incident_support",
					"forensic_analysis", "legal_consultation",
				},
			},
			"premium": {
				Name:           "premium",
				BaseMultiplier: 2.5,
				MaxAnnualClaim: 100000,
				Deductible:     0,
				CoverageItems: []string{
					"malware_removal", "data_recovery", "incident_support",
					"forensic_analysis", "legal_consultation",
					"24_7_response", "credential_monitoring",
				},
			},
		},
	}
}

// Tier returns the configuration for a coverage tier name.
func (m *Model) Tier(name string) (model.CoverageTier, error) {
	tier, ok := m.tiers[name]
	if !ok {
		return model.CoverageTier{}, &model.ErrInvalidCoverageTier{Tier: name}
	}
	return tier, nil
}

// Tiers returns all configured coverage tiers.
func (m *Model) Tiers() []model.CoverageTier {
	return []model.CoverageTier{m.tiers["basic"], m.tiers["standard"], m.tiers["premium"]}
}

// CalculateBasePremium prices an annual premium from the risk score,
// assessment confidence, coverage tier, and optional reputation score.
// The result is clamped to [MinAnnualPremium, MaxAnnualPremium] and
// rounded to cents.
func (m *Model) CalculateBasePremium(riskScore, confidence float64, coverageTier string, reputationScore *float64) (float64, error) {
	if err := model.ValidateScore("risk_score", riskScore); err != nil {
		return 0, err
	}
	if err := model.ValidateScore("confidence", confidence); err != nil {
		return 0, err
	}
	if reputationScore != nil {
		if err := model.ValidateScore("reputation_score", *reputationScore); err != nil {
			return 0, err
		}
	}
	tier, err := m.Tier(coverageTier)
	if err != nil {
		return 0, err
	}

	premium := BaseAnnualPremium *
		RiskMultiplier(riskScore, confidence) *
		tier.BaseMultiplier *
		ReputationAdjustment(reputationScore)

	premium = math.Max(MinAnnualPremium, math.Min(premium, MaxAnnualPremium))
	return model.RoundCents(premium), nil
}

// RiskMultiplier maps a risk score to a premium multiplier by linear
// interpolation within its category range, then narrows the result
// toward 1.0 in proportion to assessment confidence so sparse data
// cannot drive extreme pricing.
//
// Category ranges: [0,0.3) → [0.5,0.8), [0.3,0.5) → [0.8,1.2),
// [0.5,0.7) → [1.2,2.0), [0.7,1.0] → [2.0,4.0].
func RiskMultiplier(riskScore, confidence float64) float64 {
	var raw float64
	switch {
	case riskScore < 0.3:
		raw = 0.5 + (riskScore/0.3)*0.3
	case riskScore < 0.5:
		raw = 0.8 + ((riskScore-0.3)/0.2)*0.4
	case riskScore < 0.7:
		raw = 1.2 + ((riskScore-0.5)/0.2)*0.8
	default:
		raw = 2.0 + ((riskScore-0.7)/0.3)*2.0
	}

	// Confidence dampening: at zero confidence only half the distance
	// from the neutral multiplier survives; full confidence keeps the
	// raw multiplier.
	effective := 1.0 + (raw-1.0)*(0.5+0.5*confidence)
	return math.Min(effective, 4.0)
}

// ReputationAdjustment maps a reputation score to a multiplicative
// premium factor. Bands are closed on the lower bound, so exactly 0.30,
// 0.70, and 0.85 fall into the less penalized band. A nil score means
// no reputation evidence and no adjustment.
func ReputationAdjustment(reputationScore *float64) float64 {
	if reputationScore == nil {
		return 1.0
	}
	switch s := *reputationScore; {
	case s < 0.30:
		return 1.25
	case s < 0.50:
		return 1.10
	case s < 0.70:
		return 1.00
	case s < 0.85:
		return 0.90
	default:
		return 0.80
	}
}

// VolumeDiscountRate returns the discount rate for a fleet size.
// Brackets are right-open except the top: 500 devices still earn 15%,
// 501 earns 20%.
func VolumeDiscountRate(deviceCount int) float64 {
	switch {
	case deviceCount > 500:
		return 0.20
	case deviceCount >= 100:
		return 0.15
	case deviceCount >= 50:
		return 0.10
	case deviceCount >= 10:
		return 0.05
	default:
		return 0.0
	}
}

// ApplyVolumeDiscount discounts a premium by the fleet-size bracket and
// returns the discounted amount (rounded to cents) with the rate used.
func (m *Model) ApplyVolumeDiscount(premium float64, deviceCount int) (float64, float64) {
	rate := VolumeDiscountRate(deviceCount)
	return model.RoundCents(premium * (1.0 - rate)), rate
}

// CalculateAnnualPolicyCost totals a policy over its term, applying the
// multi-year term discount (5% at 24 months, 10% at 36) and optionally
// the bulk discount when it was not already included in the premium.
func (m *Model) CalculateAnnualPolicyCost(monthlyPremium float64, policyMonths int, includesDiscount bool, bulkCount int) *model.PolicyCost {
	baseCost := monthlyPremium * float64(policyMonths)

	adjustments := map[string]float64{}
	switch policyMonths {
	case 24:
		adjustments["term_discount"] = 0.05
	case 36:
		adjustments["term_discount"] = 0.10
	default:
		adjustments["term_discount"] = 0.0
	}
	if bulkCount > 0 && !includesDiscount {
		adjustments["bulk_discount"] = VolumeDiscountRate(bulkCount)
	}

	totalRate := 0.0
	for _, r := range adjustments {
		totalRate += r
	}
	totalCost := baseCost * (1.0 - totalRate)

	return &model.PolicyCost{
		BaseAnnualCost:       model.RoundCents(baseCost),
		PolicyMonths:         policyMonths,
		Adjustments:          adjustments,
		TotalAdjustmentsRate: totalRate,
		FinalAnnualCost:      model.RoundCents(totalCost),
		MonthlyEffectiveRate: model.RoundCents(totalCost / float64(policyMonths)),
	}
}
