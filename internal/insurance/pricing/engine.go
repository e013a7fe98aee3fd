package pricing

import (
	"time"

	"github.com/securepremium/securepremium/internal/insurance/model"
	"go.uber.org/zap"
)

// QuoteValidity is the fixed window during which a quote may be accepted.
const QuoteValidity = 30 * 24 * time.Hour

// Engine generates premium quotes by composing the pricing Model with a
// device's risk assessment and reputation.
type Engine struct {
	model  *Model
	logger *zap.Logger
}

// NewEngine returns an Engine backed by the given Model. A nil model
// gets the standard tier table.
func NewEngine(m *Model, logger *zap.Logger) *Engine {
	if m == nil {
		m = NewModel()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{model: m, logger: logger}
}

// Model exposes the underlying pricing tables.
func (e *Engine) Model() *Model { return e.model }

// GenerateQuote prices an annual policy for the device described by the
// assessment. reputationScore may be nil (no reputation adjustment);
// policyDurationMonths defaults to 12.
func (e *Engine) GenerateQuote(
	assessment *model.RiskAssessment,
	reputationScore *float64,
	coverageLevel string,
	policyDurationMonths int,
) (*model.PremiumQuote, error) {
	tier, err := e.model.Tier(coverageLevel)
	if err != nil {
		return nil, err
	}
	if policyDurationMonths <= 0 {
		policyDurationMonths = 12
	}

	riskScore := assessment.OverallRiskScore
	conf := assessment.ConfidenceLevel

	annual, err := e.model.CalculateBasePremium(riskScore, conf, coverageLevel, reputationScore)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	quote := &model.PremiumQuote{
		DeviceID:           assessment.DeviceID,
		AnnualPremiumUSD:   annual,
		MonthlyPremiumUSD:  model.RoundCents(annual / 12.0),
		BasePremium:        BaseAnnualPremium,
		RiskAdjustment:     RiskMultiplier(riskScore, conf),
		ReputationDiscount: ReputationAdjustment(reputationScore),
		CoverageLevel:      coverageLevel,
		QuoteTimestamp:     now,
		QuoteValidUntil:    now.Add(QuoteValidity),
		Terms: model.QuoteTerms{
			PolicyDurationMonths: policyDurationMonths,
			MaxAnnualClaim:       tier.MaxAnnualClaim,
			Deductible:           tier.Deductible,
			CoverageItems:        append([]string(nil), tier.CoverageItems...),
			RiskScore:            riskScore,
			ConfidenceLevel:      conf,
			ReputationScore:      reputationScore,
			ThreatIndicators:     append([]string(nil), assessment.ThreatIndicators...),
		},
	}

	e.logger.Info("premium quote generated",
		zap.String("device_id", assessment.DeviceID),
		zap.Float64("annual_premium_usd", quote.AnnualPremiumUSD),
		zap.String("coverage_level", coverageLevel),
	)
	return quote, nil
}

// ApplyVolumeDiscount returns a new quote with the fleet-size discount
// applied. The input quote is never mutated.
func (e *Engine) ApplyVolumeDiscount(quote *model.PremiumQuote, deviceCount int) *model.PremiumQuote {
	annual, rate := e.model.ApplyVolumeDiscount(quote.AnnualPremiumUSD, deviceCount)

	discounted := *quote
	discounted.AnnualPremiumUSD = annual
	discounted.MonthlyPremiumUSD = model.RoundCents(annual / 12.0)
	discounted.Terms.CoverageItems = append([]string(nil), quote.Terms.CoverageItems...)
	discounted.Terms.ThreatIndicators = append([]string(nil), quote.Terms.ThreatIndicators...)
	discounted.Terms.VolumeDiscount = rate
	return &discounted
}

// EstimateAnnualCost projects the total annual cost of insuring a fleet
// with the given average risk and reputation, split across coverage
// tiers. The distribution fractions must sum to 1.
func (e *Engine) EstimateAnnualCost(
	totalDevices int,
	averageRiskScore, averageReputation float64,
	coverageDistribution map[string]float64,
) (*model.FleetEstimate, error) {
	sum := 0.0
	for _, frac := range coverageDistribution {
		sum += frac
	}
	if sum < 0.999 || sum > 1.001 {
		return nil, &model.ErrInvalidScore{Field: "coverage_distribution", Msg: "fractions must sum to 1.0"}
	}
	if err := model.ValidateScore("average_risk_score", averageRiskScore); err != nil {
		return nil, err
	}
	if err := model.ValidateScore("average_reputation", averageReputation); err != nil {
		return nil, err
	}

	// Fleet-level estimates assume a well-observed fleet.
	const estimateConfidence = 0.8

	estimate := &model.FleetEstimate{TotalDevices: totalDevices}
	rep := averageReputation

	for _, tierName := range []string{"basic", "standard", "premium"} {
		frac, ok := coverageDistribution[tierName]
		if !ok {
			continue
		}
		tier, err := e.model.Tier(tierName)
		if err != nil {
			return nil, err
		}

		perDevice := BaseAnnualPremium *
			RiskMultiplier(averageRiskScore, estimateConfidence) *
			tier.BaseMultiplier *
			ReputationAdjustment(&rep)
		count := int(float64(totalDevices) * frac)

		estimate.BreakdownByCoverage = append(estimate.BreakdownByCoverage, model.FleetTierBreakdown{
			CoverageTier:     tierName,
			DeviceCount:      count,
			PremiumPerDevice: model.RoundCents(perDevice),
			TotalPremium:     model.RoundCents(perDevice * float64(count)),
		})
		estimate.Subtotal += perDevice * float64(count)
	}

	estimate.VolumeDiscountRate = VolumeDiscountRate(totalDevices)
	discounted := estimate.Subtotal * (1.0 - estimate.VolumeDiscountRate)
	estimate.VolumeDiscountAmount = model.RoundCents(estimate.Subtotal - discounted)
	estimate.TotalAnnualCost = model.RoundCents(discounted)
	estimate.Subtotal = model.RoundCents(estimate.Subtotal)
	if totalDevices > 0 {
		estimate.CostPerDeviceMonthly = model.RoundCents(discounted / 12.0 / float64(totalDevices))
	}
	return estimate, nil
}
