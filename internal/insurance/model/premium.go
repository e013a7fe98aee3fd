package model

import "time"

// CoverageTier is one named pricing/benefit bundle.
type CoverageTier struct {
	Name           string   `json:"tier_name"`
	BaseMultiplier float64  `json:"base_multiplier"`
	MaxAnnualClaim int      `json:"max_annual_claim"`
	Deductible     int      `json:"deductible"`
	CoverageItems  []string `json:"coverage_items"`
}

// QuoteTerms is the coverage metadata snapshot embedded in a quote.
type QuoteTerms struct {
	PolicyDurationMonths int      `json:"policy_duration_months"`
	MaxAnnualClaim       int      `json:"max_annual_claim"`
	Deductible           int      `json:"deductible"`
	CoverageItems        []string `json:"coverage_items"`
	RiskScore            float64  `json:"risk_score"`
	ConfidenceLevel      float64  `json:"confidence_level"`
	ReputationScore      *float64 `json:"reputation_score,omitempty"`
	ThreatIndicators     []string `json:"threat_indicators,omitempty"`
	VolumeDiscount       float64  `json:"volume_discount,omitempty"`
}

// PremiumQuote is an immutable priced quote for one device.
type PremiumQuote struct {
	DeviceID           string     `json:"device_id"`
	AnnualPremiumUSD   float64    `json:"annual_premium_usd"`
	MonthlyPremiumUSD  float64    `json:"monthly_premium_usd"`
	BasePremium        float64    `json:"base_premium"`
	RiskAdjustment     float64    `json:"risk_adjustment"`
	ReputationDiscount float64    `json:"reputation_discount"`
	CoverageLevel      string     `json:"coverage_level"`
	QuoteTimestamp     time.Time  `json:"quote_timestamp"`
	QuoteValidUntil    time.Time  `json:"quote_valid_until"`
	Terms              QuoteTerms `json:"terms"`
}

// PolicyCost is the breakdown returned by annual policy cost calculation.
type PolicyCost struct {
	BaseAnnualCost       float64            `json:"base_annual_cost"`
	PolicyMonths         int                `json:"policy_months"`
	Adjustments          map[string]float64 `json:"adjustments"`
	TotalAdjustmentsRate float64            `json:"total_adjustments_rate"`
	FinalAnnualCost      float64            `json:"final_annual_cost"`
	MonthlyEffectiveRate float64            `json:"monthly_effective_rate"`
}

// FleetEstimate is the fleet-level annual cost projection.
type FleetEstimate struct {
	TotalDevices         int                  `json:"total_devices"`
	BreakdownByCoverage  []FleetTierBreakdown `json:"breakdown_by_coverage"`
	Subtotal             float64              `json:"subtotal"`
	VolumeDiscountRate   float64              `json:"volume_discount_rate"`
	VolumeDiscountAmount float64              `json:"volume_discount_amount"`
	TotalAnnualCost      float64              `json:"total_annual_cost"`
	CostPerDeviceMonthly float64              `json:"cost_per_device_monthly"`
}

// FleetTierBreakdown is the per-tier slice of a fleet estimate.
type FleetTierBreakdown struct {
	CoverageTier     string  `json:"coverage_tier"`
	DeviceCount      int     `json:"device_count"`
	PremiumPerDevice float64 `json:"premium_per_device"`
	TotalPremium     float64 `json:"total_premium"`
}
