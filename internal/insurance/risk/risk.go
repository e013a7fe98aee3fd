// Package risk computes device compromise-risk assessments. It scores
// behavioral, hardware, network, and anomaly signals independently,
// combines them with fixed weights, and labels the result. The package
// holds no state: every calculation is a pure function of its inputs
// plus the clock.
package risk

import (
	"github.com/securepremium/securepremium/internal/insurance/model"
)

// AssessmentVersion is stamped onto every produced RiskAssessment.
const AssessmentVersion = "1.0"

// Fixed component weights for the overall risk score.
const (
	weightBehavioral = 0.25
	weightHardware   = 0.35
	weightNetwork    = 0.20
	weightAnomaly    = 0.20
)

// indicatorThreshold is the per-component score at or above which a
// threat indicator string is emitted.
const indicatorThreshold = 0.70

// Calculator produces risk assessments for devices.
type Calculator interface {
	CalculateRisk(deviceID string, metrics *model.DeviceMetrics, historical *model.HistoricalBaseline, netRep *model.NetworkReputationSnapshot) (*model.RiskAssessment, error)
}

// Category maps an overall risk score to its label. Boundaries are
// closed on the lower bound: exactly 0.30 is "low", exactly 0.85 is
// "critical".
func Category(score float64) model.RiskCategory {
	switch {
	case score >= 0.85:
		return model.RiskCritical
	case score >= 0.70:
		return model.RiskHigh
	case score >= 0.50:
		return model.RiskMedium
	case score >= 0.30:
		return model.RiskLow
	default:
		return model.RiskMinimal
	}
}

// Aggregate combines the four component scores with the fixed weights,
// clamped to [0,1].
func Aggregate(behavioral, hardware, network, anomaly float64) float64 {
	weighted := behavioral*weightBehavioral +
		hardware*weightHardware +
		network*weightNetwork +
		anomaly*weightAnomaly
	return model.ClampScore(weighted)
}
