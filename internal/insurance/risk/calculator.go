package risk

import (
	"math"
	"time"

	"github.com/securepremium/securepremium/internal/insurance/model"
	"go.uber.org/zap"
)

// SignalCalculator is the default Calculator implementation. It scores
// each risk component from the supplied telemetry and optional context.
type SignalCalculator struct {
	logger *zap.Logger
}

// NewCalculator returns a SignalCalculator.
func NewCalculator(logger *zap.Logger) *SignalCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalCalculator{logger: logger}
}

// CalculateRisk implements Calculator. historical and netRep may be nil;
// missing context lowers the confidence level but never fails the call.
func (c *SignalCalculator) CalculateRisk(
	deviceID string,
	metrics *model.DeviceMetrics,
	historical *model.HistoricalBaseline,
	netRep *model.NetworkReputationSnapshot,
) (*model.RiskAssessment, error) {
	if err := model.ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = &model.DeviceMetrics{}
	}
	ts := time.Now().UTC()

	behavioral := behavioralRisk(metrics, historical)
	hardware := hardwareRisk(metrics)
	network := networkRisk(metrics, netRep)
	anomaly := anomalyScore(metrics)

	overall := Aggregate(behavioral, hardware, network, anomaly)

	assessment := &model.RiskAssessment{
		DeviceID:          deviceID,
		Timestamp:         ts,
		OverallRiskScore:  overall,
		BehavioralRisk:    behavioral,
		HardwareRisk:      hardware,
		NetworkRisk:       network,
		AnomalyScore:      anomaly,
		ThreatIndicators:  threatIndicators(behavioral, hardware, network, anomaly),
		ConfidenceLevel:   confidence(metrics, ts),
		Category:          Category(overall),
		AssessmentVersion: AssessmentVersion,
	}

	c.logger.Info("risk assessment completed",
		zap.String("device_id", deviceID),
		zap.Float64("overall_risk_score", overall),
		zap.String("category", string(assessment.Category)),
	)
	return assessment, nil
}

// behavioralRisk scores login failures, usage spikes, unusual access
// times, and deviation from the historical baseline.
func behavioralRisk(m *model.DeviceMetrics, historical *model.HistoricalBaseline) float64 {
	score := 0.0

	if m.LoginFailures != nil {
		attempts := 1
		if m.TotalLoginAttempts != nil && *m.TotalLoginAttempts > 1 {
			attempts = *m.TotalLoginAttempts
		}
		failureRate := float64(*m.LoginFailures) / float64(attempts)
		score += math.Min(failureRate*0.3, 0.3)
	}
	if m.ResourceUsageSpike {
		score += 0.15
	}
	if m.UnusualAccessTime {
		score += 0.10
	}
	if historical != nil {
		score += math.Min(statisticalDeviation(m, historical)*0.45, 0.45)
	}
	return model.ClampScore(score)
}

// hardwareRisk scores component, TPM, firmware, and encryption signals.
func hardwareRisk(m *model.DeviceMetrics) float64 {
	score := 0.0
	if m.ComponentMismatch {
		score += 0.40
	}
	switch m.TPMStatus {
	case model.TPMCompromised:
		score += 0.35
	case model.TPMUnavailable:
		score += 0.15
	}
	if m.FirmwareAnomaly {
		score += 0.25
	}
	if m.DiskEncryptionDisabled {
		score += 0.20
	}
	return model.ClampScore(score)
}

// networkRisk scores blacklist, peer-reputation, VPN, and geographic
// signals. A nil reputation snapshot is a neutral prior: only direct
// device signals contribute.
func networkRisk(m *model.DeviceMetrics, rep *model.NetworkReputationSnapshot) float64 {
	score := 0.0
	if rep != nil {
		if rep.Blacklisted {
			score += 0.40
		}
		score += model.ClampScore(rep.PeerAverageRisk) * 0.30
		if rep.VPNDetected {
			score += 0.10
		}
	}
	if m.GeographicInconsistency {
		score += 0.20
	}
	return model.ClampScore(score)
}

// anomalyScore prefers an explicit detector score, falls back to a
// flag count heuristic, else zero.
func anomalyScore(m *model.DeviceMetrics) float64 {
	if m.AnomalyScore != nil {
		return model.ClampScore(*m.AnomalyScore)
	}
	if len(m.AnomalyFlags) > 0 {
		return math.Min(float64(len(m.AnomalyFlags))*0.15, 1.0)
	}
	return 0.0
}

// statisticalDeviation is the mean capped z-score (z/3, capped at 1) of
// the current metrics against the historical baseline, over the metrics
// both sides report.
func statisticalDeviation(m *model.DeviceMetrics, h *model.HistoricalBaseline) float64 {
	type pair struct {
		current *float64
		stat    *model.BaselineStat
	}
	pairs := []pair{
		{m.CPUUsage, h.CPUUsage},
		{m.MemoryUsage, h.MemoryUsage},
		{m.NetworkActivity, h.NetworkActivity},
		{m.DiskActivity, h.DiskActivity},
	}

	total := 0.0
	compared := 0
	for _, p := range pairs {
		if p.current == nil || p.stat == nil || p.stat.StdDev <= 0 {
			continue
		}
		z := math.Abs((*p.current - p.stat.Mean) / p.stat.StdDev)
		total += math.Min(z/3.0, 1.0)
		compared++
	}
	if compared == 0 {
		return 0.0
	}
	return total / float64(compared)
}

// threatIndicators emits one string per component at or above the
// high-risk threshold.
func threatIndicators(behavioral, hardware, network, anomaly float64) []string {
	indicators := []string{}
	if behavioral >= indicatorThreshold {
		indicators = append(indicators, "abnormal behavioral patterns detected")
	}
	if hardware >= indicatorThreshold {
		indicators = append(indicators, "hardware integrity concerns")
	}
	if network >= indicatorThreshold {
		indicators = append(indicators, "network-based threat indicators")
	}
	if anomaly >= indicatorThreshold {
		indicators = append(indicators, "anomalous system activity detected")
	}
	return indicators
}

// confidence grows with the completeness of the supplied metrics and is
// discounted when the snapshot is stale. Five expected fields:
// cpu_usage, memory_usage, tpm_status, login_failures, collected_at.
func confidence(m *model.DeviceMetrics, now time.Time) float64 {
	completeness := 0.0
	if m.CPUUsage != nil {
		completeness++
	}
	if m.MemoryUsage != nil {
		completeness++
	}
	if m.TPMStatus != "" {
		completeness++
	}
	if m.LoginFailures != nil {
		completeness++
	}
	if m.CollectedAt != nil {
		completeness++
	}
	conf := completeness / 5.0

	if m.CollectedAt != nil {
		age := now.Sub(*m.CollectedAt)
		switch {
		case age < time.Hour:
			// fresh, no discount
		case age < 24*time.Hour:
			conf *= 0.8
		default:
			conf *= 0.5
		}
	}
	return model.ClampScore(conf)
}
