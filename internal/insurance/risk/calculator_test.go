package risk_test

import (
	"math"
	"testing"
	"time"

	"github.com/securepremium/securepremium/internal/insurance/model"
	"github.com/securepremium/securepremium/internal/insurance/risk"
	"go.uber.org/zap"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func TestAggregate_weightedSum(t *testing.T) {
	got := risk.Aggregate(0.25, 0.15, 0.30, 0.20)
	want := 0.25*0.25 + 0.35*0.15 + 0.20*0.30 + 0.20*0.20 // 0.2725
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Aggregate() = %v, want %v", got, want)
	}
}

func TestAggregate_boundaries(t *testing.T) {
	if got := risk.Aggregate(0, 0, 0, 0); got != 0.0 {
		t.Errorf("all-zero components: got %v, want 0.0", got)
	}
	if got := risk.Aggregate(1, 1, 1, 1); got != 1.0 {
		t.Errorf("all-one components: got %v, want 1.0", got)
	}
}

func TestCategory_boundariesClosedAtLowerBound(t *testing.T) {
	cases := []struct {
		score float64
		want  model.RiskCategory
	}{
		{0.0, model.RiskMinimal},
		{0.29, model.RiskMinimal},
		{0.30, model.RiskLow},
		{0.49, model.RiskLow},
		{0.50, model.RiskMedium},
		{0.69, model.RiskMedium},
		{0.70, model.RiskHigh},
		{0.84, model.RiskHigh},
		{0.85, model.RiskCritical},
		{1.0, model.RiskCritical},
	}
	for _, tc := range cases {
		if got := risk.Category(tc.score); got != tc.want {
			t.Errorf("Category(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestCalculateRisk_lowRiskScenario(t *testing.T) {
	c := risk.NewCalculator(zap.NewNop())

	// behavioral .25 via login failures, hardware .15 via TPM
	// unavailable, network .30 is not reachable without a reputation
	// snapshot, so construct it: blacklisted=false, peer=1.0 → 0.30.
	metrics := &model.DeviceMetrics{
		LoginFailures:      ip(5),
		TotalLoginAttempts: ip(6),
		TPMStatus:          model.TPMUnavailable,
		AnomalyScore:       fp(0.20),
	}
	netRep := &model.NetworkReputationSnapshot{PeerAverageRisk: 1.0}

	a, err := c.CalculateRisk("device-low-risk", metrics, nil, netRep)
	if err != nil {
		t.Fatal(err)
	}

	if a.BehavioralRisk != 0.25 {
		t.Errorf("behavioral risk: got %v, want 0.25", a.BehavioralRisk)
	}
	if a.HardwareRisk != 0.15 {
		t.Errorf("hardware risk: got %v, want 0.15", a.HardwareRisk)
	}
	if a.NetworkRisk != 0.30 {
		t.Errorf("network risk: got %v, want 0.30", a.NetworkRisk)
	}
	if a.AnomalyScore != 0.20 {
		t.Errorf("anomaly score: got %v, want 0.20", a.AnomalyScore)
	}
	if math.Abs(a.OverallRiskScore-0.2725) > 1e-9 {
		t.Errorf("overall risk: got %v, want 0.2725", a.OverallRiskScore)
	}
	if a.Category != model.RiskLow {
		t.Errorf("category: got %q, want %q", a.Category, model.RiskLow)
	}
}

func TestCalculateRisk_hardwareSignals(t *testing.T) {
	c := risk.NewCalculator(zap.NewNop())

	metrics := &model.DeviceMetrics{
		ComponentMismatch:      true,
		TPMStatus:              model.TPMCompromised,
		FirmwareAnomaly:        true,
		DiskEncryptionDisabled: true,
	}
	a, err := c.CalculateRisk("device-hw-test", metrics, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	// 0.40 + 0.35 + 0.25 + 0.20 clamps to 1.0.
	if a.HardwareRisk != 1.0 {
		t.Errorf("hardware risk: got %v, want 1.0", a.HardwareRisk)
	}
}

func TestCalculateRisk_threatIndicatorsAtThreshold(t *testing.T) {
	c := risk.NewCalculator(zap.NewNop())

	metrics := &model.DeviceMetrics{
		ComponentMismatch: true, // 0.40
		TPMStatus:         model.TPMCompromised, // +0.35 → 0.75 ≥ 0.70
		AnomalyScore:      fp(0.70),
	}
	a, err := c.CalculateRisk("device-indic-1", metrics, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.ThreatIndicators) != 2 {
		t.Errorf("indicators: got %v, want exactly 2 (hardware + anomaly)", a.ThreatIndicators)
	}
}

func TestCalculateRisk_noIndicatorsBelowThreshold(t *testing.T) {
	c := risk.NewCalculator(zap.NewNop())
	a, err := c.CalculateRisk("device-indic-2", &model.DeviceMetrics{AnomalyScore: fp(0.69)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.ThreatIndicators) != 0 {
		t.Errorf("indicators: got %v, want none", a.ThreatIndicators)
	}
}

func TestCalculateRisk_confidenceGrowsWithCompleteness(t *testing.T) {
	c := risk.NewCalculator(zap.NewNop())

	sparse, err := c.CalculateRisk("device-conf-1", &model.DeviceMetrics{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	full, err := c.CalculateRisk("device-conf-1", &model.DeviceMetrics{
		CPUUsage:      fp(40),
		MemoryUsage:   fp(60),
		TPMStatus:     model.TPMHealthy,
		LoginFailures: ip(0),
		CollectedAt:   &now,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if sparse.ConfidenceLevel != 0.0 {
		t.Errorf("empty metrics confidence: got %v, want 0.0", sparse.ConfidenceLevel)
	}
	if full.ConfidenceLevel != 1.0 {
		t.Errorf("complete fresh metrics confidence: got %v, want 1.0", full.ConfidenceLevel)
	}
}

func TestCalculateRisk_staleMetricsReduceConfidence(t *testing.T) {
	c := risk.NewCalculator(zap.NewNop())

	stale := time.Now().UTC().Add(-48 * time.Hour)
	a, err := c.CalculateRisk("device-conf-2", &model.DeviceMetrics{
		CPUUsage:      fp(40),
		MemoryUsage:   fp(60),
		TPMStatus:     model.TPMHealthy,
		LoginFailures: ip(0),
		CollectedAt:   &stale,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.ConfidenceLevel != 0.5 {
		t.Errorf("stale metrics confidence: got %v, want 0.5", a.ConfidenceLevel)
	}
}

func TestCalculateRisk_baselineDeviation(t *testing.T) {
	c := risk.NewCalculator(zap.NewNop())

	// CPU is 9 stddevs from the mean: z/3 caps at 1.0, weighted 0.45.
	historical := &model.HistoricalBaseline{
		CPUUsage: &model.BaselineStat{Mean: 10, StdDev: 5},
	}
	a, err := c.CalculateRisk("device-base-1", &model.DeviceMetrics{CPUUsage: fp(55)}, historical, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a.BehavioralRisk-0.45) > 1e-9 {
		t.Errorf("behavioral risk from deviation: got %v, want 0.45", a.BehavioralRisk)
	}
}

func TestCalculateRisk_rejectsBadDeviceID(t *testing.T) {
	c := risk.NewCalculator(zap.NewNop())
	if _, err := c.CalculateRisk("short", &model.DeviceMetrics{}, nil, nil); err == nil {
		t.Error("expected error for too-short device id")
	}
}
