package model

import "time"

// TPM status values reported by device telemetry.
const (
	TPMHealthy     = "healthy"
	TPMUnavailable = "unavailable"
	TPMCompromised = "compromised"
)

// DeviceMetrics is the telemetry snapshot supplied to a risk
// calculation. Optional fields are pointers; a nil pointer means the
// collector did not report that metric and lowers assessment confidence.
type DeviceMetrics struct {
	FingerprintHash string `json:"fingerprint_hash,omitempty"`

	LoginFailures      *int `json:"login_failures,omitempty"`
	TotalLoginAttempts *int `json:"total_login_attempts,omitempty"`

	ResourceUsageSpike bool `json:"resource_usage_spike,omitempty"`
	UnusualAccessTime  bool `json:"unusual_access_time,omitempty"`

	ComponentMismatch      bool   `json:"component_mismatch,omitempty"`
	TPMStatus              string `json:"tpm_status,omitempty"`
	FirmwareAnomaly        bool   `json:"firmware_anomaly,omitempty"`
	DiskEncryptionDisabled bool   `json:"disk_encryption_disabled,omitempty"`

	GeographicInconsistency bool `json:"geographic_inconsistency,omitempty"`

	AnomalyScore *float64 `json:"anomaly_score,omitempty"`
	AnomalyFlags []string `json:"anomaly_flags,omitempty"`

	CPUUsage        *float64 `json:"cpu_usage,omitempty"`
	MemoryUsage     *float64 `json:"memory_usage,omitempty"`
	NetworkActivity *float64 `json:"network_activity,omitempty"`
	DiskActivity    *float64 `json:"disk_activity,omitempty"`

	// CollectedAt is when the metrics were gathered on the device.
	// Stale snapshots reduce confidence.
	CollectedAt *time.Time `json:"collected_at,omitempty"`
}

// HistoricalBaseline carries per-metric historical statistics for
// deviation scoring. Nil entries are skipped.
type HistoricalBaseline struct {
	CPUUsage        *BaselineStat `json:"cpu_usage,omitempty"`
	MemoryUsage     *BaselineStat `json:"memory_usage,omitempty"`
	NetworkActivity *BaselineStat `json:"network_activity,omitempty"`
	DiskActivity    *BaselineStat `json:"disk_activity,omitempty"`
}

// NetworkReputationSnapshot is the optional reputation context supplied
// to a risk calculation, typically derived from a reputation.Network
// query by the caller.
type NetworkReputationSnapshot struct {
	Blacklisted     bool    `json:"is_blacklisted"`
	PeerAverageRisk float64 `json:"peer_average_risk"`
	VPNDetected     bool    `json:"is_vpn_detected"`
}

// RiskCategory labels an overall risk score.
type RiskCategory string

const (
	RiskMinimal  RiskCategory = "minimal"
	RiskLow      RiskCategory = "low"
	RiskMedium   RiskCategory = "medium"
	RiskHigh     RiskCategory = "high"
	RiskCritical RiskCategory = "critical"
)

// RiskAssessment is an immutable snapshot of one risk calculation.
// OverallRiskScore is always the fixed-weight combination of the four
// component scores.
type RiskAssessment struct {
	DeviceID          string       `json:"device_id"`
	Timestamp         time.Time    `json:"timestamp"`
	OverallRiskScore  float64      `json:"overall_risk_score"`
	BehavioralRisk    float64      `json:"behavioral_risk"`
	HardwareRisk      float64      `json:"hardware_risk"`
	NetworkRisk       float64      `json:"network_risk"`
	AnomalyScore      float64      `json:"anomaly_score"`
	ThreatIndicators  []string     `json:"threat_indicators"`
	ConfidenceLevel   float64      `json:"confidence_level"`
	Category          RiskCategory `json:"category"`
	AssessmentVersion string       `json:"assessment_version"`
}
