// Package model defines the core entities of the SecurePremium pipeline:
// device profiles, risk assessments, reputation records, threat reports,
// and premium quotes, together with the typed errors and validators the
// engines share. The package has no I/O and no dependencies on the
// storage or transport layers.
package model

import (
	"time"
)

// Severity classifies security events and threat reports.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ParseSeverity validates a severity string and returns the typed value.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), nil
	default:
		return "", &ErrInvalidScore{Field: "severity", Msg: "must be one of critical, high, medium, low"}
	}
}

// SecurityEvent is a single security incident recorded against a device.
type SecurityEvent struct {
	Type        string    `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// GeoObservation is one observed device location.
type GeoObservation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	City      string    `json:"city,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UsageSample is one observation of the device's resource metrics,
// used to build and compare against the behavioral baseline.
type UsageSample struct {
	CPUUsage        float64   `json:"cpu_usage"`
	MemoryUsage     float64   `json:"memory_usage"`
	NetworkActivity float64   `json:"network_activity"`
	DiskActivity    float64   `json:"disk_activity"`
	Timestamp       time.Time `json:"timestamp"`
}

// BaselineStat is the statistical summary of one baseline metric.
type BaselineStat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// BehavioralBaseline summarizes a device's historical usage metrics.
// It is established once a minimum number of samples has been observed.
type BehavioralBaseline struct {
	CPUUsage        BaselineStat `json:"cpu_usage"`
	MemoryUsage     BaselineStat `json:"memory_usage"`
	NetworkActivity BaselineStat `json:"network_activity"`
	DiskActivity    BaselineStat `json:"disk_activity"`
	SampleCount     int          `json:"sample_count"`
	EstablishedAt   time.Time    `json:"established_at"`
}

// DeviceProfile is the complete per-device trust profile. DeviceID is
// immutable after creation; profiles are never deleted, only marked
// inactive.
type DeviceProfile struct {
	DeviceID         string            `json:"device_id"`
	FingerprintHash  string            `json:"fingerprint_hash"`
	HardwareInfo     map[string]string `json:"hardware_info"`
	SystemInfo       map[string]string `json:"system_info"`
	FirstSeen        time.Time         `json:"first_seen"`
	LastSeen         time.Time         `json:"last_seen"`
	InteractionCount int               `json:"interaction_count"`
	// FingerprintChanges counts interactions whose fingerprint hash
	// differed from the registered one.
	FingerprintChanges int                 `json:"fingerprint_changes"`
	SecurityEvents     []SecurityEvent     `json:"security_events"`
	Locations          []GeoObservation    `json:"geographic_locations"`
	Baseline           *BehavioralBaseline `json:"behavioral_baseline,omitempty"`
	LastSample         *UsageSample        `json:"last_sample,omitempty"`
	Active             bool                `json:"active"`
}

// AgeDays returns whole days since the device was first seen.
func (p *DeviceProfile) AgeDays(now time.Time) int {
	return int(now.Sub(p.FirstSeen).Hours() / 24)
}

// LastActivityHours returns whole hours since the device was last seen.
func (p *DeviceProfile) LastActivityHours(now time.Time) int {
	return int(now.Sub(p.LastSeen).Hours())
}

// ScoreBreakdown holds the five component scores behind a device trust score.
type ScoreBreakdown struct {
	FingerprintStability  float64 `json:"fingerprint_stability"`
	BehavioralConsistency float64 `json:"behavioral_consistency"`
	SecurityIncidents     float64 `json:"security_incidents"`
	Longevity             float64 `json:"longevity"`
	GeographicPatterns    float64 `json:"geographic_patterns"`
}

// DeviceScoreCategory labels a device trust score.
type DeviceScoreCategory string

const (
	DeviceTrusted   DeviceScoreCategory = "trusted"
	DeviceNormal    DeviceScoreCategory = "normal"
	DeviceSuspect   DeviceScoreCategory = "suspect"
	DeviceUntrusted DeviceScoreCategory = "untrusted"
)
