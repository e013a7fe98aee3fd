package model

import "time"

// VerificationLevel indicates whether any of a device's threat reports
// has passed quorum verification.
type VerificationLevel string

const (
	VerificationUnverified VerificationLevel = "unverified"
	VerificationVerified   VerificationLevel = "verified"
)

// ReputationRecord is the collective trust state for one device within
// the reputation network. ReputationScore is always recomputed from
// threat history plus decay, never hand-edited.
type ReputationRecord struct {
	DeviceID          string            `json:"device_id"`
	ReputationScore   float64           `json:"reputation_score"`
	ReportsCount      int               `json:"reports_count"`
	LastUpdated       time.Time         `json:"last_updated"`
	Contributors      map[string]bool   `json:"-"`
	ContributorCount  int               `json:"contributor_count"`
	ThreatHistory     []string          `json:"threat_history"`
	VerificationLevel VerificationLevel `json:"verification_level"`
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (r *ReputationRecord) Clone() *ReputationRecord {
	c := *r
	c.Contributors = make(map[string]bool, len(r.Contributors))
	for k, v := range r.Contributors {
		c.Contributors[k] = v
	}
	c.ThreatHistory = append([]string(nil), r.ThreatHistory...)
	return &c
}

// ReputationRiskLevel labels a decayed reputation score.
type ReputationRiskLevel string

const (
	ReputationTrustworthy ReputationRiskLevel = "trustworthy"
	ReputationNeutral     ReputationRiskLevel = "neutral"
	ReputationSuspicious  ReputationRiskLevel = "suspicious"
	ReputationDangerous   ReputationRiskLevel = "dangerous"
	ReputationUnrated     ReputationRiskLevel = "unrated"
)

// ThreatIntelligenceReport is one participant's report about a device.
// All fields are immutable after creation except the verification state.
type ThreatIntelligenceReport struct {
	ReportID      string    `json:"report_id"`
	ReporterID    string    `json:"reporter_id"`
	DeviceID      string    `json:"device_id"`
	ThreatType    string    `json:"threat_type"`
	Severity      Severity  `json:"severity"`
	Description   string    `json:"description"`
	EvidenceHash  string    `json:"evidence_hash"`
	Timestamp     time.Time `json:"timestamp"`
	Verified      bool      `json:"verified"`
	Verifications int       `json:"verifications"`
}

// Participant is a registered reputation network member.
type Participant struct {
	ParticipantID string    `json:"participant_id"`
	JoinedAt      time.Time `json:"joined_at"`
}

// NetworkStatistics aggregates the current state of the reputation
// network. Computed on demand from the full registry.
type NetworkStatistics struct {
	NetworkID         string           `json:"network_id"`
	TotalParticipants int              `json:"total_participants"`
	TrackedDevices    int              `json:"tracked_devices"`
	TotalReports      int              `json:"total_reports"`
	AverageReputation float64          `json:"average_reputation_score"`
	SeverityBreakdown map[Severity]int `json:"severity_breakdown"`
	TopThreatTypes    []ThreatTypeTally `json:"top_threat_types"`
}

// ThreatTypeTally is one entry of the top-threat-type ranking.
type ThreatTypeTally struct {
	ThreatType string `json:"threat_type"`
	Count      int    `json:"count"`
}

// ThreatIntelligenceSummary is the full intelligence view for a device:
// the decayed reputation record plus its ordered report list and
// derived aggregates.
type ThreatIntelligenceSummary struct {
	DeviceID          string                      `json:"device_id"`
	Reputation        *ReputationRecord           `json:"reputation"`
	Reports           []*ThreatIntelligenceReport `json:"reports"`
	TotalReports      int                         `json:"total_reports"`
	RecentReports90d  int                         `json:"recent_reports_90_days"`
	VerifiedReports   int                         `json:"verified_reports"`
	DistinctReporters int                         `json:"distinct_reporters"`
	ThreatTypes       map[string]int              `json:"threat_types"`
	LatestReportAt    time.Time                   `json:"latest_report_timestamp"`
}
