// Package reputation implements the shared threat-intelligence network:
// a registry of participants, per-device reputation records, and threat
// reports with quorum verification. Reputation decays lazily toward a
// neutral baseline at query time; no background timer exists.
package reputation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/securepremium/securepremium/internal/insurance/model"
	"go.uber.org/zap"
)

const (
	// neutralScore is the reputation assigned to a device on its first
	// report and the baseline decay pulls toward.
	neutralScore = 0.5

	// defaultDecayRate is the per-interval retention factor of the
	// score's distance from neutral.
	defaultDecayRate = 0.92

	// decayInterval is the time step the decay rate is expressed in.
	decayInterval = 24 * time.Hour

	// DefaultVerificationQuorum is the number of independent
	// verification calls required to mark a report verified.
	DefaultVerificationQuorum = 2
)

// severityImpact is the immediate reputation penalty per report severity.
// Magnitudes are strictly ordered: critical > high > medium > low.
func severityImpact(sev model.Severity) float64 {
	switch sev {
	case model.SeverityCritical:
		return 0.40
	case model.SeverityHigh:
		return 0.25
	case model.SeverityMedium:
		return 0.12
	default:
		return 0.05
	}
}

// Network is the in-memory reputation registry. All state mutations
// serialize through a single lock; reads of a not-currently-mutating
// record are safe.
type Network struct {
	networkID string
	decayRate float64

	mu            sync.RWMutex
	participants  map[string]model.Participant
	records       map[string]*model.ReputationRecord
	reports       map[string]*model.ThreatIntelligenceReport
	reportsByDev  map[string][]string // ordered report ids per device
	verifications map[string]int      // verification call count per report
	logger        *zap.Logger
}

// NewNetwork returns an empty reputation network.
func NewNetwork(networkID string, logger *zap.Logger) *Network {
	if networkID == "" {
		networkID = "default"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Network{
		networkID:     networkID,
		decayRate:     defaultDecayRate,
		participants:  make(map[string]model.Participant),
		records:       make(map[string]*model.ReputationRecord),
		reports:       make(map[string]*model.ThreatIntelligenceReport),
		reportsByDev:  make(map[string][]string),
		verifications: make(map[string]int),
		logger:        logger,
	}
}

// RegisterParticipant adds a participant to the network. Idempotent:
// returns false when the participant was already registered.
func (n *Network) RegisterParticipant(participantID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.participants[participantID]; ok {
		n.logger.Warn("participant already registered", zap.String("participant_id", participantID))
		return false
	}
	n.participants[participantID] = model.Participant{
		ParticipantID: participantID,
		JoinedAt:      time.Now().UTC(),
	}
	n.logger.Info("participant registered",
		zap.String("participant_id", participantID),
		zap.String("network_id", n.networkID),
	)
	return true
}

// SubmitThreatReport records a threat report and applies its immediate
// severity-weighted reputation penalty. The reporter must be registered
// and the severity valid before any state changes; the device's
// reputation record is created lazily at the neutral score.
func (n *Network) SubmitThreatReport(reporterID, deviceID, threatType, severity, description, evidenceHash string) (*model.ThreatIntelligenceReport, error) {
	sev, err := model.ParseSeverity(severity)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.participants[reporterID]; !ok {
		return nil, &model.ErrUnregisteredParticipant{ParticipantID: reporterID}
	}

	now := time.Now().UTC()
	report := &model.ThreatIntelligenceReport{
		ReportID:     generateReportID(deviceID, reporterID, now),
		ReporterID:   reporterID,
		DeviceID:     deviceID,
		ThreatType:   threatType,
		Severity:     sev,
		Description:  description,
		EvidenceHash: evidenceHash,
		Timestamp:    now,
	}
	n.reports[report.ReportID] = report
	n.reportsByDev[deviceID] = append(n.reportsByDev[deviceID], report.ReportID)

	record, ok := n.records[deviceID]
	if !ok {
		record = &model.ReputationRecord{
			DeviceID:          deviceID,
			ReputationScore:   neutralScore,
			LastUpdated:       now,
			Contributors:      make(map[string]bool),
			ThreatHistory:     []string{},
			VerificationLevel: model.VerificationUnverified,
		}
		n.records[deviceID] = record
	}

	record.ReputationScore = math.Max(0.0, record.ReputationScore-severityImpact(sev))
	record.ReportsCount++
	record.LastUpdated = now
	record.Contributors[reporterID] = true
	record.ContributorCount = len(record.Contributors)
	record.ThreatHistory = append(record.ThreatHistory, threatType)

	n.logger.Info("threat report submitted",
		zap.String("report_id", report.ReportID),
		zap.String("device_id", deviceID),
		zap.String("reporter_id", reporterID),
		zap.String("severity", severity),
	)
	rc := *report
	return &rc, nil
}

// VerifyReport counts one independent verification call for the report.
// The report flips to verified once quorum calls have been made; the
// device's verification level follows. quorum <= 0 uses the default.
// Returns whether the report is verified after this call.
func (n *Network) VerifyReport(reportID string, quorum int) (bool, error) {
	if quorum <= 0 {
		quorum = DefaultVerificationQuorum
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	report, ok := n.reports[reportID]
	if !ok {
		return false, &model.ErrUnknownReport{ReportID: reportID}
	}

	n.verifications[reportID]++
	report.Verifications = n.verifications[reportID]

	if !report.Verified && report.Verifications >= quorum {
		report.Verified = true
		if record, ok := n.records[report.DeviceID]; ok {
			record.VerificationLevel = model.VerificationVerified
		}
		n.logger.Info("threat report verified",
			zap.String("report_id", reportID),
			zap.Int("verifications", report.Verifications),
		)
	}
	return report.Verified, nil
}

// Report returns a copy of a stored report, or nil when unknown.
func (n *Network) Report(reportID string) *model.ThreatIntelligenceReport {
	n.mu.RLock()
	defer n.mu.RUnlock()

	report, ok := n.reports[reportID]
	if !ok {
		return nil
	}
	rc := *report
	return &rc
}

// QueryDeviceReputation returns the device's reputation record with
// decay applied as of now, or nil when the device is unrated. The
// decayed score is persisted and last_updated advances, so repeated
// queries without elapsed time return identical results.
func (n *Network) QueryDeviceReputation(deviceID string) *model.ReputationRecord {
	n.mu.Lock()
	defer n.mu.Unlock()

	record, ok := n.records[deviceID]
	if !ok {
		return nil
	}
	n.applyDecay(record, time.Now().UTC())
	return record.Clone()
}

// applyDecay pulls the score toward neutral by decayRate per elapsed
// interval (continuous, fractional intervals included). Sub-second
// elapsed time is ignored so immediate re-queries are exact no-ops.
// Caller must hold the write lock.
func (n *Network) applyDecay(record *model.ReputationRecord, now time.Time) {
	elapsed := now.Sub(record.LastUpdated)
	if elapsed < time.Second {
		return
	}
	intervals := elapsed.Hours() / decayInterval.Hours()
	factor := math.Pow(n.decayRate, intervals)
	record.ReputationScore = neutralScore + (record.ReputationScore-neutralScore)*factor
	record.LastUpdated = now
}

// DeviceRiskLevel maps the decayed reputation score to a label, or
// "unrated" when no record exists.
func (n *Network) DeviceRiskLevel(deviceID string) model.ReputationRiskLevel {
	record := n.QueryDeviceReputation(deviceID)
	if record == nil {
		return model.ReputationUnrated
	}
	return RiskLevel(record.ReputationScore)
}

// RiskLevel labels a reputation score. Bands are open on the lower
// bound: exactly 0.85 is neutral, exactly 0.35 is dangerous.
func RiskLevel(score float64) model.ReputationRiskLevel {
	switch {
	case score > 0.85:
		return model.ReputationTrustworthy
	case score > 0.60:
		return model.ReputationNeutral
	case score > 0.35:
		return model.ReputationSuspicious
	default:
		return model.ReputationDangerous
	}
}

// Statistics computes network-wide aggregates from the full registry.
func (n *Network) Statistics() *model.NetworkStatistics {
	n.mu.RLock()
	defer n.mu.RUnlock()

	stats := &model.NetworkStatistics{
		NetworkID:         n.networkID,
		TotalParticipants: len(n.participants),
		TrackedDevices:    len(n.records),
		TotalReports:      len(n.reports),
		SeverityBreakdown: map[model.Severity]int{
			model.SeverityCritical: 0,
			model.SeverityHigh:     0,
			model.SeverityMedium:   0,
			model.SeverityLow:      0,
		},
	}

	if len(n.records) > 0 {
		sum := 0.0
		for _, r := range n.records {
			sum += r.ReputationScore
		}
		stats.AverageReputation = sum / float64(len(n.records))
	}

	threatTypes := make(map[string]int)
	for _, r := range n.reports {
		stats.SeverityBreakdown[r.Severity]++
		threatTypes[r.ThreatType]++
	}

	for tt, count := range threatTypes {
		stats.TopThreatTypes = append(stats.TopThreatTypes, model.ThreatTypeTally{ThreatType: tt, Count: count})
	}
	sort.Slice(stats.TopThreatTypes, func(i, j int) bool {
		a, b := stats.TopThreatTypes[i], stats.TopThreatTypes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ThreatType < b.ThreatType
	})
	if len(stats.TopThreatTypes) > 5 {
		stats.TopThreatTypes = stats.TopThreatTypes[:5]
	}
	return stats
}

// ThreatIntelligenceSummary returns the decayed reputation record, the
// ordered report list, and derived aggregates for a device, or nil when
// the device is unrated.
func (n *Network) ThreatIntelligenceSummary(deviceID string) *model.ThreatIntelligenceSummary {
	reputation := n.QueryDeviceReputation(deviceID)
	if reputation == nil {
		return nil
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := n.reportsByDev[deviceID]
	if len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC()
	summary := &model.ThreatIntelligenceSummary{
		DeviceID:     deviceID,
		Reputation:   reputation,
		Reports:      make([]*model.ThreatIntelligenceReport, 0, len(ids)),
		TotalReports: len(ids),
		ThreatTypes:  make(map[string]int),
	}

	reporters := make(map[string]bool)
	for _, id := range ids {
		report := n.reports[id]
		rc := *report
		summary.Reports = append(summary.Reports, &rc)

		summary.ThreatTypes[report.ThreatType]++
		reporters[report.ReporterID] = true
		if report.Verified {
			summary.VerifiedReports++
		}
		if now.Sub(report.Timestamp) < 90*24*time.Hour {
			summary.RecentReports90d++
		}
		if report.Timestamp.After(summary.LatestReportAt) {
			summary.LatestReportAt = report.Timestamp
		}
	}
	summary.DistinctReporters = len(reporters)
	return summary
}

// generateReportID derives a short unique id from the report identity
// and submission time.
func generateReportID(deviceID, reporterID string, ts time.Time) string {
	content := fmt.Sprintf("%s:%s:%s", deviceID, reporterID, ts.Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
