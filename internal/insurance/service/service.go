// Package service wires the scoring, risk, reputation, and pricing
// engines into one application-facing facade. Persistence is optional:
// every repository collaborator may be nil, in which case the service
// runs purely in memory.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/securepremium/securepremium/internal/insurance/model"
	"github.com/securepremium/securepremium/internal/insurance/pricing"
	"github.com/securepremium/securepremium/internal/insurance/reputation"
	"github.com/securepremium/securepremium/internal/insurance/risk"
	"github.com/securepremium/securepremium/internal/insurance/scoring"
	"go.uber.org/zap"
)

// maxAssessmentHistory bounds the in-memory per-device history kept for
// deployments without a database.
const maxAssessmentHistory = 100

// deviceRepo is the persistence interface for device profiles.
// *repository.DeviceRepository satisfies this interface.
type deviceRepo interface {
	Create(ctx context.Context, p *model.DeviceProfile) error
	GetByDeviceID(ctx context.Context, deviceID string) (*model.DeviceProfile, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*model.DeviceProfile, error)
	UpdateActivity(ctx context.Context, p *model.DeviceProfile) error
	UpdateScore(ctx context.Context, deviceID string, score float64, category model.DeviceScoreCategory) error
	Deactivate(ctx context.Context, deviceID string) error
	AddSecurityEvent(ctx context.Context, deviceID string, ev model.SecurityEvent) error
	AddLocation(ctx context.Context, deviceID string, loc model.GeoObservation) error
}

// assessmentRepo archives risk assessments.
type assessmentRepo interface {
	Create(ctx context.Context, a *model.RiskAssessment) error
	Latest(ctx context.Context, deviceID string) (*model.RiskAssessment, error)
	ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]*model.RiskAssessment, error)
}

// quoteRepo archives premium quotes.
type quoteRepo interface {
	Create(ctx context.Context, q *model.PremiumQuote) (uuid.UUID, error)
	ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]*model.PremiumQuote, error)
}

// reportRepo archives threat reports and reputation snapshots.
type reportRepo interface {
	Create(ctx context.Context, rep *model.ThreatIntelligenceReport) error
	UpdateVerification(ctx context.Context, reportID string, verified bool, verifications int) error
	UpsertReputation(ctx context.Context, rec *model.ReputationRecord) error
}

// participantRepo persists network participants.
type participantRepo interface {
	Create(ctx context.Context, p *model.Participant) error
}

// Repositories bundles the optional persistence collaborators.
type Repositories struct {
	Devices      deviceRepo
	Assessments  assessmentRepo
	Quotes       quoteRepo
	Reports      reportRepo
	Participants participantRepo
}

// InsuranceService is the orchestration layer over the four engines.
type InsuranceService struct {
	scorer     *scoring.Scorer
	calculator risk.Calculator
	network    *reputation.Network
	engine     *pricing.Engine
	repos      Repositories
	logger     *zap.Logger

	historyMu sync.RWMutex
	history   map[string][]*model.RiskAssessment
}

// New creates an InsuranceService. Any repository in repos may be nil;
// persistence for that entity is then skipped.
func New(scorer *scoring.Scorer, calculator risk.Calculator, network *reputation.Network, engine *pricing.Engine, repos Repositories, logger *zap.Logger) *InsuranceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsuranceService{
		scorer:     scorer,
		calculator: calculator,
		network:    network,
		engine:     engine,
		repos:      repos,
		logger:     logger,
		history:    make(map[string][]*model.RiskAssessment),
	}
}

// RegisterDevice creates a device trust profile and persists it when a
// device repository is configured.
func (s *InsuranceService) RegisterDevice(ctx context.Context, deviceID, fingerprintHash string, hardwareInfo, systemInfo map[string]string) (*model.DeviceProfile, error) {
	profile, err := s.scorer.RegisterDevice(deviceID, fingerprintHash, hardwareInfo, systemInfo)
	if err != nil {
		return nil, err
	}
	if s.repos.Devices != nil {
		if err := s.repos.Devices.Create(ctx, profile); err != nil {
			s.logger.Error("persist device profile", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return profile, nil
}

// GetDevice returns the device's current trust profile.
func (s *InsuranceService) GetDevice(_ context.Context, deviceID string) (*model.DeviceProfile, error) {
	return s.scorer.GetProfile(deviceID)
}

// ListDevices returns registered devices, newest first.
func (s *InsuranceService) ListDevices(ctx context.Context, activeOnly bool, limit, offset int) ([]*model.DeviceProfile, error) {
	if s.repos.Devices != nil {
		return s.repos.Devices.List(ctx, activeOnly, limit, offset)
	}
	profiles := s.scorer.ListProfiles(activeOnly)
	if offset >= len(profiles) {
		return []*model.DeviceProfile{}, nil
	}
	profiles = profiles[offset:]
	if limit > 0 && limit < len(profiles) {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

// ObserveInteraction records one device interaction.
func (s *InsuranceService) ObserveInteraction(ctx context.Context, deviceID, fingerprintHash string, sample *model.UsageSample) error {
	if err := s.scorer.ObserveInteraction(deviceID, fingerprintHash, sample); err != nil {
		return err
	}
	if s.repos.Devices != nil {
		profile, err := s.scorer.GetProfile(deviceID)
		if err == nil {
			if err := s.repos.Devices.UpdateActivity(ctx, profile); err != nil {
				s.logger.Error("persist device activity", zap.String("device_id", deviceID), zap.Error(err))
			}
		}
	}
	return nil
}

// AddSecurityEvent records a security incident against a device.
func (s *InsuranceService) AddSecurityEvent(ctx context.Context, deviceID, eventType, severity, description string) error {
	if err := s.scorer.AddSecurityEvent(deviceID, eventType, severity, description); err != nil {
		return err
	}
	if s.repos.Devices != nil {
		profile, err := s.scorer.GetProfile(deviceID)
		if err == nil && len(profile.SecurityEvents) > 0 {
			ev := profile.SecurityEvents[len(profile.SecurityEvents)-1]
			if err := s.repos.Devices.AddSecurityEvent(ctx, deviceID, ev); err != nil {
				s.logger.Error("persist security event", zap.String("device_id", deviceID), zap.Error(err))
			}
		}
	}
	return nil
}

// RecordLocation records a geographic observation for a device.
func (s *InsuranceService) RecordLocation(ctx context.Context, deviceID string, lat, lon float64, city string) error {
	if err := s.scorer.RecordLocation(deviceID, lat, lon, city); err != nil {
		return err
	}
	if s.repos.Devices != nil {
		profile, err := s.scorer.GetProfile(deviceID)
		if err == nil && len(profile.Locations) > 0 {
			loc := profile.Locations[len(profile.Locations)-1]
			if err := s.repos.Devices.AddLocation(ctx, deviceID, loc); err != nil {
				s.logger.Error("persist location", zap.String("device_id", deviceID), zap.Error(err))
			}
		}
	}
	return nil
}

// EstablishBaseline fixes a device's behavioral baseline.
func (s *InsuranceService) EstablishBaseline(_ context.Context, deviceID string) (*model.BehavioralBaseline, error) {
	return s.scorer.EstablishBaseline(deviceID)
}

// DeactivateDevice retires a device. Its history is retained.
func (s *InsuranceService) DeactivateDevice(ctx context.Context, deviceID string) error {
	if err := s.scorer.Deactivate(deviceID); err != nil {
		return err
	}
	if s.repos.Devices != nil {
		if err := s.repos.Devices.Deactivate(ctx, deviceID); err != nil {
			s.logger.Error("persist deactivation", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return nil
}

// ScoreDevice computes the device trust score, persists it, and returns
// the score with its component breakdown and category.
func (s *InsuranceService) ScoreDevice(ctx context.Context, deviceID string) (float64, *model.ScoreBreakdown, model.DeviceScoreCategory, error) {
	score, breakdown, err := s.scorer.CalculateDeviceScore(deviceID)
	if err != nil {
		return 0, nil, "", err
	}
	category := scoring.ScoreCategory(score)
	if s.repos.Devices != nil {
		if err := s.repos.Devices.UpdateScore(ctx, deviceID, score, category); err != nil {
			s.logger.Error("persist device score", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return score, breakdown, category, nil
}

// AssessRisk runs a multi-factor risk assessment. The historical
// baseline comes from the device's trust profile when one is registered;
// netRep may be nil. The assessment is archived.
func (s *InsuranceService) AssessRisk(ctx context.Context, deviceID string, metrics *model.DeviceMetrics, netRep *model.NetworkReputationSnapshot) (*model.RiskAssessment, error) {
	var historical *model.HistoricalBaseline
	if profile, err := s.scorer.GetProfile(deviceID); err == nil && profile.Baseline != nil {
		b := profile.Baseline
		historical = &model.HistoricalBaseline{
			CPUUsage:        &b.CPUUsage,
			MemoryUsage:     &b.MemoryUsage,
			NetworkActivity: &b.NetworkActivity,
			DiskActivity:    &b.DiskActivity,
		}
	}

	assessment, err := s.calculator.CalculateRisk(deviceID, metrics, historical, netRep)
	if err != nil {
		return nil, err
	}

	s.historyMu.Lock()
	entries := append(s.history[deviceID], assessment)
	if len(entries) > maxAssessmentHistory {
		entries = entries[len(entries)-maxAssessmentHistory:]
	}
	s.history[deviceID] = entries
	s.historyMu.Unlock()

	if s.repos.Assessments != nil {
		if err := s.repos.Assessments.Create(ctx, assessment); err != nil {
			s.logger.Error("persist assessment", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return assessment, nil
}

// AssessmentHistory returns a device's past assessments, newest first.
func (s *InsuranceService) AssessmentHistory(ctx context.Context, deviceID string, limit, offset int) ([]*model.RiskAssessment, error) {
	if s.repos.Assessments != nil {
		return s.repos.Assessments.ListByDevice(ctx, deviceID, limit, offset)
	}

	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	entries := s.history[deviceID]
	out := make([]*model.RiskAssessment, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	if offset >= len(out) {
		return []*model.RiskAssessment{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// latestAssessment returns the most recent assessment for a device.
func (s *InsuranceService) latestAssessment(ctx context.Context, deviceID string) (*model.RiskAssessment, error) {
	if s.repos.Assessments != nil {
		return s.repos.Assessments.Latest(ctx, deviceID)
	}
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	entries := s.history[deviceID]
	if len(entries) == 0 {
		return nil, &model.ErrNoAssessment{DeviceID: deviceID}
	}
	return entries[len(entries)-1], nil
}

// RegisterParticipant joins an organization to the reputation network.
func (s *InsuranceService) RegisterParticipant(ctx context.Context, participantID string) bool {
	created := s.network.RegisterParticipant(participantID)
	if created && s.repos.Participants != nil {
		p := &model.Participant{ParticipantID: participantID, JoinedAt: time.Now().UTC()}
		if err := s.repos.Participants.Create(ctx, p); err != nil {
			s.logger.Error("persist participant", zap.String("participant_id", participantID), zap.Error(err))
		}
	}
	return created
}

// SubmitThreatReport files a threat report into the network.
func (s *InsuranceService) SubmitThreatReport(ctx context.Context, reporterID, deviceID, threatType, severity, description, evidenceHash string) (*model.ThreatIntelligenceReport, error) {
	report, err := s.network.SubmitThreatReport(reporterID, deviceID, threatType, severity, description, evidenceHash)
	if err != nil {
		return nil, err
	}
	if s.repos.Reports != nil {
		if err := s.repos.Reports.Create(ctx, report); err != nil {
			s.logger.Error("persist threat report", zap.String("report_id", report.ReportID), zap.Error(err))
		}
		if rec := s.network.QueryDeviceReputation(deviceID); rec != nil {
			if err := s.repos.Reports.UpsertReputation(ctx, rec); err != nil {
				s.logger.Error("persist reputation", zap.String("device_id", deviceID), zap.Error(err))
			}
		}
	}
	return report, nil
}

// VerifyReport counts one verification call against a report.
func (s *InsuranceService) VerifyReport(ctx context.Context, reportID string, quorum int) (bool, error) {
	verified, err := s.network.VerifyReport(reportID, quorum)
	if err != nil {
		return false, err
	}
	if s.repos.Reports != nil {
		// Verification counts live in the network; read them back for
		// the archive row.
		if report := s.network.Report(reportID); report != nil {
			if err := s.repos.Reports.UpdateVerification(ctx, reportID, report.Verified, report.Verifications); err != nil {
				s.logger.Error("persist verification", zap.String("report_id", reportID), zap.Error(err))
			}
		}
	}
	return verified, nil
}

// QueryReputation returns the decayed reputation record with its risk
// level, or (nil, "unrated") for unknown devices.
func (s *InsuranceService) QueryReputation(_ context.Context, deviceID string) (*model.ReputationRecord, model.ReputationRiskLevel) {
	record := s.network.QueryDeviceReputation(deviceID)
	if record == nil {
		return nil, model.ReputationUnrated
	}
	return record, reputation.RiskLevel(record.ReputationScore)
}

// ThreatIntelligenceSummary aggregates a device's reports and reputation.
func (s *InsuranceService) ThreatIntelligenceSummary(_ context.Context, deviceID string) *model.ThreatIntelligenceSummary {
	return s.network.ThreatIntelligenceSummary(deviceID)
}

// NetworkStatistics returns network-wide aggregates.
func (s *InsuranceService) NetworkStatistics(_ context.Context) *model.NetworkStatistics {
	return s.network.Statistics()
}

// GenerateQuote prices a policy from the device's latest risk assessment
// and current reputation. deviceCount > 1 applies the fleet discount.
func (s *InsuranceService) GenerateQuote(ctx context.Context, deviceID, coverageLevel string, policyDurationMonths, deviceCount int) (*model.PremiumQuote, error) {
	assessment, err := s.latestAssessment(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	var reputationScore *float64
	if record := s.network.QueryDeviceReputation(deviceID); record != nil {
		score := record.ReputationScore
		reputationScore = &score
	}

	quote, err := s.engine.GenerateQuote(assessment, reputationScore, coverageLevel, policyDurationMonths)
	if err != nil {
		return nil, err
	}
	if deviceCount > 1 {
		quote = s.engine.ApplyVolumeDiscount(quote, deviceCount)
	}

	if s.repos.Quotes != nil {
		if _, err := s.repos.Quotes.Create(ctx, quote); err != nil {
			s.logger.Error("persist quote", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return quote, nil
}

// CoverageTiers returns the configured tier table.
func (s *InsuranceService) CoverageTiers(_ context.Context) []model.CoverageTier {
	return s.engine.Model().Tiers()
}

// EstimateFleetCost projects the annual cost of insuring a fleet.
func (s *InsuranceService) EstimateFleetCost(_ context.Context, totalDevices int, averageRisk, averageReputation float64, distribution map[string]float64) (*model.FleetEstimate, error) {
	return s.engine.EstimateAnnualCost(totalDevices, averageRisk, averageReputation, distribution)
}
