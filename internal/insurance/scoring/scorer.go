// Package scoring maintains per-device trust profiles and computes a
// trustworthiness score from fingerprint stability, behavioral
// consistency, incident history, longevity, and geographic plausibility.
package scoring

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/securepremium/securepremium/internal/insurance/model"
	"go.uber.org/zap"
)

// Component weights for the overall device trust score.
const (
	weightFingerprint = 0.20
	weightBehavioral  = 0.25
	weightSecurity    = 0.25
	weightLongevity   = 0.15
	weightGeographic  = 0.15
)

// minBaselineSamples is how many usage samples must be observed before
// a behavioral baseline can be established.
const minBaselineSamples = 10

// maxTravelSpeedKmh is the fastest plausible travel between two
// consecutive location observations (roughly airliner cruise speed).
const maxTravelSpeedKmh = 900.0

// Scorer owns the device profile registry. All methods are safe for
// concurrent use; writes to a profile serialize through the registry lock.
type Scorer struct {
	mu       sync.RWMutex
	profiles map[string]*model.DeviceProfile
	samples  map[string][]model.UsageSample
	logger   *zap.Logger
}

// NewScorer returns an empty Scorer.
func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		profiles: make(map[string]*model.DeviceProfile),
		samples:  make(map[string][]model.UsageSample),
		logger:   logger,
	}
}

// RegisterDevice creates a new device profile. Registering an existing
// device id fails with ErrDuplicateDevice; validation happens before
// any registry mutation.
func (s *Scorer) RegisterDevice(deviceID, fingerprintHash string, hardwareInfo, systemInfo map[string]string) (*model.DeviceProfile, error) {
	if err := model.ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}
	if fingerprintHash == "" {
		return nil, &model.ErrInvalidScore{Field: "fingerprint_hash", Msg: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[deviceID]; ok {
		return nil, &model.ErrDuplicateDevice{DeviceID: deviceID}
	}

	now := time.Now().UTC()
	profile := &model.DeviceProfile{
		DeviceID:        deviceID,
		FingerprintHash: fingerprintHash,
		HardwareInfo:    copyMap(hardwareInfo),
		SystemInfo:      copyMap(systemInfo),
		FirstSeen:       now,
		LastSeen:        now,
		SecurityEvents:  []model.SecurityEvent{},
		Locations:       []model.GeoObservation{},
		Active:          true,
	}
	s.profiles[deviceID] = profile

	s.logger.Info("device registered", zap.String("device_id", deviceID))
	return cloneProfile(profile), nil
}

// ObserveInteraction records one device interaction: bumps the
// interaction count, advances last_seen, tracks fingerprint drift, and
// accumulates the usage sample toward the behavioral baseline.
// fingerprintHash and sample may be empty/nil when not observed.
func (s *Scorer) ObserveInteraction(deviceID, fingerprintHash string, sample *model.UsageSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[deviceID]
	if !ok {
		return &model.ErrUnknownDevice{DeviceID: deviceID}
	}

	now := time.Now().UTC()
	profile.InteractionCount++
	profile.LastSeen = now

	if fingerprintHash != "" && fingerprintHash != profile.FingerprintHash {
		profile.FingerprintChanges++
	}

	if sample != nil {
		sc := *sample
		if sc.Timestamp.IsZero() {
			sc.Timestamp = now
		}
		profile.LastSample = &sc
		s.samples[deviceID] = append(s.samples[deviceID], sc)
	}
	return nil
}

// AddSecurityEvent appends an incident to the device's history and
// advances last_seen. The severity must be one of the enumerated values.
func (s *Scorer) AddSecurityEvent(deviceID, eventType, severity, description string) error {
	sev, err := model.ParseSeverity(severity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[deviceID]
	if !ok {
		return &model.ErrUnknownDevice{DeviceID: deviceID}
	}

	now := time.Now().UTC()
	profile.SecurityEvents = append(profile.SecurityEvents, model.SecurityEvent{
		Type:        eventType,
		Severity:    sev,
		Description: description,
		Timestamp:   now,
	})
	profile.LastSeen = now

	s.logger.Info("security event recorded",
		zap.String("device_id", deviceID),
		zap.String("type", eventType),
		zap.String("severity", severity),
	)
	return nil
}

// RecordLocation appends a geographic observation to the profile.
func (s *Scorer) RecordLocation(deviceID string, lat, lon float64, city string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[deviceID]
	if !ok {
		return &model.ErrUnknownDevice{DeviceID: deviceID}
	}
	profile.Locations = append(profile.Locations, model.GeoObservation{
		Latitude:  lat,
		Longitude: lon,
		City:      city,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// EstablishBaseline fixes the behavioral baseline from the accumulated
// usage samples. Requires at least minBaselineSamples observations.
func (s *Scorer) EstablishBaseline(deviceID string) (*model.BehavioralBaseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[deviceID]
	if !ok {
		return nil, &model.ErrUnknownDevice{DeviceID: deviceID}
	}
	samples := s.samples[deviceID]
	if len(samples) < minBaselineSamples {
		return nil, &model.ErrInvalidScore{
			Field: "behavioral_baseline",
			Msg:   "not enough usage samples observed to establish a baseline",
		}
	}

	baseline := &model.BehavioralBaseline{
		CPUUsage:        summarize(samples, func(u model.UsageSample) float64 { return u.CPUUsage }),
		MemoryUsage:     summarize(samples, func(u model.UsageSample) float64 { return u.MemoryUsage }),
		NetworkActivity: summarize(samples, func(u model.UsageSample) float64 { return u.NetworkActivity }),
		DiskActivity:    summarize(samples, func(u model.UsageSample) float64 { return u.DiskActivity }),
		SampleCount:     len(samples),
		EstablishedAt:   time.Now().UTC(),
	}
	profile.Baseline = baseline

	s.logger.Info("behavioral baseline established",
		zap.String("device_id", deviceID),
		zap.Int("samples", len(samples)),
	)
	b := *baseline
	return &b, nil
}

// Deactivate marks the device inactive. Profiles are never deleted.
func (s *Scorer) Deactivate(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[deviceID]
	if !ok {
		return &model.ErrUnknownDevice{DeviceID: deviceID}
	}
	profile.Active = false
	return nil
}

// GetProfile returns a copy of the device profile.
func (s *Scorer) GetProfile(deviceID string) (*model.DeviceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[deviceID]
	if !ok {
		return nil, &model.ErrUnknownDevice{DeviceID: deviceID}
	}
	return cloneProfile(profile), nil
}

// ListProfiles returns copies of all profiles, newest first, optionally
// restricted to active devices.
func (s *Scorer) ListProfiles(activeOnly bool) []*model.DeviceProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.DeviceProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.After(out[j].FirstSeen)
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out
}

// CalculateDeviceScore computes the weighted trust score and its
// component breakdown for a registered device.
func (s *Scorer) CalculateDeviceScore(deviceID string) (float64, *model.ScoreBreakdown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[deviceID]
	if !ok {
		return 0, nil, &model.ErrUnknownDevice{DeviceID: deviceID}
	}

	now := time.Now().UTC()
	breakdown := &model.ScoreBreakdown{
		FingerprintStability:  fingerprintStabilityScore(profile),
		BehavioralConsistency: behavioralConsistencyScore(profile),
		SecurityIncidents:     securityScore(profile, now),
		Longevity:             longevityScore(profile, now),
		GeographicPatterns:    geographicPatternScore(profile),
	}

	overall := breakdown.FingerprintStability*weightFingerprint +
		breakdown.BehavioralConsistency*weightBehavioral +
		breakdown.SecurityIncidents*weightSecurity +
		breakdown.Longevity*weightLongevity +
		breakdown.GeographicPatterns*weightGeographic

	return model.ClampScore(overall), breakdown, nil
}

// ScoreCategory labels a device trust score. Boundaries are closed on
// the lower bound.
func ScoreCategory(score float64) model.DeviceScoreCategory {
	switch {
	case score >= 0.85:
		return model.DeviceTrusted
	case score >= 0.65:
		return model.DeviceNormal
	case score >= 0.40:
		return model.DeviceSuspect
	default:
		return model.DeviceUntrusted
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneProfile(p *model.DeviceProfile) *model.DeviceProfile {
	c := *p
	c.HardwareInfo = copyMap(p.HardwareInfo)
	c.SystemInfo = copyMap(p.SystemInfo)
	c.SecurityEvents = append([]model.SecurityEvent(nil), p.SecurityEvents...)
	c.Locations = append([]model.GeoObservation(nil), p.Locations...)
	if p.Baseline != nil {
		b := *p.Baseline
		c.Baseline = &b
	}
	if p.LastSample != nil {
		ls := *p.LastSample
		c.LastSample = &ls
	}
	return &c
}

func summarize(samples []model.UsageSample, metric func(model.UsageSample) float64) model.BaselineStat {
	n := float64(len(samples))
	mean := 0.0
	for _, s := range samples {
		mean += metric(s)
	}
	mean /= n

	variance := 0.0
	for _, s := range samples {
		d := metric(s) - mean
		variance += d * d
	}
	variance /= n

	return model.BaselineStat{Mean: mean, StdDev: math.Sqrt(variance)}
}
