// Package client provides the SecurePremium Go SDK for device
// registration, risk assessment, threat intelligence, and premium
// pricing against a securepremiumd server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIError is returned when the server responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// DeviceProfile is a device trust profile as returned by the API.
type DeviceProfile struct {
	DeviceID           string            `json:"device_id"`
	FingerprintHash    string            `json:"fingerprint_hash"`
	HardwareInfo       map[string]string `json:"hardware_info,omitempty"`
	SystemInfo         map[string]string `json:"system_info,omitempty"`
	FirstSeen          time.Time         `json:"first_seen"`
	LastSeen           time.Time         `json:"last_seen"`
	InteractionCount   int               `json:"interaction_count"`
	FingerprintChanges int               `json:"fingerprint_changes"`
	Active             bool              `json:"active"`
}

// DeviceScore is the trust score response for a device.
type DeviceScore struct {
	DeviceID  string             `json:"device_id"`
	Score     float64            `json:"score"`
	Category  string             `json:"category"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// RiskAssessment is a completed multi-factor risk assessment.
type RiskAssessment struct {
	DeviceID          string    `json:"device_id"`
	Timestamp         time.Time `json:"timestamp"`
	OverallRiskScore  float64   `json:"overall_risk_score"`
	BehavioralRisk    float64   `json:"behavioral_risk"`
	HardwareRisk      float64   `json:"hardware_risk"`
	NetworkRisk       float64   `json:"network_risk"`
	AnomalyScore      float64   `json:"anomaly_score"`
	ThreatIndicators  []string  `json:"threat_indicators"`
	ConfidenceLevel   float64   `json:"confidence_level"`
	Category          string    `json:"category"`
	AssessmentVersion string    `json:"assessment_version"`
}

// ThreatReport is a filed threat intelligence report.
type ThreatReport struct {
	ReportID      string    `json:"report_id"`
	ReporterID    string    `json:"reporter_id"`
	DeviceID      string    `json:"device_id"`
	ThreatType    string    `json:"threat_type"`
	Severity      string    `json:"severity"`
	Description   string    `json:"description,omitempty"`
	EvidenceHash  string    `json:"evidence_hash,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Verified      bool      `json:"verified"`
	Verifications int       `json:"verifications"`
}

// ReputationRecord is a device's reputation state.
type ReputationRecord struct {
	DeviceID          string    `json:"device_id"`
	ReputationScore   float64   `json:"reputation_score"`
	ReportsCount      int       `json:"reports_count"`
	ContributorCount  int       `json:"contributor_count"`
	ThreatHistory     []string  `json:"threat_history"`
	VerificationLevel string    `json:"verification_level"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Reputation is the decayed reputation response for a device.
type Reputation struct {
	DeviceID   string            `json:"device_id"`
	Reputation *ReputationRecord `json:"reputation"`
	RiskLevel  string            `json:"risk_level"`
}

// PremiumQuote is a priced policy quote.
type PremiumQuote struct {
	DeviceID           string          `json:"device_id"`
	AnnualPremiumUSD   float64         `json:"annual_premium_usd"`
	MonthlyPremiumUSD  float64         `json:"monthly_premium_usd"`
	BasePremium        float64         `json:"base_premium"`
	RiskAdjustment     float64         `json:"risk_adjustment"`
	ReputationDiscount float64         `json:"reputation_discount"`
	CoverageLevel      string          `json:"coverage_level"`
	QuoteTimestamp     time.Time       `json:"quote_timestamp"`
	QuoteValidUntil    time.Time       `json:"quote_valid_until"`
	Terms              json.RawMessage `json:"terms"`
}

// NetworkStats holds network-wide reputation aggregates.
type NetworkStats struct {
	NetworkID         string         `json:"network_id"`
	TotalParticipants int            `json:"total_participants"`
	TrackedDevices    int            `json:"tracked_devices"`
	TotalReports      int            `json:"total_reports"`
	AverageReputation float64        `json:"average_reputation_score"`
	SeverityBreakdown map[string]int `json:"severity_breakdown"`
}

// UsageSample is one resource usage observation.
type UsageSample struct {
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryUsage     float64 `json:"memory_usage"`
	NetworkActivity float64 `json:"network_activity"`
	DiskActivity    float64 `json:"disk_activity"`
}

// Client is the SecurePremium SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client connected to baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RegisterDevice registers a new device trust profile.
func (c *Client) RegisterDevice(ctx context.Context, deviceID, fingerprintHash string, hardwareInfo, systemInfo map[string]string) (*DeviceProfile, error) {
	body := map[string]any{
		"device_id":        deviceID,
		"fingerprint_hash": fingerprintHash,
		"hardware_info":    hardwareInfo,
		"system_info":      systemInfo,
	}
	var profile DeviceProfile
	if err := c.do(ctx, http.MethodPost, "/api/v1/devices", body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetDevice fetches a device trust profile.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (*DeviceProfile, error) {
	var profile DeviceProfile
	if err := c.do(ctx, http.MethodGet, "/api/v1/devices/"+url.PathEscape(deviceID), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListDevices lists registered devices.
func (c *Client) ListDevices(ctx context.Context, activeOnly bool, limit, offset int) ([]DeviceProfile, error) {
	path := fmt.Sprintf("/api/v1/devices?active=%t&limit=%d&offset=%d", activeOnly, limit, offset)
	var out struct {
		Devices []DeviceProfile `json:"devices"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// ScoreDevice computes the device's current trust score.
func (c *Client) ScoreDevice(ctx context.Context, deviceID string) (*DeviceScore, error) {
	var score DeviceScore
	if err := c.do(ctx, http.MethodGet, "/api/v1/devices/"+url.PathEscape(deviceID)+"/score", nil, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

// ObserveInteraction records one device interaction.
func (c *Client) ObserveInteraction(ctx context.Context, deviceID, fingerprintHash string, sample *UsageSample) error {
	body := map[string]any{"fingerprint_hash": fingerprintHash}
	if sample != nil {
		body["usage_sample"] = sample
	}
	return c.do(ctx, http.MethodPost, "/api/v1/devices/"+url.PathEscape(deviceID)+"/interactions", body, nil)
}

// AddSecurityEvent records a security incident against a device.
func (c *Client) AddSecurityEvent(ctx context.Context, deviceID, eventType, severity, description string) error {
	body := map[string]any{
		"event_type":  eventType,
		"severity":    severity,
		"description": description,
	}
	return c.do(ctx, http.MethodPost, "/api/v1/devices/"+url.PathEscape(deviceID)+"/events", body, nil)
}

// RecordLocation records a geographic observation for a device.
func (c *Client) RecordLocation(ctx context.Context, deviceID string, lat, lon float64, city string) error {
	body := map[string]any{"latitude": lat, "longitude": lon, "city": city}
	return c.do(ctx, http.MethodPost, "/api/v1/devices/"+url.PathEscape(deviceID)+"/locations", body, nil)
}

// EstablishBaseline fixes a device's behavioral baseline.
func (c *Client) EstablishBaseline(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/devices/"+url.PathEscape(deviceID)+"/baseline", nil, nil)
}

// DeactivateDevice retires a device.
func (c *Client) DeactivateDevice(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/devices/"+url.PathEscape(deviceID)+"/deactivate", nil, nil)
}

// AssessRisk runs a risk assessment from raw metrics. metrics is
// serialized as the "metrics" object of the assess request.
func (c *Client) AssessRisk(ctx context.Context, deviceID string, metrics map[string]any) (*RiskAssessment, error) {
	body := map[string]any{"device_id": deviceID, "metrics": metrics}
	var assessment RiskAssessment
	if err := c.do(ctx, http.MethodPost, "/api/v1/risk/assess", body, &assessment); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// AssessmentHistory returns a device's past assessments, newest first.
func (c *Client) AssessmentHistory(ctx context.Context, deviceID string, limit int) ([]RiskAssessment, error) {
	path := fmt.Sprintf("/api/v1/risk/%s/history?limit=%d", url.PathEscape(deviceID), limit)
	var out struct {
		Assessments []RiskAssessment `json:"assessments"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Assessments, nil
}

// RegisterParticipant joins an organization to the reputation network.
// Returns false when the participant was already registered.
func (c *Client) RegisterParticipant(ctx context.Context, participantID string) (bool, error) {
	body := map[string]any{"participant_id": participantID}
	var out struct {
		Created bool `json:"created"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/reputation/participants", body, &out); err != nil {
		return false, err
	}
	return out.Created, nil
}

// SubmitThreatReport files a threat report.
func (c *Client) SubmitThreatReport(ctx context.Context, reporterID, deviceID, threatType, severity, description, evidenceHash string) (*ThreatReport, error) {
	body := map[string]any{
		"reporter_id":   reporterID,
		"device_id":     deviceID,
		"threat_type":   threatType,
		"severity":      severity,
		"description":   description,
		"evidence_hash": evidenceHash,
	}
	var report ThreatReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/reputation/reports", body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// VerifyReport counts one verification call against a report and
// reports whether the report is now verified.
func (c *Client) VerifyReport(ctx context.Context, reportID string, quorum int) (bool, error) {
	body := map[string]any{"quorum": quorum}
	var out struct {
		Verified bool `json:"verified"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/reputation/reports/"+url.PathEscape(reportID)+"/verify", body, &out); err != nil {
		return false, err
	}
	return out.Verified, nil
}

// QueryReputation fetches a device's decayed reputation and risk level.
func (c *Client) QueryReputation(ctx context.Context, deviceID string) (*Reputation, error) {
	var rep Reputation
	if err := c.do(ctx, http.MethodGet, "/api/v1/reputation/devices/"+url.PathEscape(deviceID), nil, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// GenerateQuote prices a policy for a previously assessed device.
func (c *Client) GenerateQuote(ctx context.Context, deviceID, coverageLevel string, policyDurationMonths, deviceCount int) (*PremiumQuote, error) {
	body := map[string]any{
		"device_id":              deviceID,
		"coverage_level":         coverageLevel,
		"policy_duration_months": policyDurationMonths,
		"device_count":           deviceCount,
	}
	var quote PremiumQuote
	if err := c.do(ctx, http.MethodPost, "/api/v1/premium/quote", body, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// CoverageTiers fetches the configured coverage tier table.
func (c *Client) CoverageTiers(ctx context.Context) (json.RawMessage, error) {
	var out struct {
		Tiers json.RawMessage `json:"tiers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/premium/tiers", nil, &out); err != nil {
		return nil, err
	}
	return out.Tiers, nil
}

// EstimateFleetCost projects the annual cost of insuring a fleet. The
// raw estimate JSON is returned for the caller to render.
func (c *Client) EstimateFleetCost(ctx context.Context, totalDevices int, averageRisk, averageReputation float64, distribution map[string]float64) (json.RawMessage, error) {
	body := map[string]any{
		"total_devices":         totalDevices,
		"average_risk_score":    averageRisk,
		"average_reputation":    averageReputation,
		"coverage_distribution": distribution,
	}
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/v1/premium/estimate", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NetworkStats fetches network-wide reputation aggregates.
func (c *Client) NetworkStats(ctx context.Context) (*NetworkStats, error) {
	var stats NetworkStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/network/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health probes the server health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// do executes one JSON request/response round trip. out may be nil when
// the response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := string(raw)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
