// Package handler exposes the insurance service over HTTP with gin.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/securepremium/securepremium/internal/insurance/model"
	"github.com/securepremium/securepremium/internal/insurance/service"
	"go.uber.org/zap"
)

// InsuranceHandler handles HTTP requests for the insurance API.
type InsuranceHandler struct {
	svc    *service.InsuranceService
	logger *zap.Logger
}

// NewInsuranceHandler creates a new InsuranceHandler.
func NewInsuranceHandler(svc *service.InsuranceService, logger *zap.Logger) *InsuranceHandler {
	return &InsuranceHandler{svc: svc, logger: logger}
}

// Register registers all insurance routes on the given router group.
func (h *InsuranceHandler) Register(rg *gin.RouterGroup) {
	devices := rg.Group("/devices")
	{
		devices.POST("", h.RegisterDevice)
		devices.GET("", h.ListDevices)
		devices.GET("/:device_id", h.GetDevice)
		devices.GET("/:device_id/score", h.ScoreDevice)
		devices.POST("/:device_id/interactions", h.ObserveInteraction)
		devices.POST("/:device_id/events", h.AddSecurityEvent)
		devices.POST("/:device_id/locations", h.RecordLocation)
		devices.POST("/:device_id/baseline", h.EstablishBaseline)
		devices.POST("/:device_id/deactivate", h.DeactivateDevice)
	}

	risk := rg.Group("/risk")
	{
		risk.POST("/assess", h.AssessRisk)
		risk.GET("/:device_id/history", h.AssessmentHistory)
	}

	reputation := rg.Group("/reputation")
	{
		reputation.POST("/participants", h.RegisterParticipant)
		reputation.POST("/reports", h.SubmitThreatReport)
		reputation.POST("/reports/:report_id/verify", h.VerifyReport)
		reputation.GET("/devices/:device_id", h.QueryReputation)
		reputation.GET("/devices/:device_id/summary", h.ThreatSummary)
	}

	premium := rg.Group("/premium")
	{
		premium.POST("/quote", h.GenerateQuote)
		premium.GET("/tiers", h.CoverageTiers)
		premium.POST("/estimate", h.EstimateFleetCost)
	}

	rg.GET("/network/stats", h.NetworkStats)
}

// writeError maps domain errors to HTTP status codes.
func (h *InsuranceHandler) writeError(c *gin.Context, err error) {
	var (
		duplicate  *model.ErrDuplicateDevice
		unknownDev *model.ErrUnknownDevice
		unknownRep *model.ErrUnknownReport
		noAssess   *model.ErrNoAssessment
		unregister *model.ErrUnregisteredParticipant
		badTier    *model.ErrInvalidCoverageTier
		badScore   *model.ErrInvalidScore
	)
	switch {
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &unknownDev), errors.As(err, &unknownRep), errors.As(err, &noAssess):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &unregister):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &badTier), errors.As(err, &badScore):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type registerDeviceRequest struct {
	DeviceID        string            `json:"device_id" binding:"required"`
	FingerprintHash string            `json:"fingerprint_hash" binding:"required"`
	HardwareInfo    map[string]string `json:"hardware_info"`
	SystemInfo      map[string]string `json:"system_info"`
}

// RegisterDevice handles POST /devices.
func (h *InsuranceHandler) RegisterDevice(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.svc.RegisterDevice(c.Request.Context(), req.DeviceID, req.FingerprintHash, req.HardwareInfo, req.SystemInfo)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// ListDevices handles GET /devices.
func (h *InsuranceHandler) ListDevices(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	profiles, err := h.svc.ListDevices(c.Request.Context(), activeOnly, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": profiles, "count": len(profiles)})
}

// GetDevice handles GET /devices/:device_id.
func (h *InsuranceHandler) GetDevice(c *gin.Context) {
	profile, err := h.svc.GetDevice(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ScoreDevice handles GET /devices/:device_id/score.
func (h *InsuranceHandler) ScoreDevice(c *gin.Context) {
	deviceID := c.Param("device_id")
	score, breakdown, category, err := h.svc.ScoreDevice(c.Request.Context(), deviceID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	RecordDeviceScore(string(category))
	c.JSON(http.StatusOK, gin.H{
		"device_id": deviceID,
		"score":     score,
		"category":  category,
		"breakdown": breakdown,
	})
}

type interactionRequest struct {
	FingerprintHash string             `json:"fingerprint_hash"`
	Sample          *model.UsageSample `json:"usage_sample"`
}

// ObserveInteraction handles POST /devices/:device_id/interactions.
func (h *InsuranceHandler) ObserveInteraction(c *gin.Context) {
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.ObserveInteraction(c.Request.Context(), c.Param("device_id"), req.FingerprintHash, req.Sample); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

type securityEventRequest struct {
	EventType   string `json:"event_type" binding:"required"`
	Severity    string `json:"severity" binding:"required"`
	Description string `json:"description"`
}

// AddSecurityEvent handles POST /devices/:device_id/events.
func (h *InsuranceHandler) AddSecurityEvent(c *gin.Context) {
	var req securityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AddSecurityEvent(c.Request.Context(), c.Param("device_id"), req.EventType, req.Severity, req.Description); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

type locationRequest struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
	City      string  `json:"city"`
}

// RecordLocation handles POST /devices/:device_id/locations.
func (h *InsuranceHandler) RecordLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.RecordLocation(c.Request.Context(), c.Param("device_id"), req.Latitude, req.Longitude, req.City); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// EstablishBaseline handles POST /devices/:device_id/baseline.
func (h *InsuranceHandler) EstablishBaseline(c *gin.Context) {
	baseline, err := h.svc.EstablishBaseline(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, baseline)
}

// DeactivateDevice handles POST /devices/:device_id/deactivate.
func (h *InsuranceHandler) DeactivateDevice(c *gin.Context) {
	if err := h.svc.DeactivateDevice(c.Request.Context(), c.Param("device_id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

type assessRequest struct {
	DeviceID          string                           `json:"device_id" binding:"required"`
	Metrics           *model.DeviceMetrics             `json:"metrics"`
	NetworkReputation *model.NetworkReputationSnapshot `json:"network_reputation"`
}

// AssessRisk handles POST /risk/assess.
func (h *InsuranceHandler) AssessRisk(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assessment, err := h.svc.AssessRisk(c.Request.Context(), req.DeviceID, req.Metrics, req.NetworkReputation)
	if err != nil {
		h.writeError(c, err)
		return
	}
	RecordAssessment(string(assessment.Category))
	c.JSON(http.StatusOK, assessment)
}

// AssessmentHistory handles GET /risk/:device_id/history.
func (h *InsuranceHandler) AssessmentHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	assessments, err := h.svc.AssessmentHistory(c.Request.Context(), c.Param("device_id"), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": assessments, "count": len(assessments)})
}

type participantRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

// RegisterParticipant handles POST /reputation/participants.
func (h *InsuranceHandler) RegisterParticipant(c *gin.Context) {
	var req participantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created := h.svc.RegisterParticipant(c.Request.Context(), req.ParticipantID)
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"participant_id": req.ParticipantID, "created": created})
}

type threatReportRequest struct {
	ReporterID   string `json:"reporter_id" binding:"required"`
	DeviceID     string `json:"device_id" binding:"required"`
	ThreatType   string `json:"threat_type" binding:"required"`
	Severity     string `json:"severity" binding:"required"`
	Description  string `json:"description"`
	EvidenceHash string `json:"evidence_hash"`
}

// SubmitThreatReport handles POST /reputation/reports.
func (h *InsuranceHandler) SubmitThreatReport(c *gin.Context) {
	var req threatReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.svc.SubmitThreatReport(c.Request.Context(),
		req.ReporterID, req.DeviceID, req.ThreatType, req.Severity, req.Description, req.EvidenceHash)
	if err != nil {
		h.writeError(c, err)
		return
	}
	RecordThreatReport(req.Severity)
	c.JSON(http.StatusCreated, report)
}

type verifyRequest struct {
	Quorum int `json:"quorum"`
}

// VerifyReport handles POST /reputation/reports/:report_id/verify.
func (h *InsuranceHandler) VerifyReport(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reportID := c.Param("report_id")
	verified, err := h.svc.VerifyReport(c.Request.Context(), reportID, req.Quorum)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_id": reportID, "verified": verified})
}

// QueryReputation handles GET /reputation/devices/:device_id.
func (h *InsuranceHandler) QueryReputation(c *gin.Context) {
	deviceID := c.Param("device_id")
	record, level := h.svc.QueryReputation(c.Request.Context(), deviceID)
	c.JSON(http.StatusOK, gin.H{
		"device_id":  deviceID,
		"reputation": record,
		"risk_level": level,
	})
}

// ThreatSummary handles GET /reputation/devices/:device_id/summary.
func (h *InsuranceHandler) ThreatSummary(c *gin.Context) {
	deviceID := c.Param("device_id")
	summary := h.svc.ThreatIntelligenceSummary(c.Request.Context(), deviceID)
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no threat intelligence for device " + deviceID})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type quoteRequest struct {
	DeviceID             string `json:"device_id" binding:"required"`
	CoverageLevel        string `json:"coverage_level" binding:"required"`
	PolicyDurationMonths int    `json:"policy_duration_months"`
	DeviceCount          int    `json:"device_count"`
}

// GenerateQuote handles POST /premium/quote.
func (h *InsuranceHandler) GenerateQuote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := h.svc.GenerateQuote(c.Request.Context(), req.DeviceID, req.CoverageLevel, req.PolicyDurationMonths, req.DeviceCount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	RecordQuote(req.CoverageLevel)
	c.JSON(http.StatusOK, quote)
}

// CoverageTiers handles GET /premium/tiers.
func (h *InsuranceHandler) CoverageTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": h.svc.CoverageTiers(c.Request.Context())})
}

type estimateRequest struct {
	TotalDevices         int                `json:"total_devices" binding:"required,min=1"`
	AverageRiskScore     float64            `json:"average_risk_score"`
	AverageReputation    float64            `json:"average_reputation"`
	CoverageDistribution map[string]float64 `json:"coverage_distribution" binding:"required"`
}

// EstimateFleetCost handles POST /premium/estimate.
func (h *InsuranceHandler) EstimateFleetCost(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	estimate, err := h.svc.EstimateFleetCost(c.Request.Context(),
		req.TotalDevices, req.AverageRiskScore, req.AverageReputation, req.CoverageDistribution)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

// NetworkStats handles GET /network/stats.
func (h *InsuranceHandler) NetworkStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.NetworkStatistics(c.Request.Context()))
}
