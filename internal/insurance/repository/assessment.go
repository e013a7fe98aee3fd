package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/securepremium/securepremium/internal/insurance/model"
)

// AssessmentRepository archives risk assessments.
type AssessmentRepository struct {
	db *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(db *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Create inserts a completed assessment.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.RiskAssessment) error {
	indicators, err := json.Marshal(a.ThreatIndicators)
	if err != nil {
		return fmt.Errorf("marshal threat_indicators: %w", err)
	}

	query := `
		INSERT INTO risk_assessments (
			id, device_id, assessed_at, overall_risk_score, behavioral_risk,
			hardware_risk, network_risk, anomaly_score, threat_indicators,
			confidence_level, category, assessment_version
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)`

	_, err = r.db.Exec(ctx, query,
		uuid.New(), a.DeviceID, a.Timestamp, a.OverallRiskScore, a.BehavioralRisk,
		a.HardwareRisk, a.NetworkRisk, a.AnomalyScore, indicators,
		a.ConfidenceLevel, a.Category, a.AssessmentVersion,
	)
	return err
}

// Latest returns the most recent assessment for a device.
func (r *AssessmentRepository) Latest(ctx context.Context, deviceID string) (*model.RiskAssessment, error) {
	query := `
		SELECT device_id, assessed_at, overall_risk_score, behavioral_risk,
		       hardware_risk, network_risk, anomaly_score, threat_indicators,
		       confidence_level, category, assessment_version
		FROM risk_assessments
		WHERE device_id = $1
		ORDER BY assessed_at DESC
		LIMIT 1`

	rows, err := r.db.Query(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return r.scan(rows)
}

// ListByDevice returns a device's assessment history, newest first.
func (r *AssessmentRepository) ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]*model.RiskAssessment, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT device_id, assessed_at, overall_risk_score, behavioral_risk,
		       hardware_risk, network_risk, anomaly_score, threat_indicators,
		       confidence_level, category, assessment_version
		FROM risk_assessments
		WHERE device_id = $1
		ORDER BY assessed_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, deviceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*model.RiskAssessment
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func (r *AssessmentRepository) scan(rows pgx.Rows) (*model.RiskAssessment, error) {
	var a model.RiskAssessment
	var indicatorsRaw []byte

	err := rows.Scan(
		&a.DeviceID, &a.Timestamp, &a.OverallRiskScore, &a.BehavioralRisk,
		&a.HardwareRisk, &a.NetworkRisk, &a.AnomalyScore, &indicatorsRaw,
		&a.ConfidenceLevel, &a.Category, &a.AssessmentVersion,
	)
	if err != nil {
		return nil, err
	}
	if len(indicatorsRaw) > 0 {
		if err := json.Unmarshal(indicatorsRaw, &a.ThreatIndicators); err != nil {
			return nil, fmt.Errorf("unmarshal threat_indicators: %w", err)
		}
	}
	return &a, nil
}
