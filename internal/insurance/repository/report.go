package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/securepremium/securepremium/internal/insurance/model"
)

// ReportRepository archives threat intelligence reports and the derived
// per-device reputation records.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a submitted threat report.
func (r *ReportRepository) Create(ctx context.Context, rep *model.ThreatIntelligenceReport) error {
	query := `
		INSERT INTO threat_reports (
			report_id, reporter_id, device_id, threat_type, severity,
			description, evidence_hash, reported_at, verified, verifications
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`

	_, err := r.db.Exec(ctx, query,
		rep.ReportID, rep.ReporterID, rep.DeviceID, rep.ThreatType, rep.Severity,
		rep.Description, rep.EvidenceHash, rep.Timestamp, rep.Verified, rep.Verifications,
	)
	return err
}

// UpdateVerification writes back a report's verification state.
func (r *ReportRepository) UpdateVerification(ctx context.Context, reportID string, verified bool, verifications int) error {
	query := `UPDATE threat_reports SET verified = $2, verifications = $3 WHERE report_id = $1`
	tag, err := r.db.Exec(ctx, query, reportID, verified, verifications)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByDevice returns all reports filed against a device, newest first.
func (r *ReportRepository) ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]*model.ThreatIntelligenceReport, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT report_id, reporter_id, device_id, threat_type, severity,
		       description, evidence_hash, reported_at, verified, verifications
		FROM threat_reports
		WHERE device_id = $1
		ORDER BY reported_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, deviceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*model.ThreatIntelligenceReport
	for rows.Next() {
		rep, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// UpsertReputation writes the current reputation snapshot for a device.
func (r *ReportRepository) UpsertReputation(ctx context.Context, rec *model.ReputationRecord) error {
	query := `
		INSERT INTO reputation_records (
			device_id, reputation_score, reports_count, contributor_count,
			verification_level, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id) DO UPDATE SET
			reputation_score   = EXCLUDED.reputation_score,
			reports_count      = EXCLUDED.reports_count,
			contributor_count  = EXCLUDED.contributor_count,
			verification_level = EXCLUDED.verification_level,
			last_updated       = EXCLUDED.last_updated`

	_, err := r.db.Exec(ctx, query,
		rec.DeviceID, rec.ReputationScore, rec.ReportsCount, rec.ContributorCount,
		rec.VerificationLevel, rec.LastUpdated,
	)
	return err
}

func (r *ReportRepository) scan(rows pgx.Rows) (*model.ThreatIntelligenceReport, error) {
	var rep model.ThreatIntelligenceReport
	err := rows.Scan(
		&rep.ReportID, &rep.ReporterID, &rep.DeviceID, &rep.ThreatType, &rep.Severity,
		&rep.Description, &rep.EvidenceHash, &rep.Timestamp, &rep.Verified, &rep.Verifications,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
