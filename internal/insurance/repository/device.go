package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/securepremium/securepremium/internal/insurance/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// DeviceRepository persists device profiles against PostgreSQL.
type DeviceRepository struct {
	db *pgxpool.Pool
}

// NewDeviceRepository creates a new DeviceRepository.
func NewDeviceRepository(db *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create inserts a new device profile row.
func (r *DeviceRepository) Create(ctx context.Context, p *model.DeviceProfile) error {
	hw, err := json.Marshal(p.HardwareInfo)
	if err != nil {
		return fmt.Errorf("marshal hardware_info: %w", err)
	}
	sys, err := json.Marshal(p.SystemInfo)
	if err != nil {
		return fmt.Errorf("marshal system_info: %w", err)
	}

	query := `
		INSERT INTO devices (
			id, device_id, fingerprint_hash, hardware_info, system_info,
			first_seen, last_seen, interaction_count, fingerprint_changes,
			trust_score, trust_category, is_active
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)`

	_, err = r.db.Exec(ctx, query,
		uuid.New(), p.DeviceID, p.FingerprintHash, hw, sys,
		p.FirstSeen, p.LastSeen, p.InteractionCount, p.FingerprintChanges,
		nil, "", p.Active,
	)
	return err
}

// GetByDeviceID retrieves a device profile by its external identifier.
func (r *DeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*model.DeviceProfile, error) {
	query := `
		SELECT device_id, fingerprint_hash, hardware_info, system_info,
		       first_seen, last_seen, interaction_count, fingerprint_changes,
		       is_active
		FROM devices
		WHERE device_id = $1`
	return r.scanOne(ctx, query, deviceID)
}

// List returns device profiles, optionally restricted to active ones,
// newest first.
func (r *DeviceRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*model.DeviceProfile, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT device_id, fingerprint_hash, hardware_info, system_info,
		       first_seen, last_seen, interaction_count, fingerprint_changes,
		       is_active
		FROM devices
		WHERE ($1 = false OR is_active = true)
		ORDER BY first_seen DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, activeOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*model.DeviceProfile
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// UpdateActivity writes back the interaction counters after an observation.
func (r *DeviceRepository) UpdateActivity(ctx context.Context, p *model.DeviceProfile) error {
	query := `
		UPDATE devices SET
			last_seen           = $2,
			interaction_count   = $3,
			fingerprint_changes = $4
		WHERE device_id = $1`
	tag, err := r.db.Exec(ctx, query, p.DeviceID, p.LastSeen, p.InteractionCount, p.FingerprintChanges)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScore stores the latest computed trust score and category.
func (r *DeviceRepository) UpdateScore(ctx context.Context, deviceID string, score float64, category model.DeviceScoreCategory) error {
	query := `UPDATE devices SET trust_score = $2, trust_category = $3, scored_at = $4 WHERE device_id = $1`
	tag, err := r.db.Exec(ctx, query, deviceID, score, category, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a device. History rows are retained.
func (r *DeviceRepository) Deactivate(ctx context.Context, deviceID string) error {
	query := `UPDATE devices SET is_active = false WHERE device_id = $1`
	tag, err := r.db.Exec(ctx, query, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSecurityEvent appends a security incident row for a device.
func (r *DeviceRepository) AddSecurityEvent(ctx context.Context, deviceID string, ev model.SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, device_id, event_type, severity, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query, uuid.New(), deviceID, ev.Type, ev.Severity, ev.Description, ev.Timestamp)
	return err
}

// AddLocation appends a geographic observation row for a device.
func (r *DeviceRepository) AddLocation(ctx context.Context, deviceID string, loc model.GeoObservation) error {
	query := `
		INSERT INTO device_locations (id, device_id, latitude, longitude, city, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query, uuid.New(), deviceID, loc.Latitude, loc.Longitude, loc.City, loc.Timestamp)
	return err
}

func (r *DeviceRepository) scanOne(ctx context.Context, query string, args ...any) (*model.DeviceProfile, error) {
	rows, err := r.db.Query(ctx, query, args...)
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

func (r *DeviceRepository) scan(rows pgx.Rows) (*model.DeviceProfile, error) {
	var p model.DeviceProfile
	var hwRaw, sysRaw []byte

	err := rows.Scan(
		&p.DeviceID, &p.FingerprintHash, &hwRaw, &sysRaw,
		&p.FirstSeen, &p.LastSeen, &p.InteractionCount, &p.FingerprintChanges,
		&p.Active,
	)
	if err != nil {
		return nil, err
	}
	if len(hwRaw) > 0 {
		if err := json.Unmarshal(hwRaw, &p.HardwareInfo); err != nil {
			return nil, fmt.Errorf("unmarshal hardware_info: %w", err)
		}
	}
	if len(sysRaw) > 0 {
		if err := json.Unmarshal(sysRaw, &p.SystemInfo); err != nil {
			return nil, fmt.Errorf("unmarshal system_info: %w", err)
		}
	}
	return &p, nil
}
