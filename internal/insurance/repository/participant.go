package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/securepremium/securepremium/internal/insurance/model"
)

// ParticipantRepository persists network participants.
type ParticipantRepository struct {
	db *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(db *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Create inserts a participant. Conflicting ids are ignored so replayed
// registrations stay idempotent.
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) error {
	query := `
		INSERT INTO participants (participant_id, joined_at)
		VALUES ($1, $2)
		ON CONFLICT (participant_id) DO NOTHING`
	_, err := r.db.Exec(ctx, query, p.ParticipantID, p.JoinedAt)
	return err
}

// List returns all participants, oldest first.
func (r *ParticipantRepository) List(ctx context.Context) ([]*model.Participant, error) {
	query := `SELECT participant_id, joined_at FROM participants ORDER BY joined_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ParticipantID, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}
