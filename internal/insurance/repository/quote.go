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

// QuoteRepository archives generated premium quotes.
type QuoteRepository struct {
	db *pgxpool.Pool
}

// NewQuoteRepository creates a new QuoteRepository.
func NewQuoteRepository(db *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// Create inserts a quote and returns the assigned row id.
func (r *QuoteRepository) Create(ctx context.Context, q *model.PremiumQuote) (uuid.UUID, error) {
	terms, err := json.Marshal(q.Terms)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal terms: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO premium_quotes (
			id, device_id, annual_premium_usd, monthly_premium_usd,
			base_premium, risk_adjustment, reputation_discount,
			coverage_level, quoted_at, valid_until, terms
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11
		)`

	_, err = r.db.Exec(ctx, query,
		id, q.DeviceID, q.AnnualPremiumUSD, q.MonthlyPremiumUSD,
		q.BasePremium, q.RiskAdjustment, q.ReputationDiscount,
		q.CoverageLevel, q.QuoteTimestamp, q.QuoteValidUntil, terms,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID retrieves a quote by its row id.
func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PremiumQuote, error) {
	query := `
		SELECT device_id, annual_premium_usd, monthly_premium_usd,
		       base_premium, risk_adjustment, reputation_discount,
		       coverage_level, quoted_at, valid_until, terms
		FROM premium_quotes
		WHERE id = $1`

	rows, err := r.db.Query(ctx, query, id)
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

// ListByDevice returns a device's quotes, newest first.
func (r *QuoteRepository) ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]*model.PremiumQuote, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT device_id, annual_premium_usd, monthly_premium_usd,
		       base_premium, risk_adjustment, reputation_discount,
		       coverage_level, quoted_at, valid_until, terms
		FROM premium_quotes
		WHERE device_id = $1
		ORDER BY quoted_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, deviceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []*model.PremiumQuote
	for rows.Next() {
		q, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func (r *QuoteRepository) scan(rows pgx.Rows) (*model.PremiumQuote, error) {
	var q model.PremiumQuote
	var termsRaw []byte

	err := rows.Scan(
		&q.DeviceID, &q.AnnualPremiumUSD, &q.MonthlyPremiumUSD,
		&q.BasePremium, &q.RiskAdjustment, &q.ReputationDiscount,
		&q.CoverageLevel, &q.QuoteTimestamp, &q.QuoteValidUntil, &termsRaw,
	)
	if err != nil {
		return nil, err
	}
	if len(termsRaw) > 0 {
		if err := json.Unmarshal(termsRaw, &q.Terms); err != nil {
			return nil, fmt.Errorf("unmarshal terms: %w", err)
		}
	}
	return &q, nil
}
