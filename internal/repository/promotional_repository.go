package repository

import (
	"context"
	"fmt"

	"gemstore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// promotionalRepository implements PromotionalRepository using PostgreSQL.
type promotionalRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPromotionalRepository creates a new PostgreSQL-backed promotional repository.
func NewPromotionalRepository(pool *pgxpool.Pool, logger zerolog.Logger) PromotionalRepository {
	return &promotionalRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "promotional").Logger(),
	}
}

// GetByCode retrieves a promotional by its code. Soft-deleted rows are
// returned as well; applicability checks stay with the caller.
func (r *promotionalRepository) GetByCode(ctx context.Context, code string) (*model.Promotional, error) {
	query := `
		SELECT id, name, code, start_date, end_date, discount, discount_percent, free_delivery, active,
		       created_at, updated_at, deleted_at
		FROM promotionals
		WHERE code = $1
	`

	var p model.Promotional
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&p.ID, &p.Name, &p.Code, &p.Start, &p.End, &p.Discount, &p.DiscountPercent,
		&p.FreeDelivery, &p.Active, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("code", code).Msg("promotional not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query promotional")
		return nil, fmt.Errorf("failed to query promotional: %w", err)
	}

	return &p, nil
}

// GetByID retrieves a promotional by id, including soft-deleted rows.
func (r *promotionalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Promotional, error) {
	query := `
		SELECT id, name, code, start_date, end_date, discount, discount_percent, free_delivery, active,
		       created_at, updated_at, deleted_at
		FROM promotionals
		WHERE id = $1
	`

	var p model.Promotional
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Code, &p.Start, &p.End, &p.Discount, &p.DiscountPercent,
		&p.FreeDelivery, &p.Active, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("id", id.String()).Msg("failed to query promotional")
		return nil, fmt.Errorf("failed to query promotional: %w", err)
	}

	return &p, nil
}
