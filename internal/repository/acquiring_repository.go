package repository

import (
	"context"
	"fmt"
	"time"

	"gemstore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// acquiringRepository implements AcquiringRepository using PostgreSQL.
type acquiringRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAcquiringRepository creates a new PostgreSQL-backed acquiring repository.
func NewAcquiringRepository(pool *pgxpool.Pool, logger zerolog.Logger) AcquiringRepository {
	return &acquiringRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "acquiring").Logger(),
	}
}

// Create inserts a transaction in the created state.
func (r *acquiringRepository) Create(ctx context.Context, tx *model.AcquiringTransaction) error {
	query := `
		INSERT INTO acquiring_transactions (id, order_id, transaction_id, url, amount, status, type, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		tx.ID, tx.OrderID, tx.TransactionID, tx.URL, tx.Amount, tx.Status, tx.Type, tx.Reason,
		tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", tx.OrderID.String()).
			Msg("failed to create acquiring transaction")
		return fmt.Errorf("failed to create acquiring transaction: %w", err)
	}

	r.logger.Debug().
		Str("transaction_id", tx.ID.String()).
		Str("order_id", tx.OrderID.String()).
		Msg("acquiring transaction created")

	return nil
}

// SetLink records the processor's transaction id and payment url and
// moves the transaction from created to pending.
func (r *acquiringRepository) SetLink(ctx context.Context, id uuid.UUID, transactionID, url string) error {
	query := `
		UPDATE acquiring_transactions
		SET transaction_id = $2, url = $3, status = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`

	tag, err := r.pool.Exec(ctx, query, id, transactionID, url,
		model.TransactionStatusPending, time.Now(), model.TransactionStatusCreated)
	if err != nil {
		r.logger.Error().Err(err).Str("id", id.String()).Msg("failed to set payment link")
		return fmt.Errorf("failed to set payment link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s is not in created state", id)
	}
	return nil
}

// MarkFailed moves the transaction to failed with a reason.
func (r *acquiringRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE acquiring_transactions
		SET status = $2, reason = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, model.TransactionStatusFailed, reason, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("id", id.String()).Msg("failed to mark transaction failed")
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	return nil
}

// GetByTransactionID retrieves a transaction by the processor's id.
func (r *acquiringRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.AcquiringTransaction, error) {
	query := `
		SELECT id, order_id, transaction_id, url, amount, status, type, reason, created_at, updated_at
		FROM acquiring_transactions
		WHERE transaction_id = $1
	`

	var tx model.AcquiringTransaction
	err := r.pool.QueryRow(ctx, query, transactionID).Scan(
		&tx.ID, &tx.OrderID, &tx.TransactionID, &tx.URL, &tx.Amount,
		&tx.Status, &tx.Type, &tx.Reason, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("transaction_id", transactionID).Msg("acquiring transaction not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to query acquiring transaction")
		return nil, fmt.Errorf("failed to query acquiring transaction: %w", err)
	}

	return &tx, nil
}

// ApplyStatus moves a non-terminal transaction to the given status.
// Terminal rows are left untouched so webhook re-delivery is a no-op
// and updated_at stays unchanged.
func (r *acquiringRepository) ApplyStatus(ctx context.Context, id uuid.UUID, s model.TransactionStatus, reason *string) (bool, error) {
	query := `
		UPDATE acquiring_transactions
		SET status = $2, reason = COALESCE($3, reason), updated_at = $4
		WHERE id = $1 AND status NOT IN ($5, $6)
	`

	tag, err := r.pool.Exec(ctx, query, id, s, reason, time.Now(),
		model.TransactionStatusConfirmed, model.TransactionStatusFailed)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("id", id.String()).
			Str("status", s.String()).
			Msg("failed to apply transaction status")
		return false, fmt.Errorf("failed to apply transaction status: %w", err)
	}

	applied := tag.RowsAffected() == 1
	if applied {
		r.logger.Info().
			Str("id", id.String()).
			Str("status", s.String()).
			Msg("transaction status applied")
	} else {
		r.logger.Debug().
			Str("id", id.String()).
			Str("status", s.String()).
			Msg("transaction already terminal, status unchanged")
	}
	return applied, nil
}
