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

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, delivery_price, promotional_id, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.UserID, order.Status, order.DeliveryPrice,
		order.PromotionalID, order.Comment, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderPositions inserts position snapshots within the provided transaction.
func (r *orderRepository) CreateOrderPositions(ctx context.Context, tx pgx.Tx, positions []model.OrderPosition) error {
	if len(positions) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_positions (id, order_id, item_id, price, discount, discount_price, count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(query, p.ID, p.OrderID, p.ItemID, p.Price, p.Discount, p.DiscountPrice, p.Count)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(positions); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", positions[i].OrderID.String()).
				Str("item_id", positions[i].ItemID.String()).
				Msg("failed to create order position")
			return fmt.Errorf("failed to create order position: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(positions)).
		Msg("order positions created successfully")

	return nil
}

const orderColumns = `id, user_id, status, delivery_price, promotional_id, comment, receipt_id, created_at, updated_at, deleted_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.DeliveryPrice, &o.PromotionalID,
		&o.Comment, &o.ReceiptID, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt,
	)
}

// GetByID retrieves an order with its positions.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, id), &order)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	positions, err := r.positionsByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Positions = positions

	return &order, nil
}

func (r *orderRepository) positionsByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderPosition, error) {
	query := `
		SELECT id, order_id, item_id, price, discount, discount_price, count, grade_id
		FROM order_positions
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order positions")
		return nil, fmt.Errorf("failed to query order positions: %w", err)
	}
	defer rows.Close()

	var positions []model.OrderPosition
	for rows.Next() {
		var p model.OrderPosition
		err := rows.Scan(&p.ID, &p.OrderID, &p.ItemID, &p.Price, &p.Discount, &p.DiscountPrice, &p.Count, &p.GradeID)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order position row")
			return nil, fmt.Errorf("failed to scan order position: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order position rows")
		return nil, fmt.Errorf("error iterating order positions: %w", err)
	}

	return positions, nil
}

// ListByUser retrieves a user's non-deleted orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query user orders")
		return nil, fmt.Errorf("failed to query user orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(rows)
}

// ListAll retrieves all orders with pagination, newest first.
func (r *orderRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(rows)
}

func (r *orderRepository) collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus applies a status transition conditionally on the current
// status. Concurrent webhook and admin updates on the same order race
// on this condition; only one wins.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, from, to, time.Now())
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	applied := tag.RowsAffected() == 1
	if applied {
		r.logger.Info().
			Str("order_id", id.String()).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("order status updated")
	}
	return applied, nil
}

// SetReceiptID records the fiscal receipt id once.
func (r *orderRepository) SetReceiptID(ctx context.Context, id uuid.UUID, receiptID string) error {
	query := `
		UPDATE orders
		SET receipt_id = $2, updated_at = $3
		WHERE id = $1 AND receipt_id IS NULL
	`

	_, err := r.pool.Exec(ctx, query, id, receiptID, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to set receipt id")
		return fmt.Errorf("failed to set receipt id: %w", err)
	}
	return nil
}

// SoftDelete marks the order deleted; the status is left untouched.
func (r *orderRepository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to soft-delete order")
		return false, fmt.Errorf("failed to soft-delete order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Restore clears the deletion mark; the status is left untouched.
func (r *orderRepository) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET deleted_at = NULL, updated_at = $2
		WHERE id = $1 AND deleted_at IS NOT NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to restore order")
		return false, fmt.Errorf("failed to restore order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
