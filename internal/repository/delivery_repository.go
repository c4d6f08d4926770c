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

// deliveryRepository implements DeliveryRepository using PostgreSQL.
type deliveryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDeliveryRepository creates a new PostgreSQL-backed delivery repository.
func NewDeliveryRepository(pool *pgxpool.Pool, logger zerolog.Logger) DeliveryRepository {
	return &deliveryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "delivery").Logger(),
	}
}

// statusColumn maps a delivery type to its provider-specific status
// column. Every caller goes through this map; an unknown type is a
// programmer error surfaced as a plain error.
func statusColumn(t model.DeliveryType) (string, error) {
	switch t {
	case model.DeliveryTypePlatform:
		return "platform_status", nil
	case model.DeliveryTypeLocker:
		return "locker_status", nil
	case model.DeliveryTypePostal:
		return "postal_status", nil
	}
	return "", fmt.Errorf("unknown delivery type: %s", t)
}

// Create inserts a delivery record.
func (r *deliveryRepository) Create(ctx context.Context, d *model.Delivery) error {
	query := `
		INSERT INTO deliveries (id, order_id, type, delivery_id, url,
			platform_status, locker_status, postal_status, reason,
			pickup_point_id, tariff_code, tariff_name, mail_type, postal_index,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.OrderID, d.Type, d.DeliveryID, d.URL,
		d.PlatformStatus, d.LockerStatus, d.PostalStatus, d.Reason,
		d.PickupPointID, d.TariffCode, d.TariffName, d.MailType, d.PostalIndex,
		d.CreatedAt, d.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", d.OrderID.String()).
			Msg("failed to create delivery")
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	r.logger.Debug().
		Str("order_id", d.OrderID.String()).
		Str("type", d.Type.String()).
		Msg("delivery created successfully")

	return nil
}

const deliveryColumns = `id, order_id, type, delivery_id, url,
	platform_status, locker_status, postal_status, reason,
	pickup_point_id, tariff_code, tariff_name, mail_type, postal_index,
	created_at, updated_at`

func scanDelivery(row pgx.Row, d *model.Delivery) error {
	return row.Scan(
		&d.ID, &d.OrderID, &d.Type, &d.DeliveryID, &d.URL,
		&d.PlatformStatus, &d.LockerStatus, &d.PostalStatus, &d.Reason,
		&d.PickupPointID, &d.TariffCode, &d.TariffName, &d.MailType, &d.PostalIndex,
		&d.CreatedAt, &d.UpdatedAt,
	)
}

// GetByOrderID retrieves the delivery booked for an order.
func (r *deliveryRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE order_id = $1`

	var d model.Delivery
	err := scanDelivery(r.pool.QueryRow(ctx, query, orderID), &d)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query delivery")
		return nil, fmt.Errorf("failed to query delivery: %w", err)
	}

	return &d, nil
}

// GetByExternalID retrieves a delivery by the provider's id.
func (r *deliveryRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE delivery_id = $1`

	var d model.Delivery
	err := scanDelivery(r.pool.QueryRow(ctx, query, externalID), &d)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("delivery_id", externalID).Msg("delivery not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("delivery_id", externalID).Msg("failed to query delivery")
		return nil, fmt.Errorf("failed to query delivery: %w", err)
	}

	return &d, nil
}

// ApplyStatus updates the provider-specific status column. The update
// is conditional on the status actually changing, so re-delivered
// callbacks report applied=false and leave updated_at untouched.
func (r *deliveryRepository) ApplyStatus(ctx context.Context, id uuid.UUID, t model.DeliveryType, status string, reason *string) (bool, error) {
	column, err := statusColumn(t)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		UPDATE deliveries
		SET %s = $2, reason = COALESCE($3, reason), updated_at = $4
		WHERE id = $1 AND (%s IS DISTINCT FROM $2)
	`, column, column)

	tag, err := r.pool.Exec(ctx, query, id, status, reason, time.Now())
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("delivery_id", id.String()).
			Str("status", status).
			Msg("failed to apply delivery status")
		return false, fmt.Errorf("failed to apply delivery status: %w", err)
	}

	applied := tag.RowsAffected() == 1
	if applied {
		r.logger.Info().
			Str("delivery_id", id.String()).
			Str("status", status).
			Msg("delivery status applied")
	} else {
		r.logger.Debug().
			Str("delivery_id", id.String()).
			Str("status", status).
			Msg("delivery status unchanged")
	}
	return applied, nil
}
