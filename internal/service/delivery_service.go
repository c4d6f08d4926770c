package service

import (
	"context"

	"gemstore/internal/delivery"
	"gemstore/internal/model"
	"gemstore/internal/notify"
	"gemstore/internal/repository"

	"github.com/rs/zerolog"
)

type deliveryService struct {
	registry   *delivery.Registry
	deliveries repository.DeliveryRepository
	orders     repository.OrderRepository
	notifier   notify.Notifier
	logger     zerolog.Logger
}

// NewDeliveryService creates the delivery quote and callback service.
func NewDeliveryService(
	registry *delivery.Registry,
	deliveries repository.DeliveryRepository,
	orders repository.OrderRepository,
	notifier notify.Notifier,
	logger zerolog.Logger,
) DeliveryService {
	return &deliveryService{
		registry:   registry,
		deliveries: deliveries,
		orders:     orders,
		notifier:   notifier,
		logger:     logger.With().Str("service", "delivery").Logger(),
	}
}

// Quote implements DeliveryService.
func (s *deliveryService) Quote(ctx context.Context, t model.DeliveryType, req delivery.QuoteRequest) ([]delivery.Quote, error) {
	adapter, err := s.registry.Resolve(t)
	if err != nil {
		return nil, err
	}
	return adapter.Quote(ctx, req)
}

// ApplyCallback implements DeliveryService. Repeated delivery of the
// same callback is a no-op thanks to the conditional status update;
// unknown shipments are logged and swallowed so the provider stops
// retrying.
func (s *deliveryService) ApplyCallback(ctx context.Context, t model.DeliveryType, payload []byte) error {
	adapter, err := s.registry.Resolve(t)
	if err != nil {
		return err
	}

	update, err := adapter.ParseCallback(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("type", t.String()).Msg("malformed delivery callback")
		return nil
	}
	if update.ExternalID == "" {
		s.logger.Warn().Str("type", t.String()).Msg("delivery callback without shipment id")
		return nil
	}

	logger := s.logger.With().
		Str("type", t.String()).
		Str("external_id", update.ExternalID).
		Str("status", update.Status).
		Logger()

	record, err := s.deliveries.GetByExternalID(ctx, update.ExternalID)
	if err != nil {
		return err
	}
	if record == nil {
		logger.Warn().Msg("delivery callback for unknown shipment")
		return nil
	}

	var reason *string
	if update.Reason != "" {
		reason = &update.Reason
	}

	applied, err := s.deliveries.ApplyStatus(ctx, record.ID, t, update.Status, reason)
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug().Msg("delivery status already applied")
		return nil
	}

	logger.Info().Msg("delivery status updated")

	if !update.Terminal {
		return nil
	}
	return s.finishDelivery(ctx, record, update, logger)
}

// finishDelivery moves the order along when the shipment reaches a
// terminal provider status.
func (s *deliveryService) finishDelivery(ctx context.Context, record *model.Delivery, update delivery.StatusUpdate, logger zerolog.Logger) error {
	order, err := s.orders.GetByID(ctx, record.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		logger.Error().Str("order_id", record.OrderID.String()).Msg("delivery record points at missing order")
		return nil
	}

	if !update.Delivered {
		logger.Warn().Str("order_id", order.ID.String()).Str("reason", update.Reason).Msg("shipment failed")
		s.notifier.Notify(ctx, order.UserID, notify.EventDeliveryFailed, map[string]any{
			"orderId": order.ID,
			"reason":  update.Reason,
		})
		return nil
	}

	ok, err := s.orders.UpdateStatus(ctx, order.ID, model.OrderStatusDelivering, model.OrderStatusDelivered)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug().Str("order_id", order.ID.String()).Str("order_status", order.Status.String()).Msg("order not in DELIVERING, transition skipped")
		return nil
	}

	logger.Info().Str("order_id", order.ID.String()).Msg("order delivered")
	s.notifier.Notify(ctx, order.UserID, notify.EventOrderDelivered, map[string]any{"orderId": order.ID})
	return nil
}
