package service

import (
	"context"
	"fmt"
	"time"

	"gemstore/internal/delivery"
	"gemstore/internal/model"
	"gemstore/internal/notify"
	"gemstore/internal/pricing"
	"gemstore/internal/repository"
	"gemstore/internal/status"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultWeightGrams is the per-unit shipment weight used for carrier
// bookings; catalog items carry no weight of their own.
const defaultWeightGrams = 300

type orderService struct {
	orders     repository.OrderRepository
	positions  repository.ItemRepository
	promos     repository.PromotionalRepository
	deliveries repository.DeliveryRepository
	registry   *delivery.Registry
	gateway    PaymentGateway
	notifier   notify.Notifier
	logger     zerolog.Logger
}

// NewOrderService creates the checkout and order lifecycle service.
func NewOrderService(
	orders repository.OrderRepository,
	items repository.ItemRepository,
	promos repository.PromotionalRepository,
	deliveries repository.DeliveryRepository,
	registry *delivery.Registry,
	gateway PaymentGateway,
	notifier notify.Notifier,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orders:     orders,
		positions:  items,
		promos:     promos,
		deliveries: deliveries,
		registry:   registry,
		gateway:    gateway,
		notifier:   notifier,
		logger:     logger.With().Str("service", "order").Logger(),
	}
}

// Create implements OrderService.
func (s *orderService) Create(ctx context.Context, userID uuid.UUID, req *model.OrderRequest) (*model.OrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, model.ErrInvalidCount
	}
	for _, item := range req.Items {
		if item.Count <= 0 {
			return nil, model.ErrInvalidCount
		}
	}
	if !req.Delivery.Type.Valid() {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Unknown delivery type")
	}

	promo, err := s.resolvePromo(ctx, req.PromoCode)
	if err != nil {
		if _, ok := err.(*model.DomainError); ok {
			return &model.OrderResponse{Code: model.CheckoutCodePromoInvalid, Message: err.Error()}, nil
		}
		return nil, err
	}

	positions, err := s.snapshotPositions(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &model.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        status.Initial,
		DeliveryPrice: req.Delivery.Price,
		Comment:       req.Comment,
		Positions:     positions,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if promo != nil {
		order.PromotionalID = &promo.ID
	}
	for i := range positions {
		positions[i].ID = uuid.New()
		positions[i].OrderID = order.ID
	}

	if err := s.persistOrder(ctx, order, positions); err != nil {
		return nil, err
	}

	logger := s.logger.With().Str("order_id", order.ID.String()).Logger()
	logger.Info().Str("user_id", userID.String()).Int("positions", len(positions)).Msg("order created")

	if err := s.bookDelivery(ctx, order, req); err != nil {
		logger.Warn().Err(err).Str("type", req.Delivery.Type.String()).Msg("delivery booking failed, order kept unpaid")
		return &model.OrderResponse{
			Code:    model.CheckoutCodeDeliveryUnavailable,
			Message: "Delivery service is unavailable, try paying later",
			Order:   order,
		}, nil
	}

	total := pricing.OrderTotal(positions, order.DeliveryPrice, promo)
	tx, err := s.gateway.CreatePaymentLink(ctx, order, total)
	if err != nil {
		logger.Warn().Err(err).Msg("payment link creation failed, order kept unpaid")
		return &model.OrderResponse{
			Code:    model.CheckoutCodePaymentUnavailable,
			Message: "Payment service is unavailable, try paying later",
			Order:   order,
		}, nil
	}

	return &model.OrderResponse{Code: model.CheckoutCodeOK, Order: order, URL: tx.URL}, nil
}

// resolvePromo validates the promo code when one was supplied. A nil
// result with nil error means no promo applies.
func (s *orderService) resolvePromo(ctx context.Context, code *string) (*model.Promotional, error) {
	if code == nil || *code == "" {
		return nil, nil
	}
	promo, err := s.promos.GetByCode(ctx, *code)
	if err != nil {
		return nil, err
	}
	if promo == nil || promo.DeletedAt != nil || !promo.Active {
		return nil, model.ErrPromoInvalid
	}
	if !promo.Applicable(time.Now()) {
		return nil, model.ErrPromoExpired
	}
	return promo, nil
}

// snapshotPositions freezes the authoritative catalog prices into order
// positions.
func (s *orderService) snapshotPositions(ctx context.Context, items []model.OrderItemRequest) ([]model.OrderPosition, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID)
	}

	catalog, err := s.positions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Item, len(catalog))
	for _, item := range catalog {
		byID[item.ID] = item
	}

	positions := make([]model.OrderPosition, 0, len(items))
	for _, line := range items {
		item, ok := byID[line.ItemID]
		if !ok {
			return nil, model.ErrItemNotFound
		}
		positions = append(positions, model.OrderPosition{
			ItemID:        item.ID,
			Price:         item.Price,
			Discount:      item.Discount,
			DiscountPrice: item.DiscountPrice(),
			Count:         line.Count,
		})
	}
	return positions, nil
}

// persistOrder writes the order and its positions in one transaction.
func (s *orderService) persistOrder(ctx context.Context, order *model.Order, positions []model.OrderPosition) error {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.orders.CreateOrder(ctx, tx, order); err != nil {
		return err
	}
	if err := s.orders.CreateOrderPositions(ctx, tx, positions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// bookDelivery registers the shipment with the selected provider and
// persists the booking.
func (s *orderService) bookDelivery(ctx context.Context, order *model.Order, req *model.OrderRequest) error {
	adapter, err := s.registry.Resolve(req.Delivery.Type)
	if err != nil {
		return err
	}

	var weight int
	for _, p := range order.Positions {
		weight += p.Count * defaultWeightGrams
	}

	recipient := delivery.Recipient{}
	if req.RecipientName != nil {
		recipient.Name = *req.RecipientName
	}
	if req.Phone != nil {
		recipient.Phone = *req.Phone
	}

	booking, err := adapter.CreateBooking(ctx, delivery.BookingRequest{
		OrderID:       order.ID,
		Type:          req.Delivery.Type,
		Address:       req.Delivery.Address,
		PostalIndex:   req.Delivery.PostalIndex,
		PickupPointID: req.Delivery.PickupPointID,
		TariffCode:    req.Delivery.TariffCode,
		Amount:        pricing.Subtotal(order.Positions),
		WeightGrams:   weight,
		Recipient:     recipient,
	})
	if err != nil {
		return err
	}

	now := time.Now()
	record := &model.Delivery{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Type:      req.Delivery.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if booking.ExternalID != "" {
		record.DeliveryID = &booking.ExternalID
	}
	if booking.TrackingURL != "" {
		record.URL = &booking.TrackingURL
	}
	if booking.TariffCode != 0 {
		record.TariffCode = &booking.TariffCode
	}
	if booking.TariffName != "" {
		record.TariffName = &booking.TariffName
	}
	if booking.MailType != "" {
		record.MailType = &booking.MailType
	}
	if req.Delivery.PickupPointID != "" {
		record.PickupPointID = &req.Delivery.PickupPointID
	}
	if req.Delivery.PostalIndex != "" {
		record.PostalIndex = &req.Delivery.PostalIndex
	}
	if booking.RawStatus != "" {
		raw := booking.RawStatus
		switch req.Delivery.Type {
		case model.DeliveryTypePlatform:
			record.PlatformStatus = &raw
		case model.DeliveryTypeLocker:
			record.LockerStatus = &raw
		case model.DeliveryTypePostal:
			record.PostalStatus = &raw
		}
	}

	return s.deliveries.Create(ctx, record)
}

// Pay implements OrderService.
func (s *orderService) Pay(ctx context.Context, userID, orderID uuid.UUID) (*model.OrderResponse, error) {
	order, err := s.ownOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusNotPaid {
		return nil, model.NewDomainError(model.ErrCodeForbidden, "Order is already paid")
	}

	var promo *model.Promotional
	if order.PromotionalID != nil {
		promo, err = s.promos.GetByID(ctx, *order.PromotionalID)
		if err != nil {
			return nil, err
		}
	}

	total := pricing.OrderTotal(order.Positions, order.DeliveryPrice, promo)
	tx, err := s.gateway.CreatePaymentLink(ctx, order, total)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("payment link creation failed")
		return &model.OrderResponse{
			Code:    model.CheckoutCodePaymentUnavailable,
			Message: "Payment service is unavailable, try paying later",
			Order:   order,
		}, nil
	}

	return &model.OrderResponse{Code: model.CheckoutCodeOK, Order: order, URL: tx.URL}, nil
}

// Cancel implements OrderService.
func (s *orderService) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.ownOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !status.UserCancelable(order.Status) {
		return nil, model.ErrCancelNotAllowed
	}

	ok, err := s.orders.UpdateStatus(ctx, orderID, order.Status, model.OrderStatusCanceled)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Status moved between the read and the update.
		return nil, model.ErrCancelNotAllowed
	}
	order.Status = model.OrderStatusCanceled

	s.logger.Info().Str("order_id", orderID.String()).Msg("order canceled by customer")
	s.notifier.Notify(ctx, order.UserID, notify.EventOrderCanceled, map[string]any{"orderId": order.ID})

	return order, nil
}

// GetByID implements OrderService.
func (s *orderService) GetByID(ctx context.Context, userID uuid.UUID, admin bool, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || (order.DeletedAt != nil && !admin) {
		return nil, model.ErrOrderNotFound
	}
	if !admin && order.UserID != userID {
		return nil, model.ErrForeignOrder
	}
	return order, nil
}

// ListOwn implements OrderService.
func (s *orderService) ListOwn(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll implements OrderService.
func (s *orderService) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListAll(ctx, limit, offset)
}

// UpdateStatus implements OrderService.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, to model.OrderStatus) (*model.Order, error) {
	if !to.Valid() {
		return nil, model.NewDomainError(model.ErrCodeInvalidTransition, fmt.Sprintf("Unknown status %q", to))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if err := status.Validate(order.Status, to); err != nil {
		return nil, err
	}

	ok, err := s.orders.UpdateStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent transition won; report against the fresh state.
		fresh, ferr := s.orders.GetByID(ctx, orderID)
		if ferr == nil && fresh != nil {
			return nil, &model.InvalidTransitionError{From: fresh.Status, To: to}
		}
		return nil, &model.InvalidTransitionError{From: order.Status, To: to}
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from", order.Status.String()).
		Str("to", to.String()).
		Msg("order status updated")

	order.Status = to
	return order, nil
}

// SoftDelete implements OrderService.
func (s *orderService) SoftDelete(ctx context.Context, orderID uuid.UUID) error {
	ok, err := s.orders.SoftDelete(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrOrderNotFound
	}
	return nil
}

// Restore implements OrderService.
func (s *orderService) Restore(ctx context.Context, orderID uuid.UUID) error {
	ok, err := s.orders.Restore(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrOrderNotFound
	}
	return nil
}

func (s *orderService) ownOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.DeletedAt != nil {
		return nil, model.ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, model.ErrForeignOrder
	}
	return order, nil
}
