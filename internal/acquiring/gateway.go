package acquiring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gemstore/internal/model"
	"gemstore/internal/notify"
	"gemstore/internal/receipt"
	"gemstore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Processor status codes carried by webhook callbacks.
const (
	webhookStatusConfirmed  = "CONFIRMED"
	webhookStatusRejected   = "REJECTED"
	webhookStatusCanceled   = "CANCELED"
	webhookStatusAuthorized = "AUTHORIZED"
)

// processorType identifies the acquiring provider on stored
// transactions.
const processorType = "card"

// receiptTimeout bounds the asynchronous fiscal-receipt request.
const receiptTimeout = 30 * time.Second

// Gateway coordinates payment-link creation and webhook reconciliation.
type Gateway struct {
	processor    ProcessorClient
	transactions repository.AcquiringRepository
	orders       repository.OrderRepository
	receipts     receipt.Issuer
	notifier     notify.Notifier
	logger       zerolog.Logger
}

// NewGateway creates an acquiring gateway. receipts may be nil when no
// fiscal integration is configured.
func NewGateway(
	processor ProcessorClient,
	transactions repository.AcquiringRepository,
	orders repository.OrderRepository,
	receipts receipt.Issuer,
	notifier notify.Notifier,
	logger zerolog.Logger,
) *Gateway {
	return &Gateway{
		processor:    processor,
		transactions: transactions,
		orders:       orders,
		receipts:     receipts,
		notifier:     notifier,
		logger:       logger.With().Str("component", "acquiring-gateway").Logger(),
	}
}

// CreatePaymentLink persists a transaction in the created state, asks
// the processor for a payment page and moves the transaction to
// pending. On processor rejection the transaction is marked failed and
// the error surfaces to the caller; the order stays NOT_PAID.
func (g *Gateway) CreatePaymentLink(ctx context.Context, order *model.Order, amount int64) (*model.AcquiringTransaction, error) {
	now := time.Now()
	tx := &model.AcquiringTransaction{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Amount:    amount,
		Status:    model.TransactionStatusCreated,
		Type:      processorType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := g.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	result, err := g.processor.Init(ctx, order.ID.String(), amount)
	if err != nil {
		if markErr := g.transactions.MarkFailed(ctx, tx.ID, err.Error()); markErr != nil {
			g.logger.Error().Err(markErr).Str("order_id", order.ID.String()).Msg("failed to mark transaction failed")
		}
		return nil, fmt.Errorf("payment link creation failed: %w", err)
	}

	if err := g.transactions.SetLink(ctx, tx.ID, result.TransactionID, result.URL); err != nil {
		return nil, err
	}

	tx.TransactionID = &result.TransactionID
	tx.URL = &result.URL
	tx.Status = model.TransactionStatusPending

	g.logger.Info().
		Str("order_id", order.ID.String()).
		Str("transaction_id", result.TransactionID).
		Int64("amount", amount).
		Msg("payment link created")

	return tx, nil
}

// webhookPayload is the processor's callback body. PaymentId arrives
// as a number from some processor versions and as a string from
// others.
type webhookPayload struct {
	TerminalKey string      `json:"TerminalKey"`
	OrderID     string      `json:"OrderId"`
	PaymentID   json.Number `json:"PaymentId"`
	Status      string      `json:"Status"`
	Amount      int64       `json:"Amount"`
	Message     string      `json:"Message"`
}

// HandleWebhook applies a processor callback. It is idempotent:
// re-delivery of an already-applied status is a no-op, and the
// NOT_PAID -> NEW order transition is attempted only while the order
// is exactly NOT_PAID, so a duplicate confirm can never double-apply
// it. Unknown transactions and malformed payloads are logged and
// swallowed, since the processor retries anything that is not a 200.
func (g *Gateway) HandleWebhook(ctx context.Context, payload []byte) error {
	var body webhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		g.logger.Warn().Err(err).Msg("malformed acquiring webhook payload")
		return nil
	}

	externalID := body.PaymentID.String()
	if externalID == "" {
		g.logger.Warn().Msg("acquiring webhook without payment id")
		return nil
	}

	logger := g.logger.With().Str("transaction_id", externalID).Str("status", body.Status).Logger()

	tx, err := g.transactions.GetByTransactionID(ctx, externalID)
	if err != nil {
		return err
	}
	if tx == nil {
		logger.Warn().Msg("acquiring webhook for unknown transaction")
		return nil
	}

	switch body.Status {
	case webhookStatusConfirmed:
		return g.confirm(ctx, tx, logger)
	case webhookStatusRejected, webhookStatusCanceled:
		reason := body.Message
		if reason == "" {
			reason = body.Status
		}
		_, err := g.transactions.ApplyStatus(ctx, tx.ID, model.TransactionStatusFailed, &reason)
		return err
	case webhookStatusAuthorized:
		// Intermediate state, nothing to reconcile yet.
		logger.Debug().Msg("payment authorized, awaiting confirmation")
		return nil
	default:
		logger.Debug().Msg("ignoring unhandled acquiring status")
		return nil
	}
}

func (g *Gateway) confirm(ctx context.Context, tx *model.AcquiringTransaction, logger zerolog.Logger) error {
	applied, err := g.transactions.ApplyStatus(ctx, tx.ID, model.TransactionStatusConfirmed, nil)
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug().Msg("duplicate confirmation, transaction already terminal")
	}

	// The conditional update succeeds at most once per order even
	// under duplicate delivery or a concurrent admin action.
	transitioned, err := g.orders.UpdateStatus(ctx, tx.OrderID, model.OrderStatusNotPaid, model.OrderStatusNew)
	if err != nil {
		return err
	}
	if !transitioned {
		logger.Debug().Str("order_id", tx.OrderID.String()).Msg("order already left NOT_PAID")
		return nil
	}

	logger.Info().Str("order_id", tx.OrderID.String()).Msg("payment confirmed, order moved to NEW")

	order, err := g.orders.GetByID(ctx, tx.OrderID)
	if err != nil || order == nil {
		logger.Error().Err(err).Str("order_id", tx.OrderID.String()).Msg("failed to load order after confirmation")
		return nil
	}

	g.notifier.Notify(ctx, order.UserID, notify.EventPaymentConfirmed, map[string]any{
		"orderId": order.ID,
		"amount":  tx.Amount,
	})

	if g.receipts != nil {
		amount := tx.Amount
		go func(o model.Order) {
			rctx, cancel := context.WithTimeout(context.Background(), receiptTimeout)
			defer cancel()
			g.receipts.Issue(rctx, &o, amount)
		}(*order)
	}

	return nil
}
