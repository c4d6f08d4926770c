package service

import (
	"context"
	"sync"

	"gemstore/internal/delivery"
	"gemstore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) CreateOrderPositions(ctx context.Context, tx pgx.Tx, positions []model.OrderPosition) error {
	args := m.Called(ctx, tx, positions)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *mockOrderRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) SetReceiptID(ctx context.Context, id uuid.UUID, receiptID string) error {
	args := m.Called(ctx, id, receiptID)
	return args.Error(0)
}

func (m *mockOrderRepo) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockItemRepo struct {
	mock.Mock
}

func (m *mockItemRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Item, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Item), args.Error(1)
}

type mockPromoRepo struct {
	mock.Mock
}

func (m *mockPromoRepo) GetByCode(ctx context.Context, code string) (*model.Promotional, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promotional), args.Error(1)
}

func (m *mockPromoRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Promotional, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promotional), args.Error(1)
}

type mockDeliveryRepo struct {
	mock.Mock
}

func (m *mockDeliveryRepo) Create(ctx context.Context, d *model.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDeliveryRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Delivery, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Delivery), args.Error(1)
}

func (m *mockDeliveryRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Delivery, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Delivery), args.Error(1)
}

func (m *mockDeliveryRepo) ApplyStatus(ctx context.Context, id uuid.UUID, t model.DeliveryType, status string, reason *string) (bool, error) {
	args := m.Called(ctx, id, t, status, reason)
	return args.Bool(0), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePaymentLink(ctx context.Context, order *model.Order, amount int64) (*model.AcquiringTransaction, error) {
	args := m.Called(ctx, order, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AcquiringTransaction), args.Error(1)
}

// fakeAdapter implements delivery.Adapter with overridable behavior.
type fakeAdapter struct {
	typ      model.DeliveryType
	quote    func(ctx context.Context, req delivery.QuoteRequest) ([]delivery.Quote, error)
	book     func(ctx context.Context, req delivery.BookingRequest) (delivery.Booking, error)
	callback func(payload []byte) (delivery.StatusUpdate, error)
}

func (f *fakeAdapter) Type() model.DeliveryType { return f.typ }

func (f *fakeAdapter) Quote(ctx context.Context, req delivery.QuoteRequest) ([]delivery.Quote, error) {
	return f.quote(ctx, req)
}

func (f *fakeAdapter) CreateBooking(ctx context.Context, req delivery.BookingRequest) (delivery.Booking, error) {
	return f.book(ctx, req)
}

func (f *fakeAdapter) ParseCallback(payload []byte) (delivery.StatusUpdate, error) {
	return f.callback(payload)
}

// recordingNotifier captures emitted events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// stubTx satisfies pgx.Tx for transaction plumbing in unit tests. Only
// Commit and Rollback are tracked.
type stubTx struct {
	committed  bool
	rolledBack bool
}

func (t *stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *stubTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *stubTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *stubTx) Conn() *pgx.Conn { return nil }
