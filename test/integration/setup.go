package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// Seeded catalog and promo rows referenced across the tests.
var (
	ItemRingID     = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	ItemNecklaceID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	ItemEarringsID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	PromoSpringID  = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	PromoVIPID     = uuid.MustParse("55555555-5555-5555-5555-555555555555")
)

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	// Create connection pool
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Create schema
	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing. Mirrors
// migrations/schema.sql.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TYPE order_status AS ENUM (
			'NOT_PAID', 'NEW', 'ASSEMBLY', 'ASSEMBLED',
			'DELIVERING', 'DELIVERED', 'COMPLETED', 'CANCELED'
		);

		CREATE TYPE delivery_type AS ENUM ('platform', 'locker', 'postal');

		CREATE TYPE transaction_status AS ENUM ('created', 'pending', 'confirmed', 'failed');

		CREATE TABLE IF NOT EXISTS items (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price BIGINT NOT NULL CHECK (price >= 0),
			discount INTEGER NOT NULL DEFAULT 0 CHECK (discount >= 0 AND discount <= 100),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS promotionals (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			code VARCHAR(64) NOT NULL UNIQUE,
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP NOT NULL,
			discount BIGINT CHECK (discount > 0),
			discount_percent INTEGER CHECK (discount_percent > 0 AND discount_percent <= 100),
			free_delivery BOOLEAN NOT NULL DEFAULT FALSE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			status order_status NOT NULL DEFAULT 'NOT_PAID',
			delivery_price BIGINT NOT NULL DEFAULT 0,
			promotional_id UUID REFERENCES promotionals(id),
			comment TEXT,
			receipt_id VARCHAR(128),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);

		CREATE TABLE IF NOT EXISTS order_positions (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			item_id UUID NOT NULL REFERENCES items(id),
			price BIGINT NOT NULL,
			discount INTEGER NOT NULL DEFAULT 0,
			discount_price BIGINT NOT NULL DEFAULT 0,
			count INTEGER NOT NULL CHECK (count > 0),
			grade_id UUID
		);

		CREATE INDEX IF NOT EXISTS idx_order_positions_order_id ON order_positions(order_id);

		CREATE TABLE IF NOT EXISTS deliveries (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
			type delivery_type NOT NULL,
			delivery_id VARCHAR(255),
			url TEXT,
			platform_status VARCHAR(64),
			locker_status VARCHAR(64),
			postal_status VARCHAR(64),
			reason TEXT,
			pickup_point_id VARCHAR(64),
			tariff_code INTEGER,
			tariff_name VARCHAR(255),
			mail_type VARCHAR(64),
			postal_index VARCHAR(16),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_deliveries_delivery_id ON deliveries(delivery_id);

		CREATE TABLE IF NOT EXISTS acquiring_transactions (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			transaction_id VARCHAR(64),
			url TEXT,
			amount BIGINT NOT NULL CHECK (amount >= 0),
			status transaction_status NOT NULL DEFAULT 'created',
			type VARCHAR(20) NOT NULL,
			reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_acquiring_transactions_transaction_id ON acquiring_transactions(transaction_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedCatalog inserts test catalog items and one promotional.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	items := []struct {
		id       uuid.UUID
		name     string
		price    int64
		discount int
	}{
		{ItemRingID, "Gold Ring", 500000, 10},
		{ItemNecklaceID, "Silver Necklace", 320000, 0},
		{ItemEarringsID, "Pearl Earrings", 150000, 25},
	}

	for _, it := range items {
		_, err := pool.Exec(ctx,
			"INSERT INTO items (id, name, price, discount) VALUES ($1, $2, $3, $4)",
			it.id, it.name, it.price, it.discount,
		)
		if err != nil {
			t.Fatalf("failed to seed item %s: %v", it.name, err)
		}
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO promotionals (id, name, code, start_date, end_date, discount, active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		PromoSpringID, "Spring Sale", "SPRING1000",
		time.Now().Add(-24*time.Hour), time.Now().Add(24*time.Hour), int64(100000),
	)
	if err != nil {
		t.Fatalf("failed to seed flat promotional: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO promotionals (id, name, code, start_date, end_date, discount_percent, active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		PromoVIPID, "VIP Ten Percent", "VIP10",
		time.Now().Add(-24*time.Hour), time.Now().Add(24*time.Hour), 10,
	)
	if err != nil {
		t.Fatalf("failed to seed percent promotional: %v", err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"acquiring_transactions", "deliveries", "order_positions", "orders", "promotionals", "items"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
