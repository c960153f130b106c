//go:build integration

package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/xenking/storefront-relay/internal/domain/order"
	"github.com/xenking/storefront-relay/internal/reservation"
	"github.com/xenking/storefront-relay/internal/storage/postgres"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "relay",
				"POSTGRES_PASSWORD": "relay",
				"POSTGRES_DB":       "relay",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := ctr.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://relay:relay@%s:%s/relay?sslmode=disable", host, port.Port())
	pool, err = postgres.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

func newOrder(reference string) *order.Order {
	return &order.Order{
		ID: fmt.Sprintf("order-%s", reference),
		Items: []order.LineItem{
			{Name: "Waakye", Quantity: 2, Price: decimal.RequireFromString("25.00")},
		},
		Total:            decimal.RequireFromString("50.00"),
		PaymentReference: reference,
		Status:           order.StatusReceived,
	}
}

func TestOrderRepository_CreateReturnsStoredRow(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOrderRepository(pool)

	stored, err := repo.Create(ctx, newOrder("it-ref-1"))
	require.NoError(t, err)

	assert.Equal(t, "order-it-ref-1", stored.ID)
	assert.Equal(t, "it-ref-1", stored.PaymentReference)
	assert.Equal(t, order.StatusReceived, stored.Status)
	assert.False(t, stored.Seen)
	assert.False(t, stored.CreatedAt.IsZero(), "created_at must be database-assigned")
	assert.True(t, decimal.RequireFromString("50.00").Equal(stored.Total))
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Waakye", stored.Items[0].Name)
}

func TestOrderRepository_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOrderRepository(pool)

	first := newOrder("it-ref-dup")
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)

	second := newOrder("it-ref-dup")
	second.ID = "order-other"
	_, err = repo.Create(ctx, second)
	require.ErrorIs(t, err, order.ErrDuplicateReference)
}

func TestChangeFeed_DeliversReservationUpdates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, `
		INSERT INTO reservations (id, name, phone, status)
		VALUES ('it-res-1', 'Ama', '0244123456', 'pending')
		ON CONFLICT (id) DO UPDATE SET status = 'pending'`)
	require.NoError(t, err)

	events := make(chan reservation.ChangeEvent, 4)
	listener := reservation.NewListener(pool, zap.NewNop())

	listenCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = listener.Listen(listenCtx, events)
	}()

	// Give the LISTEN a moment to attach before firing the update.
	time.Sleep(time.Second)

	_, err = pool.Exec(ctx, `UPDATE reservations SET status = 'confirmed' WHERE id = 'it-res-1'`)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, "it-res-1", ev.ID)
		assert.Equal(t, "pending", ev.OldStatus)
		assert.Equal(t, "confirmed", ev.NewStatus)
		assert.Equal(t, "0244123456", ev.Phone)
	case <-ctx.Done():
		t.Fatal("no change event delivered before timeout")
	}

	stopListener()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop on context cancellation")
	}
}
