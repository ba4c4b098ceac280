package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/application/ledger"
	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/application/sequence"
	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Distribuidora-api/pkg/config"
)

// Estas pruebas requieren una base vacía o de pruebas: TEST_DATABASE_URL=postgres://...
type env struct {
	pool       *pgxpool.Pool
	runner     *postgres.TxRunner
	ledger     *ledger.Ledger
	newProduct func(sku string) string
}

func setup(t *testing.T) env {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 20, LockTimeout: 3 * time.Second})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = postgres.Migrate(ctx, pool, zerolog.Nop())
	require.NoError(t, err)

	runner := postgres.NewTxRunner(pool)
	l := ledger.NewLedger(ledger.NewRunner(runner, ports.NopEmitter{}, nil), postgres.NewStockMovementRepository(pool), nil)

	newProduct := func(sku string) string {
		id := uuid.NewString()
		_, err := pool.Exec(ctx, `INSERT INTO products (id, sku, name, base_price) VALUES ($1, $2, $3, 10)`,
			id, sku+"-"+id[:8], "Producto "+sku)
		require.NoError(t, err)
		return id
	}
	return env{pool: pool, runner: runner, ledger: l, newProduct: newProduct}
}

func TestLedger_ConcurrentDeductsNeverOversell(t *testing.T) {
	e := setup(t)
	l := e.ledger
	ctx := context.Background()
	pid := e.newProduct("CONC")

	_, err := l.Receive(ctx, "test", ledger.Entry{ProductID: pid, Quantity: 10, ReferenceType: "TEST"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, rejected := 0, 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Deduct(ctx, "test", ledger.Entry{ProductID: pid, Quantity: 1, ReferenceType: "TEST"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 5, rejected)

	rec, err := l.Reconcile(ctx, pid)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
	assert.Equal(t, 0, rec.Cached)
}

func TestSequence_NextInsideTransaction(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	prefix := "ZZ" + uuid.NewString()[:6] + "-20260601-"

	gen := sequence.NewGenerator(sequence.Prefixes{})
	var last string
	var num string
	err := e.runner.Run(ctx, func(r repository.Repos) error {
		var err error
		if last, err = r.Sequences.LatestWithPrefix(ctx, repository.SequenceReturn, prefix); err != nil {
			return err
		}
		num, err = gen.Next(ctx, r.Sequences, repository.SequenceOrder, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, last)
	assert.Regexp(t, `^ORD-20260601-\d{4}$`, num)
}

func TestLookups_StatusIDsAreSeeded(t *testing.T) {
	e := setup(t)
	l := postgres.NewLookups(e.pool)

	id, err := l.OrderStatusID(context.Background(), entity.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000103", id)

	_, err = l.OrderStatusID(context.Background(), entity.OrderStatus("ARCHIVED"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
