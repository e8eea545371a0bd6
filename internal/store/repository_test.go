package store_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/littletreat/internal/config"
	"github.com/vasiliy-maslov/littletreat/internal/db"
	"github.com/vasiliy-maslov/littletreat/internal/order"
	"github.com/vasiliy-maslov/littletreat/internal/store"
)

var testDB *pgxpool.Pool

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestMain connects to the database named by DB_HOST_TEST and friends. When
// DB_HOST_TEST is unset the repository tests are skipped and the rest of the
// package still runs.
func TestMain(m *testing.M) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		os.Exit(m.Run())
	}

	cfg := config.PostgresConfig{
		Host:     host,
		Port:     envOr("DB_PORT_TEST", "5432"),
		User:     envOr("DB_USER_TEST", "postgres"),
		Password: envOr("DB_PASSWORD_TEST", "postgres"),
		DBName:   envOr("DB_NAME_TEST", "littletreat_test"),
		SSLMode:  envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns: 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	postgres, err := db.New(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("Failed to connect to test database")
	}
	testDB = postgres.Pool
	log.Info().Msg("Test Database connection established.")

	exitCode := m.Run()

	postgres.Close()
	os.Exit(exitCode)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("DB_HOST_TEST is not set")
	}
	t.Cleanup(func() {
		_, err := testDB.Exec(context.Background(), "TRUNCATE TABLE orders RESTART IDENTITY")
		require.NoError(t, err, "failed to truncate orders table")
	})
}

func newRow(sheet, orderID string, createdAt time.Time) *store.Row {
	return &store.Row{
		Sheet:     sheet,
		OrderID:   orderID,
		Flat:      "4B",
		Apartment: "Green Meadows",
		Items:     "Samosa (4 pcs)",
		Total:     "₹80",
		Status:    order.StatusPending.String(),
		CreatedAt: createdAt,
	}
}

func TestRepository_AppendAndList(t *testing.T) {
	requireDB(t)
	repo := store.NewRepository(testDB, 5*time.Second)
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)

	for i, id := range []string{"#LT1", "#LT2", "#LT3"} {
		inserted, err := repo.Append(ctx, newRow(order.SheetFood, id, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		require.True(t, inserted)
	}
	_, err := repo.Append(ctx, newRow(order.SheetChocolate, "#CHO1", base))
	require.NoError(t, err)

	rows, err := repo.List(ctx, order.SheetFood)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "#LT3", rows[0].OrderID, "newest first")
	assert.Equal(t, 4, rows[0].RowIndex)
	assert.Equal(t, "#LT1", rows[2].OrderID)
	assert.Equal(t, 2, rows[2].RowIndex, "first data row sits under the header")
	assert.True(t, rows[2].CreatedAt.Equal(base))

	chocolate, err := repo.List(ctx, order.SheetChocolate)
	require.NoError(t, err)
	require.Len(t, chocolate, 1)
	assert.Equal(t, 2, chocolate[0].RowIndex)
}

func TestRepository_AppendDuplicateOrderID(t *testing.T) {
	requireDB(t)
	repo := store.NewRepository(testDB, 5*time.Second)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Append(ctx, newRow(order.SheetFood, "#LT1", now))
	require.NoError(t, err)

	_, err = repo.Append(ctx, newRow(order.SheetFood, "#LT1", now))
	require.ErrorIs(t, err, order.ErrDuplicateOrderID)

	// The same id in another sheet is a different order.
	_, err = repo.Append(ctx, newRow(order.SheetChocolate, "#LT1", now))
	require.NoError(t, err)
}

func TestRepository_AppendIdempotentSubmission(t *testing.T) {
	requireDB(t)
	repo := store.NewRepository(testDB, 5*time.Second)
	ctx := context.Background()

	submission := uuid.Must(uuid.NewV4())
	first := newRow(order.SheetFood, "#LT1", time.Now().UTC())
	first.SubmissionID = uuid.NullUUID{UUID: submission, Valid: true}

	inserted, err := repo.Append(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	// A retry after a lost response may even carry a regenerated order id.
	retry := newRow(order.SheetFood, "#LT2", time.Now().UTC())
	retry.SubmissionID = first.SubmissionID
	inserted, err = repo.Append(ctx, retry)
	require.NoError(t, err)
	assert.False(t, inserted)

	rows, err := repo.List(ctx, order.SheetFood)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "#LT1", rows[0].OrderID)
}

func TestRepository_UpdateStatus(t *testing.T) {
	requireDB(t)
	repo := store.NewRepository(testDB, 5*time.Second)
	ctx := context.Background()

	_, err := repo.Append(ctx, newRow(order.SheetChocolate, "#CHO1", time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, order.SheetChocolate, "#CHO1", "Dispatched"))

	rows, err := repo.List(ctx, order.SheetChocolate)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dispatched", rows[0].Status)

	err = repo.UpdateStatus(ctx, order.SheetFood, "#CHO1", "Dispatched")
	require.ErrorIs(t, err, order.ErrOrderNotFound, "status updates are scoped to the sheet")
}

func TestRepository_LockTimeout(t *testing.T) {
	requireDB(t)
	repo := store.NewRepository(testDB, 200*time.Millisecond)
	ctx := context.Background()

	holder, err := testDB.Begin(ctx)
	require.NoError(t, err)
	_, err = holder.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "orders:"+order.SheetFood)
	require.NoError(t, err)

	_, err = repo.Append(ctx, newRow(order.SheetFood, "#LT1", time.Now().UTC()))
	require.ErrorIs(t, err, store.ErrLockUnavailable)

	require.NoError(t, holder.Rollback(ctx))

	_, err = repo.Append(ctx, newRow(order.SheetFood, "#LT1", time.Now().UTC()))
	require.NoError(t, err, "the write succeeds once the lock is released")
}

func TestRepository_ConcurrentAppends(t *testing.T) {
	requireDB(t)
	repo := store.NewRepository(testDB, 5*time.Second)
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := order.NewID("LT", time.Now(), i)
			_, err := repo.Append(ctx, newRow(order.SheetFood, id, time.Now().UTC()))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	rows, err := repo.List(ctx, order.SheetFood)
	require.NoError(t, err)
	assert.Len(t, rows, writers)
}
