package integration_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/infrastructure/postgres"
	"github.com/makini/pay-ledger/internal/usecase/ingest"
)

// Runs against a provisioned PostgreSQL, exercising row locking and the
// unique-constraint race on the real backend:
//
//	TEST_DATABASE_URL=postgres://... go test ./tests/integration/
func TestPostgresConcurrentSameTransaction(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.New(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, postgres.Migrate(ctx, pool))

	uow := postgres.NewUnitOfWork(pool)
	uc := ingest.NewUseCase(uow)

	studentID := "ST-" + uuid.NewString()
	transactionID := "T-" + uuid.NewString()

	require.NoError(t, uow.Students().Create(ctx, entity.NewStudent(studentID, "Richard", "Smith", 2, "M")))
	require.NoError(t, uow.Students().UpdateBalance(ctx, studentID, 50000, time.Now().UTC()))

	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM payments WHERE student_id = $1`, studentID)
		pool.Exec(context.Background(), `DELETE FROM students WHERE student_id = $1`, studentID)
	})

	const workers = 10
	var wg sync.WaitGroup
	var applied, duplicates atomic.Int32

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			resp, execErr := uc.Execute(ctx, map[string]any{
				"transaction_id": transactionID,
				"student_id":     studentID,
				"amount":         1000.0,
				"status":         "completed",
			})
			if execErr != nil {
				t.Errorf("worker %d: %v", idx, execErr)
				return
			}
			if resp.Duplicate {
				duplicates.Add(1)
			} else {
				applied.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), applied.Load(), "exactly one delivery should apply")
	require.Equal(t, int32(workers-1), duplicates.Load())

	var balance float64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT balance FROM students WHERE student_id = $1`, studentID,
	).Scan(&balance))
	assert.Equal(t, 51000.0, balance)

	var rows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE transaction_id = $1`, transactionID,
	).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestPostgresConcurrentDistinctTransactions(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.New(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, postgres.Migrate(ctx, pool))

	uow := postgres.NewUnitOfWork(pool)
	uc := ingest.NewUseCase(uow)

	studentID := "ST-" + uuid.NewString()
	require.NoError(t, uow.Students().Create(ctx, entity.NewStudent(studentID, "Jane", "Smith", 3, "F")))

	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM payments WHERE student_id = $1`, studentID)
		pool.Exec(context.Background(), `DELETE FROM students WHERE student_id = $1`, studentID)
	})

	const workers = 8
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			_, execErr := uc.Execute(ctx, map[string]any{
				"transaction_id": fmt.Sprintf("T-%s-%d", studentID, idx),
				"student_id":     studentID,
				"amount":         250.0,
				"status":         "completed",
			})
			if execErr != nil {
				t.Errorf("worker %d: %v", idx, execErr)
			}
		}(i)
	}
	wg.Wait()

	var balance float64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT balance FROM students WHERE student_id = $1`, studentID,
	).Scan(&balance))
	assert.Equal(t, workers*250.0, balance,
		"final balance equals the sum of all completed amounts")
}
