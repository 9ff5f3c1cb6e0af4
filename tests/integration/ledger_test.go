package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/domain/repository"
	"github.com/makini/pay-ledger/internal/infrastructure/sqlite"
	"github.com/makini/pay-ledger/internal/usecase/ingest"
)

// newLedger provisions a fresh store with student ST001 holding 50000.
func newLedger(t *testing.T) (*ingest.UseCase, repository.UnitOfWork, *sql.DB) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	uow := sqlite.NewUnitOfWork(db)

	ctx := context.Background()
	s := entity.NewStudent("ST001", "Richard", "Smith", 2, "M")
	require.NoError(t, uow.Students().Create(ctx, s))
	require.NoError(t, uow.Students().UpdateBalance(ctx, "ST001", 50000, time.Now().UTC()))

	return ingest.NewUseCase(uow), uow, db
}

func balanceOf(t *testing.T, uow repository.UnitOfWork, studentID string) float64 {
	t.Helper()
	s, err := uow.Students().FindByID(context.Background(), studentID)
	require.NoError(t, err)
	return s.Balance()
}

func paymentCount(t *testing.T, db *sql.DB, transactionID string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM payments WHERE transaction_id = ?`, transactionID,
	).Scan(&n))
	return n
}

func TestSequentialRetryStorm(t *testing.T) {
	uc, uow, db := newLedger(t)
	ctx := context.Background()

	payload := map[string]any{
		"transaction_id": "T1",
		"student_id":     "ST001",
		"amount":         1000.0,
		"status":         "completed",
	}

	first, err := uc.Execute(ctx, payload)
	require.NoError(t, err)
	require.False(t, first.Duplicate)
	require.Equal(t, "completed", first.Status)

	for i := 0; i < 9; i++ {
		resp, retryErr := uc.Execute(ctx, payload)
		require.NoError(t, retryErr, "retry %d", i)
		require.True(t, resp.Duplicate, "retry %d must be reported as duplicate", i)
		require.Equal(t, ingest.StatusDuplicate, resp.Status)
	}

	assert.Equal(t, 51000.0, balanceOf(t, uow, "ST001"), "balance applied exactly once")
	assert.Equal(t, 1, paymentCount(t, db, "T1"), "exactly one payment row")
}

func TestConcurrentSameTransaction(t *testing.T) {
	uc, uow, db := newLedger(t)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	var applied, duplicates atomic.Int32

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			resp, err := uc.Execute(ctx, map[string]any{
				"transaction_id": "T-race",
				"student_id":     "ST001",
				"amount":         1000.0,
				"status":         "completed",
			})
			if err != nil {
				t.Errorf("worker %d: %v", idx, err)
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

	assert.Equal(t, 51000.0, balanceOf(t, uow, "ST001"))
	assert.Equal(t, 1, paymentCount(t, db, "T-race"))
}

func TestConcurrentDistinctTransactions(t *testing.T) {
	uc, uow, _ := newLedger(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			resp, err := uc.Execute(ctx, map[string]any{
				"transaction_id": fmt.Sprintf("T-multi-%d", idx),
				"student_id":     "ST001",
				"amount":         250.0,
				"status":         "completed",
			})
			if err != nil {
				t.Errorf("worker %d: %v", idx, err)
				return
			}
			if resp.Duplicate {
				t.Errorf("worker %d: unexpected duplicate", idx)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50000.0+workers*250.0, balanceOf(t, uow, "ST001"),
		"all distinct completed payments must be applied regardless of order")
}

func TestPendingPaymentRecordedWithoutBalanceChange(t *testing.T) {
	uc, uow, db := newLedger(t)
	ctx := context.Background()

	resp, err := uc.Execute(ctx, map[string]any{
		"transaction_id": "T-pending",
		"student_id":     "ST001",
		"amount":         500.0,
		"status":         "pending",
	})

	require.NoError(t, err)
	require.Equal(t, "pending", resp.Status)

	assert.Equal(t, 50000.0, balanceOf(t, uow, "ST001"), "pending must not move money")
	assert.Equal(t, 1, paymentCount(t, db, "T-pending"), "row still recorded for audit")

	p, err := uow.Payments().FindByTransactionID(ctx, "T-pending")
	require.NoError(t, err)
	assert.Equal(t, "pending", p.Status())
	assert.Equal(t, 500.0, p.Amount())
	assert.NotEmpty(t, p.PaymentMethod())
}

func TestUnknownStudentWritesNothing(t *testing.T) {
	uc, _, db := newLedger(t)

	_, err := uc.Execute(context.Background(), map[string]any{
		"transaction_id": "T-ghost",
		"student_id":     "GHOST",
		"amount":         1000.0,
	})

	require.ErrorIs(t, err, ingest.ErrStudentNotFound)
	assert.Equal(t, 0, paymentCount(t, db, "T-ghost"))
}

func TestReversalAppliesNegativeAmount(t *testing.T) {
	uc, uow, _ := newLedger(t)
	ctx := context.Background()

	_, err := uc.Execute(ctx, map[string]any{
		"transaction_id": "T-reversal",
		"student_id":     "ST001",
		"amount":         -1500.0,
		"status":         "completed",
	})

	require.NoError(t, err)
	assert.Equal(t, 48500.0, balanceOf(t, uow, "ST001"))
}
