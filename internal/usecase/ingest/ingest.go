// Package ingest applies an inbound payment notification to the ledger
// exactly once. The flow is: normalize, reject unknown students, duplicate
// fast path, then one transaction inserting the payment row and (for
// completed payments) adjusting the student balance.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/domain/event"
	"github.com/makini/pay-ledger/internal/domain/repository"
)

// ErrStudentNotFound rejects a payment referencing an unknown student
// before any write happens.
var ErrStudentNotFound = errors.New("student not found")

// StatusDuplicate marks a delivery that was already processed. Retries are
// expected from providers and are not errors.
const StatusDuplicate = "duplicate"

type Response struct {
	PaymentID     string
	TransactionID string
	Status        string
	ProcessedAt   time.Time
	Duplicate     bool
}

type UseCase struct {
	uow repository.UnitOfWork
}

func NewUseCase(uow repository.UnitOfWork) *UseCase {
	return &UseCase{uow: uow}
}

// Execute processes one webhook delivery. It returns the persisted payment's
// identifying fields, the duplicate outcome for repeats, a validation or
// not-found error before any write, or a storage error after full rollback.
func (uc *UseCase) Execute(ctx context.Context, payload map[string]any) (*Response, error) {
	ev, err := event.Normalize(payload)
	if err != nil {
		return nil, err
	}

	if _, err := uc.uow.Students().FindByID(ctx, ev.StudentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	// Fast path for retried deliveries. Purely an optimization: the unique
	// constraint on transaction_id below is what actually decides races.
	existing, err := uc.uow.Payments().FindByTransactionID(ctx, ev.TransactionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return duplicateResponse(ev.TransactionID), nil
	}

	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p := entity.NewPayment(
		ev.TransactionID, ev.StudentID, ev.Amount,
		ev.Currency, ev.Status, ev.PaymentMethod,
		ev.MerchantReference, ev.Message,
	)

	if err := tx.Payments().Create(ctx, p); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			// Lost the insert race against a concurrent delivery of the same
			// transaction ID. The winner's row stands; report duplicate.
			return duplicateResponse(ev.TransactionID), nil
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrStudentNotFound
		default:
			return nil, err
		}
	}

	if p.Completed() {
		student, err := tx.Students().FindByIDForUpdate(ctx, ev.StudentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrStudentNotFound
			}
			return nil, err
		}

		student.ApplyPayment(ev.Amount)
		if err := tx.Students().UpdateBalance(ctx, student.StudentID(), student.Balance(), student.UpdatedAt()); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &Response{
		PaymentID:     p.ID().String(),
		TransactionID: p.TransactionID(),
		Status:        p.Status(),
		ProcessedAt:   p.CreatedAt(),
	}, nil
}

func duplicateResponse(transactionID string) *Response {
	return &Response{
		TransactionID: transactionID,
		Status:        StatusDuplicate,
		Duplicate:     true,
	}
}
