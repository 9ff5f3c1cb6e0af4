// Package status serves read-only payment lookups for client polling.
package status

import (
	"context"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/domain/event"
	"github.com/makini/pay-ledger/internal/domain/repository"
)

type UseCase struct {
	uow repository.UnitOfWork
}

func NewUseCase(uow repository.UnitOfWork) *UseCase {
	return &UseCase{uow: uow}
}

// Execute returns the full payment record for transactionID, or
// repository.ErrNotFound. No transaction and no side effects.
func (uc *UseCase) Execute(ctx context.Context, transactionID string) (*entity.Payment, error) {
	if transactionID == "" {
		return nil, &event.ValidationError{Fields: map[string]string{
			"transactionId": "Transaction ID is required",
		}}
	}
	return uc.uow.Payments().FindByTransactionID(ctx, transactionID)
}
