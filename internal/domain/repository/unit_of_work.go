package repository

import "context"

// UnitOfWork scopes a group of repository operations so that either all of
// their effects become visible or none do. Outside Begin the repositories
// run against the shared pool; inside, against the transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	Students() StudentRepository
	Payments() PaymentRepository
}
