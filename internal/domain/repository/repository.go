package repository

import (
	"context"
	"errors"
	"time"

	"github.com/makini/pay-ledger/internal/domain/entity"
)

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

var (
	// ErrNotFound is returned when a student or payment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert trips a uniqueness constraint.
	// For payments this is the arbiter of the duplicate-delivery race: of N
	// concurrent inserts for one transaction ID, exactly one commits and the
	// rest observe ErrConflict.
	ErrConflict = errors.New("already exists")
)

type StudentRepository interface {
	FindByID(ctx context.Context, studentID string) (*entity.Student, error)
	// FindByIDForUpdate locks the student row for the remainder of the
	// enclosing transaction.
	FindByIDForUpdate(ctx context.Context, studentID string) (*entity.Student, error)
	UpdateBalance(ctx context.Context, studentID string, newBalance float64, updatedAt time.Time) error
	Create(ctx context.Context, s *entity.Student) error
	List(ctx context.Context) ([]*entity.Student, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error)
}
