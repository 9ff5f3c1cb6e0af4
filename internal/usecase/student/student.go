// Package student covers the directory side of the ledger: registration and
// lookups. Balances are never touched here; only payment ingestion moves
// money.
package student

import (
	"context"
	"errors"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/domain/repository"
)

var (
	ErrAlreadyExists = errors.New("student ID already exists")
	ErrMissingFields = errors.New("student_id, first_name and last_name are required")
)

type RegisterRequest struct {
	StudentID string
	FirstName string
	LastName  string
	Year      int
	Gender    string
}

type UseCase struct {
	uow repository.UnitOfWork
}

func NewUseCase(uow repository.UnitOfWork) *UseCase {
	return &UseCase{uow: uow}
}

func (uc *UseCase) Register(ctx context.Context, req RegisterRequest) (*entity.Student, error) {
	if req.StudentID == "" || req.FirstName == "" || req.LastName == "" {
		return nil, ErrMissingFields
	}

	s := entity.NewStudent(req.StudentID, req.FirstName, req.LastName, req.Year, req.Gender)
	if err := uc.uow.Students().Create(ctx, s); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return s, nil
}

func (uc *UseCase) Get(ctx context.Context, studentID string) (*entity.Student, error) {
	return uc.uow.Students().FindByID(ctx, studentID)
}

func (uc *UseCase) List(ctx context.Context) ([]*entity.Student, error) {
	return uc.uow.Students().List(ctx)
}
