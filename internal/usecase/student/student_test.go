package student_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/domain/repository"
	"github.com/makini/pay-ledger/internal/domain/repository/mocks"
	"github.com/makini/pay-ledger/internal/usecase/student"
)

func TestRegister_StartsWithZeroBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uow := mocks.NewMockUnitOfWork(ctrl)
	studentRepo := mocks.NewMockStudentRepository(ctrl)

	uc := student.NewUseCase(uow)

	uow.EXPECT().Students().Return(studentRepo)
	studentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s *entity.Student) error {
			assert.Equal(t, "ST010", s.StudentID())
			assert.Zero(t, s.Balance())
			return nil
		})

	s, err := uc.Register(context.Background(), student.RegisterRequest{
		StudentID: "ST010",
		FirstName: "Amina",
		LastName:  "Odhiambo",
		Year:      3,
	})

	require.NoError(t, err)
	assert.Equal(t, "ST010", s.StudentID())
	assert.Zero(t, s.Balance())
}

func TestRegister_MissingFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := student.NewUseCase(mocks.NewMockUnitOfWork(ctrl))

	_, err := uc.Register(context.Background(), student.RegisterRequest{
		StudentID: "ST010",
	})

	require.ErrorIs(t, err, student.ErrMissingFields)
}

func TestRegister_DuplicateID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uow := mocks.NewMockUnitOfWork(ctrl)
	studentRepo := mocks.NewMockStudentRepository(ctrl)

	uc := student.NewUseCase(uow)

	uow.EXPECT().Students().Return(studentRepo)
	studentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(repository.ErrConflict)

	_, err := uc.Register(context.Background(), student.RegisterRequest{
		StudentID: "ST001",
		FirstName: "Richard",
		LastName:  "Smith",
	})

	require.ErrorIs(t, err, student.ErrAlreadyExists)
}
