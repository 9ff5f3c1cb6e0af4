package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/domain/repository"
)

// querier is the surface shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type UnitOfWork struct {
	db *sql.DB
	tx *sql.Tx
}

func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &UnitOfWork{db: u.db, tx: tx}, nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit()
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (u *UnitOfWork) q() querier {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWork) Students() repository.StudentRepository {
	return &StudentRepo{db: u.q()}
}

func (u *UnitOfWork) Payments() repository.PaymentRepository {
	return &PaymentRepo{db: u.q()}
}

type StudentRepo struct {
	db querier
}

const studentColumns = `student_id, first_name, last_name, year, gender, balance, created_at, updated_at`

func (r *StudentRepo) FindByID(ctx context.Context, studentID string) (*entity.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE student_id = ?`,
		studentID,
	)
	return scanStudent(row)
}

// FindByIDForUpdate has no SELECT ... FOR UPDATE equivalent here: a SQLite
// write transaction holds the database lock, which serializes concurrent
// updaters just the same.
func (r *StudentRepo) FindByIDForUpdate(ctx context.Context, studentID string) (*entity.Student, error) {
	return r.FindByID(ctx, studentID)
}

func (r *StudentRepo) UpdateBalance(ctx context.Context, studentID string, newBalance float64, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET balance = ?, updated_at = ? WHERE student_id = ?`,
		newBalance, updatedAt, studentID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *StudentRepo) Create(ctx context.Context, s *entity.Student) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO students (id, student_id, first_name, last_name, year, gender, balance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.StudentID(), s.StudentID(), s.FirstName(), s.LastName(),
		nullableInt(s.Year()), nullableString(s.Gender()),
		s.Balance(), s.CreatedAt(), s.UpdatedAt(),
	)
	return mapConstraintError(err)
}

func (r *StudentRepo) List(ctx context.Context) ([]*entity.Student, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY student_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*entity.Student
	for rows.Next() {
		s, scanErr := scanStudent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

type PaymentRepo struct {
	db querier
}

const paymentColumns = `id, transaction_id, student_id, amount, currency, status, payment_method, merchant_reference, message, created_at, updated_at`

func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID().String(), p.TransactionID(), p.StudentID(), p.Amount(),
		p.Currency(), p.Status(), p.PaymentMethod(),
		nullableString(p.MerchantReference()), nullableString(p.Message()),
		p.CreatedAt(), p.UpdatedAt(),
	)
	return mapConstraintError(err)
}

func (r *PaymentRepo) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = ?`,
		transactionID,
	)
	return scanPayment(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*entity.Student, error) {
	var (
		studentID, firstName, lastName string
		year                           sql.NullInt64
		gender                         sql.NullString
		balance                        float64
		createdAt, updatedAt           time.Time
	)
	err := row.Scan(&studentID, &firstName, &lastName, &year, &gender, &balance, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entity.ReconstructStudent(
		studentID, firstName, lastName,
		int(year.Int64), gender.String,
		balance, createdAt, updatedAt,
	), nil
}

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var (
		id, transactionID, studentID string
		amount                       float64
		currency, status, method     string
		merchantReference, message   sql.NullString
		createdAt, updatedAt         time.Time
	)
	err := row.Scan(&id, &transactionID, &studentID, &amount, &currency, &status, &method, &merchantReference, &message, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	paymentID, err := uuid.Parse(id)
	if err != nil {
		paymentID = uuid.Nil
	}
	return entity.ReconstructPayment(
		paymentID, transactionID, studentID, amount,
		currency, status, method,
		merchantReference.String, message.String,
		createdAt, updatedAt,
	), nil
}

func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return repository.ErrConflict
		case sqlite3.ErrConstraintForeignKey:
			return repository.ErrNotFound
		}
	}
	return err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
