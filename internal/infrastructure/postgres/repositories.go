package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/domain/repository"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// querier is the surface shared by *pgxpool.Pool and pgx.Tx. Repositories
// run against the transaction when one is open, otherwise the pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UnitOfWork struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

func (u *UnitOfWork) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &UnitOfWork{pool: u.pool, tx: tx}, nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(ctx)
}

func (u *UnitOfWork) db() querier {
	if u.tx != nil {
		return u.tx
	}
	return u.pool
}

func (u *UnitOfWork) Students() repository.StudentRepository {
	return &StudentRepo{db: u.db()}
}

func (u *UnitOfWork) Payments() repository.PaymentRepository {
	return &PaymentRepo{db: u.db()}
}

type StudentRepo struct {
	db querier
}

const studentColumns = `student_id, first_name, last_name, year, gender, balance, created_at, updated_at`

func (r *StudentRepo) FindByID(ctx context.Context, studentID string) (*entity.Student, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE student_id = $1`,
		studentID,
	)
	return scanStudent(row)
}

func (r *StudentRepo) FindByIDForUpdate(ctx context.Context, studentID string) (*entity.Student, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE student_id = $1 FOR UPDATE`,
		studentID,
	)
	return scanStudent(row)
}

func (r *StudentRepo) UpdateBalance(ctx context.Context, studentID string, newBalance float64, updatedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE students SET balance = $1, updated_at = $2 WHERE student_id = $3`,
		newBalance, updatedAt, studentID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *StudentRepo) Create(ctx context.Context, s *entity.Student) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO students (id, student_id, first_name, last_name, year, gender, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.StudentID(), s.StudentID(), s.FirstName(), s.LastName(),
		nullableInt(s.Year()), nullableString(s.Gender()),
		s.Balance(), s.CreatedAt(), s.UpdatedAt(),
	)
	return mapConstraintError(err)
}

func (r *StudentRepo) List(ctx context.Context) ([]*entity.Student, error) {
	rows, err := r.db.Query(ctx,
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
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID().String(), p.TransactionID(), p.StudentID(), p.Amount(),
		p.Currency(), p.Status(), p.PaymentMethod(),
		nullableString(p.MerchantReference()), nullableString(p.Message()),
		p.CreatedAt(), p.UpdatedAt(),
	)
	return mapConstraintError(err)
}

func (r *PaymentRepo) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`,
		transactionID,
	)
	return scanPayment(row)
}

func scanStudent(row pgx.Row) (*entity.Student, error) {
	var (
		studentID, firstName, lastName string
		year                           *int
		gender                         *string
		balance                        float64
		createdAt, updatedAt           time.Time
	)
	err := row.Scan(&studentID, &firstName, &lastName, &year, &gender, &balance, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entity.ReconstructStudent(
		studentID, firstName, lastName,
		derefInt(year), derefString(gender),
		balance, createdAt, updatedAt,
	), nil
}

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var (
		id, transactionID, studentID  string
		amount                        float64
		currency, status, method      string
		merchantReference, message    *string
		createdAt, updatedAt          time.Time
	)
	err := row.Scan(&id, &transactionID, &studentID, &amount, &currency, &status, &method, &merchantReference, &message, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	paymentID, err := uuid.Parse(id)
	if err != nil {
		// Legacy rows may carry non-UUID identifiers; keep the row readable.
		paymentID = uuid.Nil
	}
	return entity.ReconstructPayment(
		paymentID, transactionID, studentID, amount,
		currency, status, method,
		derefString(merchantReference), derefString(message),
		createdAt, updatedAt,
	), nil
}

// mapConstraintError translates constraint violations into the sentinel
// errors callers branch on. Unique violations are the duplicate-delivery
// arbiter and must stay distinguishable from generic storage failures.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return repository.ErrConflict
		case pgForeignKeyViolation:
			return repository.ErrNotFound
		}
	}
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
