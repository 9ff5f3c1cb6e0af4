package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbMaxConns        = 10
	dbMinConns        = 2
	dbMaxConnLifetime = 30 * time.Minute
	dbMaxConnIdleTime = 5 * time.Minute
)

// New opens a pgx pool against url and verifies the connection. Failure here
// is fatal for the caller: the service must not start without its store.
func New(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = dbMaxConns
	cfg.MinConns = dbMinConns
	cfg.MaxConnLifetime = dbMaxConnLifetime
	cfg.MaxConnIdleTime = dbMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		student_id TEXT UNIQUE NOT NULL,
		first_name TEXT,
		last_name TEXT,
		year INT,
		gender TEXT,
		email TEXT,
		is_active BOOLEAN DEFAULT TRUE,
		balance NUMERIC(14,2) DEFAULT 0,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		transaction_id TEXT UNIQUE NOT NULL,
		student_id TEXT NOT NULL REFERENCES students(student_id),
		amount NUMERIC(14,2) NOT NULL,
		currency TEXT DEFAULT 'KES',
		status TEXT,
		payment_method TEXT NOT NULL DEFAULT 'UNKNOWN',
		merchant_reference TEXT,
		message TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_student_id ON students(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_student_id ON payments(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_transaction_id ON payments(transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_method ON payments(payment_method)`,
}

// Migrate creates the ledger tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
