package sqlite

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (or creates) the SQLite database at path. Foreign keys are
// enforced and write transactions take the database lock up front so
// concurrent ingestions serialize instead of failing mid-transaction.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
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
		is_active INTEGER DEFAULT 1,
		balance REAL DEFAULT 0,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		transaction_id TEXT UNIQUE NOT NULL,
		student_id TEXT NOT NULL,
		amount REAL NOT NULL,
		currency TEXT DEFAULT 'KES',
		status TEXT,
		payment_method TEXT NOT NULL DEFAULT 'UNKNOWN',
		merchant_reference TEXT,
		message TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP,
		FOREIGN KEY (student_id) REFERENCES students(student_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_student_id ON students(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_student_id ON payments(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_transaction_id ON payments(transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_method ON payments(payment_method)`,
}

// Migrate creates the ledger tables and indexes if they do not exist yet.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
