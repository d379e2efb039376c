/*
Package sqlite provides the SQLite-backed implementation of loan.Store
plus payroll-run persistence.

PURPOSE:
  Durable storage for the benefits engine. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

STORAGE MODEL:
  The Loan aggregate is stored as one JSON document per row, with the
  columns that queries filter on (employee, status, type) lifted out.
  The aggregate owns its installments and histories exclusively, so a
  document column keeps writes atomic without a fan of child tables.

KEY TABLES:
  loans:        id, employee_id, loan_type, status, created_at, doc
  payroll_runs: id, as_of, created_at, doc

CONCURRENCY:
  WithLoan holds a per-loan-id mutex across load/mutate/save - the
  single-writer contract the lifecycle operations assume. SQLite is
  opened in WAL mode so readers don't block behind the writer.

MIGRATION:
  Schema is auto-migrated on New(). For a production Postgres port use a
  versioned migration tool instead.

USAGE:
  st, err := sqlite.New("./data/benefits.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - loan/store.go: Interface definition and single-writer contract
  - loan/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/benefits-engine/contribution"
	"github.com/warp/benefits-engine/loan"
)

// Store implements loan.Store and payroll-run persistence over SQLite.
type Store struct {
	db *sql.DB

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db, locks: make(map[string]*sync.Mutex)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS loans (
		id          TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		loan_type   TEXT NOT NULL,
		status      TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL,
		doc         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_loans_employee ON loans(employee_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

	CREATE TABLE IF NOT EXISTS payroll_runs (
		id         TEXT PRIMARY KEY,
		as_of      TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		doc        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payroll_runs_as_of ON payroll_runs(as_of);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) loanLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// =============================================================================
// LOAN STORE
// =============================================================================

func (s *Store) CreateLoan(ctx context.Context, l *loan.Loan) error {
	doc, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode loan: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO loans (id, employee_id, loan_type, status, created_at, updated_at, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.EmployeeID, string(l.Type), string(l.Status), l.CreatedAt, l.UpdatedAt, string(doc))
	if err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

func (s *Store) GetLoan(ctx context.Context, id string) (*loan.Loan, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM loans WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loan.ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load loan: %w", err)
	}
	return decodeLoan(doc)
}

func (s *Store) ListLoans(ctx context.Context) ([]*loan.Loan, error) {
	return s.queryLoans(ctx, `SELECT doc FROM loans ORDER BY created_at DESC, id DESC`)
}

func (s *Store) ListLoansByEmployee(ctx context.Context, employeeID string) ([]*loan.Loan, error) {
	return s.queryLoans(ctx,
		`SELECT doc FROM loans WHERE employee_id = ? ORDER BY created_at DESC, id DESC`, employeeID)
}

func (s *Store) queryLoans(ctx context.Context, query string, args ...any) ([]*loan.Loan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var out []*loan.Loan
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		l, err := decodeLoan(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) saveLoan(ctx context.Context, l *loan.Loan) error {
	doc, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode loan: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE loans SET status = ?, updated_at = ?, doc = ? WHERE id = ?`,
		string(l.Status), l.UpdatedAt, string(doc), l.ID)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return loan.ErrLoanNotFound
	}
	return nil
}

// WithLoan holds the per-loan mutex across the whole read-modify-write,
// providing the single-writer semantics the lifecycle requires.
func (s *Store) WithLoan(ctx context.Context, id string, fn func(*loan.Loan) error) (*loan.Loan, error) {
	lock := s.loanLock(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}
	if err := s.saveLoan(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Store) DeleteLoan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM loans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return loan.ErrLoanNotFound
	}
	return nil
}

func decodeLoan(doc string) (*loan.Loan, error) {
	var l loan.Loan
	if err := json.Unmarshal([]byte(doc), &l); err != nil {
		return nil, fmt.Errorf("failed to decode loan: %w", err)
	}
	return &l, nil
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

// ErrRunNotFound is returned for unknown payroll-run ids.
var ErrRunNotFound = errors.New("payroll run not found")

// SavePayrollRun persists a contribution run so finance can re-open it.
func (s *Store) SavePayrollRun(ctx context.Context, summary contribution.Summary) error {
	doc, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode payroll run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payroll_runs (id, as_of, created_at, doc) VALUES (?, ?, ?, ?)`,
		summary.RunID, summary.AsOf, time.Now().UTC(), string(doc))
	if err != nil {
		return fmt.Errorf("failed to insert payroll run: %w", err)
	}
	return nil
}

// GetPayrollRun loads one stored run.
func (s *Store) GetPayrollRun(ctx context.Context, id string) (contribution.Summary, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM payroll_runs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return contribution.Summary{}, ErrRunNotFound
	}
	if err != nil {
		return contribution.Summary{}, fmt.Errorf("failed to load payroll run: %w", err)
	}
	var summary contribution.Summary
	if err := json.Unmarshal([]byte(doc), &summary); err != nil {
		return contribution.Summary{}, fmt.Errorf("failed to decode payroll run: %w", err)
	}
	return summary, nil
}

// ListPayrollRuns returns run headers, newest first.
func (s *Store) ListPayrollRuns(ctx context.Context) ([]contribution.RunHeader, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, as_of, created_at FROM payroll_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll runs: %w", err)
	}
	defer rows.Close()

	var out []contribution.RunHeader
	for rows.Next() {
		var h contribution.RunHeader
		if err := rows.Scan(&h.ID, &h.AsOf, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
