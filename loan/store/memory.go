// Package store provides loan.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/benefits-engine/loan"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps aggregates in a map and serializes writers per loan id
// with keyed mutexes, matching the Store single-writer contract.
type Memory struct {
	mu    sync.RWMutex
	loans map[string]*loan.Loan

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		loans: make(map[string]*loan.Loan),
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *Memory) loanLock(id string) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *Memory) CreateLoan(_ context.Context, l *loan.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = l.Clone()
	return nil
}

func (m *Memory) GetLoan(_ context.Context, id string) (*loan.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loans[id]
	if !ok {
		return nil, loan.ErrLoanNotFound
	}
	return l.Clone(), nil
}

func (m *Memory) ListLoans(_ context.Context) ([]*loan.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*loan.Loan, 0, len(m.loans))
	for _, l := range m.loans {
		out = append(out, l.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) ListLoansByEmployee(_ context.Context, employeeID string) ([]*loan.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*loan.Loan
	for _, l := range m.loans {
		if l.EmployeeID == employeeID {
			out = append(out, l.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// WithLoan is the single-writer read-modify-write primitive. The per-id
// mutex is held across load, fn and save, so concurrent lifecycle calls
// against the same loan serialize instead of racing.
func (m *Memory) WithLoan(ctx context.Context, id string, fn func(*loan.Loan) error) (*loan.Loan, error) {
	lock := m.loanLock(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := m.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.loans[id] = current.Clone()
	m.mu.Unlock()
	return current, nil
}

func (m *Memory) DeleteLoan(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[id]; !ok {
		return loan.ErrLoanNotFound
	}
	delete(m.loans, id)
	return nil
}

func sortNewestFirst(loans []*loan.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].CreatedAt.Equal(loans[j].CreatedAt) {
			return loans[i].ID > loans[j].ID
		}
		return loans[i].CreatedAt.After(loans[j].CreatedAt)
	})
}
