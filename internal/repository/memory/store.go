// Package memory provides in-process repository implementations used by
// tests and by the API when no database is configured.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
)

type txKey struct{}

// Store holds payroll records, line items, history and recurring allowances.
// Transactions are serialized and rolled back by restoring a snapshot.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	records    map[string]payroll.PayrollRecord
	lineItems  map[string][]payroll.LineItem
	history    []payroll.PayrollHistory
	allowances map[string]payroll.RecurringAllowance
}

func NewStore() *Store {
	return &Store{
		records:    make(map[string]payroll.PayrollRecord),
		lineItems:  make(map[string][]payroll.LineItem),
		allowances: make(map[string]payroll.RecurringAllowance),
	}
}

type snapshot struct {
	records    map[string]payroll.PayrollRecord
	lineItems  map[string][]payroll.LineItem
	history    []payroll.PayrollHistory
	allowances map[string]payroll.RecurringAllowance
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make(map[string][]payroll.LineItem, len(s.lineItems))
	for k, v := range s.lineItems {
		items[k] = slices.Clone(v)
	}
	return snapshot{
		records:    maps.Clone(s.records),
		lineItems:  items,
		history:    slices.Clone(s.history),
		allowances: maps.Clone(s.allowances),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap.records
	s.lineItems = snap.lineItems
	s.history = snap.history
	s.allowances = snap.allowances
}

// WithinTransaction runs fn with exclusive access to the store. Any error
// from fn discards every write fn made. Nested calls join the outer one.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

// exclusive serializes a write made outside any transaction with running
// transactions, so a rollback restores a snapshot that already holds it.
// Inside a transaction it is a no-op. Call as defer s.exclusive(ctx)().
func (s *Store) exclusive(ctx context.Context) func() {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

var _ payroll.Transactor = (*Store)(nil)
