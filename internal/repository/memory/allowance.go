package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/google/uuid"
)

type allowanceRepository struct {
	store *Store
}

func NewRecurringAllowanceRepository(store *Store) payroll.RecurringAllowanceRepository {
	return &allowanceRepository{store: store}
}

func (r *allowanceRepository) CreateRecurringAllowance(ctx context.Context, allowance payroll.RecurringAllowance) (payroll.RecurringAllowance, error) {
	s := r.store
	defer s.exclusive(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if allowance.ID == "" {
		allowance.ID = uuid.Must(uuid.NewV7()).String()
	}
	s.allowances[allowance.ID] = allowance
	return allowance, nil
}

// GetActiveRecurringAllowances returns active allowances whose effective
// window contains asOf.
func (r *allowanceRepository) GetActiveRecurringAllowances(ctx context.Context, employeeID string, asOf time.Time) ([]payroll.RecurringAllowance, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]payroll.RecurringAllowance, 0)
	for _, a := range s.allowances {
		if a.EmployeeID != employeeID || !a.Active {
			continue
		}
		if a.EffectiveDate.After(asOf) {
			continue
		}
		if a.EndDate != nil && a.EndDate.Before(asOf) {
			continue
		}
		result = append(result, a)
	}
	sortAllowances(result)
	return result, nil
}

func (r *allowanceRepository) ListRecurringAllowances(ctx context.Context, employeeID string) ([]payroll.RecurringAllowance, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]payroll.RecurringAllowance, 0)
	for _, a := range s.allowances {
		if a.EmployeeID == employeeID {
			result = append(result, a)
		}
	}
	sortAllowances(result)
	return result, nil
}

func (r *allowanceRepository) DeactivateRecurringAllowance(ctx context.Context, id string) error {
	s := r.store
	defer s.exclusive(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.allowances[id]
	if !ok {
		return payroll.ErrRecurringAllowanceNotFound
	}
	a.Active = false
	a.UpdatedAt = time.Now().UTC()
	s.allowances[id] = a
	return nil
}

func sortAllowances(list []payroll.RecurringAllowance) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
