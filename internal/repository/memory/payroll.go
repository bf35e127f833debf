package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	store *Store
}

func NewPayrollRepository(store *Store) payroll.PayrollRepository {
	return &payrollRepository{store: store}
}

func (r *payrollRepository) withItems(rec payroll.PayrollRecord) payroll.PayrollRecord {
	rec.LineItems = slices.Clone(r.store.lineItems[rec.ID])
	if rec.LineItems == nil {
		rec.LineItems = []payroll.LineItem{}
	}
	return rec
}

func (r *payrollRepository) CreatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	s := r.store
	defer s.exclusive(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.EmployeeID == record.EmployeeID &&
			existing.PeriodMonth == record.PeriodMonth &&
			existing.PeriodYear == record.PeriodYear &&
			existing.Status != payroll.PayrollStatusRejected {
			return payroll.PayrollRecord{}, payroll.ErrDuplicatePeriod
		}
	}

	if record.ID == "" {
		record.ID = uuid.Must(uuid.NewV7()).String()
	}
	if record.Version == 0 {
		record.Version = 1
	}

	items := make([]payroll.LineItem, 0, len(record.LineItems))
	for _, it := range record.LineItems {
		if it.ID == "" {
			it.ID = uuid.Must(uuid.NewV7()).String()
		}
		it.RecordID = record.ID
		if it.CreatedAt.IsZero() {
			it.CreatedAt = record.CreatedAt
		}
		items = append(items, it)
	}

	stored := record
	stored.LineItems = nil
	s.records[record.ID] = stored
	s.lineItems[record.ID] = items

	return r.withItems(stored), nil
}

func (r *payrollRepository) GetPayrollRecordByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return r.withItems(rec), nil
}

// GetPayrollRecordForUpdate relies on transactions being serialized by the store.
func (r *payrollRepository) GetPayrollRecordForUpdate(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	return r.GetPayrollRecordByID(ctx, id)
}

func (r *payrollRepository) HasActiveRecordForPeriod(ctx context.Context, employeeID string, month, year int) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.EmployeeID == employeeID && rec.PeriodMonth == month && rec.PeriodYear == year &&
			rec.Status != payroll.PayrollStatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (r *payrollRepository) ListPayrollRecords(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]payroll.PayrollRecord, 0)
	for _, rec := range s.records {
		if filter.PeriodMonth != nil && rec.PeriodMonth != *filter.PeriodMonth {
			continue
		}
		if filter.PeriodYear != nil && rec.PeriodYear != *filter.PeriodYear {
			continue
		}
		if filter.Status != nil && string(rec.Status) != *filter.Status {
			continue
		}
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		if slices.Contains(filter.ExcludeStatuses, rec.Status) {
			continue
		}
		matched = append(matched, rec)
	}

	desc := strings.EqualFold(filter.SortOrder, "desc")
	compare := func(a, b payroll.PayrollRecord) int {
		switch filter.SortBy {
		case "period":
			if c := cmp.Compare(a.PeriodYear, b.PeriodYear); c != 0 {
				return c
			}
			return cmp.Compare(a.PeriodMonth, b.PeriodMonth)
		case "net_total":
			return a.NetTotal.Cmp(b.NetTotal)
		case "updated_at":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case "employee_name":
			return strings.Compare(strings.ToLower(a.EmployeeFirstName+" "+a.EmployeeLastName),
				strings.ToLower(b.EmployeeFirstName+" "+b.EmployeeLastName))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	// id breaks ties in the sort direction, matching the SQL ORDER BY.
	slices.SortFunc(matched, func(a, b payroll.PayrollRecord) int {
		c := compare(a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		offset := (filter.Page - 1) * filter.Limit
		if offset < 0 {
			offset = 0
		}
		if offset >= len(matched) {
			matched = matched[:0]
		} else {
			end := min(offset+filter.Limit, len(matched))
			matched = matched[offset:end]
		}
	}

	result := make([]payroll.PayrollRecord, len(matched))
	for i, rec := range matched {
		result[i] = r.withItems(rec)
	}
	return result, total, nil
}

func (r *payrollRepository) UpdatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	s := r.store
	defer s.exclusive(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[record.ID]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	if current.Version != record.Version {
		return payroll.PayrollRecord{}, payroll.ErrConcurrentModification
	}

	record.Version++
	record.LineItems = nil
	s.records[record.ID] = record
	return r.withItems(record), nil
}

func (r *payrollRepository) ReplaceLineItems(ctx context.Context, recordID string, items []payroll.LineItem) ([]payroll.LineItem, error) {
	s := r.store
	defer s.exclusive(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[recordID]; !ok {
		return nil, payroll.ErrPayrollRecordNotFound
	}

	now := time.Now().UTC()
	replaced := make([]payroll.LineItem, 0, len(items))
	for _, it := range items {
		it.ID = uuid.Must(uuid.NewV7()).String()
		it.RecordID = recordID
		it.CreatedAt = now
		replaced = append(replaced, it)
	}
	s.lineItems[recordID] = replaced
	return slices.Clone(replaced), nil
}

func (r *payrollRepository) DeletePayrollRecord(ctx context.Context, id string) error {
	s := r.store
	defer s.exclusive(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return payroll.ErrPayrollRecordNotFound
	}
	delete(s.records, id)
	delete(s.lineItems, id)
	return nil
}

func (r *payrollRepository) AppendHistory(ctx context.Context, entry payroll.PayrollHistory) error {
	s := r.store
	defer s.exclusive(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV7()).String()
	}
	s.history = append(s.history, entry)
	return nil
}

func (r *payrollRepository) GetHistory(ctx context.Context, recordID string) ([]payroll.PayrollHistory, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]payroll.PayrollHistory, 0)
	for _, h := range s.history {
		if h.RecordID == recordID {
			entries = append(entries, h)
		}
	}
	return entries, nil
}

func (r *payrollRepository) GetPayrollSummary(ctx context.Context, month, year int) (payroll.PayrollSummaryResponse, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := payroll.PayrollSummaryResponse{
		PeriodMonth:      month,
		PeriodYear:       year,
		StatusCounts:     make(map[payroll.PayrollStatus]int),
		TotalsByCurrency: make(map[string]payroll.CurrencySum),
	}
	for _, st := range payroll.AllStatuses() {
		summary.StatusCounts[st] = 0
	}

	for _, rec := range s.records {
		if rec.PeriodMonth != month || rec.PeriodYear != year {
			continue
		}
		summary.TotalRecords++
		summary.StatusCounts[rec.Status]++
		if rec.Status == payroll.PayrollStatusDisputed {
			summary.OpenDisputes++
		}
		if rec.HasPendingRevision && rec.Status == payroll.PayrollStatusSentToEmployee {
			summary.PendingReconfirmation++
		}
		if rec.Status == payroll.PayrollStatusRejected {
			continue
		}
		sum, ok := summary.TotalsByCurrency[rec.Currency]
		if !ok {
			sum = payroll.CurrencySum{GrossTotal: decimal.Zero, NetTotal: decimal.Zero}
		}
		sum.GrossTotal = sum.GrossTotal.Add(rec.GrossTotal)
		sum.NetTotal = sum.NetTotal.Add(rec.NetTotal)
		summary.TotalsByCurrency[rec.Currency] = sum
	}

	return summary, nil
}

func (r *payrollRepository) ListStaleRecords(ctx context.Context, statuses []payroll.PayrollStatus, updatedBefore time.Time) ([]payroll.PayrollRecord, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]payroll.PayrollRecord, 0)
	for _, rec := range s.records {
		if slices.Contains(statuses, rec.Status) && rec.UpdatedAt.Before(updatedBefore) {
			result = append(result, r.withItems(rec))
		}
	}
	slices.SortFunc(result, func(a, b payroll.PayrollRecord) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}
