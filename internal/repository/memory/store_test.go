package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAbort = errors.New("abort")

func testAllowance(employeeID string) payroll.RecurringAllowance {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return payroll.RecurringAllowance{
		EmployeeID:    employeeID,
		Name:          "Transport",
		Amount:        decimal.NewFromInt(100),
		Currency:      "USD",
		Active:        true,
		EffectiveDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestStore_RollbackDiscardsTransactionWrites(t *testing.T) {
	store := NewStore()
	repo := NewRecurringAllowanceRepository(store)
	ctx := context.Background()

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := repo.CreateRecurringAllowance(ctx, testAllowance("emp-1"))
		require.NoError(t, err)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	list, err := repo.ListRecurringAllowances(ctx, "emp-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

// A write made outside a transaction while another one is open must
// survive that transaction's rollback.
func TestStore_RollbackKeepsWritesOutsideTransaction(t *testing.T) {
	store := NewStore()
	repo := NewRecurringAllowanceRepository(store)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- store.WithinTransaction(ctx, func(ctx context.Context) error {
			close(entered)
			<-release
			return errAbort
		})
	}()
	<-entered

	created := make(chan payroll.RecurringAllowance, 1)
	go func() {
		a, err := repo.CreateRecurringAllowance(ctx, testAllowance("emp-1"))
		assert.NoError(t, err)
		created <- a
	}()

	// Give the write a chance to race the open transaction.
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.ErrorIs(t, <-txDone, errAbort)
	saved := <-created

	list, err := repo.ListRecurringAllowances(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
}

func TestStore_DeactivateSurvivesConcurrentRollback(t *testing.T) {
	store := NewStore()
	repo := NewRecurringAllowanceRepository(store)
	ctx := context.Background()

	a, err := repo.CreateRecurringAllowance(ctx, testAllowance("emp-1"))
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- store.WithinTransaction(ctx, func(ctx context.Context) error {
			close(entered)
			<-release
			return errAbort
		})
	}()
	<-entered

	deactivated := make(chan error, 1)
	go func() { deactivated <- repo.DeactivateRecurringAllowance(ctx, a.ID) }()

	time.Sleep(20 * time.Millisecond)
	close(release)

	require.ErrorIs(t, <-txDone, errAbort)
	require.NoError(t, <-deactivated)

	active, err := repo.GetActiveRecurringAllowances(ctx, "emp-1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStore_NestedTransactionJoinsOuter(t *testing.T) {
	store := NewStore()
	repo := NewRecurringAllowanceRepository(store)
	ctx := context.Background()

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		return store.WithinTransaction(ctx, func(ctx context.Context) error {
			_, err := repo.CreateRecurringAllowance(ctx, testAllowance("emp-1"))
			return err
		})
	})
	require.NoError(t, err)

	list, err := repo.ListRecurringAllowances(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPayrollRepository_ListOrderIsStableOnTies(t *testing.T) {
	store := NewStore()
	repo := NewPayrollRepository(store)
	ctx := context.Background()

	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, emp := range []string{"emp-1", "emp-2", "emp-3", "emp-4"} {
		_, err := repo.CreatePayrollRecord(ctx, payroll.PayrollRecord{
			EmployeeID:  emp,
			PeriodMonth: 3,
			PeriodYear:  2024,
			BaseSalary:  decimal.NewFromInt(3000),
			Currency:    "USD",
			Status:      payroll.PayrollStatusDraft,
			Totals:      payroll.Totals{NetTotal: decimal.NewFromInt(3000)},
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
		require.NoError(t, err)
	}

	ids := func(records []payroll.PayrollRecord) []string {
		out := make([]string, len(records))
		for i, rec := range records {
			out[i] = rec.ID
		}
		return out
	}

	for _, sortBy := range []string{"period", "net_total", "created_at"} {
		asc, total, err := repo.ListPayrollRecords(ctx, payroll.PayrollFilter{SortBy: sortBy, SortOrder: "asc"})
		require.NoError(t, err)
		require.EqualValues(t, 4, total)
		assert.IsIncreasing(t, ids(asc), sortBy)

		desc, _, err := repo.ListPayrollRecords(ctx, payroll.PayrollFilter{SortBy: sortBy, SortOrder: "desc"})
		require.NoError(t, err)
		assert.IsDecreasing(t, ids(desc), sortBy)

		var paged []string
		for page := 1; page <= 2; page++ {
			recs, _, err := repo.ListPayrollRecords(ctx, payroll.PayrollFilter{SortBy: sortBy, SortOrder: "asc", Page: page, Limit: 2})
			require.NoError(t, err)
			paged = append(paged, ids(recs)...)
		}
		assert.Equal(t, ids(asc), paged, sortBy)
	}
}
