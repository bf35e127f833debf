package payroll

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test assigning, listing and deactivating recurring allowances
func TestPayrollService_RecurringAllowances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.AssignRecurringAllowance(ctx, testHR, payroll.AssignRecurringAllowanceRequest{
		EmployeeID:    testEmployee.ID,
		Name:          " Housing ",
		Amount:        dec("250"),
		Currency:      "usd",
		EffectiveDate: ptr("2024-01-01"),
		EndDate:       ptr("2024-12-31"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Housing", created.Name)
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, "2024-01-01", created.EffectiveDate)
	require.NotNil(t, created.EndDate)
	assert.Equal(t, "2024-12-31", *created.EndDate)
	assert.True(t, created.Active)

	// Employees may list their own allowances, not others'
	own, err := env.svc.ListRecurringAllowances(ctx, testEmployee, testEmployee.ID)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	_, err = env.svc.ListRecurringAllowances(ctx, testOther, testEmployee.ID)
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)

	require.NoError(t, env.svc.DeactivateRecurringAllowance(ctx, testAdmin, created.ID))
	list, err := env.svc.ListRecurringAllowances(ctx, testHR, testEmployee.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Active)

	err = env.svc.DeactivateRecurringAllowance(ctx, testAdmin, "missing")
	assert.ErrorIs(t, err, payroll.ErrRecurringAllowanceNotFound)
}

// Test allowance management is limited to HR roles
func TestPayrollService_AssignRecurringAllowance_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.AssignRecurringAllowance(ctx, testEmployee, payroll.AssignRecurringAllowanceRequest{
		EmployeeID: testEmployee.ID, Name: "Self raise", Amount: dec("1000"), Currency: "USD",
	})
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)

	_, err = env.svc.AssignRecurringAllowance(ctx, testHR, payroll.AssignRecurringAllowanceRequest{
		EmployeeID: testEmployee.ID, Name: "Transport", Amount: dec("10"), Currency: "USD",
		EffectiveDate: ptr("2024-06-01"), EndDate: ptr("2024-01-01"),
	})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.ToMap(), "end_date")

	assert.ErrorIs(t, env.svc.DeactivateRecurringAllowance(ctx, testEmployee, "any"), user.ErrInsufficientPermissions)
}

// Test allowances outside their effective window are not applied
func TestPayrollService_CreateRecord_AllowanceWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.AssignRecurringAllowance(ctx, testHR, payroll.AssignRecurringAllowanceRequest{
		EmployeeID:    testEmployee.ID,
		Name:          "Project",
		Amount:        dec("400"),
		Currency:      "USD",
		EffectiveDate: ptr("2030-01-01"),
	})
	require.NoError(t, err)

	resp, err := env.svc.CreateRecord(ctx, testHR, env.createRequest())
	require.NoError(t, err)
	assert.True(t, resp.Totals.TotalAllowances.IsZero())
}

// Test preview computes without persisting
func TestPayrollService_PreviewTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := payroll.ComputePreviewRequest{
		BaseSalary: dec("3000"),
		Currency:   "USD",
		LineItems: []payroll.LineItemRequest{
			{Type: "bonus", Category: "performance", Description: "bonus", Amount: dec("200")},
			{Type: "other", Category: "reimbursement", Description: "travel", Amount: dec("75.50")},
			{Type: "deduction", Category: "tax", Description: "income tax", Amount: dec("150")},
		},
	}

	totals, err := env.svc.PreviewTotals(ctx, testHR, req)
	require.NoError(t, err)
	assert.True(t, dec("3275.50").Equal(totals.GrossTotal))
	assert.True(t, dec("3125.50").Equal(totals.NetTotal))
	assert.True(t, dec("75.50").Equal(totals.TotalOthers))

	list, err := env.svc.ListRecords(ctx, testHR, payroll.PayrollFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)

	_, err = env.svc.PreviewTotals(ctx, testEmployee, req)
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
}

// Test preview reads allowances for the requested period, like CreateRecord
func TestPayrollService_PreviewTotals_MatchesRecordForPeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.AssignRecurringAllowance(ctx, testHR, payroll.AssignRecurringAllowanceRequest{
		EmployeeID:    testEmployee.ID,
		Name:          "Relocation",
		Amount:        dec("400"),
		Currency:      "USD",
		EffectiveDate: ptr("2024-01-01"),
		EndDate:       ptr("2024-03-31"),
	})
	require.NoError(t, err)

	create := env.createRequest()
	create.PeriodMonth, create.PeriodYear = 2, 2024
	rec, err := env.svc.CreateRecord(ctx, testHR, create)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(rec.Totals.TotalAllowances))

	preview := payroll.ComputePreviewRequest{
		EmployeeID:  testEmployee.ID,
		BaseSalary:  create.BaseSalary,
		Currency:    create.Currency,
		LineItems:   create.LineItems,
		PeriodMonth: 2,
		PeriodYear:  2024,
	}
	totals, err := env.svc.PreviewTotals(ctx, testHR, preview)
	require.NoError(t, err)
	assert.True(t, rec.Totals.GrossTotal.Equal(totals.GrossTotal))
	assert.True(t, rec.Totals.NetTotal.Equal(totals.NetTotal))

	// Outside the allowance window
	preview.PeriodMonth = 6
	totals, err = env.svc.PreviewTotals(ctx, testHR, preview)
	require.NoError(t, err)
	assert.True(t, totals.TotalAllowances.IsZero())

	preview.PeriodMonth = 13
	_, err = env.svc.PreviewTotals(ctx, testHR, preview)
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.ToMap(), "period_month")
}
