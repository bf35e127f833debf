package payroll

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(t LineItemType, amount string) LineItem {
	return LineItem{Type: t, Category: string(t), Description: "test " + string(t), Amount: dec(amount)}
}

func TestCompute_BonusAndDeduction(t *testing.T) {
	totals, err := Compute(dec("3000"), "USD", []LineItem{
		item(LineItemTypeBonus, "200"),
		item(LineItemTypeDeduction, "150"),
	}, nil)
	require.NoError(t, err)

	assert.True(t, totals.GrossTotal.Equal(dec("3200")), "gross %s", totals.GrossTotal)
	assert.True(t, totals.TotalDeductions.Equal(dec("150")))
	assert.True(t, totals.NetTotal.Equal(dec("3050")), "net %s", totals.NetTotal)
}

func TestCompute_EmptyItems(t *testing.T) {
	totals, err := Compute(dec("4500.50"), "IDR", nil, nil)
	require.NoError(t, err)

	assert.True(t, totals.GrossTotal.Equal(dec("4500.50")))
	assert.True(t, totals.NetTotal.Equal(dec("4500.50")))
	assert.True(t, totals.TotalAllowances.IsZero())
	assert.True(t, totals.TotalDeductions.IsZero())
}

func TestCompute_AllTypesWithRecurringAllowances(t *testing.T) {
	items := []LineItem{
		item(LineItemTypeBonus, "100.10"),
		item(LineItemTypeAllowance, "50.05"),
		item(LineItemTypeOther, "25"),
		item(LineItemTypeDeduction, "75.15"),
		item(LineItemTypeDeduction, "0.85"),
	}
	allowances := []RecurringAllowance{
		{Name: "Transport", Amount: dec("30"), Currency: "usd", Active: true},
		{Name: "Meal", Amount: dec("999"), Currency: "EUR", Active: false},
	}

	totals, err := Compute(dec("1000"), "USD", items, allowances)
	require.NoError(t, err)

	assert.True(t, totals.TotalBonuses.Equal(dec("100.10")))
	assert.True(t, totals.TotalAllowances.Equal(dec("80.05")), "inactive allowance must be ignored")
	assert.True(t, totals.TotalOthers.Equal(dec("25")))
	assert.True(t, totals.TotalDeductions.Equal(dec("76")))
	assert.True(t, totals.GrossTotal.Equal(dec("1205.15")))
	assert.True(t, totals.NetTotal.Equal(dec("1129.15")))
}

func TestCompute_TotalIdentity(t *testing.T) {
	base := dec("2750.33")
	items := []LineItem{
		item(LineItemTypeBonus, "0.1"),
		item(LineItemTypeBonus, "0.2"),
		item(LineItemTypeAllowance, "0.3"),
		item(LineItemTypeOther, "12.07"),
		item(LineItemTypeDeduction, "0.7"),
	}
	allowances := []RecurringAllowance{{Name: "Housing", Amount: dec("100.01"), Currency: "USD", Active: true}}

	for i := 0; i < 50; i++ {
		totals, err := Compute(base, "USD", items, allowances)
		require.NoError(t, err)

		gross := base.Add(totals.TotalBonuses).Add(totals.TotalAllowances).Add(totals.TotalOthers)
		assert.True(t, totals.GrossTotal.Equal(gross))
		assert.True(t, totals.NetTotal.Equal(totals.GrossTotal.Sub(totals.TotalDeductions)))
		assert.True(t, totals.TotalBonuses.Equal(dec("0.3")), "no float drift")
	}
}

func TestCompute_Deterministic(t *testing.T) {
	items := []LineItem{item(LineItemTypeBonus, "10"), item(LineItemTypeDeduction, "3")}
	first, err := Compute(dec("100"), "USD", items, nil)
	require.NoError(t, err)
	second, err := Compute(dec("100"), "USD", items, nil)
	require.NoError(t, err)

	assert.Equal(t, first.GrossTotal.String(), second.GrossTotal.String())
	assert.Equal(t, first.NetTotal.String(), second.NetTotal.String())
	assert.Equal(t, first.TotalDeductions.String(), second.TotalDeductions.String())
}

func TestCompute_CurrencyMismatch(t *testing.T) {
	_, err := Compute(dec("100"), "USD", nil, []RecurringAllowance{
		{Name: "Transport", Amount: dec("10"), Currency: "IDR", Active: true},
	})
	assert.True(t, errors.Is(err, ErrCurrencyMismatch))
}

func TestCompute_UnknownType(t *testing.T) {
	_, err := Compute(dec("100"), "USD", []LineItem{{Type: "tip", Category: "x", Description: "y", Amount: dec("1")}}, nil)
	assert.Error(t, err)
}
