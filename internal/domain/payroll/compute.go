package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeCurrency upper-cases and trims an ISO-4217 code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Compute aggregates base salary, line items and the employee's recurring
// allowances into statement totals. Inactive allowances are skipped. Every
// allowance must be in the record currency; no conversion is performed.
//
// Compute does not validate signs; callers run ValidateLineItems first.
func Compute(baseSalary decimal.Decimal, currency string, items []LineItem, allowances []RecurringAllowance) (Totals, error) {
	currency = NormalizeCurrency(currency)

	totals := Totals{
		TotalAllowances: decimal.Zero,
		TotalBonuses:    decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalOthers:     decimal.Zero,
	}

	for _, item := range items {
		switch item.Type {
		case LineItemTypeAllowance:
			totals.TotalAllowances = totals.TotalAllowances.Add(item.Amount)
		case LineItemTypeBonus:
			totals.TotalBonuses = totals.TotalBonuses.Add(item.Amount)
		case LineItemTypeOther:
			totals.TotalOthers = totals.TotalOthers.Add(item.Amount)
		case LineItemTypeDeduction:
			totals.TotalDeductions = totals.TotalDeductions.Add(item.Amount)
		default:
			return Totals{}, fmt.Errorf("unknown line item type %q", item.Type)
		}
	}

	for _, a := range allowances {
		if !a.Active {
			continue
		}
		if NormalizeCurrency(a.Currency) != currency {
			return Totals{}, fmt.Errorf("%w: allowance %q is %s, record is %s",
				ErrCurrencyMismatch, a.Name, NormalizeCurrency(a.Currency), currency)
		}
		totals.TotalAllowances = totals.TotalAllowances.Add(a.Amount)
	}

	totals.GrossTotal = baseSalary.
		Add(totals.TotalBonuses).
		Add(totals.TotalAllowances).
		Add(totals.TotalOthers)
	totals.NetTotal = totals.GrossTotal.Sub(totals.TotalDeductions)

	return totals, nil
}
