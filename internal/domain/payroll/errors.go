package payroll

import "errors"

var (
	ErrPayrollRecordNotFound      = errors.New("payroll record not found")
	ErrInvalidTransition          = errors.New("invalid payroll transition")
	ErrCurrencyMismatch           = errors.New("currency mismatch")
	ErrInvalidAmount              = errors.New("invalid amount")
	ErrDuplicatePeriod            = errors.New("payroll record already exists for this period")
	ErrTransientFailure           = errors.New("transient persistence failure, please retry")
	ErrConcurrentModification     = errors.New("payroll record was modified concurrently")
	ErrInvalidPeriod              = errors.New("invalid payroll period")
	ErrRecurringAllowanceNotFound = errors.New("recurring allowance not found")
)
