package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll records.
// Mutating calls are expected to run inside Transactor.WithinTransaction.
type PayrollRepository interface {
	// Records
	CreatePayrollRecord(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	GetPayrollRecordByID(ctx context.Context, id string) (PayrollRecord, error)
	// GetPayrollRecordForUpdate re-reads the record and locks it until the
	// surrounding transaction ends.
	GetPayrollRecordForUpdate(ctx context.Context, id string) (PayrollRecord, error)
	HasActiveRecordForPeriod(ctx context.Context, employeeID string, month, year int) (bool, error)
	ListPayrollRecords(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, int64, error)
	// UpdatePayrollRecord writes every mutable field when the stored version
	// equals record.Version, and returns the record with the bumped version.
	// A stale version yields ErrConcurrentModification.
	UpdatePayrollRecord(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	ReplaceLineItems(ctx context.Context, recordID string, items []LineItem) ([]LineItem, error)
	DeletePayrollRecord(ctx context.Context, id string) error

	// History
	AppendHistory(ctx context.Context, entry PayrollHistory) error
	GetHistory(ctx context.Context, recordID string) ([]PayrollHistory, error)

	// Aggregations
	GetPayrollSummary(ctx context.Context, month, year int) (PayrollSummaryResponse, error)
	ListStaleRecords(ctx context.Context, statuses []PayrollStatus, updatedBefore time.Time) ([]PayrollRecord, error)
}

// RecurringAllowanceSource is the read-only view the engine needs from the
// profile subsystem.
type RecurringAllowanceSource interface {
	GetActiveRecurringAllowances(ctx context.Context, employeeID string, asOf time.Time) ([]RecurringAllowance, error)
}

// RecurringAllowanceRepository manages standing allowances per employee.
type RecurringAllowanceRepository interface {
	RecurringAllowanceSource
	CreateRecurringAllowance(ctx context.Context, allowance RecurringAllowance) (RecurringAllowance, error)
	ListRecurringAllowances(ctx context.Context, employeeID string) ([]RecurringAllowance, error)
	DeactivateRecurringAllowance(ctx context.Context, id string) error
}

// Transactor runs fn as one atomic unit. Repositories called with the ctx
// passed to fn take part in the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
