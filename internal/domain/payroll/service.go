package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
)

// PayrollService is the engine surface. Every mutating call validates the
// actor and the current status inside one transaction and emits a
// notification after commit.
type PayrollService interface {
	// Lifecycle
	CreateRecord(ctx context.Context, actor user.Actor, req CreatePayrollRecordRequest) (PayrollRecordResponse, error)
	SubmitForApproval(ctx context.Context, actor user.Actor, id string) (PayrollRecordResponse, error)
	ApproveAndSend(ctx context.Context, actor user.Actor, id string) (PayrollRecordResponse, error)
	RejectRecord(ctx context.Context, actor user.Actor, id string, req RejectPayrollRequest) (PayrollRecordResponse, error)
	Confirm(ctx context.Context, actor user.Actor, id string, req ConfirmPayrollRequest) (PayrollRecordResponse, error)
	DeleteRecord(ctx context.Context, actor user.Actor, id string) error

	// Dispute resolution
	Dispute(ctx context.Context, actor user.Actor, id string, req DisputePayrollRequest) (PayrollRecordResponse, error)
	Revise(ctx context.Context, actor user.Actor, id string, req RevisePayrollRequest) (PayrollRecordResponse, error)
	RejectDispute(ctx context.Context, actor user.Actor, id string, req RejectDisputeRequest) (PayrollRecordResponse, error)

	// Read side
	GetRecord(ctx context.Context, actor user.Actor, id string) (PayrollRecordResponse, error)
	ListRecords(ctx context.Context, actor user.Actor, filter PayrollFilter) (ListPayrollRecordResponse, error)
	GetHistory(ctx context.Context, actor user.Actor, id string) ([]PayrollHistoryResponse, error)
	GetSummary(ctx context.Context, actor user.Actor, month, year int) (PayrollSummaryResponse, error)
	PreviewTotals(ctx context.Context, actor user.Actor, req ComputePreviewRequest) (TotalsResponse, error)

	// Recurring allowances
	AssignRecurringAllowance(ctx context.Context, actor user.Actor, req AssignRecurringAllowanceRequest) (RecurringAllowanceResponse, error)
	ListRecurringAllowances(ctx context.Context, actor user.Actor, employeeID string) ([]RecurringAllowanceResponse, error)
	DeactivateRecurringAllowance(ctx context.Context, actor user.Actor, id string) error

	// Reminders for statements waiting on someone
	SendReminders(ctx context.Context, staleAfter time.Duration) (int, error)
}
