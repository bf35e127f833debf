package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
)

// Operation names an engine action. It is also the action recorded in history.
type Operation string

const (
	OpCreateRecord      Operation = "create_record"
	OpSubmitForApproval Operation = "submit_for_approval"
	OpApproveAndSend    Operation = "approve_and_send"
	OpRejectRecord      Operation = "reject_record"
	OpConfirm           Operation = "confirm"
	OpDispute           Operation = "dispute"
	OpRevise            Operation = "revise"
	OpRejectDispute     Operation = "reject_dispute"
	OpDeleteRecord      Operation = "delete_record"
)

// AllOperations returns every state-changing operation
func AllOperations() []Operation {
	return []Operation{
		OpCreateRecord,
		OpSubmitForApproval,
		OpApproveAndSend,
		OpRejectRecord,
		OpConfirm,
		OpDispute,
		OpRevise,
		OpRejectDispute,
		OpDeleteRecord,
	}
}

type transition struct {
	permission user.Permission
	from       []PayrollStatus
	to         PayrollStatus // empty for DeleteRecord
	selfGuard  bool          // actor must not be the statement's employee
}

var transitions = map[Operation]transition{
	OpCreateRecord: {
		permission: user.PermissionPayrollCreate,
		to:         PayrollStatusDraft,
	},
	OpSubmitForApproval: {
		permission: user.PermissionPayrollSubmit,
		from:       []PayrollStatus{PayrollStatusDraft},
		to:         PayrollStatusPendingAdminApproval,
	},
	OpApproveAndSend: {
		permission: user.PermissionPayrollApprove,
		from:       []PayrollStatus{PayrollStatusPendingAdminApproval},
		to:         PayrollStatusSentToEmployee,
		selfGuard:  true,
	},
	OpRejectRecord: {
		permission: user.PermissionPayrollReject,
		from:       []PayrollStatus{PayrollStatusPendingAdminApproval},
		to:         PayrollStatusRejected,
		selfGuard:  true,
	},
	OpConfirm: {
		permission: user.PermissionPayrollConfirmOwn,
		from:       []PayrollStatus{PayrollStatusSentToEmployee},
		to:         PayrollStatusConfirmed,
	},
	OpDispute: {
		permission: user.PermissionPayrollDisputeOwn,
		from:       []PayrollStatus{PayrollStatusSentToEmployee},
		to:         PayrollStatusDisputed,
	},
	OpRevise: {
		permission: user.PermissionPayrollRevise,
		from:       []PayrollStatus{PayrollStatusDisputed},
		to:         PayrollStatusSentToEmployee,
		selfGuard:  true,
	},
	OpRejectDispute: {
		permission: user.PermissionPayrollRejectDispute,
		from:       []PayrollStatus{PayrollStatusDisputed},
		to:         PayrollStatusSentToEmployee,
		selfGuard:  true,
	},
	OpDeleteRecord: {
		permission: user.PermissionPayrollDelete,
		from:       []PayrollStatus{PayrollStatusDraft, PayrollStatusPendingAdminApproval},
	},
}

// CanPerform is the single capability check for an operation.
func CanPerform(role user.Role, op Operation, isOwner bool) bool {
	t, ok := transitions[op]
	if !ok {
		return false
	}
	return user.CanPerform(role, t.permission, isOwner)
}

// AllowedFrom reports whether op may run on a record in status from.
func AllowedFrom(op Operation, from PayrollStatus) bool {
	t, ok := transitions[op]
	if !ok {
		return false
	}
	for _, s := range t.from {
		if s == from {
			return true
		}
	}
	return false
}

// NextStatus returns the status a record moves to after op.
func NextStatus(op Operation) PayrollStatus {
	return transitions[op].to
}

// Authorize runs the role, state and self-approval guards for op on record.
// Every failure wraps ErrInvalidTransition.
func Authorize(actor user.Actor, op Operation, record PayrollRecord) error {
	isOwner := actor.ID != "" && actor.ID == record.EmployeeID
	if !CanPerform(actor.Role, op, isOwner) {
		return fmt.Errorf("%w: role %q cannot %s this record", ErrInvalidTransition, actor.Role, op)
	}
	if !AllowedFrom(op, record.Status) {
		return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, op, record.Status)
	}
	if transitions[op].selfGuard && isSelf(actor, record) {
		return fmt.Errorf("%w: cannot %s own payroll record", ErrInvalidTransition, op)
	}
	return nil
}

func isSelf(actor user.Actor, record PayrollRecord) bool {
	if user.SamePerson(actor.ID, actor.FirstName, actor.LastName,
		record.EmployeeID, record.EmployeeFirstName, record.EmployeeLastName) {
		return true
	}
	return record.DisputedBy != nil && *record.DisputedBy == actor.ID
}
