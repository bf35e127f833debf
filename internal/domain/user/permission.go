package user

type Permission string

const (
	// Payroll statement preparation
	PermissionPayrollCreate Permission = "payroll.create"
	PermissionPayrollSubmit Permission = "payroll.submit"
	PermissionPayrollDelete Permission = "payroll.delete"

	// Approval
	PermissionPayrollApprove Permission = "payroll.approve"
	PermissionPayrollReject  Permission = "payroll.reject"

	// Employee review of own statement
	PermissionPayrollConfirmOwn Permission = "payroll.confirm_own"
	PermissionPayrollDisputeOwn Permission = "payroll.dispute_own"

	// Dispute resolution
	PermissionPayrollRevise        Permission = "payroll.revise"
	PermissionPayrollRejectDispute Permission = "payroll.reject_dispute"

	// Read access
	PermissionPayrollViewOwn Permission = "payroll.view_own"
	PermissionPayrollViewAll Permission = "payroll.view_all"

	// Recurring allowances
	PermissionAllowanceManage Permission = "allowance.manage"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdministrator: {
		PermissionPayrollCreate,
		PermissionPayrollSubmit,
		PermissionPayrollDelete,
		PermissionPayrollApprove,
		PermissionPayrollReject,
		PermissionPayrollConfirmOwn,
		PermissionPayrollDisputeOwn,
		PermissionPayrollRevise,
		PermissionPayrollRejectDispute,
		PermissionPayrollViewOwn,
		PermissionPayrollViewAll,
		PermissionAllowanceManage,
	},
	RoleHRAdmin: {
		// HR prepares statements and resolves disputes but cannot approve
		PermissionPayrollCreate,
		PermissionPayrollSubmit,
		PermissionPayrollDelete,
		PermissionPayrollConfirmOwn,
		PermissionPayrollDisputeOwn,
		PermissionPayrollRevise,
		PermissionPayrollRejectDispute,
		PermissionPayrollViewOwn,
		PermissionPayrollViewAll,
		PermissionAllowanceManage,
	},
	RoleEmployee: {
		PermissionPayrollConfirmOwn,
		PermissionPayrollDisputeOwn,
		PermissionPayrollViewOwn,
	},
}

// ownerScoped permissions only apply to the caller's own records.
var ownerScoped = map[Permission]bool{
	PermissionPayrollConfirmOwn: true,
	PermissionPayrollDisputeOwn: true,
	PermissionPayrollViewOwn:    true,
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}

// CanPerform checks the role table and, for owner-scoped permissions,
// that the caller owns the record.
func CanPerform(role Role, permission Permission, isOwner bool) bool {
	if !HasPermission(role, permission) {
		return false
	}
	if ownerScoped[permission] {
		return isOwner
	}
	return true
}
