package payroll

import (
	"context"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/google/uuid"
)

// ========== RECURRING ALLOWANCES ==========

func (s *PayrollServiceImpl) AssignRecurringAllowance(ctx context.Context, actor user.Actor, req payroll.AssignRecurringAllowanceRequest) (payroll.RecurringAllowanceResponse, error) {
	if err := checkActor(actor); err != nil {
		return payroll.RecurringAllowanceResponse{}, err
	}
	if !user.HasPermission(actor.Role, user.PermissionAllowanceManage) {
		return payroll.RecurringAllowanceResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return payroll.RecurringAllowanceResponse{}, err
	}

	now := s.now()
	effective := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.EffectiveDate != nil {
		d, _ := validator.ParseDate(*req.EffectiveDate)
		effective = d.Time()
	}
	var end *time.Time
	if req.EndDate != nil {
		d, _ := validator.ParseDate(*req.EndDate)
		end = ptr(d.Time())
	}

	allowance, err := s.allowanceRepo.CreateRecurringAllowance(ctx, payroll.RecurringAllowance{
		ID:            uuid.Must(uuid.NewV7()).String(),
		EmployeeID:    strings.TrimSpace(req.EmployeeID),
		Name:          strings.TrimSpace(req.Name),
		Amount:        req.Amount,
		Currency:      payroll.NormalizeCurrency(req.Currency),
		Active:        true,
		EffectiveDate: effective,
		EndDate:       end,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return payroll.RecurringAllowanceResponse{}, err
	}

	s.logger.Info("recurring allowance assigned",
		"allowance_id", allowance.ID, "employee_id", allowance.EmployeeID, "actor_id", actor.ID)
	return toAllowanceResponse(allowance), nil
}

func (s *PayrollServiceImpl) ListRecurringAllowances(ctx context.Context, actor user.Actor, employeeID string) ([]payroll.RecurringAllowanceResponse, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if !user.HasPermission(actor.Role, user.PermissionAllowanceManage) &&
		!user.CanPerform(actor.Role, user.PermissionPayrollViewOwn, actor.ID == employeeID) {
		return nil, user.ErrInsufficientPermissions
	}

	list, err := s.allowanceRepo.ListRecurringAllowances(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	result := make([]payroll.RecurringAllowanceResponse, len(list))
	for i, a := range list {
		result[i] = toAllowanceResponse(a)
	}
	return result, nil
}

// DeactivateRecurringAllowance stops an allowance from feeding future
// computations. Records already computed keep their totals.
func (s *PayrollServiceImpl) DeactivateRecurringAllowance(ctx context.Context, actor user.Actor, id string) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if !user.HasPermission(actor.Role, user.PermissionAllowanceManage) {
		return user.ErrInsufficientPermissions
	}

	if err := s.allowanceRepo.DeactivateRecurringAllowance(ctx, id); err != nil {
		return err
	}

	s.logger.Info("recurring allowance deactivated", "allowance_id", id, "actor_id", actor.ID)
	return nil
}

// PreviewTotals runs the computation without persisting anything. When an
// employee is given, the recurring allowances in effect for the requested
// period are included, read the same way CreateRecord reads them.
func (s *PayrollServiceImpl) PreviewTotals(ctx context.Context, actor user.Actor, req payroll.ComputePreviewRequest) (payroll.TotalsResponse, error) {
	if err := checkActor(actor); err != nil {
		return payroll.TotalsResponse{}, err
	}
	if !user.HasPermission(actor.Role, user.PermissionPayrollCreate) {
		return payroll.TotalsResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return payroll.TotalsResponse{}, err
	}

	var allowances []payroll.RecurringAllowance
	if employeeID := strings.TrimSpace(req.EmployeeID); employeeID != "" {
		var err error
		month, year := req.PeriodMonth, req.PeriodYear
		if month == 0 {
			now := s.now()
			month, year = int(now.Month()), now.Year()
		}
		allowances, err = s.allowanceRepo.GetActiveRecurringAllowances(ctx, employeeID, periodEnd(month, year))
		if err != nil {
			return payroll.TotalsResponse{}, err
		}
	}

	totals, err := payroll.Compute(req.BaseSalary, req.Currency, payroll.ToLineItems(req.LineItems), allowances)
	if err != nil {
		return payroll.TotalsResponse{}, err
	}
	return toTotalsResponse(totals), nil
}
