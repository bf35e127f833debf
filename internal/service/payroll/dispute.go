package payroll

import (
	"context"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
)

// Dispute opens a dispute on a delivered statement. Only one dispute can be
// open at a time since the record leaves sent_to_employee.
func (s *PayrollServiceImpl) Dispute(ctx context.Context, actor user.Actor, id string, req payroll.DisputePayrollRequest) (payroll.PayrollRecordResponse, error) {
	rec, _, err := s.transition(ctx, actor, payroll.OpDispute, id,
		func(ctx context.Context, rec *payroll.PayrollRecord, now time.Time) (*string, error) {
			if err := req.Validate(); err != nil {
				return nil, err
			}
			reason := strings.TrimSpace(req.Reason)

			rec.Disputed = true
			rec.DisputeReason = &reason
			rec.DisputedAt = ptr(now)
			rec.DisputedBy = ptr(actor.ID)
			rec.DisputeCycles++

			// A new dispute starts without a resolution
			rec.ResolutionNotes = nil
			rec.ResolvedAt = nil
			rec.ResolvedBy = nil
			rec.HasPendingRevision = false
			return &reason, nil
		})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.emitAsync(ctx, s.notifyPreparers(rec, actor, notification.TypePayrollDisputed))
	return toRecordResponse(rec), nil
}

// Revise resolves a dispute by replacing the base salary and/or the full
// line-item set, recomputing totals, and sending the statement back for
// reconfirmation.
func (s *PayrollServiceImpl) Revise(ctx context.Context, actor user.Actor, id string, req payroll.RevisePayrollRequest) (payroll.PayrollRecordResponse, error) {
	rec, _, err := s.transition(ctx, actor, payroll.OpRevise, id,
		func(ctx context.Context, rec *payroll.PayrollRecord, now time.Time) (*string, error) {
			if err := req.Validate(); err != nil {
				return nil, err
			}

			if req.BaseSalary != nil {
				rec.BaseSalary = *req.BaseSalary
			}
			if req.LineItems != nil {
				rec.LineItems = payroll.ToLineItems(*req.LineItems)
			}

			totals, err := s.computeTotals(ctx, *rec)
			if err != nil {
				return nil, err
			}
			rec.Totals = totals

			if req.LineItems != nil {
				items, err := s.payrollRepo.ReplaceLineItems(ctx, rec.ID, rec.LineItems)
				if err != nil {
					return nil, err
				}
				rec.LineItems = items
			}

			notes := strings.TrimSpace(req.ResolutionNotes)
			resolve(rec, actor, notes, now)
			rec.RevisionCount++
			rec.HasPendingRevision = true
			return &notes, nil
		})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.emitAsync(ctx, s.notifyEmployee(rec, actor, notification.TypePayrollRevised))
	return toRecordResponse(rec), nil
}

// RejectDispute declines the dispute and asks the employee to confirm the
// unchanged statement.
func (s *PayrollServiceImpl) RejectDispute(ctx context.Context, actor user.Actor, id string, req payroll.RejectDisputeRequest) (payroll.PayrollRecordResponse, error) {
	rec, _, err := s.transition(ctx, actor, payroll.OpRejectDispute, id,
		func(ctx context.Context, rec *payroll.PayrollRecord, now time.Time) (*string, error) {
			if err := req.Validate(); err != nil {
				return nil, err
			}
			notes := strings.TrimSpace(req.ResolutionNotes)
			resolve(rec, actor, notes, now)
			rec.HasPendingRevision = false
			return &notes, nil
		})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.emitAsync(ctx, s.notifyEmployee(rec, actor, notification.TypePayrollDisputeRejected))
	return toRecordResponse(rec), nil
}

func resolve(rec *payroll.PayrollRecord, actor user.Actor, notes string, now time.Time) {
	rec.Disputed = false
	rec.ResolutionNotes = &notes
	rec.ResolvedAt = ptr(now)
	rec.ResolvedBy = ptr(actor.ID)
}
