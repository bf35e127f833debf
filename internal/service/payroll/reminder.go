package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
)

// SendReminders notifies creators of statements stuck awaiting approval or
// dispute resolution for longer than staleAfter. It returns how many
// reminders were handed to the emitter.
func (s *PayrollServiceImpl) SendReminders(ctx context.Context, staleAfter time.Duration) (int, error) {
	if s.emitter == nil {
		return 0, nil
	}

	cutoff := s.now().Add(-staleAfter)
	records, err := s.payrollRepo.ListStaleRecords(ctx, []payroll.PayrollStatus{
		payroll.PayrollStatusPendingAdminApproval,
		payroll.PayrollStatusDisputed,
	}, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale payroll records: %w", err)
	}

	sent := 0
	for _, rec := range records {
		if rec.CreatedBy == "" {
			continue
		}
		req := newNotification(notification.TypePayrollReminder, rec, rec.CreatedBy, nil)
		if err := s.emitter.Emit(ctx, req); err != nil {
			s.logger.Warn("failed to emit payroll reminder", "record_id", rec.ID, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("payroll reminders sent", "count", sent, "stale_after", staleAfter)
	}
	return sent, nil
}
