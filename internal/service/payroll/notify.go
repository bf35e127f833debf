package payroll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
)

var notificationTitles = map[notification.NotificationType]string{
	notification.TypePayrollSent:            "Payslip Available",
	notification.TypePayrollConfirmed:       "Payslip Confirmed",
	notification.TypePayrollDisputed:        "Payslip Disputed",
	notification.TypePayrollRevised:         "Payslip Revised",
	notification.TypePayrollDisputeRejected: "Dispute Rejected",
	notification.TypePayrollRejected:        "Payroll Rejected",
	notification.TypePayrollReminder:        "Payroll Awaiting Action",
}

func period(rec payroll.PayrollRecord) string {
	return time.Date(rec.PeriodYear, time.Month(rec.PeriodMonth), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

func employeeName(rec payroll.PayrollRecord) string {
	name := strings.TrimSpace(rec.EmployeeFirstName + " " + rec.EmployeeLastName)
	if name == "" {
		return rec.EmployeeID
	}
	return name
}

func notificationMessage(t notification.NotificationType, rec payroll.PayrollRecord) string {
	switch t {
	case notification.TypePayrollSent:
		return fmt.Sprintf("Your payslip for %s is ready. Net pay: %s %s.", period(rec), rec.NetTotal.StringFixed(2), rec.Currency)
	case notification.TypePayrollConfirmed:
		return fmt.Sprintf("%s confirmed the payslip for %s.", employeeName(rec), period(rec))
	case notification.TypePayrollDisputed:
		reason := ""
		if rec.DisputeReason != nil {
			reason = *rec.DisputeReason
		}
		return fmt.Sprintf("%s disputed the payslip for %s: %s", employeeName(rec), period(rec), reason)
	case notification.TypePayrollRevised:
		return fmt.Sprintf("Your payslip for %s was revised. Net pay is now %s %s. Please review and confirm.",
			period(rec), rec.NetTotal.StringFixed(2), rec.Currency)
	case notification.TypePayrollDisputeRejected:
		return fmt.Sprintf("Your dispute on the payslip for %s was reviewed and declined. Please review and confirm.", period(rec))
	case notification.TypePayrollRejected:
		return fmt.Sprintf("The payroll for %s (%s) was rejected by an administrator.", employeeName(rec), period(rec))
	case notification.TypePayrollReminder:
		if rec.Status == payroll.PayrollStatusDisputed {
			return fmt.Sprintf("The dispute on %s's payslip for %s is still open.", employeeName(rec), period(rec))
		}
		return fmt.Sprintf("The payroll for %s (%s) is still waiting for approval.", employeeName(rec), period(rec))
	}
	return ""
}

func newNotification(t notification.NotificationType, rec payroll.PayrollRecord, recipientID string, sender *string) notification.CreateNotificationRequest {
	return notification.CreateNotificationRequest{
		RecipientID: recipientID,
		SenderID:    sender,
		RecordID:    ptr(rec.ID),
		Type:        t,
		Title:       notificationTitles[t],
		Message:     notificationMessage(t, rec),
		Data: map[string]interface{}{
			"record_id":    rec.ID,
			"status":       string(rec.Status),
			"period_month": rec.PeriodMonth,
			"period_year":  rec.PeriodYear,
		},
	}
}

// notifyEmployee addresses the statement's employee.
func (s *PayrollServiceImpl) notifyEmployee(rec payroll.PayrollRecord, actor user.Actor, t notification.NotificationType) []notification.CreateNotificationRequest {
	if rec.EmployeeID == actor.ID {
		return nil
	}
	return []notification.CreateNotificationRequest{newNotification(t, rec, rec.EmployeeID, ptr(actor.ID))}
}

// notifyPreparers addresses the creator and the approver, once each,
// skipping the actor.
func (s *PayrollServiceImpl) notifyPreparers(rec payroll.PayrollRecord, actor user.Actor, t notification.NotificationType) []notification.CreateNotificationRequest {
	recipients := []string{rec.CreatedBy}
	if rec.ApprovedBy != nil {
		recipients = append(recipients, *rec.ApprovedBy)
	}

	seen := make(map[string]bool, len(recipients))
	var reqs []notification.CreateNotificationRequest
	for _, id := range recipients {
		if id == "" || id == actor.ID || seen[id] {
			continue
		}
		seen[id] = true
		reqs = append(reqs, newNotification(t, rec, id, ptr(actor.ID)))
	}
	return reqs
}

// emitAsync hands notifications to the emitter after commit without
// holding up the caller. Failures are logged only.
func (s *PayrollServiceImpl) emitAsync(ctx context.Context, reqs []notification.CreateNotificationRequest) {
	if s.emitter == nil || len(reqs) == 0 {
		return
	}

	s.emitting.Add(1)
	go func() {
		defer s.emitting.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.emitTimeout)
		defer cancel()

		for _, req := range reqs {
			if err := s.emitter.Emit(ctx, req); err != nil {
				s.logger.Error("failed to emit payroll notification",
					"record_id", *req.RecordID,
					"recipient_id", req.RecipientID,
					"type", req.Type,
					"error", err,
				)
			}
		}
	}()
}
