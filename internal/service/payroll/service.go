package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/google/uuid"
)

const defaultEmitTimeout = 10 * time.Second

type PayrollServiceImpl struct {
	tx            payroll.Transactor
	payrollRepo   payroll.PayrollRepository
	allowanceRepo payroll.RecurringAllowanceRepository
	emitter       notification.Emitter
	logger        *slog.Logger

	now         func() time.Time
	emitTimeout time.Duration
	emitting    sync.WaitGroup
}

func NewPayrollService(
	tx payroll.Transactor,
	payrollRepo payroll.PayrollRepository,
	allowanceRepo payroll.RecurringAllowanceRepository,
	emitter notification.Emitter,
	logger *slog.Logger,
) *PayrollServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollServiceImpl{
		tx:            tx,
		payrollRepo:   payrollRepo,
		allowanceRepo: allowanceRepo,
		emitter:       emitter,
		logger:        logger.With("component", "payroll"),
		now:           func() time.Time { return time.Now().UTC() },
		emitTimeout:   defaultEmitTimeout,
	}
}

var _ payroll.PayrollService = (*PayrollServiceImpl)(nil)

// Wait blocks until every notification handed off so far has reached the emitter.
func (s *PayrollServiceImpl) Wait() {
	s.emitting.Wait()
}

func checkActor(actor user.Actor) error {
	if actor.ID == "" {
		return user.ErrActorRequired
	}
	if !actor.Role.Valid() {
		return fmt.Errorf("%w: %q", user.ErrInvalidRole, actor.Role)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

// optionalNote trims s and returns nil when nothing is left.
func optionalNote(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// mutation applies an operation's effect to a locked record. It runs after
// the role, state and self guards and returns the note kept in history.
type mutation func(ctx context.Context, rec *payroll.PayrollRecord, now time.Time) (*string, error)

// transition runs op on record id as one transaction: lock, guard, mutate,
// compare-and-swap write, history append.
func (s *PayrollServiceImpl) transition(ctx context.Context, actor user.Actor, op payroll.Operation, id string, mutate mutation) (payroll.PayrollRecord, payroll.PayrollStatus, error) {
	if err := checkActor(actor); err != nil {
		return payroll.PayrollRecord{}, "", err
	}

	var (
		updated payroll.PayrollRecord
		from    payroll.PayrollStatus
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.payrollRepo.GetPayrollRecordForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = rec.Status

		if err := payroll.Authorize(actor, op, rec); err != nil {
			return err
		}

		now := s.now()
		note, err := mutate(ctx, &rec, now)
		if err != nil {
			return err
		}
		rec.Status = payroll.NextStatus(op)
		rec.UpdatedAt = now

		items := rec.LineItems
		updated, err = s.payrollRepo.UpdatePayrollRecord(ctx, rec)
		if err != nil {
			if errors.Is(err, payroll.ErrConcurrentModification) {
				return fmt.Errorf("%w: %w", payroll.ErrInvalidTransition, err)
			}
			return err
		}
		updated.LineItems = items

		return s.payrollRepo.AppendHistory(ctx, historyEntry(rec.ID, op, actor, &from, &rec.Status, note, now))
	})
	if err != nil {
		return payroll.PayrollRecord{}, from, err
	}

	s.logger.Info("payroll transition",
		"record_id", updated.ID,
		"action", op,
		"from", from,
		"to", updated.Status,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
		"version", updated.Version,
	)
	return updated, from, nil
}

func historyEntry(recordID string, op payroll.Operation, actor user.Actor, from, to *payroll.PayrollStatus, note *string, at time.Time) payroll.PayrollHistory {
	return payroll.PayrollHistory{
		ID:         uuid.Must(uuid.NewV7()).String(),
		RecordID:   recordID,
		Action:     op,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
		OccurredAt: at,
	}
}

// periodEnd is the last day of the payroll month, used to pick the
// recurring allowances in effect for that period.
func periodEnd(month, year int) time.Time {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
}

func (s *PayrollServiceImpl) computeTotals(ctx context.Context, rec payroll.PayrollRecord) (payroll.Totals, error) {
	allowances, err := s.allowanceRepo.GetActiveRecurringAllowances(ctx, rec.EmployeeID, periodEnd(rec.PeriodMonth, rec.PeriodYear))
	if err != nil {
		return payroll.Totals{}, fmt.Errorf("load recurring allowances: %w", err)
	}
	return payroll.Compute(rec.BaseSalary, rec.Currency, rec.LineItems, allowances)
}

// ========== LIFECYCLE ==========

func (s *PayrollServiceImpl) CreateRecord(ctx context.Context, actor user.Actor, req payroll.CreatePayrollRecordRequest) (payroll.PayrollRecordResponse, error) {
	if err := checkActor(actor); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	if !payroll.CanPerform(actor.Role, payroll.OpCreateRecord, false) {
		return payroll.PayrollRecordResponse{}, fmt.Errorf("%w: role %q cannot create payroll records", payroll.ErrInvalidTransition, actor.Role)
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	now := s.now()
	rec := payroll.PayrollRecord{
		ID:                uuid.Must(uuid.NewV7()).String(),
		EmployeeID:        strings.TrimSpace(req.EmployeeID),
		EmployeeFirstName: strings.TrimSpace(req.EmployeeFirstName),
		EmployeeLastName:  strings.TrimSpace(req.EmployeeLastName),
		PeriodMonth:       req.PeriodMonth,
		PeriodYear:        req.PeriodYear,
		BaseSalary:        req.BaseSalary,
		Currency:          payroll.NormalizeCurrency(req.Currency),
		Status:            payroll.NextStatus(payroll.OpCreateRecord),
		CreatedBy:         actor.ID,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
		LineItems:         payroll.ToLineItems(req.LineItems),
	}

	var created payroll.PayrollRecord
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.payrollRepo.HasActiveRecordForPeriod(ctx, rec.EmployeeID, rec.PeriodMonth, rec.PeriodYear)
		if err != nil {
			return err
		}
		if exists {
			return payroll.ErrDuplicatePeriod
		}

		totals, err := s.computeTotals(ctx, rec)
		if err != nil {
			return err
		}
		rec.Totals = totals

		created, err = s.payrollRepo.CreatePayrollRecord(ctx, rec)
		if err != nil {
			return err
		}
		return s.payrollRepo.AppendHistory(ctx, historyEntry(created.ID, payroll.OpCreateRecord, actor, nil, &created.Status, nil, now))
	})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.logger.Info("payroll record created",
		"record_id", created.ID,
		"employee_id", created.EmployeeID,
		"period", fmt.Sprintf("%04d-%02d", created.PeriodYear, created.PeriodMonth),
		"actor_id", actor.ID,
	)
	return toRecordResponse(created), nil
}

func (s *PayrollServiceImpl) SubmitForApproval(ctx context.Context, actor user.Actor, id string) (payroll.PayrollRecordResponse, error) {
	rec, _, err := s.transition(ctx, actor, payroll.OpSubmitForApproval, id,
		func(ctx context.Context, rec *payroll.PayrollRecord, now time.Time) (*string, error) {
			rec.SubmittedAt = ptr(now)
			return nil, nil
		})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return toRecordResponse(rec), nil
}

func (s *PayrollServiceImpl) ApproveAndSend(ctx context.Context, actor user.Actor, id string) (payroll.PayrollRecordResponse, error) {
	rec, _, err := s.transition(ctx, actor, payroll.OpApproveAndSend, id,
		func(ctx context.Context, rec *payroll.PayrollRecord, now time.Time) (*string, error) {
			if !rec.GrossTotal.IsPositive() || !rec.NetTotal.IsPositive() {
				return nil, fmt.Errorf("%w: gross %s and net %s must be positive to approve",
					payroll.ErrInvalidAmount, rec.GrossTotal.String(), rec.NetTotal.String())
			}
			rec.ApprovedBy = ptr(actor.ID)
			rec.ApprovedAt = ptr(now)
			rec.DeliveredAt = ptr(now)
			return nil, nil
		})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.emitAsync(ctx, s.notifyEmployee(rec, actor, notification.TypePayrollSent))
	return toRecordResponse(rec), nil
}

func (s *PayrollServiceImpl) RejectRecord(ctx context.Context, actor user.Actor, id string, req payroll.RejectPayrollRequest) (payroll.PayrollRecordResponse, error) {
	rec, _, err := s.transition(ctx, actor, payroll.OpRejectRecord, id,
		func(ctx context.Context, rec *payroll.PayrollRecord, now time.Time) (*string, error) {
			if err := req.Validate(); err != nil {
				return nil, err
			}
			notes := strings.TrimSpace(req.Notes)
			rec.RejectionNotes = &notes
			rec.RejectedAt = ptr(now)
			rec.RejectedBy = ptr(actor.ID)
			return &notes, nil
		})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.emitAsync(ctx, s.notifyPreparers(rec, actor, notification.TypePayrollRejected))
	return toRecordResponse(rec), nil
}

func (s *PayrollServiceImpl) Confirm(ctx context.Context, actor user.Actor, id string, req payroll.ConfirmPayrollRequest) (payroll.PayrollRecordResponse, error) {
	rec, _, err := s.transition(ctx, actor, payroll.OpConfirm, id,
		func(ctx context.Context, rec *payroll.PayrollRecord, now time.Time) (*string, error) {
			notes := optionalNote(req.Notes)
			rec.Confirmed = true
			rec.ConfirmedAt = ptr(now)
			rec.ConfirmationNotes = notes
			rec.HasPendingRevision = false
			return notes, nil
		})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.emitAsync(ctx, s.notifyPreparers(rec, actor, notification.TypePayrollConfirmed))
	return toRecordResponse(rec), nil
}

func (s *PayrollServiceImpl) DeleteRecord(ctx context.Context, actor user.Actor, id string) error {
	if err := checkActor(actor); err != nil {
		return err
	}

	var from payroll.PayrollStatus
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.payrollRepo.GetPayrollRecordForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = rec.Status
		if err := payroll.Authorize(actor, payroll.OpDeleteRecord, rec); err != nil {
			return err
		}
		return s.payrollRepo.DeletePayrollRecord(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("payroll record deleted", "record_id", id, "from", from, "actor_id", actor.ID, "actor_role", actor.Role)
	return nil
}

// ========== READ SIDE ==========

// visibleToEmployee reports whether the statement's employee may see it.
// Statements become visible once delivered.
func visibleToEmployee(status payroll.PayrollStatus) bool {
	switch status {
	case payroll.PayrollStatusDraft, payroll.PayrollStatusPendingAdminApproval, payroll.PayrollStatusRejected:
		return false
	}
	return true
}

func hiddenFromEmployee() []payroll.PayrollStatus {
	return []payroll.PayrollStatus{
		payroll.PayrollStatusDraft,
		payroll.PayrollStatusPendingAdminApproval,
		payroll.PayrollStatusRejected,
	}
}

func canView(actor user.Actor, rec payroll.PayrollRecord) bool {
	if user.HasPermission(actor.Role, user.PermissionPayrollViewAll) {
		return true
	}
	return user.CanPerform(actor.Role, user.PermissionPayrollViewOwn, actor.ID == rec.EmployeeID) &&
		visibleToEmployee(rec.Status)
}

func (s *PayrollServiceImpl) GetRecord(ctx context.Context, actor user.Actor, id string) (payroll.PayrollRecordResponse, error) {
	if err := checkActor(actor); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	rec, err := s.payrollRepo.GetPayrollRecordByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	if !canView(actor, rec) {
		// Not revealing records the caller cannot see
		return payroll.PayrollRecordResponse{}, payroll.ErrPayrollRecordNotFound
	}
	return toRecordResponse(rec), nil
}

func (s *PayrollServiceImpl) ListRecords(ctx context.Context, actor user.Actor, filter payroll.PayrollFilter) (payroll.ListPayrollRecordResponse, error) {
	if err := checkActor(actor); err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}
	if err := filter.Normalize(); err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}

	if !user.HasPermission(actor.Role, user.PermissionPayrollViewAll) {
		if !user.HasPermission(actor.Role, user.PermissionPayrollViewOwn) {
			return payroll.ListPayrollRecordResponse{}, user.ErrInsufficientPermissions
		}
		filter.EmployeeID = ptr(actor.ID)
		filter.ExcludeStatuses = hiddenFromEmployee()
	}

	records, total, err := s.payrollRepo.ListPayrollRecords(ctx, filter)
	if err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}

	data := make([]payroll.PayrollRecordResponse, len(records))
	for i, rec := range records {
		data[i] = toRecordResponse(rec)
	}
	return payroll.ListPayrollRecordResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) GetHistory(ctx context.Context, actor user.Actor, id string) ([]payroll.PayrollHistoryResponse, error) {
	if _, err := s.GetRecord(ctx, actor, id); err != nil {
		return nil, err
	}

	entries, err := s.payrollRepo.GetHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	result := make([]payroll.PayrollHistoryResponse, len(entries))
	for i, h := range entries {
		result[i] = toHistoryResponse(h)
	}
	return result, nil
}

func (s *PayrollServiceImpl) GetSummary(ctx context.Context, actor user.Actor, month, year int) (payroll.PayrollSummaryResponse, error) {
	if err := checkActor(actor); err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}
	if !user.HasPermission(actor.Role, user.PermissionPayrollViewAll) {
		return payroll.PayrollSummaryResponse{}, user.ErrInsufficientPermissions
	}
	if month < 1 || month > 12 || year < 2000 || year > 9999 {
		return payroll.PayrollSummaryResponse{}, fmt.Errorf("%w: %d-%d", payroll.ErrInvalidPeriod, year, month)
	}

	return s.payrollRepo.GetPayrollSummary(ctx, month, year)
}
