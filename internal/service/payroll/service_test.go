package payroll

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testEmployee = user.Actor{ID: "emp-1", Role: user.RoleEmployee, FirstName: "Rina", LastName: "Wijaya"}
	testOther    = user.Actor{ID: "emp-2", Role: user.RoleEmployee, FirstName: "Budi", LastName: "Santoso"}
	testHR       = user.Actor{ID: "hr-1", Role: user.RoleHRAdmin, FirstName: "Dewi", LastName: "Lestari"}
	testAdmin    = user.Actor{ID: "admin-1", Role: user.RoleAdministrator, FirstName: "Agus", LastName: "Salim"}
)

type recordingEmitter struct {
	mu   sync.Mutex
	reqs []notification.CreateNotificationRequest
	err  error
}

func (e *recordingEmitter) Emit(ctx context.Context, req notification.CreateNotificationRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.reqs = append(e.reqs, req)
	return nil
}

func (e *recordingEmitter) sent() []notification.CreateNotificationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notification.CreateNotificationRequest(nil), e.reqs...)
}

func (e *recordingEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reqs = nil
}

type testEnv struct {
	svc        *PayrollServiceImpl
	repo       payroll.PayrollRepository
	allowances payroll.RecurringAllowanceRepository
	emitter    *recordingEmitter
	periods    int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	repo := memory.NewPayrollRepository(store)
	allowances := memory.NewRecurringAllowanceRepository(store)
	emitter := &recordingEmitter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		svc:        NewPayrollService(store, repo, allowances, emitter, logger),
		repo:       repo,
		allowances: allowances,
		emitter:    emitter,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// nextPeriod hands out a fresh (month, year) so seeded records never collide.
func (e *testEnv) nextPeriod() (int, int) {
	n := e.periods
	e.periods++
	return n%12 + 1, 2024 + n/12
}

func (e *testEnv) createRequest() payroll.CreatePayrollRecordRequest {
	month, year := e.nextPeriod()
	return payroll.CreatePayrollRecordRequest{
		EmployeeID:        testEmployee.ID,
		EmployeeFirstName: testEmployee.FirstName,
		EmployeeLastName:  testEmployee.LastName,
		PeriodMonth:       month,
		PeriodYear:        year,
		BaseSalary:        dec("3000"),
		Currency:          "USD",
		LineItems: []payroll.LineItemRequest{
			{Type: "bonus", Category: "performance", Description: "Q1 bonus", Amount: dec("200")},
			{Type: "deduction", Category: "tax", Description: "income tax", Amount: dec("150")},
		},
	}
}

// seed drives a fresh record through real operations until it reaches status.
func (e *testEnv) seed(t *testing.T, status payroll.PayrollStatus) string {
	t.Helper()
	ctx := context.Background()

	rec, err := e.svc.CreateRecord(ctx, testHR, e.createRequest())
	require.NoError(t, err)
	if status == payroll.PayrollStatusDraft {
		return rec.ID
	}

	_, err = e.svc.SubmitForApproval(ctx, testHR, rec.ID)
	require.NoError(t, err)
	switch status {
	case payroll.PayrollStatusPendingAdminApproval:
		return rec.ID
	case payroll.PayrollStatusRejected:
		_, err = e.svc.RejectRecord(ctx, testAdmin, rec.ID, payroll.RejectPayrollRequest{Notes: "wrong period"})
		require.NoError(t, err)
		return rec.ID
	}

	_, err = e.svc.ApproveAndSend(ctx, testAdmin, rec.ID)
	require.NoError(t, err)
	switch status {
	case payroll.PayrollStatusSentToEmployee:
		return rec.ID
	case payroll.PayrollStatusConfirmed:
		_, err = e.svc.Confirm(ctx, testEmployee, rec.ID, payroll.ConfirmPayrollRequest{})
		require.NoError(t, err)
		return rec.ID
	case payroll.PayrollStatusDisputed:
		_, err = e.svc.Dispute(ctx, testEmployee, rec.ID, payroll.DisputePayrollRequest{Reason: "wrong bonus"})
		require.NoError(t, err)
		return rec.ID
	}

	t.Fatalf("cannot seed status %s", status)
	return ""
}

func (e *testEnv) load(t *testing.T, id string) payroll.PayrollRecord {
	t.Helper()
	rec, err := e.repo.GetPayrollRecordByID(context.Background(), id)
	require.NoError(t, err)
	return rec
}

// Test CreateRecord computes totals from base salary and line items
func TestPayrollService_CreateRecord_ComputesTotals(t *testing.T) {
	env := newTestEnv(t)

	// Act
	resp, err := env.svc.CreateRecord(context.Background(), testHR, env.createRequest())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, string(payroll.PayrollStatusDraft), resp.Status)
	assert.True(t, dec("3200").Equal(resp.Totals.GrossTotal), "gross: %s", resp.Totals.GrossTotal)
	assert.True(t, dec("150").Equal(resp.Totals.TotalDeductions))
	assert.True(t, dec("3050").Equal(resp.Totals.NetTotal), "net: %s", resp.Totals.NetTotal)
	assert.Len(t, resp.LineItems, 2)
	assert.Equal(t, testHR.ID, resp.CreatedBy)
	assert.Equal(t, 1, resp.Version)

	history, err := env.svc.GetHistory(context.Background(), testHR, resp.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(payroll.OpCreateRecord), history[0].Action)
	assert.Nil(t, history[0].FromStatus)
}

// Test CreateRecord folds active recurring allowances into the allowance total
func TestPayrollService_CreateRecord_IncludesRecurringAllowances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.createRequest()

	_, err := env.svc.AssignRecurringAllowance(ctx, testHR, payroll.AssignRecurringAllowanceRequest{
		EmployeeID:    testEmployee.ID,
		Name:          "Transport",
		Amount:        dec("100"),
		Currency:      "usd",
		EffectiveDate: ptr("2020-01-01"),
	})
	require.NoError(t, err)

	resp, err := env.svc.CreateRecord(ctx, testHR, req)

	require.NoError(t, err)
	assert.True(t, dec("100").Equal(resp.Totals.TotalAllowances))
	assert.True(t, dec("3300").Equal(resp.Totals.GrossTotal))
	assert.True(t, dec("3150").Equal(resp.Totals.NetTotal))
	assert.Len(t, resp.LineItems, 2, "recurring allowances are not persisted as line items")
}

// Test CreateRecord rejects an allowance in another currency without persisting
func TestPayrollService_CreateRecord_CurrencyMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.AssignRecurringAllowance(ctx, testHR, payroll.AssignRecurringAllowanceRequest{
		EmployeeID:    testEmployee.ID,
		Name:          "Meal",
		Amount:        dec("50"),
		Currency:      "IDR",
		EffectiveDate: ptr("2020-01-01"),
	})
	require.NoError(t, err)

	_, err = env.svc.CreateRecord(ctx, testHR, env.createRequest())

	assert.ErrorIs(t, err, payroll.ErrCurrencyMismatch)
	list, err := env.svc.ListRecords(ctx, testHR, payroll.PayrollFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

// Test CreateRecord validation failures
func TestPayrollService_CreateRecord_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("negative line item", func(t *testing.T) {
		req := env.createRequest()
		req.LineItems[0].Amount = dec("-1")
		_, err := env.svc.CreateRecord(ctx, testHR, req)
		assert.ErrorIs(t, err, payroll.ErrInvalidAmount)
	})

	t.Run("malformed period", func(t *testing.T) {
		req := env.createRequest()
		req.PeriodMonth = 13
		_, err := env.svc.CreateRecord(ctx, testHR, req)
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Contains(t, verrs.ToMap(), "period_month")
	})

	t.Run("blank category", func(t *testing.T) {
		req := env.createRequest()
		req.LineItems[1].Category = "   "
		_, err := env.svc.CreateRecord(ctx, testHR, req)
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Contains(t, verrs.ToMap(), "line_items[1].category")
	})

	t.Run("employee cannot create", func(t *testing.T) {
		_, err := env.svc.CreateRecord(ctx, testEmployee, env.createRequest())
		assert.ErrorIs(t, err, payroll.ErrInvalidTransition)
	})
}

// Test a second active record for the same employee and period is refused
func TestPayrollService_CreateRecord_DuplicatePeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.createRequest()

	first, err := env.svc.CreateRecord(ctx, testHR, req)
	require.NoError(t, err)

	_, err = env.svc.CreateRecord(ctx, testAdmin, req)
	assert.ErrorIs(t, err, payroll.ErrDuplicatePeriod)

	// A rejected record frees the period
	_, err = env.svc.SubmitForApproval(ctx, testHR, first.ID)
	require.NoError(t, err)
	_, err = env.svc.RejectRecord(ctx, testAdmin, first.ID, payroll.RejectPayrollRequest{Notes: "base salary outdated"})
	require.NoError(t, err)

	second, err := env.svc.CreateRecord(ctx, testHR, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

// Test the happy path from draft to confirmed
func TestPayrollService_Lifecycle_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateRecord(ctx, testHR, env.createRequest())
	require.NoError(t, err)

	submitted, err := env.svc.SubmitForApproval(ctx, testHR, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(payroll.PayrollStatusPendingAdminApproval), submitted.Status)
	assert.NotNil(t, submitted.SubmittedAt)

	sent, err := env.svc.ApproveAndSend(ctx, testAdmin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(payroll.PayrollStatusSentToEmployee), sent.Status)
	require.NotNil(t, sent.ApprovedBy)
	assert.Equal(t, testAdmin.ID, *sent.ApprovedBy)
	assert.NotNil(t, sent.ApprovedAt)
	assert.NotNil(t, sent.DeliveredAt)
	assert.False(t, sent.HasPendingRevision)

	confirmed, err := env.svc.Confirm(ctx, testEmployee, created.ID, payroll.ConfirmPayrollRequest{Notes: ptr("  all good ")})
	require.NoError(t, err)
	assert.Equal(t, string(payroll.PayrollStatusConfirmed), confirmed.Status)
	assert.True(t, confirmed.Confirmed)
	require.NotNil(t, confirmed.ConfirmationNotes)
	assert.Equal(t, "all good", *confirmed.ConfirmationNotes)
	assert.Equal(t, 4, confirmed.Version)

	history, err := env.svc.GetHistory(ctx, testHR, created.ID)
	require.NoError(t, err)
	actions := make([]string, len(history))
	for i, h := range history {
		actions[i] = h.Action
	}
	assert.Equal(t, []string{"create_record", "submit_for_approval", "approve_and_send", "confirm"}, actions)
}

// Test approval of a non-positive statement is refused
func TestPayrollService_ApproveAndSend_InvalidAmount(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		items []payroll.LineItemRequest
	}{
		{name: "zero base, no items", base: "0"},
		{
			name:  "deductions cancel gross",
			base:  "1000",
			items: []payroll.LineItemRequest{{Type: "deduction", Category: "loan", Description: "loan repayment", Amount: dec("1000")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			req := env.createRequest()
			req.BaseSalary = dec(tt.base)
			req.LineItems = tt.items

			rec, err := env.svc.CreateRecord(ctx, testHR, req)
			require.NoError(t, err)
			_, err = env.svc.SubmitForApproval(ctx, testHR, rec.ID)
			require.NoError(t, err)
			before := env.load(t, rec.ID)

			_, err = env.svc.ApproveAndSend(ctx, testAdmin, rec.ID)

			assert.ErrorIs(t, err, payroll.ErrInvalidAmount)
			assert.Equal(t, before, env.load(t, rec.ID))
		})
	}
}

// Test only administrators approve, and never their own statement
func TestPayrollService_ApproveAndSend_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("hr admin cannot approve", func(t *testing.T) {
		id := env.seed(t, payroll.PayrollStatusPendingAdminApproval)
		_, err := env.svc.ApproveAndSend(ctx, testHR, id)
		assert.ErrorIs(t, err, payroll.ErrInvalidTransition)
	})

	t.Run("administrator cannot approve own statement", func(t *testing.T) {
		req := env.createRequest()
		req.EmployeeID = testAdmin.ID
		req.EmployeeFirstName = testAdmin.FirstName
		req.EmployeeLastName = testAdmin.LastName
		rec, err := env.svc.CreateRecord(ctx, testHR, req)
		require.NoError(t, err)
		_, err = env.svc.SubmitForApproval(ctx, testHR, rec.ID)
		require.NoError(t, err)

		_, err = env.svc.ApproveAndSend(ctx, testAdmin, rec.ID)
		assert.ErrorIs(t, err, payroll.ErrInvalidTransition)
	})

	t.Run("second account with the same name", func(t *testing.T) {
		id := env.seed(t, payroll.PayrollStatusPendingAdminApproval)
		alias := user.Actor{ID: "admin-9", Role: user.RoleAdministrator, FirstName: " rina ", LastName: "WIJAYA"}
		_, err := env.svc.ApproveAndSend(ctx, alias, id)
		assert.ErrorIs(t, err, payroll.ErrInvalidTransition)
	})
}

// Test every operation outside its allowed states fails and leaves the record untouched
func TestPayrollService_IllegalTransitions_LeaveRecordUnmodified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	revisedBase := dec("3100")

	calls := map[payroll.Operation]func(id string) error{
		payroll.OpSubmitForApproval: func(id string) error {
			_, err := env.svc.SubmitForApproval(ctx, testHR, id)
			return err
		},
		payroll.OpApproveAndSend: func(id string) error {
			_, err := env.svc.ApproveAndSend(ctx, testAdmin, id)
			return err
		},
		payroll.OpRejectRecord: func(id string) error {
			_, err := env.svc.RejectRecord(ctx, testAdmin, id, payroll.RejectPayrollRequest{Notes: "no"})
			return err
		},
		payroll.OpConfirm: func(id string) error {
			_, err := env.svc.Confirm(ctx, testEmployee, id, payroll.ConfirmPayrollRequest{})
			return err
		},
		payroll.OpDispute: func(id string) error {
			_, err := env.svc.Dispute(ctx, testEmployee, id, payroll.DisputePayrollRequest{Reason: "wrong bonus"})
			return err
		},
		payroll.OpRevise: func(id string) error {
			_, err := env.svc.Revise(ctx, testHR, id, payroll.RevisePayrollRequest{ResolutionNotes: "fix", BaseSalary: &revisedBase})
			return err
		},
		payroll.OpRejectDispute: func(id string) error {
			_, err := env.svc.RejectDispute(ctx, testHR, id, payroll.RejectDisputeRequest{ResolutionNotes: "figures are correct"})
			return err
		},
		payroll.OpDeleteRecord: func(id string) error {
			return env.svc.DeleteRecord(ctx, testHR, id)
		},
	}

	for _, status := range payroll.AllStatuses() {
		for op, call := range calls {
			if payroll.AllowedFrom(op, status) {
				continue
			}
			t.Run(string(op)+" from "+string(status), func(t *testing.T) {
				id := env.seed(t, status)
				before := env.load(t, id)
				historyBefore, err := env.repo.GetHistory(ctx, id)
				require.NoError(t, err)

				err = call(id)

				assert.ErrorIs(t, err, payroll.ErrInvalidTransition)
				assert.Equal(t, before, env.load(t, id))
				historyAfter, err := env.repo.GetHistory(ctx, id)
				require.NoError(t, err)
				assert.Len(t, historyAfter, len(historyBefore))
			})
		}
	}
}

// Test employees act only on their own statements
func TestPayrollService_Confirm_OnlyOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.seed(t, payroll.PayrollStatusSentToEmployee)

	_, err := env.svc.Confirm(ctx, testOther, id, payroll.ConfirmPayrollRequest{})
	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)

	_, err = env.svc.Dispute(ctx, testHR, id, payroll.DisputePayrollRequest{Reason: "not mine"})
	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)

	assert.Equal(t, payroll.PayrollStatusSentToEmployee, env.load(t, id).Status)
}

// Test operations on unknown records
func TestPayrollService_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.SubmitForApproval(ctx, testHR, "missing")
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)

	_, err = env.svc.GetRecord(ctx, testHR, "missing")
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)

	err = env.svc.DeleteRecord(ctx, testHR, "missing")
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)
}

// Test actor identity is required
func TestPayrollService_RequiresActor(t *testing.T) {
	env := newTestEnv(t)
	id := env.seed(t, payroll.PayrollStatusDraft)

	_, err := env.svc.SubmitForApproval(context.Background(), user.Actor{Role: user.RoleHRAdmin}, id)
	assert.ErrorIs(t, err, user.ErrActorRequired)

	_, err = env.svc.SubmitForApproval(context.Background(), user.Actor{ID: "x", Role: "manager"}, id)
	assert.ErrorIs(t, err, user.ErrInvalidRole)
}

// Test concurrent Confirm and Dispute: exactly one wins
func TestPayrollService_ConcurrentConfirmAndDispute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		id := env.seed(t, payroll.PayrollStatusSentToEmployee)

		var (
			wg         sync.WaitGroup
			start      = make(chan struct{})
			confirmErr error
			disputeErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, confirmErr = env.svc.Confirm(ctx, testEmployee, id, payroll.ConfirmPayrollRequest{})
		}()
		go func() {
			defer wg.Done()
			<-start
			_, disputeErr = env.svc.Dispute(ctx, testEmployee, id, payroll.DisputePayrollRequest{Reason: "double submit"})
		}()
		close(start)
		wg.Wait()

		final := env.load(t, id)
		switch {
		case confirmErr == nil:
			assert.ErrorIs(t, disputeErr, payroll.ErrInvalidTransition)
			assert.Equal(t, payroll.PayrollStatusConfirmed, final.Status)
			assert.False(t, final.Disputed)
		case disputeErr == nil:
			assert.ErrorIs(t, confirmErr, payroll.ErrInvalidTransition)
			assert.Equal(t, payroll.PayrollStatusDisputed, final.Status)
			assert.False(t, final.Confirmed)
		default:
			t.Fatalf("both operations failed: confirm=%v dispute=%v", confirmErr, disputeErr)
		}
	}
}

// Test RejectRecord requires notes and moves the record to a terminal state
func TestPayrollService_RejectRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.seed(t, payroll.PayrollStatusPendingAdminApproval)

	_, err := env.svc.RejectRecord(ctx, testAdmin, id, payroll.RejectPayrollRequest{Notes: "  "})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, payroll.PayrollStatusPendingAdminApproval, env.load(t, id).Status)

	resp, err := env.svc.RejectRecord(ctx, testAdmin, id, payroll.RejectPayrollRequest{Notes: "wrong base salary"})
	require.NoError(t, err)
	assert.Equal(t, string(payroll.PayrollStatusRejected), resp.Status)
	require.NotNil(t, resp.RejectionNotes)
	assert.Equal(t, "wrong base salary", *resp.RejectionNotes)
	assert.NotNil(t, resp.RejectedAt)

	env.svc.Wait()
	sent := env.emitter.sent()
	var rejected []notification.CreateNotificationRequest
	for _, n := range sent {
		if n.Type == notification.TypePayrollRejected {
			rejected = append(rejected, n)
		}
	}
	require.Len(t, rejected, 1)
	assert.Equal(t, testHR.ID, rejected[0].RecipientID)
}

// Test deletion is limited to early states
func TestPayrollService_DeleteRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.seed(t, payroll.PayrollStatusDraft)
	require.NoError(t, env.svc.DeleteRecord(ctx, testHR, draft))
	_, err := env.svc.GetRecord(ctx, testHR, draft)
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)

	pending := env.seed(t, payroll.PayrollStatusPendingAdminApproval)
	require.NoError(t, env.svc.DeleteRecord(ctx, testAdmin, pending))

	sent := env.seed(t, payroll.PayrollStatusSentToEmployee)
	assert.ErrorIs(t, env.svc.DeleteRecord(ctx, testAdmin, sent), payroll.ErrInvalidTransition)

	draft2 := env.seed(t, payroll.PayrollStatusDraft)
	assert.ErrorIs(t, env.svc.DeleteRecord(ctx, testEmployee, draft2), payroll.ErrInvalidTransition)
}

// Test notifications are emitted after each delivering transition
func TestPayrollService_EmitsNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.seed(t, payroll.PayrollStatusSentToEmployee)
	env.svc.Wait()

	sent := env.emitter.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notification.TypePayrollSent, sent[0].Type)
	assert.Equal(t, testEmployee.ID, sent[0].RecipientID)
	require.NotNil(t, sent[0].RecordID)
	assert.Equal(t, id, *sent[0].RecordID)
	assert.Contains(t, sent[0].Message, "3050.00 USD")

	env.emitter.reset()
	_, err := env.svc.Confirm(ctx, testEmployee, id, payroll.ConfirmPayrollRequest{})
	require.NoError(t, err)
	env.svc.Wait()

	recipients := map[string]notification.NotificationType{}
	for _, n := range env.emitter.sent() {
		recipients[n.RecipientID] = n.Type
	}
	assert.Equal(t, map[string]notification.NotificationType{
		testHR.ID:    notification.TypePayrollConfirmed,
		testAdmin.ID: notification.TypePayrollConfirmed,
	}, recipients)
}

// Test a failing emitter never fails the transition
func TestPayrollService_EmitterFailureDoesNotFailTransition(t *testing.T) {
	env := newTestEnv(t)
	env.emitter.err = errors.New("notification store down")
	ctx := context.Background()

	id := env.seed(t, payroll.PayrollStatusPendingAdminApproval)
	resp, err := env.svc.ApproveAndSend(ctx, testAdmin, id)
	env.svc.Wait()

	require.NoError(t, err)
	assert.Equal(t, string(payroll.PayrollStatusSentToEmployee), resp.Status)
	assert.Equal(t, payroll.PayrollStatusSentToEmployee, env.load(t, id).Status)
}

// Test employees only see their own delivered statements
func TestPayrollService_EmployeeVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.seed(t, payroll.PayrollStatusDraft)
	sent := env.seed(t, payroll.PayrollStatusSentToEmployee)

	_, err := env.svc.GetRecord(ctx, testEmployee, draft)
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)

	_, err = env.svc.GetRecord(ctx, testOther, sent)
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)

	resp, err := env.svc.GetRecord(ctx, testEmployee, sent)
	require.NoError(t, err)
	assert.Equal(t, sent, resp.ID)

	list, err := env.svc.ListRecords(ctx, testEmployee, payroll.PayrollFilter{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, sent, list.Data[0].ID)

	all, err := env.svc.ListRecords(ctx, testHR, payroll.PayrollFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.TotalCount)
}

// Test list filters and paging
func TestPayrollService_ListRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		env.seed(t, payroll.PayrollStatusDraft)
	}
	env.seed(t, payroll.PayrollStatusPendingAdminApproval)

	status := string(payroll.PayrollStatusDraft)
	list, err := env.svc.ListRecords(ctx, testHR, payroll.PayrollFilter{Status: &status, Limit: 2, SortBy: "period", SortOrder: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.TotalCount)
	require.Len(t, list.Data, 2)
	assert.Equal(t, 1, list.Data[0].PeriodMonth)
	assert.Equal(t, 2, list.Data[1].PeriodMonth)

	_, err = env.svc.ListRecords(ctx, testHR, payroll.PayrollFilter{SortBy: "salary"})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

// Test period summary counts and sums
func TestPayrollService_GetSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.seed(t, payroll.PayrollStatusDisputed)
	rec := env.load(t, id)

	summary, err := env.svc.GetSummary(ctx, testAdmin, rec.PeriodMonth, rec.PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRecords)
	assert.Equal(t, 1, summary.OpenDisputes)
	assert.Equal(t, 1, summary.StatusCounts[payroll.PayrollStatusDisputed])
	assert.True(t, dec("3050").Equal(summary.TotalsByCurrency["USD"].NetTotal))

	_, err = env.svc.GetSummary(ctx, testEmployee, rec.PeriodMonth, rec.PeriodYear)
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)

	_, err = env.svc.GetSummary(ctx, testAdmin, 0, rec.PeriodYear)
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
}

// Test reminders go to creators of stale records only
func TestPayrollService_SendReminders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending := env.seed(t, payroll.PayrollStatusPendingAdminApproval)
	env.seed(t, payroll.PayrollStatusSentToEmployee)
	env.seed(t, payroll.PayrollStatusDisputed)
	env.svc.Wait()
	env.emitter.reset()

	count, err := env.svc.SendReminders(ctx, 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)

	env.svc.now = func() time.Time { return time.Now().UTC().Add(72 * time.Hour) }
	count, err = env.svc.SendReminders(ctx, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sent := env.emitter.sent()
	require.Len(t, sent, 2)
	for _, n := range sent {
		assert.Equal(t, notification.TypePayrollReminder, n.Type)
		assert.Equal(t, testHR.ID, n.RecipientID)
	}
	assert.Contains(t, []string{*sent[0].RecordID, *sent[1].RecordID}, pending)
}
