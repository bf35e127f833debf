package payroll

import (
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
)

func toTotalsResponse(t payroll.Totals) payroll.TotalsResponse {
	return payroll.TotalsResponse{
		GrossTotal:      t.GrossTotal,
		TotalAllowances: t.TotalAllowances,
		TotalBonuses:    t.TotalBonuses,
		TotalDeductions: t.TotalDeductions,
		TotalOthers:     t.TotalOthers,
		NetTotal:        t.NetTotal,
	}
}

func toRecordResponse(rec payroll.PayrollRecord) payroll.PayrollRecordResponse {
	items := make([]payroll.LineItemResponse, len(rec.LineItems))
	for i, it := range rec.LineItems {
		items[i] = payroll.LineItemResponse{
			ID:          it.ID,
			Type:        string(it.Type),
			Category:    it.Category,
			Description: it.Description,
			Amount:      it.Amount,
		}
	}

	return payroll.PayrollRecordResponse{
		ID:                 rec.ID,
		EmployeeID:         rec.EmployeeID,
		EmployeeName:       strings.TrimSpace(rec.EmployeeFirstName + " " + rec.EmployeeLastName),
		PeriodMonth:        rec.PeriodMonth,
		PeriodYear:         rec.PeriodYear,
		BaseSalary:         rec.BaseSalary,
		Currency:           rec.Currency,
		Status:             string(rec.Status),
		Totals:             toTotalsResponse(rec.Totals),
		LineItems:          items,
		CreatedBy:          rec.CreatedBy,
		SubmittedAt:        rec.SubmittedAt,
		ApprovedBy:         rec.ApprovedBy,
		ApprovedAt:         rec.ApprovedAt,
		DeliveredAt:        rec.DeliveredAt,
		Confirmed:          rec.Confirmed,
		ConfirmedAt:        rec.ConfirmedAt,
		ConfirmationNotes:  rec.ConfirmationNotes,
		Disputed:           rec.Disputed,
		DisputeReason:      rec.DisputeReason,
		DisputedAt:         rec.DisputedAt,
		ResolutionNotes:    rec.ResolutionNotes,
		DisputeResolvedAt:  rec.ResolvedAt,
		RejectionNotes:     rec.RejectionNotes,
		RejectedAt:         rec.RejectedAt,
		RevisionCount:      rec.RevisionCount,
		HasPendingRevision: rec.HasPendingRevision,
		DisputeCycles:      rec.DisputeCycles,
		Version:            rec.Version,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
}

func toHistoryResponse(h payroll.PayrollHistory) payroll.PayrollHistoryResponse {
	resp := payroll.PayrollHistoryResponse{
		ID:         h.ID,
		Action:     string(h.Action),
		ActorID:    h.ActorID,
		ActorRole:  h.ActorRole,
		Note:       h.Note,
		OccurredAt: h.OccurredAt,
	}
	if h.FromStatus != nil {
		resp.FromStatus = ptr(string(*h.FromStatus))
	}
	if h.ToStatus != nil {
		resp.ToStatus = ptr(string(*h.ToStatus))
	}
	return resp
}

func toAllowanceResponse(a payroll.RecurringAllowance) payroll.RecurringAllowanceResponse {
	resp := payroll.RecurringAllowanceResponse{
		ID:            a.ID,
		EmployeeID:    a.EmployeeID,
		Name:          a.Name,
		Amount:        a.Amount,
		Currency:      a.Currency,
		Active:        a.Active,
		EffectiveDate: a.EffectiveDate.Format("2006-01-02"),
	}
	if a.EndDate != nil {
		resp.EndDate = ptr(a.EndDate.Format("2006-01-02"))
	}
	return resp
}
