package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== LINE ITEM DTOs ==========

type LineItemRequest struct {
	Type        string          `json:"type"` // "bonus", "allowance", "other" or "deduction"
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type LineItemResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// ValidateLineItems checks a replacement item set. Negative amounts are
// reported as ErrInvalidAmount; structural problems as ValidationErrors.
func ValidateLineItems(items []LineItemRequest) error {
	for i, it := range items {
		if it.Amount.IsNegative() {
			return fmt.Errorf("%w: line_items[%d].amount must be non-negative", ErrInvalidAmount, i)
		}
	}

	var errs validator.ValidationErrors
	for i, it := range items {
		field := fmt.Sprintf("line_items[%d]", i)
		if !LineItemType(it.Type).Valid() {
			errs = append(errs, validator.ValidationError{Field: field + ".type", Message: "must be 'bonus', 'allowance', 'other' or 'deduction'"})
		}
		if validator.IsEmpty(it.Category) {
			errs = append(errs, validator.ValidationError{Field: field + ".category", Message: "is required"})
		}
		if validator.IsEmpty(it.Description) {
			errs = append(errs, validator.ValidationError{Field: field + ".description", Message: "is required"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToLineItems converts validated requests into entities.
func ToLineItems(items []LineItemRequest) []LineItem {
	result := make([]LineItem, 0, len(items))
	for _, it := range items {
		result = append(result, LineItem{
			Type:        LineItemType(it.Type),
			Category:    validator.Trim(it.Category),
			Description: validator.Trim(it.Description),
			Amount:      it.Amount,
		})
	}
	return result
}

// ========== PAYROLL RECORD DTOs ==========

type CreatePayrollRecordRequest struct {
	EmployeeID        string            `json:"employee_id"`
	EmployeeFirstName string            `json:"employee_first_name"`
	EmployeeLastName  string            `json:"employee_last_name"`
	PeriodMonth       int               `json:"period_month"`
	PeriodYear        int               `json:"period_year"`
	BaseSalary        decimal.Decimal   `json:"base_salary"`
	Currency          string            `json:"currency"`
	LineItems         []LineItemRequest `json:"line_items"`
}

func (r *CreatePayrollRecordRequest) Validate() error {
	if r.BaseSalary.IsNegative() {
		return fmt.Errorf("%w: base_salary must be non-negative", ErrInvalidAmount)
	}
	if err := ValidateLineItems(r.LineItems); err != nil {
		return err
	}

	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.PeriodMonth < 1 || r.PeriodMonth > 12 {
		errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12"})
	}
	if r.PeriodYear < 2000 || r.PeriodYear > 9999 {
		errs = append(errs, validator.ValidationError{Field: "period_year", Message: "must be between 2000 and 9999"})
	}
	if !validator.IsValidCurrencyCode(NormalizeCurrency(r.Currency)) {
		errs = append(errs, validator.ValidationError{Field: "currency", Message: "must be a 3-letter ISO 4217 code"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ConfirmPayrollRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type DisputePayrollRequest struct {
	Reason string `json:"reason"`
}

func (r *DisputePayrollRequest) Validate() error {
	if validator.IsEmpty(r.Reason) {
		return validator.ValidationErrors{{Field: "reason", Message: "is required"}}
	}
	return nil
}

// RevisePayrollRequest replaces the full line-item set and/or the base salary.
// A nil LineItems keeps the current items; an empty non-nil slice clears them.
type RevisePayrollRequest struct {
	ResolutionNotes string             `json:"resolution_notes"`
	BaseSalary      *decimal.Decimal   `json:"base_salary,omitempty"`
	LineItems       *[]LineItemRequest `json:"line_items,omitempty"`
}

func (r *RevisePayrollRequest) Validate() error {
	if r.BaseSalary != nil && r.BaseSalary.IsNegative() {
		return fmt.Errorf("%w: base_salary must be non-negative", ErrInvalidAmount)
	}
	if r.LineItems != nil {
		if err := ValidateLineItems(*r.LineItems); err != nil {
			return err
		}
	}

	var errs validator.ValidationErrors
	if validator.IsEmpty(r.ResolutionNotes) {
		errs = append(errs, validator.ValidationError{Field: "resolution_notes", Message: "is required"})
	}
	if r.BaseSalary == nil && r.LineItems == nil {
		errs = append(errs, validator.ValidationError{Field: "line_items", Message: "base_salary or line_items is required for a revision"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RejectDisputeRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

func (r *RejectDisputeRequest) Validate() error {
	if validator.IsEmpty(r.ResolutionNotes) {
		return validator.ValidationErrors{{Field: "resolution_notes", Message: "is required"}}
	}
	return nil
}

type RejectPayrollRequest struct {
	Notes string `json:"notes"`
}

func (r *RejectPayrollRequest) Validate() error {
	if validator.IsEmpty(r.Notes) {
		return validator.ValidationErrors{{Field: "notes", Message: "is required"}}
	}
	return nil
}

type ComputePreviewRequest struct {
	EmployeeID string            `json:"employee_id"`
	BaseSalary decimal.Decimal   `json:"base_salary"`
	Currency   string            `json:"currency"`
	LineItems  []LineItemRequest `json:"line_items"`

	// PeriodMonth and PeriodYear pick the allowances in effect for that
	// payroll month. Zero means the current month.
	PeriodMonth int `json:"period_month,omitempty"`
	PeriodYear  int `json:"period_year,omitempty"`
}

func (r *ComputePreviewRequest) Validate() error {
	if r.BaseSalary.IsNegative() {
		return fmt.Errorf("%w: base_salary must be non-negative", ErrInvalidAmount)
	}
	if err := ValidateLineItems(r.LineItems); err != nil {
		return err
	}

	var errs validator.ValidationErrors
	if !validator.IsValidCurrencyCode(NormalizeCurrency(r.Currency)) {
		errs = append(errs, validator.ValidationError{Field: "currency", Message: "must be a 3-letter ISO 4217 code"})
	}
	if r.PeriodMonth != 0 || r.PeriodYear != 0 {
		if r.PeriodMonth < 1 || r.PeriodMonth > 12 {
			errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12"})
		}
		if r.PeriodYear < 2000 || r.PeriodYear > 9999 {
			errs = append(errs, validator.ValidationError{Field: "period_year", Message: "must be between 2000 and 9999"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type TotalsResponse struct {
	GrossTotal      decimal.Decimal `json:"gross_total"`
	TotalAllowances decimal.Decimal `json:"total_allowances"`
	TotalBonuses    decimal.Decimal `json:"total_bonuses"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	TotalOthers     decimal.Decimal `json:"total_others"`
	NetTotal        decimal.Decimal `json:"net_total"`
}

type PayrollRecordResponse struct {
	ID                 string             `json:"id"`
	EmployeeID         string             `json:"employee_id"`
	EmployeeName       string             `json:"employee_name"`
	PeriodMonth        int                `json:"period_month"`
	PeriodYear         int                `json:"period_year"`
	BaseSalary         decimal.Decimal    `json:"base_salary"`
	Currency           string             `json:"currency"`
	Status             string             `json:"status"`
	Totals             TotalsResponse     `json:"totals"`
	LineItems          []LineItemResponse `json:"line_items"`
	CreatedBy          string             `json:"created_by"`
	SubmittedAt        *time.Time         `json:"submitted_at,omitempty"`
	ApprovedBy         *string            `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time         `json:"approved_at,omitempty"`
	DeliveredAt        *time.Time         `json:"delivered_at,omitempty"`
	Confirmed          bool               `json:"confirmed"`
	ConfirmedAt        *time.Time         `json:"confirmed_at,omitempty"`
	ConfirmationNotes  *string            `json:"confirmation_notes,omitempty"`
	Disputed           bool               `json:"disputed"`
	DisputeReason      *string            `json:"dispute_reason,omitempty"`
	DisputedAt         *time.Time         `json:"disputed_at,omitempty"`
	ResolutionNotes    *string            `json:"resolution_notes,omitempty"`
	DisputeResolvedAt  *time.Time         `json:"dispute_resolved_at,omitempty"`
	RejectionNotes     *string            `json:"rejection_notes,omitempty"`
	RejectedAt         *time.Time         `json:"rejected_at,omitempty"`
	RevisionCount      int                `json:"revision_count"`
	HasPendingRevision bool               `json:"has_pending_revision"`
	DisputeCycles      int                `json:"dispute_cycles"`
	Version            int                `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type PayrollFilter struct {
	PeriodMonth *int    `json:"period_month,omitempty"`
	PeriodYear  *int    `json:"period_year,omitempty"`
	Status      *string `json:"status,omitempty"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
	SortBy      string  `json:"sort_by"`
	SortOrder   string  `json:"sort_order"`

	// ExcludeStatuses hides records the caller may not see
	ExcludeStatuses []PayrollStatus `json:"-"`
}

var sortableFields = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"period":        true,
	"net_total":     true,
	"employee_name": true,
}

// Normalize applies paging defaults and validates the filter values.
func (f *PayrollFilter) Normalize() error {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}

	var errs validator.ValidationErrors
	if !sortableFields[f.SortBy] {
		errs = append(errs, validator.ValidationError{Field: "sort_by", Message: "must be one of created_at, updated_at, period, net_total, employee_name"})
	}
	if !validator.IsInSlice(f.SortOrder, []string{"asc", "desc"}) {
		errs = append(errs, validator.ValidationError{Field: "sort_order", Message: "must be 'asc' or 'desc'"})
	}
	if f.Status != nil && !PayrollStatus(*f.Status).Valid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "is not a valid payroll status"})
	}
	if f.PeriodMonth != nil && (*f.PeriodMonth < 1 || *f.PeriodMonth > 12) {
		errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListPayrollRecordResponse struct {
	Data       []PayrollRecordResponse `json:"data"`
	TotalCount int64                   `json:"total_count"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
}

type PayrollHistoryResponse struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	FromStatus *string   `json:"from_status,omitempty"`
	ToStatus   *string   `json:"to_status,omitempty"`
	Note       *string   `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PayrollSummaryResponse struct {
	PeriodMonth           int                    `json:"period_month"`
	PeriodYear            int                    `json:"period_year"`
	TotalRecords          int                    `json:"total_records"`
	StatusCounts          map[PayrollStatus]int  `json:"status_counts"`
	TotalsByCurrency      map[string]CurrencySum `json:"totals_by_currency"`
	OpenDisputes          int                    `json:"open_disputes"`
	PendingReconfirmation int                    `json:"pending_reconfirmation"`
}

type CurrencySum struct {
	GrossTotal decimal.Decimal `json:"gross_total"`
	NetTotal   decimal.Decimal `json:"net_total"`
}

// ========== RECURRING ALLOWANCE DTOs ==========

type AssignRecurringAllowanceRequest struct {
	EmployeeID    string          `json:"-"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	EffectiveDate *string         `json:"effective_date,omitempty"`
	EndDate       *string         `json:"end_date,omitempty"`
}

func (r *AssignRecurringAllowanceRequest) Validate() error {
	if r.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidAmount)
	}

	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "is required"})
	}
	if !validator.IsValidCurrencyCode(NormalizeCurrency(r.Currency)) {
		errs = append(errs, validator.ValidationError{Field: "currency", Message: "must be a 3-letter ISO 4217 code"})
	}
	var effective, end validator.Date
	var hasEffective, hasEnd bool
	if r.EffectiveDate != nil {
		d, err := validator.ParseDate(*r.EffectiveDate)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: "effective_date", Message: "must be YYYY-MM-DD"})
		} else {
			effective, hasEffective = d, true
		}
	}
	if r.EndDate != nil {
		d, err := validator.ParseDate(*r.EndDate)
		if err != nil {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be YYYY-MM-DD"})
		} else {
			end, hasEnd = d, true
		}
	}
	if hasEffective && hasEnd && end.Before(effective) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must not be before effective_date"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RecurringAllowanceResponse struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Active        bool            `json:"active"`
	EffectiveDate string          `json:"effective_date"`
	EndDate       *string         `json:"end_date,omitempty"`
}
