package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusDraft                PayrollStatus = "draft"
	PayrollStatusPendingAdminApproval PayrollStatus = "pending_admin_approval"
	PayrollStatusSentToEmployee       PayrollStatus = "sent_to_employee"
	PayrollStatusConfirmed            PayrollStatus = "confirmed"
	PayrollStatusDisputed             PayrollStatus = "disputed"
	PayrollStatusRejected             PayrollStatus = "rejected"
)

// AllStatuses returns every lifecycle state
func AllStatuses() []PayrollStatus {
	return []PayrollStatus{
		PayrollStatusDraft,
		PayrollStatusPendingAdminApproval,
		PayrollStatusSentToEmployee,
		PayrollStatusConfirmed,
		PayrollStatusDisputed,
		PayrollStatusRejected,
	}
}

func (s PayrollStatus) Valid() bool {
	for _, st := range AllStatuses() {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no operation can leave s.
func (s PayrollStatus) IsTerminal() bool {
	return s == PayrollStatusConfirmed || s == PayrollStatusRejected
}

// LineItemType enum
type LineItemType string

const (
	LineItemTypeBonus     LineItemType = "bonus"
	LineItemTypeAllowance LineItemType = "allowance"
	LineItemTypeOther     LineItemType = "other"
	LineItemTypeDeduction LineItemType = "deduction"
)

func (t LineItemType) Valid() bool {
	switch t {
	case LineItemTypeBonus, LineItemTypeAllowance, LineItemTypeOther, LineItemTypeDeduction:
		return true
	}
	return false
}

// LineItem - Categorized amount attached to one record, in the record currency.
// Amount is always stored positive; Type decides its effect.
type LineItem struct {
	ID          string
	RecordID    string
	Type        LineItemType
	Category    string
	Description string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

// RecurringAllowance - Standing monthly allowance owned by the employee profile
type RecurringAllowance struct {
	ID            string
	EmployeeID    string
	Name          string
	Amount        decimal.Decimal
	Currency      string
	Active        bool
	EffectiveDate time.Time
	EndDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Totals - Computed figures of a statement
type Totals struct {
	GrossTotal      decimal.Decimal
	TotalAllowances decimal.Decimal
	TotalBonuses    decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalOthers     decimal.Decimal
	NetTotal        decimal.Decimal
}

// PayrollRecord - One compensation statement for one employee and one period
type PayrollRecord struct {
	ID                string
	EmployeeID        string
	EmployeeFirstName string
	EmployeeLastName  string
	PeriodMonth       int
	PeriodYear        int
	BaseSalary        decimal.Decimal
	Currency          string
	Status            PayrollStatus
	Totals

	CreatedBy   string
	SubmittedAt *time.Time
	ApprovedBy  *string
	ApprovedAt  *time.Time
	DeliveredAt *time.Time

	Confirmed         bool
	ConfirmedAt       *time.Time
	ConfirmationNotes *string

	Disputed      bool
	DisputeReason *string
	DisputedAt    *time.Time
	DisputedBy    *string

	ResolutionNotes *string
	ResolvedAt      *time.Time
	ResolvedBy      *string

	RejectionNotes *string
	RejectedAt     *time.Time
	RejectedBy     *string

	RevisionCount      int
	HasPendingRevision bool
	DisputeCycles      int

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	LineItems []LineItem
}

// PayrollHistory - Append-only audit entry, one per successful operation
type PayrollHistory struct {
	ID         string
	RecordID   string
	Action     Operation
	ActorID    string
	ActorRole  string
	FromStatus *PayrollStatus
	ToStatus   *PayrollStatus
	Note       *string
	OccurredAt time.Time
}
