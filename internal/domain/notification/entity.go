package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypePayrollSent            NotificationType = "payroll_sent"
	TypePayrollConfirmed       NotificationType = "payroll_confirmed"
	TypePayrollDisputed        NotificationType = "payroll_disputed"
	TypePayrollRevised         NotificationType = "payroll_revised"
	TypePayrollDisputeRejected NotificationType = "payroll_dispute_rejected"
	TypePayrollRejected        NotificationType = "payroll_rejected"
	TypePayrollReminder        NotificationType = "payroll_reminder"
)

// AllNotificationTypes returns all available notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypePayrollSent,
		TypePayrollConfirmed,
		TypePayrollDisputed,
		TypePayrollRevised,
		TypePayrollDisputeRejected,
		TypePayrollRejected,
		TypePayrollReminder,
	}
}

// Valid reports whether t is a known notification type
func (t NotificationType) Valid() bool {
	for _, nt := range AllNotificationTypes() {
		if t == nt {
			return true
		}
	}
	return false
}

// Notification represents a notification entity
type Notification struct {
	ID          string
	RecipientID string
	SenderID    *string
	RecordID    *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// NotificationPreference represents user preference for a notification type.
// Notifications are always stored; PushEnabled only gates live delivery.
type NotificationPreference struct {
	ID               string
	UserID           string
	NotificationType NotificationType
	EmailEnabled     bool
	PushEnabled      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
