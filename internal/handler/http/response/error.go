package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Identity
	case errors.Is(err, user.ErrActorRequired), errors.Is(err, user.ErrInvalidRole):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")

	// Payroll domain errors
	case errors.Is(err, payroll.ErrPayrollRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrRecurringAllowanceNotFound):
		NotFound(w, "Recurring allowance not found")
	case errors.Is(err, payroll.ErrInvalidTransition):
		ConflictWithCode(w, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, payroll.ErrDuplicatePeriod):
		ConflictWithCode(w, "DUPLICATE_PERIOD", "Payroll record already exists for this employee and period")
	case errors.Is(err, payroll.ErrCurrencyMismatch):
		UnprocessableEntity(w, "CURRENCY_MISMATCH", err.Error())
	case errors.Is(err, payroll.ErrInvalidAmount):
		UnprocessableEntity(w, "INVALID_AMOUNT", err.Error())
	case errors.Is(err, payroll.ErrInvalidPeriod):
		UnprocessableEntity(w, "INVALID_PERIOD", err.Error())
	case errors.Is(err, payroll.ErrTransientFailure):
		ServiceUnavailable(w, "Temporarily unable to save changes, please retry")

	// Notification domain errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")
	case errors.Is(err, notification.ErrInvalidNotificationType):
		BadRequest(w, "Invalid notification type", nil)
	case errors.Is(err, notification.ErrUnauthorized):
		Forbidden(w, err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
