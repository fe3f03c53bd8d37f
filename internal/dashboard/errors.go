package dashboard

import "errors"

// Failure taxonomy. Every message is safe to show to the user.
var (
	ErrSessionUnresolved    = errors.New("loading session")
	ErrFetchFailed          = errors.New("failed to load readings")
	ErrInvalidValue         = errors.New("enter a valid value (mg/dL)")
	ErrInvalidTimestamp     = errors.New("enter a valid date and time")
	ErrWriteFailed          = errors.New("failed to save the reading, try again")
	ErrConfigurationMissing = errors.New("store configuration missing, check the environment variables")
	ErrSubmitInFlight       = errors.New("a submission is already in progress")
)

var userFacing = []error{
	ErrSessionUnresolved,
	ErrFetchFailed,
	ErrInvalidValue,
	ErrInvalidTimestamp,
	ErrWriteFailed,
	ErrConfigurationMissing,
	ErrSubmitInFlight,
}

// UserMessage maps err to the message of the taxonomy entry it wraps, so
// causes never leak into the UI.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, sentinel := range userFacing {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "something went wrong"
}

// FieldOf names the form field a validation error belongs to, or "" for
// dialog-level errors.
func FieldOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidValue):
		return FieldValue
	case errors.Is(err, ErrInvalidTimestamp):
		return FieldDate
	default:
		return ""
	}
}
