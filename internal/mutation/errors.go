package mutation

import "errors"

var (
	// ErrInFlight rejects a second instance of an operation that is still running.
	ErrInFlight = errors.New("operation already in flight")
	// ErrNothingToUpdate rejects an update that changes no field.
	ErrNothingToUpdate = errors.New("nothing to update")
)

// ValidationError is a payload problem caught before the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is (or joins) a local validation failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrNothingToUpdate)
}

// FieldErrors maps each invalid field to its message.
func FieldErrors(err error) map[string]string {
	fields := map[string]string{}
	collectFieldErrors(err, fields)
	return fields
}

func collectFieldErrors(err error, fields map[string]string) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			collectFieldErrors(inner, fields)
		}
		return
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		fields[verr.Field] = verr.Message
	}
}
