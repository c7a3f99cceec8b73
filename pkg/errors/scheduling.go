package errors

// SchedulingCode classifies a rejected scheduling operation.
type SchedulingCode int

const (
	SchedulingInvalidInterval SchedulingCode = iota + 1
	SchedulingPastInterval
	SchedulingDoubleBooked
	SchedulingInvalidTransition
	SchedulingNotFound
)

// SchedulingError is returned for every expected booking rejection. Collaborator
// I/O failures during commit are surfaced verbatim instead, not wrapped here.
type SchedulingError struct {
	Code    SchedulingCode
	Message string
}

func (e *SchedulingError) Error() string {
	return e.Message
}

func InvalidInterval(message string) *SchedulingError {
	return &SchedulingError{Code: SchedulingInvalidInterval, Message: message}
}

func PastInterval(message string) *SchedulingError {
	return &SchedulingError{Code: SchedulingPastInterval, Message: message}
}

func DoubleBooked(message string) *SchedulingError {
	return &SchedulingError{Code: SchedulingDoubleBooked, Message: message}
}

func InvalidTransition(message string) *SchedulingError {
	return &SchedulingError{Code: SchedulingInvalidTransition, Message: message}
}

func AppointmentNotFound() *SchedulingError {
	return &SchedulingError{Code: SchedulingNotFound, Message: "appointment not found"}
}
