package datasource

import (
	"errors"
	"fmt"
)

// Error classes of the data source boundary. Every error returned by a
// DataSource matches exactly one of them with errors.Is.
var (
	// ErrSourceUnavailable covers network failures, timeouts, 5xx, rate limiting and an open circuit.
	ErrSourceUnavailable = errors.New("data source unavailable")
	// ErrMalformedData covers responses that cannot be decoded into results.
	ErrMalformedData = errors.New("malformed data")
	// ErrNoData covers well-formed responses that carry no results for the request.
	ErrNoData = errors.New("no data")
)

// Error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
	ErrCodeCircuitOpen       = "circuit_open"
	ErrCodeNotFound          = "not_found"
	ErrCodeEmpty             = "empty"
	ErrCodeInvalidData       = "invalid_data"
)

// SourceError represents errors from data source operations
type SourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string
	Err     error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (%v)", e.Source, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is maps the error code onto its class
func (e *SourceError) Is(target error) bool {
	return target == e.Class()
}

// Class returns the sentinel the error belongs to
func (e *SourceError) Class() error {
	switch e.Code {
	case ErrCodeNotFound, ErrCodeEmpty:
		return ErrNoData
	case ErrCodeInvalidData:
		return ErrMalformedData
	default:
		return ErrSourceUnavailable
	}
}

// NewSourceError creates a new data source error
func NewSourceError(source, code, message string, err error) *SourceError {
	return &SourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsRecoverable reports whether err belongs to a class the pipeline skips past
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrMalformedData) || errors.Is(err, ErrNoData)
}
