package core

import "github.com/pkg/errors"

// Error taxonomy shared by the portal packages.
// Concrete errors wrap one of these so callers can branch with errors.Is.
var (
	// ErrAuthentication: invalid credentials or a non-2xx login response.
	ErrAuthentication = errors.New("authentication failed")
	// ErrSessionCorrupt: persisted session data present but unparseable or incomplete.
	ErrSessionCorrupt = errors.New("persisted session is corrupt")
	// ErrTransport: the request never got an HTTP response.
	ErrTransport = errors.New("transport failure")
	// ErrStatus: the backend answered with a non-2xx status.
	ErrStatus = errors.New("unexpected response status")
	// ErrDecode: the backend answered 2xx with a body we cannot read.
	ErrDecode = errors.New("malformed response body")
	// ErrNormalizationGap: a wire record lacks a required identity field.
	ErrNormalizationGap = errors.New("record is missing a required identity field")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
