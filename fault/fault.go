package fault

import (
	"errors"
	"fmt"
)

type faultCode string

const (
	UnknownCode          faultCode = "unknown"
	NotFoundCode         faultCode = "not_found"
	BadInputCode         faultCode = "bad_input"
	ConflictCode         faultCode = "conflict"
	PermissionDeniedCode faultCode = "permission_denied"
)

type FieldErrorsMetadata map[string][]string

// Fault is an error carrying a code the api layer maps to a status,
// a user facing message and optional metadata.
type Fault struct {
	code     faultCode
	message  string
	metadata any
	original error
}

func New(code faultCode, message string) Fault {
	return Fault{
		code:    code,
		message: message,
	}
}

func (f Fault) WithMetadata(metadata any) Fault {
	e := f
	e.metadata = metadata
	return e
}

func (f Fault) WithOriginal(original error) Fault {
	e := f
	e.original = original
	return e
}

func (f Fault) Code() faultCode {
	return f.code
}

func (f Fault) Message() string {
	return f.message
}

func (f Fault) Metadata() any {
	return f.metadata
}

func (f Fault) Original() error {
	return f.original
}

func (f Fault) Unwrap() error {
	return f.original
}

func (f Fault) Error() string {
	switch {
	case f.original != nil && f.message != "":
		return fmt.Sprintf("%s: %v", f.message, f.original)
	case f.original != nil:
		return f.original.Error()
	case f.message != "":
		return f.message
	default:
		return string(f.code)
	}
}

// HasCode reports whether err is, or wraps, a Fault with the given code.
func HasCode(err error, code faultCode) bool {
	var f Fault
	return errors.As(err, &f) && f.code == code
}
