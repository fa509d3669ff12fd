package sharecode

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedCode  = errors.New("share code is malformed")
	ErrInvalidPayload = errors.New("share code payload is invalid")
)

// MalformedCodeError means the text could not be turned back into a JSON
// document: bad base64, bad percent escapes, invalid UTF-8 or broken JSON.
type MalformedCodeError struct {
	Stage string
	Err   error
}

func (e *MalformedCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed share code (%s)", e.Stage)
	}
	return fmt.Sprintf("malformed share code (%s): %v", e.Stage, e.Err)
}

func (e *MalformedCodeError) Unwrap() error { return e.Err }

func (e *MalformedCodeError) Is(target error) bool { return target == ErrMalformedCode }

// InvalidPayloadError means the document parsed but does not describe a
// game that can be imported.
type InvalidPayloadError struct {
	Field  string
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	if e.Field == "" {
		return "invalid share payload: " + e.Reason
	}
	return fmt.Sprintf("invalid share payload field %q: %s", e.Field, e.Reason)
}

func (e *InvalidPayloadError) Is(target error) bool { return target == ErrInvalidPayload }

func invalid(field, format string, args ...any) error {
	return &InvalidPayloadError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
