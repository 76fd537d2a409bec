package parser

import (
	"errors"
	"fmt"
)

// Input error codes.
const (
	ErrCodeNotFound    = "E101" // source does not exist
	ErrCodeUnreadable  = "E102" // source exists but cannot be read
	ErrCodeMalformed   = "E103" // not valid JSON/YAML, or not decodable into updates
	ErrCodeSchema      = "E104" // well-formed but violates the batch schema
	ErrCodeUnsupported = "E105" // unknown file extension
)

// InputError reports a batch that could not be acquired.
// Input errors are fatal: the run aborts before dispatch.
type InputError struct {
	Code    string
	Message string
	Path    string

	// Details lists individual schema violations (ErrCodeSchema only).
	Details []string

	Err error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (path=%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError returns true if err is or wraps an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
