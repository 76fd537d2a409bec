package config

import (
	"errors"
	"fmt"
)

// Error is a configuration problem. Configuration errors are fatal at startup.
type Error struct {
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is or wraps a config Error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
