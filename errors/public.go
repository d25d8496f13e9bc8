package errors

import (
	"errors"
	"fmt"
)

const (
	// SuccessCode is reported for a nil error.
	SuccessCode uint32 = 0

	internalCode uint32 = 1
	internalLog         = "internal error"
)

type coder interface {
	Code() uint32
}

// Code returns the code of the root error that err wraps. An error that
// does not wrap a root error has code 1.
func Code(err error) uint32 {
	if isNil(err) {
		return SuccessCode
	}
	code := internalCode
	walk(err, func(cur error) bool {
		if c, ok := cur.(coder); ok {
			code = c.Code()
			return true
		}
		return false
	})
	return code
}

// Public returns the code and message that can be presented to an API
// client. Outside of debug mode the message of an error that does not wrap a
// root error is replaced with "internal error". In debug mode the message
// includes the stack trace.
func Public(err error, debug bool) (uint32, string) {
	code := Code(err)
	switch {
	case code == SuccessCode:
		return code, ""
	case debug:
		return code, fmt.Sprintf("%+v", err)
	case code == internalCode:
		return code, internalLog
	default:
		return code, err.Error()
	}
}

// Redact replaces an error that does not wrap a root error, or that comes
// from a recovered panic, with a generic one. It is a no-op in debug mode.
func Redact(err error, debug bool) error {
	if debug {
		return err
	}
	if ErrPanic.Is(err) || Code(err) == internalCode {
		return errors.New(internalLog)
	}
	return err
}
