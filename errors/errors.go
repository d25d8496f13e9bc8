package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Root errors shared by all packages. Codes below 1000 are reserved for
// this package. Extensions register their own with Register.
var (
	ErrUnauthorized = Register(2, "unauthorized")
	ErrNotFound     = Register(3, "not found")
	// ErrMsg is returned for a request message that cannot be handled.
	ErrMsg = Register(4, "invalid message")
	// ErrModel is returned for an entity that cannot be persisted.
	ErrModel     = Register(5, "invalid model")
	ErrDuplicate = Register(6, "duplicate")
	// ErrHuman marks a code path that must never be reached.
	ErrHuman     = Register(7, "coding error")
	ErrImmutable = Register(8, "cannot be modified")
	ErrEmpty     = Register(9, "value is empty")
	ErrState     = Register(10, "invalid state")
	ErrType      = Register(11, "invalid type")
	ErrAmount    = Register(13, "invalid amount")
	ErrInput     = Register(14, "invalid input")
	ErrOverflow  = Register(16, "an operation cannot be completed due to value overflow")
	ErrDatabase  = Register(17, "database")

	// ErrIteratorDone is returned by an iterator once all of its items
	// were consumed.
	ErrIteratorDone = Register(18, "iterator done")

	// ErrDependency is returned when an external collaborator (source
	// chain node, destination ledger, price source) fails.
	ErrDependency = Register(20, "dependency failure")

	// ErrNotFinal is returned when a source transaction is not confirmed
	// deep enough to be considered final.
	ErrNotFinal = Register(21, "not final")

	// ErrUnavailable is returned when a value cannot be served right now,
	// for example when no fresh price quote exists.
	ErrUnavailable = Register(22, "unavailable")

	// ErrLookup is returned when an external lookup does not know the
	// requested entity.
	ErrLookup   = Register(23, "lookup failed")
	ErrDelivery = Register(24, "delivery failed")

	// ErrPanic is set by Recover only. Its message is never exposed.
	ErrPanic = Register(111222, "panic")
)

// registry maps a code to its root error. Code 1 stands for any error that
// was not created from a root error.
var registry = map[uint32]*Error{
	internalCode: {code: internalCode, desc: internalLog},
}

// Register declares a new root error. It panics if the code is taken, so it
// must only be called while initializing package variables.
func Register(code uint32, description string) *Error {
	if prev, ok := registry[code]; ok {
		panic(fmt.Sprintf("error code %d is taken by %q", code, prev.desc))
	}
	e := &Error{code: code, desc: description}
	registry[code] = e
	return e
}

// Error is a root error. Every error returned at runtime should wrap one.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string {
	return e.desc
}

// Code returns the registered code.
func (e Error) Code() uint32 {
	return e.code
}

// New is a shortcut for Wrap(e, description).
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

func (e *Error) Newf(format string, args ...interface{}) error {
	return Wrap(e, fmt.Sprintf(format, args...))
}

// Is reports whether err is e or wraps it. For an error holding many errors
// it is enough that one of them matches.
func (e *Error) Is(err error) bool {
	if e == nil {
		return isNil(err)
	}
	return walk(err, func(cur error) bool { return cur == e })
}

// walk calls visit for err and every error it wraps until visit returns
// true. Members of a multi error are visited depth first.
func walk(err error, visit func(error) bool) bool {
	for err != nil {
		if visit(err) {
			return true
		}
		if u, ok := err.(unpacker); ok {
			for _, member := range u.Unpack() {
				if walk(member, visit) {
					return true
				}
			}
			return false
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

// Wrap adds description to err. It returns nil for a nil err, so it can
// wrap the final return value of a function directly.
//
// A stack trace is attached at the innermost wrap only.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	return &wrappedError{parent: err, msg: description}
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.parent.Error()
}

func (e *wrappedError) Cause() error {
	return e.parent
}

// Unwrap lets the standard library errors.Is and errors.As follow the chain.
func (e *wrappedError) Unwrap() error {
	return e.parent
}

// Recover turns a panic into an ErrPanic assigned to err. It must be called
// with defer.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

// WithType wraps err with the Go type name of obj.
func WithType(err error, obj interface{}) error {
	return Wrapf(err, "%T", obj)
}

// isNil also recognizes a typed nil pointer stored in the interface.
func isNil(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

type causer interface {
	Cause() error
}
