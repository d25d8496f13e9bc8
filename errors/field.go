package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field wraps err as the failure of a single attribute. It returns nil for a
// nil err.
//
// Name fields the way the Go struct does, for example Recipient. Nested
// fields use a dot (Quote.Scale) and list members their index
// (Signatures.2).
func Field(name string, err error, description string, args ...interface{}) error {
	if isNil(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{field: name, desc: description, parent: err}
}

// AppendField appends the field error of fieldErr, if any, to errs.
func AppendField(errs error, name string, fieldErr error) error {
	return Append(errs, Field(name, fieldErr, ""))
}

type fieldError struct {
	field  string
	desc   string
	parent error
}

func (e *fieldError) Error() string {
	if e.desc == "" {
		return fmt.Sprintf("field %q: %s", e.field, e.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", e.field, e.desc, e.parent)
}

func (e *fieldError) Cause() error  { return e.parent }
func (e *fieldError) Unwrap() error { return e.parent }

// FieldErrors returns every error of err that was created for the named
// field. A matching field error is returned as a whole, its causes are not
// searched any further.
func FieldErrors(err error, name string) []error {
	var found []error
	collectFields(err, name, &found)
	return found
}

func collectFields(err error, name string, found *[]error) {
	walk(err, func(cur error) bool {
		if f, ok := cur.(*fieldError); ok && f.field == name {
			*found = append(*found, cur)
			return true
		}
		if u, ok := cur.(unpacker); ok {
			for _, member := range u.Unpack() {
				collectFields(member, name, found)
			}
			return true
		}
		return false
	})
}
