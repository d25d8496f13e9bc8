// Package assert holds the few assertions used across the custody test
// suites. Every assertion stops the test on failure.
package assert

import (
	"reflect"
	"testing"

	"github.com/iov-one/custody/errors"
	testify "github.com/stretchr/testify/assert"
)

// Tester is the part of testing.TB the assertions need.
type Tester interface {
	Helper()
	Fatal(...interface{})
	Fatalf(string, ...interface{})
}

// Nil fails unless value is nil or a nil pointer, map, slice, chan or func.
// An error is printed with its stack trace.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if !nillable(value) {
		t.Fatalf("want nil, got %+v", value)
	}
}

func nillable(value interface{}) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// Equal fails unless want and got are deeply equal and of the same type.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if !testify.ObjectsAreEqual(want, got) {
		t.Fatalf("not equal\nwant %T %v\n got %T %v", want, want, got, got)
	}
}

// Panics fails unless fn panics.
func Panics(t Tester, fn func()) {
	t.Helper()
	if !didPanic(fn) {
		t.Fatal("want a panic")
	}
}

func didPanic(fn func()) (panicked bool) {
	defer func() { panicked = recover() != nil }()
	fn()
	return false
}

// IsErr fails unless got is want or wraps it. Both may be nil.
func IsErr(t testing.TB, want, got error) {
	t.Helper()
	if want == got {
		return
	}
	if root, ok := want.(*errors.Error); ok && root.Is(got) {
		return
	}
	t.Fatalf("want %q error, got %+v", want, got)
}

// FieldError fails unless err holds exactly one error for the named field
// and that error wraps want. With a nil want it fails if err holds any
// error for the field.
func FieldError(t testing.TB, err error, field string, want *errors.Error) {
	t.Helper()
	found := errors.FieldErrors(err, field)
	switch {
	case want == nil && len(found) == 0:
		return
	case want == nil:
		t.Fatalf("want no error for %q, got %d: %v", field, len(found), found)
	case len(found) == 0:
		t.Fatalf("want %q error for %q, got none in %+v", want, field, err)
	case len(found) > 1:
		t.Fatalf("want one error for %q, got %d: %v", field, len(found), found)
	case !want.Is(found[0]):
		t.Fatalf("want %q error for %q, got %q", want, field, found[0])
	}
}
