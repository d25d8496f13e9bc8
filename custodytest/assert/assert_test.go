package assert

import (
	"fmt"
	"testing"

	"github.com/iov-one/custody/errors"
)

// failRecorder is a Tester that only remembers whether it failed.
type failRecorder struct {
	failed bool
}

func (r *failRecorder) Helper()                       {}
func (r *failRecorder) Fatal(...interface{})          { r.failed = true }
func (r *failRecorder) Fatalf(string, ...interface{}) { r.failed = true }

func TestNil(t *testing.T) {
	cases := map[string]struct {
		value    interface{}
		wantFail bool
	}{
		"nil":               {value: nil},
		"nil pointer":       {value: (*int)(nil)},
		"nil slice":         {value: []byte(nil)},
		"nil map":           {value: map[string]int(nil)},
		"empty slice":       {value: []byte{}, wantFail: true},
		"error":             {value: fmt.Errorf("x"), wantFail: true},
		"not a nil kind":    {value: 4, wantFail: true},
		"zero value struct": {value: struct{}{}, wantFail: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var r failRecorder
			Nil(&r, tc.value)
			if r.failed != tc.wantFail {
				t.Fatalf("want fail %v, got %v", tc.wantFail, r.failed)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	cases := map[string]struct {
		want, got interface{}
		wantFail  bool
	}{
		"same bytes":      {want: []byte("a"), got: []byte("a")},
		"same struct":     {want: struct{ N int }{1}, got: struct{ N int }{1}},
		"different value": {want: "a", got: "b", wantFail: true},
		"different type":  {want: 1, got: int64(1), wantFail: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var r failRecorder
			Equal(&r, tc.want, tc.got)
			if r.failed != tc.wantFail {
				t.Fatalf("want fail %v, got %v", tc.wantFail, r.failed)
			}
		})
	}
}

func TestPanics(t *testing.T) {
	var r failRecorder
	Panics(&r, func() { panic("x") })
	if r.failed {
		t.Fatal("function panicked")
	}
	Panics(&r, func() {})
	if !r.failed {
		t.Fatal("function did not panic")
	}
}

func TestIsErr(t *testing.T) {
	IsErr(t, nil, nil)
	IsErr(t, errors.ErrNotFound, errors.ErrNotFound)
	IsErr(t, errors.ErrNotFound, errors.Wrap(errors.ErrNotFound, "record"))
}

func TestFieldError(t *testing.T) {
	err := errors.Append(
		errors.Field("Amount", errors.ErrAmount, "zero"),
		errors.Field("Recipient", errors.ErrEmpty, ""),
	)
	FieldError(t, err, "Amount", errors.ErrAmount)
	FieldError(t, err, "Recipient", errors.ErrEmpty)
	FieldError(t, err, "TxID", nil)
}
