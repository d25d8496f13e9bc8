package errors

import (
	stdlib "errors"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	cases := map[string]struct {
		kind *Error
		err  error
		want bool
	}{
		"same root": {
			kind: ErrNotFound,
			err:  ErrNotFound,
			want: true,
		},
		"other root": {
			kind: ErrNotFound,
			err:  ErrDuplicate,
			want: false,
		},
		"wrapped by this package": {
			kind: ErrNotFinal,
			err:  Wrapf(ErrNotFinal, "%d of 6 confirmations", 2),
			want: true,
		},
		"wrapped by pkg/errors": {
			kind: ErrNotFound,
			err:  errors.Wrap(ErrNotFound, "gone"),
			want: true,
		},
		"stdlib error": {
			kind: ErrDependency,
			err:  fmt.Errorf("timeout"),
			want: false,
		},
		"nil kind matches nil": {
			kind: nil,
			err:  nil,
			want: true,
		},
		"nil kind matches typed nil": {
			kind: nil,
			err:  (*fieldError)(nil),
			want: true,
		},
		"nil kind does not match an error": {
			kind: nil,
			err:  ErrEmpty,
			want: false,
		},
		"kind does not match nil": {
			kind: ErrEmpty,
			err:  nil,
			want: false,
		},
		"any member of a multi error": {
			kind: ErrAmount,
			err:  Append(ErrEmpty, Wrap(ErrAmount, "zero")),
			want: true,
		},
		"no member of a multi error": {
			kind: ErrAmount,
			err:  Append(ErrEmpty, ErrState),
			want: false,
		},
		"field error": {
			kind: ErrEmpty,
			err:  Field("Recipient", ErrEmpty, "required"),
			want: true,
		},
		"multi error inside a field error": {
			kind: ErrState,
			err:  Field("Record", Append(ErrEmpty, ErrState), ""),
			want: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Is(tc.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))

	std := stdlib.New("eof")
	err := Wrap(Wrap(std, "read"), "decode")
	assert.EqualError(t, err, "decode: read: eof")
	assert.Equal(t, std, errors.Cause(err))
	assert.True(t, stdlib.Is(err, std))

	assert.EqualError(t, WithType(ErrType, int64(1)), "int64: invalid type")
}

func TestStdlibIsFollowsWrap(t *testing.T) {
	err := Wrapf(ErrDependency, "node %q", "btc-1")
	assert.True(t, stdlib.Is(err, ErrDependency))
}

func TestRegisterTakenCode(t *testing.T) {
	assert.Panics(t, func() { Register(ErrNotFound.Code(), "another not found") })
	assert.Panics(t, func() { Register(1, "internal") })
}

func TestRecover(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err)
		var m map[string]int
		m["boom"]++
		return nil
	}
	err := fn()
	assert.True(t, ErrPanic.Is(err), "%+v", err)
}
