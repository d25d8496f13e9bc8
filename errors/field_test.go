package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldErrors(t *testing.T) {
	var (
		emptyRecipient = Field("Recipient", ErrEmpty, "required")
		badRecipient   = Field("Recipient", ErrInput, "not bech32")
		zeroAmount     = Field("Amount", ErrAmount, "must be positive")
		record         = Field("Record", Append(badRecipient, Append(zeroAmount, ErrState)), "")
	)

	cases := map[string]struct {
		err   error
		field string
		want  []error
	}{
		"single match": {
			err:   emptyRecipient,
			field: "Recipient",
			want:  []error{emptyRecipient},
		},
		"every match of a multi error": {
			err:   Append(emptyRecipient, zeroAmount, badRecipient),
			field: "Recipient",
			want:  []error{emptyRecipient, badRecipient},
		},
		"outer field is returned whole": {
			err:   record,
			field: "Record",
			want:  []error{record},
		},
		"nested field": {
			err:   record,
			field: "Amount",
			want:  []error{zeroAmount},
		},
		"wrapped field": {
			err:   Wrap(zeroAmount, "create lock"),
			field: "Amount",
			want:  []error{zeroAmount},
		},
		"nil": {
			err:   nil,
			field: "Amount",
			want:  nil,
		},
		"no field": {
			err:   ErrUnauthorized,
			field: "Amount",
			want:  nil,
		},
		"other field": {
			err:   emptyRecipient,
			field: "Amount",
			want:  nil,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, FieldErrors(tc.err, tc.field))
		})
	}
}

func TestFieldNil(t *testing.T) {
	assert.Nil(t, Field("Amount", nil, "ignored"))
	assert.Nil(t, AppendField(nil, "Amount", nil))
}

func TestFieldMessage(t *testing.T) {
	assert.EqualError(t,
		Field("Amount", ErrAmount, "must be %d or more", 1),
		`field "Amount": must be 1 or more: invalid amount`)
	assert.EqualError(t,
		Field("TxID", ErrEmpty, ""),
		`field "TxID": value is empty`)
}
