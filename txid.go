package custody

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/iov-one/custody/errors"
)

// TxIDLength is the size of a source chain transaction id.
const TxIDLength = 32

// TxID identifies a transaction on the source chain. It is also the primary
// key of a lock record.
//
// Bytes are kept in the order the node RPC and block explorers display them,
// so that String and ParseTxID round trip the human readable form.
type TxID [TxIDLength]byte

// ParseTxID decodes a hex encoded transaction id. An optional 0x prefix is
// accepted.
func ParseTxID(s string) (TxID, error) {
	var id TxID
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, errors.Wrap(errors.ErrInput, "transaction id is not hex")
	}
	return TxIDFromBytes(raw)
}

// TxIDFromBytes copies given raw bytes into a TxID.
func TxIDFromBytes(raw []byte) (TxID, error) {
	var id TxID
	if len(raw) != TxIDLength {
		return id, errors.Wrapf(errors.ErrInput, "transaction id must be %d bytes, got %d", TxIDLength, len(raw))
	}
	copy(id[:], raw)
	return id, id.Validate()
}

// Bytes returns a copy of the id that can be used as a store key.
func (id TxID) Bytes() []byte {
	b := make([]byte, TxIDLength)
	copy(b, id[:])
	return b
}

// IsZero returns true if no byte is set.
func (id TxID) IsZero() bool {
	return id == TxID{}
}

// Validate returns an error for the zero id, which no source chain
// transaction can have.
func (id TxID) Validate() error {
	if id.IsZero() {
		return errors.Wrap(errors.ErrEmpty, "transaction id")
	}
	return nil
}

// String returns the lowercase hex form.
func (id TxID) String() string {
	return hex.EncodeToString(id[:])
}

func (id TxID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *TxID) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, "transaction id must be a string")
	}
	v, err := ParseTxID(s)
	if err != nil {
		return err
	}
	*id = v
	return nil
}
