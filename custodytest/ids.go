package custodytest

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/iov-one/custody"
)

// TxID returns a transaction ID derived from given seed.
func TxID(seed string) custody.TxID {
	return custody.TxID(sha256.Sum256([]byte(seed)))
}

// SequenceTxID returns a transaction ID derived from n. IDs are distinct
// for distinct n.
func SequenceTxID(n uint64) custody.TxID {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], n)
	return custody.TxID(sha256.Sum256(raw[:]))
}
