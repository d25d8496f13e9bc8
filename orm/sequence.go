package orm

import (
	"encoding/binary"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

// Sequence is a counter kept in the store. Its encoded values sort in
// numeric order, so they can be used as keys.
type Sequence struct {
	key []byte
}

// NewSequence returns the counter stored under _s.<bucket>:<name>.
func NewSequence(bucket, name string) Sequence {
	return Sequence{key: []byte("_s." + bucket + ":" + name)}
}

// NextVal advances the counter and returns the new value encoded.
func (s *Sequence) NextVal(db custody.KVStore) ([]byte, error) {
	n, err := s.NextInt(db)
	if err != nil {
		return nil, err
	}
	return EncodeSequence(n), nil
}

// NextInt advances the counter and returns the new value. The first value
// is 1.
func (s *Sequence) NextInt(db custody.KVStore) (uint64, error) {
	n, err := s.Latest(db)
	if err != nil {
		return 0, err
	}
	n++
	if err := db.Set(s.key, EncodeSequence(n)); err != nil {
		return 0, errors.Wrapf(err, "sequence %s", s.key)
	}
	return n, nil
}

// Latest returns the last value handed out, zero if none was.
func (s *Sequence) Latest(db custody.ReadOnlyKVStore) (uint64, error) {
	raw, err := db.Get(s.key)
	if err != nil {
		return 0, errors.Wrapf(err, "sequence %s", s.key)
	}
	return DecodeSequence(raw), nil
}

// EncodeSequence returns n as 8 big endian bytes.
func EncodeSequence(n uint64) []byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], n)
	return raw[:]
}

// DecodeSequence reverses EncodeSequence. Any other length reads as zero.
func DecodeSequence(raw []byte) uint64 {
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}
