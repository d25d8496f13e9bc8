package orm

import (
	"bytes"
	"encoding/binary"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

// IndexerFunc computes the value under which a model is indexed. Returning
// a nil value means the model is not part of the index.
type IndexerFunc func(Model) ([]byte, error)

const nativeIdxPrefix = "_x."

// nativeIndex is an index implementation that is using a database native
// storage and query in order to maintain and provide access to an index.
//
// Index key is in format:
//    _x.<bucket>.<index name>:<len(value) as uint32><value><entity id>
// so that all entities indexed under the same value share one key prefix.
type nativeIndex struct {
	name    string
	prefix  []byte
	indexer IndexerFunc
	unique  bool
}

func newNativeIndex(bucket, name string, indexer IndexerFunc, unique bool) *nativeIndex {
	return &nativeIndex{
		name:    name,
		prefix:  []byte(nativeIdxPrefix + bucket + "." + name + ":"),
		indexer: indexer,
		unique:  unique,
	}
}

// valuePrefix returns the key prefix shared by all entries for the value.
func (ix *nativeIndex) valuePrefix(value []byte) []byte {
	out := make([]byte, 0, len(ix.prefix)+4+len(value))
	out = append(out, ix.prefix...)
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(value)))
	out = append(out, l[:]...)
	return append(out, value...)
}

func (ix *nativeIndex) entryKey(value, pk []byte) []byte {
	p := ix.valuePrefix(value)
	out := make([]byte, len(p)+len(pk))
	copy(out, p)
	copy(out[len(p):], pk)
	return out
}

func (ix *nativeIndex) value(m Model) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	v, err := ix.indexer(m)
	if err != nil {
		return nil, errors.Wrapf(err, "index %q", ix.name)
	}
	return v, nil
}

// Update moves the index entry of the entity with primary key pk from the
// value of prev to the value of next. A nil prev means insert, a nil next
// means delete.
func (ix *nativeIndex) Update(db custody.KVStore, pk []byte, prev, next Model) error {
	prevVal, err := ix.value(prev)
	if err != nil {
		return err
	}
	nextVal, err := ix.value(next)
	if err != nil {
		return err
	}
	if prev != nil && next != nil && prevVal != nil && nextVal != nil && bytes.Equal(prevVal, nextVal) {
		return nil
	}

	if prevVal != nil {
		if err := db.Delete(ix.entryKey(prevVal, pk)); err != nil {
			return errors.Wrap(err, "delete index entry")
		}
	}
	if nextVal == nil {
		return nil
	}
	if ix.unique {
		keys, err := ix.Keys(db, nextVal)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if !bytes.Equal(k, pk) {
				return errors.Wrapf(errors.ErrDuplicate, "index %q", ix.name)
			}
		}
	}
	if err := db.Set(ix.entryKey(nextVal, pk), []byte{}); err != nil {
		return errors.Wrap(err, "set index entry")
	}
	return nil
}

// Keys returns the primary keys of all entities indexed under the value,
// in primary key order.
func (ix *nativeIndex) Keys(db custody.ReadOnlyKVStore, value []byte) ([][]byte, error) {
	prefix := ix.valuePrefix(value)
	it, err := db.Iterator(prefixRange(prefix))
	if err != nil {
		return nil, errors.Wrap(err, "index iterator")
	}
	defer it.Release()

	var keys [][]byte
	for {
		k, _, err := it.Next()
		if err != nil {
			if errors.ErrIteratorDone.Is(err) {
				return keys, nil
			}
			return nil, err
		}
		pk := make([]byte, len(k)-len(prefix))
		copy(pk, k[len(prefix):])
		keys = append(keys, pk)
	}
}

// prefixRange returns the [start, end) range covering all keys with the
// prefix.
func prefixRange(prefix []byte) ([]byte, []byte) {
	start := make([]byte, len(prefix))
	copy(start, prefix)

	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return start, end[:i+1]
		}
	}
	// prefix is all 0xff, there is no upper bound
	return start, nil
}
