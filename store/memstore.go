package store

import (
	"sync"

	"github.com/google/btree"
	"github.com/iov-one/custody/errors"
)

// MemStore is an in-memory KVStore that is safe for concurrent use.
//
// Reads take a shared lock, batches are applied under an exclusive lock so
// that a reader never observes half of a batch. Iterators work on a
// snapshot taken at creation time.
type MemStore struct {
	mu sync.RWMutex
	bt *btree.BTree
}

var _ CacheableKVStore = (*MemStore)(nil)

// NewMemStore returns an empty store. There is no persistence here.
func NewMemStore() *MemStore {
	return &MemStore{
		bt: btree.New(btreeDegree),
	}
}

// Get returns nil iff key doesn't exist.
func (s *MemStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if res := s.bt.Get(probe(key)); res != nil {
		return res.(entry).value, nil
	}
	return nil, nil
}

// Has checks if a key exists.
func (s *MemStore) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bt.Has(probe(key)), nil
}

// Set sets the key.
func (s *MemStore) Set(key, value []byte) error {
	return s.write([]Op{SetOp(key, value)})
}

// Delete deletes the key.
func (s *MemStore) Delete(key []byte) error {
	return s.write([]Op{DelOp(key)})
}

func (s *MemStore) write(ops []Op) error {
	for _, op := range ops {
		if op.key == nil {
			return errors.Wrap(errors.ErrHuman, "nil key")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		if op.IsSetOp() {
			s.bt.ReplaceOrInsert(entry{key: clone(op.key), value: clone(op.value)})
		} else {
			s.bt.Delete(probe(op.key))
		}
	}
	return nil
}

// Iterator over a domain of keys in ascending order. End is exclusive.
func (s *MemStore) Iterator(start, end []byte) (Iterator, error) {
	return s.snapshot(start, end, true), nil
}

// ReverseIterator over a domain of keys in descending order. End is exclusive.
func (s *MemStore) ReverseIterator(start, end []byte) (Iterator, error) {
	return s.snapshot(start, end, false), nil
}

func (s *MemStore) snapshot(start, end []byte, ascending bool) Iterator {
	s.mu.RLock()
	entries := collectRange(s.bt, start, end, ascending)
	s.mu.RUnlock()

	data := make([]Model, len(entries))
	for i, e := range entries {
		data[i] = Model{Key: e.key, Value: e.value}
	}
	return NewSliceIterator(data)
}

// NewBatch returns a batch that is applied atomically.
func (s *MemStore) NewBatch() Batch {
	return &memBatch{store: s}
}

// CacheWrap returns a cache that is later written to this store or
// discarded.
func (s *MemStore) CacheWrap() KVCacheWrap {
	return NewCacheWrap(s, s.NewBatch())
}

// Len returns the number of stored keys.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bt.Len()
}

type memBatch struct {
	store *MemStore
	ops   []Op
}

func (b *memBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

func (b *memBatch) Write() error {
	err := b.store.write(b.ops)
	b.ops = nil
	return err
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
