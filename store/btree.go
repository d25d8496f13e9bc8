package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/custody/errors"
)

const btreeDegree = 2

// entry is a btree item. A deleted entry hides the key of the store below.
type entry struct {
	key     []byte
	value   []byte
	deleted bool
}

func (e entry) Less(than btree.Item) bool {
	return bytes.Compare(e.key, than.(entry).key) < 0
}

// probe returns an entry usable as a btree lookup key.
func probe(key []byte) entry {
	return entry{key: key}
}

// cache buffers the writes of a single caller in a btree until Write pushes
// them through the batch of the store below. It is not safe for concurrent
// use.
type cache struct {
	pending *btree.BTree
	free    *btree.FreeList
	below   ReadOnlyKVStore
	batch   Batch
}

var _ KVCacheWrap = (*cache)(nil)

// NewCacheWrap returns a KVCacheWrap over kv. Reads fall through to kv,
// writes are collected and applied with batch on Write.
func NewCacheWrap(kv ReadOnlyKVStore, batch Batch) KVCacheWrap {
	return newCache(kv, batch, btree.NewFreeList(btree.DefaultFreeListSize))
}

func newCache(kv ReadOnlyKVStore, batch Batch, free *btree.FreeList) *cache {
	return &cache{
		pending: btree.NewWithFreeList(btreeDegree, free),
		free:    free,
		below:   kv,
		batch:   batch,
	}
}

// CacheWrap stacks another cache on this one. Both share the free list.
func (c *cache) CacheWrap() KVCacheWrap {
	return newCache(c, c.NewBatch(), c.free)
}

func (c *cache) NewBatch() Batch {
	return NewNonAtomicBatch(c)
}

// Write applies the buffered changes and empties the cache.
func (c *cache) Write() error {
	err := c.batch.Write()
	c.Discard()
	return err
}

// Discard drops all buffered changes.
func (c *cache) Discard() {
	for c.pending.DeleteMin() != nil {
	}
}

func (c *cache) Set(key, value []byte) error {
	if key == nil {
		return errors.Wrap(errors.ErrHuman, "nil key")
	}
	c.pending.ReplaceOrInsert(entry{key: key, value: value})
	return c.batch.Set(key, value)
}

func (c *cache) Delete(key []byte) error {
	if key == nil {
		return errors.Wrap(errors.ErrHuman, "nil key")
	}
	c.pending.ReplaceOrInsert(entry{key: key, deleted: true})
	return c.batch.Delete(key)
}

// lookup returns the buffered entry of key, if any.
func (c *cache) lookup(key []byte) (entry, bool) {
	item := c.pending.Get(probe(key))
	if item == nil {
		return entry{}, false
	}
	return item.(entry), true
}

func (c *cache) Get(key []byte) ([]byte, error) {
	if e, ok := c.lookup(key); ok {
		if e.deleted {
			return nil, nil
		}
		return e.value, nil
	}
	return c.below.Get(key)
}

func (c *cache) Has(key []byte) (bool, error) {
	if e, ok := c.lookup(key); ok {
		return !e.deleted, nil
	}
	return c.below.Has(key)
}

// Iterator merges the buffered changes with the content of the store
// below, in ascending key order.
func (c *cache) Iterator(start, end []byte) (Iterator, error) {
	below, err := c.below.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return newMergeIter(collectRange(c.pending, start, end, true), below, true), nil
}

// ReverseIterator is Iterator in descending key order.
func (c *cache) ReverseIterator(start, end []byte) (Iterator, error) {
	below, err := c.below.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	return newMergeIter(collectRange(c.pending, start, end, false), below, false), nil
}
