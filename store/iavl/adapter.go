/*
Package iavl provides the durable store of the custody bridge: a versioned
merkle tree (tendermint/iavl) on top of goleveldb.

Every batch written to the store is saved as a new tree version, so the
root hash returned by LatestVersion commits to the complete custody state
after each mutation and can be published for audit.
*/
package iavl

import (
	"sync"

	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/store"
	"github.com/tendermint/iavl"
	dbm "github.com/tendermint/tendermint/libs/db"
)

// DefaultCacheSize is the number of tree nodes kept in memory.
const DefaultCacheSize = 10000

// CommitStore manages a iavl committed state
type CommitStore struct {
	mu   sync.RWMutex
	tree *iavl.MutableTree
	db   dbm.DB
}

var _ store.CommitKVStore = (*CommitStore)(nil)

// NewCommitStore creates a new store with disk backing. The latest saved
// version is loaded if the database exists already.
func NewCommitStore(dir, name string) (*CommitStore, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return newCommitStore(db)
}

// MockCommitStore creates a new in-memory store for testing
func MockCommitStore() *CommitStore {
	s, err := newCommitStore(dbm.NewMemDB())
	if err != nil {
		panic(err)
	}
	return s
}

func newCommitStore(db dbm.DB) (*CommitStore, error) {
	tree := iavl.NewMutableTree(db, DefaultCacheSize)
	if _, err := tree.Load(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return &CommitStore{tree: tree, db: db}, nil
}

// Get returns the value at last committed state
// returns nil iff key doesn't exist.
func (s *CommitStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, val := s.tree.Get(key)
	return val, nil
}

// Has checks if a key exists.
func (s *CommitStore) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Has(key), nil
}

// Set writes a single key as a new version.
func (s *CommitStore) Set(key, value []byte) error {
	return s.write([]store.Op{store.SetOp(key, value)})
}

// Delete removes a single key as a new version.
func (s *CommitStore) Delete(key []byte) error {
	return s.write([]store.Op{store.DelOp(key)})
}

// write applies all operations and saves the result as one version. If the
// tree cannot be saved, the operations are rolled back.
func (s *CommitStore) write(ops []store.Op) error {
	for _, op := range ops {
		if op.Key() == nil {
			return errors.Wrap(errors.ErrHuman, "nil key")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if op.IsSetOp() {
			val := op.Value()
			if val == nil {
				val = []byte{}
			}
			s.tree.Set(op.Key(), val)
		} else {
			s.tree.Remove(op.Key())
		}
	}
	if _, _, err := s.tree.SaveVersion(); err != nil {
		s.tree.Rollback()
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Iterator over a domain of keys in ascending order. End is exclusive.
func (s *CommitStore) Iterator(start, end []byte) (store.Iterator, error) {
	return s.snapshot(start, end, true), nil
}

// ReverseIterator over a domain of keys in descending order. End is exclusive.
func (s *CommitStore) ReverseIterator(start, end []byte) (store.Iterator, error) {
	return s.snapshot(start, end, false), nil
}

func (s *CommitStore) snapshot(start, end []byte, ascending bool) store.Iterator {
	var res []store.Model
	add := func(key []byte, value []byte) bool {
		res = append(res, store.Model{Key: key, Value: value})
		return false
	}

	s.mu.RLock()
	s.tree.IterateRange(start, end, ascending, add)
	s.mu.RUnlock()

	return store.NewSliceIterator(res)
}

// NewBatch returns a batch that is saved as a single tree version.
func (s *CommitStore) NewBatch() store.Batch {
	return &batch{store: s}
}

// CacheWrap wraps us with a btree cache that writes back through an
// atomic batch.
func (s *CommitStore) CacheWrap() store.KVCacheWrap {
	return store.NewCacheWrap(s, s.NewBatch())
}

// LatestVersion returns info on the latest version saved to disk
func (s *CommitStore) LatestVersion() (store.CommitID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.CommitID{
		Version: s.tree.Version(),
		Hash:    s.tree.Hash(),
	}, nil
}

// Close releases the database handle.
func (s *CommitStore) Close() error {
	s.db.Close()
	return nil
}

type batch struct {
	store *CommitStore
	ops   []store.Op
}

func (b *batch) Set(key, value []byte) error {
	b.ops = append(b.ops, store.SetOp(key, value))
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, store.DelOp(key))
	return nil
}

func (b *batch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}
	err := b.store.write(b.ops)
	b.ops = nil
	return err
}
