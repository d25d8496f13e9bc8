package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

var isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString

// ModelBucket is a prefixed subspace of the database that stores Models of
// a single type.
type ModelBucket interface {
	// One query the database for a single model instance. Lookup is done
	// by the primary index key. Result is loaded into given destination
	// model.
	// This method returns ErrNotFound if the entity does not exist in the
	// database.
	// If given model type cannot be used to contain stored entity, ErrType
	// is returned.
	One(db custody.ReadOnlyKVStore, key []byte, dest Model) error

	// Has returns nil if an entity with given primary key exists, and
	// ErrNotFound otherwise.
	Has(db custody.ReadOnlyKVStore, key []byte) error

	// Put saves given model in the database. Before inserting into the
	// database, model is validated using its Validate method.
	// If the key is nil or zero length then a sequence generator is used
	// to create a unique key value.
	// Using a key that already exists in the database cause the value to
	// be overwritten.
	Put(db custody.KVStore, key []byte, m Model) ([]byte, error)

	// Delete removes an entity with given primary key from the database.
	// It returns ErrNotFound if an entity with given key does not exist.
	Delete(db custody.KVStore, key []byte) error

	// ByIndex returns all objects that secondary index with given name
	// and given key. Main index is always unique but secondary indexes
	// can return more than one value for the same key.
	// All matching entities are appended to given destination slice and
	// their primary keys are returned in the same order.
	ByIndex(db custody.ReadOnlyKVStore, indexName string, key []byte, dest ModelSlicePtr) ([][]byte, error)

	// All loads every entity of this bucket, in primary key order.
	All(db custody.ReadOnlyKVStore, dest ModelSlicePtr) ([][]byte, error)
}

// ModelBucketOption is implemented by any function that can configure
// ModelBucket during creation.
type ModelBucketOption func(mb *modelBucket)

// WithIndex configures the bucket to build an index with given name. All
// entities stored in the bucket are indexed using value returned by the
// indexer function. If an index is unique, there can be only one entity
// referenced per index value.
func WithIndex(name string, indexer IndexerFunc, unique bool) ModelBucketOption {
	return func(mb *modelBucket) {
		if _, ok := mb.indexes[name]; ok {
			panic(fmt.Sprintf("index %q already registered", name))
		}
		mb.indexes[name] = newNativeIndex(mb.name, name, indexer, unique)
	}
}

// WithIDSequence configures the bucket to use the given sequence instance
// for generating ID when none is given to Put.
func WithIDSequence(s Sequence) ModelBucketOption {
	return func(mb *modelBucket) {
		mb.idSeq = &s
	}
}

// NewModelBucket returns a ModelBucket instance. All stored entities must be
// of the same type as given model.
func NewModelBucket(name string, m Model, opts ...ModelBucketOption) ModelBucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("illegal bucket: %s", name))
	}
	mb := &modelBucket{
		name:    name,
		prefix:  append([]byte(name), ':'),
		model:   m,
		indexes: make(map[string]*nativeIndex),
	}
	for _, fn := range opts {
		fn(mb)
	}
	return mb
}

type modelBucket struct {
	name    string
	prefix  []byte
	model   Model
	idSeq   *Sequence
	indexes map[string]*nativeIndex
}

// dbKey is the full key we store in the db, including prefix. We copy into
// a new array rather than use append, as we don't want consequetive calls
// to overwrite the same byte array.
func (mb *modelBucket) dbKey(key []byte) []byte {
	out := make([]byte, len(mb.prefix)+len(key))
	copy(out, mb.prefix)
	copy(out[len(mb.prefix):], key)
	return out
}

func (mb *modelBucket) get(db custody.ReadOnlyKVStore, key []byte) (Model, error) {
	raw, err := db.Get(mb.dbKey(key))
	if err != nil {
		return nil, errors.Wrap(err, "cannot get from the database")
	}
	if raw == nil {
		return nil, nil
	}
	m := newModel(mb.model)
	if err := m.Unmarshal(raw); err != nil {
		return nil, errors.Wrapf(err, "cannot unmarshal %T", m)
	}
	return m, nil
}

func (mb *modelBucket) One(db custody.ReadOnlyKVStore, key []byte, dest Model) error {
	m, err := mb.get(db, key)
	if err != nil {
		return err
	}
	if m == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	return load(dest, m)
}

func (mb *modelBucket) Has(db custody.ReadOnlyKVStore, key []byte) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrNotFound, "empty key")
	}
	ok, err := db.Has(mb.dbKey(key))
	if err != nil {
		return errors.Wrap(err, "cannot query the database")
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", mb.model)
	}
	return nil
}

func (mb *modelBucket) Put(db custody.KVStore, key []byte, m Model) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model")
	}

	if len(key) == 0 {
		if mb.idSeq == nil {
			return nil, errors.Wrap(errors.ErrHuman, "ID sequence not registered for this bucket")
		}
		var err error
		key, err = mb.idSeq.NextVal(db)
		if err != nil {
			return nil, errors.Wrap(err, "ID sequence")
		}
	}

	raw, err := m.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "cannot serialize model")
	}

	if len(mb.indexes) > 0 {
		prev, err := mb.get(db, key)
		if err != nil {
			return nil, err
		}
		if err := mb.updateIndexes(db, key, prev, m); err != nil {
			return nil, err
		}
	}

	if err := db.Set(mb.dbKey(key), raw); err != nil {
		return nil, errors.Wrap(err, "cannot store in the database")
	}
	return key, nil
}

func (mb *modelBucket) Delete(db custody.KVStore, key []byte) error {
	prev, err := mb.get(db, key)
	if err != nil {
		return err
	}
	if prev == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", mb.model)
	}
	if err := mb.updateIndexes(db, key, prev, nil); err != nil {
		return err
	}
	if err := db.Delete(mb.dbKey(key)); err != nil {
		return errors.Wrap(err, "cannot delete from the database")
	}
	return nil
}

func (mb *modelBucket) updateIndexes(db custody.KVStore, key []byte, prev, next Model) error {
	for name, idx := range mb.indexes {
		if err := idx.Update(db, key, prev, next); err != nil {
			return errors.Wrapf(err, "cannot update %q index", name)
		}
	}
	return nil
}

func (mb *modelBucket) ByIndex(db custody.ReadOnlyKVStore, indexName string, key []byte, dest ModelSlicePtr) ([][]byte, error) {
	idx, ok := mb.indexes[indexName]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInput, "unknown index %q", indexName)
	}
	keys, err := idx.Keys(db, key)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		m, err := mb.get(db, k)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, errors.Wrapf(errors.ErrDatabase, "index %q references missing entity %x", indexName, k)
		}
		if err := appendModel(dest, m); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (mb *modelBucket) All(db custody.ReadOnlyKVStore, dest ModelSlicePtr) ([][]byte, error) {
	it, err := db.Iterator(prefixRange(mb.prefix))
	if err != nil {
		return nil, errors.Wrap(err, "bucket iterator")
	}
	defer it.Release()

	var keys [][]byte
	for {
		k, v, err := it.Next()
		if err != nil {
			if errors.ErrIteratorDone.Is(err) {
				return keys, nil
			}
			return nil, err
		}
		m := newModel(mb.model)
		if err := m.Unmarshal(v); err != nil {
			return nil, errors.Wrapf(err, "cannot unmarshal %T", m)
		}
		if err := appendModel(dest, m); err != nil {
			return nil, err
		}
		keys = append(keys, k[len(mb.prefix):])
	}
}

var _ ModelBucket = (*modelBucket)(nil)
