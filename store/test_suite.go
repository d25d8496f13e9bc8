package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/iov-one/custody/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSuite provides methods that can be called in package-specific test
// code. We just customize the store being tested (pass in constructor), the
// rest of the logic is generic to the CacheableKVStore interface.
//
// This removes duplication between the memory store tests and the
// iavl/adapter_test.go, but can be used for any implementation.
type TestSuite struct {
	makeBase TestStoreConstructor
}

// TestStoreConstructor returns a fresh store and a function releasing it.
type TestStoreConstructor func() (base CacheableKVStore, cleanup func())

func NewTestSuite(constructor TestStoreConstructor) *TestSuite {
	return &TestSuite{
		makeBase: constructor,
	}
}

// GetSet does basic sanity checks on our cache
func (s *TestSuite) GetSet(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	k, v := []byte("french"), []byte("fry")
	s.AssertGetHas(t, base, k, nil, false)
	require.NoError(t, base.Set(k, v))
	s.AssertGetHas(t, base, k, v, true)

	// now layer another btree on top and make sure that we get
	// base data
	cache := base.CacheWrap()
	s.AssertGetHas(t, cache, k, v, true)

	// writing more data is only visible in the cache
	k2, v2 := []byte("LA"), []byte("Dodgers")
	s.AssertGetHas(t, cache, k2, nil, false)
	require.NoError(t, cache.Set(k2, v2))
	s.AssertGetHas(t, cache, k2, v2, true)
	s.AssertGetHas(t, base, k2, nil, false)

	// we can write the cache to the base layer...
	require.NoError(t, cache.Write())
	s.AssertGetHas(t, base, k, v, true)
	s.AssertGetHas(t, base, k2, v2, true)

	// we can discard one
	k3, v3 := []byte("Bayern"), []byte("Munich")
	c2 := base.CacheWrap()
	require.NoError(t, c2.Set(k3, v3))
	c2.Discard()
	s.AssertGetHas(t, base, k3, nil, false)

	// and commit another
	c3 := base.CacheWrap()
	require.NoError(t, c3.Delete(k))
	s.AssertGetHas(t, c3, k, nil, false)
	require.NoError(t, c3.Write())

	s.AssertGetHas(t, base, k, nil, false)
	s.AssertGetHas(t, base, k2, v2, true)
}

// Iterate checks that a cache wrap merges its own writes and deletes with
// the data of the parent store, in both directions.
func (s *TestSuite) Iterate(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, base.Set([]byte(k), []byte("base-"+k)))
	}

	cache := base.CacheWrap()
	require.NoError(t, cache.Delete([]byte("b")))
	require.NoError(t, cache.Set([]byte("c"), []byte("cache-c")))
	require.NoError(t, cache.Set([]byte("bb"), []byte("cache-bb")))
	require.NoError(t, cache.Set([]byte("e"), []byte("cache-e")))

	cases := map[string]struct {
		store   ReadOnlyKVStore
		start   []byte
		end     []byte
		reverse bool
		want    []Model
	}{
		"base full range": {
			store: base,
			want: []Model{
				{Key: []byte("a"), Value: []byte("base-a")},
				{Key: []byte("b"), Value: []byte("base-b")},
				{Key: []byte("c"), Value: []byte("base-c")},
				{Key: []byte("d"), Value: []byte("base-d")},
			},
		},
		"cache full range": {
			store: cache,
			want: []Model{
				{Key: []byte("a"), Value: []byte("base-a")},
				{Key: []byte("bb"), Value: []byte("cache-bb")},
				{Key: []byte("c"), Value: []byte("cache-c")},
				{Key: []byte("d"), Value: []byte("base-d")},
				{Key: []byte("e"), Value: []byte("cache-e")},
			},
		},
		"cache bounded range": {
			store: cache,
			start: []byte("b"),
			end:   []byte("d"),
			want: []Model{
				{Key: []byte("bb"), Value: []byte("cache-bb")},
				{Key: []byte("c"), Value: []byte("cache-c")},
			},
		},
		"cache reverse range": {
			store:   cache,
			start:   []byte("a"),
			end:     []byte("d"),
			reverse: true,
			want: []Model{
				{Key: []byte("c"), Value: []byte("cache-c")},
				{Key: []byte("bb"), Value: []byte("cache-bb")},
				{Key: []byte("a"), Value: []byte("base-a")},
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var (
				it  Iterator
				err error
			)
			if tc.reverse {
				it, err = tc.store.ReverseIterator(tc.start, tc.end)
			} else {
				it, err = tc.store.Iterator(tc.start, tc.end)
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, readAll(t, it))
		})
	}
}

// ConcurrentBatches writes many batches in parallel and checks that none
// of them got lost or partially applied.
func (s *TestSuite) ConcurrentBatches(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			cache := base.CacheWrap()
			for i := 0; i < 10; i++ {
				key := []byte(fmt.Sprintf("w%d/%02d", w, i))
				if err := cache.Set(key, key); err != nil {
					t.Error(err)
					return
				}
			}
			if err := cache.Write(); err != nil {
				t.Error(err)
			}
		}(w)
	}
	wg.Wait()

	it, err := base.Iterator(nil, nil)
	require.NoError(t, err)
	assert.Len(t, readAll(t, it), workers*10)
}

// AssertGetHas makes sure that this key returns
// the given value or nil, and has according to the value
func (s *TestSuite) AssertGetHas(t testing.TB, kv ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	require.NoError(t, err)
	assert.Equal(t, val, got)
	exists, err := kv.Has(key)
	require.NoError(t, err)
	assert.Equal(t, has, exists)
}

func readAll(t testing.TB, it Iterator) []Model {
	t.Helper()
	defer it.Release()

	var res []Model
	for {
		k, v, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return res
		}
		require.NoError(t, err)
		res = append(res, Model{Key: k, Value: v})
	}
}
