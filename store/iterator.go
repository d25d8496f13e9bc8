package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/custody/errors"
)

// sliceIterator wraps an Iterator over a slice of models
type sliceIterator struct {
	data []Model
	idx  int
}

var _ Iterator = (*sliceIterator)(nil)

// NewSliceIterator creates a new Iterator over this slice
func NewSliceIterator(data []Model) Iterator {
	return &sliceIterator{
		data: data,
	}
}

// Next returns the next item or ErrIteratorDone
func (s *sliceIterator) Next() (key, value []byte, err error) {
	if s.idx >= len(s.data) {
		return nil, nil, errors.Wrap(errors.ErrIteratorDone, "slice done")
	}
	m := s.data[s.idx]
	s.idx++
	return m.Key, m.Value, nil
}

// Release releases the Iterator.
func (s *sliceIterator) Release() {
	s.data = nil
}

// collectRange returns the entries within [start, end) in the requested
// order. A nil boundary is open.
func collectRange(bt *btree.BTree, start, end []byte, ascending bool) []entry {
	var entries []entry
	collect := func(item btree.Item) bool {
		entries = append(entries, item.(entry))
		return true
	}

	switch {
	case start == nil && end == nil:
		bt.Ascend(collect)
	case start == nil:
		bt.AscendLessThan(probe(end), collect)
	case end == nil:
		bt.AscendGreaterOrEqual(probe(start), collect)
	default:
		bt.AscendRange(probe(start), probe(end), collect)
	}

	if !ascending {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return entries
}

// mergeIter walks the buffered entries of a cache and the iterator of the
// store below side by side. A buffered entry shadows the stored value of the
// same key.
type mergeIter struct {
	ours      []entry
	ascending bool

	below     Iterator
	next      *Model
	belowDone bool
}

var _ Iterator = (*mergeIter)(nil)

func newMergeIter(ours []entry, below Iterator, ascending bool) *mergeIter {
	return &mergeIter{ours: ours, below: below, ascending: ascending}
}

func (m *mergeIter) Next() (key, value []byte, err error) {
	for {
		if err := m.fill(); err != nil {
			return nil, nil, err
		}

		switch {
		case len(m.ours) == 0 && m.next == nil:
			return nil, nil, errors.Wrap(errors.ErrIteratorDone, "cache done")
		case len(m.ours) == 0 || (m.next != nil && m.before(m.next.Key, m.ours[0].key)):
			n := m.next
			m.next = nil
			return n.Key, n.Value, nil
		}

		e := m.ours[0]
		m.ours = m.ours[1:]
		if m.next != nil && bytes.Equal(m.next.Key, e.key) {
			m.next = nil
		}
		if !e.deleted {
			return e.key, e.value, nil
		}
	}
}

// before reports whether a comes before b in iteration order.
func (m *mergeIter) before(a, b []byte) bool {
	cmp := bytes.Compare(a, b)
	if m.ascending {
		return cmp < 0
	}
	return cmp > 0
}

// fill buffers the next item of the store below, if any.
func (m *mergeIter) fill() error {
	if m.next != nil || m.belowDone {
		return nil
	}
	k, v, err := m.below.Next()
	switch {
	case err == nil:
		m.next = &Model{Key: k, Value: v}
	case errors.ErrIteratorDone.Is(err):
		m.belowDone = true
	default:
		return err
	}
	return nil
}

func (m *mergeIter) Release() {
	m.below.Release()
	m.ours = nil
}
