package bridge

import (
	"context"
	"sync"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/x/lock"
	"github.com/stretchr/testify/mock"
)

type verifierMock struct {
	mock.Mock
}

func (m *verifierMock) VerifySourceTx(ctx context.Context, txID custody.TxID) (SourceTx, error) {
	args := m.Called(ctx, txID)
	return args.Get(0).(SourceTx), args.Error(1)
}

type oracleMock struct {
	mock.Mock
}

func (m *oracleMock) GetPrice(ctx context.Context, asset string) (Quote, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(Quote), args.Error(1)
}

type releaserMock struct {
	mock.Mock
}

func (m *releaserMock) Release(ctx context.Context, r *lock.LockRecord) error {
	args := m.Called(ctx, r.TxID)
	return args.Error(0)
}

// recorder is an EventSink that remembers everything published.
type recorder struct {
	mu     sync.Mutex
	events []lock.Event
}

func (r *recorder) Publish(e lock.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds(txID custody.TxID) []lock.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []lock.EventKind
	for _, e := range r.events {
		if e.TxID == txID {
			out = append(out, e.Kind)
		}
	}
	return out
}

func (r *recorder) failures(txID custody.TxID) []lock.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []lock.Event
	for _, e := range r.events {
		if e.TxID == txID && e.Kind == lock.EventError {
			out = append(out, e)
		}
	}
	return out
}
