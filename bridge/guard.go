package bridge

import (
	"context"
	"sync"

	"github.com/iov-one/custody"
)

// keyGuard allows a single holder per transaction ID. Unlike a mutex,
// waiting can be abandoned.
type keyGuard struct {
	mu       sync.Mutex
	inflight map[custody.TxID]chan struct{}
}

func newKeyGuard() *keyGuard {
	return &keyGuard{inflight: make(map[custody.TxID]chan struct{})}
}

// acquire blocks until the key is free or ctx is done. The returned
// function must be called to free the key.
func (g *keyGuard) acquire(ctx context.Context, key custody.TxID) (func(), error) {
	for {
		g.mu.Lock()
		busy, ok := g.inflight[key]
		if !ok {
			done := make(chan struct{})
			g.inflight[key] = done
			g.mu.Unlock()
			return func() {
				g.mu.Lock()
				delete(g.inflight, key)
				g.mu.Unlock()
				close(done)
			}, nil
		}
		g.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
