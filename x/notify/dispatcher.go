package notify

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/orm"
	"github.com/iov-one/custody/x/lock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"
	"github.com/tendermint/tendermint/libs/log"
	"golang.org/x/time/rate"
)

// Config controls delivery. Zero values are replaced by DefaultConfig
// values.
type Config struct {
	// Workers is the number of delivery queues. Transitions of one record
	// are always handled by the same queue.
	Workers int `json:"workers"`
	// MaxAttempts is the number of delivery attempts before a
	// notification is marked as failed.
	MaxAttempts int `json:"max_attempts"`
	// Backoff is the pause after the first failed attempt. It doubles
	// with each further attempt.
	Backoff time.Duration `json:"backoff"`
	// RateLimit is the number of deliveries per second across all
	// workers. Negative value disables the limit.
	RateLimit float64 `json:"rate_limit"`
	Burst     int     `json:"burst"`
}

// DefaultConfig returns the production delivery settings.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		MaxAttempts: 5,
		Backoff:     500 * time.Millisecond,
		RateLimit:   50,
		Burst:       10,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.Backoff <= 0 {
		c.Backoff = def.Backoff
	}
	if c.RateLimit == 0 {
		c.RateLimit = def.RateLimit
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	return c
}

// Options configure a Dispatcher. Only Sink is required.
type Options struct {
	Sink       Sink
	Config     Config
	Logger     log.Logger
	Clock      custody.Clock
	Registerer prometheus.Registerer
}

// Dispatcher is the subscription registry and the delivery engine. It
// implements lock.EventSink.
type Dispatcher struct {
	db         custody.CacheableKVStore
	subs       orm.ModelBucket
	subSeq     orm.Sequence
	deliveries orm.ModelBucket
	sink       Sink
	conf       Config
	limiter    *rate.Limiter
	logger     log.Logger
	clock      custody.Clock
	metrics    *metrics

	// mu serializes subscription changes and delivery claims.
	mu      sync.Mutex
	queues  []*queue
	pending sync.WaitGroup

	runMu   sync.Mutex
	workers *conc.WaitGroup
	cancel  context.CancelFunc
}

var _ lock.EventSink = (*Dispatcher)(nil)

// NewDispatcher returns a dispatcher keeping its state in db. Call Start to
// begin delivering.
func NewDispatcher(db custody.CacheableKVStore, opts Options) (*Dispatcher, error) {
	if opts.Sink == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "sink is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = custody.SystemClock
	}
	conf := opts.Config.withDefaults()

	limit := rate.Limit(conf.RateLimit)
	if conf.RateLimit < 0 {
		limit = rate.Inf
	}

	m := newMetrics()
	if opts.Registerer != nil {
		if err := m.register(opts.Registerer); err != nil {
			return nil, errors.Wrap(err, "metrics")
		}
	}

	d := &Dispatcher{
		db:         db,
		subs:       NewSubscriptionBucket(),
		subSeq:     orm.NewSequence("subscr", "id"),
		deliveries: NewDeliveryBucket(),
		sink:       opts.Sink,
		conf:       conf,
		limiter:    rate.NewLimiter(limit, conf.Burst),
		logger:     opts.Logger.With("module", "notify"),
		clock:      opts.Clock,
		metrics:    m,
		queues:     make([]*queue, conf.Workers),
	}
	for i := range d.queues {
		d.queues[i] = newQueue()
	}
	return d, nil
}

// SetRateLimit changes the delivery rate of a running dispatcher. Negative
// rate disables the limit.
func (d *Dispatcher) SetRateLimit(rps float64, burst int) {
	limit := rate.Limit(rps)
	if rps < 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = DefaultConfig().Burst
	}
	d.limiter.SetLimit(limit)
	d.limiter.SetBurst(burst)
	d.logger.Info("delivery rate changed", "rate", rps, "burst", burst)
}

// Register adds a subscriber for given event kinds and returns its ID.
func (d *Dispatcher) Register(url string, kinds []lock.EventKind) (uint64, error) {
	s := &Subscription{
		URL:       url,
		Kinds:     dedupKinds(kinds),
		CreatedAt: custody.AsUnixTime(d.clock.Now()),
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.commit(func(db custody.KVStore) error {
		id, err := d.subSeq.NextInt(db)
		if err != nil {
			return err
		}
		s.ID = id
		_, err = d.subs.Put(db, orm.EncodeSequence(id), s)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "cannot store subscription")
	}
	d.logger.Info("subscription registered", "id", s.ID, "url", s.URL, "kinds", fmt.Sprint(s.Kinds))
	return s.ID, nil
}

// Unregister removes a subscriber. Notifications already queued for it are
// still delivered.
func (d *Dispatcher) Unregister(id uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.commit(func(db custody.KVStore) error {
		return d.subs.Delete(db, orm.EncodeSequence(id))
	})
	if err != nil {
		return errors.Wrapf(err, "subscription %d", id)
	}
	d.logger.Info("subscription removed", "id", id)
	return nil
}

// Subscriptions returns all subscribers ordered by ID.
func (d *Dispatcher) Subscriptions() ([]Subscription, error) {
	var subs []Subscription
	if _, err := d.subs.All(d.db, &subs); err != nil {
		return nil, errors.Wrap(err, "subscriptions")
	}
	return subs, nil
}

// Deliveries returns the delivery bookkeeping of a record.
func (d *Dispatcher) Deliveries(txID custody.TxID) ([]Delivery, error) {
	var out []Delivery
	if _, err := d.deliveries.ByIndex(d.db, "txid", txID.Bytes(), &out); err != nil {
		return nil, errors.Wrap(err, "deliveries")
	}
	return out, nil
}

// Publish queues the event for every interested subscriber that was not
// notified of this transition yet. It never blocks on delivery.
func (d *Dispatcher) Publish(e lock.Event) {
	if e.Kind == lock.EventSignatureAdded {
		d.logger.Info("signature added", "txid", e.TxID, "signer", e.Signer)
		return
	}

	subs, err := d.Subscriptions()
	if err != nil {
		d.logger.Error("cannot load subscriptions", "txid", e.TxID, "err", err)
		return
	}

	payload := NewPayload(e)
	transition := e.TransitionKey()
	q := d.queues[binary.BigEndian.Uint32(e.TxID[:4])%uint32(len(d.queues))]
	for _, s := range subs {
		if !s.Wants(e.Kind) {
			continue
		}
		key, claimed, err := d.claim(s.ID, e.TxID, transition)
		if err != nil {
			d.logger.Error("cannot claim delivery", "txid", e.TxID, "subscription", s.ID, "err", err)
			continue
		}
		if !claimed {
			d.metrics.suppressed.Inc()
			d.logger.Debug("duplicate notification suppressed",
				"txid", e.TxID, "subscription", s.ID, "transition", transition)
			continue
		}
		d.pending.Add(1)
		ok := q.push(job{
			sub:     s,
			payload: payload,
			key:     key,
			idemKey: fmt.Sprintf("%d-%s-%s", s.ID, e.TxID, transition),
		})
		if !ok {
			d.pending.Done()
			// Release the claim so that the transition is not suppressed
			// when published again.
			if err := d.unclaim(key); err != nil {
				d.logger.Error("cannot release delivery claim", "txid", e.TxID, "subscription", s.ID, "err", err)
			}
			d.logger.Error("dispatcher stopped, notification dropped", "txid", e.TxID, "subscription", s.ID)
		}
	}
}

// claim records a queued delivery. It returns false if the delivery was
// claimed before.
func (d *Dispatcher) claim(subID uint64, txID custody.TxID, transition string) ([]byte, bool, error) {
	dl := &Delivery{
		SubscriptionID: subID,
		TxID:           txID,
		Transition:     transition,
		State:          Queued,
		UpdatedAt:      custody.AsUnixTime(d.clock.Now()),
	}
	key := dl.Key()

	d.mu.Lock()
	defer d.mu.Unlock()

	switch err := d.deliveries.Has(d.db, key); {
	case err == nil:
		return key, false, nil
	case !errors.ErrNotFound.Is(err):
		return nil, false, err
	}
	err := d.commit(func(db custody.KVStore) error {
		_, err := d.deliveries.Put(db, key, dl)
		return err
	})
	return key, err == nil, err
}

// Start runs one worker per queue until ctx is cancelled or Stop is
// called. Starting a dispatcher more than once is a no-op, a stopped
// dispatcher cannot be restarted.
func (d *Dispatcher) Start(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.workers != nil {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.workers = conc.NewWaitGroup()
	for _, q := range d.queues {
		q := q
		d.workers.Go(func() { d.work(ctx, q) })
	}
	d.logger.Info("dispatcher started", "workers", len(d.queues))
}

// Stop terminates all workers. Queued notifications that were not
// delivered remain in the Queued state.
func (d *Dispatcher) Stop() {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.workers == nil {
		return
	}
	d.cancel()
	for _, q := range d.queues {
		q.close()
	}
	d.workers.Wait()
	for _, q := range d.queues {
		for i := q.drop(); i > 0; i-- {
			d.pending.Done()
		}
	}
	d.logger.Info("dispatcher stopped")
}

// Flush blocks until every queued notification was handled or ctx is done.
func (d *Dispatcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.ErrUnavailable, ctx.Err().Error())
	}
}

func (d *Dispatcher) work(ctx context.Context, q *queue) {
	for {
		j, ok := q.pop()
		if !ok {
			return
		}
		if ctx.Err() == nil {
			d.deliver(ctx, j)
		}
		d.pending.Done()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	n := Notification{Subscription: j.sub, Payload: j.payload, Key: j.idemKey}
	start := d.clock.Now()

	var (
		attempts int
		err      error
	)
	for attempts < d.conf.MaxAttempts {
		if attempts > 0 {
			if err = sleep(ctx, d.conf.Backoff<<uint(attempts-1)); err != nil {
				break
			}
		}
		if err = d.limiter.Wait(ctx); err != nil {
			break
		}
		attempts++
		err = d.sink.Deliver(ctx, n)
		if err == nil {
			break
		}
		d.logger.Debug("delivery attempt failed",
			"txid", j.payload.TxID, "subscription", j.sub.ID, "attempt", attempts, "err", err)
	}

	if ctx.Err() != nil {
		// Shutting down. The delivery stays queued.
		return
	}

	state := Delivered
	if err != nil {
		state = Failed
		d.logger.Error("notification not delivered",
			"txid", j.payload.TxID, "subscription", j.sub.ID, "event", j.payload.EventKind, "attempts", attempts, "err", err)
	}
	d.metrics.deliveries.WithLabelValues(state.String()).Inc()
	d.metrics.latency.Observe(d.clock.Now().Sub(start).Seconds())

	if err := d.record(j.key, state, attempts, err); err != nil {
		d.logger.Error("cannot record delivery", "txid", j.payload.TxID, "subscription", j.sub.ID, "err", err)
	}
}

// unclaim removes a delivery that was claimed but never queued.
func (d *Dispatcher) unclaim(key []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commit(func(db custody.KVStore) error {
		return d.deliveries.Delete(db, key)
	})
}

func (d *Dispatcher) record(key []byte, state DeliveryState, attempts int, deliveryErr error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.commit(func(db custody.KVStore) error {
		var dl Delivery
		if err := d.deliveries.One(db, key, &dl); err != nil {
			return err
		}
		dl.State = state
		dl.Attempts += uint32(attempts)
		dl.LastError = ""
		if deliveryErr != nil {
			dl.LastError = deliveryErr.Error()
		}
		dl.UpdatedAt = custody.AsUnixTime(d.clock.Now())
		_, err := d.deliveries.Put(db, key, &dl)
		return err
	})
}

func (d *Dispatcher) commit(fn func(db custody.KVStore) error) error {
	cache := d.db.CacheWrap()
	if err := fn(cache); err != nil {
		cache.Discard()
		return err
	}
	return cache.Write()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func dedupKinds(kinds []lock.EventKind) []lock.EventKind {
	seen := make(map[lock.EventKind]bool, len(kinds))
	var out []lock.EventKind
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
