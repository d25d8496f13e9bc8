package bridge

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/lock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"
)

// LockRequest asks for a deposit to be locked for a recipient.
type LockRequest struct {
	TxID      custody.TxID    `json:"txId"`
	Recipient custody.Address `json:"recipient"`
	Amount    btcutil.Amount  `json:"amount"`
}

func (r LockRequest) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "TxID", r.TxID.Validate())
	errs = errors.AppendField(errs, "Recipient", r.Recipient.Validate())
	if r.Amount <= 0 || r.Amount > btcutil.MaxSatoshi {
		errs = errors.AppendField(errs, "Amount", errors.Wrapf(lock.ErrInvalidAmount, "%s", r.Amount))
	}
	return errs
}

// Options configure a Coordinator. Logger, Clock, Events and Registerer are
// optional.
type Options struct {
	Ledger   Ledger
	Verifier Verifier
	Oracle   PriceOracle
	Releaser Releaser
	// Events receives an error notification for every rejected request.
	// Record transitions are published by the ledger itself.
	Events     lock.EventSink
	Config     Config
	Logger     log.Logger
	Clock      custody.Clock
	Registerer prometheus.Registerer
}

// Coordinator drives the lock lifecycle from external requests.
type Coordinator struct {
	ledger    Ledger
	verifier  Verifier
	oracle    PriceOracle
	releaser  Releaser
	events    lock.EventSink
	conf      Config
	logger    log.Logger
	clock     custody.Clock
	metrics   *metrics
	releasing *keyGuard

	instance string
	requests uint64
}

func NewCoordinator(opts Options) (*Coordinator, error) {
	var errs error
	if opts.Ledger == nil {
		errs = errors.AppendField(errs, "Ledger", errors.ErrEmpty)
	}
	if opts.Verifier == nil {
		errs = errors.AppendField(errs, "Verifier", errors.ErrEmpty)
	}
	if opts.Oracle == nil {
		errs = errors.AppendField(errs, "Oracle", errors.ErrEmpty)
	}
	if opts.Releaser == nil {
		errs = errors.AppendField(errs, "Releaser", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Config", opts.Config.Validate())
	if errs != nil {
		return nil, errs
	}

	if opts.Events == nil {
		opts.Events = lock.NopSink
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = custody.SystemClock
	}
	m := newMetrics()
	if opts.Registerer != nil {
		if err := m.register(opts.Registerer); err != nil {
			return nil, errors.Wrap(err, "metrics")
		}
	}

	return &Coordinator{
		ledger:    opts.Ledger,
		verifier:  opts.Verifier,
		oracle:    opts.Oracle,
		releaser:  opts.Releaser,
		events:    opts.Events,
		conf:      opts.Config,
		logger:    opts.Logger.With("module", "bridge"),
		clock:     opts.Clock,
		metrics:   m,
		releasing: newKeyGuard(),
		instance:  strconv.FormatInt(opts.Clock.Now().UnixNano(), 36),
	}, nil
}

// Lock creates a lock record for a final deposit, binding the current
// price to it. Locking a known transaction again returns the existing
// record.
func (c *Coordinator) Lock(ctx context.Context, req LockRequest) (rec *lock.LockRecord, err error) {
	defer c.observe("lock", c.clock.Now(), &err)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch rec, err := c.ledger.Get(req.TxID); {
	case err == nil:
		return rec, nil
	case !errors.ErrNotFound.Is(err):
		return nil, err
	}

	requestID := c.nextRequestID()
	logger := c.logger.With("txid", req.TxID, "request", requestID)

	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}
	src, err := c.verifier.VerifySourceTx(ctx, req.TxID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		if !errors.ErrLookup.Is(err) {
			err = errors.Wrap(errors.ErrDependency, err.Error())
		}
		return nil, c.reject(req.TxID, nil, StageVerify, requestID, err)
	}
	if err := c.checkDeposit(req, src); err != nil {
		return nil, c.reject(req.TxID, nil, StageVerify, requestID, err)
	}
	logger.Debug("deposit verified", "confirmations", src.Confirmations, "amount", src.Amount)

	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}
	price, err := c.price(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		return nil, c.reject(req.TxID, nil, StagePrice, requestID, err)
	}

	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}
	rec, err = c.ledger.CreateLock(req.TxID, uint64(req.Amount), req.Recipient, price, c.conf.Custodian)
	switch {
	case err == nil:
		logger.Info("lock requested", "amount", req.Amount, "price", price, "status", rec.Status)
		return rec, nil
	case lock.ErrDuplicateRecord.Is(err):
		// Created by a concurrent request.
		return rec, nil
	default:
		return nil, c.reject(req.TxID, nil, StageCreate, requestID, err)
	}
}

func (c *Coordinator) checkDeposit(req LockRequest, src SourceTx) error {
	if !src.Confirmed || src.Confirmations < c.conf.MinConfirmations {
		return errors.Wrapf(errors.ErrNotFinal, "%d of %d confirmations", src.Confirmations, c.conf.MinConfirmations)
	}
	if src.Amount != req.Amount {
		return errors.Wrapf(errors.ErrInput, "deposit of %s, requested %s", src.Amount, req.Amount)
	}
	if len(src.RecipientHint) != 0 && !src.RecipientHint.Equals(req.Recipient) {
		return errors.Wrapf(errors.ErrInput, "deposit is for %s", src.RecipientHint)
	}
	return nil
}

func (c *Coordinator) price(ctx context.Context) (lock.FixedPointPrice, error) {
	q, err := c.oracle.GetPrice(ctx, c.conf.Asset)
	if err != nil {
		return lock.FixedPointPrice{}, errors.Wrap(ErrPriceUnavailable, err.Error())
	}
	if age := c.clock.Now().Sub(q.AsOf); age > c.conf.PriceMaxAge {
		return lock.FixedPointPrice{}, errors.Wrapf(ErrPriceUnavailable, "%s quote is %s old", c.conf.Asset, age)
	}
	p, err := lock.Bind(q.Value, c.conf.PriceScale)
	if err != nil {
		return lock.FixedPointPrice{}, errors.Wrap(ErrPriceUnavailable, err.Error())
	}
	return p, nil
}

// Sign adds the signature of a custodian to a pending record. A rejected
// signature is reported with an error notification of the sign stage.
func (c *Coordinator) Sign(ctx context.Context, txID custody.TxID, signer custody.Address) (rec *lock.LockRecord, err error) {
	defer c.observe("sign", c.clock.Now(), &err)

	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}
	rec, err = c.ledger.Sign(txID, signer)
	if err != nil {
		return nil, c.reject(txID, nil, StageSign, c.nextRequestID(), err)
	}
	return rec, nil
}

// Release executes the release of a locked record on the destination
// ledger and marks the record as released. Concurrent calls for the same
// record are serialized so that the destination is called at most once
// per successful release.
func (c *Coordinator) Release(ctx context.Context, txID custody.TxID) (rec *lock.LockRecord, err error) {
	defer c.observe("release", c.clock.Now(), &err)

	if err := txID.Validate(); err != nil {
		return nil, errors.Field("TxID", err, "")
	}
	done, err := c.releasing.acquire(ctx, txID)
	if err != nil {
		return nil, cancelled(ctx)
	}
	defer done()

	requestID := c.nextRequestID()
	rec, err = c.ledger.Get(txID)
	if err != nil {
		return nil, c.reject(txID, nil, StageRelease, requestID, err)
	}
	if rec.Status != lock.Locked {
		err := errors.Wrapf(lock.ErrInvalidState, "cannot release %s lock", rec.Status)
		return nil, c.reject(txID, rec, StageRelease, requestID, err)
	}

	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}
	if err := c.releaser.Release(ctx, rec); err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		err = errors.Wrap(errors.ErrDependency, err.Error())
		return nil, c.reject(txID, rec, StageRelease, requestID, err)
	}

	released, err := c.ledger.Release(txID)
	if err != nil {
		return nil, c.reject(txID, rec, StageRelease, requestID, err)
	}
	c.logger.Info("lock released", "txid", txID, "request", requestID, "recipient", released.Recipient)
	return released, nil
}

// reject publishes an error notification and returns err.
func (c *Coordinator) reject(txID custody.TxID, rec *lock.LockRecord, stage, requestID string, err error) error {
	reason := ReasonCode(err)
	c.metrics.rejections.WithLabelValues(stage).Inc()
	c.logger.Info("request rejected",
		"txid", txID, "stage", stage, "reason", reason, "request", requestID, "err", err)
	c.events.Publish(lock.Event{
		Kind:      lock.EventError,
		TxID:      txID,
		Record:    rec,
		Stage:     stage,
		Reason:    reason,
		Message:   err.Error(),
		RequestID: requestID,
		Time:      c.clock.Now(),
	})
	return err
}

func (c *Coordinator) nextRequestID() string {
	return fmt.Sprintf("%s-%d", c.instance, atomic.AddUint64(&c.requests, 1))
}

func (c *Coordinator) observe(operation string, start time.Time, err *error) {
	code := strconv.FormatUint(uint64(errors.Code(*err)), 10)
	c.metrics.requests.WithLabelValues(operation, code).Inc()
	c.metrics.duration.WithLabelValues(operation).Observe(c.clock.Now().Sub(start).Seconds())
}

func cancelled(ctx context.Context) error {
	return errors.Wrap(errors.ErrUnavailable, ctx.Err().Error())
}
