package lock

import (
	"encoding/binary"
	"sync"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/orm"
	"github.com/tendermint/tendermint/libs/log"
)

const lockStripes = 64

// Ledger is the custody state machine. All methods are safe for concurrent
// use. Mutations of a single record are serialized by a striped lock, every
// mutation is written to a cache first and committed to the store in one
// atomic write.
type Ledger struct {
	db        custody.CacheableKVStore
	records   orm.ModelBucket
	roster    orm.ModelBucket
	heightSeq orm.Sequence
	quorum    QuorumConfig
	sink      EventSink
	logger    log.Logger
	clock     custody.Clock

	stripes [lockStripes]sync.Mutex
	// heightMu orders record creation so that heights are unique. It is
	// held only around the commit of a new record.
	heightMu sync.Mutex
	rosterMu sync.Mutex
}

// NewLedger returns a ledger operating on given store. The quorum
// configuration must already be stored, see SaveQuorum and Initializer.
// Nil sink, logger or clock fall back to a no-op sink, a no-op logger and
// the system clock.
func NewLedger(db custody.CacheableKVStore, sink EventSink, logger log.Logger, clock custody.Clock) (*Ledger, error) {
	q, err := LoadQuorum(db)
	if err != nil {
		return nil, errors.Wrap(err, "ledger not initialized")
	}
	if err := q.Validate(); err != nil {
		return nil, errors.Wrap(err, "stored quorum")
	}
	if sink == nil {
		sink = NopSink
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if clock == nil {
		clock = custody.SystemClock
	}
	return &Ledger{
		db:        db,
		records:   NewLockRecordBucket(),
		roster:    NewCustodianBucket(),
		heightSeq: orm.NewSequence("lock", "height"),
		quorum:    q,
		sink:      sink,
		logger:    logger.With("module", "lock"),
		clock:     clock,
	}, nil
}

// Quorum returns the signature threshold this ledger enforces.
func (l *Ledger) Quorum() QuorumConfig {
	return l.quorum
}

func (l *Ledger) stripe(id custody.TxID) *sync.Mutex {
	return &l.stripes[binary.BigEndian.Uint32(id[:4])%lockStripes]
}

// commit runs fn on a fresh cache wrap and writes the result to the store
// only if fn succeeded.
func (l *Ledger) commit(fn func(db custody.KVStore) error) error {
	cache := l.db.CacheWrap()
	if err := fn(cache); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func (l *Ledger) load(db custody.ReadOnlyKVStore, txID custody.TxID) (*LockRecord, error) {
	var r LockRecord
	if err := l.records.One(db, txID.Bytes(), &r); err != nil {
		return nil, errors.Wrapf(err, "lock %s", txID)
	}
	return &r, nil
}

// CreateLock registers a new lock record signed by initialSigner.
//
// Creating a record for a transaction that is already known fails with
// ErrDuplicateRecord and returns the existing record unchanged.
func (l *Ledger) CreateLock(
	txID custody.TxID,
	amount uint64,
	recipient custody.Address,
	price FixedPointPrice,
	initialSigner custody.Address,
) (*LockRecord, error) {
	if err := txID.Validate(); err != nil {
		return nil, errors.Field("TxID", err, "")
	}

	mu := l.stripe(txID)
	mu.Lock()
	defer mu.Unlock()

	if existing, err := l.load(l.db, txID); err == nil {
		return existing, errors.Wrapf(ErrDuplicateRecord, "lock %s", txID)
	} else if !errors.ErrNotFound.Is(err) {
		return nil, err
	}

	var errs error
	if amount == 0 {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(ErrInvalidAmount, "must be greater than zero"))
	}
	if err := recipient.Validate(); err != nil {
		errs = errors.AppendField(errs, "Recipient", errors.Wrap(errors.ErrInput, err.Error()))
	}
	if err := price.Validate(); err != nil {
		errs = errors.AppendField(errs, "BoundPrice", errors.Wrap(errors.ErrInput, err.Error()))
	}
	if errs != nil {
		return nil, errs
	}

	roster, err := l.loadRoster(l.db)
	if err != nil {
		return nil, err
	}
	if !IsAuthorized(initialSigner, roster) {
		return nil, errors.Wrapf(ErrUnauthorizedSigner, "%s", initialSigner)
	}

	now := custody.AsUnixTime(l.clock.Now())
	rec := &LockRecord{
		TxID:       txID,
		Amount:     amount,
		Recipient:  cloneBytes(recipient),
		Status:     Pending,
		Signatures: []custody.Address{cloneBytes(initialSigner)},
		BoundPrice: price,
		CreatedAt:  now,
	}
	if IsSatisfied(len(rec.Signatures), l.quorum) {
		rec.Status = Locked
		rec.LockedAt = now
	}

	l.heightMu.Lock()
	err = l.commit(func(db custody.KVStore) error {
		h, err := l.heightSeq.NextInt(db)
		if err != nil {
			return err
		}
		rec.Height = h
		_, err = l.records.Put(db, txID.Bytes(), rec)
		return err
	})
	l.heightMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "cannot store lock")
	}

	l.logger.Info("lock created",
		"txid", txID, "amount", amount, "recipient", recipient, "price", price, "height", rec.Height)
	l.emit(Event{Kind: EventCreated, TxID: txID, Record: rec, Signer: initialSigner})
	if rec.Status == Locked {
		l.logger.Info("lock reached quorum", "txid", txID, "signatures", len(rec.Signatures))
		l.emit(Event{Kind: EventLocked, TxID: txID, Record: rec, Signer: initialSigner})
	}
	return rec.Copy(), nil
}

// Sign adds the signature of a custodian to a pending record. The record is
// locked by the signature that satisfies the quorum.
func (l *Ledger) Sign(txID custody.TxID, signer custody.Address) (*LockRecord, error) {
	mu := l.stripe(txID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := l.load(l.db, txID)
	if err != nil {
		return nil, err
	}
	roster, err := l.loadRoster(l.db)
	if err != nil {
		return nil, err
	}
	if !IsAuthorized(signer, roster) {
		return nil, errors.Wrapf(ErrUnauthorizedSigner, "%s", signer)
	}
	if rec.HasSigned(signer) {
		return nil, errors.Wrapf(ErrDuplicateSignature, "%s already signed lock %s", signer, txID)
	}
	if rec.Status != Pending || IsSatisfied(len(rec.Signatures), l.quorum) {
		return nil, errors.Wrapf(ErrAlreadyFinalized, "lock %s is %s", txID, rec.Status)
	}
	if uint64(len(rec.Signatures)) >= uint64(l.quorum.TotalSigners) {
		return nil, errors.Wrapf(ErrAlreadyFinalized, "lock %s has no signature slot left", txID)
	}

	rec.Signatures = append(rec.Signatures, cloneBytes(signer))
	kind := EventSignatureAdded
	if IsSatisfied(len(rec.Signatures), l.quorum) {
		rec.Status = Locked
		rec.LockedAt = custody.AsUnixTime(l.clock.Now())
		kind = EventLocked
	}
	if err := l.commit(func(db custody.KVStore) error {
		_, err := l.records.Put(db, txID.Bytes(), rec)
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "cannot store lock")
	}

	if kind == EventLocked {
		l.logger.Info("lock reached quorum", "txid", txID, "signatures", len(rec.Signatures))
	} else {
		l.logger.Debug("signature added", "txid", txID, "signer", signer, "signatures", len(rec.Signatures))
	}
	l.emit(Event{Kind: kind, TxID: txID, Record: rec, Signer: signer})
	return rec.Copy(), nil
}

// Release marks a locked record as released. The record is kept for audit
// and any further release fails with ErrInvalidState.
func (l *Ledger) Release(txID custody.TxID) (*LockRecord, error) {
	mu := l.stripe(txID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := l.load(l.db, txID)
	if err != nil {
		return nil, err
	}
	if !rec.Status.canMoveTo(Released) {
		return nil, errors.Wrapf(ErrInvalidState, "cannot release %s lock %s", rec.Status, txID)
	}
	rec.Status = Released
	rec.ReleasedAt = custody.AsUnixTime(l.clock.Now())
	if err := l.commit(func(db custody.KVStore) error {
		_, err := l.records.Put(db, txID.Bytes(), rec)
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "cannot store lock")
	}

	l.logger.Info("lock released", "txid", txID, "recipient", rec.Recipient, "amount", rec.Amount)
	l.emit(Event{Kind: EventReleased, TxID: txID, Record: rec})
	return rec.Copy(), nil
}

// Get returns the record of given transaction or ErrNotFound.
func (l *Ledger) Get(txID custody.TxID) (*LockRecord, error) {
	return l.load(l.db, txID)
}

// List returns all records with given status, ordered by transaction ID.
func (l *Ledger) List(status LockStatus) ([]LockRecord, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}
	var recs []LockRecord
	if _, err := l.records.ByIndex(l.db, "status", statusKey(status), &recs); err != nil {
		return nil, errors.Wrap(err, "status index")
	}
	return recs, nil
}

// ByRecipient returns all records minting to given address, ordered by
// transaction ID.
func (l *Ledger) ByRecipient(recipient custody.Address) ([]LockRecord, error) {
	if err := recipient.Validate(); err != nil {
		return nil, err
	}
	var recs []LockRecord
	if _, err := l.records.ByIndex(l.db, "recipient", recipient, &recs); err != nil {
		return nil, errors.Wrap(err, "recipient index")
	}
	return recs, nil
}

// emit publishes a copy of the event record, so that sinks cannot modify
// the ledger state.
func (l *Ledger) emit(e Event) {
	e.Record = e.Record.Copy()
	if e.Time.IsZero() {
		e.Time = l.clock.Now()
	}
	l.sink.Publish(e)
}
