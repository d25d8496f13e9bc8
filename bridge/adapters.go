package bridge

import (
	"context"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/x/lock"
)

// SourceTx is what the source chain knows about a deposit.
type SourceTx struct {
	Confirmed     bool
	Confirmations uint32
	Amount        btcutil.Amount
	// RecipientHint is the destination address announced by the deposit
	// itself, if any.
	RecipientHint custody.Address
}

// Verifier looks up deposits on the source chain. An unknown transaction
// results in errors.ErrLookup.
type Verifier interface {
	VerifySourceTx(ctx context.Context, txID custody.TxID) (SourceTx, error)
}

// Quote is a price of an asset at a point in time.
type Quote struct {
	Value float64
	AsOf  time.Time
}

// PriceOracle provides asset prices. It returns errors.ErrUnavailable when
// no price is known.
type PriceOracle interface {
	GetPrice(ctx context.Context, asset string) (Quote, error)
}

// Releaser performs the release of a locked record on the destination
// ledger. Release must be idempotent for a given record. The coordinator
// calls it again after a failure of the call, and also when the call
// succeeded but marking the record as released in the ledger failed.
type Releaser interface {
	Release(ctx context.Context, r *lock.LockRecord) error
}

// ReleaserFunc adapts a function to the Releaser interface.
type ReleaserFunc func(ctx context.Context, r *lock.LockRecord) error

func (fn ReleaserFunc) Release(ctx context.Context, r *lock.LockRecord) error {
	return fn(ctx, r)
}

// Ledger is the part of lock.Ledger used by the coordinator.
type Ledger interface {
	Get(txID custody.TxID) (*lock.LockRecord, error)
	CreateLock(txID custody.TxID, amount uint64, recipient custody.Address, price lock.FixedPointPrice, initialSigner custody.Address) (*lock.LockRecord, error)
	Sign(txID custody.TxID, signer custody.Address) (*lock.LockRecord, error)
	Release(txID custody.TxID) (*lock.LockRecord, error)
}

var _ Ledger = (*lock.Ledger)(nil)
