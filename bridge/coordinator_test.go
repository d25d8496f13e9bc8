package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/custodytest"
	"github.com/iov-one/custody/custodytest/assert"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/store"
	"github.com/iov-one/custody/x/lock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ledger     *lock.Ledger
	events     *recorder
	clock      *custodytest.Clock
	custodians []custody.Address
}

// newFixture returns a ledger requiring 2 of 3 custodians. The first
// custodian is the identity of coordinators created by the fixture.
func newFixture(t testing.TB) *fixture {
	t.Helper()
	return newFixtureOn(t, store.NewMemStore())
}

func newFixtureOn(t testing.TB, db custody.CacheableKVStore) *fixture {
	t.Helper()

	require.NoError(t, lock.SaveQuorum(db, lock.QuorumConfig{RequiredSignatures: 2, TotalSigners: 3}))
	events := &recorder{}
	clock := custodytest.NewClock(testNow)
	ledger, err := lock.NewLedger(db, events, nil, clock)
	require.NoError(t, err)

	f := &fixture{ledger: ledger, events: events, clock: clock}
	for i := 0; i < 3; i++ {
		key := custodytest.KeyFromSeed(fmt.Sprintf("bridge custodian %d", i))
		c, err := ledger.AddCustodian(key.PublicKey(), "")
		require.NoError(t, err)
		f.custodians = append(f.custodians, c.Address)
	}
	return f
}

func (f *fixture) coordinator(t testing.TB, v Verifier, o PriceOracle, r Releaser) *Coordinator {
	t.Helper()
	conf := DefaultConfig()
	conf.Custodian = f.custodians[0]
	c, err := NewCoordinator(Options{
		Ledger:   f.ledger,
		Verifier: v,
		Oracle:   o,
		Releaser: r,
		Events:   f.events,
		Config:   conf,
		Clock:    f.clock,
	})
	require.NoError(t, err)
	return c
}

func finalDeposit(amount btcutil.Amount) SourceTx {
	return SourceTx{Confirmed: true, Confirmations: 7, Amount: amount}
}

func TestLockSignRelease(t *testing.T) {
	f := newFixture(t)
	txID := custodytest.TxID("scenario")
	recipient := custodytest.NewAddress()

	verifier := &verifierMock{}
	verifier.On("VerifySourceTx", mock.Anything, txID).Return(finalDeposit(btcutil.SatoshiPerBitcoin), nil).Once()
	oracle := &oracleMock{}
	oracle.On("GetPrice", mock.Anything, "BTC").Return(Quote{Value: 65000.00, AsOf: testNow.Add(-time.Second)}, nil).Once()
	releaser := &releaserMock{}
	releaser.On("Release", mock.Anything, txID).Return(nil).Once()

	c := f.coordinator(t, verifier, oracle, releaser)
	ctx := context.Background()

	rec, err := c.Lock(ctx, LockRequest{TxID: txID, Recipient: recipient, Amount: btcutil.SatoshiPerBitcoin})
	require.NoError(t, err)
	assert.Equal(t, lock.Pending, rec.Status)
	assert.Equal(t, lock.FixedPointPrice{Value: 6500000, Scale: 100}, rec.BoundPrice)
	assert.Equal(t, uint64(100000000), rec.Amount)
	assert.Equal(t, []custody.Address{f.custodians[0]}, rec.Signatures)

	rec, err = c.Sign(ctx, txID, f.custodians[1])
	require.NoError(t, err)
	assert.Equal(t, lock.Locked, rec.Status)

	_, err = c.Sign(ctx, txID, f.custodians[0])
	assert.IsErr(t, lock.ErrDuplicateSignature, err)

	rec, err = c.Release(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, lock.Released, rec.Status)
	assert.Equal(t, lock.FixedPointPrice{Value: 6500000, Scale: 100}, rec.BoundPrice)

	_, err = c.Release(ctx, txID)
	assert.IsErr(t, lock.ErrInvalidState, err)

	assert.Equal(t,
		[]lock.EventKind{lock.EventCreated, lock.EventLocked, lock.EventError, lock.EventReleased, lock.EventError},
		f.events.kinds(txID))
	failures := f.events.failures(txID)
	require.Len(t, failures, 2)
	assert.Equal(t, StageSign, failures[0].Stage)
	assert.Equal(t, lock.ErrDuplicateSignature.Code(), failures[0].Reason)
	assert.Equal(t, StageRelease, failures[1].Stage)
	assert.Equal(t, lock.ErrInvalidState.Code(), failures[1].Reason)

	verifier.AssertExpectations(t)
	oracle.AssertExpectations(t)
	releaser.AssertExpectations(t)
}

func TestLockRejections(t *testing.T) {
	amount := btcutil.Amount(50000000)
	fresh := Quote{Value: 65000, AsOf: testNow}

	cases := map[string]struct {
		deposit     SourceTx
		verifyErr   error
		quote       Quote
		priceErr    error
		custodian   int
		wantStage   string
		wantErr     *errors.Error
		wantLocked  bool
		skipsOracle bool
	}{
		"not enough confirmations": {
			deposit:     SourceTx{Confirmed: true, Confirmations: 5, Amount: amount},
			wantStage:   StageVerify,
			wantErr:     errors.ErrNotFinal,
			skipsOracle: true,
		},
		"not confirmed": {
			deposit:     SourceTx{Confirmations: 10, Amount: amount},
			wantStage:   StageVerify,
			wantErr:     errors.ErrNotFinal,
			skipsOracle: true,
		},
		"amount differs": {
			deposit:     finalDeposit(amount + 1),
			wantStage:   StageVerify,
			wantErr:     errors.ErrInput,
			skipsOracle: true,
		},
		"deposit for another recipient": {
			deposit: SourceTx{
				Confirmed:     true,
				Confirmations: 6,
				Amount:        amount,
				RecipientHint: custodytest.NewAddress(),
			},
			wantStage:   StageVerify,
			wantErr:     errors.ErrInput,
			skipsOracle: true,
		},
		"unknown transaction": {
			verifyErr:   errors.Wrap(errors.ErrLookup, "no such transaction"),
			wantStage:   StageVerify,
			wantErr:     errors.ErrLookup,
			skipsOracle: true,
		},
		"verifier failure": {
			verifyErr:   fmt.Errorf("connection refused"),
			wantStage:   StageVerify,
			wantErr:     errors.ErrDependency,
			skipsOracle: true,
		},
		"oracle failure": {
			deposit:   finalDeposit(amount),
			priceErr:  errors.Wrap(errors.ErrUnavailable, "no quotes"),
			wantStage: StagePrice,
			wantErr:   ErrPriceUnavailable,
		},
		"stale quote": {
			deposit:   finalDeposit(amount),
			quote:     Quote{Value: 65000, AsOf: testNow.Add(-time.Hour)},
			wantStage: StagePrice,
			wantErr:   ErrPriceUnavailable,
		},
		"negative quote": {
			deposit:   finalDeposit(amount),
			quote:     Quote{Value: -1, AsOf: testNow},
			wantStage: StagePrice,
			wantErr:   ErrPriceUnavailable,
		},
		"coordinator is not a custodian": {
			deposit:   finalDeposit(amount),
			quote:     fresh,
			custodian: -1,
			wantStage: StageCreate,
			wantErr:   lock.ErrUnauthorizedSigner,
		},
		"six confirmations are enough": {
			deposit:    SourceTx{Confirmed: true, Confirmations: 6, Amount: amount},
			quote:      fresh,
			wantLocked: true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			txID := custodytest.TxID(testName)
			recipient := custodytest.NewAddress()

			verifier := &verifierMock{}
			verifier.On("VerifySourceTx", mock.Anything, txID).Return(tc.deposit, tc.verifyErr)
			oracle := &oracleMock{}
			oracle.On("GetPrice", mock.Anything, "BTC").Return(tc.quote, tc.priceErr)

			conf := DefaultConfig()
			conf.Custodian = f.custodians[0]
			if tc.custodian < 0 {
				conf.Custodian = custodytest.NewAddress()
			}
			c, err := NewCoordinator(Options{
				Ledger:   f.ledger,
				Verifier: verifier,
				Oracle:   oracle,
				Releaser: &releaserMock{},
				Events:   f.events,
				Config:   conf,
				Clock:    f.clock,
			})
			require.NoError(t, err)

			rec, err := c.Lock(context.Background(), LockRequest{TxID: txID, Recipient: recipient, Amount: amount})
			if tc.wantLocked {
				require.NoError(t, err)
				assert.Equal(t, lock.Pending, rec.Status)
				assert.Equal(t, 0, len(f.events.failures(txID)))
				return
			}
			assert.IsErr(t, tc.wantErr, err)
			if rec != nil {
				t.Fatalf("unexpected record: %+v", rec)
			}

			_, err = f.ledger.Get(txID)
			assert.IsErr(t, errors.ErrNotFound, err)

			failures := f.events.failures(txID)
			require.Len(t, failures, 1)
			assert.Equal(t, tc.wantStage, failures[0].Stage)
			assert.Equal(t, tc.wantErr.Code(), failures[0].Reason)
			if failures[0].RequestID == "" {
				t.Fatal("error notification without a request ID")
			}

			if tc.skipsOracle {
				oracle.AssertNotCalled(t, "GetPrice", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestLockRequestValidation(t *testing.T) {
	f := newFixture(t)
	// Mocks without expectations fail the test when called.
	c := f.coordinator(t, &verifierMock{}, &oracleMock{}, &releaserMock{})

	cases := map[string]struct {
		req       LockRequest
		wantField string
		wantErr   *errors.Error
	}{
		"missing transaction": {
			req:       LockRequest{Recipient: custodytest.NewAddress(), Amount: 1},
			wantField: "TxID",
			wantErr:   errors.ErrEmpty,
		},
		"missing recipient": {
			req:       LockRequest{TxID: custodytest.TxID("a"), Amount: 1},
			wantField: "Recipient",
			wantErr:   errors.ErrEmpty,
		},
		"malformed recipient": {
			req:       LockRequest{TxID: custodytest.TxID("a"), Recipient: custody.Address("short"), Amount: 1},
			wantField: "Recipient",
			wantErr:   errors.ErrInput,
		},
		"zero amount": {
			req:       LockRequest{TxID: custodytest.TxID("a"), Recipient: custodytest.NewAddress()},
			wantField: "Amount",
			wantErr:   lock.ErrInvalidAmount,
		},
		"negative amount": {
			req:       LockRequest{TxID: custodytest.TxID("a"), Recipient: custodytest.NewAddress(), Amount: -5},
			wantField: "Amount",
			wantErr:   lock.ErrInvalidAmount,
		},
		"more than all bitcoin": {
			req:       LockRequest{TxID: custodytest.TxID("a"), Recipient: custodytest.NewAddress(), Amount: btcutil.MaxSatoshi + 1},
			wantField: "Amount",
			wantErr:   lock.ErrInvalidAmount,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			_, err := c.Lock(context.Background(), tc.req)
			assert.FieldError(t, err, tc.wantField, tc.wantErr)
		})
	}

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	assert.Equal(t, 0, len(f.events.events))
}

func TestLockIsIdempotent(t *testing.T) {
	f := newFixture(t)
	txID := custodytest.TxID("idempotent")
	req := LockRequest{TxID: txID, Recipient: custodytest.NewAddress(), Amount: 1000}

	verifier := &verifierMock{}
	verifier.On("VerifySourceTx", mock.Anything, txID).Return(finalDeposit(1000), nil).Once()
	oracle := &oracleMock{}
	oracle.On("GetPrice", mock.Anything, "BTC").Return(Quote{Value: 100, AsOf: testNow}, nil).Once()
	c := f.coordinator(t, verifier, oracle, &releaserMock{})

	first, err := c.Lock(context.Background(), req)
	require.NoError(t, err)

	// The price moved, the bound price must not.
	f.clock.Advance(time.Hour)
	second, err := c.Lock(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Height, second.Height)
	assert.Equal(t, lock.FixedPointPrice{Value: 10000, Scale: 100}, second.BoundPrice)

	assert.Equal(t, []lock.EventKind{lock.EventCreated}, f.events.kinds(txID))
	verifier.AssertExpectations(t)
	oracle.AssertExpectations(t)
}

type verifierFunc func(ctx context.Context, txID custody.TxID) (SourceTx, error)

func (fn verifierFunc) VerifySourceTx(ctx context.Context, txID custody.TxID) (SourceTx, error) {
	return fn(ctx, txID)
}

type oracleFunc func(ctx context.Context, asset string) (Quote, error)

func (fn oracleFunc) GetPrice(ctx context.Context, asset string) (Quote, error) {
	return fn(ctx, asset)
}

func TestConcurrentLock(t *testing.T) {
	f := newFixture(t)
	txID := custodytest.TxID("concurrent lock")
	req := LockRequest{TxID: txID, Recipient: custodytest.NewAddress(), Amount: 2500}

	verifier := verifierFunc(func(context.Context, custody.TxID) (SourceTx, error) {
		time.Sleep(time.Millisecond)
		return finalDeposit(2500), nil
	})
	oracle := oracleFunc(func(context.Context, string) (Quote, error) {
		return Quote{Value: 1, AsOf: testNow}, nil
	})
	c := f.coordinator(t, verifier, oracle, &releaserMock{})

	const callers = 16
	var wg sync.WaitGroup
	records := make([]*lock.LockRecord, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = c.Lock(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, records[0].Height, records[i].Height)
	}
	assert.Equal(t, []lock.EventKind{lock.EventCreated}, f.events.kinds(txID))
}

func TestLockCancelled(t *testing.T) {
	f := newFixture(t)

	t.Run("before verification", func(t *testing.T) {
		c := f.coordinator(t, &verifierMock{}, &oracleMock{}, &releaserMock{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		txID := custodytest.TxID("cancelled early")
		_, err := c.Lock(ctx, LockRequest{TxID: txID, Recipient: custodytest.NewAddress(), Amount: 1})
		assert.IsErr(t, errors.ErrUnavailable, err)
		_, err = f.ledger.Get(txID)
		assert.IsErr(t, errors.ErrNotFound, err)
	})

	t.Run("during verification", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		verifier := verifierFunc(func(ctx context.Context, _ custody.TxID) (SourceTx, error) {
			cancel()
			return finalDeposit(1), nil
		})
		c := f.coordinator(t, verifier, &oracleMock{}, &releaserMock{})

		txID := custodytest.TxID("cancelled later")
		_, err := c.Lock(ctx, LockRequest{TxID: txID, Recipient: custodytest.NewAddress(), Amount: 1})
		assert.IsErr(t, errors.ErrUnavailable, err)
		_, err = f.ledger.Get(txID)
		assert.IsErr(t, errors.ErrNotFound, err)
		assert.Equal(t, 0, len(f.events.kinds(txID)))
	})
}

// lockRecord creates a record through the ledger, signed by the given
// custodians.
func (f *fixture) lockRecord(t testing.TB, seed string, signers ...int) custody.TxID {
	t.Helper()
	txID := custodytest.TxID(seed)
	_, err := f.ledger.CreateLock(txID, 1000, custodytest.NewAddress(), lock.FixedPointPrice{Value: 1, Scale: 100}, f.custodians[signers[0]])
	require.NoError(t, err)
	for _, s := range signers[1:] {
		_, err := f.ledger.Sign(txID, f.custodians[s])
		require.NoError(t, err)
	}
	return txID
}

func TestReleaseRejections(t *testing.T) {
	f := newFixture(t)
	releaser := &releaserMock{}
	c := f.coordinator(t, &verifierMock{}, &oracleMock{}, releaser)
	ctx := context.Background()

	unknown := custodytest.TxID("unknown")
	_, err := c.Release(ctx, unknown)
	assert.IsErr(t, errors.ErrNotFound, err)

	pending := f.lockRecord(t, "pending", 0)
	_, err = c.Release(ctx, pending)
	assert.IsErr(t, lock.ErrInvalidState, err)

	releaser.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)

	for _, txID := range []custody.TxID{unknown, pending} {
		failures := f.events.failures(txID)
		require.Len(t, failures, 1)
		assert.Equal(t, StageRelease, failures[0].Stage)
	}
	assert.Equal(t, errors.ErrNotFound.Code(), f.events.failures(unknown)[0].Reason)
	assert.Equal(t, lock.ErrInvalidState.Code(), f.events.failures(pending)[0].Reason)
}

func TestSignRejections(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t, &verifierMock{}, &oracleMock{}, &releaserMock{})

	cases := map[string]struct {
		txID    func(t testing.TB) custody.TxID
		signer  func() custody.Address
		wantErr *errors.Error
	}{
		"unknown record": {
			txID:    func(testing.TB) custody.TxID { return custodytest.TxID("sign unknown") },
			signer:  func() custody.Address { return f.custodians[1] },
			wantErr: errors.ErrNotFound,
		},
		"not a custodian": {
			txID:    func(t testing.TB) custody.TxID { return f.lockRecord(t, "sign stranger", 0) },
			signer:  custodytest.NewAddress,
			wantErr: lock.ErrUnauthorizedSigner,
		},
		"second signature of a custodian": {
			txID:    func(t testing.TB) custody.TxID { return f.lockRecord(t, "sign twice", 0) },
			signer:  func() custody.Address { return f.custodians[0] },
			wantErr: lock.ErrDuplicateSignature,
		},
		"record already locked": {
			txID:    func(t testing.TB) custody.TxID { return f.lockRecord(t, "sign locked", 0, 1) },
			signer:  func() custody.Address { return f.custodians[2] },
			wantErr: lock.ErrAlreadyFinalized,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			txID := tc.txID(t)
			before := len(f.events.failures(txID))

			_, err := c.Sign(context.Background(), txID, tc.signer())
			assert.IsErr(t, tc.wantErr, err)

			failures := f.events.failures(txID)
			require.Len(t, failures, before+1)
			last := failures[len(failures)-1]
			assert.Equal(t, StageSign, last.Stage)
			assert.Equal(t, tc.wantErr.Code(), last.Reason)
		})
	}
}

func TestReleaseRetry(t *testing.T) {
	f := newFixture(t)
	txID := f.lockRecord(t, "retry", 0, 2)

	releaser := &releaserMock{}
	releaser.On("Release", mock.Anything, txID).Return(fmt.Errorf("destination timeout")).Once()
	releaser.On("Release", mock.Anything, txID).Return(nil).Once()
	c := f.coordinator(t, &verifierMock{}, &oracleMock{}, releaser)

	_, err := c.Release(context.Background(), txID)
	assert.IsErr(t, errors.ErrDependency, err)
	if !lock.IsRetryable(err) {
		t.Fatalf("release failure must be retryable: %+v", err)
	}

	rec, err := f.ledger.Get(txID)
	require.NoError(t, err)
	assert.Equal(t, lock.Locked, rec.Status)

	rec, err = c.Release(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, lock.Released, rec.Status)

	failures := f.events.failures(txID)
	require.Len(t, failures, 1)
	assert.Equal(t, errors.ErrDependency.Code(), failures[0].Reason)
	if failures[0].Record == nil || failures[0].Record.Status != lock.Locked {
		t.Fatalf("error notification must carry the locked record: %+v", failures[0].Record)
	}
	releaser.AssertExpectations(t)
}

// failingStore fails every commit while fail is set.
type failingStore struct {
	custody.CacheableKVStore
	fail *int32
}

func (s failingStore) CacheWrap() custody.KVCacheWrap {
	return failingCache{KVCacheWrap: s.CacheableKVStore.CacheWrap(), fail: s.fail}
}

type failingCache struct {
	custody.KVCacheWrap
	fail *int32
}

func (c failingCache) Write() error {
	if atomic.LoadInt32(c.fail) != 0 {
		c.Discard()
		return errors.Wrap(errors.ErrDatabase, "disk full")
	}
	return c.KVCacheWrap.Write()
}

func TestReleaseRepeatsAfterCommitFailure(t *testing.T) {
	var fail int32
	f := newFixtureOn(t, failingStore{CacheableKVStore: store.NewMemStore(), fail: &fail})
	txID := f.lockRecord(t, "commit failure", 0, 1)

	var calls int32
	releaser := ReleaserFunc(func(context.Context, *lock.LockRecord) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	c := f.coordinator(t, &verifierMock{}, &oracleMock{}, releaser)

	atomic.StoreInt32(&fail, 1)
	_, err := c.Release(context.Background(), txID)
	assert.IsErr(t, errors.ErrDatabase, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	rec, err := f.ledger.Get(txID)
	require.NoError(t, err)
	assert.Equal(t, lock.Locked, rec.Status)

	// The destination sees the release a second time.
	atomic.StoreInt32(&fail, 0)
	rec, err = c.Release(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, lock.Released, rec.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	failures := f.events.failures(txID)
	require.Len(t, failures, 1)
	assert.Equal(t, StageRelease, failures[0].Stage)
	assert.Equal(t, errors.ErrDatabase.Code(), failures[0].Reason)
}

func TestConcurrentRelease(t *testing.T) {
	f := newFixture(t)
	txID := f.lockRecord(t, "concurrent release", 1, 2)

	var calls int32
	releaser := ReleaserFunc(func(context.Context, *lock.LockRecord) error {
		atomic.AddInt32(&calls, 1)
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	c := f.coordinator(t, &verifierMock{}, &oracleMock{}, releaser)

	const callers = 20
	var (
		wg        sync.WaitGroup
		released  int32
		conflicts int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Release(context.Background(), txID)
			switch {
			case err == nil:
				atomic.AddInt32(&released, 1)
			case lock.ErrInvalidState.Is(err):
				atomic.AddInt32(&conflicts, 1)
			default:
				t.Errorf("unexpected error: %+v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, int32(1), released)
	assert.Equal(t, int32(callers-1), conflicts)
}

func TestReleaseWaitIsCancellable(t *testing.T) {
	f := newFixture(t)
	txID := f.lockRecord(t, "slow release", 0, 1)

	entered := make(chan struct{})
	unblock := make(chan struct{})
	releaser := ReleaserFunc(func(context.Context, *lock.LockRecord) error {
		close(entered)
		<-unblock
		return nil
	})
	c := f.coordinator(t, &verifierMock{}, &oracleMock{}, releaser)

	done := make(chan error)
	go func() {
		_, err := c.Release(context.Background(), txID)
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Release(ctx, txID)
	assert.IsErr(t, errors.ErrUnavailable, err)

	close(unblock)
	require.NoError(t, <-done)
}

func TestNewCoordinator(t *testing.T) {
	_, err := NewCoordinator(Options{Config: Config{}})
	for _, field := range []string{"Ledger", "Verifier", "Oracle", "Releaser"} {
		assert.FieldError(t, err, field, errors.ErrEmpty)
	}
	// Configuration errors are reported by their own field names.
	assert.FieldError(t, err, "Asset", errors.ErrEmpty)
	assert.FieldError(t, err, "Custodian", errors.ErrEmpty)

	f := newFixture(t)
	conf := DefaultConfig()
	conf.Custodian = f.custodians[0]
	reg := prometheus.NewRegistry()
	opts := Options{
		Ledger:     f.ledger,
		Verifier:   &verifierMock{},
		Oracle:     &oracleMock{},
		Releaser:   &releaserMock{},
		Config:     conf,
		Registerer: reg,
	}
	_, err = NewCoordinator(opts)
	require.NoError(t, err)
	// Metrics cannot be registered twice.
	_, err = NewCoordinator(opts)
	if err == nil {
		t.Fatal("duplicate metrics registration accepted")
	}
}
