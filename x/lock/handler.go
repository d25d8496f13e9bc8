package lock

import (
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
)

// Result is the outcome of a contract call. Code is zero on success and
// the registered error code otherwise.
type Result struct {
	Code   uint32      `json:"code"`
	Log    string      `json:"log,omitempty"`
	Record *LockRecord `json:"record,omitempty"`
}

// Handler exposes the ledger as the destination ledger contract. Every
// call must be signed by a custodian from the roster.
type Handler struct {
	ledger  *Ledger
	chainID string
	debug   bool
}

// NewHandler returns a contract handler. In debug mode the result log
// contains the full error stack.
func NewHandler(ledger *Ledger, chainID string, debug bool) Handler {
	return Handler{ledger: ledger, chainID: chainID, debug: debug}
}

// Deliver executes the call and converts any failure into its code.
func (h Handler) Deliver(msg Msg) Result {
	rec, err := h.deliver(msg)
	if err != nil {
		code, log := errors.Public(err, h.debug)
		// A duplicate creation still reports the existing record.
		return Result{Code: code, Log: log, Record: rec}
	}
	return Result{Record: rec}
}

func (h Handler) deliver(msg Msg) (*LockRecord, error) {
	if msg == nil {
		return nil, errors.Wrap(errors.ErrMsg, "no message")
	}
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}

	switch m := msg.(type) {
	case *CreateLockMsg:
		if err := h.Authorize(m.Custodian, ActionCreateLock, m.TxID, m.Signature); err != nil {
			return nil, err
		}
		return h.ledger.CreateLock(m.TxID, m.Amount, m.Recipient, m.BoundPrice, m.Custodian)
	case *AddSignatureMsg:
		if err := h.Authorize(m.Custodian, ActionAddSignature, m.TxID, m.Signature); err != nil {
			return nil, err
		}
		return h.ledger.Sign(m.TxID, m.Custodian)
	case *FinalizeReleaseMsg:
		if err := h.Authorize(m.Custodian, ActionFinalizeRelease, m.TxID, m.Signature); err != nil {
			return nil, err
		}
		return h.ledger.Release(m.TxID)
	default:
		return nil, errors.WithType(errors.ErrMsg, msg)
	}
}

// Authorize checks that addr is an active custodian and that the signature
// was created by its key over the sign bytes of the action.
func (h Handler) Authorize(addr custody.Address, action string, txID custody.TxID, sig []byte) error {
	c, err := h.ledger.Custodian(addr)
	if err != nil {
		if errors.ErrNotFound.Is(err) {
			return errors.Wrapf(ErrUnauthorizedSigner, "%s is not a custodian", addr)
		}
		return err
	}
	if !c.Active {
		return errors.Wrapf(ErrUnauthorizedSigner, "custodian %s is revoked", addr)
	}
	bz, err := crypto.SignBytes(h.chainID, action, txID)
	if err != nil {
		return err
	}
	if !c.PubKey.Verify(bz, sig) {
		return errors.Wrapf(errors.ErrUnauthorized, "invalid %s signature of %s", action, addr)
	}
	return nil
}
