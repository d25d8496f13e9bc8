package lock

import (
	"encoding/json"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
	"golang.org/x/crypto/ed25519"
)

// Actions a custodian signs. Each message carries a signature over
// crypto.SignBytes of its action and transaction ID.
const (
	ActionCreateLock      = "create-lock"
	ActionAddSignature    = "add-signature"
	ActionFinalizeRelease = "finalize-release"
)

const (
	pathCreateLockMsg      = "lock/create"
	pathAddSignatureMsg    = "lock/sign"
	pathFinalizeReleaseMsg = "lock/release"
)

// Msg is a destination ledger contract call.
type Msg interface {
	Path() string
	Validate() error
}

var _ Msg = (*CreateLockMsg)(nil)
var _ Msg = (*AddSignatureMsg)(nil)
var _ Msg = (*FinalizeReleaseMsg)(nil)

// CreateLockMsg creates a lock record signed by the submitting custodian.
type CreateLockMsg struct {
	TxID       custody.TxID    `json:"txId"`
	Amount     uint64          `json:"amount"`
	Recipient  custody.Address `json:"recipient"`
	BoundPrice FixedPointPrice `json:"boundPrice"`
	Custodian  custody.Address `json:"custodian"`
	Signature  []byte          `json:"signature"`
}

func (CreateLockMsg) Path() string {
	return pathCreateLockMsg
}

func (m *CreateLockMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "TxID", m.TxID.Validate())
	if m.Amount == 0 {
		errs = errors.AppendField(errs, "Amount", ErrInvalidAmount)
	}
	errs = errors.AppendField(errs, "Recipient", m.Recipient.Validate())
	errs = errors.AppendField(errs, "BoundPrice", m.BoundPrice.Validate())
	errs = errors.AppendField(errs, "Custodian", m.Custodian.Validate())
	errs = errors.AppendField(errs, "Signature", validateSignature(m.Signature))
	return errs
}

// AddSignatureMsg adds the signature of a custodian to a pending record.
type AddSignatureMsg struct {
	TxID      custody.TxID    `json:"txId"`
	Custodian custody.Address `json:"custodian"`
	Signature []byte          `json:"signature"`
}

func (AddSignatureMsg) Path() string {
	return pathAddSignatureMsg
}

func (m *AddSignatureMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "TxID", m.TxID.Validate())
	errs = errors.AppendField(errs, "Custodian", m.Custodian.Validate())
	errs = errors.AppendField(errs, "Signature", validateSignature(m.Signature))
	return errs
}

// FinalizeReleaseMsg marks a locked record as released. Any active
// custodian may submit it.
type FinalizeReleaseMsg struct {
	TxID      custody.TxID    `json:"txId"`
	Custodian custody.Address `json:"custodian"`
	Signature []byte          `json:"signature"`
}

func (FinalizeReleaseMsg) Path() string {
	return pathFinalizeReleaseMsg
}

func (m *FinalizeReleaseMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "TxID", m.TxID.Validate())
	errs = errors.AppendField(errs, "Custodian", m.Custodian.Validate())
	errs = errors.AppendField(errs, "Signature", validateSignature(m.Signature))
	return errs
}

func validateSignature(sig []byte) error {
	if len(sig) == 0 {
		return errors.ErrEmpty
	}
	if len(sig) != ed25519.SignatureSize {
		return errors.Wrapf(errors.ErrInput, "signature must be %d bytes", ed25519.SignatureSize)
	}
	return nil
}

// SignAction returns the signature of a custodian approving action for
// given transaction.
func SignAction(signer crypto.Signer, chainID, action string, txID custody.TxID) ([]byte, error) {
	bz, err := crypto.SignBytes(chainID, action, txID)
	if err != nil {
		return nil, err
	}
	return signer.Sign(bz)
}

// DecodeMsg parses the JSON body of a contract call for given path.
func DecodeMsg(path string, raw []byte) (Msg, error) {
	var msg Msg
	switch path {
	case pathCreateLockMsg:
		msg = &CreateLockMsg{}
	case pathAddSignatureMsg:
		msg = &AddSignatureMsg{}
	case pathFinalizeReleaseMsg:
		msg = &FinalizeReleaseMsg{}
	default:
		return nil, errors.Wrapf(errors.ErrNotFound, "no message for path %q", path)
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, errors.Wrapf(errors.ErrMsg, "cannot decode %s: %s", path, err)
	}
	return msg, nil
}
