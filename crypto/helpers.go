package crypto

import (
	"crypto/sha512"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

// ExtensionName is used for the conditions we get from signatures
const ExtensionName = "sigs"

// SignCodeV1 is the current way to prefix the bytes we use to build
// a signature
const SignCodeV1 = "\xCA\xFE\x00\x01"

// PubKey represents a crypto public key we use
type PubKey interface {
	Verify(message, sig []byte) bool
	Condition() custody.Condition
}

// Signer is the functionality we use from a private key
// No serializing to support hardware devices as well.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	PublicKey() PublicKey
}

/*
SignBytes builds the message a custodian signs to approve an action on a
lock record.

The format is:

4bytes  | uint8        | ascii string | uint8        | ascii string | 32 bytes
--------|--------------|--------------|--------------|--------------|---------
version | len(chainID) | chainID      | len(action)  | action       | txID

This is then prehashed with sha512 before fed into
the public key signing/verification step
*/
func SignBytes(chainID, action string, txID custody.TxID) ([]byte, error) {
	if len(chainID) == 0 || len(chainID) > 255 {
		return nil, errors.Wrapf(errors.ErrInput, "chain id: %q", chainID)
	}
	if len(action) == 0 || len(action) > 255 {
		return nil, errors.Wrapf(errors.ErrInput, "action: %q", action)
	}
	if err := txID.Validate(); err != nil {
		return nil, err
	}

	output := make([]byte, 0, 4+1+len(chainID)+1+len(action)+custody.TxIDLength)
	output = append(output, []byte(SignCodeV1)...)
	output = append(output, uint8(len(chainID)))
	output = append(output, []byte(chainID)...)
	output = append(output, uint8(len(action)))
	output = append(output, []byte(action)...)
	output = append(output, txID[:]...)

	// now, we take the sha512 hash of the result,
	// so we have a constant length output to feed into eddsa
	// which we need so ledger can support this as well
	hashed := sha512.Sum512(output)
	return hashed[:], nil
}
