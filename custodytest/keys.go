package custodytest

import (
	"crypto/sha256"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/crypto"
)

// NewKey returns a random custodian key.
func NewKey() crypto.PrivateKey {
	return crypto.GenPrivKeyEd25519()
}

// KeyFromSeed returns a deterministic key. The same seed always results in
// the same key.
func KeyFromSeed(seed string) crypto.PrivateKey {
	h := sha256.Sum256([]byte(seed))
	return crypto.PrivKeyEd25519FromSeed(h[:])
}

// NewAddress returns the address of a random key.
func NewAddress() custody.Address {
	return NewKey().PublicKey().Address()
}
