package crypto

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/iov-one/custody/errors"
	"golang.org/x/crypto/ed25519"
)

// keyFileMode keeps a key file readable by its owner only.
const keyFileMode = 0o600

// DecodePrivateKey parses the hex form written by SavePrivateKey.
// Surrounding whitespace is ignored.
func DecodePrivateKey(enc string) (PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(enc))
	switch {
	case err != nil:
		return nil, errors.Wrap(errors.ErrInput, "private key is not hex")
	case len(raw) != ed25519.PrivateKeySize:
		return nil, errors.Wrapf(errors.ErrInput, "private key must be %d bytes", ed25519.PrivateKeySize)
	}
	return PrivateKey(raw), nil
}

// LoadPrivateKey reads a key file written by SavePrivateKey.
func LoadPrivateKey(path string) (PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read key file")
	}
	return DecodePrivateKey(string(raw))
}

// SavePrivateKey writes key in hex to path. An existing file is only
// replaced when force is set.
func SavePrivateKey(key PrivateKey, path string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, keyFileMode)
	if os.IsExist(err) {
		return errors.Wrapf(errors.ErrDuplicate, "key file %s exists", path)
	}
	if err != nil {
		return errors.Wrap(err, "create key file")
	}
	if _, err := f.WriteString(hex.EncodeToString(key)); err != nil {
		f.Close()
		return errors.Wrap(err, "write key file")
	}
	return errors.Wrap(f.Close(), "close key file")
}
