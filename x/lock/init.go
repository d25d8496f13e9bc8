package lock

import (
	"encoding/hex"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/gconf"
	"github.com/tendermint/tendermint/libs/log"
)

// GenesisCustodian is the initialization file entry of a custodian.
type GenesisCustodian struct {
	Name string `json:"name"`
	// PubKey is the hex encoded ed25519 public key.
	PubKey string `json:"pub_key"`
}

// Initializer stores the quorum configuration and the initial custodian
// roster. The expected options are
//
//	{
//	  "conf": {"lock": {"required_signatures": 2, "total_signers": 3}},
//	  "custodians": [{"name": "alice", "pub_key": "<hex>"}]
//	}
//
// Running it again with the same options is a no-op.
type Initializer struct {
	Logger log.Logger
	Clock  custody.Clock
}

// FromGenesis loads the lock section of the options into the store.
func (i Initializer) FromGenesis(opts gconf.Options, db custody.CacheableKVStore) error {
	if err := gconf.InitConfig(db, opts, configKey, &QuorumConfig{}); err != nil {
		return errors.Wrap(err, "quorum")
	}

	var custodians []GenesisCustodian
	if err := opts.ReadOptions("custodians", &custodians); err != nil {
		return err
	}

	ledger, err := NewLedger(db, nil, i.Logger, i.Clock)
	if err != nil {
		return err
	}
	for n, gc := range custodians {
		key, err := hex.DecodeString(gc.PubKey)
		if err != nil {
			return errors.Wrapf(errors.ErrInput, "custodian %d: cannot decode public key", n)
		}
		_, err = ledger.AddCustodian(crypto.PublicKey(key), gc.Name)
		switch {
		case err == nil:
		case errors.ErrDuplicate.Is(err):
			// Already added by an earlier run.
		default:
			return errors.Wrapf(err, "custodian %d", n)
		}
	}
	return nil
}
