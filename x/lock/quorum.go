package lock

import (
	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/gconf"
)

// configKey is the package name the quorum configuration is stored under.
const configKey = "lock"

// QuorumConfig is the static signature threshold. It is stored once and
// cannot be changed afterwards.
type QuorumConfig struct {
	RequiredSignatures uint32 `json:"required_signatures"`
	TotalSigners       uint32 `json:"total_signers"`
}

var _ gconf.Configuration = (*QuorumConfig)(nil)

func (c QuorumConfig) Validate() error {
	if c.RequiredSignatures == 0 {
		return errors.Field("RequiredSignatures", errors.ErrInput, "at least one signature is required")
	}
	if c.RequiredSignatures > c.TotalSigners {
		return errors.Field("RequiredSignatures", errors.ErrInput,
			"%d required signatures with only %d signers", c.RequiredSignatures, c.TotalSigners)
	}
	return nil
}

func (c QuorumConfig) Marshal() ([]byte, error) {
	return proto.Marshal(&quorumWire{
		RequiredSignatures: c.RequiredSignatures,
		TotalSigners:       c.TotalSigners,
	})
}

func (c *QuorumConfig) Unmarshal(raw []byte) error {
	var w quorumWire
	if err := proto.Unmarshal(raw, &w); err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	*c = QuorumConfig{RequiredSignatures: w.RequiredSignatures, TotalSigners: w.TotalSigners}
	return nil
}

// SaveQuorum stores the configuration. Storing a configuration that differs
// from an already stored one fails with ErrImmutable.
func SaveQuorum(db gconf.Store, c QuorumConfig) error {
	return gconf.SaveOnce(db, configKey, &c)
}

// LoadQuorum returns the stored configuration.
func LoadQuorum(db gconf.ReadStore) (QuorumConfig, error) {
	var c QuorumConfig
	if err := gconf.Load(db, configKey, &c); err != nil {
		return c, errors.Wrap(err, "quorum configuration")
	}
	return c, nil
}

// IsSatisfied returns true if count distinct signatures are enough to lock
// a record.
func IsSatisfied(count int, c QuorumConfig) bool {
	return count >= 0 && uint64(count) >= uint64(c.RequiredSignatures)
}

// IsAuthorized returns true if identity is an active member of the roster.
func IsAuthorized(identity custody.Address, r Roster) bool {
	if len(identity) == 0 || r == nil {
		return false
	}
	return r.IsActive(identity)
}
