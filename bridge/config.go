package bridge

import (
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/lock"
)

// Config is the coordinator configuration.
type Config struct {
	// MinConfirmations is the number of blocks a deposit must be buried
	// under before it can be locked.
	MinConfirmations uint32 `json:"min_confirmations"`
	// PriceMaxAge is the oldest quote that can be bound to a new lock.
	PriceMaxAge time.Duration `json:"price_max_age"`
	// Asset is the name of the bridged asset, as known to the oracle.
	Asset string `json:"asset"`
	// PriceScale is the fixed point scale of bound prices.
	PriceScale uint32 `json:"price_scale"`
	// Custodian is the identity of this coordinator. It is the initial
	// signer of every lock it creates.
	Custodian custody.Address `json:"custodian"`
}

// DefaultConfig returns the configuration with all defaults filled in but
// without a custodian identity.
func DefaultConfig() Config {
	return Config{
		MinConfirmations: 6,
		PriceMaxAge:      5 * time.Minute,
		Asset:            "BTC",
		PriceScale:       lock.DefaultPriceScale,
	}
}

func (c Config) Validate() error {
	var errs error
	if c.MinConfirmations == 0 {
		errs = errors.AppendField(errs, "MinConfirmations", errors.ErrEmpty)
	}
	if c.PriceMaxAge <= 0 {
		errs = errors.AppendField(errs, "PriceMaxAge", errors.Wrap(errors.ErrInput, "must be positive"))
	}
	if c.Asset == "" {
		errs = errors.AppendField(errs, "Asset", errors.ErrEmpty)
	}
	if c.PriceScale == 0 {
		errs = errors.AppendField(errs, "PriceScale", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Custodian", c.Custodian.Validate())
	return errs
}
