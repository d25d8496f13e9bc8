package price

import (
	"context"
	"time"

	"github.com/tendermint/tendermint/libs/log"
)

// Refresher keeps the quotes of a set of assets in the oracle cache warm.
type Refresher struct {
	oracle   *Oracle
	assets   []string
	interval time.Duration
	logger   log.Logger
}

func NewRefresher(o *Oracle, interval time.Duration, assets ...string) *Refresher {
	return &Refresher{
		oracle:   o,
		assets:   assets,
		interval: interval,
		logger:   o.logger,
	}
}

// Run refreshes all assets immediately and then every interval until ctx
// is cancelled. Failures are logged, the previous quote stays cached until
// it expires.
func (r *Refresher) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		r.refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	for _, asset := range r.assets {
		if _, err := r.oracle.Fetch(ctx, asset); err != nil && ctx.Err() == nil {
			r.logger.Error("cannot refresh price", "asset", asset, "err", err)
		}
	}
}
