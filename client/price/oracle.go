package price

import (
	"context"
	"sort"
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/bridge"
	"github.com/iov-one/custody/errors"
	cache "github.com/patrickmn/go-cache"
	"github.com/sourcegraph/conc/pool"
	"github.com/tendermint/tendermint/libs/log"
)

// Config controls how quotes are combined.
type Config struct {
	// MaxAge is the oldest quote a source can contribute.
	MaxAge time.Duration `json:"max_age"`
	// CacheTTL is how long a combined quote is served from the cache.
	CacheTTL time.Duration `json:"cache_ttl"`
	// MinSources is the number of fresh quotes required.
	MinSources int `json:"min_sources"`
}

func DefaultConfig() Config {
	return Config{
		MaxAge:     2 * time.Minute,
		CacheTTL:   30 * time.Second,
		MinSources: 1,
	}
}

// Oracle is a bridge.PriceOracle combining several sources.
type Oracle struct {
	sources []Source
	conf    Config
	cache   *cache.Cache
	clock   custody.Clock
	logger  log.Logger
}

var _ bridge.PriceOracle = (*Oracle)(nil)

func NewOracle(sources []Source, conf Config, logger log.Logger, clock custody.Clock) *Oracle {
	def := DefaultConfig()
	if conf.MaxAge <= 0 {
		conf.MaxAge = def.MaxAge
	}
	if conf.CacheTTL <= 0 {
		conf.CacheTTL = def.CacheTTL
	}
	if conf.MinSources <= 0 {
		conf.MinSources = def.MinSources
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if clock == nil {
		clock = custody.SystemClock
	}
	return &Oracle{
		sources: sources,
		conf:    conf,
		cache:   cache.New(conf.CacheTTL, 2*conf.CacheTTL),
		clock:   clock,
		logger:  logger.With("module", "price"),
	}
}

// GetPrice returns the cached quote of the asset or fetches a new one.
func (o *Oracle) GetPrice(ctx context.Context, asset string) (bridge.Quote, error) {
	if q, ok := o.cache.Get(asset); ok {
		return q.(bridge.Quote), nil
	}
	return o.Fetch(ctx, asset)
}

// Fetch asks all sources for a quote and caches the median of the fresh
// answers.
func (o *Oracle) Fetch(ctx context.Context, asset string) (bridge.Quote, error) {
	if len(o.sources) == 0 {
		return bridge.Quote{}, errors.Wrap(errors.ErrUnavailable, "no price sources")
	}

	p := pool.NewWithResults[bridge.Quote]().WithContext(ctx)
	for _, s := range o.sources {
		s := s
		p.Go(func(ctx context.Context) (bridge.Quote, error) {
			q, err := s.Quote(ctx, asset)
			if err != nil {
				o.logger.Info("price source failed", "source", s.Name(), "asset", asset, "err", err)
				return q, err
			}
			return q, nil
		})
	}
	// Failed sources are left out of the results.
	quotes, _ := p.Wait()

	now := o.clock.Now()
	fresh := quotes[:0]
	for _, q := range quotes {
		if now.Sub(q.AsOf) <= o.conf.MaxAge {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) < o.conf.MinSources {
		return bridge.Quote{}, errors.Wrapf(errors.ErrUnavailable,
			"%d fresh %s quotes, %d required", len(fresh), asset, o.conf.MinSources)
	}

	q := median(fresh)
	o.cache.SetDefault(asset, q)
	o.logger.Debug("price updated", "asset", asset, "price", q.Value, "sources", len(fresh))
	return q, nil
}

// median returns the middle value. For an even number of quotes it is the
// mean of the two middle values. The quote time is the oldest time of the
// quotes used.
func median(quotes []bridge.Quote) bridge.Quote {
	sorted := make([]bridge.Quote, len(quotes))
	copy(sorted, quotes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	a, b := sorted[mid-1], sorted[mid]
	asOf := a.AsOf
	if b.AsOf.Before(asOf) {
		asOf = b.AsOf
	}
	return bridge.Quote{Value: (a.Value + b.Value) / 2, AsOf: asOf}
}
