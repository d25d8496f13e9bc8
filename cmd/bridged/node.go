package main

import (
	"context"
	"net/http"
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/bridge"
	"github.com/iov-one/custody/client/bitcoin"
	"github.com/iov-one/custody/client/mint"
	"github.com/iov-one/custody/client/price"
	"github.com/iov-one/custody/cmd/bridged/handlers"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/lock"
	"github.com/iov-one/custody/x/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"
	"github.com/tendermint/tendermint/libs/log"
)

// shutdownTimeout bounds the time in-flight API requests get to finish.
const shutdownTimeout = 10 * time.Second

// adapters are the external collaborators of the bridge.
type adapters struct {
	verifier bridge.Verifier
	oracle   bridge.PriceOracle
	releaser bridge.Releaser
	sink     notify.Sink
	// refresher is optional.
	refresher *price.Refresher
}

// newAdapters connects to the Bitcoin node, the price feeds and the mint
// endpoint of the destination ledger.
func newAdapters(conf Config, logger log.Logger) adapters {
	var sources []price.Source
	for _, s := range conf.Price.Sources {
		sources = append(sources, price.NewHTTPSource(s.Name, s.URL, conf.Price.Timeout))
	}
	if conf.Price.Static > 0 {
		sources = append(sources, price.StaticSource(conf.Price.Static))
	}
	oracle := price.NewOracle(sources, conf.priceConfig(), logger, nil)

	var refresher *price.Refresher
	if conf.Price.Refresh > 0 {
		refresher = price.NewRefresher(oracle, conf.Price.Refresh, conf.Bridge.Asset)
	}
	return adapters{
		verifier:  bitcoin.NewClient(conf.bitcoinConfig(), logger),
		oracle:    oracle,
		releaser:  mint.NewClient(conf.mintConfig(), logger),
		sink:      notify.NewWebhookSink(conf.Notify.Timeout),
		refresher: refresher,
	}
}

// node wires the ledger, the dispatcher and the coordinator on top of one
// store.
type node struct {
	conf        Config
	identity    custody.Address
	db          custody.CacheableKVStore
	ledger      *lock.Ledger
	dispatcher  *notify.Dispatcher
	coordinator *bridge.Coordinator
	contract    lock.Handler
	registry    *prometheus.Registry
	refresher   *price.Refresher
	logger      log.Logger
}

func newNode(
	db custody.CacheableKVStore,
	conf Config,
	identity custody.Address,
	a adapters,
	logger log.Logger,
	clock custody.Clock,
) (*node, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(prometheus.NewGoCollector()); err != nil {
		return nil, errors.Wrap(err, "go metrics")
	}
	if err := registry.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{})); err != nil {
		return nil, errors.Wrap(err, "process metrics")
	}

	dispatcher, err := notify.NewDispatcher(db, notify.Options{
		Sink:       a.sink,
		Config:     conf.notifyConfig(),
		Logger:     logger,
		Clock:      clock,
		Registerer: registry,
	})
	if err != nil {
		return nil, errors.Wrap(err, "dispatcher")
	}
	ledger, err := lock.NewLedger(db, dispatcher, logger, clock)
	if err != nil {
		return nil, err
	}
	if _, err := ledger.Custodian(identity); err != nil {
		return nil, errors.Wrap(err, "node identity is not in the roster")
	}
	coordinator, err := bridge.NewCoordinator(bridge.Options{
		Ledger:     ledger,
		Verifier:   a.verifier,
		Oracle:     a.oracle,
		Releaser:   a.releaser,
		Events:     dispatcher,
		Config:     conf.bridgeConfig(identity),
		Logger:     logger,
		Clock:      clock,
		Registerer: registry,
	})
	if err != nil {
		return nil, errors.Wrap(err, "coordinator")
	}

	return &node{
		conf:        conf,
		identity:    identity,
		db:          db,
		ledger:      ledger,
		dispatcher:  dispatcher,
		coordinator: coordinator,
		contract:    lock.NewHandler(ledger, conf.ChainID, conf.Debug),
		registry:    registry,
		refresher:   a.refresher,
		logger:      logger.With("module", "node"),
	}, nil
}

// handler returns the HTTP API of the node.
func (n *node) handler() http.Handler {
	conf := handlers.Config{
		Coordinator: n.coordinator,
		Ledger:      n.ledger,
		Contract:    n.contract,
		Registry:    n.dispatcher,
		Info: handlers.Info{
			Version:  custody.Version(),
			ChainID:  n.conf.ChainID,
			Identity: n.identity,
			Asset:    n.conf.Bridge.Asset,
		},
		Metrics: promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{}),
		Debug:   n.conf.Debug,
	}
	if v, ok := n.db.(handlers.Versioned); ok {
		conf.State = v
	}
	return handlers.Routes(conf)
}

// reload applies the settings that can change while running.
func (n *node) reload(conf Config) {
	n.dispatcher.SetRateLimit(conf.Notify.RateLimit, conf.Notify.Burst)
}

// run serves the API until ctx is cancelled. Background workers are
// stopped before it returns.
func (n *node) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n.dispatcher.Start(ctx)
	defer n.dispatcher.Stop()

	var wg conc.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	if n.refresher != nil {
		wg.Go(func() { n.refresher.Run(ctx) })
	}

	srv := &http.Server{
		Addr:              n.conf.Listen,
		Handler:           n.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	failed := make(chan error, 1)
	go func() {
		n.logger.Info("serving api", "addr", n.conf.Listen)
		failed <- srv.ListenAndServe()
	}()

	select {
	case err := <-failed:
		return errors.Wrap(errors.ErrUnavailable, err.Error())
	case <-ctx.Done():
	}

	n.logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	return nil
}
