package main

import (
	"encoding/hex"
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/bridge"
	"github.com/iov-one/custody/client/bitcoin"
	"github.com/iov-one/custody/client/mint"
	"github.com/iov-one/custody/client/price"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/gconf"
	"github.com/iov-one/custody/x/lock"
	"github.com/iov-one/custody/x/notify"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ed25519"
)

// Config is the daemon configuration, read from the YAML configuration
// file and BRIDGED_ prefixed environment variables.
type Config struct {
	Home     string `mapstructure:"home"`
	ChainID  string `mapstructure:"chain_id"`
	Listen   string `mapstructure:"listen"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	// KeyFile holds the custodian key of this daemon. Relative paths are
	// resolved against Home.
	KeyFile string `mapstructure:"key_file"`

	Quorum     QuorumConfig      `mapstructure:"quorum"`
	Custodians []CustodianConfig `mapstructure:"custodians"`
	Bridge     BridgeConfig      `mapstructure:"bridge"`
	Bitcoin    BitcoinConfig     `mapstructure:"bitcoin"`
	Price      PriceConfig       `mapstructure:"price"`
	Mint       MintConfig        `mapstructure:"mint"`
	Notify     NotifyConfig      `mapstructure:"notify"`
}

// QuorumConfig is stored in the ledger by init. Later changes are rejected
// by the ledger.
type QuorumConfig struct {
	Required uint32 `mapstructure:"required"`
	Total    uint32 `mapstructure:"total"`
}

type CustodianConfig struct {
	Name string `mapstructure:"name"`
	// PubKey is the hex encoded ed25519 public key.
	PubKey string `mapstructure:"pub_key"`
}

type BridgeConfig struct {
	MinConfirmations uint32        `mapstructure:"min_confirmations"`
	PriceMaxAge      time.Duration `mapstructure:"price_max_age"`
	Asset            string        `mapstructure:"asset"`
	PriceScale       uint32        `mapstructure:"price_scale"`
}

type BitcoinConfig struct {
	URL            string        `mapstructure:"url"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Timeout        time.Duration `mapstructure:"timeout"`
	DepositAddress string        `mapstructure:"deposit_address"`
}

type PriceSourceConfig struct {
	Name string `mapstructure:"name"`
	// URL may contain the {asset} placeholder.
	URL string `mapstructure:"url"`
}

type PriceConfig struct {
	Sources []PriceSourceConfig `mapstructure:"sources"`
	// Static, when greater than zero, is served as a quote of every asset.
	// Meant for development setups without a price feed.
	Static     float64       `mapstructure:"static"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	MinSources int           `mapstructure:"min_sources"`
	Refresh    time.Duration `mapstructure:"refresh"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type MintConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	Workers     int           `mapstructure:"workers"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	Burst       int           `mapstructure:"burst"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// setDefaults registers every configuration key, so that each of them can
// be overwritten with an environment variable.
func setDefaults(v *viper.Viper) {
	bridgeConf := bridge.DefaultConfig()
	priceConf := price.DefaultConfig()
	notifyConf := notify.DefaultConfig()

	v.SetDefault("chain_id", "custody-dev")
	v.SetDefault("listen", ":8080")
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("key_file", "custodian.key")

	v.SetDefault("quorum.required", 2)
	v.SetDefault("quorum.total", 3)

	v.SetDefault("bridge.min_confirmations", bridgeConf.MinConfirmations)
	v.SetDefault("bridge.price_max_age", bridgeConf.PriceMaxAge)
	v.SetDefault("bridge.asset", bridgeConf.Asset)
	v.SetDefault("bridge.price_scale", bridgeConf.PriceScale)

	v.SetDefault("bitcoin.url", "http://localhost:8332")
	v.SetDefault("bitcoin.user", "")
	v.SetDefault("bitcoin.password", "")
	v.SetDefault("bitcoin.timeout", 10*time.Second)
	v.SetDefault("bitcoin.deposit_address", "")

	v.SetDefault("price.static", 0.0)
	v.SetDefault("price.max_age", priceConf.MaxAge)
	v.SetDefault("price.cache_ttl", priceConf.CacheTTL)
	v.SetDefault("price.min_sources", priceConf.MinSources)
	v.SetDefault("price.refresh", 15*time.Second)
	v.SetDefault("price.timeout", 5*time.Second)

	v.SetDefault("mint.url", "http://localhost:9090/mint")
	v.SetDefault("mint.token", "")
	v.SetDefault("mint.timeout", 10*time.Second)

	v.SetDefault("notify.workers", notifyConf.Workers)
	v.SetDefault("notify.max_attempts", notifyConf.MaxAttempts)
	v.SetDefault("notify.backoff", notifyConf.Backoff)
	v.SetDefault("notify.rate_limit", notifyConf.RateLimit)
	v.SetDefault("notify.burst", notifyConf.Burst)
	v.SetDefault("notify.timeout", 5*time.Second)
}

// loadConfig decodes the configuration held by v. Callers validate the
// part they use.
func loadConfig(v *viper.Viper) (Config, error) {
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return conf, errors.Wrap(errors.ErrInput, err.Error())
	}
	if conf.Home == "" {
		return conf, errors.Field("Home", errors.ErrEmpty, "home directory is required")
	}
	if !filepath.IsAbs(conf.KeyFile) {
		conf.KeyFile = filepath.Join(conf.Home, conf.KeyFile)
	}
	return conf, nil
}

// validateGenesis checks the part of the configuration that init stores in
// the ledger.
func (c Config) validateGenesis() error {
	var errs error
	if c.ChainID == "" {
		errs = errors.AppendField(errs, "ChainID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Quorum", c.quorum().Validate())
	for _, cc := range c.Custodians {
		if _, err := decodePubKey(cc.PubKey); err != nil {
			errs = errors.AppendField(errs, "Custodians", errors.Wrapf(err, "custodian %q", cc.Name))
		}
	}
	return errs
}

// Validate checks everything the daemon needs to run.
func (c Config) Validate() error {
	errs := c.validateGenesis()
	if c.Listen == "" {
		errs = errors.AppendField(errs, "Listen", errors.ErrEmpty)
	}
	if _, err := url.ParseRequestURI(c.Bitcoin.URL); err != nil {
		errs = errors.AppendField(errs, "Bitcoin", errors.Wrap(errors.ErrInput, "invalid url"))
	}
	if _, err := url.ParseRequestURI(c.Mint.URL); err != nil {
		errs = errors.AppendField(errs, "Mint", errors.Wrap(errors.ErrInput, "invalid url"))
	}
	if len(c.Price.Sources) == 0 && c.Price.Static <= 0 {
		errs = errors.AppendField(errs, "Price", errors.Wrap(errors.ErrEmpty, "no price source"))
	}
	for _, s := range c.Price.Sources {
		if s.Name == "" {
			errs = errors.AppendField(errs, "Price", errors.Wrap(errors.ErrEmpty, "source name"))
		}
		if _, err := url.ParseRequestURI(s.URL); err != nil {
			errs = errors.AppendField(errs, "Price", errors.Wrapf(errors.ErrInput, "source %q url", s.Name))
		}
	}
	return errs
}

func (c Config) quorum() lock.QuorumConfig {
	return lock.QuorumConfig{RequiredSignatures: c.Quorum.Required, TotalSigners: c.Quorum.Total}
}

// bridgeConfig returns the coordinator settings for given identity.
func (c Config) bridgeConfig(identity custody.Address) bridge.Config {
	return bridge.Config{
		MinConfirmations: c.Bridge.MinConfirmations,
		PriceMaxAge:      c.Bridge.PriceMaxAge,
		Asset:            c.Bridge.Asset,
		PriceScale:       c.Bridge.PriceScale,
		Custodian:        identity,
	}
}

func (c Config) bitcoinConfig() bitcoin.Config {
	return bitcoin.Config{
		URL:            c.Bitcoin.URL,
		User:           c.Bitcoin.User,
		Password:       c.Bitcoin.Password,
		Timeout:        c.Bitcoin.Timeout,
		DepositAddress: c.Bitcoin.DepositAddress,
	}
}

func (c Config) priceConfig() price.Config {
	return price.Config{
		MaxAge:     c.Price.MaxAge,
		CacheTTL:   c.Price.CacheTTL,
		MinSources: c.Price.MinSources,
	}
}

func (c Config) mintConfig() mint.Config {
	return mint.Config{URL: c.Mint.URL, Token: c.Mint.Token, Timeout: c.Mint.Timeout}
}

func (c Config) notifyConfig() notify.Config {
	return notify.Config{
		Workers:     c.Notify.Workers,
		MaxAttempts: c.Notify.MaxAttempts,
		Backoff:     c.Notify.Backoff,
		RateLimit:   c.Notify.RateLimit,
		Burst:       c.Notify.Burst,
	}
}

// genesis returns the initialization options of the ledger. The identity
// key is always part of the roster.
func (c Config) genesis(identity []byte) (gconf.Options, error) {
	custodians := make([]lock.GenesisCustodian, 0, len(c.Custodians)+1)
	self := hex.EncodeToString(identity)
	var hasSelf bool
	for _, cc := range c.Custodians {
		custodians = append(custodians, lock.GenesisCustodian{Name: cc.Name, PubKey: cc.PubKey})
		if strings.EqualFold(cc.PubKey, self) {
			hasSelf = true
		}
	}
	if !hasSelf {
		custodians = append([]lock.GenesisCustodian{{Name: "local", PubKey: self}}, custodians...)
	}

	conf, err := json.Marshal(map[string]interface{}{"lock": c.quorum()})
	if err != nil {
		return nil, errors.Wrap(err, "quorum")
	}
	roster, err := json.Marshal(custodians)
	if err != nil {
		return nil, errors.Wrap(err, "custodians")
	}
	return gconf.Options{"conf": conf, "custodians": roster}, nil
}

func decodePubKey(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "public key is not hex")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(errors.ErrInput, "public key must be %d bytes", ed25519.PublicKeySize)
	}
	return raw, nil
}
