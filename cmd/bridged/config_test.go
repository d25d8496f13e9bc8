package main

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/iov-one/custody/custodytest"
	"github.com/iov-one/custody/custodytest/assert"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/gconf"
	"github.com/iov-one/custody/store"
	"github.com/iov-one/custody/x/lock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const testConfig = `
chain_id: custody-test
listen: ":9000"
quorum:
  required: 2
  total: 3
custodians:
  - name: bob
    pub_key: 3b6a27bcceb6a42d62a3a8d02a6f0d73653215771de243a63ac048a18b59da29
bridge:
  min_confirmations: 3
  price_max_age: 90s
bitcoin:
  url: http://bitcoind:8332
  deposit_address: bc1qdeposit
price:
  sources:
    - name: feed
      url: https://prices.example.com/{asset}
  refresh: 1m
mint:
  url: https://ledger.example.com/mint
notify:
  rate_limit: 5
`

func readTestConfig(t *testing.T, content string) *viper.Viper {
	t.Helper()
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))

	v := viper.New()
	v.Set("home", home)
	v.Set("config", path)
	require.NoError(t, initConfig(v))
	return v
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("BRIDGED_BITCOIN_PASSWORD", "secret")
	t.Setenv("BRIDGED_NOTIFY_WORKERS", "7")

	v := readTestConfig(t, testConfig)
	conf, err := loadConfig(v)
	require.NoError(t, err)
	require.NoError(t, conf.Validate())

	assert.Equal(t, "custody-test", conf.ChainID)
	assert.Equal(t, ":9000", conf.Listen)
	assert.Equal(t, filepath.Join(v.GetString("home"), "custodian.key"), conf.KeyFile)
	assert.Equal(t, lock.QuorumConfig{RequiredSignatures: 2, TotalSigners: 3}, conf.quorum())
	assert.Equal(t, 1, len(conf.Custodians))
	assert.Equal(t, "bob", conf.Custodians[0].Name)

	// Values from the file.
	assert.Equal(t, uint32(3), conf.Bridge.MinConfirmations)
	assert.Equal(t, 90*time.Second, conf.Bridge.PriceMaxAge)
	assert.Equal(t, "bc1qdeposit", conf.Bitcoin.DepositAddress)
	assert.Equal(t, time.Minute, conf.Price.Refresh)
	assert.Equal(t, "https://prices.example.com/{asset}", conf.Price.Sources[0].URL)
	assert.Equal(t, 5.0, conf.Notify.RateLimit)

	// Defaults.
	assert.Equal(t, "BTC", conf.Bridge.Asset)
	assert.Equal(t, lock.DefaultPriceScale, conf.Bridge.PriceScale)
	assert.Equal(t, 10*time.Second, conf.Bitcoin.Timeout)

	// Environment.
	assert.Equal(t, "secret", conf.Bitcoin.Password)
	assert.Equal(t, 7, conf.Notify.Workers)
}

func TestConfigValidation(t *testing.T) {
	cases := map[string]struct {
		mutate    func(*Config)
		wantField string
		wantErr   *errors.Error
	}{
		"valid": {
			mutate: func(*Config) {},
		},
		"missing chain id": {
			mutate:    func(c *Config) { c.ChainID = "" },
			wantField: "ChainID",
			wantErr:   errors.ErrEmpty,
		},
		"impossible quorum": {
			mutate:    func(c *Config) { c.Quorum = QuorumConfig{Required: 4, Total: 3} },
			wantField: "RequiredSignatures",
			wantErr:   errors.ErrInput,
		},
		"invalid custodian key": {
			mutate:    func(c *Config) { c.Custodians = []CustodianConfig{{Name: "eve", PubKey: "abcd"}} },
			wantField: "Custodians",
			wantErr:   errors.ErrInput,
		},
		"no price source": {
			mutate:    func(c *Config) { c.Price.Sources = nil },
			wantField: "Price",
			wantErr:   errors.ErrEmpty,
		},
		"static price": {
			mutate: func(c *Config) {
				c.Price.Sources = nil
				c.Price.Static = 65000
			},
		},
		"invalid source url": {
			mutate:    func(c *Config) { c.Price.Sources[0].URL = "prices" },
			wantField: "Price",
			wantErr:   errors.ErrInput,
		},
		"invalid mint url": {
			mutate:    func(c *Config) { c.Mint.URL = "" },
			wantField: "Mint",
			wantErr:   errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			conf, err := loadConfig(readTestConfig(t, testConfig))
			require.NoError(t, err)
			tc.mutate(&conf)
			err = conf.Validate()
			if tc.wantErr == nil {
				assert.Nil(t, err)
				return
			}
			assert.FieldError(t, err, tc.wantField, tc.wantErr)
		})
	}
}

func TestGenesis(t *testing.T) {
	conf, err := loadConfig(readTestConfig(t, testConfig))
	require.NoError(t, err)

	key := custodytest.KeyFromSeed("local custodian")
	opts, err := conf.genesis(key.PublicKey())
	require.NoError(t, err)

	db := store.NewMemStore()
	require.NoError(t, lock.Initializer{}.FromGenesis(opts, db))
	// A second run with the same options changes nothing.
	require.NoError(t, lock.Initializer{}.FromGenesis(opts, db))

	ledger, err := lock.NewLedger(db, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, conf.quorum(), ledger.Quorum())

	custodians, err := ledger.Custodians()
	require.NoError(t, err)
	assert.Equal(t, 2, len(custodians))

	self, err := ledger.Custodian(key.PublicKey().Address())
	require.NoError(t, err)
	assert.Equal(t, "local", self.Name)

	var stored lock.QuorumConfig
	require.NoError(t, gconf.Load(db, "lock", &stored))
	assert.Equal(t, uint32(2), stored.RequiredSignatures)
}
