package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/store/iavl"
	"github.com/iov-one/custody/x/lock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeName is the name of the ledger database under <home>/data.
const storeName = "custody"

func initCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration, the custodian key and the ledger state",
		Long: `Write the default configuration file and a new custodian key unless they
exist, then store the quorum and the custodian roster in the ledger.

Running init again is safe. The stored quorum cannot be changed and
custodians that are already part of the roster are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, v)
		},
	}
}

func runInit(cmd *cobra.Command, v *viper.Viper) error {
	home := v.GetString("home")
	if err := os.MkdirAll(home, 0700); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}

	if v.ConfigFileUsed() == "" {
		path := filepath.Join(home, "config.yaml")
		if err := v.SafeWriteConfigAs(path); err != nil {
			return errors.Wrap(errors.ErrInput, err.Error())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created configuration %s\n", path)
	}

	conf, err := loadConfig(v)
	if err != nil {
		return err
	}
	if err := conf.validateGenesis(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	key, err := loadOrCreateKey(conf.KeyFile)
	if err != nil {
		return err
	}
	logger, err := newLogger(conf)
	if err != nil {
		return err
	}

	db, err := iavl.NewCommitStore(filepath.Join(home, "data"), storeName)
	if err != nil {
		return err
	}
	defer db.Close()

	opts, err := conf.genesis(key.PublicKey())
	if err != nil {
		return err
	}
	if err := (lock.Initializer{Logger: logger}).FromGenesis(opts, db); err != nil {
		return errors.Wrap(err, "cannot initialize ledger")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Custodian address: %s\n", key.PublicKey().Address())
	fmt.Fprintf(out, "Custodian public key: %X\n", []byte(key.PublicKey()))
	return nil
}

// loadOrCreateKey returns the key stored in given file. A new key is
// generated when the file does not exist.
func loadOrCreateKey(path string) (crypto.PrivateKey, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		key := crypto.GenPrivKeyEd25519()
		if err := crypto.SavePrivateKey(key, path, false); err != nil {
			return nil, errors.Wrap(errors.ErrInput, err.Error())
		}
		return key, nil
	}
	return crypto.LoadPrivateKey(path)
}
