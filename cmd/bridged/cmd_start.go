package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/store/iavl"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func startCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the bridge and serve its API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStart(ctx, v)
		},
	}
}

func runStart(ctx context.Context, v *viper.Viper) error {
	conf, err := loadConfig(v)
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	logger, err := newLogger(conf)
	if err != nil {
		return err
	}

	key, err := crypto.LoadPrivateKey(conf.KeyFile)
	if err != nil {
		return errors.Wrap(err, "run init first")
	}
	db, err := iavl.NewCommitStore(filepath.Join(conf.Home, "data"), storeName)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := newNode(db, conf, key.PublicKey().Address(), newAdapters(conf, logger), logger, nil)
	if err != nil {
		return err
	}

	if path := v.ConfigFileUsed(); path != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			next, err := loadConfig(v)
			if err == nil {
				err = next.Validate()
			}
			if err != nil {
				logger.Error("ignoring configuration change", "file", e.Name, "err", err)
				return
			}
			n.reload(next)
		})
		v.WatchConfig()
	}

	logger.Info("starting bridge", "chain", conf.ChainID, "identity", key.PublicKey().Address())
	return n.run(ctx)
}
