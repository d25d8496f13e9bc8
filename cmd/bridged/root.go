package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/iov-one/custody/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/log"
)

const envPrefix = "BRIDGED"

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "bridged",
		Short: "Bitcoin custody bridge daemon",
		Long: `bridged verifies deposits on the Bitcoin network, records them as lock
records signed by a quorum of custodians and releases the locked value on
the destination ledger.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
	}

	root.PersistentFlags().String("home", defaultHome(), "directory holding configuration, key and data")
	root.PersistentFlags().StringP("config", "c", "", "config file (default is <home>/config.yaml)")
	_ = v.BindPFlag("home", root.PersistentFlags().Lookup("home"))
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(
		initCmd(v),
		startCmd(v),
		keygenCmd(),
		signCmd(v),
		versionCmd(),
	)
	return root
}

func defaultHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".bridged")
	}
	return ".bridged"
}

// initConfig reads the configuration file, if any, on top of the defaults.
// Environment variables take precedence over both.
func initConfig(v *viper.Viper) error {
	setDefaults(v)

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("home"))
	}

	v.SetEnvPrefix(envPrefix)
	// BRIDGED_BITCOIN_URL for bitcoin.url
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	return nil
}

// newLogger returns a logger writing to stdout, filtered to the configured
// level.
func newLogger(conf Config) (log.Logger, error) {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout))
	level := conf.LogLevel
	if conf.Debug {
		level = "debug"
	}
	option, err := log.AllowLevel(level)
	if err != nil {
		return nil, errors.Field("LogLevel", errors.ErrInput, "%s", err)
	}
	return log.NewFilter(logger, option), nil
}
