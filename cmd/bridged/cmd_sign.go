package main

import (
	"fmt"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/lock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var signActions = map[string]string{
	"create":  lock.ActionCreateLock,
	"sign":    lock.ActionAddSignature,
	"release": lock.ActionFinalizeRelease,
}

func signCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <create|sign|release> <txid>",
		Short: "Sign a contract action with the custodian key",
		Long: `Print the hex encoded signature of an action for given source transaction,
as expected by the signatures and release endpoints of the API.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, ok := signActions[args[0]]
			if !ok {
				return errors.Wrapf(errors.ErrInput, "unknown action %q", args[0])
			}
			txID, err := custody.ParseTxID(args[1])
			if err != nil {
				return err
			}
			conf, err := loadConfig(v)
			if err != nil {
				return err
			}
			key, err := crypto.LoadPrivateKey(conf.KeyFile)
			if err != nil {
				return err
			}
			sig, err := lock.SignAction(key, conf.ChainID, action, txID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "custodian: %s\nsignature: %x\n", key.PublicKey().Address(), sig)
			return nil
		},
	}
}
