package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
	"github.com/spf13/cobra"
	"github.com/stellar/go/exp/crypto/derivation"
)

// DefaultDerivationPath is the SLIP-10 path custodian keys are derived at.
const DefaultDerivationPath = "m/44'/234'/0'"

// seedSize is the size of a generated master seed.
const seedSize = 64

func keygenCmd() *cobra.Command {
	var (
		hexSeed string
		path    string
		out     string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Derive a custodian key",
		Long: `Derive an ed25519 custodian key from a master seed. A random seed is
generated unless one is given. Keep the printed seed to recover the key.`,
		Args: cobra.NoArgs,
		// Configuration is not needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed []byte
			if hexSeed != "" {
				raw, err := hex.DecodeString(hexSeed)
				if err != nil {
					return errors.Wrap(errors.ErrInput, "seed must be hex encoded")
				}
				seed = raw
			} else {
				seed = make([]byte, seedSize)
				if _, err := io.ReadFull(rand.Reader, seed); err != nil {
					return errors.Wrap(errors.ErrUnavailable, err.Error())
				}
			}

			key, err := deriveKey(seed, path)
			if err != nil {
				return err
			}
			if out != "" {
				if err := crypto.SavePrivateKey(key, out, force); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "seed: %x\n", seed)
			fmt.Fprintf(w, "path: %s\n", path)
			fmt.Fprintf(w, "address: %s\n", key.PublicKey().Address())
			fmt.Fprintf(w, "pub_key: %x\n", []byte(key.PublicKey()))
			return nil
		},
	}
	cmd.Flags().StringVar(&hexSeed, "seed", "", "hex encoded master seed")
	cmd.Flags().StringVar(&path, "path", DefaultDerivationPath, "derivation path")
	cmd.Flags().StringVar(&out, "out", "", "write the key to this file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}

// deriveKey returns the custodian key at path of given master seed.
func deriveKey(seed []byte, path string) (crypto.PrivateKey, error) {
	if len(seed) < 16 {
		return nil, errors.Wrap(errors.ErrInput, "seed must be at least 16 bytes")
	}
	k, err := derivation.DeriveForPath(path, seed)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot derive key for path %q: %s", path, err)
	}
	return crypto.PrivKeyEd25519FromSeed(k.Key), nil
}
