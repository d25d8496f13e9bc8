package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/custodytest"
	"github.com/iov-one/custody/store/iavl"
	"github.com/iov-one/custody/x/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

// field returns the value of a "name: value" output line.
func field(t *testing.T, out, name string) string {
	t.Helper()
	s := bufio.NewScanner(strings.NewReader(out))
	for s.Scan() {
		if v := strings.TrimPrefix(s.Text(), name+": "); v != s.Text() {
			return v
		}
	}
	t.Fatalf("no %q in output\n%s", name, out)
	return ""
}

func TestInitAndSign(t *testing.T) {
	home := t.TempDir()

	out := execute(t, "init", "--home", home)
	assert.Contains(t, out, "Created configuration")
	address := field(t, out, "Custodian address")

	key, err := crypto.LoadPrivateKey(filepath.Join(home, "custodian.key"))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().Address().String(), address)

	// Configuration and key are reused.
	out = execute(t, "init", "--home", home)
	assert.NotContains(t, out, "Created configuration")
	assert.Equal(t, address, field(t, out, "Custodian address"))

	db, err := iavl.NewCommitStore(filepath.Join(home, "data"), storeName)
	require.NoError(t, err)
	ledger, err := lock.NewLedger(db, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, lock.QuorumConfig{RequiredSignatures: 2, TotalSigners: 3}, ledger.Quorum())
	custodians, err := ledger.Custodians()
	require.NoError(t, err)
	require.Len(t, custodians, 1)
	assert.Equal(t, "local", custodians[0].Name)
	require.NoError(t, db.Close())

	txID := custodytest.TxID("signed from the cli")
	out = execute(t, "sign", "sign", txID.String(), "--home", home)
	sig, err := hex.DecodeString(field(t, out, "signature"))
	require.NoError(t, err)
	bz, err := crypto.SignBytes("custody-dev", lock.ActionAddSignature, txID)
	require.NoError(t, err)
	assert.True(t, key.PublicKey().Verify(bz, sig))
	assert.Equal(t, address, field(t, out, "custodian"))
}

func TestSignRejectsUnknownAction(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"sign", "burn", custodytest.TxID("x").String(), "--home", t.TempDir()})
	assert.Error(t, cmd.Execute())
}

func TestKeygen(t *testing.T) {
	const seed = "d34c1970ae90acf3405f2d99dcaca16d0c7db379f4beafcfdf667b9d69ce350d27f5fb440509dfa79ec883a0510bc9a9614c3d44188881f0c5e402898b4bf3c9"
	out := filepath.Join(t.TempDir(), "derived.key")

	first := execute(t, "keygen", "--seed", seed, "--out", out)
	assert.Equal(t, seed, field(t, first, "seed"))
	assert.Equal(t, DefaultDerivationPath, field(t, first, "path"))

	key, err := crypto.LoadPrivateKey(out)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(key.PublicKey()), field(t, first, "pub_key"))
	assert.Equal(t, key.PublicKey().Address().String(), field(t, first, "address"))

	again := execute(t, "keygen", "--seed", seed)
	assert.Equal(t, field(t, first, "pub_key"), field(t, again, "pub_key"))

	other := execute(t, "keygen", "--seed", seed, "--path", "m/44'/234'/1'")
	assert.NotEqual(t, field(t, first, "pub_key"), field(t, other, "pub_key"))

	random := execute(t, "keygen")
	assert.Len(t, field(t, random, "seed"), 2*seedSize)
}

func TestDeriveKey(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	cases := map[string]struct {
		seed    []byte
		path    string
		wantErr bool
	}{
		"default path":   {seed: seed, path: DefaultDerivationPath},
		"second account": {seed: seed, path: "m/44'/234'/1'"},
		"short seed":     {seed: seed[:8], path: DefaultDerivationPath, wantErr: true},
		"invalid path":   {seed: seed, path: "m/44/234", wantErr: true},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			key, err := deriveKey(tc.seed, tc.path)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, key.PublicKey().Validate())
			assert.NoError(t, key.PublicKey().Address().Validate())
		})
	}
}

func TestVersion(t *testing.T) {
	assert.Equal(t, custody.Version()+"\n", execute(t, "version"))
}
