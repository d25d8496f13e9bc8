package custodytest

import (
	"testing"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/store/iavl"
)

// CommitKVStore opens the on-disk store the daemon uses, in a temporary
// directory. The store is closed when the test ends.
func CommitKVStore(t testing.TB) custody.CommitKVStore {
	t.Helper()
	s, err := iavl.NewCommitStore(t.TempDir(), "db")
	if err != nil {
		t.Fatalf("open store: %s", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
