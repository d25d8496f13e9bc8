package custody

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iov-one/custody/errors"
)

func TestParseTxID(t *testing.T) {
	const valid = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"

	cases := map[string]struct {
		raw     string
		wantErr *errors.Error
	}{
		"valid lowercase":   {raw: valid},
		"valid with prefix": {raw: "0x" + valid},
		"valid uppercase":   {raw: strings.ToUpper(valid)},
		"too short": {
			raw:     valid[:62],
			wantErr: errors.ErrInput,
		},
		"not hex": {
			raw:     strings.Repeat("z", 64),
			wantErr: errors.ErrInput,
		},
		"zero": {
			raw:     strings.Repeat("0", 64),
			wantErr: errors.ErrEmpty,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			id, err := ParseTxID(tc.raw)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr == nil && id.String() != valid {
				t.Fatalf("unexpected id: %s", id)
			}
		})
	}
}

func TestTxIDJSON(t *testing.T) {
	id, err := ParseTxID("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `"4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"` {
		t.Fatalf("unexpected json: %s", raw)
	}

	var got TxID
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Fatalf("want %s, got %s", id, got)
	}
	if err := json.Unmarshal([]byte(`12`), &got); !errors.ErrInput.Is(err) {
		t.Fatalf("want input error, got %+v", err)
	}
}
