package custody

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnixTimeUnmarshalJSON(t *testing.T) {
	cases := map[string]struct {
		raw     string
		want    UnixTime
		wantErr bool
	}{
		"seconds":          {raw: `1577836800`, want: 1577836800},
		"rfc3339":          {raw: `"2020-01-01T00:00:00Z"`, want: 1577836800},
		"rfc3339 offset":   {raw: `"2020-01-01T01:00:00+01:00"`, want: 1577836800},
		"zero":             {raw: `0`, want: 0},
		"before epoch":     {raw: `-1`, wantErr: true},
		"not a time":       {raw: `"yesterday"`, wantErr: true},
		"fractional value": {raw: `1.5`, wantErr: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var got UnixTime
			err := json.Unmarshal([]byte(tc.raw), &got)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUnixTime(t *testing.T) {
	now := time.Date(2020, 1, 1, 12, 30, 15, 999, time.UTC)
	ut := AsUnixTime(now)

	assert.False(t, ut.IsZero())
	assert.Equal(t, now.Truncate(time.Second), ut.Time())
	assert.Equal(t, "2020-01-01T12:30:15Z", ut.String())
	assert.NoError(t, ut.Validate())
	assert.Error(t, UnixTime(-5).Validate())

	raw, err := json.Marshal(ut)
	require.NoError(t, err)
	assert.Equal(t, "1577881815", string(raw))
}

func TestClockFunc(t *testing.T) {
	fixed := time.Unix(42, 0)
	var c Clock = ClockFunc(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}
