package custody

import (
	"encoding/json"
	"time"

	"github.com/iov-one/custody/errors"
)

// UnixTime is a moment in time with second precision, stored as seconds
// since the epoch. Records keep it as a plain int64 in their protobuf form.
type UnixTime int64

// AsUnixTime truncates t to seconds.
func AsUnixTime(t time.Time) UnixTime {
	return UnixTime(t.Unix())
}

func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// IsZero reports whether the time was never set.
func (t UnixTime) IsZero() bool {
	return t == 0
}

// Add returns t moved by d. Fractions of a second are dropped.
func (t UnixTime) Add(d time.Duration) UnixTime {
	return t + UnixTime(d/time.Second)
}

func (t UnixTime) Validate() error {
	if t < 0 {
		return errors.Wrap(errors.ErrState, "before epoch")
	}
	return nil
}

// UnmarshalJSON accepts the number of seconds or an RFC 3339 string.
func (t *UnixTime) UnmarshalJSON(raw []byte) error {
	var secs int64
	if err := json.Unmarshal(raw, &secs); err != nil {
		var ts time.Time
		if err := json.Unmarshal(raw, &ts); err != nil {
			return errors.Wrap(errors.ErrInput, "time must be seconds or RFC 3339")
		}
		secs = ts.Unix()
	}
	if secs < 0 {
		return errors.Wrap(errors.ErrInput, "before epoch")
	}
	*t = UnixTime(secs)
	return nil
}

func (t UnixTime) String() string {
	return t.Time().Format(time.RFC3339)
}

// Clock provides the current time. Components take a Clock so that tests
// can control time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (fn ClockFunc) Now() time.Time {
	return fn()
}

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
