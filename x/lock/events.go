package lock

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

// EventKind is the kind of a lock record notification.
type EventKind int

const (
	EventCreated EventKind = iota + 1
	EventSignatureAdded
	EventLocked
	EventReleased
	// EventError reports a rejected bridge request. It is never emitted by
	// the ledger itself.
	EventError
)

var eventKindNames = map[EventKind]string{
	EventCreated:        "created",
	EventSignatureAdded: "signature_added",
	EventLocked:         "locked",
	EventReleased:       "released",
	EventError:          "error",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// ParseEventKind reads the name of an event kind.
func ParseEventKind(s string) (EventKind, error) {
	for k, n := range eventKindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrInput, "unknown event kind %q", s)
}

func (k EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *EventKind) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, "event kind must be a string")
	}
	kind, err := ParseEventKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Event describes a single lock record transition or a rejected request.
type Event struct {
	Kind EventKind
	TxID custody.TxID
	// Record is a copy of the record after the transition. It is nil for
	// errors rejected before a record existed.
	Record *LockRecord
	// Signer is set for EventSignatureAdded and EventLocked.
	Signer custody.Address
	// Stage, Reason and Message are set for EventError.
	Stage   string
	Reason  uint32
	Message string
	// RequestID correlates an error with the request that caused it. Two
	// errors for the same record are delivered separately only when
	// their request IDs differ.
	RequestID string
	Time      time.Time
}

// TransitionKey identifies the transition within the record history. A
// subscriber is notified of each transition at most once.
func (e Event) TransitionKey() string {
	switch e.Kind {
	case EventSignatureAdded:
		return e.Kind.String() + ":" + e.Signer.String()
	case EventError:
		return e.Kind.String() + ":" + e.Stage + ":" + e.RequestID
	}
	return e.Kind.String()
}

// EventSink receives all ledger events. Publish must not block on delivery,
// it is called while the record is still locked so that sinks observe
// transitions of one record in order.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

func (fn EventSinkFunc) Publish(e Event) {
	fn(e)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}

// NopSink discards all events.
var NopSink EventSink = nopSink{}
