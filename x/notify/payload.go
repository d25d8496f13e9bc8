package notify

import (
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/x/lock"
)

// Payload is the JSON document posted to a subscriber.
type Payload struct {
	EventKind  lock.EventKind        `json:"eventKind"`
	TxID       custody.TxID          `json:"txId"`
	Amount     uint64                `json:"amount,omitempty"`
	Recipient  custody.Address       `json:"recipient,omitempty"`
	Status     lock.LockStatus       `json:"status,omitempty"`
	Signatures int                   `json:"signatures,omitempty"`
	BoundPrice *lock.FixedPointPrice `json:"boundPrice,omitempty"`
	Stage      string                `json:"stage,omitempty"`
	Reason     uint32                `json:"reason,omitempty"`
	Message    string                `json:"message,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// NewPayload builds the notification document of an event.
func NewPayload(e lock.Event) Payload {
	p := Payload{
		EventKind: e.Kind,
		TxID:      e.TxID,
		Stage:     e.Stage,
		Reason:    e.Reason,
		Message:   e.Message,
		Timestamp: e.Time.UTC(),
	}
	if r := e.Record; r != nil {
		p.Amount = r.Amount
		p.Recipient = r.Recipient
		p.Status = r.Status
		p.Signatures = len(r.Signatures)
		if !r.BoundPrice.IsZero() {
			price := r.BoundPrice
			p.BoundPrice = &price
		}
	}
	return p
}
