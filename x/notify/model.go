package notify

import (
	"encoding/binary"
	"fmt"
	"net/url"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/orm"
	"github.com/iov-one/custody/x/lock"
)

// Subscription is a webhook interested in a set of event kinds.
type Subscription struct {
	ID        uint64           `json:"id"`
	URL       string           `json:"url"`
	Kinds     []lock.EventKind `json:"kinds"`
	CreatedAt custody.UnixTime `json:"createdAt"`
}

var _ orm.Model = (*Subscription)(nil)

// Wants returns true if the subscriber is interested in given kind.
func (s *Subscription) Wants(k lock.EventKind) bool {
	for _, want := range s.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

func (s *Subscription) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "URL", validateURL(s.URL))
	if len(s.Kinds) == 0 {
		errs = errors.AppendField(errs, "Kinds", errors.ErrEmpty)
	}
	for i, k := range s.Kinds {
		if _, err := lock.ParseEventKind(k.String()); err != nil {
			errs = errors.AppendField(errs, fmt.Sprintf("Kinds.%d", i), err)
		}
	}
	return errs
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.ErrEmpty
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Wrapf(errors.ErrInput, "unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.Wrap(errors.ErrInput, "missing host")
	}
	return nil
}

func (s *Subscription) Marshal() ([]byte, error) {
	w := subscriptionWire{ID: s.ID, URL: s.URL, CreatedAt: int64(s.CreatedAt)}
	for _, k := range s.Kinds {
		w.Kinds = append(w.Kinds, int32(k))
	}
	return proto.Marshal(&w)
}

func (s *Subscription) Unmarshal(raw []byte) error {
	var w subscriptionWire
	if err := proto.Unmarshal(raw, &w); err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	*s = Subscription{ID: w.ID, URL: w.URL, CreatedAt: custody.UnixTime(w.CreatedAt)}
	for _, k := range w.Kinds {
		s.Kinds = append(s.Kinds, lock.EventKind(k))
	}
	return nil
}

// DeliveryState is the progress of a single notification.
type DeliveryState int32

const (
	Queued    DeliveryState = 1
	Delivered DeliveryState = 2
	Failed    DeliveryState = 3
)

func (s DeliveryState) String() string {
	switch s {
	case Queued:
		return "queued"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Delivery records that a transition was handed over to a subscriber.
type Delivery struct {
	SubscriptionID uint64           `json:"subscriptionId"`
	TxID           custody.TxID     `json:"txId"`
	Transition     string           `json:"transition"`
	State          DeliveryState    `json:"state"`
	Attempts       uint32           `json:"attempts"`
	LastError      string           `json:"lastError,omitempty"`
	UpdatedAt      custody.UnixTime `json:"updatedAt"`
}

var _ orm.Model = (*Delivery)(nil)

func (d *Delivery) Validate() error {
	var errs error
	if d.SubscriptionID == 0 {
		errs = errors.AppendField(errs, "SubscriptionID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "TxID", d.TxID.Validate())
	if d.Transition == "" {
		errs = errors.AppendField(errs, "Transition", errors.ErrEmpty)
	}
	if d.State < Queued || d.State > Failed {
		errs = errors.AppendField(errs, "State", errors.Wrapf(errors.ErrInput, "unknown state %d", d.State))
	}
	return errs
}

// Key returns the primary key of the delivery. All deliveries of one
// subscription and record share a common prefix.
func (d *Delivery) Key() []byte {
	return deliveryKey(d.SubscriptionID, d.TxID, d.Transition)
}

func deliveryKey(subID uint64, txID custody.TxID, transition string) []byte {
	key := make([]byte, 8, 8+custody.TxIDLength+len(transition))
	binary.BigEndian.PutUint64(key, subID)
	key = append(key, txID[:]...)
	return append(key, transition...)
}

func (d *Delivery) Marshal() ([]byte, error) {
	return proto.Marshal(&deliveryWire{
		SubscriptionID: d.SubscriptionID,
		TxID:           d.TxID.Bytes(),
		Transition:     d.Transition,
		State:          int32(d.State),
		Attempts:       d.Attempts,
		LastError:      d.LastError,
		UpdatedAt:      int64(d.UpdatedAt),
	})
}

func (d *Delivery) Unmarshal(raw []byte) error {
	var w deliveryWire
	if err := proto.Unmarshal(raw, &w); err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	txID, err := custody.TxIDFromBytes(w.TxID)
	if err != nil {
		return err
	}
	*d = Delivery{
		SubscriptionID: w.SubscriptionID,
		TxID:           txID,
		Transition:     w.Transition,
		State:          DeliveryState(w.State),
		Attempts:       w.Attempts,
		LastError:      w.LastError,
		UpdatedAt:      custody.UnixTime(w.UpdatedAt),
	}
	return nil
}

// NewSubscriptionBucket returns the bucket of subscriptions keyed by the
// encoded subscription ID.
func NewSubscriptionBucket() orm.ModelBucket {
	return orm.NewModelBucket("subscr", &Subscription{})
}

// NewDeliveryBucket returns the bucket of delivery bookkeeping, indexed by
// the transaction ID.
func NewDeliveryBucket() orm.ModelBucket {
	return orm.NewModelBucket("delivery", &Delivery{},
		orm.WithIndex("txid", deliveryTxID, false),
	)
}

func deliveryTxID(m orm.Model) ([]byte, error) {
	d, ok := m.(*Delivery)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	return d.TxID.Bytes(), nil
}
