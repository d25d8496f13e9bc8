package lock

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/orm"
)

// LockStatus is the lifecycle state of a LockRecord.
type LockStatus int32

const (
	// Pending records are collecting custodian signatures.
	Pending LockStatus = 1
	// Locked records have reached the signature quorum and can be released.
	Locked LockStatus = 2
	// Released is terminal.
	Released LockStatus = 3
)

var statusNames = map[LockStatus]string{
	Pending:  "pending",
	Locked:   "locked",
	Released: "released",
}

func (s LockStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Validate returns an error for an unknown status value.
func (s LockStatus) Validate() error {
	if _, ok := statusNames[s]; !ok {
		return errors.Wrapf(errors.ErrInput, "unknown status %d", int32(s))
	}
	return nil
}

// ParseLockStatus reads the name of a status.
func ParseLockStatus(s string) (LockStatus, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrInput, "unknown status %q", s)
}

func (s LockStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *LockStatus) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrap(errors.ErrInput, "status must be a string")
	}
	st, err := ParseLockStatus(name)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// canMoveTo returns true if the status machine allows the transition.
func (s LockStatus) canMoveTo(next LockStatus) bool {
	switch s {
	case Pending:
		return next == Locked
	case Locked:
		return next == Released
	}
	return false
}

// LockRecord represents the custody of value that was sent on the source
// chain in transaction TxID.
type LockRecord struct {
	TxID       custody.TxID      `json:"txId"`
	Amount     uint64            `json:"amount"`
	Recipient  custody.Address   `json:"recipient"`
	Status     LockStatus        `json:"status"`
	Signatures []custody.Address `json:"signatures"`
	BoundPrice FixedPointPrice   `json:"boundPrice"`
	CreatedAt  custody.UnixTime  `json:"createdAt"`
	Height     uint64            `json:"height"`
	LockedAt   custody.UnixTime  `json:"lockedAt,omitempty"`
	ReleasedAt custody.UnixTime  `json:"releasedAt,omitempty"`
}

var _ orm.Model = (*LockRecord)(nil)

// Validate ensures the record is consistent.
func (r *LockRecord) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "TxID", r.TxID.Validate())
	if r.Amount == 0 {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(ErrInvalidAmount, "must be greater than zero"))
	}
	errs = errors.AppendField(errs, "Recipient", r.Recipient.Validate())
	errs = errors.AppendField(errs, "Status", r.Status.Validate())
	errs = errors.AppendField(errs, "BoundPrice", r.BoundPrice.Validate())
	errs = errors.AppendField(errs, "Signatures", validateSignatures(r.Signatures))
	if r.CreatedAt.IsZero() {
		errs = errors.AppendField(errs, "CreatedAt", errors.ErrEmpty)
	} else {
		errs = errors.AppendField(errs, "CreatedAt", r.CreatedAt.Validate())
	}
	if r.Status != Pending && r.LockedAt.IsZero() {
		errs = errors.AppendField(errs, "LockedAt", errors.Wrap(errors.ErrState, "locked record without lock time"))
	}
	if r.Status == Released && r.ReleasedAt.IsZero() {
		errs = errors.AppendField(errs, "ReleasedAt", errors.Wrap(errors.ErrState, "released record without release time"))
	}
	return errs
}

func validateSignatures(sigs []custody.Address) error {
	if len(sigs) == 0 {
		return errors.Wrap(errors.ErrEmpty, "at least the creator signature is required")
	}
	seen := make(map[string]struct{}, len(sigs))
	for i, s := range sigs {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "signature %d", i)
		}
		if _, ok := seen[string(s)]; ok {
			return errors.Wrapf(ErrDuplicateSignature, "signature %d: %s", i, s)
		}
		seen[string(s)] = struct{}{}
	}
	return nil
}

// HasSigned returns true if given custodian already signed this record.
func (r *LockRecord) HasSigned(a custody.Address) bool {
	for _, s := range r.Signatures {
		if s.Equals(a) {
			return true
		}
	}
	return false
}

// Copy returns a deep copy of the record. The ledger only ever hands out
// copies.
func (r *LockRecord) Copy() *LockRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Recipient = cloneBytes(r.Recipient)
	c.Signatures = make([]custody.Address, len(r.Signatures))
	for i, s := range r.Signatures {
		c.Signatures[i] = cloneBytes(s)
	}
	return &c
}

func (r *LockRecord) Marshal() ([]byte, error) {
	w := lockRecordWire{
		TxID:       r.TxID.Bytes(),
		Amount:     r.Amount,
		Recipient:  r.Recipient,
		Status:     int32(r.Status),
		CreatedAt:  int64(r.CreatedAt),
		Height:     r.Height,
		LockedAt:   int64(r.LockedAt),
		ReleasedAt: int64(r.ReleasedAt),
	}
	if !r.BoundPrice.IsZero() {
		w.BoundPrice = &priceWire{Value: r.BoundPrice.Value, Scale: r.BoundPrice.Scale}
	}
	for _, s := range r.Signatures {
		w.Signatures = append(w.Signatures, s)
	}
	return proto.Marshal(&w)
}

func (r *LockRecord) Unmarshal(raw []byte) error {
	var w lockRecordWire
	if err := proto.Unmarshal(raw, &w); err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	txID, err := custody.TxIDFromBytes(w.TxID)
	if err != nil {
		return err
	}
	*r = LockRecord{
		TxID:       txID,
		Amount:     w.Amount,
		Recipient:  custody.Address(w.Recipient),
		Status:     LockStatus(w.Status),
		CreatedAt:  custody.UnixTime(w.CreatedAt),
		Height:     w.Height,
		LockedAt:   custody.UnixTime(w.LockedAt),
		ReleasedAt: custody.UnixTime(w.ReleasedAt),
	}
	if w.BoundPrice != nil {
		r.BoundPrice = FixedPointPrice{Value: w.BoundPrice.Value, Scale: w.BoundPrice.Scale}
	}
	for _, s := range w.Signatures {
		r.Signatures = append(r.Signatures, custody.Address(s))
	}
	return nil
}

// Custodian is a member of the signer roster. Custodians are never removed,
// only revoked. Revocation cannot be undone.
type Custodian struct {
	Address   custody.Address  `json:"address"`
	PubKey    crypto.PublicKey `json:"pubKey"`
	Active    bool             `json:"active"`
	Name      string           `json:"name,omitempty"`
	AddedAt   custody.UnixTime `json:"addedAt"`
	RevokedAt custody.UnixTime `json:"revokedAt,omitempty"`
}

var _ orm.Model = (*Custodian)(nil)

// Validate ensures the custodian is consistent.
func (c *Custodian) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Address", c.Address.Validate())
	if err := c.PubKey.Validate(); err != nil {
		errs = errors.AppendField(errs, "PubKey", err)
	} else if !c.PubKey.Address().Equals(c.Address) {
		errs = errors.AppendField(errs, "PubKey", errors.Wrap(errors.ErrInput, "key does not match the address"))
	}
	if len(c.Name) > 64 {
		errs = errors.AppendField(errs, "Name", errors.Wrap(errors.ErrInput, "too long"))
	}
	errs = errors.AppendField(errs, "AddedAt", c.AddedAt.Validate())
	if !c.Active && c.RevokedAt.IsZero() {
		errs = errors.AppendField(errs, "RevokedAt", errors.Wrap(errors.ErrState, "revoked custodian without revocation time"))
	}
	return errs
}

func (c *Custodian) Marshal() ([]byte, error) {
	return proto.Marshal(&custodianWire{
		Address:   c.Address,
		PubKey:    c.PubKey,
		Active:    c.Active,
		Name:      c.Name,
		AddedAt:   int64(c.AddedAt),
		RevokedAt: int64(c.RevokedAt),
	})
}

func (c *Custodian) Unmarshal(raw []byte) error {
	var w custodianWire
	if err := proto.Unmarshal(raw, &w); err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	*c = Custodian{
		Address:   w.Address,
		PubKey:    w.PubKey,
		Active:    w.Active,
		Name:      w.Name,
		AddedAt:   custody.UnixTime(w.AddedAt),
		RevokedAt: custody.UnixTime(w.RevokedAt),
	}
	return nil
}

// NewLockRecordBucket returns a bucket for lock records keyed by the
// transaction ID. Records are indexed by status and by recipient.
func NewLockRecordBucket() orm.ModelBucket {
	return orm.NewModelBucket("lock", &LockRecord{},
		orm.WithIndex("status", statusIndex, false),
		orm.WithIndex("recipient", recipientIndex, false),
	)
}

func statusIndex(m orm.Model) ([]byte, error) {
	r, ok := m.(*LockRecord)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	return statusKey(r.Status), nil
}

func statusKey(s LockStatus) []byte {
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, uint32(s))
	return raw
}

func recipientIndex(m orm.Model) ([]byte, error) {
	r, ok := m.(*LockRecord)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	return r.Recipient, nil
}

// NewCustodianBucket returns a bucket for the custodian roster keyed by
// the custodian address.
func NewCustodianBucket() orm.ModelBucket {
	return orm.NewModelBucket("custodian", &Custodian{})
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
