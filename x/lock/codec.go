package lock

import (
	"github.com/gogo/protobuf/proto"
)

// Wire representations of the models declared in codec.proto. Models
// convert to and from these before calling into the protobuf codec so that
// the public types can use custody types directly.

type lockRecordWire struct {
	TxID       []byte     `protobuf:"bytes,1,opt,name=tx_id,json=txId,proto3" json:"tx_id,omitempty"`
	Amount     uint64     `protobuf:"varint,2,opt,name=amount,proto3" json:"amount,omitempty"`
	Recipient  []byte     `protobuf:"bytes,3,opt,name=recipient,proto3" json:"recipient,omitempty"`
	Status     int32      `protobuf:"varint,4,opt,name=status,proto3" json:"status,omitempty"`
	Signatures [][]byte   `protobuf:"bytes,5,rep,name=signatures,proto3" json:"signatures,omitempty"`
	BoundPrice *priceWire `protobuf:"bytes,6,opt,name=bound_price,json=boundPrice,proto3" json:"bound_price,omitempty"`
	CreatedAt  int64      `protobuf:"varint,7,opt,name=created_at,json=createdAt,proto3" json:"created_at,omitempty"`
	Height     uint64     `protobuf:"varint,8,opt,name=height,proto3" json:"height,omitempty"`
	LockedAt   int64      `protobuf:"varint,9,opt,name=locked_at,json=lockedAt,proto3" json:"locked_at,omitempty"`
	ReleasedAt int64      `protobuf:"varint,10,opt,name=released_at,json=releasedAt,proto3" json:"released_at,omitempty"`
}

func (m *lockRecordWire) Reset()         { *m = lockRecordWire{} }
func (m *lockRecordWire) String() string { return proto.CompactTextString(m) }
func (*lockRecordWire) ProtoMessage()    {}

type priceWire struct {
	Value int64  `protobuf:"varint,1,opt,name=value,proto3" json:"value,omitempty"`
	Scale uint32 `protobuf:"varint,2,opt,name=scale,proto3" json:"scale,omitempty"`
}

func (m *priceWire) Reset()         { *m = priceWire{} }
func (m *priceWire) String() string { return proto.CompactTextString(m) }
func (*priceWire) ProtoMessage()    {}

type custodianWire struct {
	Address   []byte `protobuf:"bytes,1,opt,name=address,proto3" json:"address,omitempty"`
	PubKey    []byte `protobuf:"bytes,2,opt,name=pub_key,json=pubKey,proto3" json:"pub_key,omitempty"`
	Active    bool   `protobuf:"varint,3,opt,name=active,proto3" json:"active,omitempty"`
	Name      string `protobuf:"bytes,4,opt,name=name,proto3" json:"name,omitempty"`
	AddedAt   int64  `protobuf:"varint,5,opt,name=added_at,json=addedAt,proto3" json:"added_at,omitempty"`
	RevokedAt int64  `protobuf:"varint,6,opt,name=revoked_at,json=revokedAt,proto3" json:"revoked_at,omitempty"`
}

func (m *custodianWire) Reset()         { *m = custodianWire{} }
func (m *custodianWire) String() string { return proto.CompactTextString(m) }
func (*custodianWire) ProtoMessage()    {}

type quorumWire struct {
	RequiredSignatures uint32 `protobuf:"varint,1,opt,name=required_signatures,json=requiredSignatures,proto3" json:"required_signatures,omitempty"`
	TotalSigners       uint32 `protobuf:"varint,2,opt,name=total_signers,json=totalSigners,proto3" json:"total_signers,omitempty"`
}

func (m *quorumWire) Reset()         { *m = quorumWire{} }
func (m *quorumWire) String() string { return proto.CompactTextString(m) }
func (*quorumWire) ProtoMessage()    {}
