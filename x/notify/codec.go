package notify

import (
	"github.com/gogo/protobuf/proto"
)

type subscriptionWire struct {
	ID        uint64  `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	URL       string  `protobuf:"bytes,2,opt,name=url,proto3" json:"url,omitempty"`
	Kinds     []int32 `protobuf:"varint,3,rep,packed,name=kinds,proto3" json:"kinds,omitempty"`
	CreatedAt int64   `protobuf:"varint,4,opt,name=created_at,json=createdAt,proto3" json:"created_at,omitempty"`
}

func (m *subscriptionWire) Reset()         { *m = subscriptionWire{} }
func (m *subscriptionWire) String() string { return proto.CompactTextString(m) }
func (*subscriptionWire) ProtoMessage()    {}

type deliveryWire struct {
	SubscriptionID uint64 `protobuf:"varint,1,opt,name=subscription_id,json=subscriptionId,proto3" json:"subscription_id,omitempty"`
	TxID           []byte `protobuf:"bytes,2,opt,name=tx_id,json=txId,proto3" json:"tx_id,omitempty"`
	Transition     string `protobuf:"bytes,3,opt,name=transition,proto3" json:"transition,omitempty"`
	State          int32  `protobuf:"varint,4,opt,name=state,proto3" json:"state,omitempty"`
	Attempts       uint32 `protobuf:"varint,5,opt,name=attempts,proto3" json:"attempts,omitempty"`
	LastError      string `protobuf:"bytes,6,opt,name=last_error,json=lastError,proto3" json:"last_error,omitempty"`
	UpdatedAt      int64  `protobuf:"varint,7,opt,name=updated_at,json=updatedAt,proto3" json:"updated_at,omitempty"`
}

func (m *deliveryWire) Reset()         { *m = deliveryWire{} }
func (m *deliveryWire) String() string { return proto.CompactTextString(m) }
func (*deliveryWire) ProtoMessage()    {}
