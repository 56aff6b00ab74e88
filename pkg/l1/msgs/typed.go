package msgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/biped.go/pkg/framework"
)

// A type ID is laid out as
//
//	bit 31     kind, 0 for commands and 1 for events
//	bits 16-30 group of the schema
//	bit 15     set on replies to commands
//	bits 0-15  ID within the group
const (
	TypeIDMaskKind  uint32 = 1 << 31
	TypeIDMaskGroup uint32 = 0x7fff << 16
	TypeIDMaskReply uint32 = 1 << 15
	TypeIDMaskID    uint32 = 0xffff

	TypeIDKindCommand uint32 = 0
	TypeIDKindEvent   uint32 = TypeIDMaskKind
)

var (
	// ErrNotSerializable is returned for messages without a type ID.
	ErrNotSerializable = errors.New("not serializable message")
	// ErrUnsupportedCommand replies a command no controller handles.
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// ErrUnknownType is returned when decoding an unregistered type ID.
type ErrUnknownType struct {
	TypeID uint32
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// SerializableMessage is a message with a registered wire schema.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

var registry = make(map[uint32]SerializableMessage)

// RegisterTypes registers message schemas by their type IDs. It is called
// from init and panics on a conflicting type ID.
func RegisterTypes(prototypes ...SerializableMessage) {
	for _, msg := range prototypes {
		id := msg.TypeID()
		if existing, ok := registry[id]; ok {
			panic(fmt.Sprintf("type %x registered by both %T and %T", id, existing, msg))
		}
		registry[id] = msg
	}
}

// NewMessageOf creates an empty message of a registered type.
func NewMessageOf(typeID uint32) (SerializableMessage, error) {
	msg, ok := registry[typeID]
	if !ok {
		return nil, &ErrUnknownType{TypeID: typeID}
	}
	return msg.NewMessage().(SerializableMessage), nil
}

func init() {
	RegisterTypes((*CommandOK)(nil), (*CommandErr)(nil))
}

// Typed is the envelope of every packet.
type Typed struct {
	TypeId   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

func (p *Typed) ProtoMessage()  {}
func (p *Typed) Reset()         { *p = Typed{} }
func (p *Typed) String() string { return proto.CompactTextString(p) }

// TypedFrom wraps msg into an envelope, leaving Sequence 0.
func TypedFrom(msg fx.Message) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s.Serializable())
	if err != nil {
		return nil, err
	}
	return &Typed{TypeId: s.TypeID(), Message: data}, nil
}

// DecodeTyped decodes an envelope from a packet.
func DecodeTyped(pkt []byte) (*Typed, error) {
	typed := &Typed{}
	if err := proto.Unmarshal(pkt, typed); err != nil {
		return nil, err
	}
	return typed, nil
}

// Encode serializes the envelope into a packet.
func (p Typed) Encode() ([]byte, error) {
	return proto.Marshal(&p)
}

// Decode unpacks the embedded message by its type ID.
func (p Typed) Decode() (fx.Message, error) {
	msg, err := NewMessageOf(p.TypeId)
	if err != nil {
		return nil, err
	}
	if err = proto.Unmarshal(p.Message, msg.Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Kind is either TypeIDKindCommand or TypeIDKindEvent.
func (p Typed) Kind() uint32 {
	return p.TypeId & TypeIDMaskKind
}

// IsCommand is true for both commands and replies.
func (p Typed) IsCommand() bool {
	return p.Kind() == TypeIDKindCommand
}

// IsEvent is true for events.
func (p Typed) IsEvent() bool {
	return p.Kind() == TypeIDKindEvent
}

// IsReply is true for replies to commands.
func (p Typed) IsReply() bool {
	return p.IsCommand() && p.TypeId&TypeIDMaskReply != 0
}

// TypedMsgHandler receives decoded messages along with their envelopes.
type TypedMsgHandler interface {
	HandleTypedMsg(context.Context, fx.Message, *Typed) error
}

// HandleTypedMsgFunc is the func form of TypedMsgHandler.
type HandleTypedMsgFunc func(context.Context, fx.Message, *Typed) error

// HandleTypedMsg implements TypedMsgHandler.
func (f HandleTypedMsgFunc) HandleTypedMsg(ctx context.Context, msg fx.Message, typed *Typed) error {
	return f(ctx, msg, typed)
}
