// Package msgs defines the walking messages of the L1 protocol.
package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/l1/msgs"
)

// WalkGoal requests walking toward a goal relative to the current
// support foot. When Repeat is set, the goal is re-issued each time the
// planned steps are consumed until WalkStop.
type WalkGoal struct {
	X      float64 `protobuf:"fixed64,1,opt,name=x,proto3" json:"x,omitempty"`
	Y      float64 `protobuf:"fixed64,2,opt,name=y,proto3" json:"y,omitempty"`
	A      float64 `protobuf:"fixed64,3,opt,name=a,proto3" json:"a,omitempty"`
	Repeat bool    `protobuf:"varint,4,opt,name=repeat,proto3" json:"repeat,omitempty"`
}

// NewMessage implements Message.
func (m *WalkGoal) NewMessage() fx.Message { return &WalkGoal{} }

// TypeID implements SerializableMessage.
func (m *WalkGoal) TypeID() uint32 { return WalkGoalTypeID }

// Serializable implements SerializableMessage.
func (m *WalkGoal) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *WalkGoal) ProtoMessage() {}

// Reset implements proto.Message.
func (m *WalkGoal) Reset() { *m = WalkGoal{} }

// String implements proto.Message.
func (m *WalkGoal) String() string { return proto.CompactTextString(m) }

// WalkStop requests the robot to finish the current step and stand.
type WalkStop struct {
}

// NewMessage implements Message.
func (m *WalkStop) NewMessage() fx.Message { return &WalkStop{} }

// TypeID implements SerializableMessage.
func (m *WalkStop) TypeID() uint32 { return WalkStopTypeID }

// Serializable implements SerializableMessage.
func (m *WalkStop) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *WalkStop) ProtoMessage() {}

// Reset implements proto.Message.
func (m *WalkStop) Reset() { *m = WalkStop{} }

// String implements proto.Message.
func (m *WalkStop) String() string { return proto.CompactTextString(m) }

// WalkStatusQuery queries the status.
type WalkStatusQuery struct {
}

// NewMessage implements Message.
func (m *WalkStatusQuery) NewMessage() fx.Message { return &WalkStatusQuery{} }

// TypeID implements SerializableMessage.
func (m *WalkStatusQuery) TypeID() uint32 { return WalkStatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *WalkStatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *WalkStatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *WalkStatusQuery) Reset() { *m = WalkStatusQuery{} }

// String implements proto.Message.
func (m *WalkStatusQuery) String() string { return proto.CompactTextString(m) }

// WalkStatusReply is the response for WalkStatusQuery.
type WalkStatusReply struct {
	Status *WalkStatus `protobuf:"bytes,1,opt,name=status,proto3" json:"status,omitempty"`
}

// NewMessage implements Message.
func (m *WalkStatusReply) NewMessage() fx.Message { return &WalkStatusReply{} }

// TypeID implements SerializableMessage.
func (m *WalkStatusReply) TypeID() uint32 { return WalkStatusReplyTypeID }

// Serializable implements SerializableMessage.
func (m *WalkStatusReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *WalkStatusReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *WalkStatusReply) Reset() { *m = WalkStatusReply{} }

// String implements proto.Message.
func (m *WalkStatusReply) String() string { return proto.CompactTextString(m) }

// WalkStatus is an Event message reflecting the gait status.
type WalkStatus struct {
	Status        string      `protobuf:"bytes,1,opt,name=status,proto3" json:"status,omitempty"`
	NextSupport   string      `protobuf:"bytes,2,opt,name=next_support,json=nextSupport,proto3" json:"next_support,omitempty"`
	Initialized   bool        `protobuf:"varint,3,opt,name=initialized,proto3" json:"initialized,omitempty"`
	FootSteps     []*FootStep `protobuf:"bytes,4,rep,name=foot_steps,json=footSteps,proto3" json:"foot_steps,omitempty"`
	TrajectoryLen uint32      `protobuf:"varint,5,opt,name=trajectory_len,json=trajectoryLen,proto3" json:"trajectory_len,omitempty"`
	Goal          *WalkGoal   `protobuf:"bytes,6,opt,name=goal,proto3" json:"goal,omitempty"`
}

// NewMessage implements Message.
func (m *WalkStatus) NewMessage() fx.Message { return &WalkStatus{} }

// TypeID implements SerializableMessage.
func (m *WalkStatus) TypeID() uint32 { return WalkStatusEventTypeID }

// Serializable implements SerializableMessage.
func (m *WalkStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *WalkStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *WalkStatus) Reset() { *m = WalkStatus{} }

// String implements proto.Message.
func (m *WalkStatus) String() string { return proto.CompactTextString(m) }

// JointStates is an Event message carrying the commanded joint positions.
type JointStates struct {
	Joints []*JointState `protobuf:"bytes,1,rep,name=joints,proto3" json:"joints,omitempty"`
}

// NewMessage implements Message.
func (m *JointStates) NewMessage() fx.Message { return &JointStates{} }

// TypeID implements SerializableMessage.
func (m *JointStates) TypeID() uint32 { return JointStatesEventTypeID }

// Serializable implements SerializableMessage.
func (m *JointStates) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *JointStates) ProtoMessage() {}

// Reset implements proto.Message.
func (m *JointStates) Reset() { *m = JointStates{} }

// String implements proto.Message.
func (m *JointStates) String() string { return proto.CompactTextString(m) }

// FootStep is a planned footstep. A is the rotation in radians, Time is
// the scheduled time in seconds.
type FootStep struct {
	X       float64 `protobuf:"fixed64,1,opt,name=x,proto3" json:"x,omitempty"`
	Y       float64 `protobuf:"fixed64,2,opt,name=y,proto3" json:"y,omitempty"`
	A       float64 `protobuf:"fixed64,3,opt,name=a,proto3" json:"a,omitempty"`
	Support string  `protobuf:"bytes,4,opt,name=support,proto3" json:"support,omitempty"`
	Time    float64 `protobuf:"fixed64,5,opt,name=time,proto3" json:"time,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *FootStep) ProtoMessage() {}

// Reset implements proto.Message.
func (m *FootStep) Reset() { *m = FootStep{} }

// String implements proto.Message.
func (m *FootStep) String() string { return proto.CompactTextString(m) }

// JointState is the position of a joint in degrees.
type JointState struct {
	Id       uint32  `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Name     string  `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Position float64 `protobuf:"fixed64,3,opt,name=position,proto3" json:"position,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *JointState) ProtoMessage() {}

// Reset implements proto.Message.
func (m *JointState) Reset() { *m = JointState{} }

// String implements proto.Message.
func (m *JointState) String() string { return proto.CompactTextString(m) }

// TypeIDs
const (
	WalkGoalTypeID         uint32 = msgs.GroupWalking | 0x0001
	WalkStopTypeID         uint32 = msgs.GroupWalking | 0x0002
	WalkStatusQueryTypeID  uint32 = msgs.GroupWalking | 0x0003
	WalkStatusReplyTypeID  uint32 = msgs.GroupWalking | msgs.TypeIDMaskReply | 0x0003
	WalkStatusEventTypeID  uint32 = msgs.GroupWalking | msgs.TypeIDKindEvent | 0x0001
	JointStatesEventTypeID uint32 = msgs.GroupWalking | msgs.TypeIDKindEvent | 0x0002
)

func init() {
	msgs.RegisterTypes(
		(*WalkGoal)(nil),
		(*WalkStop)(nil),
		(*WalkStatusQuery)(nil),
		(*WalkStatusReply)(nil),
		(*WalkStatus)(nil),
		(*JointStates)(nil),
	)
}
