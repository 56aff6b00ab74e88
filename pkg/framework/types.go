// Package framework runs controllers in a fixed-rate loop.
//
// Every iteration visits the priority levels from PrLvTop to PrLvIdle and
// runs the controllers registered at each level. Messages posted from other
// goroutines are delivered to the next iteration and dropped at its end if
// no controller took them.
package framework

import (
	"context"
	"strconv"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Message is anything delivered to controllers through the loop.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller is invoked once per iteration at its priority level.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// Priority orders the controllers within an iteration, lower runs first.
type Priority int

// PriorityLevels is the total levels of priorities.
const PriorityLevels = 16

// Priority levels.
const (
	PrLvTop    Priority = 0
	PrLvHigh   Priority = 4
	PrLvNormal Priority = 8
	PrLvLow    Priority = 12
	PrLvIdle   Priority = PriorityLevels - 1

	// PrLvSense reads sensors.
	PrLvSense = PrLvHigh
	// PrLvCommand applies incoming commands before the controllers of
	// the same iteration.
	PrLvCommand = PrLvNormal - 1
	// PrLvControl computes the outputs.
	PrLvControl = PrLvNormal
	// PrLvActuate sends the outputs.
	PrLvActuate = PrLvLow
	// PrLvPostProc reports the state after the iteration.
	PrLvPostProc = PrLvIdle - 1
)

// String implements fmt.Stringer.
func (p Priority) String() string {
	switch p {
	case PrLvTop:
		return "top"
	case PrLvSense:
		return "sense"
	case PrLvCommand:
		return "command"
	case PrLvControl:
		return "control"
	case PrLvActuate:
		return "actuate"
	case PrLvPostProc:
		return "postproc"
	case PrLvIdle:
		return "idle"
	}
	return "priority(" + strconv.Itoa(int(p)) + ")"
}

// ControlContext is the state of the running iteration.
type ControlContext interface {
	// Context is canceled when the loop stops.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Tick is the sequence number of the iteration, starting from 0.
	Tick() uint64
	// Priority is the level being run.
	Priority() Priority
	// Messages are the messages not yet taken in this iteration.
	Messages() MessageStore
	// PostRun installs one-shot hooks after the controllers of the
	// current level. Hooks installed by a post-run hook run in the next
	// iteration.
	PostRun(hooks ...Controller)

	LoopControl
}

// LoopControl is safe to use from any goroutine.
type LoopControl interface {
	// PreRunAt installs one-shot hooks before the controllers of a level.
	PreRunAt(priority Priority, hooks ...Controller)
	// PostRunAt installs one-shot hooks after the controllers of a level.
	PostRunAt(priority Priority, hooks ...Controller)
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
}

// MessageStore provides read/write access to a list of messages.
type MessageStore interface {
	// ProcessMessages visits the messages in order.
	ProcessMessages(MessageProcessor)

	MessageAppender
}

// MessageAppender appends message to store.
type MessageAppender interface {
	// AddMessages appends messages for the controllers of the following
	// levels in the same iteration.
	AddMessages(msgs ...Message)
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for current message.
type MessageProcessingContext interface {
	// CurrentMessage gets the current message being processed.
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()

	MessageAppender
}

// TakeMessages calls fn with each message, the message is removed when fn
// returns true.
func TakeMessages(cc ControlContext, fn func(Message) bool) {
	cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
		if fn(mc.CurrentMessage()) {
			mc.MessageTaken()
		}
	}))
}
