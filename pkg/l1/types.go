// Package l1 defines how L2 clients talk to an L1 controller, the process
// driving the hardware of one robot.
//
// A controller announces itself through a Registrar and receives commands
// as CommandMsg in its loop. Clients find controllers with a Connector and
// send commands through a ControllerConn.
package l1

import (
	"context"
	"fmt"
	"strings"

	fx "github.com/robotalks/biped.go/pkg/framework"
)

// ControllerRef identifies a controller as TYPE/ID.
type ControllerRef struct {
	// Type is the kind of robot, e.g. "biped".
	Type string
	// ID is unique among the controllers of the same Type.
	ID string
}

// ParseControllerRef parses TYPE/ID.
func ParseControllerRef(s string) (ControllerRef, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ControllerRef{}, fmt.Errorf("invalid controller reference %q, expect TYPE/ID", s)
	}
	return ControllerRef{Type: parts[0], ID: parts[1]}, nil
}

// Name formats the ref as TYPE/ID.
func (r ControllerRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid checks both Type and ID are present.
func (r ControllerRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// ControllerMeta is published along with the ref of a controller.
type ControllerMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ControllerInfo is a discovered controller.
type ControllerInfo struct {
	Ref  ControllerRef
	Meta ControllerMeta
}

// Command is a request received by a controller. Done sends the reply and
// must be called exactly once.
type Command interface {
	Msg() fx.Message
	Done(reply fx.Message) error
}

// CommandMsg delivers a Command through the loop.
type CommandMsg struct {
	Command Command
}

// NewMessage implements Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// Registrar is the controller side of the connection.
type Registrar interface {
	// SendEvent broadcasts an event to the connected clients.
	SendEvent(context.Context, fx.Message) error
}

// Connector is the client side entry.
type Connector interface {
	Discover(context.Context) ([]ControllerInfo, error)
	Connect(context.Context, ControllerRef) (ControllerConn, error)
}

// ControllerConn sends commands to one controller. Events from the
// controller are posted to the loop the connection is added to.
type ControllerConn interface {
	DoCommand(fx.Message) CommandFuture
}

// Result is the reply to a command, or the reason it is missing.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture delivers exactly one Result.
type CommandFuture interface {
	ResultChan() <-chan Result
}

// Wait blocks until the result arrives or ctx is done.
func Wait(ctx context.Context, f CommandFuture) Result {
	select {
	case r, ok := <-f.ResultChan():
		if ok {
			return r
		}
		return Result{Err: context.Canceled}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}
