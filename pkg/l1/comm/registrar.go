package comm

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/multierr"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/l1"
	"github.com/robotalks/biped.go/pkg/l1/msgs"
)

// ErrAlreadyReplied is returned when a command is replied twice.
var ErrAlreadyReplied = errors.New("command already replied")

// Registrar is the controller side of a Pipe. Commands are posted to the
// loop as l1.CommandMsg, events from peers are posted as they are.
type Registrar struct {
	pipe Pipe
}

// Init prepares the Registrar on top of rw.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe = Pipe{ReadWriter: rw, Handler: msgs.HandleTypedMsgFunc(r.received)}
}

func (r *Registrar) received(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsReply() {
		// a controller never sends commands
		return nil
	}
	if typed.IsCommand() {
		msg = &l1.CommandMsg{Command: &command{seq: typed.Sequence, msg: msg, pipe: &r.pipe}}
	}
	fx.LoopCtlFrom(ctx).PostMessage(msg)
	return nil
}

// SendEvent implements l1.Registrar.
func (r *Registrar) SendEvent(_ context.Context, msg fx.Message) error {
	return r.pipe.SendEventMsg(msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.pipe)
}

type command struct {
	seq     uint32
	msg     fx.Message
	pipe    *Pipe
	replied int32
}

func (c *command) Msg() fx.Message {
	return c.msg
}

func (c *command) Done(reply fx.Message) error {
	if !atomic.CompareAndSwapInt32(&c.replied, 0, 1) {
		return ErrAlreadyReplied
	}
	return c.pipe.SendCommandMsg(reply, c.seq)
}

// RegistrarMux fans events out to several Registrars, e.g. a local stream
// and an MQTT broker at the same time.
type RegistrarMux struct {
	Registrars []l1.Registrar
}

// Add appends Registrars.
func (r *RegistrarMux) Add(regs ...l1.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// SendEvent implements l1.Registrar. All Registrars are tried.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg fx.Message) (err error) {
	for _, reg := range r.Registrars {
		err = multierr.Append(err, reg.SendEvent(ctx, msg))
	}
	return
}

// AddToLoop implements LoopAdder.
func (r *RegistrarMux) AddToLoop(l *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			adder.AddToLoop(l)
		}
	}
}

// UnsupportedCommands replies the commands no controller took.
type UnsupportedCommands struct{}

// Control implements Controller.
func (UnsupportedCommands) Control(cc fx.ControlContext) error {
	var errs error
	fx.TakeMessages(cc, func(msg fx.Message) bool {
		cmdMsg, ok := msg.(*l1.CommandMsg)
		if ok {
			errs = multierr.Append(errs, cmdMsg.Command.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand)))
		}
		return ok
	})
	return errs
}

// AddToLoop implements LoopAdder.
func (c UnsupportedCommands) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvIdle, c)
}
