package comm

import (
	"context"
	"sync"
	"time"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/l1"
	"github.com/robotalks/biped.go/pkg/l1/msgs"
)

// DefaultCommandExpiration is how long a command waits for its reply.
const DefaultCommandExpiration = time.Second

// ControllerConn is the client side of a Pipe. Replies resolve the pending
// commands by sequence, and events are posted to the loop.
type ControllerConn struct {
	Expiration time.Duration

	pipe Pipe

	lock    sync.Mutex
	lastSeq uint32
	// pending is ordered by expiration.
	pending []*commandFuture
	bySeq   map[uint32]*commandFuture
}

// Init prepares the connection on top of rw.
func (c *ControllerConn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe = Pipe{ReadWriter: rw, Handler: msgs.HandleTypedMsgFunc(c.received)}
	c.bySeq = make(map[uint32]*commandFuture)
}

// DoCommand implements l1.ControllerConn. Sequence 0 is never used.
func (c *ControllerConn) DoCommand(msg fx.Message) l1.CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.lastSeq++; c.lastSeq == 0 {
		c.lastSeq = 1
	}
	f := newCommandFuture(c.lastSeq, time.Now().Add(c.Expiration))
	if err := c.pipe.SendCommandMsg(msg, f.seq); err != nil {
		f.resolve(l1.Result{Err: err})
		return f
	}
	c.pending = append(c.pending, f)
	c.bySeq[f.seq] = f
	return f
}

// Pending counts the commands not replied yet.
func (c *ControllerConn) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.bySeq)
}

// AddToLoop implements LoopAdder.
func (c *ControllerConn) AddToLoop(l *fx.Loop) {
	l.Add(&c.pipe)
	l.AddController(fx.PrLvIdle, fx.ControlFunc(c.expire))
}

func (c *ControllerConn) received(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		fx.LoopCtlFrom(ctx).PostMessage(msg)
		return nil
	}
	c.lock.Lock()
	f, ok := c.bySeq[typed.Sequence]
	delete(c.bySeq, typed.Sequence)
	c.lock.Unlock()
	if !ok {
		// late reply after expiration
		return nil
	}
	res := l1.Result{Msg: msg}
	if cmdErr, isErr := msg.(*msgs.CommandErr); isErr {
		res.Err = cmdErr
	}
	f.resolve(res)
	return nil
}

// expire fails the commands past their expiration and drops the replied
// ones from the pending list.
func (c *ControllerConn) expire(cc fx.ControlContext) error {
	now := cc.Time()
	c.lock.Lock()
	defer c.lock.Unlock()
	n := 0
	for ; n < len(c.pending); n++ {
		f := c.pending[n]
		if _, waiting := c.bySeq[f.seq]; !waiting {
			continue
		}
		if now.Before(f.expireAt) {
			break
		}
		delete(c.bySeq, f.seq)
		f.resolve(l1.Result{Err: context.DeadlineExceeded})
	}
	c.pending = c.pending[n:]
	return nil
}

type commandFuture struct {
	seq      uint32
	expireAt time.Time
	result   chan l1.Result
}

func newCommandFuture(seq uint32, expireAt time.Time) *commandFuture {
	return &commandFuture{seq: seq, expireAt: expireAt, result: make(chan l1.Result, 1)}
}

func (f *commandFuture) resolve(r l1.Result) {
	f.result <- r
	close(f.result)
}

func (f *commandFuture) ResultChan() <-chan l1.Result {
	return f.result
}
