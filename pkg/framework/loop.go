package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the iteration interval when Loop.Interval is unset.
const DefaultInterval = 10 * time.Millisecond

// Loop runs the registered controllers once per Interval. Iterations never
// overlap: an iteration running past the interval delays the next one and
// is counted as an overrun.
type Loop struct {
	Interval time.Duration

	levels  [PriorityLevels]level
	runners []Runnable

	lock   sync.Mutex
	posted []Message

	tick     uint64
	overruns uint64
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type level struct {
	lock        sync.Mutex
	controllers []Controller
	preHooks    []Controller
	postHooks   []Controller
}

type ctxKey struct{}

// LoopCtlFrom gets LoopControl from the context passed to the Runnables
// of a loop or from ControlContext.Context.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(ctxKey{}).(LoopControl)
}

// CtlCtxFrom gets ControlContext from ControlContext.Context.
func CtlCtxFrom(ctx context.Context) ControlContext {
	return ctx.Value(ctxKey{}).(ControlContext)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at a priority level. Controllers
// which are also Runnable are started with the loop.
func (l *Loop) AddController(priority Priority, ctls ...Controller) *Loop {
	lv := &l.levels[priority]
	lv.controllers = append(lv.controllers, ctls...)
	for _, ctl := range ctls {
		if runnable, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runnable)
		}
	}
	return l
}

// AddRunnable adds Runnables started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(context.WithValue(ctx, ctxKey{}, LoopControl(l)))
	runner.Go(l.runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case start := <-ticker.C:
			l.RunIteration(ctx, start)
			if elapsed := time.Since(start); elapsed > interval {
				l.overruns++
				glog.Warningf("iteration %d overrun: %v > %v", l.tick-1, elapsed, interval)
			}
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		glog.Exit(err)
	}
}

// Overruns gets the number of iterations exceeding the interval.
func (l *Loop) Overruns() uint64 {
	return l.overruns
}

// PreRunAt implements LoopControl.
func (l *Loop) PreRunAt(priority Priority, hooks ...Controller) {
	lv := &l.levels[priority]
	lv.lock.Lock()
	lv.preHooks = append(lv.preHooks, hooks...)
	lv.lock.Unlock()
}

// PostRunAt implements LoopControl.
func (l *Loop) PostRunAt(priority Priority, hooks ...Controller) {
	lv := &l.levels[priority]
	lv.lock.Lock()
	lv.postHooks = append(lv.postHooks, hooks...)
	lv.lock.Unlock()
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.posted = append(l.posted, msg)
	l.lock.Unlock()
}

// RunIteration runs all controllers once. It is called by Run on every
// tick and must not be called concurrently.
func (l *Loop) RunIteration(ctx context.Context, now time.Time) {
	iter := &iteration{loop: l, time: now, tick: l.tick}
	l.tick++
	l.lock.Lock()
	iter.messages, l.posted = l.posted, nil
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, ctxKey{}, ControlContext(iter))
	for p := PrLvTop; p <= PrLvIdle; p++ {
		iter.priority = p
		l.levels[p].run(iter)
	}
}

func (lv *level) takeHooks(pre bool) (hooks []Controller) {
	lv.lock.Lock()
	defer lv.lock.Unlock()
	if pre {
		hooks, lv.preHooks = lv.preHooks, nil
	} else {
		hooks, lv.postHooks = lv.postHooks, nil
	}
	return
}

func (lv *level) run(iter *iteration) {
	iter.control(lv.takeHooks(true))
	iter.control(lv.controllers)
	iter.control(lv.takeHooks(false))
}

type iteration struct {
	loop     *Loop
	ctx      context.Context
	time     time.Time
	tick     uint64
	priority Priority
	messages []Message
}

func (t *iteration) control(ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(t); err != nil {
			glog.Errorf("tick %d %s: %v", t.tick, t.priority, err)
		}
	}
}

func (t *iteration) Context() context.Context { return t.ctx }
func (t *iteration) Time() time.Time          { return t.time }
func (t *iteration) Tick() uint64             { return t.tick }
func (t *iteration) Priority() Priority       { return t.priority }
func (t *iteration) Messages() MessageStore   { return t }

func (t *iteration) PostRun(hooks ...Controller) {
	t.loop.PostRunAt(t.priority, hooks...)
}

func (t *iteration) PreRunAt(priority Priority, hooks ...Controller) {
	t.loop.PreRunAt(priority, hooks...)
}

func (t *iteration) PostRunAt(priority Priority, hooks ...Controller) {
	t.loop.PostRunAt(priority, hooks...)
}

func (t *iteration) PostMessage(msg Message) {
	t.loop.PostMessage(msg)
}

func (t *iteration) AddMessages(msgs ...Message) {
	t.messages = append(t.messages, msgs...)
}

// ProcessMessages implements MessageStore. Messages added while processing
// are kept after the ones not taken.
func (t *iteration) ProcessMessages(proc MessageProcessor) {
	pending := t.messages
	t.messages = nil
	kept := make([]Message, 0, len(pending))
	for n, msg := range pending {
		mc := &messageContext{iter: t, msg: msg}
		proc.ProcessMessage(mc)
		if !mc.taken {
			kept = append(kept, msg)
		}
		if mc.stop {
			kept = append(kept, pending[n+1:]...)
			break
		}
	}
	t.messages = append(kept, t.messages...)
}

type messageContext struct {
	iter  *iteration
	msg   Message
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message     { return c.msg }
func (c *messageContext) MessageTaken()               { c.taken = true }
func (c *messageContext) StopProcessing()             { c.stop = true }
func (c *messageContext) AddMessages(msgs ...Message) { c.iter.AddMessages(msgs...) }
