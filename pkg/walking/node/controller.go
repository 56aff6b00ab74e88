// Package node hosts the walking manager in a control loop and exposes it
// as an L1 controller.
package node

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/golang/glog"
	"go.uber.org/multierr"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/geom"
	"github.com/robotalks/biped.go/pkg/l1"
	l1msgs "github.com/robotalks/biped.go/pkg/l1/msgs"
	"github.com/robotalks/biped.go/pkg/walking"
	"github.com/robotalks/biped.go/pkg/walking/config"
	"github.com/robotalks/biped.go/pkg/walking/msgs"
)

// ControllerType is the L1 controller type of the walking node.
const ControllerType = "biped"

// Controller runs the gait one step per loop iteration.
//
// Commands are handled at PrLvCommand, the gait ticks at PrLvControl,
// joint states are published at PrLvActuate and status changes at
// PrLvPostProc.
type Controller struct {
	Registrar l1.Registrar
	// WatchDir is watched for document changes when not empty.
	WatchDir string
	// JointStatesDivisor publishes joint states every n ticks, 0 disables.
	JointStatesDivisor int

	manager *walking.Manager
	applied atomic.Value // *ConfigMsg

	// repeat is re-issued when the CoM trajectory is consumed.
	repeat *msgs.WalkGoal
	goal   *msgs.WalkGoal

	status        msgs.WalkStatus
	statusChanged bool
}

// ConfigMsg carries loaded documents into the loop.
type ConfigMsg struct {
	Walking   *config.Walking
	Kinematic *config.Kinematic
}

// NewMessage implements Message.
func (m *ConfigMsg) NewMessage() fx.Message { return &ConfigMsg{} }

// NewController creates a Controller.
func NewController(reg l1.Registrar) *Controller {
	return &Controller{
		Registrar:          reg,
		JointStatesDivisor: defaultConfig.JointStatesDivisor,
		manager:            walking.New(),
		statusChanged:      true,
	}
}

// Manager exposes the walking manager. It must only be used from the loop.
func (c *Controller) Manager() *walking.Manager {
	return c.manager
}

// SetConfig applies the documents. It must not be called concurrently with
// the loop, use ConfigMsg instead.
func (c *Controller) SetConfig(w *config.Walking, k *config.Kinematic) error {
	if err := c.manager.SetConfig(w, k); err != nil {
		return err
	}
	c.applied.Store(&ConfigMsg{Walking: w, Kinematic: k})
	return nil
}

// Config gets the applied documents, safe for concurrent use.
func (c *Controller) Config() (*config.Walking, *config.Kinematic) {
	if m, ok := c.applied.Load().(*ConfigMsg); ok {
		return m.Walking, m.Kinematic
	}
	return nil, nil
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	if c.WatchDir != "" {
		loop.AddRunnable(c)
	}
	loop.AddController(fx.PrLvCommand, fx.ControlFunc(c.handleCommands))
	loop.AddController(fx.PrLvControl, c)
	loop.AddController(fx.PrLvActuate, fx.ControlFunc(c.publishJoints))
	loop.AddController(fx.PrLvPostProc, fx.ControlFunc(c.notifyStatusChange))
}

// Run implements Runnable. Changed documents are loaded here and handed
// over to the loop.
func (c *Controller) Run(ctx context.Context) error {
	watcher, err := config.NewWatcher(c.WatchDir, config.DefaultDebounce)
	if err != nil {
		glog.Errorf("watch %s: %v", c.WatchDir, err)
		<-ctx.Done()
		return ctx.Err()
	}
	defer watcher.Close()
	loopCtl := fx.LoopCtlFrom(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case name, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w, k, err := config.LoadDir(c.WatchDir)
			if err != nil {
				glog.Errorf("reload after %s changed, keep current config: %v", name, err)
				continue
			}
			glog.Infof("reload after %s changed", name)
			loopCtl.PostMessage(&ConfigMsg{Walking: w, Kinematic: k})
		case err, ok := <-watcher.Errors:
			if ok {
				glog.Warningf("watch %s: %v", c.WatchDir, err)
			}
		}
	}
}

func (c *Controller) handleCommands(cc fx.ControlContext) error {
	var errs error
	done := func(cmd l1.Command, reply fx.Message) {
		errs = multierr.Append(errs, cmd.Done(reply))
	}
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		switch msg := mctx.CurrentMessage().(type) {
		case *l1.CommandMsg:
			switch m := msg.Command.Msg().(type) {
			case *msgs.WalkGoal:
				mctx.MessageTaken()
				done(msg.Command, c.setGoal(m))
			case *msgs.WalkStop:
				mctx.MessageTaken()
				c.stop()
				done(msg.Command, l1msgs.NewCommandOK())
			case *msgs.WalkStatusQuery:
				mctx.MessageTaken()
				done(msg.Command, &msgs.WalkStatusReply{Status: c.snapshot()})
			}
		case *ConfigMsg:
			mctx.MessageTaken()
			if err := c.SetConfig(msg.Walking, msg.Kinematic); err != nil {
				glog.Errorf("keep current config: %v", err)
			} else {
				glog.Info("config applied")
			}
		}
	}))
	return errs
}

func (c *Controller) setGoal(m *msgs.WalkGoal) fx.Message {
	pos := geom.Point2{X: m.X, Y: m.Y}
	if walking.IsStop(pos) {
		c.stop()
		return l1msgs.NewCommandOK()
	}
	if math.IsNaN(m.X) || math.IsNaN(m.Y) || math.IsNaN(m.A) ||
		math.IsInf(m.X, 0) || math.IsInf(m.Y, 0) || math.IsInf(m.A, 0) {
		return l1msgs.NewCommandErrFromMsg("goal must be finite")
	}
	goal := *m
	c.goal = &goal
	c.repeat = nil
	if m.Repeat {
		c.repeat = &goal
	}
	c.manager.SetGoal(pos, geom.Rad(m.A))
	c.statusChanged = true
	return l1msgs.NewCommandOK()
}

func (c *Controller) stop() {
	c.repeat = nil
	c.manager.Stop()
	c.statusChanged = true
}

// Control implements Controller.
func (c *Controller) Control(cc fx.ControlContext) error {
	if g := c.repeat; g != nil && c.manager.Initialized() && c.manager.TrajectoryLen() == 0 {
		c.manager.SetGoal(geom.Point2{X: g.X, Y: g.Y}, geom.Rad(g.A))
	}
	c.manager.UpdateJoints()
	return nil
}

func (c *Controller) publishJoints(cc fx.ControlContext) error {
	div := c.JointStatesDivisor
	if div <= 0 || c.Registrar == nil || cc.Tick()%uint64(div) != 0 {
		return nil
	}
	joints := c.manager.Joints()
	states := &msgs.JointStates{Joints: make([]*msgs.JointState, 0, len(joints))}
	for _, j := range joints {
		states.Joints = append(states.Joints, &msgs.JointState{
			Id:       uint32(j.ID),
			Name:     j.ID.String(),
			Position: j.Position,
		})
	}
	return c.Registrar.SendEvent(cc.Context(), states)
}

func (c *Controller) notifyStatusChange(cc fx.ControlContext) error {
	m := c.manager
	if c.status.Status != m.Status().String() ||
		c.status.NextSupport != m.NextSupport().String() ||
		c.status.Initialized != m.Initialized() {
		c.statusChanged = true
	}
	if !c.statusChanged {
		return nil
	}
	c.statusChanged = false
	c.status = *c.snapshot()
	if c.Registrar == nil {
		return nil
	}
	return c.Registrar.SendEvent(cc.Context(), &c.status)
}

func (c *Controller) snapshot() *msgs.WalkStatus {
	m := c.manager
	status := &msgs.WalkStatus{
		Status:        m.Status().String(),
		NextSupport:   m.NextSupport().String(),
		Initialized:   m.Initialized(),
		TrajectoryLen: uint32(m.TrajectoryLen()),
		Goal:          c.goal,
	}
	for _, step := range m.FootSteps() {
		status.FootSteps = append(status.FootSteps, &msgs.FootStep{
			X:       step.Position.X,
			Y:       step.Position.Y,
			A:       step.Rotation.Radians(),
			Support: step.Support.String(),
			Time:    step.Time,
		})
	}
	return status
}
