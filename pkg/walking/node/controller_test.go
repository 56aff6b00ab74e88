package node

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/l1"
	l1msgs "github.com/robotalks/biped.go/pkg/l1/msgs"
	"github.com/robotalks/biped.go/pkg/walking/config"
	"github.com/robotalks/biped.go/pkg/walking/joint"
	"github.com/robotalks/biped.go/pkg/walking/msgs"
	"github.com/robotalks/biped.go/pkg/walking/planner"
)

var testConfigDir = filepath.Join("..", "config", "testdata")

type recorder struct {
	lock   sync.Mutex
	events []fx.Message
}

func (r *recorder) SendEvent(_ context.Context, msg fx.Message) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, msg)
	return nil
}

func (r *recorder) jointStates() (res []*msgs.JointStates) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, ev := range r.events {
		if m, ok := ev.(*msgs.JointStates); ok {
			res = append(res, m)
		}
	}
	return
}

func (r *recorder) statuses() (res []*msgs.WalkStatus) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, ev := range r.events {
		if m, ok := ev.(*msgs.WalkStatus); ok {
			res = append(res, m)
		}
	}
	return
}

type testCommand struct {
	msg   fx.Message
	reply fx.Message
}

func (c *testCommand) Msg() fx.Message { return c.msg }

func (c *testCommand) Done(msg fx.Message) error {
	c.reply = msg
	return nil
}

type testNode struct {
	ctl  *Controller
	reg  *recorder
	loop *fx.Loop
	now  time.Time
}

func newTestNode(t *testing.T) *testNode {
	conf := NewConfig()
	conf.ConfigDir = testConfigDir
	conf.Watch = false
	reg := &recorder{}
	ctl, err := conf.NewController(reg)
	require.NoError(t, err)
	n := &testNode{ctl: ctl, reg: reg, loop: fx.NewLoop(), now: time.Unix(0, 0)}
	n.loop.Add(ctl)
	return n
}

func (n *testNode) tick(count int) {
	for i := 0; i < count; i++ {
		n.loop.RunIteration(context.Background(), n.now)
		n.now = n.now.Add(10 * time.Millisecond)
	}
}

func (n *testNode) do(msg fx.Message) fx.Message {
	cmd := &testCommand{msg: msg}
	n.loop.PostMessage(&l1.CommandMsg{Command: cmd})
	n.tick(1)
	return cmd.reply
}

func TestGoalCommand(t *testing.T) {
	n := newTestNode(t)
	n.tick(1)
	statuses := n.reg.statuses()
	require.Len(t, statuses, 1)
	require.False(t, statuses[0].Initialized)
	require.Equal(t, "start", statuses[0].Status)

	require.IsType(t, &l1msgs.CommandOK{}, n.do(&msgs.WalkGoal{X: 0.1}))
	m := n.ctl.Manager()
	require.True(t, m.Initialized())
	require.Equal(t, planner.Walking, m.Status())
	// the goal tick consumed one sample.
	require.Equal(t, 67, m.TrajectoryLen())

	statuses = n.reg.statuses()
	require.Len(t, statuses, 2)
	require.True(t, statuses[1].Initialized)
	require.Equal(t, "walking", statuses[1].Status)
	require.Equal(t, 0.1, statuses[1].Goal.X)
}

func TestInvalidGoal(t *testing.T) {
	n := newTestNode(t)
	testCases := []*msgs.WalkGoal{
		{X: math.NaN()},
		{Y: math.Inf(1)},
		{A: math.Inf(-1)},
	}
	for _, goal := range testCases {
		reply := n.do(goal)
		require.IsType(t, &l1msgs.CommandErr{}, reply, goal.String())
	}
	require.False(t, n.ctl.Manager().Initialized())
}

func TestStatusQuery(t *testing.T) {
	n := newTestNode(t)
	n.do(&msgs.WalkGoal{X: 0.1, Y: 0.02, A: 0.1})
	reply, ok := n.do(&msgs.WalkStatusQuery{}).(*msgs.WalkStatusReply)
	require.True(t, ok)
	status := reply.Status
	require.True(t, status.Initialized)
	require.Equal(t, "walking", status.Status)
	require.Equal(t, 0.02, status.Goal.Y)
	steps := n.ctl.Manager().FootSteps()
	require.Len(t, status.FootSteps, len(steps))
	for i, step := range steps {
		require.Equal(t, step.Support.String(), status.FootSteps[i].Support)
		require.Equal(t, step.Time, status.FootSteps[i].Time)
		require.Equal(t, step.Position.X, status.FootSteps[i].X)
	}
	require.Equal(t, uint32(n.ctl.Manager().TrajectoryLen()), status.TrajectoryLen)
}

func TestJointStates(t *testing.T) {
	n := newTestNode(t)
	n.ctl.JointStatesDivisor = 2
	n.tick(10)
	states := n.reg.jointStates()
	require.Len(t, states, 5)
	for _, s := range states {
		require.Len(t, s.Joints, len(joint.IDs()))
		require.Equal(t, uint32(joint.NeckYaw), s.Joints[0].Id)
		require.Equal(t, "neck_yaw", s.Joints[0].Name)
	}

	n.ctl.JointStatesDivisor = 0
	n.tick(10)
	require.Len(t, n.reg.jointStates(), 5)
}

func TestGoalRepeat(t *testing.T) {
	testCases := []struct {
		name   string
		repeat bool
		status planner.Status
	}{
		{name: "once", status: planner.Start},
		{name: "repeat", repeat: true, status: planner.Walking},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := newTestNode(t)
			n.do(&msgs.WalkGoal{X: 0.1, Repeat: tc.repeat})
			n.tick(400)
			require.Equal(t, tc.status, n.ctl.Manager().Status())
		})
	}
}

func TestStopClearsRepeat(t *testing.T) {
	n := newTestNode(t)
	n.do(&msgs.WalkGoal{X: 0.1, Repeat: true})
	n.tick(100)
	require.IsType(t, &l1msgs.CommandOK{}, n.do(&msgs.WalkStop{}))
	n.tick(600)
	require.Equal(t, planner.Start, n.ctl.Manager().Status())
	statuses := n.reg.statuses()
	require.Equal(t, "start", statuses[len(statuses)-1].Status)
}

func TestStopGoal(t *testing.T) {
	n := newTestNode(t)
	n.do(&msgs.WalkGoal{X: 0.1, Repeat: true})
	before := len(n.ctl.Manager().FootSteps())
	require.IsType(t, &l1msgs.CommandOK{}, n.do(&msgs.WalkGoal{X: -1, Y: -1}))
	require.Equal(t, before-1, len(n.ctl.Manager().FootSteps()))
	require.Nil(t, n.ctl.repeat)
}

func TestConfigMsg(t *testing.T) {
	n := newTestNode(t)
	w, k, err := config.LoadDir(testConfigDir)
	require.NoError(t, err)

	invalid := *w
	invalid.Posture.COMHeight = 0
	n.loop.PostMessage(&ConfigMsg{Walking: &invalid, Kinematic: k})
	n.tick(1)
	applied, _ := n.ctl.Config()
	require.Equal(t, 0.23, applied.Posture.COMHeight)

	valid := *w
	valid.Posture.FootHeight = 0.03
	n.loop.PostMessage(&ConfigMsg{Walking: &valid, Kinematic: k})
	n.tick(1)
	applied, _ = n.ctl.Config()
	require.Equal(t, 0.03, applied.Posture.FootHeight)
}

func copyConfigs(t *testing.T, dir string) {
	for _, name := range []string{"walking.json", "kinematic.json"} {
		data, err := os.ReadFile(filepath.Join(testConfigDir, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	copyConfigs(t, dir)
	conf := NewConfig()
	conf.ConfigDir = dir
	conf.Watch = true
	conf.JointStatesDivisor = 0
	ctl, err := conf.NewController(nil)
	require.NoError(t, err)
	loop := fx.NewLoop().Add(ctl)

	ctx, cancel := context.WithCancel(context.Background())
	runner := fx.NewRunnerWith(ctx).Go(loop)
	defer func() {
		cancel()
		runner.Wait()
	}()

	filename := filepath.Join(dir, "walking.json")
	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	changed := strings.Replace(string(data), `"foot_height": 0.04`, `"foot_height": 0.05`, 1)
	require.NotEqual(t, string(data), changed)
	// let the watcher start before changing the document.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filename, []byte(changed), 0644))

	require.Eventually(t, func() bool {
		w, _ := ctl.Config()
		return w.Posture.FootHeight == 0.05
	}, 5*time.Second, 20*time.Millisecond)
}
