package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/biped.go/pkg/geom"
)

const (
	testPeriod  = 0.34
	testYOffset = 0.044
)

func newTestPlanner() *Planner {
	p := New()
	p.SetParameters(geom.Point2{X: 0.05, Y: 0.025}, geom.Deg(10), testPeriod, testYOffset)
	return p
}

func center(s FootStep) geom.Point2 {
	return geom.Point2{X: s.Position.X, Y: s.Position.Y - s.Support.lateralSign()*testYOffset}
}

func requireValidPlan(t *testing.T, p *Planner, steps []FootStep) {
	require.True(t, len(steps) >= 2)
	for n := 1; n < len(steps); n++ {
		prev, cur := steps[n-1], steps[n]
		require.Greater(t, cur.Time, prev.Time, "step %d", n)
		periods := (cur.Time - prev.Time) / p.Period
		require.InDelta(t, math.Round(periods), periods, 1e-6, "step %d", n)

		if prev.Support != BothFeet && cur.Support != BothFeet {
			require.Equal(t, prev.Support.Opposite(), cur.Support, "step %d", n)
			d := center(cur).Sub(center(prev))
			require.LessOrEqual(t, math.Abs(d.X), p.MaxStride.X+1e-9, "step %d", n)
			require.LessOrEqual(t, math.Abs(d.Y), p.MaxStride.Y+1e-9, "step %d", n)
			require.LessOrEqual(t, cur.Rotation.Sub(prev.Rotation).Abs().Radians(),
				p.MaxRotation.Radians()+1e-9, "step %d", n)
		}
	}
	// BothFeet only brackets the plan.
	var single bool
	for n, s := range steps {
		if s.Support != BothFeet {
			single = true
			continue
		}
		if single {
			for _, rest := range steps[n:] {
				require.Equal(t, BothFeet, rest.Support)
			}
			break
		}
	}
}

func TestPlan(t *testing.T) {
	testCases := []struct {
		name    string
		goal    geom.Point2
		goalRot geom.Angle
		cur     geom.Point2
		curRot  geom.Angle
		support Support
		status  Status
	}{
		{"start forward", geom.Point2{X: 1}, 0, geom.Point2{}, 0, RightFoot, Start},
		{"walking forward", geom.Point2{X: 1}, 0, geom.Point2{X: 0.2}, 0, LeftFoot, Walking},
		{"backward", geom.Point2{X: -0.3}, 0, geom.Point2{}, 0, RightFoot, Start},
		{"sideways", geom.Point2{Y: 0.3}, 0, geom.Point2{}, 0, LeftFoot, Walking},
		{"turn in place", geom.Point2{}, geom.Deg(90), geom.Point2{}, 0, RightFoot, Start},
		{"turn across pi", geom.Point2{X: 0.1}, geom.Deg(-170), geom.Point2{}, geom.Deg(170), RightFoot, Walking},
		{"diagonal with turn", geom.Point2{X: 0.7, Y: -0.4}, geom.Deg(-45), geom.Point2{X: 0.1, Y: 0.1}, geom.Deg(10), LeftFoot, Walking},
		{"already there", geom.Point2{X: 0.1}, 0, geom.Point2{X: 0.1}, 0, RightFoot, Walking},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPlanner()
			p.Plan(tc.goal, tc.goalRot, tc.cur, tc.curRot, tc.support, tc.status)
			steps := p.Steps()
			requireValidPlan(t, p, steps)

			first := steps[0]
			if tc.status == Start {
				require.Equal(t, BothFeet, first.Support)
				require.Equal(t, 0.0, first.Time)
				require.InDelta(t, 2*testPeriod, steps[1].Time, 1e-12)
				first = steps[1]
			}
			require.Equal(t, tc.support, first.Support)
			require.InDelta(t, tc.cur.X, center(first).X, 1e-12)
			require.InDelta(t, tc.cur.Y, center(first).Y, 1e-12)

			last := steps[len(steps)-1]
			require.Equal(t, BothFeet, last.Support)
			require.Equal(t, tc.goal, last.Position)
			require.Equal(t, tc.goalRot, last.Rotation)
			require.GreaterOrEqual(t, last.Time-steps[len(steps)-2].Time, HoldDuration)
		})
	}
}

func TestPlanFarGoal(t *testing.T) {
	p := newTestPlanner()
	goal := geom.Point2{X: 60}
	p.Plan(goal, 0, geom.Point2{}, 0, RightFoot, Start)
	steps := p.Steps()
	requireValidPlan(t, p, steps)
	// the start step, MaxStrides+2 single steps and the closing steps.
	require.Len(t, steps, MaxStrides+6)

	last := steps[len(steps)-1]
	require.Equal(t, BothFeet, last.Support)
	require.InDelta(t, float64(MaxStrides+1)*p.MaxStride.X, last.Position.X, 1e-9)
	require.Less(t, last.Position.X, goal.X)
	final := steps[len(steps)-4]
	require.NotEqual(t, BothFeet, final.Support)
	require.InDelta(t, last.Position.X, final.Position.X, 1e-9)
}

func TestPlanForwardProgress(t *testing.T) {
	p := newTestPlanner()
	p.Plan(geom.Point2{X: 1}, 0, geom.Point2{}, 0, RightFoot, Start)
	var prevX float64
	var n int
	for _, s := range p.Steps() {
		if s.Support == BothFeet {
			continue
		}
		require.GreaterOrEqual(t, s.Position.X, prevX)
		prevX = s.Position.X
		n++
	}
	// 1m in 5cm strides, plus the step at the start.
	require.Equal(t, 21, n)
}

func TestPlanReplacesQueue(t *testing.T) {
	p := newTestPlanner()
	p.Plan(geom.Point2{X: 1}, 0, geom.Point2{}, 0, RightFoot, Start)
	long := p.Len()
	p.Plan(geom.Point2{X: 0.05}, 0, geom.Point2{}, 0, RightFoot, Walking)
	require.True(t, p.Len() < long)
	require.Equal(t, 0.0, p.At(0).Time)
}

func TestPopFront(t *testing.T) {
	p := newTestPlanner()
	_, ok := p.PopFront()
	require.False(t, ok)
	p.Plan(geom.Point2{X: 0.1}, 0, geom.Point2{}, 0, LeftFoot, Walking)
	n := p.Len()
	first, ok := p.Front()
	require.True(t, ok)
	require.Equal(t, n, p.Len())
	s, ok := p.PopFront()
	require.True(t, ok)
	require.Equal(t, first, s)
	require.Equal(t, n-1, p.Len())
	for p.Len() > 0 {
		p.PopFront()
	}
	_, ok = p.Front()
	require.False(t, ok)
}

func TestSupportOpposite(t *testing.T) {
	require.Equal(t, RightFoot, LeftFoot.Opposite())
	require.Equal(t, LeftFoot, RightFoot.Opposite())
	require.Equal(t, BothFeet, BothFeet.Opposite())
	require.Equal(t, "both", BothFeet.String())
	require.Equal(t, "walking", Walking.String())
}
