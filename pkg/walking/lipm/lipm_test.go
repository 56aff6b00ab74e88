package lipm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/robotalks/biped.go/pkg/geom"
	"github.com/robotalks/biped.go/pkg/walking/planner"
)

func newTestGenerator(t *testing.T) *Generator {
	g := New()
	require.NoError(t, g.SetParameters(0.23, 0.01, 1.0))
	return g
}

func drain(g *Generator) []Sample {
	var samples []Sample
	for {
		s, ok := g.PopFront()
		if !ok {
			return samples
		}
		samples = append(samples, s)
	}
}

func TestSetParameters(t *testing.T) {
	g := New()
	require.Error(t, g.SetParameters(0, 0.01, 1.0))
	require.Error(t, g.SetParameters(0.23, 0, 1.0))
	require.Error(t, g.SetParameters(0.23, 0.01, 0.001))
	require.Error(t, g.SetParameters(math.NaN(), 0.01, 1.0))
	require.NoError(t, g.SetParameters(0.23, 0.01, 1.0))
	require.InDelta(t, math.Sqrt(0.23/Gravity), g.NaturalPeriod(), 1e-12)
	require.Len(t, g.gains.preview, 100)
}

func TestRiccatiSolution(t *testing.T) {
	m := newModel(0.23, 0.01)
	phi, gm := m.augmented()
	q := mat.NewDense(4, 4, nil)
	q.Set(0, 0, WeightError)
	p, err := solveDARE(phi, gm, q, WeightInput)
	require.NoError(t, err)
	next := riccatiStep(phi, gm, q, p, WeightInput)
	require.True(t, maxAbsDiff(next, p) <= 1e-9*maxAbs(p))
}

func TestPreviewGainsDecay(t *testing.T) {
	g := newTestGenerator(t)
	f := g.gains.preview
	require.True(t, math.Abs(f[len(f)-1]) < math.Abs(f[1]))
}

func TestStanding(t *testing.T) {
	g := newTestGenerator(t)
	steps := []planner.FootStep{
		{Support: planner.BothFeet, Time: 0},
		{Support: planner.BothFeet, Time: 0.5},
		{Support: planner.BothFeet, Time: 100},
	}
	g.Update(0, steps)
	require.Equal(t, 50, g.Len())
	for _, s := range drain(g) {
		require.Equal(t, geom.Point2{}, s.Position)
		require.Equal(t, geom.Point2{}, s.ZMP)
	}
	require.True(t, g.Empty())
}

func TestSampleCount(t *testing.T) {
	g := newTestGenerator(t)
	steps := []planner.FootStep{
		{Support: planner.LeftFoot, Time: 1.2},
		{Support: planner.RightFoot, Time: 1.54},
	}
	g.Update(1.2, steps)
	require.Equal(t, 34, g.Len())

	g.Update(1.2, steps[1:])
	require.Equal(t, 100, g.Len())

	g.Update(0, nil)
	require.True(t, g.Empty())
}

func TestStepResponse(t *testing.T) {
	g := newTestGenerator(t)
	target := geom.Point2{X: 0.1, Y: -0.04}
	steps := []planner.FootStep{
		{Support: planner.BothFeet, Time: 0},
		{Position: target, Support: planner.BothFeet, Time: 1},
		{Position: target, Support: planner.BothFeet, Time: 4},
		{Position: target, Support: planner.BothFeet, Time: 100},
	}
	g.Update(0, steps)
	first := drain(g)
	require.Len(t, first, 100)
	// the preview starts moving the CoM before the ZMP reference changes
	require.True(t, first[99].Position.X > 0.01)
	require.True(t, first[99].Position.Y < -0.004)

	g.Update(1, steps[1:])
	second := drain(g)
	require.Len(t, second, 300)
	last := second[len(second)-1]
	require.InDelta(t, target.X, last.Position.X, 0.005)
	require.InDelta(t, target.Y, last.Position.Y, 0.005)
	require.InDelta(t, target.X, last.ZMP.X, 0.005)
	require.InDelta(t, 0, last.Velocity.X, 0.01)
}

func TestContinuity(t *testing.T) {
	g := newTestGenerator(t)
	steps := []planner.FootStep{
		{Support: planner.BothFeet, Time: 0},
		{Position: geom.Point2{Y: 0.05}, Support: planner.LeftFoot, Time: 0.6},
		{Position: geom.Point2{X: 0.05, Y: -0.05}, Support: planner.RightFoot, Time: 0.94},
		{Position: geom.Point2{X: 0.05}, Support: planner.BothFeet, Time: 1.28},
		{Position: geom.Point2{X: 0.05}, Support: planner.BothFeet, Time: 100},
	}
	g.Update(0, steps)
	require.Equal(t, 60, g.Len())

	var prev Sample
	for n := 0; n < 30; n++ {
		prev, _ = g.PopFront()
	}
	// regeneration mid-segment resumes from the consumed state
	g.Update(0.3, steps)
	require.Equal(t, 30, g.Len())
	next, ok := g.PopFront()
	require.True(t, ok)
	require.InDelta(t, prev.Position.X, next.Position.X, 0.01*0.5)
	require.InDelta(t, prev.Position.Y, next.Position.Y, 0.01*0.5)
	require.InDelta(t, prev.Velocity.Y, next.Velocity.Y, 0.05)

	// walk the whole plan, the CoM stays bounded by the footprints
	drain(g)
	for n := 1; n+1 < len(steps); n++ {
		g.Update(steps[n].Time, steps[n:])
		for _, s := range drain(g) {
			require.False(t, math.IsNaN(s.Position.X) || math.IsNaN(s.Position.Y))
			require.True(t, s.Position.X > -0.02 && s.Position.X < 0.07, "x=%v", s.Position.X)
			require.True(t, math.Abs(s.Position.Y) < 0.05, "y=%v", s.Position.Y)
		}
	}
}

func TestReset(t *testing.T) {
	g := newTestGenerator(t)
	g.Reset(geom.Point2{X: 0.2, Y: 0.1})
	steps := []planner.FootStep{
		{Position: geom.Point2{X: 0.2, Y: 0.1}, Support: planner.BothFeet, Time: 0},
		{Position: geom.Point2{X: 0.2, Y: 0.1}, Support: planner.BothFeet, Time: 0.2},
	}
	g.Update(0, steps)
	for _, s := range drain(g) {
		require.InDelta(t, 0.2, s.Position.X, 1e-12)
		require.InDelta(t, 0.1, s.Position.Y, 1e-12)
	}
}
