// Package planner plans the footsteps which take the robot from its current
// pose to a goal pose under stride and rotation limits.
package planner

import (
	"math"

	"github.com/robotalks/biped.go/pkg/geom"
)

// Intervals of the closing double-support steps, in seconds. They are
// rounded up to whole plan periods.
const (
	SettleDuration = 2.0
	HoldDuration   = 100.0
)

// MaxStrides caps the number of intermediate steps of a single plan.
const MaxStrides = 1000

// Planner keeps the queue of planned footsteps.
type Planner struct {
	MaxStride   geom.Point2
	MaxRotation geom.Angle
	// Period is the duration of one step in seconds.
	Period float64
	// FootYOffset is the lateral distance of a foot from the center line.
	FootYOffset float64

	steps []FootStep
}

// New creates an empty Planner.
func New() *Planner {
	return &Planner{}
}

// SetParameters configures the planner. The queue is untouched.
func (p *Planner) SetParameters(maxStride geom.Point2, maxRotation geom.Angle, period, footYOffset float64) {
	p.MaxStride = maxStride
	p.MaxRotation = maxRotation.Abs()
	p.Period = period
	p.FootYOffset = footYOffset
}

// Plan replaces the queue with the footsteps from the current pose to the
// goal. The first single-support step is taken by nextSupport. When status
// is Start, the plan begins with a double-support step. A goal farther than
// MaxStrides strides ends the plan short of it.
func (p *Planner) Plan(goalPos geom.Point2, goalRot geom.Angle, curPos geom.Point2, curRot geom.Angle, nextSupport Support, status Status) {
	if nextSupport == BothFeet {
		nextSupport = RightFoot
	}

	dist := goalPos.Sub(curPos)
	turn := goalRot.Sub(curRot)
	strides := math.Max(1, math.Max(
		math.Max(ratio(dist.X, p.MaxStride.X), ratio(dist.Y, p.MaxStride.Y)),
		ratio(turn.Radians(), p.MaxRotation.Radians())))
	stride := geom.Point2{X: dist.X / strides, Y: dist.Y / strides}
	strideRot := turn.Div(strides)

	var t float64
	steps := make([]FootStep, 0, int(math.Min(strides, MaxStrides))+6)
	if status == Start {
		steps = append(steps, FootStep{Position: curPos, Rotation: curRot, Support: BothFeet})
		t += p.Period * 2
	}

	support := nextSupport
	steps = append(steps, p.step(t, curPos, curRot, support))
	center, rot := curPos, curRot
	for n := 1; n <= MaxStrides && !p.within(goalPos, goalRot, center, rot); n++ {
		support = support.Opposite()
		t += p.Period
		center = geom.Point2{X: curPos.X + stride.X*float64(n), Y: curPos.Y + stride.Y*float64(n)}
		rot = curRot.Add(strideRot * geom.Angle(n))
		steps = append(steps, p.step(t, center, rot, support))
	}

	endPos, endRot := goalPos, goalRot
	if !p.within(goalPos, goalRot, center, rot) {
		// out of MaxStrides, stop one stride further instead of jumping to
		// the goal.
		endPos = geom.Point2{X: center.X + stride.X, Y: center.Y + stride.Y}
		endRot = rot.Add(strideRot)
	}

	support = support.Opposite()
	t += p.Period
	steps = append(steps, p.step(t, endPos, endRot, support))
	t += p.Period
	steps = append(steps, FootStep{Position: endPos, Rotation: endRot, Support: BothFeet, Time: t})
	t += p.roundUp(SettleDuration)
	steps = append(steps, FootStep{Position: endPos, Rotation: endRot, Support: BothFeet, Time: t})
	t += p.roundUp(HoldDuration)
	steps = append(steps, FootStep{Position: endPos, Rotation: endRot, Support: BothFeet, Time: t})

	p.steps = steps
}

// Len gets the number of queued footsteps.
func (p *Planner) Len() int {
	return len(p.steps)
}

// At gets the footstep at index n.
func (p *Planner) At(n int) FootStep {
	return p.steps[n]
}

// Steps returns a copy of the queue.
func (p *Planner) Steps() []FootStep {
	steps := make([]FootStep, len(p.steps))
	copy(steps, p.steps)
	return steps
}

// Front gets the oldest footstep without removing it.
func (p *Planner) Front() (FootStep, bool) {
	if len(p.steps) == 0 {
		return FootStep{}, false
	}
	return p.steps[0], true
}

// PopFront removes the oldest footstep.
func (p *Planner) PopFront() (FootStep, bool) {
	if len(p.steps) == 0 {
		return FootStep{}, false
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	return step, true
}

func (p *Planner) step(t float64, center geom.Point2, rot geom.Angle, support Support) FootStep {
	pos := center
	pos.Y += support.lateralSign() * p.FootYOffset
	return FootStep{Position: pos, Rotation: rot, Support: support, Time: t}
}

// within checks the remaining distance of the center line can be covered by
// one stride.
func (p *Planner) within(goalPos geom.Point2, goalRot geom.Angle, center geom.Point2, rot geom.Angle) bool {
	const tolerance = 1e-9
	return math.Abs(goalPos.X-center.X) <= p.MaxStride.X+tolerance &&
		math.Abs(goalPos.Y-center.Y) <= p.MaxStride.Y+tolerance &&
		goalRot.Sub(rot).Abs() <= p.MaxRotation+tolerance
}

func (p *Planner) roundUp(d float64) float64 {
	if p.Period <= 0 {
		return d
	}
	return math.Ceil(d/p.Period-1e-9) * p.Period
}

func ratio(d, max float64) float64 {
	if d == 0 {
		return 0
	}
	if max <= 0 {
		return math.Inf(1)
	}
	return math.Abs(d) / max
}
