// Package lipm generates the center-of-mass trajectory of a linear inverted
// pendulum whose ZMP follows the footstep plan, using preview control.
package lipm

import (
	"fmt"
	"math"

	"github.com/robotalks/biped.go/pkg/geom"
	"github.com/robotalks/biped.go/pkg/walking/planner"
)

// Sample is one CoM trajectory sample, one control tick apart from the next.
type Sample struct {
	Position geom.Point2
	Velocity geom.Point2
	ZMP      geom.Point2

	x, y axis
}

// axis is the controller state of a single horizontal axis.
type axis struct {
	x  [3]float64
	xp [3]float64
	u  float64
}

// Generator produces CoM samples.
type Generator struct {
	comHeight     float64
	dt            float64
	previewPeriod float64

	model   model
	gains   gains
	samples []Sample
	// state at the last consumed sample
	x, y axis
}

// New creates a Generator. SetParameters must be called before Update.
func New() *Generator {
	return &Generator{}
}

// SetParameters configures the pendulum and precomputes the controller gains.
func (g *Generator) SetParameters(comHeight, controlTick, previewPeriod float64) error {
	if !(comHeight > 0) || !(controlTick > 0) || !(previewPeriod >= controlTick) {
		return fmt.Errorf("invalid lipm parameters: com height %v, tick %v, preview %v",
			comHeight, controlTick, previewPeriod)
	}
	m := newModel(comHeight, controlTick)
	gs, err := previewGains(m, int(math.Round(previewPeriod/controlTick)))
	if err != nil {
		return fmt.Errorf("preview gains: %w", err)
	}
	g.comHeight, g.dt, g.previewPeriod = comHeight, controlTick, previewPeriod
	g.model, g.gains = m, gs
	return nil
}

// NaturalPeriod is sqrt(com_height / g).
func (g *Generator) NaturalPeriod() float64 {
	return math.Sqrt(g.comHeight / Gravity)
}

// Update drops unconsumed samples and generates the samples from t up to
// the time of steps[1], holding the ZMP on steps[0] and previewing the
// following footsteps. Generation resumes from the last consumed sample.
func (g *Generator) Update(t float64, steps []planner.FootStep) {
	g.samples = g.samples[:0]
	if len(steps) == 0 || g.dt <= 0 {
		return
	}
	count := len(g.gains.preview)
	if len(steps) > 1 {
		count = int(math.Round((steps[1].Time - t) / g.dt))
	}
	offset := math.Round(t / g.dt)
	ticks := make([]float64, len(steps))
	for n, s := range steps {
		ticks[n] = math.Round(s.Time / g.dt)
	}

	ref := steps[0].Position
	sx, sy := g.x, g.y
	for i := 0; i < count; i++ {
		var px, py float64
		index := 1
		for j := 1; j < len(g.gains.preview)-1 && index < len(steps); j++ {
			if float64(i+j)+offset >= ticks[index] {
				d := steps[index].Position.Sub(steps[index-1].Position)
				px += g.gains.preview[j] * d.X
				py += g.gains.preview[j] * d.Y
				index++
			}
		}
		zx := g.advance(&sx, ref.X, px)
		zy := g.advance(&sy, ref.Y, py)
		g.samples = append(g.samples, Sample{
			Position: geom.Point2{X: sx.x[0], Y: sy.x[0]},
			Velocity: geom.Point2{X: sx.x[1], Y: sy.x[1]},
			ZMP:      geom.Point2{X: zx, Y: zy},
			x:        sx,
			y:        sy,
		})
	}
}

// advance runs one tick of the preview servo on one axis and returns the
// ZMP before the tick.
func (g *Generator) advance(s *axis, ref, preview float64) float64 {
	m, k := &g.model, &g.gains
	var zmp float64
	for n := 0; n < 3; n++ {
		zmp += m.c[n] * s.x[n]
	}
	du := k.ke*(ref-zmp) + preview
	for n := 0; n < 3; n++ {
		du += k.kx[n] * (s.x[n] - s.xp[n])
	}
	s.xp = s.x
	s.u += du
	var x [3]float64
	for r := 0; r < 3; r++ {
		for n := 0; n < 3; n++ {
			x[r] += m.a[r][n] * s.xp[n]
		}
		x[r] += m.b[r] * s.u
	}
	s.x = x
	return zmp
}

// PopFront consumes the oldest sample.
func (g *Generator) PopFront() (Sample, bool) {
	if len(g.samples) == 0 {
		return Sample{}, false
	}
	s := g.samples[0]
	g.samples = g.samples[1:]
	g.x, g.y = s.x, s.y
	return s, true
}

// Len gets the number of pending samples.
func (g *Generator) Len() int {
	return len(g.samples)
}

// Empty tells whether all samples are consumed.
func (g *Generator) Empty() bool {
	return len(g.samples) == 0
}

// Reset clears pending samples and puts the pendulum at rest at pos.
func (g *Generator) Reset(pos geom.Point2) {
	g.samples = nil
	g.x = axis{x: [3]float64{pos.X, 0, 0}, xp: [3]float64{pos.X, 0, 0}}
	g.y = axis{x: [3]float64{pos.Y, 0, 0}, xp: [3]float64{pos.Y, 0, 0}}
}
