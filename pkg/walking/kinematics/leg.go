package kinematics

import (
	"fmt"
	"math"

	"github.com/robotalks/biped.go/pkg/geom"
)

// Side selects a leg.
type Side int

// Sides
const (
	Left Side = iota
	Right
)

// String implements fmt.Stringer.
func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// lateralSign is the sign of the hip offset along the y axis.
func (s Side) lateralSign() float64 {
	if s == Left {
		return 1
	}
	return -1
}

// Foot is the target pose of a foot relative to the trunk.
type Foot struct {
	Position geom.Point3
	Yaw      geom.Angle
}

// Leg is the geometry of one leg. Thigh and calf are the two equal
// segments of the parallel linkage, the knee link stays vertical between
// them.
type Leg struct {
	AnkleLength float64
	CalfLength  float64
	KneeLength  float64
	ThighLength float64
	// Offset of the hip joint from the trunk origin, Y is the magnitude for
	// the left leg and mirrored for the right one.
	XOffset float64
	YOffset float64
}

// Length is the total length from hip to sole at full extension.
func (l Leg) Length() float64 {
	return l.AnkleLength + l.CalfLength + l.KneeLength + l.ThighLength
}

// LegAngles are the angles solved for one leg.
type LegAngles struct {
	HipYaw     geom.Angle
	HipRoll    geom.Angle
	HipPitch   geom.Angle
	KneePitch  geom.Angle
	AnklePitch geom.Angle
	AnkleRoll  geom.Angle
}

// SolveLeg solves the leg chain for a foot target. Targets beyond reach are
// clamped to full extension and still produce angles; an error is only
// returned when the solution is not finite.
func SolveLeg(target Foot, side Side, leg Leg) (LegAngles, error) {
	x := target.Position.X - leg.XOffset
	y := target.Position.Y - side.lateralSign()*leg.YOffset
	z := leg.Length() - target.Position.Z

	// into the foot's own heading.
	cos, sin := target.Yaw.Cos(), target.Yaw.Sin()
	x2 := x*cos + y*sin
	y2 := -x*sin + y*cos
	z2 := z - leg.AnkleLength

	roll := geom.Atan2(y2, z2)

	// the forward reach is taken out of the roll plane before the knee
	// link is removed.
	z3 := math.Sqrt(math.Max(0, y2*y2+z2*z2-x2*x2)) - leg.KneeLength
	pitch := geom.Atan2(x2, z3)
	kneeDisp := geom.Acos(math.Hypot(x2, z3) / (2.0 * leg.ThighLength))

	angles := LegAngles{
		HipYaw:    target.Yaw,
		HipRoll:   roll,
		HipPitch:  -pitch - kneeDisp,
		KneePitch: -pitch + kneeDisp,
		// no foot-plane compensation: the sole is kept parallel to the
		// trunk, which only holds on flat ground.
		AnklePitch: 0,
		AnkleRoll:  -roll,
	}
	if !angles.finite() {
		return angles, fmt.Errorf("%s leg: no finite solution for target %v yaw %.4f",
			side, target.Position, target.Yaw.Radians())
	}
	return angles, nil
}

// Forward computes the foot pose reached by the angles, using the same
// geometry as SolveLeg.
func Forward(angles LegAngles, side Side, leg Leg) Foot {
	pitch := -(angles.HipPitch + angles.KneePitch) / 2
	kneeDisp := (angles.KneePitch - angles.HipPitch) / 2

	l := 2 * leg.ThighLength * kneeDisp.Cos()
	x2 := l * pitch.Sin()
	z3 := l * pitch.Cos()
	r := math.Hypot(z3+leg.KneeLength, x2)
	y2 := r * angles.HipRoll.Sin()
	z2 := r * angles.HipRoll.Cos()

	cos, sin := angles.HipYaw.Cos(), angles.HipYaw.Sin()
	x := x2*cos - y2*sin
	y := x2*sin + y2*cos

	return Foot{
		Position: geom.Point3{
			X: x + leg.XOffset,
			Y: y + side.lateralSign()*leg.YOffset,
			Z: leg.Length() - (z2 + leg.AnkleLength),
		},
		Yaw: angles.HipYaw,
	}
}

func (a LegAngles) finite() bool {
	for _, v := range []geom.Angle{a.HipYaw, a.HipRoll, a.HipPitch, a.KneePitch, a.AnklePitch, a.AnkleRoll} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}
