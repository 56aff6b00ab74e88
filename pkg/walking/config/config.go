// Package config loads the walking and kinematic configuration documents.
package config

import "github.com/robotalks/biped.go/pkg/geom"

// Document file names, looked up without extension in a config directory.
const (
	WalkingDocument   = "walking"
	KinematicDocument = "kinematic"
)

// Defaults of the optional fields.
const (
	DefaultTimeStep    = 0.01
	DefaultNextSupport = "right"
)

var (
	// DefaultLeftFoot is the nominal left foot position under the hip.
	DefaultLeftFoot = geom.Point3{X: -0.0436, Y: 0.0495, Z: 0.0115}
	// DefaultRightFoot is the nominal right foot position under the hip.
	DefaultRightFoot = geom.Point3{X: -0.0436, Y: -0.0495, Z: 0.0115}
)

// Walking is the walking document.
type Walking struct {
	Timing  Timing
	Posture Posture
	Offset  WalkingOffset
	Stride  Stride
}

// Timing is the timing section, durations are in seconds.
type Timing struct {
	DSPDuration float64
	PlanPeriod  float64
	COMPeriod   float64
	StepFrames  int
	TimeStep    float64
}

// Posture is the posture section, lengths are in meters.
type Posture struct {
	COMHeight   float64
	FootHeight  float64
	// FeetLateral is validated but not used, the lateral foot spacing
	// comes from Offset.FootYOffset.
	FeetLateral float64
	LeftFoot    geom.Point3
	RightFoot   geom.Point3
	// NextSupport is the foot supporting the first step, "left" or "right".
	NextSupport string
}

// WalkingOffset is the offset section of the walking document.
type WalkingOffset struct {
	FootYOffset float64
}

// Stride is the stride section, MaxA is in degrees.
type Stride struct {
	MaxX float64
	MaxY float64
	MaxA float64
}

// MaxRotation converts MaxA.
func (s Stride) MaxRotation() geom.Angle {
	return geom.Deg(s.MaxA)
}

// Kinematic is the kinematic document.
type Kinematic struct {
	Leg    Leg
	Offset KinematicOffset
}

// Leg is the leg section.
type Leg struct {
	AnkleLength float64
	CalfLength  float64
	KneeLength  float64
	ThighLength float64
}

// KinematicOffset is the hip offset from the trunk origin.
type KinematicOffset struct {
	X float64
	Y float64
}
