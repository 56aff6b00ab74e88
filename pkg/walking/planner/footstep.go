package planner

import (
	"fmt"

	"github.com/robotalks/biped.go/pkg/geom"
)

// Support is the foot bearing the weight during a footstep.
type Support int

// Supports
const (
	LeftFoot Support = iota
	RightFoot
	BothFeet
)

// String implements fmt.Stringer.
func (s Support) String() string {
	switch s {
	case LeftFoot:
		return "left"
	case RightFoot:
		return "right"
	case BothFeet:
		return "both"
	}
	return fmt.Sprintf("support(%d)", int(s))
}

// Opposite gets the other foot. BothFeet has no opposite and is returned
// as is.
func (s Support) Opposite() Support {
	switch s {
	case LeftFoot:
		return RightFoot
	case RightFoot:
		return LeftFoot
	}
	return s
}

// lateralSign is the side of the center line the support foot is on.
func (s Support) lateralSign() float64 {
	switch s {
	case LeftFoot:
		return 1
	case RightFoot:
		return -1
	}
	return 0
}

// Status is the gait status.
type Status int

// Status values
const (
	// Start means the robot is standing and the next plan begins with a
	// double-support step.
	Start Status = iota
	// Walking means the robot is in the middle of a gait.
	Walking
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Start:
		return "start"
	case Walking:
		return "walking"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// FootStep is a planned footstep.
type FootStep struct {
	Position geom.Point2
	Rotation geom.Angle
	Support  Support
	// Time is the scheduled time in seconds.
	Time float64
}

// String implements fmt.Stringer.
func (s FootStep) String() string {
	return fmt.Sprintf("%.3fs %s %v %.1f°", s.Time, s.Support, s.Position, s.Rotation.Degrees())
}
