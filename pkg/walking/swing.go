package walking

import (
	"math"

	"github.com/robotalks/biped.go/pkg/geom"
	"github.com/robotalks/biped.go/pkg/walking/kinematics"
)

// residual lift below this is treated as touched down.
const liftEpsilon = 1e-9

// swing tracks the planar offset and lift of one foot.
type swing struct {
	offset geom.Offset
	delta  geom.Offset
	target geom.Offset
	up     float64
}

// aim sets a new target reached by linear interpolation over frames ticks.
func (s *swing) aim(target geom.Offset, frames int) {
	s.target = target
	if frames < 1 {
		frames = 1
	}
	s.delta = target.Sub(s.offset).Div(float64(frames))
}

// advance moves the foot one tick, diff is the number of ticks elapsed in
// the current step.
func (s *swing) advance(diff, sspStart, sspEnd, height float64) {
	sspDuration := sspEnd - sspStart
	switch {
	case sspDuration <= 0:
		s.up = 0
	case sspStart < diff && diff <= sspEnd:
		s.up += height / sspDuration
	case s.up > 0:
		s.up = math.Max(s.up-height/sspDuration, 0)
		if s.up < liftEpsilon {
			s.up = 0
		}
	}

	if diff > sspStart {
		s.offset = s.offset.Add(s.delta)
		if diff > sspStart+2*sspDuration {
			s.offset = s.target
		}
	}
}

// foot is the pose of the foot relative to the trunk.
func (s *swing) foot(com geom.Point2, nominal geom.Point3, walkRotation geom.Angle) kinematics.Foot {
	return kinematics.Foot{
		Position: geom.Point3{
			X: s.offset.X - com.X + nominal.X,
			Y: s.offset.Y - com.Y + nominal.Y,
			Z: s.up + nominal.Z,
		},
		Yaw: walkRotation.Sub(s.offset.Yaw),
	}
}
