// Package kinematics solves the leg joint angles of the biped from the
// desired foot poses relative to the trunk.
package kinematics

import (
	"github.com/robotalks/biped.go/pkg/geom"
	"github.com/robotalks/biped.go/pkg/walking/joint"
)

// Kinematics keeps the leg geometry and the last solved joint angles.
type Kinematics struct {
	leg    Leg
	angles map[joint.ID]geom.Angle
}

// New creates Kinematics with zero geometry and neutral angles.
func New() *Kinematics {
	k := &Kinematics{}
	k.ResetAngles()
	return k
}

// SetConfig sets the leg geometry.
func (k *Kinematics) SetConfig(leg Leg) {
	k.leg = leg
}

// Config gets the leg geometry.
func (k *Kinematics) Config() Leg {
	return k.leg
}

// ResetAngles puts all joints, head included, at the neutral pose.
func (k *Kinematics) ResetAngles() {
	k.angles = make(map[joint.ID]geom.Angle)
	for _, id := range joint.IDs() {
		k.angles[id] = 0
	}
}

// SolveInverseKinematics solves both legs. The angle table is only updated
// when both legs are solved, otherwise the previous angles are kept and the
// error is returned.
func (k *Kinematics) SolveInverseKinematics(left, right Foot) error {
	l, err := SolveLeg(left, Left, k.leg)
	if err != nil {
		return err
	}
	r, err := SolveLeg(right, Right, k.leg)
	if err != nil {
		return err
	}

	k.angles[joint.LeftHipYaw] = l.HipYaw
	k.angles[joint.LeftHipRoll] = l.HipRoll
	k.angles[joint.LeftHipPitch] = -l.HipPitch
	k.angles[joint.LeftUpperKnee] = l.HipPitch
	k.angles[joint.LeftLowerKnee] = -l.KneePitch
	k.angles[joint.LeftAnklePitch] = l.AnklePitch
	k.angles[joint.LeftAnkleRoll] = l.AnkleRoll

	k.angles[joint.RightHipYaw] = r.HipYaw
	k.angles[joint.RightHipRoll] = r.HipRoll
	k.angles[joint.RightHipPitch] = r.HipPitch
	k.angles[joint.RightUpperKnee] = -r.HipPitch
	k.angles[joint.RightLowerKnee] = -r.KneePitch
	k.angles[joint.RightAnklePitch] = r.AnklePitch
	k.angles[joint.RightAnkleRoll] = r.AnkleRoll
	return nil
}

// Angle gets the angle of a joint.
func (k *Kinematics) Angle(id joint.ID) geom.Angle {
	return k.angles[id]
}

// Angles returns a copy of the angle table.
func (k *Kinematics) Angles() map[joint.ID]geom.Angle {
	angles := make(map[joint.ID]geom.Angle, len(k.angles))
	for id, a := range k.angles {
		angles[id] = a
	}
	return angles
}
