// Package joint defines the joints driven by the walking controller and the
// collection handed to the actuator layer.
package joint

import "fmt"

// ID identifies a joint.
type ID uint8

// Joint IDs, head joints first, then the legs.
const (
	NeckYaw ID = iota + 1
	NeckPitch
	LeftHipYaw
	LeftHipRoll
	LeftHipPitch
	LeftUpperKnee
	LeftLowerKnee
	LeftAnklePitch
	LeftAnkleRoll
	RightHipYaw
	RightHipRoll
	RightHipPitch
	RightUpperKnee
	RightLowerKnee
	RightAnklePitch
	RightAnkleRoll

	numIDs = iota
)

var names = [...]string{
	NeckYaw:         "neck_yaw",
	NeckPitch:       "neck_pitch",
	LeftHipYaw:      "left_hip_yaw",
	LeftHipRoll:     "left_hip_roll",
	LeftHipPitch:    "left_hip_pitch",
	LeftUpperKnee:   "left_upper_knee",
	LeftLowerKnee:   "left_lower_knee",
	LeftAnklePitch:  "left_ankle_pitch",
	LeftAnkleRoll:   "left_ankle_roll",
	RightHipYaw:     "right_hip_yaw",
	RightHipRoll:    "right_hip_roll",
	RightHipPitch:   "right_hip_pitch",
	RightUpperKnee:  "right_upper_knee",
	RightLowerKnee:  "right_lower_knee",
	RightAnklePitch: "right_ankle_pitch",
	RightAnkleRoll:  "right_ankle_roll",
}

// IDs lists all joint IDs in order.
func IDs() []ID {
	ids := make([]ID, 0, numIDs)
	for id := NeckYaw; id <= RightAnkleRoll; id++ {
		ids = append(ids, id)
	}
	return ids
}

// IsValid indicates the ID is a known joint.
func (id ID) IsValid() bool {
	return id >= NeckYaw && id <= RightAnkleRoll
}

// String implements fmt.Stringer.
func (id ID) String() string {
	if id.IsValid() {
		return names[id]
	}
	return fmt.Sprintf("joint(%d)", uint8(id))
}

// Joint is a joint with its commanded position in degrees.
type Joint struct {
	ID       ID
	Position float64
}

// Joints is an ordered collection of joints.
type Joints struct {
	joints []Joint
	index  map[ID]int
}

// NewJoints creates the collection with all known joints at 0.
func NewJoints() *Joints {
	j := &Joints{index: make(map[ID]int)}
	for _, id := range IDs() {
		j.index[id] = len(j.joints)
		j.joints = append(j.joints, Joint{ID: id})
	}
	return j
}

// Position gets the position of a joint.
func (j *Joints) Position(id ID) (float64, bool) {
	if n, ok := j.index[id]; ok {
		return j.joints[n].Position, true
	}
	return 0, false
}

// SetPosition sets the position of a joint, unknown IDs are ignored.
func (j *Joints) SetPosition(id ID, pos float64) {
	if n, ok := j.index[id]; ok {
		j.joints[n].Position = pos
	}
}

// Snapshot returns a copy of the joints in order.
func (j *Joints) Snapshot() []Joint {
	joints := make([]Joint, len(j.joints))
	copy(joints, j.joints)
	return joints
}

// Len gets the number of joints.
func (j *Joints) Len() int {
	return len(j.joints)
}
