package joint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoints(t *testing.T) {
	j := NewJoints()
	require.Equal(t, len(IDs()), j.Len())
	require.Equal(t, NeckYaw, j.Snapshot()[0].ID)

	j.SetPosition(LeftHipPitch, 12.5)
	pos, ok := j.Position(LeftHipPitch)
	require.True(t, ok)
	require.Equal(t, 12.5, pos)

	snapshot := j.Snapshot()
	j.SetPosition(LeftHipPitch, 0)
	for _, joint := range snapshot {
		if joint.ID == LeftHipPitch {
			require.Equal(t, 12.5, joint.Position)
		}
	}

	j.SetPosition(ID(200), 1)
	_, ok = j.Position(ID(200))
	require.False(t, ok)
}

func TestIDString(t *testing.T) {
	require.Equal(t, "right_ankle_roll", RightAnkleRoll.String())
	require.Equal(t, "joint(0)", ID(0).String())
	for _, id := range IDs() {
		require.True(t, id.IsValid())
		require.NotEmpty(t, id.String())
	}
}
