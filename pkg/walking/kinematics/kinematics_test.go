package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/biped.go/pkg/geom"
	"github.com/robotalks/biped.go/pkg/walking/joint"
)

var testLeg = Leg{
	AnkleLength: 0.0405,
	CalfLength:  0.11,
	KneeLength:  0.04,
	ThighLength: 0.11,
	XOffset:     0,
	YOffset:     0.0495,
}

func requireFinite(t *testing.T, a LegAngles) {
	for _, v := range []geom.Angle{a.HipYaw, a.HipRoll, a.HipPitch, a.KneePitch, a.AnklePitch, a.AnkleRoll} {
		require.False(t, math.IsNaN(float64(v)))
		require.False(t, math.IsInf(float64(v), 0))
	}
}

func TestSolveLegRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		side Side
		foot Foot
	}{
		{"left nominal", Left, Foot{Position: geom.Point3{X: -0.0436, Y: 0.0495, Z: 0.0115}}},
		{"right nominal", Right, Foot{Position: geom.Point3{X: -0.0436, Y: -0.0495, Z: 0.0115}}},
		{"left forward lifted", Left, Foot{Position: geom.Point3{X: 0.03, Y: 0.06, Z: 0.05}}},
		{"right sideways", Right, Foot{Position: geom.Point3{X: 0.01, Y: -0.08, Z: 0.02}}},
		{"left turned", Left, Foot{Position: geom.Point3{X: 0.02, Y: 0.05, Z: 0.03}, Yaw: geom.Deg(15)}},
		{"right turned", Right, Foot{Position: geom.Point3{X: -0.02, Y: -0.04, Z: 0.04}, Yaw: geom.Deg(-20)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			angles, err := SolveLeg(tc.foot, tc.side, testLeg)
			require.NoError(t, err)
			requireFinite(t, angles)
			reached := Forward(angles, tc.side, testLeg)
			require.InDelta(t, tc.foot.Position.X, reached.Position.X, 1e-9)
			require.InDelta(t, tc.foot.Position.Y, reached.Position.Y, 1e-9)
			require.InDelta(t, tc.foot.Position.Z, reached.Position.Z, 1e-9)
			require.InDelta(t, tc.foot.Yaw.Radians(), reached.Yaw.Radians(), 1e-12)
		})
	}
}

func TestSolveLegOutOfReach(t *testing.T) {
	// far below the sole at full extension.
	for _, foot := range []Foot{
		{Position: geom.Point3{Z: -0.5}},
		{Position: geom.Point3{X: 1, Y: 0.0495, Z: 0}},
		{Position: geom.Point3{Y: 0.0495, Z: 0}},
	} {
		angles, err := SolveLeg(foot, Left, testLeg)
		require.NoError(t, err)
		requireFinite(t, angles)
	}
}

func TestSolveLegStraight(t *testing.T) {
	// directly below the hip at full extension: the leg is straight.
	angles, err := SolveLeg(Foot{Position: geom.Point3{Y: testLeg.YOffset}}, Left, testLeg)
	require.NoError(t, err)
	require.InDelta(t, 0, angles.HipRoll.Radians(), 1e-12)
	require.InDelta(t, 0, angles.HipPitch.Radians(), 1e-6)
	require.InDelta(t, 0, angles.KneePitch.Radians(), 1e-6)
	require.Equal(t, geom.Angle(0), angles.AnklePitch)
}

func TestSolveLegForwardReach(t *testing.T) {
	// the forward offset shortens the sagittal leg length.
	angles, err := SolveLeg(Foot{Position: geom.Point3{X: 0.05, Y: testLeg.YOffset, Z: 0.03}}, Left, testLeg)
	require.NoError(t, err)
	require.InDelta(t, 0, angles.HipRoll.Radians(), 1e-12)
	require.InDelta(t, -44.834, angles.HipPitch.Degrees(), 1e-3)
	require.InDelta(t, 14.508, angles.KneePitch.Degrees(), 1e-3)
}

func TestSolveLegNaN(t *testing.T) {
	_, err := SolveLeg(Foot{Position: geom.Point3{X: math.NaN()}}, Right, testLeg)
	require.Error(t, err)
}

func TestSolveInverseKinematics(t *testing.T) {
	k := New()
	k.SetConfig(testLeg)
	left := Foot{Position: geom.Point3{X: 0.02, Y: 0.05, Z: 0.03}}
	right := Foot{Position: geom.Point3{X: -0.02, Y: -0.05, Z: 0.01}}
	require.NoError(t, k.SolveInverseKinematics(left, right))

	l, err := SolveLeg(left, Left, testLeg)
	require.NoError(t, err)
	r, err := SolveLeg(right, Right, testLeg)
	require.NoError(t, err)

	require.Equal(t, -l.HipPitch, k.Angle(joint.LeftHipPitch))
	require.Equal(t, l.HipPitch, k.Angle(joint.LeftUpperKnee))
	require.Equal(t, -l.KneePitch, k.Angle(joint.LeftLowerKnee))
	require.Equal(t, -l.HipRoll, k.Angle(joint.LeftAnkleRoll))
	require.Equal(t, r.HipPitch, k.Angle(joint.RightHipPitch))
	require.Equal(t, -r.HipPitch, k.Angle(joint.RightUpperKnee))
	require.Equal(t, -r.KneePitch, k.Angle(joint.RightLowerKnee))
	require.Equal(t, geom.Angle(0), k.Angle(joint.RightAnklePitch))
	require.Equal(t, geom.Angle(0), k.Angle(joint.NeckYaw))
	require.Equal(t, geom.Angle(0), k.Angle(joint.NeckPitch))
}

func TestSolveInverseKinematicsKeepsAnglesOnError(t *testing.T) {
	k := New()
	k.SetConfig(testLeg)
	left := Foot{Position: geom.Point3{X: 0.02, Y: 0.05, Z: 0.03}}
	right := Foot{Position: geom.Point3{X: -0.02, Y: -0.05, Z: 0.01}}
	require.NoError(t, k.SolveInverseKinematics(left, right))
	before := k.Angles()

	require.Error(t, k.SolveInverseKinematics(left, Foot{Position: geom.Point3{Y: math.NaN()}}))
	require.Equal(t, before, k.Angles())
}
