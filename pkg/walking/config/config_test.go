package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/robotalks/biped.go/pkg/geom"
)

func TestLoadDir(t *testing.T) {
	w, k, err := LoadDir("testdata")
	require.NoError(t, err)
	require.Equal(t, Timing{
		DSPDuration: 0.1,
		PlanPeriod:  0.34,
		COMPeriod:   1.0,
		StepFrames:  24,
		TimeStep:    DefaultTimeStep,
	}, w.Timing)
	require.Equal(t, 0.23, w.Posture.COMHeight)
	require.Equal(t, DefaultLeftFoot, w.Posture.LeftFoot)
	require.Equal(t, DefaultRightFoot, w.Posture.RightFoot)
	require.Equal(t, "right", w.Posture.NextSupport)
	require.Equal(t, 0.044, w.Offset.FootYOffset)
	require.Equal(t, 0.044, w.Posture.FeetLateral)
	require.InDelta(t, geom.Deg(10).Radians(), w.Stride.MaxRotation().Radians(), 1e-12)
	require.Equal(t, Leg{AnkleLength: 0.0405, CalfLength: 0.11, KneeLength: 0.04, ThighLength: 0.11}, k.Leg)
	require.Equal(t, KinematicOffset{Y: 0.0495}, k.Offset)
}

func TestLoadDirMissing(t *testing.T) {
	_, _, err := LoadDir(t.TempDir())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
}

func TestParseWalkingOptional(t *testing.T) {
	w, err := ParseWalking("walking.yaml", []byte(`
timing: {dsp_duration: 0, plan_period: 0.25, com_period: 0.5, step_frames: 5.0, time_step: 0.005}
posture:
  com_height: 0.3
  foot_height: 0.05
  feet_lateral: 0
  left_foot: {z: 0.02}
  next_support: left
offset: {foot_y_offset: 0.05}
stride: {max_x: 0.04, max_y: 0.02, max_a: 5}
`))
	require.NoError(t, err)
	require.Equal(t, 5, w.Timing.StepFrames)
	require.Equal(t, 0.005, w.Timing.TimeStep)
	require.Equal(t, geom.Point3{X: DefaultLeftFoot.X, Y: DefaultLeftFoot.Y, Z: 0.02}, w.Posture.LeftFoot)
	require.Equal(t, "left", w.Posture.NextSupport)
}

func fieldErrors(t *testing.T, err error) map[string]*FieldError {
	require.Error(t, err)
	res := make(map[string]*FieldError)
	for _, e := range multierr.Errors(err) {
		var fe *FieldError
		require.True(t, errors.As(e, &fe), "%v", e)
		name := fe.Section
		if fe.Field != "" {
			name += "." + fe.Field
		}
		res[name] = fe
	}
	return res
}

func TestParseWalkingErrors(t *testing.T) {
	_, err := ParseWalking("walking.json", []byte(`{
  "timing": {
    "dsp_duration": -0.1,
    "plan_period": "fast",
    "com_period": 1.0,
    "step_frames": 2.5
  },
  "posture": 3,
  "stride": {
    "max_x": 0.05,
    "max_a": 0
  }
}`))
	errs := fieldErrors(t, err)
	require.Len(t, errs, 7)

	require.True(t, errors.Is(errs["timing.dsp_duration"], ErrNegative))
	require.Equal(t, 3, errs["timing.dsp_duration"].Line)
	require.True(t, errors.Is(errs["timing.plan_period"], ErrType))
	require.Equal(t, 4, errs["timing.plan_period"].Line)
	require.True(t, errors.Is(errs["timing.step_frames"], ErrType))
	require.True(t, errors.Is(errs["posture"], ErrType))
	require.True(t, errors.Is(errs["offset"], ErrMissing))
	require.True(t, errors.Is(errs["stride.max_y"], ErrMissing))
	require.True(t, errors.Is(errs["stride.max_a"], ErrNotPositive))
	require.Equal(t, "walking.json:11: stride.max_a: must be positive", errs["stride.max_a"].Error())
}

func TestParseWalkingInvalidChoice(t *testing.T) {
	_, err := ParseWalking("walking.yaml", []byte(`
timing: {dsp_duration: 0.1, plan_period: 0.34, com_period: 1.0, step_frames: 10}
posture: {com_height: 0.23, foot_height: 0.04, feet_lateral: 0.044, next_support: both}
offset: {foot_y_offset: 0.044}
stride: {max_x: 0.05, max_y: 0.03, max_a: 10}
`))
	errs := fieldErrors(t, err)
	require.Len(t, errs, 1)
	require.True(t, errors.Is(errs["posture.next_support"], ErrInvalid))
}

func TestParseWalkingPreviewShorterThanTick(t *testing.T) {
	_, err := ParseWalking("walking.yaml", []byte(`
timing: {dsp_duration: 0.1, plan_period: 0.34, com_period: 0.005, step_frames: 10}
posture: {com_height: 0.23, foot_height: 0.04, feet_lateral: 0.044}
offset: {foot_y_offset: 0.044}
stride: {max_x: 0.05, max_y: 0.03, max_a: 10}
`))
	errs := fieldErrors(t, err)
	require.True(t, errors.Is(errs["timing.com_period"], ErrInvalid))
}

func TestParseKinematicErrors(t *testing.T) {
	_, err := ParseKinematic("kinematic.json", []byte(`{"leg": {"ankle_length": 0.04, "calf_length": 0, "thigh_length": 0.11}}`))
	errs := fieldErrors(t, err)
	require.Len(t, errs, 3)
	require.True(t, errors.Is(errs["leg.calf_length"], ErrNotPositive))
	require.True(t, errors.Is(errs["leg.knee_length"], ErrMissing))
	require.True(t, errors.Is(errs["offset"], ErrMissing))

	_, err = ParseKinematic("kinematic.json", []byte(`[1, 2]`))
	require.Error(t, err)
	_, err = ParseKinematic("kinematic.json", []byte(`{"leg": `))
	require.Error(t, err)
}

func TestIsDocument(t *testing.T) {
	require.True(t, IsDocument("/etc/walking/walking.json"))
	require.True(t, IsDocument("kinematic.yaml"))
	require.False(t, IsDocument("walking.json~"))
	require.False(t, IsDocument("other.json"))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	fn := filepath.Join(dir, "walking.json")
	for n := 0; n < 3; n++ {
		require.NoError(t, os.WriteFile(fn, []byte("{}"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	select {
	case name := <-w.Events:
		require.Equal(t, fn, name)
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
	}
	select {
	case name := <-w.Events:
		t.Fatalf("unexpected event %s", name)
	case <-time.After(300 * time.Millisecond):
	}
}
