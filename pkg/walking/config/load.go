package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// Extensions accepted for config documents, in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// LoadWalking loads a walking document.
func LoadWalking(filename string) (*Walking, error) {
	doc, err := readDocument(filename)
	if err != nil {
		return nil, err
	}
	return doc.walking()
}

// ParseWalking parses a walking document, name is used in errors.
func ParseWalking(name string, data []byte) (*Walking, error) {
	doc, err := parseDocument(name, data)
	if err != nil {
		return nil, err
	}
	return doc.walking()
}

// LoadKinematic loads a kinematic document.
func LoadKinematic(filename string) (*Kinematic, error) {
	doc, err := readDocument(filename)
	if err != nil {
		return nil, err
	}
	return doc.kinematic()
}

// ParseKinematic parses a kinematic document, name is used in errors.
func ParseKinematic(name string, data []byte) (*Kinematic, error) {
	doc, err := parseDocument(name, data)
	if err != nil {
		return nil, err
	}
	return doc.kinematic()
}

// LoadDir loads both documents from dir, errors of both are combined.
func LoadDir(dir string) (*Walking, *Kinematic, error) {
	var errs error
	walkingFile, err := Find(dir, WalkingDocument)
	errs = multierr.Append(errs, err)
	kinematicFile, err := Find(dir, KinematicDocument)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return nil, nil, errs
	}
	w, err := LoadWalking(walkingFile)
	errs = multierr.Append(errs, err)
	k, err := LoadKinematic(kinematicFile)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return nil, nil, errs
	}
	return w, k, nil
}

// Find locates the file of document name in dir.
func Find(dir, name string) (string, error) {
	for _, ext := range Extensions {
		fn := filepath.Join(dir, name+ext)
		if _, err := os.Stat(fn); err == nil {
			return fn, nil
		}
	}
	return "", fmt.Errorf("%s%s not found in %s", name, Extensions[0], dir)
}

// IsDocument tells whether filename is one of the config documents.
func IsDocument(filename string) bool {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	if name != WalkingDocument && name != KinematicDocument {
		return false
	}
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (d *document) walking() (*Walking, error) {
	w := &Walking{
		Timing: Timing{TimeStep: DefaultTimeStep},
		Posture: Posture{
			LeftFoot:    DefaultLeftFoot,
			RightFoot:   DefaultRightFoot,
			NextSupport: DefaultNextSupport,
		},
	}

	timing := d.section("timing")
	timing.float("dsp_duration", &w.Timing.DSPDuration, nonNegative)
	timing.float("plan_period", &w.Timing.PlanPeriod, positive)
	timing.float("com_period", &w.Timing.COMPeriod, positive)
	timing.integer("step_frames", &w.Timing.StepFrames, positive)
	timing.optionalFloat("time_step", &w.Timing.TimeStep, positive)

	posture := d.section("posture")
	posture.float("com_height", &w.Posture.COMHeight, positive)
	posture.float("foot_height", &w.Posture.FootHeight, nonNegative)
	posture.float("feet_lateral", &w.Posture.FeetLateral)
	posture.point("left_foot", &w.Posture.LeftFoot)
	posture.point("right_foot", &w.Posture.RightFoot)
	posture.oneOf("next_support", &w.Posture.NextSupport, "left", "right")

	offset := d.section("offset")
	offset.float("foot_y_offset", &w.Offset.FootYOffset)

	stride := d.section("stride")
	stride.float("max_x", &w.Stride.MaxX, positive)
	stride.float("max_y", &w.Stride.MaxY, positive)
	stride.float("max_a", &w.Stride.MaxA, positive)

	if d.err == nil && w.Timing.COMPeriod < w.Timing.TimeStep {
		d.fail("timing", "com_period", timing.node.Line,
			fmt.Errorf("%w: shorter than time_step %v", ErrInvalid, w.Timing.TimeStep))
	}
	if d.err != nil {
		return nil, d.err
	}
	return w, nil
}

func (d *document) kinematic() (*Kinematic, error) {
	k := &Kinematic{}

	leg := d.section("leg")
	leg.float("ankle_length", &k.Leg.AnkleLength, nonNegative)
	leg.float("calf_length", &k.Leg.CalfLength, positive)
	leg.float("knee_length", &k.Leg.KneeLength, nonNegative)
	leg.float("thigh_length", &k.Leg.ThighLength, positive)

	offset := d.section("offset")
	offset.float("x", &k.Offset.X)
	offset.float("y", &k.Offset.Y)

	if d.err != nil {
		return nil, d.err
	}
	return k, nil
}
