// Package walking drives the biped gait: it keeps the footstep plan, the
// CoM trajectory and the swing feet in step and turns them into joint
// angles once per control tick.
package walking

import (
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/robotalks/biped.go/pkg/geom"
	"github.com/robotalks/biped.go/pkg/walking/config"
	"github.com/robotalks/biped.go/pkg/walking/joint"
	"github.com/robotalks/biped.go/pkg/walking/kinematics"
	"github.com/robotalks/biped.go/pkg/walking/lipm"
	"github.com/robotalks/biped.go/pkg/walking/planner"
)

// StopGoal is the goal position requesting the robot to stop.
var StopGoal = geom.Point2{X: -1, Y: -1}

// IsStop tells whether pos is the stop request.
func IsStop(pos geom.Point2) bool {
	return pos == StopGoal
}

// Manager is the walking controller. It is not safe for concurrent use.
type Manager struct {
	planner    *planner.Planner
	lipm       *lipm.Generator
	kinematics *kinematics.Kinematics
	joints     *joint.Joints

	initialized  bool
	status       planner.Status
	nextSupport  planner.Support
	walkRotation geom.Angle
	com          lipm.Sample

	timeStep    float64
	dspDuration float64
	stepFrames  int
	footHeight  float64
	footYOffset float64

	nominalLeft  geom.Point3
	nominalRight geom.Point3
	left, right  swing
}

// New creates a Manager, it must be configured before the first goal.
func New() *Manager {
	return &Manager{
		planner:      planner.New(),
		lipm:         lipm.New(),
		kinematics:   kinematics.New(),
		joints:       joint.NewJoints(),
		status:       planner.Start,
		nextSupport:  planner.RightFoot,
		timeStep:     config.DefaultTimeStep,
		nominalLeft:  config.DefaultLeftFoot,
		nominalRight: config.DefaultRightFoot,
	}
}

// LoadConfig loads walking and kinematic documents from dir.
func (m *Manager) LoadConfig(dir string) error {
	w, k, err := config.LoadDir(dir)
	if err != nil {
		return err
	}
	return m.SetConfig(w, k)
}

// SetConfig applies the configuration. Nothing is changed on error.
func (m *Manager) SetConfig(w *config.Walking, k *config.Kinematic) error {
	if err := m.lipm.SetParameters(w.Posture.COMHeight, w.Timing.TimeStep, w.Timing.COMPeriod); err != nil {
		return fmt.Errorf("walking config: %w", err)
	}
	m.planner.SetParameters(
		geom.Point2{X: w.Stride.MaxX, Y: w.Stride.MaxY},
		w.Stride.MaxRotation(),
		w.Timing.PlanPeriod,
		w.Offset.FootYOffset)
	m.kinematics.SetConfig(kinematics.Leg{
		AnkleLength: k.Leg.AnkleLength,
		CalfLength:  k.Leg.CalfLength,
		KneeLength:  k.Leg.KneeLength,
		ThighLength: k.Leg.ThighLength,
		XOffset:     k.Offset.X,
		YOffset:     k.Offset.Y,
	})

	m.timeStep = w.Timing.TimeStep
	m.dspDuration = w.Timing.DSPDuration
	m.stepFrames = w.Timing.StepFrames
	m.footHeight = w.Posture.FootHeight
	m.footYOffset = w.Offset.FootYOffset
	m.nominalLeft = w.Posture.LeftFoot
	m.nominalRight = w.Posture.RightFoot
	if !m.initialized {
		m.nextSupport = planner.RightFoot
		if w.Posture.NextSupport == "left" {
			m.nextSupport = planner.LeftFoot
		}
	}
	return nil
}

// Stop requests the robot to stop. The plan is drained one footstep per
// call so the robot finishes the step in progress.
func (m *Manager) Stop() {
	m.SetGoal(StopGoal, 0)
}

// SetGoal plans toward a new goal relative to the current support foot,
// or continues stopping if pos is StopGoal.
func (m *Manager) SetGoal(pos geom.Point2, rot geom.Angle) {
	if IsStop(pos) {
		if m.planner.Len() == 0 {
			return
		}
		if m.planner.Len() <= 4 {
			m.status = planner.Start
		}
		if m.planner.Len() > 3 {
			m.planner.PopFront()
		}
	} else {
		if !m.initialized {
			// the first plan starts from rest at the origin.
			m.lipm.Reset(geom.Point2{})
		}
		var cur geom.Point2
		var curRot geom.Angle
		if m.planner.Len() > 2 {
			var yOffset float64
			if m.status != planner.Start {
				yOffset = m.footYOffset
				if m.nextSupport == planner.LeftFoot {
					yOffset = -m.footYOffset
				}
			}
			support := m.planner.At(1)
			cur = geom.Point2{X: support.Position.X, Y: support.Position.Y + yOffset}
			curRot = support.Rotation
		}
		m.planner.Plan(pos, rot, cur, curRot, m.nextSupport, m.status)
		m.status = planner.Walking
		glog.V(2).Infof("goal %v %.1f from %v: %d footsteps", pos, rot.Degrees(), cur, m.planner.Len())
	}
	m.initialized = true

	steps := m.planner.Steps()
	m.lipm.Update(steps[0].Time, steps)
	if len(steps) > 1 {
		next := steps[1]
		switch steps[0].Support {
		case planner.LeftFoot:
			target := geom.OffsetOf(next.Position, next.Rotation)
			if next.Support != planner.BothFeet {
				target.Y += m.footYOffset
			}
			m.right.aim(target, m.stepFrames)
			m.nextSupport = planner.RightFoot
		case planner.RightFoot:
			target := geom.OffsetOf(next.Position, next.Rotation)
			if next.Support != planner.BothFeet {
				target.Y -= m.footYOffset
			}
			m.left.aim(target, m.stepFrames)
			m.nextSupport = planner.LeftFoot
		}
	}
	m.walkRotation = steps[0].Rotation
}

// UpdateJoints advances one control tick.
func (m *Manager) UpdateJoints() {
	if !m.initialized {
		return
	}
	if m.lipm.Empty() {
		m.Stop()
	}
	com, ok := m.lipm.PopFront()
	if !ok || m.planner.Len() < 2 {
		glog.Warningf("no com trajectory, %d footsteps", m.planner.Len())
		return
	}
	m.com = com

	current, _ := m.planner.Front()
	next := m.planner.At(1)
	stepPeriod := math.Round((next.Time - current.Time) / m.timeStep)
	if stepPeriod > 0 {
		m.walkRotation = m.walkRotation.Add(next.Rotation.Sub(current.Rotation).Div(stepPeriod))
	}

	sspStart := math.Round(m.dspDuration / (2 * m.timeStep))
	sspEnd := math.Round(stepPeriod / 2)
	diff := stepPeriod - float64(m.lipm.Len())
	switch current.Support {
	case planner.LeftFoot:
		m.right.advance(diff, sspStart, sspEnd, m.footHeight)
	case planner.RightFoot:
		m.left.advance(diff, sspStart, sspEnd, m.footHeight)
	}

	left := m.left.foot(com.Position, m.nominalLeft, m.walkRotation)
	right := m.right.foot(com.Position, m.nominalRight, m.walkRotation)
	if err := m.kinematics.SolveInverseKinematics(left, right); err != nil {
		glog.Errorf("inverse kinematics: %v", err)
	}
	for _, id := range joint.IDs() {
		m.joints.SetPosition(id, m.kinematics.Angle(id).Degrees())
	}
}

// Joints returns the current joint positions in degrees.
func (m *Manager) Joints() []joint.Joint {
	return m.joints.Snapshot()
}

// Initialized tells whether a goal has been set.
func (m *Manager) Initialized() bool {
	return m.initialized
}

// Status gets the planner status.
func (m *Manager) Status() planner.Status {
	return m.status
}

// NextSupport gets the foot supporting the next step.
func (m *Manager) NextSupport() planner.Support {
	return m.nextSupport
}

// FootSteps returns a copy of the footstep queue.
func (m *Manager) FootSteps() []planner.FootStep {
	return m.planner.Steps()
}

// TrajectoryLen gets the number of pending CoM samples.
func (m *Manager) TrajectoryLen() int {
	return m.lipm.Len()
}

// CoM gets the last consumed CoM sample.
func (m *Manager) CoM() lipm.Sample {
	return m.com
}

// WalkRotation gets the integrated trunk yaw.
func (m *Manager) WalkRotation() geom.Angle {
	return m.walkRotation
}
