// Package walk provides shell commands for the walking controller.
package walk

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/biped.go/pkg/cli/sh"
	"github.com/robotalks/biped.go/pkg/geom"
	"github.com/robotalks/biped.go/pkg/walking/msgs"
)

// ParseGoal parses X Y [DEG] into a WalkGoal, the angle is in degrees.
func ParseGoal(args []string) (*msgs.WalkGoal, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("X and Y required")
	}
	var vals [3]float64
	for n, name := range []string{"X", "Y", "DEG"} {
		if n >= len(args) {
			break
		}
		val, err := strconv.ParseFloat(args[n], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		vals[n] = val
	}
	return &msgs.WalkGoal{X: vals[0], Y: vals[1], A: geom.Deg(vals[2]).Radians()}, nil
}

func goalFunc(repeat bool) func(c *ishell.Context) {
	return sh.MustBeConnected(func(c *ishell.Context) {
		goal, err := ParseGoal(c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		goal.Repeat = repeat
		sh.DoCommand(c, goal)
	})
}

var (
	// WalkGoalCmd exposes WalkGoal command.
	WalkGoalCmd = ishell.Cmd{
		Name:    "walk.goal",
		Aliases: []string{"wg"},
		Help:    "X(m) Y(m) [A(degrees)]",
		Func:    goalFunc(false),
	}

	// WalkRepeatCmd exposes WalkGoal command which keeps walking.
	WalkRepeatCmd = ishell.Cmd{
		Name:    "walk.repeat",
		Aliases: []string{"wr"},
		Help:    "X(m) Y(m) [A(degrees)]",
		Func:    goalFunc(true),
	}

	// WalkStopCmd exposes WalkStop command.
	WalkStopCmd = ishell.Cmd{
		Name:    "walk.stop",
		Aliases: []string{"ws"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.WalkStop{})
		}),
	}

	// WalkStatusCmd exposes WalkStatusQuery command.
	WalkStatusCmd = ishell.Cmd{
		Name:    "walk.status",
		Aliases: []string{"wst"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.WalkStatusQuery{})
		}),
	}
)

func init() {
	sh.AddCmds(
		&WalkGoalCmd,
		&WalkRepeatCmd,
		&WalkStopCmd,
		&WalkStatusCmd,
	)
}
