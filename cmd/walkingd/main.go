package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/l1"
	env "github.com/robotalks/biped.go/pkg/l1/env/controller"
	"github.com/robotalks/biped.go/pkg/walking/node"
)

func init() {
	env.SetControllerType(node.ControllerType, l1.ControllerMeta{Description: "Biped walking controller"})
	env.SetupFlags()
	node.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	env := env.NewConfig().MustNewEnv()
	ctl, err := node.NewConfig().NewController(env.Registrar)
	if err != nil {
		glog.Exitf("load config: %v", err)
	}
	w, _ := ctl.Config()
	loop := fx.NewLoop().Add(env, ctl)
	loop.Interval = time.Duration(w.Timing.TimeStep * float64(time.Second))
	glog.Infof("walking at %v per tick", loop.Interval)
	loop.RunOrFail(fx.NewRunner().HandleSignals().Context)
}
