package main

import (
	"github.com/robotalks/biped.go/pkg/cli/sh"
	env "github.com/robotalks/biped.go/pkg/l1/env/connector"

	_ "github.com/robotalks/biped.go/pkg/cli/cmds/walk"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
