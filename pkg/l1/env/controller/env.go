// Package controller builds the environment of an L1 controller process:
// its identity and the registrars announcing it.
//
//	BIPED_ID        controller ID, the protected machine ID by default
//	BIPED_MQTT_URL  broker to register with, empty to run standalone
package controller

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/l1"
	"github.com/robotalks/biped.go/pkg/l1/comm"
	"github.com/robotalks/biped.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/biped.go/pkg/l1/env"
)

// DefaultMQTTBrokerURL is a broker on localhost.
const DefaultMQTTBrokerURL = "mqtt://localhost:1883/biped/"

// Config describes the controller and where it registers.
type Config struct {
	Info l1.ControllerInfo
	// MQTTBrokerURL is like mqtt://host:port/topic-prefix.
	MQTTBrokerURL string
}

var defaultConfig = Config{MQTTBrokerURL: DefaultMQTTBrokerURL}

func init() {
	if val, ok := os.LookupEnv("BIPED_MQTT_URL"); ok {
		defaultConfig.MQTTBrokerURL = val
	}
	if defaultConfig.Info.Ref.ID = os.Getenv("BIPED_ID"); defaultConfig.Info.Ref.ID == "" {
		defaultConfig.Info.Ref.ID = env.MachineID()
	}
}

// SetControllerType is called from init of the controller program.
func SetControllerType(typ string, meta l1.ControllerMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// SetupFlags registers -type, -id and -mqtt.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Controller type.")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Controller ID.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to run standalone.")
}

// Default is the Config filled by environment variables and flags.
func Default() *Config {
	return &defaultConfig
}

// NewConfig copies the default Config.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// ErrNoIdentity is returned when the controller type or ID is missing.
var ErrNoIdentity = errors.New("controller type and id must be specified")

// Env holds the registrars of a controller.
type Env struct {
	Config *Config
	// Registrar sends events through all registrars.
	Registrar *comm.RegistrarMux
	// RegistryURLs lists where the controller is registered.
	RegistryURLs []string
}

// NewEnv creates the registrars. Without any registry, commands never
// arrive but the controller still runs.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, ErrNoIdentity
	}
	e := &Env{Config: c, Registrar: &comm.RegistrarMux{}}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("mqtt registrar: %w", err)
		}
		e.Registrar.Add(reg)
		e.RegistryURLs = append(e.RegistryURLs, c.MQTTBrokerURL)
	}
	if len(e.RegistryURLs) == 0 {
		glog.Warningf("%s runs standalone", c.Info.Ref.Name())
	}
	return e, nil
}

// MustNewEnv exits the process if NewEnv fails.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return e
}

// AddToLoop adds the registrars, and replies the commands left unhandled
// at the end of each iteration.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar, comm.UnsupportedCommands{})
}
