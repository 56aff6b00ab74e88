// Package connector builds the L2 side of a connection from flags and
// environment variables:
//
//	BIPED_TYPE, BIPED_ID   the controller to connect to
//	BIPED_REGISTRY_URL     where controllers are registered
package connector

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/biped.go/pkg/l1"
	"github.com/robotalks/biped.go/pkg/l1/comm/mqtt"
)

// DefaultRegistryURL is a broker on localhost.
const DefaultRegistryURL = "mqtt://localhost:1883/biped/"

// Config selects a registry and optionally a controller in it.
type Config struct {
	Ref l1.ControllerRef
	// RegistryURL is like mqtt://host:port/topic-prefix.
	RegistryURL string
}

// ConnectorFactory creates a Connector from a registry URL.
type ConnectorFactory func(registryURL string) (l1.Connector, error)

// Schemes maps URL schemes of registries to their Connectors.
var Schemes = map[string]ConnectorFactory{
	"mqtt":  newMQTTConnector,
	"mqtts": newMQTTConnector,
}

func newMQTTConnector(registryURL string) (l1.Connector, error) {
	return mqtt.NewConnector(registryURL)
}

var defaultConfig = Config{RegistryURL: DefaultRegistryURL}

func init() {
	lookup := func(name string, to *string) {
		if val, ok := os.LookupEnv(name); ok && val != "" {
			*to = val
		}
	}
	lookup("BIPED_TYPE", &defaultConfig.Ref.Type)
	lookup("BIPED_ID", &defaultConfig.Ref.ID)
	lookup("BIPED_REGISTRY_URL", &defaultConfig.RegistryURL)
}

// SetupFlags registers -robot-type, -robot-id, -robot and -robot-reg.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "robot-type", defaultConfig.Ref.Type, "Type of the robot to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "robot-id", defaultConfig.Ref.ID, "ID of the robot to connect.")
	flag.Func("robot", "Robot to connect as TYPE/ID.", func(s string) error {
		ref, err := l1.ParseControllerRef(s)
		if err == nil {
			defaultConfig.Ref = ref
		}
		return err
	})
	flag.StringVar(&defaultConfig.RegistryURL, "robot-reg", defaultConfig.RegistryURL, "URL of the robot registry.")
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

// NewConnector creates the Connector for RegistryURL.
func (c *Config) NewConnector() (l1.Connector, error) {
	u, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("registry URL %q: %w", c.RegistryURL, err)
	}
	factory, ok := Schemes[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("registry URL %q: unsupported scheme %q", c.RegistryURL, u.Scheme)
	}
	return factory(c.RegistryURL)
}

// MustNewConnector exits the process if NewConnector fails.
func (c *Config) MustNewConnector() l1.Connector {
	connector, err := c.NewConnector()
	if err != nil {
		glog.Exit(err)
	}
	return connector
}

// ErrNoController is returned by Connect when Ref is incomplete.
var ErrNoController = errors.New("robot type and id must be specified")

// Connect connects to Ref without discovery.
func (c *Config) Connect(ctx context.Context) (l1.ControllerConn, error) {
	if !c.Ref.IsValid() {
		return nil, ErrNoController
	}
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx, c.Ref)
}
