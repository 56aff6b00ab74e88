package node

import (
	"flag"
	"os"

	"github.com/robotalks/biped.go/pkg/l1"
	"github.com/robotalks/biped.go/pkg/walking/config"
)

// Config defines the configurations for the walking node.
type Config struct {
	// ConfigDir contains walking.json and kinematic.json.
	ConfigDir string
	// Watch reloads the documents in ConfigDir on change.
	Watch bool
	// JointStatesDivisor publishes joint states every n ticks, 0 disables.
	JointStatesDivisor int
}

var defaultConfig = Config{
	ConfigDir:          "configs",
	Watch:              true,
	JointStatesDivisor: 1,
}

func init() {
	if val := os.Getenv("WALKING_CONFIG_DIR"); val != "" {
		defaultConfig.ConfigDir = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ConfigDir, "config-dir", defaultConfig.ConfigDir, "Directory of walking and kinematic documents.")
	flag.BoolVar(&defaultConfig.Watch, "watch", defaultConfig.Watch, "Reload documents on change.")
	flag.IntVar(&defaultConfig.JointStatesDivisor, "joint-states-every", defaultConfig.JointStatesDivisor, "Publish joint states every N ticks, 0 to disable.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewController loads the documents and creates a controller publishing
// events with reg.
func (c *Config) NewController(reg l1.Registrar) (*Controller, error) {
	w, k, err := config.LoadDir(c.ConfigDir)
	if err != nil {
		return nil, err
	}
	ctl := NewController(reg)
	if err := ctl.SetConfig(w, k); err != nil {
		return nil, err
	}
	ctl.JointStatesDivisor = c.JointStatesDivisor
	if c.Watch {
		ctl.WatchDir = c.ConfigDir
	}
	return ctl, nil
}
