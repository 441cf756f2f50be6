package qosnet

// config.go loads the settings of a process driving a Simulation.  Values come from
// (in increasing precedence) built-in defaults, an optional config file, and
// QOSNET_-prefixed environment variables.

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrBadConfig is wrapped by every configuration validation error
var ErrBadConfig = errors.New("bad configuration")

// Config holds the settings of the driver process
type Config struct {
	// wall-clock (or, for experiments, virtual) time between ticks
	TickInterval time.Duration

	// topology description file, yaml or json; empty selects the built-in hospital network
	TopologyFile string

	// mode the simulation starts in
	Mode Mode

	// start generating traffic immediately
	Autostart bool

	// how often the real-time driver logs global stats
	StatusInterval time.Duration

	// bound on alerts per second echoed to the log
	AlertLogPerSec float64

	// when positive, run a phased experiment of this many ticks per mode instead of running in real time
	ExperimentTicks int

	// where an experiment's trace is written, empty for nowhere
	TraceFile string

	// where the final snapshot is written on exit, empty for nowhere
	SnapshotFile string
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("tick_interval_ms", 50)
	v.SetDefault("topology_file", "")
	v.SetDefault("mode", "NORMAL")
	v.SetDefault("autostart", true)
	v.SetDefault("status_interval_ms", 1000)
	v.SetDefault("alert_log_per_sec", 5.0)
	v.SetDefault("experiment_ticks", 0)
	v.SetDefault("trace_file", "")
	v.SetDefault("snapshot_file", "")
}

// LoadConfig reads the configuration.  An empty filename skips the config file.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	setConfigDefaults(v)
	v.SetEnvPrefix("QOSNET")
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", filename, err)
		}
	}
	return configFrom(v)
}

// configFrom extracts and validates a Config from the settings held by v
func configFrom(v *viper.Viper) (*Config, error) {
	cfg := new(Config)

	tickMs := v.GetInt("tick_interval_ms")
	if tickMs <= 0 {
		return nil, fmt.Errorf("%w: tick_interval_ms %d is not positive", ErrBadConfig, tickMs)
	}
	cfg.TickInterval = time.Duration(tickMs) * time.Millisecond

	statusMs := v.GetInt("status_interval_ms")
	if statusMs <= 0 {
		return nil, fmt.Errorf("%w: status_interval_ms %d is not positive", ErrBadConfig, statusMs)
	}
	cfg.StatusInterval = time.Duration(statusMs) * time.Millisecond

	mode, err := ParseMode(v.GetString("mode"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	cfg.Mode = mode

	cfg.AlertLogPerSec = v.GetFloat64("alert_log_per_sec")
	if cfg.AlertLogPerSec < 0 {
		return nil, fmt.Errorf("%w: alert_log_per_sec %g is negative", ErrBadConfig, cfg.AlertLogPerSec)
	}

	cfg.ExperimentTicks = v.GetInt("experiment_ticks")
	if cfg.ExperimentTicks < 0 {
		return nil, fmt.Errorf("%w: experiment_ticks %d is negative", ErrBadConfig, cfg.ExperimentTicks)
	}

	cfg.TopologyFile = v.GetString("topology_file")
	cfg.Autostart = v.GetBool("autostart")
	cfg.TraceFile = v.GetString("trace_file")
	cfg.SnapshotFile = v.GetString("snapshot_file")
	return cfg, nil
}

// LoadTopology returns the topology description the configuration names
func (cfg *Config) LoadTopology() (*TopoDesc, error) {
	if cfg.TopologyFile == "" {
		return DefaultTopoDesc(), nil
	}
	return ReadTopoDesc(cfg.TopologyFile, isYAMLFile(cfg.TopologyFile), nil)
}
