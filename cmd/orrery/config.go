package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/moment"
	"github.com/signalsfoundry/orrery/timectrl"
)

// Config is the process configuration shared by every subcommand. Values come
// from flags, ORRERY_* environment variables and an optional YAML file, in
// that order of precedence.
type Config struct {
	Manifest string    `mapstructure:"manifest"`
	Log      LogConfig `mapstructure:"log"`
	Sim      SimConfig `mapstructure:"sim"`

	Tracing observability.TracingConfig `mapstructure:"tracing"`

	GRPCAddress    string `mapstructure:"grpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SimConfig drives the time controller.
type SimConfig struct {
	Start       string        `mapstructure:"start"` // MJD; empty means now
	Tick        time.Duration `mapstructure:"tick"`
	Scale       float64       `mapstructure:"scale"`
	Mode        string        `mapstructure:"mode"` // realtime | accelerated
	Duration    time.Duration `mapstructure:"duration"`
	Concurrency int           `mapstructure:"concurrency"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ORRERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("manifest", "configs/solar.system.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("sim.start", "")
	v.SetDefault("sim.tick", time.Second)
	v.SetDefault("sim.scale", 1.0)
	v.SetDefault("sim.mode", "realtime")
	v.SetDefault("sim.duration", time.Duration(0))
	v.SetDefault("sim.concurrency", 0)
	tracing := observability.DefaultTracingConfig()
	v.SetDefault("tracing.enabled", tracing.Enabled)
	v.SetDefault("tracing.service_name", tracing.ServiceName)
	v.SetDefault("tracing.exporter", tracing.Exporter)
	v.SetDefault("tracing.endpoint", tracing.Endpoint)
	v.SetDefault("tracing.sample_ratio", tracing.SampleRatio)
	v.SetDefault("grpc_address", ":50051")
	v.SetDefault("metrics_address", ":9090")
	return v
}

// bindFlags maps config keys to flag names.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("bind %q: no flag --%s", key, name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind %q: %w", key, err)
		}
	}
	return nil
}

// loadConfig reads cfgFile, when set, and decodes the merged configuration.
func loadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Manifest == "" {
		return fmt.Errorf("manifest path cannot be empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return err
	}
	if c.Sim.Tick <= 0 {
		return fmt.Errorf("sim.tick must be positive, got %v", c.Sim.Tick)
	}
	if _, err := c.Sim.mode(); err != nil {
		return err
	}
	if _, err := c.Sim.start(); err != nil {
		return err
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

func (s SimConfig) mode() (timectrl.Mode, error) {
	switch strings.ToLower(s.Mode) {
	case "", "realtime", "real-time":
		return timectrl.RealTime, nil
	case "accelerated":
		return timectrl.Accelerated, nil
	default:
		return 0, fmt.Errorf("unknown sim.mode %q", s.Mode)
	}
}

func (s SimConfig) start() (moment.Moment, error) {
	if s.Start == "" {
		return moment.Now(), nil
	}
	m, err := moment.ParseDays(s.Start)
	if err != nil {
		return moment.Moment{}, fmt.Errorf("sim.start: %w", err)
	}
	return m, nil
}
