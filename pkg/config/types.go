package config

import "time"

// Config is the root configuration structure
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Aggregation   AggregationConfig  `yaml:"aggregation"`
	PriorityOrder []string           `yaml:"priority_order"`
	Instruments   []InstrumentConfig `yaml:"instruments"`
	Access        AccessConfig       `yaml:"access"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig configures the HTTP and WebSocket surfaces
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures the WebSocket server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AggregationConfig holds the runtime aggregation constants
type AggregationConfig struct {
	MinSources       int      `yaml:"min_sources"`
	DefaultStaleness Duration `yaml:"default_staleness"`
	QueryTimeout     Duration `yaml:"query_timeout"`
}

// InstrumentConfig configures one priced instrument
type InstrumentConfig struct {
	Symbol  string              `yaml:"symbol"`
	Sources []SourceEntryConfig `yaml:"sources"`
}

// SourceEntryConfig configures one (instrument, source) registry entry
type SourceEntryConfig struct {
	Source       string   `yaml:"source"`
	Adapter      string   `yaml:"adapter"`
	WeightBPS    uint32   `yaml:"weight_bps"`
	MaxStaleness Duration `yaml:"max_staleness"`
}

// AccessConfig lists callers per permission; empty lists allow everyone
type AccessConfig struct {
	Admins    []string `yaml:"admins"`
	Operators []string `yaml:"operators"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
