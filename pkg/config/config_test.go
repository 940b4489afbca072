package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		PriorityOrder: []string{"direct_feed", "registry_feed_a"},
		Instruments: []InstrumentConfig{
			{
				Symbol: "LUNC/USD",
				Sources: []SourceEntryConfig{
					{Source: "direct_feed", Adapter: "direct", WeightBPS: 6000, MaxStaleness: Duration(time.Minute)},
					{Source: "registry_feed_a", Adapter: "registry", WeightBPS: 4000, MaxStaleness: Duration(2 * time.Minute)},
				},
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr error
	}{
		{
			name:    "no instruments",
			mutate:  func(cfg *Config) { cfg.Instruments = nil },
			wantErr: ErrNoInstruments,
		},
		{
			name:    "missing symbol",
			mutate:  func(cfg *Config) { cfg.Instruments[0].Symbol = "" },
			wantErr: ErrSymbolRequired,
		},
		{
			name:    "no sources",
			mutate:  func(cfg *Config) { cfg.Instruments[0].Sources = nil },
			wantErr: ErrNoSourcesConfigured,
		},
		{
			name:    "unknown source id",
			mutate:  func(cfg *Config) { cfg.Instruments[0].Sources[0].Source = "bogus_feed" },
			wantErr: ErrUnknownSourceID,
		},
		{
			name: "duplicate source",
			mutate: func(cfg *Config) {
				cfg.Instruments[0].Sources[1] = cfg.Instruments[0].Sources[0]
			},
			wantErr: ErrDuplicateSource,
		},
		{
			name:    "missing adapter",
			mutate:  func(cfg *Config) { cfg.Instruments[0].Sources[0].Adapter = "" },
			wantErr: ErrAdapterRequired,
		},
		{
			name:    "weight above total",
			mutate:  func(cfg *Config) { cfg.Instruments[0].Sources[0].WeightBPS = 10001 },
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "missing staleness",
			mutate:  func(cfg *Config) { cfg.Instruments[0].Sources[0].MaxStaleness = 0 },
			wantErr: ErrStalenessRequired,
		},
		{
			name:    "weights do not sum to total",
			mutate:  func(cfg *Config) { cfg.Instruments[0].Sources[0].WeightBPS = 5000 },
			wantErr: ErrWeightSum,
		},
		{
			name:    "empty priority order",
			mutate:  func(cfg *Config) { cfg.PriorityOrder = nil },
			wantErr: ErrEmptyPriorityOrder,
		},
		{
			name:    "unknown priority entry",
			mutate:  func(cfg *Config) { cfg.PriorityOrder = []string{"bogus_feed"} },
			wantErr: ErrUnknownSourceID,
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "loud" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "bad log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	raw := `
server:
  http:
    addr: ":9999"
  websocket:
    enabled: true

aggregation:
  default_staleness: 2m

priority_order:
  - direct_feed
  - registry_feed_a

instruments:
  - symbol: "LUNC/USD"
    sources:
      - source: direct_feed
        adapter: direct
        weight_bps: 10000
        max_staleness: 90s

access:
  admins:
    - admin

metrics:
  enabled: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, ":9999", cfg.Server.HTTP.Addr)
	assert.Equal(t, ":8081", cfg.Server.WebSocket.Addr, "websocket addr defaulted")
	assert.Equal(t, 1, cfg.Aggregation.MinSources, "min_sources defaulted")
	assert.Equal(t, 2*time.Minute, cfg.Aggregation.DefaultStaleness.ToDuration())
	assert.Equal(t, 5*time.Second, cfg.Aggregation.QueryTimeout.ToDuration(), "query_timeout defaulted")
	assert.Equal(t, 90*time.Second, cfg.Instruments[0].Sources[0].MaxStaleness.ToDuration())
	assert.Equal(t, ":9091", cfg.Metrics.Addr, "metrics addr defaulted")
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"admin"}, cfg.Access.Admins)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ORACLE_HTTP_ADDR", ":7777")

	raw := `
server:
  http:
    addr: "${ORACLE_HTTP_ADDR}"

priority_order:
  - direct_feed

instruments:
  - symbol: "LUNC/USD"
    sources:
      - source: direct_feed
        adapter: direct
        weight_bps: 10000
        max_staleness: 60s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.HTTP.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
