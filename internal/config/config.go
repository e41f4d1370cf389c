// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/core/decoder"
)

// GlobalConfig is the full pktpeek configuration.
// Maps to the `pktpeek:` root key in YAML.
type GlobalConfig struct {
	Log       LogConfig     `mapstructure:"log"`
	Decode    DecodeConfig  `mapstructure:"decode"`
	Output    OutputConfig  `mapstructure:"output"`
	Session   SessionConfig `mapstructure:"session"`
	TagsFile  string        `mapstructure:"tags_file"`  // YAML registry or C header; empty = no names
	TagsWatch bool          `mapstructure:"tags_watch"` // reload tags_file when it changes
	Replay    ReplayConfig  `mapstructure:"replay"`
	Proxy     ProxyConfig   `mapstructure:"proxy"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
}

// ─── Log ───

// LogConfig contains operational logging settings. Decoded packets never go
// through the logger; they are written to the output sink.
type LogConfig struct {
	Level   string           `mapstructure:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format"`  // pattern / json
	Pattern string           `mapstructure:"pattern"` // %time %level %field %msg %caller
	Time    string           `mapstructure:"time"`    // Go time layout for %time
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains log destinations besides stderr.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures a rotated log file.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures lumberjack rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Decode ───

// DecodeConfig tunes the heuristic classifiers.
type DecodeConfig struct {
	FieldCap     int   `mapstructure:"field_cap"`
	MinStringLen int   `mapstructure:"min_string_len"`
	MaxStringLen int   `mapstructure:"max_string_len"`
	FixedWidths  []int `mapstructure:"fixed_widths"`
}

// Options converts the section to decoder options.
func (c DecodeConfig) Options() decoder.Options {
	o := decoder.Options{
		FieldCap:     c.FieldCap,
		MinStringLen: c.MinStringLen,
		MaxStringLen: c.MaxStringLen,
	}
	if c.FixedWidths != nil {
		o.FixedWidths = append([]int{}, c.FixedWidths...)
	}
	return o
}

// ─── Output ───

// OutputConfig selects how decoded packets are rendered and where they go.
type OutputConfig struct {
	Format string     `mapstructure:"format"` // text / json
	Indent string     `mapstructure:"indent"`
	Sink   SinkConfig `mapstructure:"sink"`
}

// SinkConfig selects the session output.
type SinkConfig struct {
	Type     string         `mapstructure:"type"` // stdout / file
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// ─── Session ───

// SessionConfig configures per-tag rate limiting. MaxPerTag 0 disables it.
type SessionConfig struct {
	MaxPerTag int           `mapstructure:"max_per_tag"`
	Window    time.Duration `mapstructure:"window"`
}

// ─── Sources ───

// ReplayConfig configures capture file replay.
type ReplayConfig struct {
	File       string `mapstructure:"file"`
	ServerPort int    `mapstructure:"server_port"` // 0 = every payload is RECV
	BPF        bool   `mapstructure:"bpf"`         // prefilter frames by port
	Limit      int    `mapstructure:"limit"`       // 0 = unlimited
}

// ProxyConfig configures the live TCP relay.
type ProxyConfig struct {
	Listen   string `mapstructure:"listen"`
	Upstream string `mapstructure:"upstream"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Loading ───

const rootKey = "pktpeek"

// configRoot is the top-level wrapper matching the YAML structure `pktpeek: ...`.
type configRoot struct {
	Pktpeek GlobalConfig `mapstructure:"pktpeek"`
}

// Load loads configuration from file. An empty path yields the defaults with
// environment overrides applied.
// Env vars use the PKTPEEK_ prefix (e.g., PKTPEEK_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `pktpeek.` key prefix maps to `PKTPEEK_` through the key replacer
	// (e.g., key "pktpeek.log.level" → env "PKTPEEK_LOG_LEVEL").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pktpeek

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *GlobalConfig {
	v := viper.New()
	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	cfg := root.Pktpeek
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		panic(fmt.Sprintf("config defaults are invalid: %v", err))
	}
	return &cfg
}

func key(k string) string {
	return rootKey + "." + k
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault(key("log.level"), "info")
	v.SetDefault(key("log.format"), "pattern")
	v.SetDefault(key("log.pattern"), "%time [%level] %field %msg")
	v.SetDefault(key("log.time"), "2006-01-02 15:04:05.000")
	v.SetDefault(key("log.outputs.file.enabled"), false)
	v.SetDefault(key("log.outputs.file.path"), "pktpeek.log")
	v.SetDefault(key("log.outputs.file.rotation.max_size_mb"), 100)
	v.SetDefault(key("log.outputs.file.rotation.max_age_days"), 30)
	v.SetDefault(key("log.outputs.file.rotation.max_backups"), 5)
	v.SetDefault(key("log.outputs.file.rotation.compress"), false)

	// Decode defaults
	v.SetDefault(key("decode.field_cap"), decoder.DefaultFieldCap)
	v.SetDefault(key("decode.min_string_len"), decoder.DefaultMinStringLen)
	v.SetDefault(key("decode.max_string_len"), decoder.DefaultMaxStringLen)
	v.SetDefault(key("decode.fixed_widths"), append([]int{}, decoder.DefaultFixedWidths...))

	// Output defaults
	v.SetDefault(key("output.format"), "text")
	v.SetDefault(key("output.indent"), "       ")
	v.SetDefault(key("output.sink.type"), "stdout")
	v.SetDefault(key("output.sink.path"), "debug_packet.log")
	v.SetDefault(key("output.sink.rotation.max_size_mb"), 50)
	v.SetDefault(key("output.sink.rotation.max_backups"), 3)

	// Session defaults
	v.SetDefault(key("session.max_per_tag"), 0)
	v.SetDefault(key("session.window"), "10s")

	v.SetDefault(key("tags_file"), "")
	v.SetDefault(key("tags_watch"), false)

	// Source defaults
	v.SetDefault(key("replay.file"), "")
	v.SetDefault(key("replay.server_port"), 0)
	v.SetDefault(key("replay.bpf"), true)
	v.SetDefault(key("replay.limit"), 0)
	v.SetDefault(key("proxy.listen"), "127.0.0.1:9000")
	v.SetDefault(key("proxy.upstream"), "")

	// Metrics defaults
	v.SetDefault(key("metrics.enabled"), false)
	v.SetDefault(key("metrics.listen"), ":9091")
	v.SetDefault(key("metrics.path"), "/metrics")
}

// ValidateAndApplyDefaults validates configuration and fills values the
// defaults cannot express.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "pattern" && cfg.Log.Format != "json" {
		return fmt.Errorf("%w: invalid log format: %s (must be pattern/json)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Decode validation ──
	if err := cfg.Decode.Options().Validate(); err != nil {
		return err
	}

	// ── Output validation ──
	if cfg.Output.Format != "text" && cfg.Output.Format != "json" {
		return fmt.Errorf("%w: invalid output format: %s (must be text/json)", core.ErrConfigInvalid, cfg.Output.Format)
	}
	switch cfg.Output.Sink.Type {
	case "stdout":
	case "file":
		if cfg.Output.Sink.Path == "" {
			return fmt.Errorf("%w: output.sink.path is required for a file sink", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: invalid output.sink.type: %s (must be stdout/file)", core.ErrConfigInvalid, cfg.Output.Sink.Type)
	}

	// ── Session validation ──
	if cfg.Session.MaxPerTag < 0 {
		return fmt.Errorf("%w: session.max_per_tag must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Session.MaxPerTag > 0 && cfg.Session.Window <= 0 {
		cfg.Session.Window = 10 * time.Second
	}

	// ── Source validation ──
	if cfg.Replay.ServerPort < 0 || cfg.Replay.ServerPort > 65535 {
		return fmt.Errorf("%w: replay.server_port %d out of range", core.ErrConfigInvalid, cfg.Replay.ServerPort)
	}
	if cfg.Replay.Limit < 0 {
		return fmt.Errorf("%w: replay.limit must not be negative", core.ErrConfigInvalid)
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics are enabled", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}
