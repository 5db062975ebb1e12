// Package config loads the bridge configuration through viper. Keys keep the
// dotted uad2midi.* names, so YAML, JSON, TOML and .properties files share
// one layout.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Configuration keys.
const (
	KeyHostname       = "uad2midi.uad.hostname"
	KeyPort           = "uad2midi.uad.port"
	KeyDialect        = "uad2midi.uad.dialect"
	KeyDeviceName     = "uad2midi.midi.deviceName"
	KeyClientName     = "uad2midi.midi.clientName"
	KeyLogLevel       = "uad2midi.log.level"
	KeyLogFile        = "uad2midi.log.file"
	KeyLogFormat      = "uad2midi.log.format"
	KeyMetricsAddress = "uad2midi.metrics.address"
	KeySubscription   = "uad2midi.subscription"
)

// Defaults.
const (
	DefaultDeviceName = "Bus 1"
	DefaultClientName = "uad2midi"
	DefaultConfigName = "uad2midi"
	DefaultLogFormat  = "json"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved bridge configuration.
type Config struct {
	UAD          UADConfig     `yaml:"uad"`
	MIDI         MIDIConfig    `yaml:"midi"`
	Log          LogConfig     `yaml:"log"`
	Metrics      MetricsConfig `yaml:"metrics"`
	Subscription []string      `yaml:"subscription"`
}

type UADConfig struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Dialect  string `yaml:"dialect"`
}

type MIDIConfig struct {
	DeviceName string `yaml:"deviceName"`
	ClientName string `yaml:"clientName"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

type MetricsConfig struct {
	Address string `yaml:"address,omitempty"`
}

// NewViper returns a viper instance with defaults and UAD2MIDI_* environment
// overrides, e.g. UAD2MIDI_UAD_HOSTNAME.
func NewViper() *viper.Viper {
	v := viper.NewWithOptions(viper.WithCodecRegistry(newCodecRegistry()))
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHostname, contracts.DefaultConsoleHost)
	v.SetDefault(KeyPort, contracts.DefaultConsolePort)
	v.SetDefault(KeyDialect, contracts.DialectAbsolute.String())
	v.SetDefault(KeyDeviceName, DefaultDeviceName)
	v.SetDefault(KeyClientName, DefaultClientName)
	v.SetDefault(KeyLogLevel, contracts.InfoLevel.String())
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
}

// ReadFile reads path into v. With an empty path v searches for
// uad2midi.{yaml,json,toml,properties} in the working directory and the user
// config directory; finding none is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, DefaultConfigName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// FromViper resolves the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	rules, err := subscriptions(v.Get(KeySubscription))
	if err != nil {
		return nil, err
	}
	return &Config{
		UAD: UADConfig{
			Hostname: v.GetString(KeyHostname),
			Port:     v.GetInt(KeyPort),
			Dialect:  v.GetString(KeyDialect),
		},
		MIDI: MIDIConfig{
			DeviceName: v.GetString(KeyDeviceName),
			ClientName: v.GetString(KeyClientName),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			File:   v.GetString(KeyLogFile),
		},
		Metrics: MetricsConfig{
			Address: v.GetString(KeyMetricsAddress),
		},
		Subscription: rules,
	}, nil
}

// Load reads path (or searches the default locations) and resolves it.
func Load(path string) (*Config, error) {
	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// subscriptions flattens the subscription setting into JSON rule strings.
// Lists keep their order; maps, as produced by uad2midi.subscription.<n>
// properties, are ordered by numeric key.
func subscriptions(raw any) ([]string, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		rules := make([]string, 0, len(t))
		for i, item := range t {
			rule, err := ruleString(item)
			if err != nil {
				return nil, fmt.Errorf("%w: subscription %d: %v", ErrInvalidConfig, i, err)
			}
			rules = append(rules, rule)
		}
		return rules, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })
		rules := make([]string, 0, len(keys))
		for _, k := range keys {
			rule, err := ruleString(t[k])
			if err != nil {
				return nil, fmt.Errorf("%w: subscription %s: %v", ErrInvalidConfig, k, err)
			}
			rules = append(rules, rule)
		}
		return rules, nil
	default:
		return nil, fmt.Errorf("%w: unsupported subscription value %T", ErrInvalidConfig, raw)
	}
}

// ruleString returns a rule as JSON. Inline mappings are re-encoded.
func ruleString(item any) (string, error) {
	switch t := item.(type) {
	case string:
		return t, nil
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("rule must be a JSON string or a mapping, got %T", item)
	}
}

func naturalLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if c.UAD.Hostname == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, KeyHostname)
	}
	if c.UAD.Port < 1 || c.UAD.Port > 65535 {
		return fmt.Errorf("%w: %s %d out of range", ErrInvalidConfig, KeyPort, c.UAD.Port)
	}
	if _, err := contracts.ParseDialect(c.UAD.Dialect); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, ok := contracts.ParseLogLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// ConsoleOptions converts the configuration into console client options.
// Validate must have succeeded.
func (c *Config) ConsoleOptions(log contracts.Logger) []contracts.ConsoleOption {
	dialect, _ := contracts.ParseDialect(c.UAD.Dialect)
	level, _ := contracts.ParseLogLevel(c.Log.Level)
	return []contracts.ConsoleOption{
		contracts.WithConsoleLogger(log),
		contracts.WithConsoleLogLevel(level),
		contracts.WithConsoleAddress(c.UAD.Hostname, c.UAD.Port),
		contracts.WithDialect(dialect),
		contracts.WithRules(c.Subscription...),
	}
}

// MIDIOptions converts the configuration into MIDI client options. When
// selectDevice is false the client is created without opening a device.
func (c *Config) MIDIOptions(log contracts.Logger, selectDevice bool) []contracts.Option {
	level, _ := contracts.ParseLogLevel(c.Log.Level)
	opts := []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithLogLevel(level),
		contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{ClientName: c.MIDI.ClientName}),
	}
	if selectDevice {
		opts = append(opts, contracts.WithDeviceName(c.MIDI.DeviceName))
	}
	return opts
}

// WriteYAML writes the configuration under the uad2midi root key.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]*Config{"uad2midi": c}); err != nil {
		return err
	}
	return enc.Close()
}
