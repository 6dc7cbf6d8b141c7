// Package config loads and validates propsync configuration.
//
// Configuration sources (in order of precedence):
//  1. Bound CLI flags
//  2. Environment variables (PROPSYNC_*, "." replaced by "_")
//  3. Configuration file (YAML)
//  4. Default values
//
// The decoded configuration is validated against an embedded CUE schema.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. PROPSYNC_RESOURCE_FILE.
const EnvPrefix = "PROPSYNC"

// DefaultConfigName is the file searched for in the working directory when
// no explicit path is given.
const DefaultConfigName = "propsync.yaml"

// Config is the full propsync configuration.
type Config struct {
	Graph    GraphConfig    `mapstructure:"graph" yaml:"graph" json:"graph"`
	Resource ResourceConfig `mapstructure:"resource" yaml:"resource" json:"resource"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging" json:"logging"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch" json:"watch"`
}

// GraphConfig selects the graph database.
type GraphConfig struct {
	// Backend is "sqlite" or "badger".
	Backend string `mapstructure:"backend" yaml:"backend" json:"backend"`

	// Path is the SQLite file or the Badger directory. An empty Badger
	// path runs in memory.
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// ResourceConfig identifies the synchronized (node, property, file) triple.
type ResourceConfig struct {
	// Node is the graph node id; empty means the reference node.
	Node      string `mapstructure:"node" yaml:"node" json:"node"`
	Property  string `mapstructure:"property" yaml:"property" json:"property"`
	File      string `mapstructure:"file" yaml:"file" json:"file"`
	LockAware bool   `mapstructure:"lock_aware" yaml:"lock_aware" json:"lock_aware"`

	// Normalize is "", "nfc" or "nfd".
	Normalize string `mapstructure:"normalize" yaml:"normalize" json:"normalize"`

	// FileMode is an octal permission string such as "0644".
	FileMode string `mapstructure:"file_mode" yaml:"file_mode" json:"file_mode"`
}

// Mode parses FileMode.
func (r ResourceConfig) Mode() (fs.FileMode, error) {
	n, err := strconv.ParseUint(r.FileMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("file_mode %q: %w", r.FileMode, err)
	}
	return fs.FileMode(n), nil
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`   // DEBUG, INFO, WARN, ERROR
	Format string `mapstructure:"format" yaml:"format" json:"format"` // text, json
}

// WatchConfig tunes the mirror watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"backend":    "graph.backend",
	"db":         "graph.path",
	"node":       "resource.node",
	"property":   "resource.property",
	"file":       "resource.file",
	"lock-aware": "resource.lock_aware",
	"normalize":  "resource.normalize",
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"debounce":   "watch.debounce",
}

// Load reads configuration from configPath (or ./propsync.yaml when empty),
// the environment and any changed flags in flags, then validates it.
// A missing default file is not an error; a missing explicit file is.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v, err := load(configPath, flags)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadGraph is Load for commands that only open the graph: the resource
// section may be incomplete.
func LoadGraph(configPath string, flags *pflag.FlagSet) (*GraphConfig, error) {
	v, err := load(configPath, flags)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&cfg)

	if err := ValidateGraph(&cfg.Graph); err != nil {
		return nil, err
	}
	return &cfg.Graph, nil
}

func load(configPath string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("configuration file not found: %s: %w", configPath, err)
		}
	}
	if err := readConfigFile(v); err != nil {
		return nil, err
	}
	return v, nil
}

// FromFlags builds a configuration from the defaults and changed flags
// only, ignoring files and the environment.
func FromFlags(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}
	return decode(v)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in defaults. Resource property and file have no
// default and must be configured.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Backend: "sqlite",
			Path:    "propsync.db",
		},
		Resource: ResourceConfig{
			FileMode: "0644",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Save writes cfg as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper registers defaults, environment support and the file location.
func setupViper(v *viper.Viper, configPath string) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(".")
	v.SetConfigName(strings.TrimSuffix(DefaultConfigName, filepath.Ext(DefaultConfigName)))
	v.SetConfigType("yaml")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("graph.backend", d.Graph.Backend)
	v.SetDefault("graph.path", d.Graph.Path)
	v.SetDefault("resource.node", d.Resource.Node)
	v.SetDefault("resource.property", d.Resource.Property)
	v.SetDefault("resource.file", d.Resource.File)
	v.SetDefault("resource.lock_aware", d.Resource.LockAware)
	v.SetDefault("resource.normalize", d.Resource.Normalize)
	v.SetDefault("resource.file_mode", d.Resource.FileMode)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// readConfigFile reads the file if present. An explicit path has already
// been checked for existence.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

func normalize(cfg *Config) {
	cfg.Graph.Backend = strings.ToLower(strings.TrimSpace(cfg.Graph.Backend))
	cfg.Resource.Normalize = strings.ToLower(strings.TrimSpace(cfg.Resource.Normalize))
	cfg.Logging.Level = strings.ToUpper(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
}
