// Package config loads testrecorder settings from defaults, an optional YAML
// file, TESTRECORDER_* environment variables and bound command-line flags,
// in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/bus"
)

// EnvPrefix prefixes environment overrides, e.g. TESTRECORDER_BUS_KIND.
const EnvPrefix = "TESTRECORDER"

type Config struct {
	Listen            string        `mapstructure:"listen"`
	Debug             bool          `mapstructure:"debug"`
	Workers           int           `mapstructure:"workers"`
	AnnotationTimeout time.Duration `mapstructure:"annotationTimeout"`
	CaptureTimeout    time.Duration `mapstructure:"captureTimeout"`
	Bus               bus.Config    `mapstructure:"bus"`
	ExportDir         string        `mapstructure:"exportDir"`

	// CatalogPath is the SQLite file archiving exported plans. Empty keeps
	// the catalog in memory.
	CatalogPath string `mapstructure:"catalogPath"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:            "127.0.0.1:7420",
		Workers:           4,
		AnnotationTimeout: 5 * time.Second,
		CaptureTimeout:    5 * time.Second,
		Bus:               bus.DefaultConfig(),
		ExportDir:         ".",
	}
}

// SetDefaults registers Default() on v so environment variables and flags
// can override every key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("annotationTimeout", d.AnnotationTimeout)
	v.SetDefault("captureTimeout", d.CaptureTimeout)
	v.SetDefault("bus.kind", d.Bus.Kind)
	v.SetDefault("bus.url", d.Bus.URL)
	v.SetDefault("bus.name", d.Bus.Name)
	v.SetDefault("bus.timeout", d.Bus.Timeout)
	v.SetDefault("exportDir", d.ExportDir)
	v.SetDefault("catalogPath", d.CatalogPath)
}

// Load reads the configuration. path names a YAML file and may be empty.
// Flags must already be bound to v.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal the config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, nil
}

type fileBus struct {
	Kind    string `yaml:"kind"`
	URL     string `yaml:"url"`
	Name    string `yaml:"name"`
	Timeout string `yaml:"timeout"`
}

type fileConfig struct {
	Listen            string  `yaml:"listen"`
	Debug             bool    `yaml:"debug"`
	Workers           int     `yaml:"workers"`
	AnnotationTimeout string  `yaml:"annotationTimeout"`
	CaptureTimeout    string  `yaml:"captureTimeout"`
	Bus               fileBus `yaml:"bus"`
	ExportDir         string  `yaml:"exportDir"`
	CatalogPath       string  `yaml:"catalogPath"`
}

// Write saves cfg as YAML to path. Durations are written in
// time.Duration string form ("5s").
func Write(path string, cfg Config) error {
	out := fileConfig{
		Listen:            cfg.Listen,
		Debug:             cfg.Debug,
		Workers:           cfg.Workers,
		AnnotationTimeout: cfg.AnnotationTimeout.String(),
		CaptureTimeout:    cfg.CaptureTimeout.String(),
		Bus: fileBus{
			Kind:    cfg.Bus.Kind,
			URL:     cfg.Bus.URL,
			Name:    cfg.Bus.Name,
			Timeout: cfg.Bus.Timeout.String(),
		},
		ExportDir:   cfg.ExportDir,
		CatalogPath: cfg.CatalogPath,
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
