// Package config loads tagtical settings from a YAML file and TAGTICAL_*
// environment variables and turns them into engine options, a tag type
// registry and declared kinds.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/taggable"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// EnvPrefix prefixes every environment override, e.g. TAGTICAL_DSN.
const EnvPrefix = "TAGTICAL"

// TypeConfig registers one tag level.
type TypeConfig struct {
	Name           string   `mapstructure:"name" yaml:"name"`
	Parent         string   `mapstructure:"parent" yaml:"parent,omitempty"`
	PossibleValues []string `mapstructure:"possible_values" yaml:"possible_values,omitempty"`
}

// TaggableConfig declares one kind of taggable record.
type TaggableConfig struct {
	Name      string   `mapstructure:"name" yaml:"name"`
	Namespace string   `mapstructure:"namespace" yaml:"namespace,omitempty"`
	Types     []string `mapstructure:"types" yaml:"types"`
	Cached    []string `mapstructure:"cached" yaml:"cached,omitempty"`
}

// RangeConfig bounds tagging relevance.
type RangeConfig struct {
	Min float64 `mapstructure:"min" yaml:"min"`
	Max float64 `mapstructure:"max" yaml:"max"`
}

// Config is the configuration to open a store and build an engine.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
	// DefaultRelevance is given to tags and taggings created without one.
	// Zero leaves relevance unset.
	DefaultRelevance float64      `mapstructure:"default_relevance" yaml:"default_relevance"`
	RelevanceRange   *RangeConfig `mapstructure:"relevance_range" yaml:"relevance_range,omitempty"`

	PolymorphicTagger bool   `mapstructure:"polymorphic_tagger" yaml:"polymorphic_tagger"`
	MultipleTaggers   bool   `mapstructure:"multiple_taggers" yaml:"multiple_taggers"`
	ForceLowercase    bool   `mapstructure:"force_lowercase" yaml:"force_lowercase"`
	Delimiter         string `mapstructure:"delimiter" yaml:"delimiter"`

	Types     []TypeConfig     `mapstructure:"types" yaml:"types,omitempty"`
	Taggables []TaggableConfig `mapstructure:"taggables" yaml:"taggables,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("driver", string(store.SQLite))
	v.SetDefault("dsn", "")
	v.SetDefault("default_relevance", 1.0)
	v.SetDefault("polymorphic_tagger", false)
	v.SetDefault("multiple_taggers", true)
	v.SetDefault("force_lowercase", false)
	v.SetDefault("delimiter", taglist.DefaultDelimiter)
}

// Load reads the YAML file at path, if any, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the settings and fills the default sqlite path.
func (c *Config) Validate() error {
	switch store.Dialect(c.Driver) {
	case store.SQLite:
		if c.DSN == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return errors.Wrap(err, "unable to resolve home directory for the default database")
			}
			c.DSN = filepath.Join(home, ".tagtical", "tagtical.db")
		}
	case store.Postgres:
		if c.DSN == "" {
			return errors.New("postgres driver requires a dsn")
		}
	default:
		return errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", c.Driver)
	}
	if c.Delimiter == "" {
		return errors.New("delimiter must not be empty")
	}
	if r := c.RelevanceRange; r != nil && r.Min > r.Max {
		return errors.Errorf("relevance_range: min %g is above max %g", r.Min, r.Max)
	}
	return nil
}

// Options returns the engine options.
func (c *Config) Options() taggable.Options {
	opts := taggable.Options{
		PolymorphicTagger: c.PolymorphicTagger,
		MultipleTaggers:   c.MultipleTaggers,
		ForceLowercase:    c.ForceLowercase,
		Delimiter:         c.Delimiter,
	}
	if c.RelevanceRange != nil {
		opts.RelevanceRange = &taggable.Range{Min: c.RelevanceRange.Min, Max: c.RelevanceRange.Max}
	}
	return opts
}

// StoreOptions returns the options to open the store with.
func (c *Config) StoreOptions() []store.Option {
	if c.DefaultRelevance == 0 {
		return nil
	}
	return []store.Option{store.WithDefaultRelevance(c.DefaultRelevance)}
}

// Registry registers the configured types. A parent must be listed before
// its children.
func (c *Config) Registry() (*tagtype.Registry, error) {
	reg := tagtype.NewRegistry()
	for _, t := range c.Types {
		if _, err := reg.Register(t.Name, t.Parent, tagtype.PossibleValues(t.PossibleValues...)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Declare declares every configured kind on e.
func (c *Config) Declare(e *taggable.Engine) error {
	for _, t := range c.Taggables {
		if _, err := e.Declare(t.Name, t.Namespace, t.Types, t.Cached...); err != nil {
			return fmt.Errorf("taggable %q: %w", t.Name, err)
		}
	}
	return nil
}
