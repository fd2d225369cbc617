// Package config loads the catalog configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dcmindex/internal/compiler"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/store"
)

// Config is the complete catalog configuration.
type Config struct {
	// Database configures the relational store.
	Database DatabaseConfig `yaml:"database"`

	// Catalog configures the hierarchy and the attribute dictionary.
	Catalog CatalogConfig `yaml:"catalog"`

	// Logging configures the slog handler.
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry configures metrics collection.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	// Driver is the dialect: sqlite3 or duckdb.
	Driver string `yaml:"driver"`

	// DSN is the database location, usually a file path.
	DSN string `yaml:"dsn"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `yaml:"max_open_conns"`

	// UserColumns is the number of USER_n columns per new table.
	// Negative disables them.
	UserColumns int `yaml:"user_columns"`
}

// CatalogConfig configures the hierarchy and the attribute dictionary.
type CatalogConfig struct {
	// Model is the hierarchy variant: standard or concatenation.
	Model string `yaml:"model"`

	// QueryRoot is the default information model: patient or study.
	QueryRoot string `yaml:"query_root"`

	// DictionaryDir holds CUE attribute declarations merged over the
	// built-in dictionary. Empty uses the built-in one only.
	DictionaryDir string `yaml:"dictionary_dir"`

	// PersonNames enables canonical and phonetic name matching.
	PersonNames bool `yaml:"person_names"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// TelemetryConfig configures metrics collection.
type TelemetryConfig struct {
	// Metrics registers Prometheus collectors for catalog operations.
	Metrics bool `yaml:"metrics"`
}

// Load reads path, expands environment variables and validates the result.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return config, nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       "sqlite3",
			DSN:          "dcmindex.db",
			MaxOpenConns: store.DefaultMaxOpenConns,
		},
		Catalog: CatalogConfig{
			Model:       model.StandardName,
			QueryRoot:   model.RootPatient.String(),
			PersonNames: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Root returns the parsed default query root.
func (c *Config) Root() model.Root {
	root, _ := model.ParseRoot(c.Catalog.QueryRoot)
	return root
}

// StoreConfig builds the store configuration, loading the CUE dictionary
// when one is configured.
func (c *Config) StoreConfig() (store.Config, error) {
	m, err := model.ByName(c.Catalog.Model)
	if err != nil {
		return store.Config{}, err
	}

	d, err := compiler.LoadDictionary(c.Catalog.DictionaryDir, nil)
	if err != nil {
		return store.Config{}, fmt.Errorf("load dictionary: %w", err)
	}

	return store.Config{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		MaxOpenConns: c.Database.MaxOpenConns,
		Model:        m,
		Dictionary:   d,
		UserColumns:  c.Database.UserColumns,
		PersonNames:  c.Catalog.PersonNames,
	}, nil
}
