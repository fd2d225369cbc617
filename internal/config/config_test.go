package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dcmindex/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.Equal(t, model.StandardName, cfg.Catalog.Model)
	assert.Equal(t, model.RootPatient, cfg.Root())
	assert.True(t, cfg.Catalog.PersonNames)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad(t *testing.T) {
	t.Setenv("DCMINDEX_TEST_DIR", "/data/pacs")

	path := filepath.Join(t.TempDir(), "dcmindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: duckdb
  dsn: ${DCMINDEX_TEST_DIR}/catalog.duckdb
  user_columns: -1
catalog:
  model: concatenation
  query_root: study
  person_names: false
logging:
  level: debug
  format: json
telemetry:
  metrics: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Database.Driver)
	assert.Equal(t, "/data/pacs/catalog.duckdb", cfg.Database.DSN)
	assert.Equal(t, -1, cfg.Database.UserColumns)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns, "unset fields keep defaults")
	assert.Equal(t, model.ConcatenationName, cfg.Catalog.Model)
	assert.Equal(t, model.RootStudy, cfg.Root())
	assert.False(t, cfg.Catalog.PersonNames)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Telemetry.Metrics)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "database: [", "parse config file"},
		{"unknown driver", "database: {driver: postgres}", "unknown database driver"},
		{"empty dsn", "database: {dsn: \"\"}", "dsn is required"},
		{"negative pool", "database: {max_open_conns: -2}", "max_open_conns"},
		{"unknown model", "catalog: {model: enhanced}", "unknown model"},
		{"unknown root", "catalog: {query_root: series}", "unknown query root"},
		{"unknown level", "logging: {level: loud}", "unknown log level"},
		{"unknown format", "logging: {format: xml}", "text or json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestStoreConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.cue"), []byte(`package site

attribute: ScannerProtocolName: { tag: "(0019,10A0)", vr: "LO", level: "SERIES" }
`), 0644))

	cfg := Default()
	cfg.Database.DSN = filepath.Join(dir, "catalog.db")
	cfg.Catalog.Model = model.ConcatenationName
	cfg.Catalog.DictionaryDir = dir

	sc, err := cfg.StoreConfig()
	require.NoError(t, err)

	assert.Equal(t, cfg.Database.DSN, sc.DSN)
	assert.Equal(t, model.ConcatenationName, sc.Model.Name())
	assert.True(t, sc.PersonNames)
	_, ok := sc.Dictionary.ByKeyword("ScannerProtocolName")
	assert.True(t, ok)
}

func TestStoreConfigBadDictionary(t *testing.T) {
	cfg := Default()
	cfg.Catalog.DictionaryDir = filepath.Join(t.TempDir(), "missing")

	_, err := cfg.StoreConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load dictionary")
}
