package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/match"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/querysql"
	"github.com/roach88/dcmindex/internal/schema"
	"github.com/roach88/dcmindex/internal/telemetry"
)

// Defaults applied by Open.
const (
	DefaultMaxOpenConns = 4
	closeTimeout        = 30 * time.Second
)

// Config configures Open. Only DSN is required.
type Config struct {
	// Driver names the dialect: "sqlite3" (default) or "duckdb".
	Driver string
	// DSN is the database location, e.g. a file path.
	DSN string
	// MaxOpenConns bounds the pool. Cursors keep a connection while open
	// and computed attributes need another, so at least 2 are used.
	MaxOpenConns int
	// Model defaults to model.Standard().
	Model model.Model
	// Dictionary defaults to dict.Default().
	Dictionary *dict.Dictionary
	// UserColumns is the number of USER_n columns created with a new
	// schema: 0 means schema.DefaultUserColumns, negative means none.
	UserColumns int
	// PersonNames enables canonical and phonetic name matching.
	PersonNames bool
	// Keys defaults to UUIDv7Generator.
	Keys KeyGenerator
	// Now stamps INSERTION_TIME; defaults to time.Now.
	Now func() time.Time
	// Registerer receives Prometheus metrics; nil disables them.
	Registerer prometheus.Registerer
	// RemoveFile deletes copied files; defaults to os.Remove.
	RemoveFile func(path string) error
}

// Store is the catalog: one table per level, synthesized from the model
// and dictionary, with ingestion, deletion, lookups, queries and retrieves.
//
// Mutations (insert, delete, schema widening) hold mu exclusively; every
// read statement holds it shared while executing, so a join never sees a
// mutation halfway through.
type Store struct {
	db          *sql.DB
	dialect     schema.Dialect
	model       model.Model
	dict        *dict.Dictionary
	compiler    *querysql.SQLCompiler
	keys        KeyGenerator
	now         func() time.Time
	removeFile  func(string) error
	personNames bool
	telemetry   *telemetry.Recorder
	aggregates  singleflight.Group

	mu      sync.RWMutex
	catalog *schema.Catalog
	closed  bool
}

// Open connects to the database, creates the schema if no level table
// exists and loads the column catalog. Failures are configuration errors.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect, err := schema.DialectFor(cfg.Driver)
	if err != nil {
		return nil, configurationError("unknown driver", err)
	}
	if cfg.DSN == "" {
		return nil, configurationError("missing database location", nil)
	}
	if cfg.Model == nil {
		cfg.Model = model.Standard()
	}
	if cfg.Dictionary == nil {
		cfg.Dictionary = dict.Default()
	}
	if cfg.Keys == nil {
		cfg.Keys = UUIDv7Generator{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RemoveFile == nil {
		cfg.RemoveFile = os.Remove
	}
	userColumns := cfg.UserColumns
	switch {
	case userColumns == 0:
		userColumns = schema.DefaultUserColumns
	case userColumns < 0:
		userColumns = 0
	}
	maxConns := cfg.MaxOpenConns
	if maxConns == 0 {
		maxConns = DefaultMaxOpenConns
	}
	if maxConns < 2 {
		maxConns = 2
	}

	db, err := sql.Open(dialect.Name(), dialect.DSN(cfg.DSN))
	if err != nil {
		return nil, configurationError("failed to open database", err)
	}

	// Verify connection works
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, configurationError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := dialect.Prepare(ctx, db); err != nil {
		db.Close()
		return nil, configurationError("failed to prepare database", err)
	}

	cat, created, err := schema.Ensure(ctx, db, dialect, cfg.Model, cfg.Dictionary, userColumns)
	if err != nil {
		db.Close()
		return nil, configurationError("failed to apply schema", err)
	}
	slog.Debug("catalog opened",
		"driver", dialect.Name(),
		"model", cfg.Model.Name(),
		"created", created,
		"tables", len(cat.Tables()))

	return &Store{
		db:          db,
		dialect:     dialect,
		model:       cfg.Model,
		dict:        cfg.Dictionary,
		compiler:    querysql.NewSQLCompiler(),
		keys:        cfg.Keys,
		now:         cfg.Now,
		removeFile:  cfg.RemoveFile,
		personNames: cfg.PersonNames,
		telemetry:   telemetry.NewRecorder(cfg.Registerer),
		catalog:     cat,
	}, nil
}

// Close compacts the database and closes the pool. Compaction failures
// are logged, not returned.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.dialect.Compact(ctx, s.db); err != nil {
		slog.Warn("compaction failed on close", "driver", s.dialect.Name(), "error", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// checkOpen fails once Close has run. Callers hold mu.
func (s *Store) checkOpen(op string) error {
	if s.closed {
		return unableToProcess(op, ErrClosed)
	}
	return nil
}

// DB returns the underlying pool for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Model returns the hierarchy the store was opened with.
func (s *Store) Model() model.Model {
	return s.model
}

// Dictionary returns the attribute dictionary.
func (s *Store) Dictionary() *dict.Dictionary {
	return s.dict
}

// Catalog returns the current column catalog.
func (s *Store) Catalog() *schema.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Stats returns per-operation counts and latency quantiles.
func (s *Store) Stats() []telemetry.OpStats {
	return s.telemetry.Snapshot()
}

// planner returns a planner over the current catalog.
func (s *Store) planner(cat *schema.Catalog) *match.Planner {
	return &match.Planner{
		Model:       s.model,
		Dictionary:  s.dict,
		Columns:     cat,
		PersonNames: s.personNames,
	}
}

// AddColumn widens the table of level by one column.
func (s *Store) AddColumn(ctx context.Context, level model.Level, column string, st dict.StorageType) (err error) {
	ctx, finish := s.telemetry.Start(ctx, "add_column")
	defer func() { finish(err) }()

	if !s.model.Has(level) {
		return &Error{Code: ErrCodeModelMismatch, Message: fmt.Sprintf("unknown level %q", level)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("add column"); err != nil {
		return err
	}

	cat, err := schema.AddColumn(ctx, s.db, s.dialect, s.catalog, schema.TableFor(level), column, st)
	if err != nil {
		return unableToProcess("add column", err)
	}
	s.catalog = cat
	return nil
}
