package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// Dialect names the SQL flavour a store speaks.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type idSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *idSource) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// Option configures a SQLStore.
type Option func(*SQLStore)

// WithDefaultRelevance sets the relevance given to tags and taggings
// created without one.
func WithDefaultRelevance(r float64) Option {
	return func(s *SQLStore) { s.defaultRelevance = &r }
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	q       dbtx
	dialect Dialect
	path    string
	ids     *idSource

	defaultRelevance *float64
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newSQLStore(db, SQLite, dbPath, opts)
}

func newSQLStore(db *sql.DB, dialect Dialect, path string, opts []Option) (*SQLStore, error) {
	s := &SQLStore{
		db:      db,
		q:       db,
		dialect: dialect,
		path:    path,
		ids: &idSource{
			entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Dialect returns the SQL flavour of the store.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

// Path returns the database file path; empty for PostgreSQL.
func (s *SQLStore) Path() string { return s.path }

func (s *SQLStore) newID() string { return s.ids.next() }

func (s *SQLStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS taggables (
		id           TEXT NOT NULL,
		type         TEXT NOT NULL,
		name         TEXT NOT NULL DEFAULT '',
		cached_lists TEXT,
		created_at   TEXT NOT NULL,
		PRIMARY KEY (type, id)
	);
	CREATE INDEX IF NOT EXISTS idx_taggables_created ON taggables(type, created_at);

	CREATE TABLE IF NOT EXISTS tags (
		id        TEXT PRIMARY KEY,
		value     TEXT NOT NULL,
		value_key TEXT NOT NULL,
		type      TEXT NOT NULL DEFAULT 'tag',
		relevance DOUBLE PRECISION
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_type_key ON tags(type, value_key);

	CREATE TABLE IF NOT EXISTS taggings (
		id            TEXT PRIMARY KEY,
		tag_id        TEXT NOT NULL REFERENCES tags(id),
		taggable_id   TEXT NOT NULL,
		taggable_type TEXT NOT NULL,
		tagger_id     TEXT NOT NULL DEFAULT '',
		tagger_type   TEXT NOT NULL DEFAULT '',
		relevance     DOUBLE PRECISION,
		created_at    TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_taggings_unique
		ON taggings(tag_id, taggable_id, taggable_type, tagger_id, tagger_type);
	CREATE INDEX IF NOT EXISTS idx_taggings_tag ON taggings(tag_id);
	CREATE INDEX IF NOT EXISTS idx_taggings_taggable ON taggings(taggable_id, taggable_type);
	CREATE INDEX IF NOT EXISTS idx_taggings_tagger ON taggings(tagger_id, tagger_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InTx runs fn in a transaction. Calls on a store already bound to a
// transaction run fn directly.
func (s *SQLStore) InTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	txs := *s
	txs.q = tx
	if err := fn(&txs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.rebind(query), args...)
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// valuesMatch renders "col IN (?, ...)" against the normalized form of
// values. col must be a value_key column.
func valuesMatch(col string, values []string) (string, []any) {
	if len(values) == 0 {
		return "1 = 0", nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = taglist.Normalize(v)
	}
	return col + " IN (" + placeholders(len(values)) + ")", args
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func conditionSQL(c *tagtype.Condition, col string) (string, []any) {
	if c == nil {
		return "", nil
	}
	return c.SQL(col)
}

type scanner interface {
	Scan(dest ...any) error
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return model.Float(n.Float64)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
