package store

import (
	"github.com/pkg/errors"
)

// Open creates a store for the named driver: "sqlite" takes a file path,
// "postgres" a connection string.
func Open(driver, dsn string, opts ...Option) (*SQLStore, error) {
	var s *SQLStore
	var err error

	switch Dialect(driver) {
	case SQLite, "":
		s, err = NewSQLiteStore(dsn, opts...)
	case Postgres:
		s, err = NewPostgresStore(dsn, opts...)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create store")
	}
	return s, nil
}
