package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverMySQL    = "mysql"
	driverPostgres = "pgx"
)

var ErrNotFound = errors.New("not found")

// Store is the bot's database layer. The driver is selected by DSN prefix:
// sqlite:<path>, mysql:<dsn> or postgres:<dsn>.
type Store struct {
	db     *sql.DB
	driver string
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	var driver, arg string

	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		driver = driverSQLite
		arg = strings.TrimPrefix(dsn, "sqlite:")
	case strings.HasPrefix(dsn, "mysql:"):
		driver = driverMySQL
		arg = strings.TrimPrefix(dsn, "mysql:")
	case strings.HasPrefix(dsn, "postgres:"):
		driver = driverPostgres
		arg = strings.TrimPrefix(dsn, "postgres:")
	default:
		return nil, errors.Errorf("unsupported database dsn: %s", dsn)
	}

	db, err := sql.Open(driver, arg)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to open database connection")
	}

	err = db.PingContext(ctx)
	if err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			err = errors.WithMessagef(err, "additionally failed to close database: %s", closeErr)
		}

		return nil, errors.WithMessage(err, "failed to ping database")
	}

	if driver == driverSQLite {
		// A single writer avoids SQLITE_BUSY from concurrent webhook turns.
		db.SetMaxOpenConns(1)
		_, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON")
		if err != nil {
			return nil, errors.WithMessage(err, "failed to enable foreign keys")
		}
	}

	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping is used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// q rewrites ? placeholders for the drivers that use numbered ones.
func (s *Store) q(query string) string {
	if s.driver != driverPostgres {
		return query
	}

	b := strings.Builder{}
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)

			continue
		}
		b.WriteRune(c)
	}

	return b.String()
}

// insert runs an INSERT and returns the generated id, using RETURNING where
// LastInsertId is not supported.
func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s.driver == driverPostgres {
		var id int64
		err := s.db.QueryRowContext(ctx, s.q(query+" RETURNING id"), args...).Scan(&id)

		return id, err
	}

	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}
