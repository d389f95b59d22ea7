package postgres

import (
	"context"
	"time"

	"couple-pairing-service/internal/domain"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"couple-pairing-service/internal/domain/ports/repository"
)

// NewPgxPool opens a pgx connection pool with the given size.
func NewPgxPool(ctx context.Context, url string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pgxpool.ConnectConfig(ctx, cfg)
}

// executor is the subset of pgx query methods shared by pools, connections
// and transactions. Repositories resolve one via the qx argument so the same
// method works inside and outside a transaction.
type executor interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func pickExecutor(pool *pgxpool.Pool, qx repository.Tx) (executor, error) {
	switch v := qx.(type) {
	case pgx.Tx:
		return v, nil
	case *pgxpool.Conn:
		return v, nil
	case *pgxpool.Pool:
		return v, nil
	case nil:
		if pool != nil {
			return pool, nil
		}
		return nil, domain.ErrInvalidArgument
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

func pickRow(ctx context.Context, pool *pgxpool.Pool, qx repository.Tx, sql string, args ...interface{}) pgx.Row {
	ex, err := pickExecutor(pool, qx)
	if err != nil {
		return errRow{err}
	}
	return ex.QueryRow(ctx, sql, args...)
}

// errRow defers an executor-resolution failure to Scan time so call sites
// keep the one-line row.Scan shape.
type errRow struct{ err error }

func (r errRow) Scan(dest ...interface{}) error { return r.err }

// isUniqueViolation reports whether err is a Postgres 23505 on the named
// constraint ("" matches any unique violation).
func isUniqueViolation(err error, constraint string) bool {
	pgErr, ok := err.(*pgconn.PgError)
	if !ok {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
