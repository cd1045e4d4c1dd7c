// Package repository is the SQL data access layer. Every method that may run
// inside a sale transaction takes the query handle explicitly so the caller
// decides whether it is the pool or an open transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pharmapos/m/domain"
)

// ErrVersionConflict is returned when a conditional inventory or sale update
// matched no row because another writer got there first.
var ErrVersionConflict = errors.New("version conflict")

// Tx is an open transaction. *sqlx.Tx satisfies it.
type Tx interface {
	sqlx.ExtContext
	Commit() error
	Rollback() error
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// Repository reads and writes every persisted entity.
type Repository struct {
	db                *sqlx.DB
	lowStockThreshold int64
}

func New(db *sqlx.DB, lowStockThreshold int64) *Repository {
	if lowStockThreshold <= 0 {
		lowStockThreshold = domain.DefaultLowStockThreshold
	}
	return &Repository{db: db, lowStockThreshold: lowStockThreshold}
}

// DB exposes the pool for calls made outside a transaction.
func (r *Repository) DB() sqlx.ExtContext {
	return r.db
}

func (r *Repository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapErr(ctx, err, "begin transaction")
	}
	return tx, nil
}

// mapErr translates driver errors into the domain error classes.
func mapErr(ctx context.Context, err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrTimeout, what, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s: %s", domain.ErrAlreadyExists, what, pgErr.Detail)
		case "23503", "23514":
			return fmt.Errorf("%w: %s: %s", domain.ErrValidation, what, pgErr.Message)
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code, msg := liteErr.Code(), liteErr.Error()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			strings.Contains(msg, "UNIQUE constraint failed"):
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, what)
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY || code == sqlite3.SQLITE_CONSTRAINT_CHECK ||
			strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "CHECK constraint failed"):
			return fmt.Errorf("%w: %s: %s", domain.ErrValidation, what, msg)
		}
	}

	return fmt.Errorf("%s: %w", what, err)
}

func limitOffset(p Page) (int, int) {
	limit := p.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// expectOne turns an update that matched nothing into ErrNotFound.
func expectOne(ctx context.Context, res sql.Result, what string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return mapErr(ctx, err, what)
	}
	if rows == 0 {
		return domain.NotFoundf("%s", what)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
