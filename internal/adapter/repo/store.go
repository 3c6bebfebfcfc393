package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Markko1982/order-manager/internal/usecase"

	// drivers for the supported dialects
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store owns the connection pool and the transaction boundary. Product and
// order repositories share it so their writes can join one transaction.
type Store struct {
	db *sql.DB
	d  dialect
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects, pings and migrates. driver is mysql, postgres or sqlite.
func Open(ctx context.Context, driver, dsn string, opt Options) (*Store, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("repo: open %s: %w", d.name, err)
	}

	if d.name == "sqlite" {
		// one writer; also keeps a :memory: database alive across calls
		db.SetMaxOpenConns(1)
	} else {
		if opt.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opt.MaxOpenConns)
		}
		if opt.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opt.MaxIdleConns)
		}
		if opt.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opt.ConnMaxLifetime)
		}
	}

	s := &Store{db: db, d: d}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repo: ping %s: %w", d.name, err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Dialect() string { return s.d.name }

// WithinTx runs fn in a transaction carried by ctx. Nested calls join the
// outer transaction. Any error or panic from fn rolls everything back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q(ctx).ExecContext(ctx, s.d.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q(ctx).QueryContext(ctx, s.d.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q(ctx).QueryRowContext(ctx, s.d.rebind(query), args...)
}

// insert runs an INSERT and returns the generated id.
func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s.d.returning {
		var id int64
		if err := s.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// nullableString stores NULL instead of an empty TEXT.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ usecase.TxManager = (*Store)(nil)
