package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"time"

	"jobflow/internal/config"
	"jobflow/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

// Pool is the pgx-backed database.DB.
type Pool struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// ConnString renders cfg as a postgres:// URL. applicationName tags the
// sessions in pg_stat_activity.
func ConnString(cfg config.DatabaseConfig, applicationName string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(strings.TrimSpace(cfg.DBHost), strings.TrimSpace(cfg.DBPort)),
		Path:   "/" + strings.TrimSpace(cfg.DBName),
	}
	if cfg.DBPassword != "" {
		u.User = url.UserPassword(strings.TrimSpace(cfg.DBUser), cfg.DBPassword)
	} else {
		u.User = url.User(strings.TrimSpace(cfg.DBUser))
	}

	q := url.Values{}
	if mode := strings.TrimSpace(cfg.DBSSLMode); mode != "" {
		q.Set("sslmode", mode)
	}
	if applicationName != "" {
		q.Set("application_name", applicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func Connect(ctx context.Context, cfg config.DatabaseConfig, applicationName string, logger *log.Logger) (database.DB, error) {
	if logger == nil {
		logger = log.Default()
	}

	pcfg, err := pgxpool.ParseConfig(ConnString(cfg, applicationName))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	applyPoolSettings(pcfg, cfg)

	p, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database host=%s db=%s: %w", cfg.DBHost, cfg.DBName, err)
	}

	logger.Printf("[Database] connected host=%s db=%s max_conns=%d", cfg.DBHost, cfg.DBName, pcfg.MaxConns)
	return &Pool{pool: p, sqlDB: stdlib.OpenDBFromPool(p)}, nil
}

func applyPoolSettings(pcfg *pgxpool.Config, cfg config.DatabaseConfig) {
	if cfg.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.PoolMaxConns > 0 {
		pcfg.MaxConns = cfg.PoolMaxConns
	}
	if cfg.PoolMinConns > 0 {
		pcfg.MinConns = cfg.PoolMinConns
	}
	if cfg.PoolMaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.PoolMaxConnLifetime
	}
	if cfg.PoolMaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = cfg.PoolMaxConnIdleTime
	}
	if cfg.PoolHealthCheckPeriod > 0 {
		pcfg.HealthCheckPeriod = cfg.PoolHealthCheckPeriod
	}
}

// translate maps driver errors onto the database package sentinels, keeping
// the original in the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", database.ErrNoRows, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s: %w", database.ErrUniqueViolation, pgErr.ConstraintName, err)
	}
	return err
}

func (p *Pool) ready() bool {
	return p != nil && p.pool != nil
}

func (p *Pool) Ping(ctx context.Context) error {
	if !p.ready() {
		return database.ErrNilDB
	}
	return p.pool.Ping(ctx)
}

func (p *Pool) Close() error {
	if p == nil {
		return nil
	}
	if p.sqlDB != nil {
		_ = p.sqlDB.Close()
	}
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *Pool) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if !p.ready() {
		return 0, database.ErrNilDB
	}
	return execOn(ctx, p.pool, query, args...)
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	if !p.ready() {
		return nil, database.ErrNilDB
	}
	return queryOn(ctx, p.pool, query, args...)
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	if !p.ready() {
		return errRow{err: database.ErrNilDB}
	}
	return row{row: p.pool.QueryRow(ctx, query, args...)}
}

func (p *Pool) Begin(ctx context.Context) (database.Tx, error) {
	if !p.ready() {
		return nil, database.ErrNilDB
	}
	t, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx{tx: t}, nil
}

func (p *Pool) SQLDB() *sql.DB {
	if p == nil {
		return nil
	}
	return p.sqlDB
}

// pgxQuerier is the subset shared by *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func execOn(ctx context.Context, q pgxQuerier, sql string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func queryOn(ctx context.Context, q pgxQuerier, sql string, args ...any) (database.Rows, error) {
	r, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	return rows{rows: r}, nil
}

type tx struct {
	tx pgx.Tx
}

func (t tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return execOn(ctx, t.tx, sql, args...)
}

func (t tx) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	return queryOn(ctx, t.tx, sql, args...)
}

func (t tx) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return row{row: t.tx.QueryRow(ctx, sql, args...)}
}

func (t tx) Commit(ctx context.Context) error {
	return translate(t.tx.Commit(ctx))
}

func (t tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

type rows struct {
	rows pgx.Rows
}

func (r rows) Close()                 { r.rows.Close() }
func (r rows) Next() bool             { return r.rows.Next() }
func (r rows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r rows) Err() error             { return translate(r.rows.Err()) }

type row struct {
	row pgx.Row
}

func (r row) Scan(dest ...any) error {
	return translate(r.row.Scan(dest...))
}

type errRow struct {
	err error
}

func (r errRow) Scan(_ ...any) error {
	return r.err
}
