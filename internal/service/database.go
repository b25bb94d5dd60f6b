package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/toolrelay/toolrelay/internal/result"
	_ "modernc.org/sqlite"
)

// QueryResult holds the rows of one SQL execution.
type QueryResult struct {
	Columns        []string         `json:"columns"`
	Rows           []map[string]any `json:"rows"`
	Truncated      bool             `json:"truncated"`
	RowsAffected   int64            `json:"rows_affected,omitempty"`
	BytesProcessed int64            `json:"bytes_processed,omitempty"`
	JobID          string           `json:"job_id,omitempty"`
}

// SQLDatabase is a connection pool that can run ad-hoc statements.
type SQLDatabase interface {
	Query(ctx context.Context, stmt string, params []any, maxRows int) (*QueryResult, error)
	TestConnection(ctx context.Context) error
	Close() error
}

// OpenDatabase picks a driver from the URL scheme. Connections are made
// lazily; a bad URL fails here, an unreachable server fails on first use.
// With readOnly set the database itself refuses writes, whatever the
// statement looks like.
func OpenDatabase(ctx context.Context, rawURL string, readOnly bool) (SQLDatabase, error) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return NewPostgres(ctx, rawURL, readOnly)
	case strings.HasPrefix(rawURL, "sqlite:"), strings.HasPrefix(rawURL, "file:"):
		return NewSQLite(sqliteDSN(rawURL), readOnly)
	}
	scheme, _, _ := strings.Cut(rawURL, ":")
	return nil, fmt.Errorf("unsupported database scheme %q", scheme)
}

// sqliteDSN maps sqlite:///abs/path.db and sqlite://rel.db onto a path the
// modernc driver accepts. file: URIs pass through.
func sqliteDSN(rawURL string) string {
	if strings.HasPrefix(rawURL, "file:") {
		return rawURL
	}
	dsn := strings.TrimPrefix(rawURL, "sqlite:")
	return strings.TrimPrefix(dsn, "//")
}

// ─── Postgres ─────────────────────────────────────────────────────────────────

// Postgres runs statements through a pgx connection pool. A read-only
// Postgres wraps every statement in a READ ONLY transaction.
type Postgres struct {
	pool     *pgxpool.Pool
	readOnly bool
}

func NewPostgres(ctx context.Context, url string, readOnly bool) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	return &Postgres{pool: pool, readOnly: readOnly}, nil
}

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (p *Postgres) Query(ctx context.Context, stmt string, params []any, maxRows int) (*QueryResult, error) {
	if !p.readOnly {
		return pgQuery(ctx, p.pool, stmt, params, maxRows)
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, pgError(err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))
	return pgQuery(ctx, tx, stmt, params, maxRows)
}

func pgQuery(ctx context.Context, q pgQuerier, stmt string, params []any, maxRows int) (*QueryResult, error) {
	rows, err := q.Query(ctx, stmt, params...)
	if err != nil {
		return nil, pgError(err)
	}
	defer rows.Close()

	out := &QueryResult{Rows: []map[string]any{}}
	for _, f := range rows.FieldDescriptions() {
		out.Columns = append(out.Columns, f.Name)
	}

	for rows.Next() {
		if len(out.Rows) >= maxRows {
			out.Truncated = true
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, pgError(err)
		}
		out.Rows = append(out.Rows, rowMap(out.Columns, vals))
	}
	if !out.Truncated {
		if err := rows.Err(); err != nil {
			return nil, pgError(err)
		}
		out.RowsAffected = rows.CommandTag().RowsAffected()
	}
	return out, nil
}

func (p *Postgres) TestConnection(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return result.ProviderFailure("postgres", 0,
			fmt.Sprintf("postgres error %s: %s", pgErr.Code, pgErr.Message)).With("sqlstate", pgErr.Code)
	}
	return fmt.Errorf("postgres: %w", err)
}

// ─── SQLite ───────────────────────────────────────────────────────────────────

// SQLite runs statements against a local database file. A read-only
// SQLite switches each connection to query_only before running a statement.
type SQLite struct {
	db       *sql.DB
	readOnly bool
}

func NewSQLite(dsn string, readOnly bool) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLite{db: db, readOnly: readOnly}, nil
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLite) Query(ctx context.Context, stmt string, params []any, maxRows int) (*QueryResult, error) {
	if !s.readOnly {
		return sqliteQuery(ctx, s.db, stmt, params, maxRows)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, result.ProviderFailure("sqlite", 0, "sqlite error: "+err.Error())
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, result.ProviderFailure("sqlite", 0, "sqlite error: "+err.Error())
	}
	return sqliteQuery(ctx, conn, stmt, params, maxRows)
}

func sqliteQuery(ctx context.Context, q sqlQuerier, stmt string, params []any, maxRows int) (*QueryResult, error) {
	rows, err := q.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, result.ProviderFailure("sqlite", 0, "sqlite error: "+err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite columns: %w", err)
	}
	out := &QueryResult{Columns: cols, Rows: []map[string]any{}}

	for rows.Next() {
		if len(out.Rows) >= maxRows {
			out.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		out.Rows = append(out.Rows, rowMap(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, result.ProviderFailure("sqlite", 0, "sqlite error: "+err.Error())
	}
	return out, nil
}

func (s *SQLite) TestConnection(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func rowMap(cols []string, vals []any) map[string]any {
	m := make(map[string]any, len(cols))
	for i, c := range cols {
		if i < len(vals) {
			m[c] = jsonValue(vals[i])
		}
	}
	return m
}

// jsonValue converts driver values that encode poorly as JSON.
func jsonValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}
