package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/security"
	"github.com/toolrelay/toolrelay/internal/service"
)

type DatabaseOptions struct {
	Validator *security.SQLValidator
	// Masker, when set, masks sensitive columns in returned rows.
	Masker  *security.DataMasker
	MaxRows int
	Audit   *security.AuditLogger
}

var databaseProviders = providers[service.SQLDatabase]{
	order: []string{"default", "bigquery"},
	keys: map[string][]string{
		"default":  {config.EnvDatabaseURL},
		"bigquery": {config.EnvGCPProjectID},
	},
}

// DatabaseQueryTool runs a SQL statement against the configured database or
// BigQuery.
func DatabaseQueryTool(dbs map[string]service.SQLDatabase, opts DatabaseOptions) Tool {
	p := databaseProviders
	p.impl = dbs
	if opts.Validator == nil {
		opts.Validator = security.NewSQLValidator(false)
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = config.DefaultDatabaseMaxRows
	}

	return Tool{
		Name:        "database_query",
		Description: "Run a SQL query against the configured database (default) or BigQuery. Read-only unless writes are enabled.",
		InputSchema: object([]string{"query"}, props{
			"query":    stringProp("SQL statement; use $1, $2 (postgres), ? (sqlite) or @p1 (bigquery) placeholders for params"),
			"database": enumProp("Target database", "default", "default", "bigquery"),
			"timeout":  intProp("Timeout in seconds", config.DefaultQueryTimeout, 1, config.DefaultMaxQueryTimeout),
			"params":   {Type: "array", Description: "Positional query parameters"},
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if err := p.gate(); err != nil {
				return nil, err
			}
			database, err := args.OneOf(input, "database", "default", p.order...)
			if err != nil {
				return nil, err
			}
			db, err := p.get(database)
			if err != nil {
				return nil, err
			}

			query, err := args.RequireString(input, "query")
			if err != nil {
				return nil, err
			}
			timeout, err := args.IntInRange(input, "timeout", config.DefaultQueryTimeout, 1, config.DefaultMaxQueryTimeout)
			if err != nil {
				return nil, err
			}
			params, err := args.ListOf(input, "params")
			if err != nil {
				return nil, err
			}
			if err := opts.Validator.Validate(query); err != nil {
				return nil, result.InvalidArgument("%v", err).With("argument", "query")
			}

			qctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
			defer cancel()

			start := time.Now()
			res, err := db.Query(qctx, query, params, opts.MaxRows)
			elapsed := time.Since(start).Milliseconds()
			if err != nil {
				if errors.Is(qctx.Err(), context.DeadlineExceeded) {
					err = result.ProviderFailure(database, 0, fmt.Sprintf("query timed out after %ds", timeout))
				}
				opts.Audit.LogQuery(query, database, Caller(ctx), elapsed, 0, false, err.Error())
				return nil, err
			}
			opts.Audit.LogQuery(query, database, Caller(ctx), elapsed, len(res.Rows), true, "")

			rows := res.Rows
			if rows == nil {
				rows = []map[string]any{}
			}
			columns := res.Columns
			if columns == nil {
				columns = []string{}
			}

			out := map[string]any{
				"database":          database,
				"columns":           columns,
				"row_count":         len(rows),
				"truncated":         res.Truncated,
				"execution_time_ms": elapsed,
			}
			if opts.Masker != nil {
				var masked []string
				rows, masked = opts.Masker.MaskRows(columns, rows)
				if len(masked) > 0 {
					out["masked_columns"] = masked
				}
			}
			out["rows"] = rows
			if res.RowsAffected > 0 {
				out["rows_affected"] = res.RowsAffected
			}
			if res.BytesProcessed > 0 {
				out["bytes_processed"] = res.BytesProcessed
				out["estimated_cost_usd"] = security.EstimateUSD(res.BytesProcessed)
			}
			if res.JobID != "" {
				out["job_id"] = res.JobID
			}
			return out, nil
		},
	}
}
