package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/security"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BigQuery runs SQL against a GCP project, dry-running first so the cost
// tracker can refuse oversized scans before any bytes are billed. A read-only
// BigQuery also refuses any dry run whose statement type is not SELECT.
type BigQuery struct {
	client   *bigquery.Client
	location string
	cost     *security.CostTracker
	readOnly bool
}

func NewBigQuery(ctx context.Context, projectID, credentialsFile, location string, cost *security.CostTracker, readOnly bool) (*BigQuery, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	client.Location = location

	return &BigQuery{client: client, location: location, cost: cost, readOnly: readOnly}, nil
}

func (s *BigQuery) Close() error {
	return s.client.Close()
}

// TestConnection verifies BigQuery connectivity
func (s *BigQuery) TestConnection(ctx context.Context) error {
	q := s.client.Query("SELECT 1")
	q.DryRun = true
	_, err := q.Run(ctx)
	return err
}

func (s *BigQuery) query(stmt string, params []any) *bigquery.Query {
	q := s.client.Query(stmt)
	for _, p := range params {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Value: p})
	}
	return q
}

func (s *BigQuery) Query(ctx context.Context, stmt string, params []any, maxRows int) (*QueryResult, error) {
	if s.cost != nil || s.readOnly {
		dry := s.query(stmt, params)
		dry.DryRun = true
		job, err := dry.Run(ctx)
		if err != nil {
			return nil, bqError(err)
		}
		var (
			scanned   int64
			statement string
		)
		if st := job.LastStatus(); st != nil && st.Statistics != nil {
			scanned = st.Statistics.TotalBytesProcessed
			if qs, ok := st.Statistics.Details.(*bigquery.QueryStatistics); ok {
				statement = qs.StatementType
			}
		}
		if s.readOnly && statement != "SELECT" {
			return nil, result.InvalidArgument("only read queries are allowed (set DATABASE_ALLOW_WRITES to permit writes)").
				With("statement_type", statement)
		}
		if s.cost != nil {
			if err := s.cost.CheckLimits(scanned); err != nil {
				return nil, result.InvalidArgument("%s", err.Error()).With("bytes_processed", scanned)
			}
		}
	}

	start := time.Now()
	job, err := s.query(stmt, params).Run(ctx)
	if err != nil {
		return nil, bqError(err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, bqError(err)
	}
	if err := status.Err(); err != nil {
		return nil, bqError(err)
	}

	out := &QueryResult{JobID: job.ID(), Rows: []map[string]any{}}
	if stats := job.LastStatus().Statistics; stats != nil {
		out.BytesProcessed = stats.TotalBytesProcessed
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, bqError(err)
	}
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, bqError(err)
		}
		if out.Columns == nil && it.Schema != nil {
			for _, f := range it.Schema {
				out.Columns = append(out.Columns, f.Name)
			}
		}
		if len(out.Rows) >= maxRows {
			out.Truncated = true
			break
		}
		m := make(map[string]any, len(row))
		for k, v := range row {
			m[k] = jsonValue(v)
		}
		out.Rows = append(out.Rows, m)
	}
	if s.cost != nil {
		s.cost.LogQueryCost(stmt, out.BytesProcessed, time.Since(start).Milliseconds())
	}
	return out, nil
}

func bqError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return googleError("bigquery", err)
	}
	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) {
		return result.ProviderFailure("bigquery", 0, "bigquery error: "+bqErr.Message).With("reason", bqErr.Reason)
	}
	return fmt.Errorf("bigquery: %w", err)
}
