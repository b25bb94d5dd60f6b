package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
)

func newSQLite(t *testing.T) service.SQLDatabase {
	t.Helper()
	return seedSQLite(t, "sqlite://"+filepath.Join(t.TempDir(), "test.db"))
}

func seedSQLite(t *testing.T, url string) service.SQLDatabase {
	t.Helper()
	db, err := service.OpenDatabase(context.Background(), url, false)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT, email TEXT)`,
		`INSERT INTO customers (name, email) VALUES ('Ada', 'ada@acme.test'), ('Bob', 'bob@acme.test'), ('Cy', 'cy@acme.test')`,
	} {
		if _, err := db.Query(ctx, stmt, nil, 10); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	return db
}

func TestSQLiteQuery(t *testing.T) {
	db := newSQLite(t)

	res, err := db.Query(context.Background(), `SELECT id, name FROM customers WHERE name = ?`, []any{"Bob"}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[1] != "name" {
		t.Errorf("columns = %v", res.Columns)
	}
	if len(res.Rows) != 1 || res.Rows[0]["name"] != "Bob" {
		t.Errorf("rows = %v", res.Rows)
	}
}

func TestSQLiteQueryTruncates(t *testing.T) {
	db := newSQLite(t)

	res, err := db.Query(context.Background(), `SELECT name FROM customers ORDER BY id`, nil, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !res.Truncated || len(res.Rows) != 2 {
		t.Errorf("truncated = %v rows = %d, want true/2", res.Truncated, len(res.Rows))
	}
}

func TestSQLiteSyntaxErrorIsProviderError(t *testing.T) {
	db := newSQLite(t)

	_, err := db.Query(context.Background(), `SELEC nope`, nil, 10)
	if !result.IsKind(err, result.KindProviderError) {
		t.Errorf("err = %v, want provider_error", err)
	}
}

func TestSQLiteReadOnlyRefusesWrites(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "test.db")
	seedSQLite(t, url)

	ro, err := service.OpenDatabase(context.Background(), url, true)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	t.Cleanup(func() { ro.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`WITH x AS (SELECT 1) DELETE FROM customers`,
		`DELETE FROM customers`,
		`INSERT INTO customers (name) VALUES ('Eve')`,
	} {
		t.Run(stmt, func(t *testing.T) {
			if _, err := ro.Query(ctx, stmt, nil, 10); !result.IsKind(err, result.KindProviderError) {
				t.Errorf("err = %v, want provider_error", err)
			}
		})
	}

	res, err := ro.Query(ctx, `SELECT COUNT(*) AS n FROM customers`, nil, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if n := res.Rows[0]["n"]; n != int64(3) {
		t.Errorf("row count = %v, want 3", n)
	}
}

func TestOpenDatabaseUnsupportedScheme(t *testing.T) {
	_, err := service.OpenDatabase(context.Background(), "mysql://root@localhost/db", true)
	if err == nil {
		t.Fatal("expected error for mysql scheme")
	}
}
