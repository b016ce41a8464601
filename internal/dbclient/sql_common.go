package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"barrel/internal/barrel"
)

// dialect holds what differs between the SQL engines.
type dialect struct {
	driverName  string
	placeholder func(n int) string
	quote       func(ident string) string
	// returning reports whether INSERT ... RETURNING is supported.
	returning bool
	encode    func(v any) (any, error)
}

// sqlStore is the shared Store implementation for MySQL, Postgres, and SQLite.
type sqlStore struct {
	dialect dialect
	db      *sql.DB
}

// newSQLStore opens a generic SQL store.
func newSQLStore(d dialect, dsn string) (*sqlStore, error) {
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driverName, err)
	}
	if d.driverName == "sqlite" {
		// SQLite only supports one writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)
	}
	return &sqlStore{dialect: d, db: db}, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// InsertFunc writes each batch with one multi-row INSERT inside a transaction.
// With a callback, engines that support RETURNING report the rows as stored;
// the others report the rows as written.
func (s *sqlStore) InsertFunc(schema *barrel.Schema, cb barrel.Callback) barrel.InsertFunc {
	cols := columnsOf(schema)
	table := schema.Table
	returning := cb != nil && s.dialect.returning

	return func(ctx context.Context, records []barrel.Record) error {
		if len(records) == 0 {
			return nil
		}
		query, args, err := buildInsert(s.dialect, table, cols, records, returning)
		if err != nil {
			return err
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		var inserted []barrel.Record
		if returning {
			rows, err := tx.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
			inserted, err = scanRecords(rows)
			if err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
		} else {
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
			if cb != nil {
				for _, rec := range records {
					inserted = append(inserted, rowOf(cols, rec))
				}
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		log.Printf("[SQL] inserted %d row(s) into %s", len(records), table)

		if cb == nil {
			return nil
		}
		for _, row := range inserted {
			if err := cb(ctx, row); err != nil {
				return err
			}
		}
		return nil
	}
}

// buildInsert renders a multi-row INSERT for records and its arguments.
func buildInsert(d dialect, table string, cols []column, records []barrel.Record, returning bool) (string, []any, error) {
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("table %s has no columns", table)
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = d.quote(c.name)
	}
	columnList := strings.Join(names, ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.quote(table), columnList)

	args := make([]any, 0, len(cols)*len(records))
	for i, rec := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, c := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			v, err := d.encode(rec[c.key])
			if err != nil {
				return "", nil, fmt.Errorf("encode %s.%s: %w", table, c.name, err)
			}
			args = append(args, v)
			b.WriteString(d.placeholder(len(args)))
		}
		b.WriteByte(')')
	}

	if returning {
		fmt.Fprintf(&b, " RETURNING %s", columnList)
	}
	return b.String(), args, nil
}

// scanRecords reads every row into a record keyed by column name.
func scanRecords(rows *sql.Rows) ([]barrel.Record, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []barrel.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := make(barrel.Record, len(cols))
		for i, name := range cols {
			rec[name] = formatValue(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// formatValue converts driver byte slices to strings.
func formatValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// isComposite reports whether v is a slice, array, or map other than []byte.
func isComposite(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// encodeJSON stores composite values as JSON text.
func encodeJSON(v any) (any, error) {
	if !isComposite(v) {
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func questionMark(int) string { return "?" }

func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
