package dbclient

import (
	"context"
	"fmt"
	"log"
	"sync"

	"barrel/internal/barrel"
)

// MemoryStore keeps inserted rows in process. It backs dry runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[string][]barrel.Record
	calls []string
	fail  map[string]error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string][]barrel.Record),
		fail: make(map[string]error),
	}
}

// FailTable makes every later insert into table return err.
func (m *MemoryStore) FailTable(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[table] = err
}

// Rows returns the rows stored in table, keyed by column name.
func (m *MemoryStore) Rows(table string) []barrel.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]barrel.Record(nil), m.rows[table]...)
}

// Calls returns one entry per insert call, in order, formatted "table:n".
func (m *MemoryStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) InsertFunc(schema *barrel.Schema, cb barrel.Callback) barrel.InsertFunc {
	cols := columnsOf(schema)
	table := schema.Table

	return func(ctx context.Context, records []barrel.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows := make([]barrel.Record, len(records))
		for i, rec := range records {
			rows[i] = rowOf(cols, rec)
		}

		m.mu.Lock()
		m.calls = append(m.calls, fmt.Sprintf("%s:%d", table, len(rows)))
		if err := m.fail[table]; err != nil {
			m.mu.Unlock()
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		m.rows[table] = append(m.rows[table], rows...)
		m.mu.Unlock()

		log.Printf("[MEMORY] stored %d row(s) in %s", len(rows), table)

		if cb == nil {
			return nil
		}
		for _, row := range rows {
			if err := cb(ctx, row); err != nil {
				return err
			}
		}
		return nil
	}
}
