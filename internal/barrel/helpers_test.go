package barrel_test

import (
	"bytes"
	"context"
	"log"
	"strconv"
	"strings"
	"sync"

	"barrel/internal/barrel"
)

// insertCall is one recorded invocation of an insert function.
type insertCall struct {
	Schema  string
	Records []barrel.Record
}

// fakeBackend records every insert and echoes rows back to callbacks keyed
// by column name, the way a RETURNING clause would.
type fakeBackend struct {
	mu          sync.Mutex
	calls       []insertCall
	fail        map[string]error
	inFlight    int
	maxInFlight int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fail: make(map[string]error)}
}

func (f *fakeBackend) InsertFunc(schema *barrel.Schema, cb barrel.Callback) barrel.InsertFunc {
	return func(ctx context.Context, records []barrel.Record) error {
		f.mu.Lock()
		f.inFlight++
		if f.inFlight > f.maxInFlight {
			f.maxInFlight = f.inFlight
		}
		f.calls = append(f.calls, insertCall{Schema: schema.Name, Records: records})
		err := f.fail[schema.Name]
		f.mu.Unlock()

		defer func() {
			f.mu.Lock()
			f.inFlight--
			f.mu.Unlock()
		}()

		if err != nil {
			return err
		}
		if cb == nil {
			return nil
		}
		for _, rec := range records {
			row := make(barrel.Record, len(schema.Properties))
			for _, p := range schema.Properties {
				row[p.Name] = rec[p.RecordKey()]
			}
			if err := cb(ctx, row); err != nil {
				return err
			}
		}
		return nil
	}
}

func (f *fakeBackend) schemas() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.Schema
	}
	return names
}

func newTestBarrel(backend barrel.Backend) (*barrel.Barrel, *bytes.Buffer) {
	var buf bytes.Buffer
	return barrel.New(backend, barrel.WithLogger(log.New(&buf, "", 0))), &buf
}

func countLines(buf *bytes.Buffer, substr string) int {
	n := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func static(v any) barrel.Value { return barrel.Literal(v) }

// counter returns a generator yielding prefix1, prefix2, ...
func counter(prefix string) barrel.Value {
	n := 0
	return barrel.Generate(func(barrel.Record, string) (any, error) {
		n++
		return prefix + strconv.Itoa(n), nil
	})
}
