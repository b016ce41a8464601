// Package barrel generates seed records from declarative schemas and inserts
// them, in the order they were generated, through a pluggable backend.
//
// A Barrel owns three pieces of state: the schema registry, an append-only
// pool of generated records, and a FIFO queue of batches. Each batch is a
// contiguous range of the pool plus the function that persists it. Because
// the pool only grows, a batch's range stays valid after later appends.
package barrel

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// InsertFunc persists a batch of materialized records. Single-record batches
// are passed as a one-element slice.
type InsertFunc func(ctx context.Context, records []Record) error

// Callback receives the persisted representation of an inserted record,
// keyed by column (external) name.
type Callback func(ctx context.Context, inserted Record) error

// Backend builds insert functions for schemas.
type Backend interface {
	// InsertFunc returns a function that writes records of schema. When cb is
	// non-nil it must be called with each inserted row before the function returns.
	InsertFunc(schema *Schema, cb Callback) InsertFunc
}

// Option configures a Barrel.
type Option func(*Barrel)

// WithLogger routes engine logs to l.
func WithLogger(l *log.Logger) Option {
	return func(b *Barrel) { b.logger = l }
}

// Barrel is one seeding session: construct it, register schemas, generate,
// Insert, discard.
type Barrel struct {
	backend Backend
	logger  *log.Logger

	schemasMu sync.RWMutex
	schemas   map[string]*Schema

	// mu keeps an append and the enqueue of its batch atomic.
	mu      sync.Mutex
	records []Record
	queue   []*Batch
	nextSeq int

	// refDepth is the number of References generations in progress.
	refDepth atomic.Int32
}

// New creates an empty Barrel writing through backend.
func New(backend Backend, opts ...Option) *Barrel {
	b := &Barrel{
		backend: backend,
		logger:  log.Default(),
		schemas: make(map[string]*Schema),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Barrel) logf(format string, args ...any) {
	b.logger.Printf(format, args...)
}
