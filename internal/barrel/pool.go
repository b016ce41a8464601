package barrel

import (
	"errors"
	"fmt"
)

// Batch is a queued unit of insertion: the half-open pool range
// [Begin, End) and the function that persists it.
type Batch struct {
	Begin    int
	End      int
	Sequence int
	Schema   string
	Insert   InsertFunc

	// waiters are reference values settled by this batch's callback.
	waiters []*Pending
}

// Len returns the number of records in the batch.
func (bt *Batch) Len() int { return bt.End - bt.Begin }

// abandon rejects every waiter that the batch did not resolve.
func (bt *Batch) abandon(cause error) {
	for _, p := range bt.waiters {
		p.Reject(fmt.Errorf("%w: %s records[%d:%d): %v", ErrUnresolvedReference, bt.Schema, bt.Begin, bt.End, cause))
	}
}

var errNoBackend = errors.New("barrel has no backend")

// CreateBatch appends records to the pool as one contiguous block and queues
// a batch for them.
func (b *Barrel) CreateBatch(records []Record, insert InsertFunc) *Batch {
	return b.enqueue("", records, insert, nil)
}

func (b *Barrel) enqueue(schema string, records []Record, insert InsertFunc, waiter *Pending) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	begin := len(b.records)
	b.records = append(b.records, records...)

	bt := &Batch{
		Begin:    begin,
		End:      len(b.records),
		Sequence: b.nextSeq,
		Schema:   schema,
		Insert:   insert,
	}
	if waiter != nil {
		bt.waiters = append(bt.waiters, waiter)
	}
	b.nextSeq++
	b.queue = append(b.queue, bt)
	return bt
}

// GenerateOne creates one record of the named schema and queues it as a
// single-record batch. cb, when set, receives the inserted row.
func (b *Barrel) GenerateOne(name string, overrides Record, cb Callback) (*Batch, error) {
	return b.generate(name, 1, overrides, cb, nil)
}

// GenerateMany creates count records of the named schema and queues them as
// one batch. overrides apply to every record.
func (b *Barrel) GenerateMany(name string, count int, overrides Record, cb Callback) (*Batch, error) {
	if count < 1 {
		return nil, fmt.Errorf("generate %s: count must be positive, got %d", name, count)
	}
	return b.generate(name, count, overrides, cb, nil)
}

// generate builds count records and queues them. waiter is set for the
// target batch of a reference. When the outermost call fails, the batches its
// references queued are dropped again, so a failed generation leaves the pool
// and queue as they were.
func (b *Barrel) generate(name string, count int, overrides Record, cb Callback, waiter *Pending) (*Batch, error) {
	schema, err := b.Schema(name)
	if err != nil {
		return nil, err
	}
	if b.backend == nil {
		return nil, fmt.Errorf("generate %s: %w", name, errNoBackend)
	}

	b.mu.Lock()
	firstSeq := b.nextSeq
	b.mu.Unlock()

	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		rec, err := createRecord(schema, overrides)
		if err != nil {
			err = fmt.Errorf("generate %s: %w", name, err)
			if waiter == nil {
				b.rollback(firstSeq, err)
			}
			return nil, err
		}
		records = append(records, rec)
	}

	insert := b.backend.InsertFunc(schema, cb)
	return b.enqueue(schema.Name, records, insert, waiter), nil
}

// rollback unqueues every batch with a sequence of at least firstSeq and, when
// those batches form the pool's tail, truncates the pool to where they began.
func (b *Barrel) rollback(firstSeq int, cause error) {
	b.mu.Lock()
	i := len(b.queue)
	for i > 0 && b.queue[i-1].Sequence >= firstSeq {
		i--
	}
	dropped := b.queue[i:]
	b.queue = b.queue[:i:i]
	if n := len(dropped); n > 0 && dropped[n-1].End == len(b.records) {
		b.records = b.records[:dropped[0].Begin]
	}
	b.mu.Unlock()

	for _, bt := range dropped {
		bt.abandon(cause)
	}
}

// Records returns the pool slice addressed by bt.
func (b *Barrel) Records(bt *Batch) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Record(nil), b.records[bt.Begin:bt.End]...)
}

// Len returns the number of records ever generated.
func (b *Barrel) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Queued returns the batches waiting for Insert, in queue order.
func (b *Barrel) Queued() []*Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Batch(nil), b.queue...)
}
