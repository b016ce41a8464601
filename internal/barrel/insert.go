package barrel

import (
	"context"
	"errors"
	"time"
)

// InsertResult summarizes one Insert call.
type InsertResult struct {
	Status   string        `json:"status"` // "success" | "error" | "empty"
	Batches  int           `json:"batches"`
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Insert drains the batches queued when it is called and inserts them one at
// a time in queue order. Pending values of a batch are awaited right before
// its insert, so a reference whose target batch was queued earlier has
// already settled.
//
// The first failing batch stops the drain: every later batch is skipped, and
// each skipped batch is still reported with its range. The returned error is
// the failing batch's *InsertError.
//
// Batches queued while Insert runs (from callbacks) are not part of its
// snapshot. They wait for the next call, which may be made from the callback
// itself: a nested Insert drains only what was queued after the outer one
// took its snapshot.
func (b *Barrel) Insert(ctx context.Context) (*InsertResult, error) {
	start := time.Now()

	b.mu.Lock()
	batches := b.queue
	b.queue = nil
	b.mu.Unlock()

	result := &InsertResult{Batches: len(batches)}
	if len(batches) == 0 {
		result.Status = "empty"
		return result, nil
	}

	var failed error
	for _, bt := range batches {
		if failed != nil {
			b.logf("[BARREL] error inserting %s records[%d:%d): skipped after earlier failure", bt.Schema, bt.Begin, bt.End)
			result.Skipped++
			bt.abandon(failed)
			continue
		}

		if err := b.insertBatch(ctx, bt); err != nil {
			failed = &InsertError{Schema: bt.Schema, Sequence: bt.Sequence, Begin: bt.Begin, End: bt.End, Err: err}
			b.logf("[BARREL] error inserting %s records[%d:%d): %v", bt.Schema, bt.Begin, bt.End, err)
			bt.abandon(err)
			continue
		}

		result.Inserted++
		result.Records += bt.Len()
		bt.abandon(errors.New("backend did not report the inserted row"))
	}

	result.Duration = time.Since(start)
	if failed != nil {
		result.Status = "error"
		result.Error = failed.Error()
		b.logf("[BARREL] insert failed: %d of %d batch(es) inserted", result.Inserted, result.Batches)
		return result, failed
	}

	result.Status = "success"
	b.logf("[BARREL] inserted %d batch(es), %d record(s) in %s", result.Inserted, result.Records, result.Duration)
	return result, nil
}

func (b *Barrel) insertBatch(ctx context.Context, bt *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bt.Insert == nil {
		return errors.New("batch has no insert function")
	}

	records := b.Records(bt)
	resolved := make([]Record, len(records))
	for i, rec := range records {
		r, err := materialize(ctx, rec)
		if err != nil {
			return err
		}
		resolved[i] = r
	}

	return bt.Insert(ctx, resolved)
}
