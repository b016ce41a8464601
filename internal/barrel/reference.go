package barrel

import (
	"context"
	"fmt"
)

// MaxReferenceDepth bounds how many References a single generation may nest.
const MaxReferenceDepth = 64

// References returns a value that, for every record it is resolved for,
// generates one record of the target schema and queues it as a single-record
// batch. Since this happens while the referencing record is being built, the
// target batch is always queued, and therefore inserted, before the
// referencing batch. The value is a *Pending that resolves to the inserted
// target row's keyColumn. A chain of references deeper than MaxReferenceDepth
// fails with ErrReferenceDepth.
func (b *Barrel) References(target, keyColumn string) Value {
	return Generate(func(_ Record, _ string) (any, error) {
		if depth := b.refDepth.Add(1); depth > MaxReferenceDepth {
			b.refDepth.Add(-1)
			return nil, fmt.Errorf("reference %s.%s: %w (%d levels)", target, keyColumn, ErrReferenceDepth, MaxReferenceDepth)
		}
		defer b.refDepth.Add(-1)

		p := NewPending()
		cb := func(_ context.Context, inserted Record) error {
			v, ok := inserted[keyColumn]
			if !ok {
				err := fmt.Errorf("%w: inserted %s row has no column %q", ErrUnresolvedReference, target, keyColumn)
				p.Reject(err)
				return err
			}
			p.Resolve(v)
			return nil
		}

		if _, err := b.generate(target, 1, nil, cb, p); err != nil {
			return nil, fmt.Errorf("reference %s.%s: %w", target, keyColumn, err)
		}
		return p, nil
	})
}
