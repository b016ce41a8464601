package barrel

import (
	"context"
	"fmt"
	"sync"
)

// Pending is a field value that becomes available later, typically once
// another batch has been inserted. The insertion pipeline awaits every
// Pending in a batch's records before handing them to the insert function.
//
// A Pending is either settled from outside (Resolve / Reject) or computed
// lazily by the first Await (Async / Then).
type Pending struct {
	compute func(ctx context.Context) (any, error)
	start   sync.Once

	settle sync.Once
	done   chan struct{}
	value  any
	err    error
}

// NewPending returns an unsettled Pending.
func NewPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Resolved returns a Pending already settled with v.
func Resolved(v any) *Pending {
	p := NewPending()
	p.Resolve(v)
	return p
}

// Async returns a Pending whose value is computed by fn the first time it is
// awaited. fn gets the first awaiter's context values but not its
// cancellation, so an awaiter that gives up does not settle the Pending for
// the others.
func Async(fn func(ctx context.Context) (any, error)) *Pending {
	p := NewPending()
	p.compute = fn
	return p
}

// Then derives a Pending from p by applying fn to its value.
// Use it from a Generator to depend on a sibling that is still pending.
func (p *Pending) Then(fn func(v any) (any, error)) *Pending {
	return Async(func(ctx context.Context) (any, error) {
		v, err := p.Await(ctx)
		if err != nil {
			return nil, err
		}
		return fn(v)
	})
}

// Resolve settles p with v. Only the first Resolve or Reject has an effect.
func (p *Pending) Resolve(v any) {
	p.settle.Do(func() {
		p.value = v
		close(p.done)
	})
}

// Reject settles p with err. Only the first Resolve or Reject has an effect.
func (p *Pending) Reject(err error) {
	p.settle.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Settled reports whether p has a value or an error.
func (p *Pending) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Await blocks until p is settled or ctx is done.
func (p *Pending) Await(ctx context.Context) (any, error) {
	if p.compute != nil {
		p.start.Do(func() {
			go func(ctx context.Context) {
				v, err := p.compute(ctx)
				if err != nil {
					p.Reject(err)
					return
				}
				p.Resolve(v)
			}(context.WithoutCancel(ctx))
		})
	}
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pending) String() string {
	if !p.Settled() {
		return "Pending(<unsettled>)"
	}
	if p.err != nil {
		return fmt.Sprintf("Pending(error: %v)", p.err)
	}
	return fmt.Sprintf("Pending(%v)", p.value)
}

// materialize returns a copy of rec with every Pending replaced by its value.
// A Pending may resolve to another Pending; those are awaited as well.
func materialize(ctx context.Context, rec Record) (Record, error) {
	out := make(Record, len(rec))
	for k, v := range rec {
		for {
			p, ok := v.(*Pending)
			if !ok {
				break
			}
			resolved, err := p.Await(ctx)
			if err != nil {
				return nil, fmt.Errorf("resolve %q: %w", k, err)
			}
			v = resolved
		}
		out[k] = v
	}
	return out, nil
}
