package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"barrel/internal/barrel"
)

const (
	genUUID     = "uuid"
	genSequence = "sequence"
	genNow      = "now"
	genCycle    = "cycle"
	genCopy     = "copy"
	genRef      = "ref"
)

// kind returns the generator name; a bare ref implies gen: ref.
func (c Column) kind() string {
	if c.Gen == "" && c.Ref != "" {
		return genRef
	}
	return c.Gen
}

// value builds the barrel value for c. Validate has already run.
func (c Column) value(b *barrel.Barrel) barrel.Value {
	switch c.kind() {
	case genUUID:
		return barrel.Generate(func(barrel.Record, string) (any, error) {
			return uuid.NewString(), nil
		})

	case genSequence:
		step := c.Step
		if step == 0 {
			step = 1
		}
		next := c.Start
		return barrel.Generate(func(barrel.Record, string) (any, error) {
			v := next
			next += step
			return v, nil
		})

	case genNow:
		return barrel.Generate(func(barrel.Record, string) (any, error) {
			return time.Now().UTC(), nil
		})

	case genCycle:
		choices := c.Choices
		i := 0
		return barrel.Generate(func(barrel.Record, string) (any, error) {
			v := choices[i%len(choices)]
			i++
			return v, nil
		})

	case genCopy:
		from := c.From
		return barrel.Generate(func(partial barrel.Record, key string) (any, error) {
			v, ok := partial[from]
			if !ok {
				return nil, fmt.Errorf("copy %s: %q not resolved yet", key, from)
			}
			return v, nil
		})

	case genRef:
		table, column, _ := strings.Cut(c.Ref, ".")
		return b.References(table, column)

	default:
		return barrel.Literal(c.Value)
	}
}
