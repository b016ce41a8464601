// Package plan loads seed plans: YAML files that describe the target
// connection, the tables to generate, and the order to generate them in.
//
//	connection:
//	  driver: sqlite
//	  host: ./seed.db
//	tables:
//	  - name: food
//	    columns:
//	      - {name: food_id, gen: uuid}
//	      - {name: name, gen: cycle, choices: [apple, bread]}
//	  - name: food_ingredient
//	    columns:
//	      - {name: food_id, ref: food.food_id}
//	      - {name: milligrams, value: 5}
//	generate:
//	  - {table: food_ingredient, count: 3}
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"barrel/internal/barrel"
	"barrel/internal/domain"
)

// ErrInvalidPlan is wrapped by every validation failure.
var ErrInvalidPlan = errors.New("invalid plan")

// Plan is a parsed, validated seed plan.
type Plan struct {
	Path       string                    `yaml:"-"`
	Connection domain.DatabaseConnection `yaml:"connection"`
	Tables     []Table                   `yaml:"tables"`
	Steps      []Step                    `yaml:"generate"`
}

// Table is one schema definition. Table defaults to Name.
type Table struct {
	Name    string   `yaml:"name"`
	Table   string   `yaml:"table,omitempty"`
	Columns []Column `yaml:"columns"`
}

// Column is one property and its value spec.
type Column struct {
	Name string `yaml:"name" json:"name"`
	Key  string `yaml:"key,omitempty" json:"key,omitempty"`

	Value   any    `yaml:"value,omitempty" json:"value,omitempty"`
	Gen     string `yaml:"gen,omitempty" json:"gen,omitempty"`
	Start   int    `yaml:"start,omitempty" json:"start,omitempty"`
	Step    int    `yaml:"step,omitempty" json:"step,omitempty"`
	Choices []any  `yaml:"choices,omitempty" json:"choices,omitempty"`
	From    string `yaml:"from,omitempty" json:"from,omitempty"`
	Ref     string `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// Step generates Count records of Table. A count of one queues a
// single-record batch.
type Step struct {
	Table     string         `yaml:"table"`
	Count     int            `yaml:"count,omitempty"`
	Overrides map[string]any `yaml:"overrides,omitempty"`
}

// Load reads and validates the plan at path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse decodes and validates a plan. Unknown fields are rejected.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the plan and fills defaults.
func (p *Plan) Validate() error {
	if p.Connection.Driver == "" {
		p.Connection.Driver = domain.DatabaseDriverMemory
	}
	if err := p.Connection.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if len(p.Tables) == 0 {
		return fmt.Errorf("%w: no tables", ErrInvalidPlan)
	}

	tables := make(map[string]*Table, len(p.Tables))
	for i := range p.Tables {
		t := &p.Tables[i]
		if t.Name == "" {
			return fmt.Errorf("%w: table #%d has no name", ErrInvalidPlan, i+1)
		}
		if _, dup := tables[t.Name]; dup {
			return fmt.Errorf("%w: table %q defined twice", ErrInvalidPlan, t.Name)
		}
		if len(t.Columns) == 0 {
			return fmt.Errorf("%w: table %q has no columns", ErrInvalidPlan, t.Name)
		}
		tables[t.Name] = t
	}

	for _, t := range p.Tables {
		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if err := c.validate(tables, seen); err != nil {
				return fmt.Errorf("%w: %s.%s: %v", ErrInvalidPlan, t.Name, c.Name, err)
			}
			seen[c.recordKey()] = true
		}
	}
	if cycle := p.refCycle(); cycle != nil {
		return fmt.Errorf("%w: reference cycle %s", ErrInvalidPlan, strings.Join(cycle, " -> "))
	}

	for i := range p.Steps {
		s := &p.Steps[i]
		if _, ok := tables[s.Table]; !ok {
			return fmt.Errorf("%w: generate step #%d: unknown table %q", ErrInvalidPlan, i+1, s.Table)
		}
		if s.Count < 0 {
			return fmt.Errorf("%w: generate step #%d: negative count", ErrInvalidPlan, i+1)
		}
		if s.Count == 0 {
			s.Count = 1
		}
	}
	return nil
}

func (c Column) recordKey() string {
	if c.Key != "" {
		return c.Key
	}
	return c.Name
}

// validate checks c against the plan's tables. seen holds the keys of the
// columns declared before c.
func (c Column) validate(tables map[string]*Table, seen map[string]bool) error {
	if c.Name == "" {
		return errors.New("column has no name")
	}
	gen := c.kind()
	if gen != "" && c.Value != nil {
		return errors.New("value and gen are exclusive")
	}

	switch gen {
	case "", genUUID, genNow, genSequence:
	case genCycle:
		if len(c.Choices) == 0 {
			return errors.New("cycle needs choices")
		}
	case genCopy:
		if c.From == "" {
			return errors.New("copy needs from")
		}
		if !seen[c.From] {
			return fmt.Errorf("copy from %q: no earlier column with that key", c.From)
		}
	case genRef:
		table, column, ok := strings.Cut(c.Ref, ".")
		if !ok || table == "" || column == "" {
			return fmt.Errorf("ref %q must be table.column", c.Ref)
		}
		target, ok := tables[table]
		if !ok {
			return fmt.Errorf("ref %q: unknown table", c.Ref)
		}
		if !hasColumn(target, column) {
			return fmt.Errorf("ref %q: unknown column", c.Ref)
		}
	default:
		return fmt.Errorf("unknown gen %q", gen)
	}
	return nil
}

// refCycle returns the first chain of ref columns that leads back to a table
// already on the chain, or nil. Every table in a cycle would generate its
// referenced rows forever.
func (p *Plan) refCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(p.Tables))
	edges := make(map[string][]string, len(p.Tables))
	for _, t := range p.Tables {
		for _, c := range t.Columns {
			if c.kind() == genRef {
				target, _, _ := strings.Cut(c.Ref, ".")
				edges[t.Name] = append(edges[t.Name], target)
			}
		}
	}

	var path []string
	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = visiting
		path = append(path, name)
		for _, next := range edges[name] {
			switch state[next] {
			case visiting:
				for i, n := range path {
					if n == next {
						return append(append([]string(nil), path[i:]...), next)
					}
				}
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}

	for _, t := range p.Tables {
		if state[t.Name] == unvisited {
			if cycle := visit(t.Name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func hasColumn(t *Table, name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Apply registers every table with b, in declaration order. Generator state
// such as sequences starts fresh on each call.
func (p *Plan) Apply(b *barrel.Barrel) {
	for _, t := range p.Tables {
		props := make([]barrel.Property, 0, len(t.Columns))
		for _, c := range t.Columns {
			props = append(props, barrel.Property{
				Name:  c.Name,
				Key:   c.Key,
				Value: c.value(b),
			})
		}
		b.AddTable(t.Name, t.Table, props)
	}
}

// Generate runs the plan's steps against b in order and returns the queued
// batches.
func (p *Plan) Generate(b *barrel.Barrel) ([]*barrel.Batch, error) {
	batches := make([]*barrel.Batch, 0, len(p.Steps))
	for i, s := range p.Steps {
		var (
			bt  *barrel.Batch
			err error
		)
		overrides := barrel.Record(s.Overrides)
		if s.Count <= 1 {
			bt, err = b.GenerateOne(s.Table, overrides, nil)
		} else {
			bt, err = b.GenerateMany(s.Table, s.Count, overrides, nil)
		}
		if err != nil {
			return batches, fmt.Errorf("generate step #%d: %w", i+1, err)
		}
		batches = append(batches, bt)
	}
	return batches, nil
}

// TableNames returns the table names in declaration order.
func (p *Plan) TableNames() []string {
	names := make([]string, len(p.Tables))
	for i, t := range p.Tables {
		names[i] = t.Name
	}
	return names
}
