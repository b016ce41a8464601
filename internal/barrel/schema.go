package barrel

import "sort"

// Record is one generated row, keyed by property key. Values may still be
// *Pending until the insertion pipeline materializes them.
type Record map[string]any

// Generator computes a property value from the record built so far. partial
// holds every key resolved earlier in declaration order, never later ones.
// The returned value may be a *Pending.
type Generator func(partial Record, key string) (any, error)

// Value is a property's value source: either a literal or a Generator.
type Value struct {
	literal any
	gen     Generator
}

// Literal is a value used unchanged for every record. It may be a *Pending.
func Literal(v any) Value { return Value{literal: v} }

// Generate is a value computed per record.
func Generate(fn Generator) Value { return Value{gen: fn} }

func (v Value) resolve(partial Record, key string) (any, error) {
	if v.gen != nil {
		return v.gen(partial, key)
	}
	return v.literal, nil
}

// Property is one field's generation rule. Name is the external (column)
// name; Key, when set, is the key used in generated records.
type Property struct {
	Name  string
	Key   string
	Value Value
}

// RecordKey returns the key the property is stored under in a Record.
func (p Property) RecordKey() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Name
}

// Schema is a named, ordered list of properties. Table is the persistence
// target and defaults to Name.
type Schema struct {
	Name       string
	Table      string
	Properties []Property
}

// Columns returns the external names in declaration order.
func (s *Schema) Columns() []string {
	cols := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		cols[i] = p.Name
	}
	return cols
}

// AddSchema registers props under name, replacing any earlier schema with that name.
func (b *Barrel) AddSchema(name string, props []Property) {
	b.AddTable(name, name, props)
}

// AddTable registers props under name, persisted to table.
func (b *Barrel) AddTable(name, table string, props []Property) {
	if table == "" {
		table = name
	}
	s := &Schema{
		Name:       name,
		Table:      table,
		Properties: append([]Property(nil), props...),
	}

	b.schemasMu.Lock()
	defer b.schemasMu.Unlock()
	b.schemas[name] = s
}

// Schema returns the schema registered under name.
func (b *Barrel) Schema(name string) (*Schema, error) {
	b.schemasMu.RLock()
	defer b.schemasMu.RUnlock()
	s, ok := b.schemas[name]
	if !ok {
		return nil, &SchemaNotFoundError{Name: name}
	}
	return s, nil
}

// Schemas returns the registered schema names, sorted.
func (b *Barrel) Schemas() []string {
	b.schemasMu.RLock()
	defer b.schemasMu.RUnlock()
	names := make([]string, 0, len(b.schemas))
	for name := range b.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
