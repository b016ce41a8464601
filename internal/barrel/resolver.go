package barrel

import "fmt"

// CreateRecord synthesizes one record of the named schema. Properties are
// resolved in declaration order; each Generator sees the keys resolved before
// it. A key present in overrides is used verbatim and its Generator is not called.
// When two properties share a key the later one wins.
func (b *Barrel) CreateRecord(name string, overrides Record) (Record, error) {
	schema, err := b.Schema(name)
	if err != nil {
		return nil, err
	}
	return createRecord(schema, overrides)
}

func createRecord(schema *Schema, overrides Record) (Record, error) {
	rec := make(Record, len(schema.Properties))
	for _, prop := range schema.Properties {
		key := prop.RecordKey()

		if v, ok := overrides[key]; ok {
			rec[key] = v
			continue
		}

		v, err := prop.Value.resolve(rec, key)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", schema.Name, key, err)
		}
		rec[key] = v
	}
	return rec, nil
}
