package barrel

import (
	"errors"
	"fmt"
)

// ErrSchemaNotFound is returned when a schema name has not been registered.
var ErrSchemaNotFound = errors.New("schema not found")

// ErrInsertFailed is returned by Insert when a batch's insert function fails.
var ErrInsertFailed = errors.New("insert failed")

// ErrUnresolvedReference settles a reference whose target batch never reported
// an inserted row (the batch failed, was aborted, or the backend skipped the callback).
var ErrUnresolvedReference = errors.New("unresolved reference")

// ErrReferenceDepth is returned when References nest deeper than
// MaxReferenceDepth, which happens when schemas reference each other in a cycle.
var ErrReferenceDepth = errors.New("reference chain too deep")

// SchemaNotFoundError names the schema that was looked up.
type SchemaNotFoundError struct {
	Name string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema %q does not exist: register it first with AddSchema(%q, properties)", e.Name, e.Name)
}

func (e *SchemaNotFoundError) Is(target error) bool { return target == ErrSchemaNotFound }

// InsertError wraps a backend failure with the batch range it was inserting.
type InsertError struct {
	Schema   string
	Sequence int
	Begin    int
	End      int
	Err      error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert %s records[%d:%d) (batch %d): %v", e.Schema, e.Begin, e.End, e.Sequence, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

func (e *InsertError) Is(target error) bool { return target == ErrInsertFailed }
