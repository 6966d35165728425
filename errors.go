package rowgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/rowgo/schema"
)

var (
	// ErrNotSet is returned by getters on a column that was never given
	// a value.
	ErrNotSet = errors.New("column is not set")

	// ErrNull is returned by getters on a column explicitly set to null.
	ErrNull = errors.New("column is null")

	// ErrKeyNotSet is returned by EncodeRowKey when one or more key
	// columns are not in the set state.
	ErrKeyNotSet = errors.New("all key columns must be set")
)

// ErrTypeMismatch indicates an accessor whose type disagrees with the
// column's declared type. No implicit widening or narrowing is
// performed: an int32 column is only reachable through the int32
// accessors.
type ErrTypeMismatch struct {
	Column    string
	Declared  schema.Type
	Requested schema.Type
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("column %q is %s, not %s", e.Column, e.Declared, e.Requested)
}

// ErrNotNullable indicates a SetNull on a column the schema declares as
// required.
type ErrNotNullable struct {
	Column string
}

func (e *ErrNotNullable) Error() string {
	return fmt.Sprintf("column %q is not nullable", e.Column)
}
