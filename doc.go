// Package rowgo is the client-side row representation for building
// mutations against a schema-typed, column-oriented storage engine, and
// for deriving the sortable primary-key byte strings used for
// partitioning and range splits.
//
// A PartialRow carries values for any subset of a schema's columns,
// tracking which columns were explicitly touched versus left at their
// server-side default:
//
//	s, _ := schema.New([]schema.Column{
//	    {Name: "id", Type: schema.TypeInt32},
//	    {Name: "name", Type: schema.TypeString, Nullable: true},
//	    {Name: "score", Type: schema.TypeDouble},
//	}, 1)
//
//	row := rowgo.New(s)
//	_ = row.SetInt32("id", 42)
//	_ = row.SetStringCopy("name", []byte("abc"))
//
//	key, err := row.EncodeRowKey() // order-preserving split key
//
// # Column states
//
// Every column is unset, explicitly null, or set. Unset columns take
// the server-side default on insert; SetNull overrides the default with
// a null; Unset reverts to the default.
//
// # String ownership
//
// SetString stores a borrowed view: the caller keeps the backing bytes
// alive until the row is consumed or the column overwritten.
// SetStringCopy stores a private copy owned and released by the row.
// The ownership is tracked per column, and a copy is released exactly
// once, on overwrite, SetNull, Unset or Reset.
//
// # Concurrency
//
// A PartialRow is single-writer: mutate it from one goroutine only.
// A fully populated row that is no longer mutated may be read
// concurrently. Schemas are immutable and freely shared.
//
// # Subpackages
//
//   - schema: column definitions, key prefix, row byte layout
//   - keycodec: the order-preserving key component encoding
//   - wire: binary mutation-batch serialization over RowView
package rowgo
