// Package schema describes the column layout of a table: ordered
// columns with a declared type and nullability, the primary key prefix,
// and the fixed byte layout (cell offset and width, trailing
// null-indicator bitmap) of a row buffer.
//
// A Schema is immutable once built and is the single source of truth
// for layout: the row container and the wire encoder compute nothing
// themselves, they read offsets and widths from here. It is safe to
// share one Schema across any number of rows and goroutines.
//
// # Building a schema
//
//	s, err := schema.New([]schema.Column{
//	    {Name: "id", Type: schema.TypeInt32},
//	    {Name: "name", Type: schema.TypeString, Nullable: true},
//	    {Name: "score", Type: schema.TypeDouble},
//	}, 1) // first column is the key
//
// Key columns form a prefix of the column list, in key order, and must
// not be nullable.
//
// # Column sets
//
// ColumnSet is a Roaring Bitmap over column indexes, used to express
// projections (encode only these columns) and to report which columns
// of a row have been populated.
package schema
