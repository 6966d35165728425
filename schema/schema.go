package schema

import (
	"encoding/json"
	"fmt"
)

// ErrColumnNotFound indicates a lookup by a name or index the schema
// does not contain.
type ErrColumnNotFound struct {
	Name  string // set for name lookups
	Index int    // set for index lookups, -1 otherwise
}

func (e *ErrColumnNotFound) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("column %q not found", e.Name)
	}
	return fmt.Sprintf("column index %d out of range", e.Index)
}

// Column declares a single column. Name, Type and Nullable are provided
// by the caller; the layout fields are computed when the schema is built.
type Column struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`

	idx      int
	offset   int
	keyOrder int
	varIdx   int
}

// Index returns the column's position in the schema.
func (c *Column) Index() int { return c.idx }

// Offset returns the byte offset of the column's cell in a row buffer.
func (c *Column) Offset() int { return c.offset }

// Width returns the byte width of the column's cell in a row buffer.
func (c *Column) Width() int { return c.Type.Size() }

// IsKey reports whether the column is part of the primary key.
func (c *Column) IsKey() bool { return c.keyOrder >= 0 }

// KeyOrder returns the column's position within the key, or -1.
func (c *Column) KeyOrder() int { return c.keyOrder }

// VarIndex returns the column's slot in a row's variable-length side
// table, or -1 for fixed-width columns.
func (c *Column) VarIndex() int { return c.varIdx }

// Schema is an ordered, immutable set of columns with a fixed byte
// layout. A Schema must outlive every row built against it; it is safe
// to share across goroutines.
type Schema struct {
	cols     []Column
	byName   map[string]int
	keyIdx   []int
	rowWidth int
	nullOff  int
	varCount int
}

// New builds a Schema from the given columns. The first keyColumns
// columns form the primary key, in declared order. Key columns must not
// be nullable: a null is never valid key material.
func New(cols []Column, keyColumns int) (*Schema, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("schema requires at least one column")
	}
	if keyColumns < 1 || keyColumns > len(cols) {
		return nil, fmt.Errorf("key column count %d out of range [1, %d]", keyColumns, len(cols))
	}

	s := &Schema{
		cols:   make([]Column, len(cols)),
		byName: make(map[string]int, len(cols)),
		keyIdx: make([]int, 0, keyColumns),
	}

	offset := 0
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := s.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if c.Type.Size() == 0 {
			return nil, fmt.Errorf("column %q has an invalid type", c.Name)
		}

		c.idx = i
		c.offset = offset
		c.keyOrder = -1
		c.varIdx = -1

		if i < keyColumns {
			if c.Nullable {
				return nil, fmt.Errorf("key column %q must not be nullable", c.Name)
			}
			c.keyOrder = i
			s.keyIdx = append(s.keyIdx, i)
		}
		if c.Type == TypeString {
			c.varIdx = s.varCount
			s.varCount++
		}

		offset += c.Type.Size()
		s.cols[i] = c
		s.byName[c.Name] = i
	}

	// Trailing null-indicator bitmap, one bit per column, byte rounded.
	s.nullOff = offset
	s.rowWidth = offset + (len(cols)+7)/8

	return s, nil
}

// ColumnCount returns the number of columns.
func (s *Schema) ColumnCount() int { return len(s.cols) }

// ColumnByName returns the column with the given name.
func (s *Schema) ColumnByName(name string) (*Column, error) {
	i, ok := s.byName[name]
	if !ok {
		return nil, &ErrColumnNotFound{Name: name, Index: -1}
	}
	return &s.cols[i], nil
}

// ColumnByIndex returns the column at the given position.
func (s *Schema) ColumnByIndex(i int) (*Column, error) {
	if i < 0 || i >= len(s.cols) {
		return nil, &ErrColumnNotFound{Index: i}
	}
	return &s.cols[i], nil
}

// ColumnIndex returns the position of the named column, or an error.
func (s *Schema) ColumnIndex(name string) (int, error) {
	i, ok := s.byName[name]
	if !ok {
		return 0, &ErrColumnNotFound{Name: name, Index: -1}
	}
	return i, nil
}

// KeyColumnCount returns the number of primary key columns.
func (s *Schema) KeyColumnCount() int { return len(s.keyIdx) }

// KeyColumns returns the key column indexes in key order.
// The returned slice is a copy.
func (s *Schema) KeyColumns() []int {
	out := make([]int, len(s.keyIdx))
	copy(out, s.keyIdx)
	return out
}

// RowWidth returns the total byte width of a row buffer, including the
// trailing null-indicator bitmap.
func (s *Schema) RowWidth() int { return s.rowWidth }

// NullBitmapOffset returns the byte offset of the null-indicator bitmap
// within a row buffer.
func (s *Schema) NullBitmapOffset() int { return s.nullOff }

// VarColumnCount returns the number of variable-length (string) columns.
func (s *Schema) VarColumnCount() int { return s.varCount }

// String returns a compact diagnostic rendering of the schema.
func (s *Schema) String() string {
	out := "("
	for i := range s.cols {
		c := &s.cols[i]
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s %s", c.Type, c.Name)
		if c.Nullable {
			out += " NULLABLE"
		}
		if c.IsKey() {
			out += " KEY"
		}
	}
	return out + ")"
}

// Definition is the JSON-friendly form of a schema, used by tooling
// that loads column definitions from configuration.
type Definition struct {
	KeyColumns int      `json:"key_columns"`
	Columns    []Column `json:"columns"`
}

// Build constructs the Schema the definition describes.
func (d *Definition) Build() (*Schema, error) {
	return New(d.Columns, d.KeyColumns)
}

// ParseJSON decodes a Definition and builds its Schema.
func ParseJSON(data []byte) (*Schema, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}
	return def.Build()
}
