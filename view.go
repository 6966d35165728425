package rowgo

import (
	"github.com/hupe1980/rowgo/schema"
)

// RowView is the privileged, read-only boundary between a populated row
// and its mutation serializer. It exposes the isset and ownership
// bitmaps and the raw row buffer so a serializer can build a wire
// message without re-deriving type dispatch, and nothing else.
//
// The view must not outlive a mutation of the row it covers.
type RowView struct {
	row *PartialRow
}

// View returns a read-only view of the row for serialization.
func (r *PartialRow) View() RowView {
	return RowView{row: r}
}

// Schema returns the schema of the underlying row.
func (v RowView) Schema() *schema.Schema {
	return v.row.schema
}

// IsSet reports whether the column at idx has been explicitly set.
func (v RowView) IsSet(idx int) bool {
	return v.row.IsColumnSetAt(idx)
}

// IsNull reports whether the column at idx is explicitly null.
func (v RowView) IsNull(idx int) bool {
	return v.row.IsNullAt(idx)
}

// IsOwned reports whether the string column at idx is backed by a
// row-owned private copy. Serializers use this only to decide whether
// the bytes must be copied before the row is released.
func (v RowView) IsOwned(idx int) bool {
	c, err := v.row.schema.ColumnByIndex(idx)
	if err != nil || c.VarIndex() < 0 {
		return false
	}
	return v.row.owned.Test(uint(c.VarIndex()))
}

// RowData returns the raw contiguous row buffer, including the trailing
// null-indicator bitmap. The buffer must not be modified; cells of
// unset columns hold unspecified bytes.
func (v RowView) RowData() []byte {
	return v.row.buf
}

// CellData returns the value bytes of the column at idx: the fixed-width
// cell for fixed types, the string payload for string columns. The
// column must be set and non-null.
func (v RowView) CellData(idx int) ([]byte, error) {
	c, err := v.row.schema.ColumnByIndex(idx)
	if err != nil {
		return nil, err
	}
	if err := v.row.checkReadable(c); err != nil {
		return nil, err
	}
	if c.VarIndex() >= 0 {
		return v.row.varData[c.VarIndex()], nil
	}
	return v.row.fixedCell(c), nil
}

// SetColumns returns the set of column indexes currently in the set
// state, including explicit nulls.
func (v RowView) SetColumns() *schema.ColumnSet {
	cs := schema.NewColumnSet()
	for i := 0; i < v.row.schema.ColumnCount(); i++ {
		if v.row.IsColumnSetAt(i) {
			cs.Add(i)
		}
	}
	return cs
}
