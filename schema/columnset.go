package schema

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// ColumnSet is a set of column indexes backed by a Roaring Bitmap.
// Used for wire-encoder projections and for reporting which columns of
// a row have been set.
type ColumnSet struct {
	rb *roaring.Bitmap
}

// NewColumnSet creates a column set containing the given indexes.
func NewColumnSet(indexes ...int) *ColumnSet {
	cs := &ColumnSet{rb: roaring.New()}
	for _, i := range indexes {
		cs.Add(i)
	}
	return cs
}

// Add adds a column index to the set.
func (cs *ColumnSet) Add(i int) {
	cs.rb.Add(uint32(i))
}

// Remove removes a column index from the set.
func (cs *ColumnSet) Remove(i int) {
	cs.rb.Remove(uint32(i))
}

// Contains checks if a column index is in the set.
func (cs *ColumnSet) Contains(i int) bool {
	return cs.rb.Contains(uint32(i))
}

// IsEmpty returns true if the set is empty.
func (cs *ColumnSet) IsEmpty() bool {
	return cs.rb.IsEmpty()
}

// Len returns the number of column indexes in the set.
func (cs *ColumnSet) Len() int {
	return int(cs.rb.GetCardinality())
}

// Clone returns a deep copy of the set.
func (cs *ColumnSet) Clone() *ColumnSet {
	return &ColumnSet{rb: cs.rb.Clone()}
}

// Union adds every index of other to the set.
func (cs *ColumnSet) Union(other *ColumnSet) {
	cs.rb.Or(other.rb)
}

// Intersect removes every index not present in other.
func (cs *ColumnSet) Intersect(other *ColumnSet) {
	cs.rb.And(other.rb)
}

// Iterator returns an iterator over the set in ascending index order.
func (cs *ColumnSet) Iterator() iter.Seq[int] {
	return func(yield func(int) bool) {
		it := cs.rb.Iterator()
		for it.HasNext() {
			if !yield(int(it.Next())) {
				return
			}
		}
	}
}
