package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnSetBasics(t *testing.T) {
	cs := NewColumnSet(2, 0)
	assert.False(t, cs.IsEmpty())
	assert.Equal(t, 2, cs.Len())
	assert.True(t, cs.Contains(0))
	assert.False(t, cs.Contains(1))
	assert.True(t, cs.Contains(2))

	cs.Add(1)
	assert.Equal(t, 3, cs.Len())

	cs.Remove(0)
	assert.False(t, cs.Contains(0))

	empty := NewColumnSet()
	assert.True(t, empty.IsEmpty())
}

func TestColumnSetCloneIsIndependent(t *testing.T) {
	cs := NewColumnSet(1, 2)
	clone := cs.Clone()
	clone.Add(5)

	assert.False(t, cs.Contains(5))
	assert.True(t, clone.Contains(5))
}

func TestColumnSetUnionIntersect(t *testing.T) {
	a := NewColumnSet(0, 1, 2)
	b := NewColumnSet(2, 3)

	u := a.Clone()
	u.Union(b)
	assert.Equal(t, 4, u.Len())

	i := a.Clone()
	i.Intersect(b)
	assert.Equal(t, 1, i.Len())
	assert.True(t, i.Contains(2))
}

func TestColumnSetIterator(t *testing.T) {
	cs := NewColumnSet(3, 0, 7)

	var got []int
	for i := range cs.Iterator() {
		got = append(got, i)
	}
	assert.Equal(t, []int{0, 3, 7}, got)
}
