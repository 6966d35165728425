package rowgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rowgo/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Column{
		{Name: "id", Type: schema.TypeInt32},
		{Name: "name", Type: schema.TypeString, Nullable: true},
		{Name: "score", Type: schema.TypeDouble},
	}, 1)
	require.NoError(t, err)
	return s
}

func allTypesSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Column{
		{Name: "k", Type: schema.TypeInt64},
		{Name: "b", Type: schema.TypeBool},
		{Name: "i8", Type: schema.TypeInt8},
		{Name: "i16", Type: schema.TypeInt16},
		{Name: "i32", Type: schema.TypeInt32},
		{Name: "i64", Type: schema.TypeInt64},
		{Name: "f", Type: schema.TypeFloat},
		{Name: "d", Type: schema.TypeDouble},
		{Name: "s", Type: schema.TypeString},
	}, 1)
	require.NoError(t, err)
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	row := New(allTypesSchema(t))

	require.NoError(t, row.SetInt64("k", -9000000000))
	require.NoError(t, row.SetBool("b", true))
	require.NoError(t, row.SetInt8("i8", -5))
	require.NoError(t, row.SetInt16("i16", -300))
	require.NoError(t, row.SetInt32("i32", 70000))
	require.NoError(t, row.SetInt64("i64", 1<<40))
	require.NoError(t, row.SetFloat("f", 1.5))
	require.NoError(t, row.SetDouble("d", -2.25))
	require.NoError(t, row.SetStringCopy("s", []byte("hello")))

	k, err := row.GetInt64("k")
	require.NoError(t, err)
	assert.Equal(t, int64(-9000000000), k)

	b, err := row.GetBool("b")
	require.NoError(t, err)
	assert.True(t, b)

	i8, err := row.GetInt8("i8")
	require.NoError(t, err)
	assert.Equal(t, int8(-5), i8)

	i16, err := row.GetInt16("i16")
	require.NoError(t, err)
	assert.Equal(t, int16(-300), i16)

	i32, err := row.GetInt32("i32")
	require.NoError(t, err)
	assert.Equal(t, int32(70000), i32)

	i64, err := row.GetInt64("i64")
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), i64)

	f, err := row.GetFloat("f")
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)

	d, err := row.GetDouble("d")
	require.NoError(t, err)
	assert.Equal(t, -2.25, d)

	s, err := row.GetString("s")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), s)

	assert.True(t, row.AllColumnsSet())
}

func TestIndexAddressedAccessors(t *testing.T) {
	row := New(allTypesSchema(t))

	require.NoError(t, row.SetInt64At(0, 1))
	require.NoError(t, row.SetBoolAt(1, false))
	require.NoError(t, row.SetInt8At(2, 7))
	require.NoError(t, row.SetInt16At(3, 7))
	require.NoError(t, row.SetInt32At(4, 7))
	require.NoError(t, row.SetInt64At(5, 7))
	require.NoError(t, row.SetFloatAt(6, 7))
	require.NoError(t, row.SetDoubleAt(7, 7))
	require.NoError(t, row.SetStringCopyAt(8, []byte("x")))

	assert.True(t, row.AllColumnsSet())

	i32, err := row.GetInt32At(4)
	require.NoError(t, err)
	assert.Equal(t, int32(7), i32)

	s, err := row.GetStringAt(8)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), s)

	// Overwrite through the index form, read back through the name form.
	require.NoError(t, row.SetInt32At(4, 8))
	i32, err = row.GetInt32("i32")
	require.NoError(t, err)
	assert.Equal(t, int32(8), i32)
}

func TestUnknownColumn(t *testing.T) {
	row := New(testSchema(t))

	var notFound *schema.ErrColumnNotFound
	assert.ErrorAs(t, row.SetInt32("missing", 1), &notFound)

	_, err := row.GetInt32("missing")
	assert.ErrorAs(t, err, &notFound)

	assert.ErrorAs(t, row.SetInt32At(9, 1), &notFound)
	assert.ErrorAs(t, row.SetNull("missing"), &notFound)
	assert.ErrorAs(t, row.Unset("missing"), &notFound)

	assert.False(t, row.IsColumnSet("missing"))
	assert.False(t, row.IsNull("missing"))
	assert.False(t, row.IsColumnSetAt(-1))
	assert.False(t, row.IsColumnSetAt(9))
}

func TestTypeMismatch(t *testing.T) {
	row := New(testSchema(t))

	err := row.SetInt64("id", 1)
	var mismatch *ErrTypeMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "id", mismatch.Column)
	assert.Equal(t, schema.TypeInt32, mismatch.Declared)
	assert.Equal(t, schema.TypeInt64, mismatch.Requested)

	// A failed setter leaves the row unmodified.
	assert.False(t, row.IsColumnSet("id"))

	require.NoError(t, row.SetInt32("id", 42))
	_, err = row.GetDouble("id")
	assert.ErrorAs(t, err, &mismatch)
	_, err = row.GetString("id")
	assert.ErrorAs(t, err, &mismatch)

	// State survived the failed get.
	v, err := row.GetInt32("id")
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestUnset(t *testing.T) {
	row := New(testSchema(t))

	require.NoError(t, row.SetInt32("id", 1))
	require.True(t, row.IsColumnSet("id"))

	require.NoError(t, row.Unset("id"))
	assert.False(t, row.IsColumnSet("id"))

	_, err := row.GetInt32("id")
	assert.ErrorIs(t, err, ErrNotSet)

	// Unset on a never-set column is a no-op.
	require.NoError(t, row.Unset("score"))
	assert.False(t, row.IsColumnSet("score"))
}

func TestSetNull(t *testing.T) {
	row := New(testSchema(t))

	require.NoError(t, row.SetNull("name"))
	assert.True(t, row.IsColumnSet("name"))
	assert.True(t, row.IsNull("name"))

	_, err := row.GetString("name")
	assert.ErrorIs(t, err, ErrNull)

	// Null is not unset: clearing restores the default state.
	require.NoError(t, row.Unset("name"))
	assert.False(t, row.IsColumnSet("name"))
	assert.False(t, row.IsNull("name"))
}

func TestSetNullNotNullable(t *testing.T) {
	row := New(testSchema(t))

	require.NoError(t, row.SetDouble("score", 1.5))

	err := row.SetNull("score")
	var notNullable *ErrNotNullable
	require.ErrorAs(t, err, &notNullable)
	assert.Equal(t, "score", notNullable.Column)

	// Rejected transition leaves the state unchanged.
	assert.True(t, row.IsColumnSet("score"))
	assert.False(t, row.IsNull("score"))
	v, err := row.GetDouble("score")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestStateTransitions(t *testing.T) {
	row := New(testSchema(t))

	// Unset -> Null -> Set -> Null -> Unset.
	require.NoError(t, row.SetNull("name"))
	require.NoError(t, row.SetStringCopy("name", []byte("v1")))
	assert.False(t, row.IsNull("name"))

	v, err := row.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, row.SetNull("name"))
	assert.True(t, row.IsNull("name"))

	require.NoError(t, row.Unset("name"))
	assert.False(t, row.IsColumnSet("name"))

	// Set -> Set overwrite.
	require.NoError(t, row.SetStringCopy("name", []byte("v2")))
	require.NoError(t, row.SetStringCopy("name", []byte("v3")))
	v, err = row.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, []byte("v3"), v)
}

func TestStringBorrowVersusCopy(t *testing.T) {
	row := New(testSchema(t))

	// A copy is insulated from later mutation of the source.
	src := []byte("abc")
	require.NoError(t, row.SetStringCopy("name", src))
	src[0] = 'X'

	v, err := row.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), v)

	// A borrowed view aliases the caller's memory.
	borrowed := []byte("def")
	require.NoError(t, row.SetString("name", borrowed))
	borrowed[0] = 'X'

	v, err = row.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, []byte("Xef"), v)
}

func TestOwnershipLedgerAccounting(t *testing.T) {
	row := New(testSchema(t))

	// Copy-set then repeated Unset/SetNull cycles: each transition out
	// of the owned state releases exactly once, never twice.
	require.NoError(t, row.SetStringCopy("name", []byte("v")))
	assert.Equal(t, 1, row.strAllocs)

	require.NoError(t, row.Unset("name"))
	require.NoError(t, row.Unset("name"))
	require.NoError(t, row.SetNull("name"))
	require.NoError(t, row.SetNull("name"))
	assert.Equal(t, 1, row.strReleases)

	// Overwriting an owned value with a borrowed one still releases the
	// old copy.
	require.NoError(t, row.SetStringCopy("name", []byte("owned")))
	require.NoError(t, row.SetString("name", []byte("borrowed")))
	assert.Equal(t, 2, row.strAllocs)
	assert.Equal(t, 2, row.strReleases)
	assert.False(t, row.owned.Test(0))

	// Owned overwriting owned.
	require.NoError(t, row.SetStringCopy("name", []byte("a")))
	require.NoError(t, row.SetStringCopy("name", []byte("b")))
	require.NoError(t, row.Unset("name"))
	assert.Equal(t, row.strAllocs, row.strReleases)
}

func TestReset(t *testing.T) {
	row := New(testSchema(t))

	require.NoError(t, row.SetInt32("id", 1))
	require.NoError(t, row.SetStringCopy("name", []byte("v")))
	require.NoError(t, row.SetDouble("score", 2.5))
	require.True(t, row.AllColumnsSet())

	row.Reset()

	assert.False(t, row.IsColumnSet("id"))
	assert.False(t, row.IsColumnSet("name"))
	assert.False(t, row.IsColumnSet("score"))
	assert.Equal(t, row.strAllocs, row.strReleases)

	// The row is reusable after a reset.
	require.NoError(t, row.SetInt32("id", 2))
	v, err := row.GetInt32("id")
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestAllColumnsSet(t *testing.T) {
	row := New(testSchema(t))
	assert.False(t, row.AllColumnsSet())

	require.NoError(t, row.SetInt32("id", 1))
	require.NoError(t, row.SetDouble("score", 1))
	assert.False(t, row.AllColumnsSet())

	// An explicit null counts as set.
	require.NoError(t, row.SetNull("name"))
	assert.True(t, row.AllColumnsSet())

	require.NoError(t, row.Unset("score"))
	assert.False(t, row.AllColumnsSet())
}

func TestIsKeySet(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "a", Type: schema.TypeInt32},
		{Name: "b", Type: schema.TypeString},
		{Name: "v", Type: schema.TypeDouble},
	}, 2)
	require.NoError(t, err)

	row := New(s)
	assert.False(t, row.IsKeySet())

	require.NoError(t, row.SetInt32("a", 1))
	assert.False(t, row.IsKeySet())

	require.NoError(t, row.SetString("b", []byte("x")))
	assert.True(t, row.IsKeySet())

	// Non-key columns do not matter.
	assert.False(t, row.AllColumnsSet())
}

func TestRowString(t *testing.T) {
	row := New(testSchema(t))

	assert.Equal(t, "int32 id=<unset>, string name=<unset>, double score=<unset>", row.String())

	require.NoError(t, row.SetInt32("id", 42))
	require.NoError(t, row.SetNull("name"))
	require.NoError(t, row.SetDouble("score", 1.5))
	assert.Equal(t, `int32 id=42, string name=NULL, double score=1.5`, row.String())

	require.NoError(t, row.SetStringCopy("name", []byte("abc")))
	assert.Equal(t, `int32 id=42, string name="abc", double score=1.5`, row.String())
}

// A fully populated row that is no longer mutated is safe for
// concurrent readers.
func TestConcurrentReads(t *testing.T) {
	row := New(testSchema(t))
	require.NoError(t, row.SetInt32("id", 42))
	require.NoError(t, row.SetStringCopy("name", []byte("abc")))
	require.NoError(t, row.SetDouble("score", 1.5))

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for range 1000 {
				if _, err := row.GetInt32("id"); err != nil {
					return err
				}
				if _, err := row.GetString("name"); err != nil {
					return err
				}
				if !row.IsKeySet() {
					return ErrKeyNotSet
				}
				if _, err := row.EncodeRowKey(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
