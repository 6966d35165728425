package rowgo

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/rowgo/schema"
)

// PartialRow is a row that may carry values for any subset of a
// schema's columns. It holds a contiguous row buffer plus a bitmap of
// which columns have been explicitly set, and may own private copies of
// string values.
//
// A column is in exactly one of three states: unset (the server-side
// default applies), explicitly null, or set to a value. Unset is
// distinct from null.
//
// A PartialRow carries no internal synchronization: it must be mutated
// from a single goroutine. A row that is no longer mutated may be read
// concurrently. The Schema it references must outlive it.
type PartialRow struct {
	schema *schema.Schema

	// isset has one bit per column, set iff the column was explicitly
	// given a value, including an explicit null.
	isset *bitset.BitSet

	// owned has one bit per string column (indexed by VarIndex), set
	// iff the row holds a private copy of the current value.
	owned *bitset.BitSet

	// buf is the contiguous row: fixed-width cells at schema offsets,
	// string slots of [varIdx uint64][len uint64], and the trailing
	// null-indicator bitmap. Bytes of unset columns are unspecified and
	// must not be read.
	buf []byte

	// varData backs string cells; an entry is either a borrowed caller
	// slice or a private copy tracked by owned.
	varData [][]byte

	// Ownership-ledger accounting: every private copy is released
	// exactly once, on overwrite, SetNull, Unset or Reset.
	strAllocs   int
	strReleases int
}

// New creates an empty PartialRow bound to s. The schema must remain
// valid for the lifetime of the row.
func New(s *schema.Schema) *PartialRow {
	return &PartialRow{
		schema:  s,
		isset:   bitset.New(uint(s.ColumnCount())),
		owned:   bitset.New(uint(s.VarColumnCount())),
		buf:     make([]byte, s.RowWidth()),
		varData: make([][]byte, s.VarColumnCount()),
	}
}

// Schema returns the schema the row is bound to.
func (r *PartialRow) Schema() *schema.Schema { return r.schema }

//------------------------------------------------------------
// Setters
//------------------------------------------------------------

// SetBool sets the named bool column to v.
func (r *PartialRow) SetBool(name string, v bool) error {
	c, err := r.typedColumn(name, schema.TypeBool)
	if err != nil {
		return err
	}
	return r.setBool(c, v)
}

// SetBoolAt is the index-addressed form of SetBool. The index variants
// skip the name lookup and should be preferred in bulk-loading hot
// paths.
func (r *PartialRow) SetBoolAt(idx int, v bool) error {
	c, err := r.typedColumnAt(idx, schema.TypeBool)
	if err != nil {
		return err
	}
	return r.setBool(c, v)
}

// SetInt8 sets the named int8 column to v.
func (r *PartialRow) SetInt8(name string, v int8) error {
	c, err := r.typedColumn(name, schema.TypeInt8)
	if err != nil {
		return err
	}
	return r.setInt8(c, v)
}

// SetInt8At is the index-addressed form of SetInt8.
func (r *PartialRow) SetInt8At(idx int, v int8) error {
	c, err := r.typedColumnAt(idx, schema.TypeInt8)
	if err != nil {
		return err
	}
	return r.setInt8(c, v)
}

// SetInt16 sets the named int16 column to v.
func (r *PartialRow) SetInt16(name string, v int16) error {
	c, err := r.typedColumn(name, schema.TypeInt16)
	if err != nil {
		return err
	}
	return r.setInt16(c, v)
}

// SetInt16At is the index-addressed form of SetInt16.
func (r *PartialRow) SetInt16At(idx int, v int16) error {
	c, err := r.typedColumnAt(idx, schema.TypeInt16)
	if err != nil {
		return err
	}
	return r.setInt16(c, v)
}

// SetInt32 sets the named int32 column to v.
func (r *PartialRow) SetInt32(name string, v int32) error {
	c, err := r.typedColumn(name, schema.TypeInt32)
	if err != nil {
		return err
	}
	return r.setInt32(c, v)
}

// SetInt32At is the index-addressed form of SetInt32.
func (r *PartialRow) SetInt32At(idx int, v int32) error {
	c, err := r.typedColumnAt(idx, schema.TypeInt32)
	if err != nil {
		return err
	}
	return r.setInt32(c, v)
}

// SetInt64 sets the named int64 column to v.
func (r *PartialRow) SetInt64(name string, v int64) error {
	c, err := r.typedColumn(name, schema.TypeInt64)
	if err != nil {
		return err
	}
	return r.setInt64(c, v)
}

// SetInt64At is the index-addressed form of SetInt64.
func (r *PartialRow) SetInt64At(idx int, v int64) error {
	c, err := r.typedColumnAt(idx, schema.TypeInt64)
	if err != nil {
		return err
	}
	return r.setInt64(c, v)
}

// SetFloat sets the named float column to v.
func (r *PartialRow) SetFloat(name string, v float32) error {
	c, err := r.typedColumn(name, schema.TypeFloat)
	if err != nil {
		return err
	}
	return r.setFloat(c, v)
}

// SetFloatAt is the index-addressed form of SetFloat.
func (r *PartialRow) SetFloatAt(idx int, v float32) error {
	c, err := r.typedColumnAt(idx, schema.TypeFloat)
	if err != nil {
		return err
	}
	return r.setFloat(c, v)
}

// SetDouble sets the named double column to v.
func (r *PartialRow) SetDouble(name string, v float64) error {
	c, err := r.typedColumn(name, schema.TypeDouble)
	if err != nil {
		return err
	}
	return r.setDouble(c, v)
}

// SetDoubleAt is the index-addressed form of SetDouble.
func (r *PartialRow) SetDoubleAt(idx int, v float64) error {
	c, err := r.typedColumnAt(idx, schema.TypeDouble)
	if err != nil {
		return err
	}
	return r.setDouble(c, v)
}

// SetString sets the named string column to a borrowed view of v. The
// caller must keep v valid and unmodified until the row is consumed or
// the column is overwritten; no copy is made. Use SetStringCopy when
// the source buffer's lifetime is not under the caller's control.
func (r *PartialRow) SetString(name string, v []byte) error {
	c, err := r.typedColumn(name, schema.TypeString)
	if err != nil {
		return err
	}
	return r.setString(c, v, false)
}

// SetStringAt is the index-addressed form of SetString.
func (r *PartialRow) SetStringAt(idx int, v []byte) error {
	c, err := r.typedColumnAt(idx, schema.TypeString)
	if err != nil {
		return err
	}
	return r.setString(c, v, false)
}

// SetStringCopy sets the named string column to a private copy of v.
// The copy is owned by the row and released when the column leaves the
// set state.
func (r *PartialRow) SetStringCopy(name string, v []byte) error {
	c, err := r.typedColumn(name, schema.TypeString)
	if err != nil {
		return err
	}
	return r.setString(c, v, true)
}

// SetStringCopyAt is the index-addressed form of SetStringCopy.
func (r *PartialRow) SetStringCopyAt(idx int, v []byte) error {
	c, err := r.typedColumnAt(idx, schema.TypeString)
	if err != nil {
		return err
	}
	return r.setString(c, v, true)
}

// SetNull sets the named column to an explicit null, overriding the
// server-side default. Only valid on nullable columns; use Unset to
// restore the default.
func (r *PartialRow) SetNull(name string) error {
	c, err := r.schema.ColumnByName(name)
	if err != nil {
		return err
	}
	return r.setNull(c)
}

// SetNullAt is the index-addressed form of SetNull.
func (r *PartialRow) SetNullAt(idx int) error {
	c, err := r.schema.ColumnByIndex(idx)
	if err != nil {
		return err
	}
	return r.setNull(c)
}

// Unset clears the named column entirely, so the server-side default
// applies again. This is different from setting it to null.
func (r *PartialRow) Unset(name string) error {
	c, err := r.schema.ColumnByName(name)
	if err != nil {
		return err
	}
	return r.unset(c)
}

// UnsetAt is the index-addressed form of Unset.
func (r *PartialRow) UnsetAt(idx int) error {
	c, err := r.schema.ColumnByIndex(idx)
	if err != nil {
		return err
	}
	return r.unset(c)
}

// Reset unsets every column and releases all owned string buffers. The
// row can be reused for another mutation against the same schema.
func (r *PartialRow) Reset() {
	for i := 0; i < r.schema.ColumnCount(); i++ {
		c, _ := r.schema.ColumnByIndex(i)
		_ = r.unset(c)
	}
}

//------------------------------------------------------------
// Getters
//------------------------------------------------------------

// GetBool returns the value of the named bool column.
func (r *PartialRow) GetBool(name string) (bool, error) {
	c, err := r.typedColumn(name, schema.TypeBool)
	if err != nil {
		return false, err
	}
	return r.getBool(c)
}

// GetBoolAt is the index-addressed form of GetBool.
func (r *PartialRow) GetBoolAt(idx int) (bool, error) {
	c, err := r.typedColumnAt(idx, schema.TypeBool)
	if err != nil {
		return false, err
	}
	return r.getBool(c)
}

// GetInt8 returns the value of the named int8 column.
func (r *PartialRow) GetInt8(name string) (int8, error) {
	c, err := r.typedColumn(name, schema.TypeInt8)
	if err != nil {
		return 0, err
	}
	return r.getInt8(c)
}

// GetInt8At is the index-addressed form of GetInt8.
func (r *PartialRow) GetInt8At(idx int) (int8, error) {
	c, err := r.typedColumnAt(idx, schema.TypeInt8)
	if err != nil {
		return 0, err
	}
	return r.getInt8(c)
}

// GetInt16 returns the value of the named int16 column.
func (r *PartialRow) GetInt16(name string) (int16, error) {
	c, err := r.typedColumn(name, schema.TypeInt16)
	if err != nil {
		return 0, err
	}
	return r.getInt16(c)
}

// GetInt16At is the index-addressed form of GetInt16.
func (r *PartialRow) GetInt16At(idx int) (int16, error) {
	c, err := r.typedColumnAt(idx, schema.TypeInt16)
	if err != nil {
		return 0, err
	}
	return r.getInt16(c)
}

// GetInt32 returns the value of the named int32 column.
func (r *PartialRow) GetInt32(name string) (int32, error) {
	c, err := r.typedColumn(name, schema.TypeInt32)
	if err != nil {
		return 0, err
	}
	return r.getInt32(c)
}

// GetInt32At is the index-addressed form of GetInt32.
func (r *PartialRow) GetInt32At(idx int) (int32, error) {
	c, err := r.typedColumnAt(idx, schema.TypeInt32)
	if err != nil {
		return 0, err
	}
	return r.getInt32(c)
}

// GetInt64 returns the value of the named int64 column.
func (r *PartialRow) GetInt64(name string) (int64, error) {
	c, err := r.typedColumn(name, schema.TypeInt64)
	if err != nil {
		return 0, err
	}
	return r.getInt64(c)
}

// GetInt64At is the index-addressed form of GetInt64.
func (r *PartialRow) GetInt64At(idx int) (int64, error) {
	c, err := r.typedColumnAt(idx, schema.TypeInt64)
	if err != nil {
		return 0, err
	}
	return r.getInt64(c)
}

// GetFloat returns the value of the named float column.
func (r *PartialRow) GetFloat(name string) (float32, error) {
	c, err := r.typedColumn(name, schema.TypeFloat)
	if err != nil {
		return 0, err
	}
	return r.getFloat(c)
}

// GetFloatAt is the index-addressed form of GetFloat.
func (r *PartialRow) GetFloatAt(idx int) (float32, error) {
	c, err := r.typedColumnAt(idx, schema.TypeFloat)
	if err != nil {
		return 0, err
	}
	return r.getFloat(c)
}

// GetDouble returns the value of the named double column.
func (r *PartialRow) GetDouble(name string) (float64, error) {
	c, err := r.typedColumn(name, schema.TypeDouble)
	if err != nil {
		return 0, err
	}
	return r.getDouble(c)
}

// GetDoubleAt is the index-addressed form of GetDouble.
func (r *PartialRow) GetDoubleAt(idx int) (float64, error) {
	c, err := r.typedColumnAt(idx, schema.TypeDouble)
	if err != nil {
		return 0, err
	}
	return r.getDouble(c)
}

// GetString returns the value of the named string column without
// copying. The returned slice aliases the stored value; callers should
// copy it if they need it past the next mutation of the column.
func (r *PartialRow) GetString(name string) ([]byte, error) {
	c, err := r.typedColumn(name, schema.TypeString)
	if err != nil {
		return nil, err
	}
	return r.getString(c)
}

// GetStringAt is the index-addressed form of GetString.
func (r *PartialRow) GetStringAt(idx int) ([]byte, error) {
	c, err := r.typedColumnAt(idx, schema.TypeString)
	if err != nil {
		return nil, err
	}
	return r.getString(c)
}

//------------------------------------------------------------
// Predicates
//------------------------------------------------------------

// IsColumnSet reports whether the named column has been explicitly
// given a value, including an explicit null. Unknown names report
// false.
func (r *PartialRow) IsColumnSet(name string) bool {
	i, err := r.schema.ColumnIndex(name)
	if err != nil {
		return false
	}
	return r.IsColumnSetAt(i)
}

// IsColumnSetAt is the index-addressed form of IsColumnSet.
func (r *PartialRow) IsColumnSetAt(idx int) bool {
	if idx < 0 || idx >= r.schema.ColumnCount() {
		return false
	}
	return r.isset.Test(uint(idx))
}

// IsNull reports whether the named column is explicitly set to null.
// Unknown and unset columns report false.
func (r *PartialRow) IsNull(name string) bool {
	i, err := r.schema.ColumnIndex(name)
	if err != nil {
		return false
	}
	return r.IsNullAt(i)
}

// IsNullAt is the index-addressed form of IsNull.
func (r *PartialRow) IsNullAt(idx int) bool {
	return r.IsColumnSetAt(idx) && r.nullBit(idx)
}

// IsKeySet reports whether every key column holds a concrete value.
// Key columns are never nullable, so set implies a value.
func (r *PartialRow) IsKeySet() bool {
	// Key columns are the schema prefix.
	for i := 0; i < r.schema.KeyColumnCount(); i++ {
		if !r.isset.Test(uint(i)) || r.nullBit(i) {
			return false
		}
	}
	return true
}

// AllColumnsSet reports whether every column has been explicitly given
// a value.
func (r *PartialRow) AllColumnsSet() bool {
	return r.isset.All()
}

// String returns a diagnostic rendering of the row, one entry per
// column showing its value, NULL, or <unset>. Not a wire format.
func (r *PartialRow) String() string {
	var sb strings.Builder
	for i := 0; i < r.schema.ColumnCount(); i++ {
		c, _ := r.schema.ColumnByIndex(i)
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s=", c.Type, c.Name)
		switch {
		case !r.isset.Test(uint(i)):
			sb.WriteString("<unset>")
		case r.nullBit(i):
			sb.WriteString("NULL")
		default:
			sb.WriteString(r.cellString(c))
		}
	}
	return sb.String()
}

//------------------------------------------------------------
// Internals
//------------------------------------------------------------

func (r *PartialRow) typedColumn(name string, t schema.Type) (*schema.Column, error) {
	c, err := r.schema.ColumnByName(name)
	if err != nil {
		return nil, err
	}
	if c.Type != t {
		return nil, &ErrTypeMismatch{Column: c.Name, Declared: c.Type, Requested: t}
	}
	return c, nil
}

func (r *PartialRow) typedColumnAt(idx int, t schema.Type) (*schema.Column, error) {
	c, err := r.schema.ColumnByIndex(idx)
	if err != nil {
		return nil, err
	}
	if c.Type != t {
		return nil, &ErrTypeMismatch{Column: c.Name, Declared: c.Type, Requested: t}
	}
	return c, nil
}

// fixedCell returns the column's cell bytes within the row buffer.
func (r *PartialRow) fixedCell(c *schema.Column) []byte {
	return r.buf[c.Offset() : c.Offset()+c.Width()]
}

func (r *PartialRow) nullBit(idx int) bool {
	return r.buf[r.schema.NullBitmapOffset()+idx/8]&(1<<(idx%8)) != 0
}

func (r *PartialRow) setNullBit(idx int) {
	r.buf[r.schema.NullBitmapOffset()+idx/8] |= 1 << (idx % 8)
}

func (r *PartialRow) clearNullBit(idx int) {
	r.buf[r.schema.NullBitmapOffset()+idx/8] &^= 1 << (idx % 8)
}

// markSet transitions the column into the set state. Must run after the
// cell has been written.
func (r *PartialRow) markSet(c *schema.Column) {
	r.clearNullBit(c.Index())
	r.isset.Set(uint(c.Index()))
}

// releaseIfOwned releases the private copy backing a string column, if
// any. Clearing the ownership bit before the next allocation keeps the
// release idempotent within a transition; a buffer is never freed
// twice.
func (r *PartialRow) releaseIfOwned(c *schema.Column) {
	if c.VarIndex() < 0 {
		return
	}
	if r.owned.Test(uint(c.VarIndex())) {
		r.owned.Clear(uint(c.VarIndex()))
		r.varData[c.VarIndex()] = nil
		r.strReleases++
	}
}

func (r *PartialRow) setBool(c *schema.Column, v bool) error {
	cell := r.fixedCell(c)
	if v {
		cell[0] = 1
	} else {
		cell[0] = 0
	}
	r.markSet(c)
	return nil
}

func (r *PartialRow) setInt8(c *schema.Column, v int8) error {
	r.fixedCell(c)[0] = byte(v)
	r.markSet(c)
	return nil
}

func (r *PartialRow) setInt16(c *schema.Column, v int16) error {
	binary.LittleEndian.PutUint16(r.fixedCell(c), uint16(v))
	r.markSet(c)
	return nil
}

func (r *PartialRow) setInt32(c *schema.Column, v int32) error {
	binary.LittleEndian.PutUint32(r.fixedCell(c), uint32(v))
	r.markSet(c)
	return nil
}

func (r *PartialRow) setInt64(c *schema.Column, v int64) error {
	binary.LittleEndian.PutUint64(r.fixedCell(c), uint64(v))
	r.markSet(c)
	return nil
}

func (r *PartialRow) setFloat(c *schema.Column, v float32) error {
	binary.LittleEndian.PutUint32(r.fixedCell(c), math.Float32bits(v))
	r.markSet(c)
	return nil
}

func (r *PartialRow) setDouble(c *schema.Column, v float64) error {
	binary.LittleEndian.PutUint64(r.fixedCell(c), math.Float64bits(v))
	r.markSet(c)
	return nil
}

func (r *PartialRow) setString(c *schema.Column, v []byte, owned bool) error {
	// Overwriting releases the previous copy even when the new value is
	// borrowed.
	r.releaseIfOwned(c)

	if owned {
		v = append(make([]byte, 0, len(v)), v...)
		r.owned.Set(uint(c.VarIndex()))
		r.strAllocs++
	}
	r.varData[c.VarIndex()] = v

	cell := r.fixedCell(c)
	binary.LittleEndian.PutUint64(cell[0:8], uint64(c.VarIndex()))
	binary.LittleEndian.PutUint64(cell[8:16], uint64(len(v)))
	r.markSet(c)
	return nil
}

func (r *PartialRow) setNull(c *schema.Column) error {
	if !c.Nullable {
		return &ErrNotNullable{Column: c.Name}
	}
	r.releaseIfOwned(c)
	if c.VarIndex() >= 0 {
		r.varData[c.VarIndex()] = nil
	}
	r.setNullBit(c.Index())
	r.isset.Set(uint(c.Index()))
	return nil
}

func (r *PartialRow) unset(c *schema.Column) error {
	r.releaseIfOwned(c)
	if c.VarIndex() >= 0 {
		r.varData[c.VarIndex()] = nil
	}
	r.clearNullBit(c.Index())
	r.isset.Clear(uint(c.Index()))
	return nil
}

// checkReadable verifies the column is in the set, non-null state.
func (r *PartialRow) checkReadable(c *schema.Column) error {
	if !r.isset.Test(uint(c.Index())) {
		return fmt.Errorf("column %q: %w", c.Name, ErrNotSet)
	}
	if r.nullBit(c.Index()) {
		return fmt.Errorf("column %q: %w", c.Name, ErrNull)
	}
	return nil
}

func (r *PartialRow) getBool(c *schema.Column) (bool, error) {
	if err := r.checkReadable(c); err != nil {
		return false, err
	}
	return r.fixedCell(c)[0] != 0, nil
}

func (r *PartialRow) getInt8(c *schema.Column) (int8, error) {
	if err := r.checkReadable(c); err != nil {
		return 0, err
	}
	return int8(r.fixedCell(c)[0]), nil
}

func (r *PartialRow) getInt16(c *schema.Column) (int16, error) {
	if err := r.checkReadable(c); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(r.fixedCell(c))), nil
}

func (r *PartialRow) getInt32(c *schema.Column) (int32, error) {
	if err := r.checkReadable(c); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(r.fixedCell(c))), nil
}

func (r *PartialRow) getInt64(c *schema.Column) (int64, error) {
	if err := r.checkReadable(c); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(r.fixedCell(c))), nil
}

func (r *PartialRow) getFloat(c *schema.Column) (float32, error) {
	if err := r.checkReadable(c); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(r.fixedCell(c))), nil
}

func (r *PartialRow) getDouble(c *schema.Column) (float64, error) {
	if err := r.checkReadable(c); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.fixedCell(c))), nil
}

func (r *PartialRow) getString(c *schema.Column) ([]byte, error) {
	if err := r.checkReadable(c); err != nil {
		return nil, err
	}
	return r.varData[c.VarIndex()], nil
}

func (r *PartialRow) cellString(c *schema.Column) string {
	switch c.Type {
	case schema.TypeBool:
		return strconv.FormatBool(r.fixedCell(c)[0] != 0)
	case schema.TypeInt8:
		return strconv.FormatInt(int64(int8(r.fixedCell(c)[0])), 10)
	case schema.TypeInt16:
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(r.fixedCell(c)))), 10)
	case schema.TypeInt32:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(r.fixedCell(c)))), 10)
	case schema.TypeInt64:
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(r.fixedCell(c))), 10)
	case schema.TypeFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(r.fixedCell(c)))), 'g', -1, 32)
	case schema.TypeDouble:
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(r.fixedCell(c))), 'g', -1, 64)
	case schema.TypeString:
		return strconv.Quote(string(r.varData[c.VarIndex()]))
	default:
		return "?"
	}
}
