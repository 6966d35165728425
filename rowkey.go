package rowgo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/rowgo/keycodec"
	"github.com/hupe1980/rowgo/schema"
)

// EncodeRowKey encodes the row's key columns, in key order, into a byte
// string whose lexicographic order matches the logical order of the key
// tuple. Suitable as a tablet split key or range bound.
//
// Every key column must be set; otherwise ErrKeyNotSet is returned and
// no output is produced.
func (r *PartialRow) EncodeRowKey() ([]byte, error) {
	if !r.IsKeySet() {
		return nil, ErrKeyNotSet
	}

	nkey := r.schema.KeyColumnCount()
	var key []byte
	for i := 0; i < nkey; i++ {
		// Key columns form the schema prefix, in key order.
		c, _ := r.schema.ColumnByIndex(i)
		cell := r.fixedCell(c)

		switch c.Type {
		case schema.TypeBool:
			key = keycodec.AppendBool(key, cell[0] != 0)
		case schema.TypeInt8:
			key = keycodec.AppendInt8(key, int8(cell[0]))
		case schema.TypeInt16:
			key = keycodec.AppendInt16(key, int16(binary.LittleEndian.Uint16(cell)))
		case schema.TypeInt32:
			key = keycodec.AppendInt32(key, int32(binary.LittleEndian.Uint32(cell)))
		case schema.TypeInt64:
			key = keycodec.AppendInt64(key, int64(binary.LittleEndian.Uint64(cell)))
		case schema.TypeFloat:
			key = keycodec.AppendFloat32(key, math.Float32frombits(binary.LittleEndian.Uint32(cell)))
		case schema.TypeDouble:
			key = keycodec.AppendFloat64(key, math.Float64frombits(binary.LittleEndian.Uint64(cell)))
		case schema.TypeString:
			key = keycodec.AppendString(key, r.varData[c.VarIndex()], i == nkey-1)
		default:
			return nil, fmt.Errorf("column %q: unencodable key type %s", c.Name, c.Type)
		}
	}
	return key, nil
}

// MustEncodeRowKey is like EncodeRowKey but panics on failure. It is a
// convenience for call sites where an incomplete key is a programming
// error; the core API always returns an error instead.
func (r *PartialRow) MustEncodeRowKey() []byte {
	key, err := r.EncodeRowKey()
	if err != nil {
		panic(fmt.Errorf("rowgo: %w", err))
	}
	return key
}
