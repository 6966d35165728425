package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/rowgo"
	"github.com/hupe1980/rowgo/schema"
)

// Format version 1:
//
//	[magic "RWGO":4][version:1][compression:1][op count uvarint]
//	[block: [uncompressed u32][compressed u32][payload]]
//
// payload, per operation:
//
//	[type:1][isset bitmap][null bitmap][cells of set, non-null columns
//	in schema order: raw fixed-width bytes, or uvarint length + bytes
//	for strings]
const formatVersion = 1

var magic = []byte("RWGO")

// ErrSchemaMismatch indicates an operation whose row is bound to a
// different schema than the codec.
var ErrSchemaMismatch = errors.New("row schema does not match codec schema")

// ErrTruncated indicates an encoded batch shorter than its framing
// claims.
var ErrTruncated = errors.New("truncated batch")

// OpType identifies the kind of mutation an operation carries.
type OpType uint8

const (
	// OpInsert inserts a new row.
	OpInsert OpType = iota + 1
	// OpUpdate updates an existing row.
	OpUpdate
	// OpUpsert inserts or updates.
	OpUpsert
	// OpDelete deletes the row identified by the key columns.
	OpDelete
)

// String returns the string representation of the OpType.
func (t OpType) String() string {
	switch t {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

func (t OpType) valid() bool {
	return t >= OpInsert && t <= OpDelete
}

// Op is a single mutation: an operation type plus the row carrying the
// touched columns. Delete operations only need their key columns set.
type Op struct {
	Type OpType
	Row  *rowgo.PartialRow
}

// Encoder serializes mutation batches against a fixed schema. It reads
// row state exclusively through the RowView boundary.
type Encoder struct {
	schema      *schema.Schema
	projection  *schema.ColumnSet
	compression Compression
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithProjection restricts encoding to the given columns. Key columns
// are always included regardless of the projection.
func WithProjection(cs *schema.ColumnSet) Option {
	return func(e *Encoder) {
		e.projection = cs
	}
}

// WithCompression selects the block compression for the batch payload.
func WithCompression(c Compression) Option {
	return func(e *Encoder) {
		e.compression = c
	}
}

// NewEncoder creates an Encoder for the given schema.
func NewEncoder(s *schema.Schema, opts ...Option) *Encoder {
	e := &Encoder{schema: s, compression: CompressionNone}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Encoder) includes(idx int) bool {
	if e.projection == nil {
		return true
	}
	if idx < e.schema.KeyColumnCount() {
		return true
	}
	return e.projection.Contains(idx)
}

// Encode serializes the batch. Every operation must carry a row bound
// to the encoder's schema with all key columns set.
func (e *Encoder) Encode(ops []Op) ([]byte, error) {
	ncols := e.schema.ColumnCount()
	nbytes := (ncols + 7) / 8

	var payload []byte
	for oi, op := range ops {
		if !op.Type.valid() {
			return nil, fmt.Errorf("op %d: invalid operation type %d", oi, op.Type)
		}
		if op.Row == nil {
			return nil, fmt.Errorf("op %d: nil row", oi)
		}
		if op.Row.Schema() != e.schema {
			return nil, fmt.Errorf("op %d: %w", oi, ErrSchemaMismatch)
		}
		if !op.Row.IsKeySet() {
			return nil, fmt.Errorf("op %d: %w", oi, rowgo.ErrKeyNotSet)
		}

		view := op.Row.View()
		issetBytes := make([]byte, nbytes)
		nullBytes := make([]byte, nbytes)
		for i := 0; i < ncols; i++ {
			if !view.IsSet(i) || !e.includes(i) {
				continue
			}
			issetBytes[i/8] |= 1 << (i % 8)
			if view.IsNull(i) {
				nullBytes[i/8] |= 1 << (i % 8)
			}
		}

		payload = append(payload, byte(op.Type))
		payload = append(payload, issetBytes...)
		payload = append(payload, nullBytes...)

		for i := 0; i < ncols; i++ {
			if issetBytes[i/8]&(1<<(i%8)) == 0 || nullBytes[i/8]&(1<<(i%8)) != 0 {
				continue
			}
			cell, err := view.CellData(i)
			if err != nil {
				return nil, fmt.Errorf("op %d column %d: %w", oi, i, err)
			}
			c, _ := e.schema.ColumnByIndex(i)
			if c.Type == schema.TypeString {
				payload = binary.AppendUvarint(payload, uint64(len(cell)))
			}
			payload = append(payload, cell...)
		}
	}

	block, err := compressBlock(payload, e.compression)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+2+binary.MaxVarintLen64+len(block))
	out = append(out, magic...)
	out = append(out, formatVersion, byte(e.compression))
	out = binary.AppendUvarint(out, uint64(len(ops)))
	return append(out, block...), nil
}

// Decoder deserializes mutation batches produced by an Encoder bound to
// the same schema.
type Decoder struct {
	schema *schema.Schema
}

// NewDecoder creates a Decoder for the given schema.
func NewDecoder(s *schema.Schema) *Decoder {
	return &Decoder{schema: s}
}

// Decode parses a batch. String values in the returned rows are private
// copies; the input buffer may be reused afterwards.
func (d *Decoder) Decode(data []byte) ([]Op, error) {
	if len(data) < len(magic)+2 {
		return nil, ErrTruncated
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return nil, errors.New("bad magic")
	}
	if data[len(magic)] != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", data[len(magic)])
	}
	compression := Compression(data[len(magic)+1])
	data = data[len(magic)+2:]

	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, ErrTruncated
	}
	payload, err := decompressBlock(data[n:], compression)
	if err != nil {
		return nil, err
	}

	ncols := d.schema.ColumnCount()
	nbytes := (ncols + 7) / 8

	// Every operation occupies at least its type byte and two bitmaps,
	// so a count the payload cannot possibly satisfy is rejected before
	// anything is allocated for it.
	if count > uint64(len(payload))/uint64(1+2*nbytes) {
		return nil, ErrTruncated
	}

	ops := make([]Op, 0, count)
	for oi := uint64(0); oi < count; oi++ {
		if len(payload) < 1+2*nbytes {
			return nil, ErrTruncated
		}
		opType := OpType(payload[0])
		if !opType.valid() {
			return nil, fmt.Errorf("op %d: invalid operation type %d", oi, payload[0])
		}
		issetBytes := payload[1 : 1+nbytes]
		nullBytes := payload[1+nbytes : 1+2*nbytes]
		payload = payload[1+2*nbytes:]

		row := rowgo.New(d.schema)
		for i := 0; i < ncols; i++ {
			if issetBytes[i/8]&(1<<(i%8)) == 0 {
				continue
			}
			if nullBytes[i/8]&(1<<(i%8)) != 0 {
				if err := row.SetNullAt(i); err != nil {
					return nil, fmt.Errorf("op %d column %d: %w", oi, i, err)
				}
				continue
			}
			payload, err = d.decodeCell(row, i, payload)
			if err != nil {
				return nil, fmt.Errorf("op %d column %d: %w", oi, i, err)
			}
		}
		ops = append(ops, Op{Type: opType, Row: row})
	}

	if len(payload) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after batch", len(payload))
	}
	return ops, nil
}

func (d *Decoder) decodeCell(row *rowgo.PartialRow, idx int, payload []byte) ([]byte, error) {
	c, err := d.schema.ColumnByIndex(idx)
	if err != nil {
		return nil, err
	}

	if c.Type == schema.TypeString {
		slen, n := binary.Uvarint(payload)
		if n <= 0 || uint64(len(payload)-n) < slen {
			return nil, ErrTruncated
		}
		if err := row.SetStringCopyAt(idx, payload[n:n+int(slen)]); err != nil {
			return nil, err
		}
		return payload[n+int(slen):], nil
	}

	width := c.Width()
	if len(payload) < width {
		return nil, ErrTruncated
	}
	cell := payload[:width]

	switch c.Type {
	case schema.TypeBool:
		err = row.SetBoolAt(idx, cell[0] != 0)
	case schema.TypeInt8:
		err = row.SetInt8At(idx, int8(cell[0]))
	case schema.TypeInt16:
		err = row.SetInt16At(idx, int16(binary.LittleEndian.Uint16(cell)))
	case schema.TypeInt32:
		err = row.SetInt32At(idx, int32(binary.LittleEndian.Uint32(cell)))
	case schema.TypeInt64:
		err = row.SetInt64At(idx, int64(binary.LittleEndian.Uint64(cell)))
	case schema.TypeFloat:
		err = row.SetFloatAt(idx, math.Float32frombits(binary.LittleEndian.Uint32(cell)))
	case schema.TypeDouble:
		err = row.SetDoubleAt(idx, math.Float64frombits(binary.LittleEndian.Uint64(cell)))
	default:
		err = fmt.Errorf("undecodable column type %s", c.Type)
	}
	if err != nil {
		return nil, err
	}
	return payload[width:], nil
}
