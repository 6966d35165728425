// Package wire serializes batches of row mutations into a compact
// binary format for transport to the storage layer.
//
// The encoder never touches row internals directly: it reads state
// through the rowgo.RowView boundary (isset and null bitmaps, cell
// bytes, string ownership) and owns all framing decisions itself.
//
// Batches carry a per-operation type (insert, update, upsert, delete),
// a projection-masked column subset, and optional LZ4 or zstd block
// compression of the payload. The format is versioned; see the header
// comment in wire.go for the exact layout.
package wire
