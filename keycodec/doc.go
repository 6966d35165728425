// Package keycodec implements the order-preserving encoding of primary
// key components: byte strings whose lexicographic (memcmp) order
// equals the logical order of the typed values they encode.
//
// The encoding is a fixed wire contract shared with whatever
// partitioner or split-key decoder consumes these keys; none of the
// rules below may change without a format version bump.
//
//   - bool: one byte, 0x00 or 0x01.
//   - signed integers: big-endian with the sign bit flipped.
//   - float/double: the IEEE-754 bit pattern with the sign bit set for
//     non-negative values and all bits complemented for negative ones,
//     big-endian.
//   - string, non-terminal component: raw bytes with every 0x00 escaped
//     as 0x00 0x01, terminated by 0x00 0x00.
//   - string, terminal component: raw bytes, no escaping.
//
// Decode counterparts are provided for the consumer side of the
// contract.
package keycodec
