// Package recfile implements the record-file facade: a thin wrapper that
// serializes one fixed record schema onto the slotted page layer, giving
// callers Insert/Get/Delete/Scan over typed records instead of raw byte
// slices.
//
// Narrowed from a general Put/Get/Delete/Close/Stats KV engine shape
// down to a sequential fixed-record file, made generic over the record
// type via Codec rather than hardcoding one struct.
package recfile

// Codec converts between a typed record and the bytes a slotted page
// stores. Encode may return records of differing lengths: each slot entry
// records its own record's length, so no fixed size is needed.
type Codec[T any] interface {
	Encode(v T) []byte
	Decode(b []byte) (T, error)
}
