// Package store implements the fixed-capacity hash table behind a loaded graph.
//
// Records live in parallel slot-indexed arrays (keys, presence bits, edge
// sets); a record is owned by its slot and never referenced from outside
// the store. Keys are placed by linear probing from an xxhash-derived start
// slot, so lookups stop at the key or at the first empty slot.
//
// A Store is populated single-threaded and then sealed. Seal is the publish
// barrier: lookups before Seal report nothing, and after Seal the store is
// immutable and safe for any number of concurrent readers.
package store
