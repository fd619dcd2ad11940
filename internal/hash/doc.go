// Package hash provides the checksums and hash functions used by the graph
// file format and the in-memory table.
//
// # CRC32-Castagnoli (CRC32C)
//
// File headers carry a CRC32C over the fixed header fields and the colour
// info block. Go's crc32 package uses SSE4.2 / ARM CRC instructions when
// available.
//
//	sum := hash.CRC32C(data)
//
// # Key hashing
//
// Table slots are addressed by an xxhash64 of the packed key words:
//
//	h := hash.Key(key)
package hash
