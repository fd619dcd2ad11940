package store

import "errors"

var (
	// ErrSealed is returned by Insert after Seal.
	ErrSealed = errors.New("store is sealed")

	// ErrNotSealed is returned by queries issued before Seal.
	ErrNotSealed = errors.New("store is not sealed")

	// ErrTableFull is returned when every slot is occupied.
	ErrTableFull = errors.New("hash table is full")

	// ErrDuplicateKey is returned when a key is inserted twice.
	ErrDuplicateKey = errors.New("duplicate kmer key")

	// ErrEmptyPresence is returned for records with no colour bit set.
	ErrEmptyPresence = errors.New("record is present in no colour")

	// ErrInvalidColor is returned for colour indexes outside [0, NumColors).
	ErrInvalidColor = errors.New("invalid colour")

	// ErrInvalidParams is returned for unusable table parameters.
	ErrInvalidParams = errors.New("invalid store parameters")
)
