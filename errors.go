package kmerdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/kmerdb/internal/format"
	"github.com/hupe1980/kmerdb/internal/store"
	"github.com/hupe1980/kmerdb/kmer"
	"github.com/hupe1980/kmerdb/resource"
)

var (
	// ErrInvalidKmer matches every InvalidKmerError.
	ErrInvalidKmer = kmer.ErrInvalidKmer

	// ErrInvalidColor matches every InvalidColorError.
	ErrInvalidColor = errors.New("invalid colour")

	// ErrKmerNotFound matches every KmerNotFoundError.
	ErrKmerNotFound = errors.New("kmer not found")

	// ErrFormat matches every FormatError.
	ErrFormat = errors.New("invalid graph file")

	// ErrTruncatedFile matches every TruncatedFileError.
	ErrTruncatedFile = errors.New("truncated graph file")

	// ErrParameterMismatch matches every ParameterMismatchError.
	ErrParameterMismatch = errors.New("graph parameter mismatch")

	// ErrCapacityExceeded is returned when a fixed capacity cannot hold the file.
	ErrCapacityExceeded = errors.New("graph capacity exceeded")

	// ErrMemoryLimitExceeded is returned when a load does not fit the memory budget.
	ErrMemoryLimitExceeded = errors.New("graph memory limit exceeded")

	// ErrInvalidOption is returned for unusable load or save options.
	ErrInvalidOption = errors.New("invalid option")

	// ErrClosed is returned by queries on a closed graph.
	ErrClosed = errors.New("graph is closed")
)

// InvalidKmerError describes a query sequence of the wrong length or with a
// character outside ACGT.
type InvalidKmerError = kmer.InvalidKmerError

// InvalidColorError indicates a colour index outside [0, NumColors).
type InvalidColorError struct {
	Color     int
	NumColors int
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("invalid colour %d: graph has %d colours", e.Color, e.NumColors)
}

// Is reports whether target is ErrInvalidColor.
func (e *InvalidColorError) Is(target error) bool { return target == ErrInvalidColor }

// KmerNotFoundError indicates a query for a k-mer absent from every colour.
type KmerNotFoundError struct {
	Kmer string
}

func (e *KmerNotFoundError) Error() string {
	return fmt.Sprintf("kmer %s not found", e.Kmer)
}

// Is reports whether target is ErrKmerNotFound.
func (e *KmerNotFoundError) Is(target error) bool { return target == ErrKmerNotFound }

// FormatError indicates a graph file with an unrecognised or inconsistent structure.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type FormatError struct {
	Reason string
	cause  error
}

func (e *FormatError) Error() string {
	return "invalid graph file: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.cause }

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// TruncatedFileError indicates a file holding fewer records than its header declares.
type TruncatedFileError struct {
	Declared uint64
	Read     uint64
	cause    error
}

func (e *TruncatedFileError) Error() string {
	return fmt.Sprintf("truncated graph file: %d of %d records present", e.Read, e.Declared)
}

func (e *TruncatedFileError) Unwrap() error { return e.cause }

// Is reports whether target is ErrTruncatedFile.
func (e *TruncatedFileError) Is(target error) bool { return target == ErrTruncatedFile }

// ParameterMismatchError indicates a header parameter that disagrees with a
// caller-pinned expectation.
type ParameterMismatchError struct {
	Param    string
	Expected int
	Actual   int
}

func (e *ParameterMismatchError) Error() string {
	return fmt.Sprintf("parameter mismatch: %s expected %d, file has %d", e.Param, e.Expected, e.Actual)
}

// Is reports whether target is ErrParameterMismatch.
func (e *ParameterMismatchError) Is(target error) bool { return target == ErrParameterMismatch }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var fe *format.Error
	if errors.As(err, &fe) {
		return &FormatError{Reason: fe.Reason, cause: err}
	}
	var te *format.TruncatedError
	if errors.As(err, &te) {
		return &TruncatedFileError{Declared: te.Declared, Read: te.Read, cause: err}
	}
	if errors.Is(err, store.ErrDuplicateKey) {
		return &FormatError{Reason: err.Error(), cause: err}
	}
	if errors.Is(err, store.ErrTableFull) {
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	}
	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrMemoryLimitExceeded, err)
	}
	if errors.Is(err, store.ErrInvalidParams) {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	return err
}
