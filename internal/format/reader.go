package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/kmer"
)

const readBufferSize = 256 * 1024

// RecordReader decodes the record stream that follows a header.
//
// Trailing bytes after the declared record count are ignored.
type RecordReader struct {
	h      *Header
	codec  *kmer.Codec
	src    io.Reader
	closer func()
	buf    []byte
	read   uint64
	err    error
}

// NewRecordReader returns a reader for the records of h. r must be positioned
// just past the header, as ReadHeader leaves it.
func NewRecordReader(r io.Reader, h *Header) (*RecordReader, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	c, err := kmer.NewCodec(h.KmerSize)
	if err != nil {
		return nil, formatErrorf(err, "kmer size %d", h.KmerSize)
	}

	rr := &RecordReader{
		h:     h,
		codec: c,
		buf:   make([]byte, h.RecordSize()),
	}

	br := bufio.NewReaderSize(r, readBufferSize)
	switch h.Compression {
	case CompressionNone:
		rr.src = br
	case CompressionLZ4:
		rr.src = lz4.NewReader(br)
	case CompressionZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, formatErrorf(err, "zstd stream")
		}
		rr.src = dec
		rr.closer = dec.Close
	default:
		return nil, formatErrorf(nil, "unknown compression %d", uint8(h.Compression))
	}
	return rr, nil
}

// Header returns the header the reader was built for.
func (rr *RecordReader) Header() *Header { return rr.h }

// Read returns the number of records decoded so far.
func (rr *RecordReader) Read() uint64 { return rr.read }

// Next decodes the next record into rec, reusing its slices. It returns
// io.EOF once the declared number of records has been read.
func (rr *RecordReader) Next(rec *Record) error {
	if rr.err != nil {
		return rr.err
	}
	if rr.read == rr.h.Records {
		return io.EOF
	}
	if err := rr.next(rec); err != nil {
		rr.err = err
		return err
	}
	rr.read++
	return nil
}

func (rr *RecordReader) next(rec *Record) error {
	if _, err := io.ReadFull(rr.src, rr.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &TruncatedError{Declared: rr.h.Records, Read: rr.read}
		}
		if rr.h.Compression != CompressionNone {
			return formatErrorf(err, "corrupt %s stream at record %d", rr.h.Compression, rr.read)
		}
		return fmt.Errorf("format: read record %d: %w", rr.read, err)
	}

	kb, pb := rr.h.KeyBytes(), rr.h.PresenceBytes()

	key, err := rr.codec.ReadKey(rr.buf[:kb])
	if err != nil {
		return formatErrorf(err, "record %d", rr.read)
	}
	if !rr.codec.IsCanonical(key) {
		return formatErrorf(nil, "record %d: key %s is not canonical", rr.read, rr.codec.Decode(key))
	}
	rec.Key = key

	rec.Presence = append(rec.Presence[:0], rr.buf[kb:kb+pb]...)
	if rem := rr.h.NumColors % 8; rem != 0 {
		rec.Presence[pb-1] &= byte(1<<rem) - 1
	}

	rec.Edges = rec.Edges[:0]
	for _, b := range rr.buf[kb+pb:] {
		rec.Edges = append(rec.Edges, edges.Set(b))
	}
	return nil
}

// Close releases decompressor resources. It does not close the source.
func (rr *RecordReader) Close() error {
	if rr.closer != nil {
		rr.closer()
		rr.closer = nil
	}
	return nil
}
