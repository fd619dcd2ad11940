package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/kmerdb/internal/fs"
	"github.com/hupe1980/kmerdb/kmer"
)

// ErrWriterClosed is returned when writing to a closed Writer.
var ErrWriterClosed = errors.New("format: writer closed")

// Writer encodes a header and its records.
type Writer struct {
	h     Header
	codec *kmer.Codec
	bw    *bufio.Writer
	comp  io.WriteCloser
	dst   io.Writer
	buf   []byte

	written uint64
	closed  bool
}

// NewWriter writes the header for h to w and returns a Writer for its records.
// Exactly h.Records records must be written before Close.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	hdr, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	c, err := kmer.NewCodec(h.KmerSize)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriterSize(w, readBufferSize)
	if _, err := bw.Write(hdr); err != nil {
		return nil, err
	}

	wr := &Writer{
		h:     h,
		codec: c,
		bw:    bw,
		dst:   bw,
		buf:   make([]byte, 0, h.RecordSize()),
	}

	switch h.Compression {
	case CompressionLZ4:
		wr.comp = lz4.NewWriter(bw)
	case CompressionZstd:
		enc, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		wr.comp = enc
	}
	if wr.comp != nil {
		wr.dst = wr.comp
	}
	return wr, nil
}

// Write encodes one record. The key must be canonical and the record must
// carry exactly PresenceBytes presence bytes and NumEdgeCols edge sets.
func (w *Writer) Write(rec Record) error {
	if w.closed {
		return ErrWriterClosed
	}
	if w.written == w.h.Records {
		return fmt.Errorf("%w: more than %d records", ErrRecordCount, w.h.Records)
	}
	if !w.codec.IsCanonical(rec.Key) {
		return fmt.Errorf("format: key %s is not canonical", w.codec.Decode(rec.Key))
	}
	if len(rec.Presence) != w.h.PresenceBytes() {
		return fmt.Errorf("format: presence has %d bytes, want %d", len(rec.Presence), w.h.PresenceBytes())
	}
	if len(rec.Edges) != w.h.NumEdgeCols {
		return fmt.Errorf("format: record has %d edge colours, want %d", len(rec.Edges), w.h.NumEdgeCols)
	}

	b := w.codec.AppendKey(w.buf[:0], rec.Key)
	b = append(b, rec.Presence...)
	for _, e := range rec.Edges {
		b = append(b, byte(e))
	}
	if _, err := w.dst.Write(b); err != nil {
		return err
	}
	w.written++
	return nil
}

// Written returns the number of records written so far.
func (w *Writer) Written() uint64 { return w.written }

// Close flushes buffered data. It does not close the underlying writer and
// fails with ErrRecordCount if fewer records were written than declared.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.comp != nil {
		if err := w.comp.Close(); err != nil {
			return err
		}
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if w.written != w.h.Records {
		return fmt.Errorf("%w: wrote %d of %d", ErrRecordCount, w.written, w.h.Records)
	}
	return nil
}

// WriteFile atomically writes a graph file to path: records go to a
// temporary file which is synced and renamed into place.
func WriteFile(fsys fs.FileSystem, path string, h Header, records iter.Seq[Record]) (err error) {
	if fsys == nil {
		fsys = fs.Default
	}
	tmp := path + ".tmp"

	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = fsys.Remove(tmp)
		}
	}()

	w, err := NewWriter(f, h)
	if err != nil {
		return err
	}
	for rec := range records {
		if err = w.Write(rec); err != nil {
			return err
		}
	}
	if err = w.Close(); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return fsys.Rename(tmp, path)
}
