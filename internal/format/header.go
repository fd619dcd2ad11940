package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/kmerdb/codec"
	"github.com/hupe1980/kmerdb/internal/hash"
	"github.com/hupe1980/kmerdb/kmer"
)

const (
	// Magic opens every graph file.
	Magic = "KMERDBG\x00"
	// Version is the only file version this package reads and writes.
	Version = 1
	// HeaderSize is the fixed header length in bytes.
	HeaderSize = 48

	// MaxColors bounds num_colors so a corrupt header cannot request huge records.
	MaxColors = 1 << 16

	maxInfoLen = 64 << 20
	crcOffset  = 40
)

// Compression selects how the record stream is encoded.
type Compression uint8

const (
	// CompressionNone stores records verbatim.
	CompressionNone Compression = 0
	// CompressionLZ4 wraps the record stream in one lz4 frame.
	CompressionLZ4 Compression = 1
	// CompressionZstd wraps the record stream in one zstd stream.
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression is the inverse of Compression.String.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// ColorInfo is the per-sample metadata carried in the header.
type ColorInfo struct {
	Name           string `json:"name,omitempty"`
	MeanReadLength uint32 `json:"mean_read_length,omitempty"`
	TotalSequence  uint64 `json:"total_sequence,omitempty"`
	Cleaning       string `json:"cleaning,omitempty"`
}

// Header describes a graph file.
type Header struct {
	KmerSize    int
	NumColors   int
	NumEdgeCols int
	Records     uint64
	Compression Compression

	// Colors is empty or holds one entry per colour.
	Colors []ColorInfo
	// Codec encodes Colors. Nil means codec.Default when writing.
	Codec codec.Codec

	encodedLen int64
}

// Validate checks the header fields against the supported ranges.
func (h *Header) Validate() error {
	if err := kmer.ValidateKmerSize(h.KmerSize); err != nil {
		return formatErrorf(err, "kmer size %d", h.KmerSize)
	}
	if h.NumColors < 1 || h.NumColors > MaxColors {
		return formatErrorf(nil, "num colours %d not in [1,%d]", h.NumColors, MaxColors)
	}
	if h.NumEdgeCols < 0 || h.NumEdgeCols > h.NumColors {
		return formatErrorf(nil, "num edge colours %d not in [0,%d]", h.NumEdgeCols, h.NumColors)
	}
	if h.Compression > CompressionZstd {
		return formatErrorf(nil, "unknown compression %d", uint8(h.Compression))
	}
	if len(h.Colors) != 0 && len(h.Colors) != h.NumColors {
		return formatErrorf(nil, "colour info has %d entries for %d colours", len(h.Colors), h.NumColors)
	}
	return nil
}

// KeyBytes is the width of a record key.
func (h *Header) KeyBytes() int { return (2*h.KmerSize + 7) / 8 }

// PresenceBytes is the width of a record's colour bit-vector.
func (h *Header) PresenceBytes() int { return (h.NumColors + 7) / 8 }

// RecordSize is the width of one record.
func (h *Header) RecordSize() int { return h.KeyBytes() + h.PresenceBytes() + h.NumEdgeCols }

// EncodedLen is the length of the header and colour-info block as read by
// ReadHeader. It is zero for headers built in memory.
func (h *Header) EncodedLen() int64 { return h.encodedLen }

// CheckSize returns a *TruncatedError when n bytes of uncompressed record
// stream cannot hold the declared records. Compressed streams and a negative
// n (unknown length) always pass.
func (h *Header) CheckSize(n int64) error {
	if n < 0 || h.Compression != CompressionNone {
		return nil
	}
	if fit := uint64(n) / uint64(h.RecordSize()); fit < h.Records {
		return &TruncatedError{Declared: h.Records, Read: fit}
	}
	return nil
}

// MarshalBinary encodes the fixed header followed by the colour-info block.
func (h *Header) MarshalBinary() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	info, err := h.marshalInfo()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, HeaderSize, HeaderSize+len(info))
	copy(buf[0:8], Magic)
	binary.LittleEndian.PutUint32(buf[8:12], Version)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.KmerSize))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.NumColors))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.NumEdgeCols))
	binary.LittleEndian.PutUint64(buf[24:32], h.Records)
	buf[32] = byte(h.Compression)
	binary.LittleEndian.PutUint32(buf[36:40], uint32(len(info)))
	buf = append(buf, info...)

	binary.LittleEndian.PutUint32(buf[crcOffset:crcOffset+4], headerCRC(buf[:crcOffset], info))
	return buf, nil
}

func (h *Header) marshalInfo() ([]byte, error) {
	if len(h.Colors) == 0 {
		return nil, nil
	}
	c := h.Codec
	if c == nil {
		c = codec.Default
	}
	payload, err := c.Marshal(h.Colors)
	if err != nil {
		return nil, fmt.Errorf("format: encode colour info: %w", err)
	}
	name := c.Name()
	if len(name) > 0xffff {
		return nil, fmt.Errorf("format: codec name too long: %d", len(name))
	}
	info := make([]byte, 0, 2+len(name)+len(payload))
	info = binary.LittleEndian.AppendUint16(info, uint16(len(name)))
	info = append(info, name...)
	info = append(info, payload...)
	if len(info) > maxInfoLen {
		return nil, fmt.Errorf("format: colour info block too large: %d bytes", len(info))
	}
	return info, nil
}

// ReadHeader reads and verifies the header and colour-info block, leaving r
// positioned at the first record.
func ReadHeader(r io.Reader) (*Header, error) {
	var fixed [HeaderSize]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, formatErrorf(io.ErrUnexpectedEOF, "short header")
		}
		return nil, err
	}

	if string(fixed[0:8]) != Magic {
		return nil, formatErrorf(nil, "bad magic %q", fixed[0:8])
	}
	if v := binary.LittleEndian.Uint32(fixed[8:12]); v != Version {
		return nil, formatErrorf(nil, "unsupported version %d", v)
	}

	infoLen := binary.LittleEndian.Uint32(fixed[36:40])
	if infoLen > maxInfoLen {
		return nil, formatErrorf(nil, "colour info block of %d bytes", infoLen)
	}
	info := make([]byte, infoLen)
	if _, err := io.ReadFull(r, info); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, formatErrorf(io.ErrUnexpectedEOF, "short colour info block")
		}
		return nil, err
	}

	want := binary.LittleEndian.Uint32(fixed[crcOffset : crcOffset+4])
	if got := headerCRC(fixed[:crcOffset], info); got != want {
		return nil, formatErrorf(nil, "header checksum mismatch: stored %08x, computed %08x", want, got)
	}

	h := &Header{
		KmerSize:    int(binary.LittleEndian.Uint32(fixed[12:16])),
		NumColors:   int(binary.LittleEndian.Uint32(fixed[16:20])),
		NumEdgeCols: int(binary.LittleEndian.Uint32(fixed[20:24])),
		Records:     binary.LittleEndian.Uint64(fixed[24:32]),
		Compression: Compression(fixed[32]),
		encodedLen:  HeaderSize + int64(infoLen),
	}
	if err := h.unmarshalInfo(info); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) unmarshalInfo(info []byte) error {
	if len(info) == 0 {
		return nil
	}
	if len(info) < 2 {
		return formatErrorf(nil, "colour info block of %d bytes", len(info))
	}
	n := int(binary.LittleEndian.Uint16(info))
	if 2+n > len(info) {
		return formatErrorf(nil, "codec name overruns colour info block")
	}
	name := string(info[2 : 2+n])
	c, ok := codec.ByName(name)
	if !ok {
		return formatErrorf(nil, "unknown colour info codec %q", name)
	}
	if err := c.Unmarshal(info[2+n:], &h.Colors); err != nil {
		return formatErrorf(err, "decode colour info")
	}
	h.Codec = c
	return nil
}

func headerCRC(fixed, info []byte) uint32 {
	crc := hash.NewCRC32C()
	_, _ = crc.Write(fixed)
	_, _ = crc.Write(info)
	return crc.Sum32()
}
