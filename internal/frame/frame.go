package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/roarguard/internal/hash"
	"github.com/hupe1980/roarguard/internal/mem"
)

// HeaderSize is the fixed frame header length.
const HeaderSize = 32

// Version is the current frame version.
const Version uint8 = 1

var magic = [4]byte{'R', 'G', 'B', 'F'}

var (
	// ErrTruncated is returned when a frame is shorter than its header claims.
	ErrTruncated = errors.New("frame: truncated")
	// ErrBadMagic is returned for data that is not a frame.
	ErrBadMagic = errors.New("frame: bad magic")
	// ErrUnsupportedVersion is returned for frames written by a newer version.
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	// ErrChecksum is returned when the payload does not match its CRC32C.
	ErrChecksum = errors.New("frame: checksum mismatch")
	// ErrCorrupt is returned when a compressed payload cannot be expanded.
	ErrCorrupt = errors.New("frame: corrupt payload")
	// ErrUnknownCompression is returned for unknown compression values.
	ErrUnknownCompression = errors.New("frame: unknown compression")
)

// minGain is the ratio a compressed payload must beat to be stored compressed.
const minGain = 0.9

// Header describes a frame.
type Header struct {
	Version     uint8
	Format      uint8
	Compression Compression
	PayloadLen  uint64
	RawLen      uint64
	Checksum    uint32
}

// Size returns the total frame length.
func (h Header) Size() uint64 { return HeaderSize + h.PayloadLen }

func (h Header) put(dst []byte) {
	copy(dst[0:4], magic[:])
	dst[4] = h.Version
	dst[5] = h.Format
	dst[6] = byte(h.Compression)
	dst[7] = 0
	binary.LittleEndian.PutUint64(dst[8:], h.PayloadLen)
	binary.LittleEndian.PutUint64(dst[16:], h.RawLen)
	binary.LittleEndian.PutUint32(dst[24:], h.Checksum)
	binary.LittleEndian.PutUint32(dst[28:], 0)
}

// ParseHeader validates and decodes the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d header bytes", ErrTruncated, len(b))
	}
	if [4]byte(b[0:4]) != magic {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:     b[4],
		Format:      b[5],
		Compression: Compression(b[6]),
		PayloadLen:  binary.LittleEndian.Uint64(b[8:]),
		RawLen:      binary.LittleEndian.Uint64(b[16:]),
		Checksum:    binary.LittleEndian.Uint32(b[24:]),
	}
	if h.Version == 0 || h.Version > Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Compression > CompressionZSTD {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownCompression, b[6])
	}
	if h.Compression == CompressionNone && h.PayloadLen != h.RawLen {
		return Header{}, fmt.Errorf("%w: uncompressed payload length %d != raw length %d", ErrCorrupt, h.PayloadLen, h.RawLen)
	}
	return h, nil
}

// Encode frames raw. Compression is skipped when it does not pay off, so the
// returned header may report CompressionNone. The frame is 32-byte aligned.
func Encode(format uint8, raw []byte, c Compression) ([]byte, Header, error) {
	payload := raw
	used := CompressionNone
	if c != CompressionNone && len(raw) > 0 {
		compressed, err := compress(raw, c)
		if err != nil {
			return nil, Header{}, err
		}
		if compressed != nil && float64(len(compressed)) <= float64(len(raw))*minGain {
			payload, used = compressed, c
		}
	}

	h := Header{
		Version:     Version,
		Format:      format,
		Compression: used,
		PayloadLen:  uint64(len(payload)),
		RawLen:      uint64(len(raw)),
		Checksum:    hash.CRC32C(payload),
	}
	out, err := mem.Alloc(HeaderSize+len(payload), mem.DefaultAlignment)
	if err != nil {
		return nil, Header{}, err
	}
	h.put(out)
	copy(out[HeaderSize:], payload)
	return out, h, nil
}

// Payload returns the stored payload of frame after checking its length and
// checksum. It aliases frame.
func Payload(frame []byte) (Header, []byte, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return Header{}, nil, err
	}
	if uint64(len(frame)) < h.Size() {
		return Header{}, nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, h.Size(), len(frame))
	}
	payload := frame[HeaderSize:h.Size()]
	if sum := hash.CRC32C(payload); sum != h.Checksum {
		return Header{}, nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, h.Checksum, sum)
	}
	return h, payload, nil
}

// Decode returns the raw payload. Uncompressed payloads alias frame;
// compressed ones are expanded into a fresh buffer.
func Decode(frame []byte) (Header, []byte, error) {
	h, payload, err := Payload(frame)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Compression == CompressionNone {
		return h, payload, nil
	}
	raw, err := decompress(payload, h.Compression, h.RawLen)
	if err != nil {
		return Header{}, nil, err
	}
	return h, raw, nil
}
