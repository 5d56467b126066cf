package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Read-side errors.
var (
	ErrInvalidRIFF  = errors.New("invalid RIFF header")
	ErrInvalidWebP  = errors.New("invalid WEBP signature")
	ErrTruncated    = errors.New("truncated data")
	ErrInvalidChunk = errors.New("invalid chunk")
	ErrTooLarge     = errors.New("chunk too large")
	ErrInvalidVP8X  = errors.New("invalid VP8X chunk")
	ErrUnsupported  = errors.New("unsupported format")
	ErrInvalidImage = errors.New("invalid image dimensions")
)

// FormatType identifies the layout of a WebP file.
type FormatType int

const (
	FormatUndefined FormatType = iota
	FormatVP8                  // simple lossy
	FormatVP8L                 // simple lossless
	FormatVP8X                 // extended
)

func (f FormatType) String() string {
	switch f {
	case FormatVP8:
		return "VP8"
	case FormatVP8L:
		return "VP8L"
	case FormatVP8X:
		return "VP8X"
	default:
		return "undefined"
	}
}

// Chunk is one RIFF chunk. Payload excludes the pad byte.
type Chunk struct {
	FourCC  uint32
	Payload []byte
}

// Tag returns the chunk's FourCC as text.
func (c Chunk) Tag() string { return FourCCString(c.FourCC) }

// RIFFHeader holds the parsed 12-byte file header.
type RIFFHeader struct {
	FileSize uint32 // RIFF size field: file length minus 8
}

// ParseRIFFHeader validates the RIFF/WEBP header at the start of data and
// returns it together with the number of bytes consumed.
func ParseRIFFHeader(data []byte) (RIFFHeader, int, error) {
	if len(data) < RIFFHeaderSize {
		return RIFFHeader{}, 0, ErrTruncated
	}
	if binary.LittleEndian.Uint32(data[0:4]) != FourCCRIFF {
		return RIFFHeader{}, 0, ErrInvalidRIFF
	}
	fileSize := binary.LittleEndian.Uint32(data[4:8])
	if fileSize < 4+ChunkHeaderSize {
		return RIFFHeader{}, 0, ErrInvalidRIFF
	}
	if binary.LittleEndian.Uint32(data[8:12]) != FourCCWEBP {
		return RIFFHeader{}, 0, ErrInvalidWebP
	}
	return RIFFHeader{FileSize: fileSize}, RIFFHeaderSize, nil
}

// ReadChunkHeader decodes the 8-byte chunk header at the start of data.
func ReadChunkHeader(data []byte) (fourcc uint32, payloadSize uint32, err error) {
	if len(data) < ChunkHeaderSize {
		return 0, 0, ErrTruncated
	}
	fourcc = binary.LittleEndian.Uint32(data[0:4])
	payloadSize = binary.LittleEndian.Uint32(data[4:8])
	if payloadSize > MaxChunkPayload {
		return 0, 0, ErrTooLarge
	}
	return fourcc, payloadSize, nil
}

// PaddedSize rounds size up to an even number of bytes.
func PaddedSize(size uint32) uint32 {
	return size + (size & 1)
}

// FourCCString returns the four tag characters of fourcc.
func FourCCString(fourcc uint32) string {
	b := [4]byte{byte(fourcc), byte(fourcc >> 8), byte(fourcc >> 16), byte(fourcc >> 24)}
	return string(b[:])
}

// SplitChunks walks the chunk list of buf, which must start at a chunk
// header. The returned payloads alias buf.
func SplitChunks(buf []byte) ([]Chunk, error) {
	var chunks []Chunk
	for len(buf) > 0 {
		fourcc, size, err := ReadChunkHeader(buf)
		if err != nil {
			return chunks, err
		}
		end := uint64(ChunkHeaderSize) + uint64(size)
		if end > uint64(len(buf)) {
			return chunks, fmt.Errorf("%w: %s chunk declares %d bytes", ErrTruncated, FourCCString(fourcc), size)
		}
		chunks = append(chunks, Chunk{FourCC: fourcc, Payload: buf[ChunkHeaderSize:end]})
		padded := uint64(ChunkHeaderSize) + uint64(PaddedSize(size))
		if padded > uint64(len(buf)) {
			// Missing trailing pad byte on the final chunk is tolerated.
			break
		}
		buf = buf[padded:]
	}
	return chunks, nil
}

// ReadChunk reads one chunk (header, payload and pad byte) from r.
func ReadChunk(r io.Reader) (Chunk, error) {
	var hdr [ChunkHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Chunk{}, fmt.Errorf("reading chunk header: %w", err)
	}
	fourcc, size, err := ReadChunkHeader(hdr[:])
	if err != nil {
		return Chunk{}, err
	}
	payload := make([]byte, PaddedSize(size))
	if _, err := io.ReadFull(r, payload); err != nil {
		return Chunk{}, fmt.Errorf("reading chunk payload: %w", err)
	}
	return Chunk{FourCC: fourcc, Payload: payload[:size]}, nil
}
