package container

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/deepteams/webpenc/internal/bitio"
)

// ErrSizeOverflow is returned when the file would not fit the 32-bit RIFF
// size field.
var ErrSizeOverflow = errors.New("size overflow")

// Metadata holds optional chunks carried next to the image. Any non-empty
// field switches the file to the extended (VP8X) layout.
type Metadata struct {
	ICC  []byte
	EXIF []byte
	XMP  []byte
}

// IsZero reports whether no metadata is set.
func (m Metadata) IsZero() bool {
	return len(m.ICC) == 0 && len(m.EXIF) == 0 && len(m.XMP) == 0
}

// VP8LHeader returns the 5-byte image header: signature, 14-bit width-1,
// 14-bit height-1, the alpha hint and the 3-bit version.
func VP8LHeader(width, height int, hasAlpha bool) []byte {
	bw := bitio.NewWriter(VP8LHeaderSize)
	bw.WriteBits(VP8LMagicByte, 8)
	bw.WriteBits(uint32(width-1), VP8LImageSizeBits)
	bw.WriteBits(uint32(height-1), VP8LImageSizeBits)
	bw.WriteBit(hasAlpha)
	bw.WriteBits(VP8LVersion, VP8LVersionBits)
	return bw.Finish()
}

// chunkSize is the on-disk size of a chunk with n payload bytes.
func chunkSize(n uint64) uint64 {
	return ChunkHeaderSize + n + n&1
}

// FileSize returns the total file length for a VP8L payload of n bytes
// (header included) and the given metadata, or ErrSizeOverflow.
func FileSize(payload uint64, meta Metadata) (uint64, error) {
	size := uint64(RIFFHeaderSize) + chunkSize(payload)
	if !meta.IsZero() {
		size += chunkSize(VP8XChunkSize)
		for _, b := range [][]byte{meta.ICC, meta.EXIF, meta.XMP} {
			if len(b) > 0 {
				size += chunkSize(uint64(len(b)))
			}
		}
	}
	if size-8 > MaxRIFFSize {
		return 0, fmt.Errorf("%w: %d bytes exceed the RIFF limit", ErrSizeOverflow, size)
	}
	return size, nil
}

// Assemble wraps an entropy-coded VP8L bitstream into a complete WebP file:
// RIFF header, optional VP8X and ICCP chunks, the VP8L chunk, then optional
// EXIF and XMP chunks. Odd payloads get one zero pad byte.
func Assemble(bitstream []byte, width, height int, hasAlpha bool, meta Metadata) ([]byte, error) {
	if width < 1 || height < 1 || width > VP8LMaxDimension || height > VP8LMaxDimension {
		return nil, fmt.Errorf("%w: %dx%d does not fit a VP8L header", ErrInvalidImage, width, height)
	}
	header := VP8LHeader(width, height, hasAlpha)
	payload := uint64(len(header)) + uint64(len(bitstream))
	total, err := FileSize(payload, meta)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, total)
	buf = binary.LittleEndian.AppendUint32(buf, FourCCRIFF)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(total-8))
	buf = binary.LittleEndian.AppendUint32(buf, FourCCWEBP)

	if !meta.IsZero() {
		buf = appendVP8X(buf, width, height, hasAlpha, meta)
		if len(meta.ICC) > 0 {
			buf = appendChunk(buf, FourCCICCP, meta.ICC)
		}
	}

	buf = binary.LittleEndian.AppendUint32(buf, FourCCVP8L)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(payload))
	buf = append(buf, header...)
	buf = append(buf, bitstream...)
	if payload&1 != 0 {
		buf = append(buf, 0)
	}

	if len(meta.EXIF) > 0 {
		buf = appendChunk(buf, FourCCEXIF, meta.EXIF)
	}
	if len(meta.XMP) > 0 {
		buf = appendChunk(buf, FourCCXMP, meta.XMP)
	}
	return buf, nil
}

func appendChunk(buf []byte, fourcc uint32, payload []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, fourcc)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	if len(payload)&1 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func appendVP8X(buf []byte, width, height int, hasAlpha bool, meta Metadata) []byte {
	var flags uint32
	if hasAlpha {
		flags |= AlphaFlag
	}
	if len(meta.ICC) > 0 {
		flags |= ICCPFlag
	}
	if len(meta.EXIF) > 0 {
		flags |= EXIFFlag
	}
	if len(meta.XMP) > 0 {
		flags |= XMPFlag
	}
	var payload [VP8XChunkSize]byte
	binary.LittleEndian.PutUint32(payload[0:4], flags)
	putLE24(payload[4:7], uint32(width-1))
	putLE24(payload[7:10], uint32(height-1))
	return appendChunk(buf, FourCCVP8X, payload[:])
}

func putLE24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
