// Package container writes and reads the RIFF/WebP file structure around a
// VP8L bitstream.
package container

// FourCC packs four tag bytes into the little-endian value stored on disk.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Chunk tags.
var (
	FourCCRIFF = FourCC('R', 'I', 'F', 'F')
	FourCCWEBP = FourCC('W', 'E', 'B', 'P')
	FourCCVP8  = FourCC('V', 'P', '8', ' ')
	FourCCVP8L = FourCC('V', 'P', '8', 'L')
	FourCCVP8X = FourCC('V', 'P', '8', 'X')
	FourCCICCP = FourCC('I', 'C', 'C', 'P')
	FourCCEXIF = FourCC('E', 'X', 'I', 'F')
	FourCCXMP  = FourCC('X', 'M', 'P', ' ')
)

// VP8L image header layout.
const (
	VP8LMagicByte     = 0x2f
	VP8LImageSizeBits = 14
	VP8LVersionBits   = 3
	VP8LVersion       = 0
	VP8LHeaderSize    = 5
	VP8LMaxDimension  = 1 << VP8LImageSizeBits
)

// Structure sizes.
const (
	ChunkHeaderSize = 8  // tag + LE32 length
	RIFFHeaderSize  = 12 // "RIFF" + LE32 size + "WEBP"
	VP8XChunkSize   = 10 // flags + 24-bit canvas width-1 and height-1
)

// MaxRIFFSize is the largest value the RIFF size field can hold.
const MaxRIFFSize = uint64(^uint32(0))

// VP8X feature flags.
const (
	XMPFlag   uint32 = 0x00000004
	EXIFFlag  uint32 = 0x00000008
	AlphaFlag uint32 = 0x00000010
	ICCPFlag  uint32 = 0x00000020
)

// Lossy frame header, read only to report dimensions of files produced by
// other encoders.
const (
	VP8Signature       = 0x9d012a
	VP8FrameHeaderSize = 10
)

// MaxChunkPayload caps a single chunk so that it still fits a RIFF file.
const MaxChunkPayload = ^uint32(0) - ChunkHeaderSize - 1
