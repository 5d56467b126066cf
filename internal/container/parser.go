package container

import (
	"encoding/binary"
	"fmt"

	"github.com/deepteams/webpenc/internal/bitio"
)

// Features describes a parsed WebP still image.
type Features struct {
	Format   FormatType
	Width    int
	Height   int
	HasAlpha bool
	HasICCP  bool
	HasEXIF  bool
	HasXMP   bool
	// Lossless is set when the image chunk is VP8L.
	Lossless bool
}

// File is the chunk-level view of a WebP file.
type File struct {
	Header   RIFFHeader
	Features Features
	// Chunks lists every chunk in file order.
	Chunks []Chunk
	// Image is the payload of the VP8 or VP8L chunk.
	Image []byte
	Meta  Metadata
}

// Parse reads the container structure of a still WebP file. Animated files
// are reported as ErrUnsupported.
func Parse(data []byte) (*File, error) {
	hdr, n, err := ParseRIFFHeader(data)
	if err != nil {
		return nil, err
	}
	end := uint64(hdr.FileSize) + 8
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: RIFF declares %d bytes, have %d", ErrTruncated, end, len(data))
	}
	chunks, err := SplitChunks(data[n:end])
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrTruncated
	}

	f := &File{Header: hdr, Chunks: chunks}
	switch chunks[0].FourCC {
	case FourCCVP8, FourCCVP8L:
		if err := f.setImage(chunks[0]); err != nil {
			return nil, err
		}
		f.Features.Format = FormatVP8
		if f.Features.Lossless {
			f.Features.Format = FormatVP8L
		}
		return f, nil
	case FourCCVP8X:
		return f, f.parseExtended()
	default:
		return nil, fmt.Errorf("%w: unexpected first chunk %q", ErrUnsupported, chunks[0].Tag())
	}
}

func (f *File) parseExtended() error {
	payload := f.Chunks[0].Payload
	if len(payload) < VP8XChunkSize {
		return ErrInvalidVP8X
	}
	flags := uint32(payload[0])
	if flags&^(XMPFlag|EXIFFlag|AlphaFlag|ICCPFlag) != 0 {
		return fmt.Errorf("%w: flags 0x%02x", ErrUnsupported, flags)
	}
	f.Features = Features{
		Format:   FormatVP8X,
		Width:    1 + readLE24(payload[4:7]),
		Height:   1 + readLE24(payload[7:10]),
		HasAlpha: flags&AlphaFlag != 0,
		HasICCP:  flags&ICCPFlag != 0,
		HasEXIF:  flags&EXIFFlag != 0,
		HasXMP:   flags&XMPFlag != 0,
	}
	canvasW, canvasH := f.Features.Width, f.Features.Height

	found := false
	for _, c := range f.Chunks[1:] {
		switch c.FourCC {
		case FourCCVP8X:
			return fmt.Errorf("%w: duplicate VP8X", ErrInvalidChunk)
		case FourCCVP8, FourCCVP8L:
			if found {
				return fmt.Errorf("%w: more than one image chunk", ErrInvalidChunk)
			}
			if err := f.setImage(c); err != nil {
				return err
			}
			found = true
		case FourCCICCP:
			f.Meta.ICC = c.Payload
		case FourCCEXIF:
			f.Meta.EXIF = c.Payload
		case FourCCXMP:
			f.Meta.XMP = c.Payload
		}
	}
	if !found {
		return fmt.Errorf("%w: no image chunk", ErrInvalidChunk)
	}
	if f.Features.Width != canvasW || f.Features.Height != canvasH {
		return fmt.Errorf("%w: canvas %dx%d, image %dx%d", ErrInvalidImage,
			canvasW, canvasH, f.Features.Width, f.Features.Height)
	}
	return nil
}

func (f *File) setImage(c Chunk) error {
	f.Image = c.Payload
	if c.FourCC == FourCCVP8L {
		w, h, alpha, err := ParseVP8LHeader(c.Payload)
		if err != nil {
			return err
		}
		f.Features.Width, f.Features.Height = w, h
		f.Features.HasAlpha = f.Features.HasAlpha || alpha
		f.Features.Lossless = true
		return nil
	}
	w, h, err := parseVP8Header(c.Payload)
	if err != nil {
		return err
	}
	f.Features.Width, f.Features.Height = w, h
	return nil
}

// ParseVP8LHeader decodes the 5-byte header at the start of a VP8L chunk.
func ParseVP8LHeader(data []byte) (width, height int, hasAlpha bool, err error) {
	if len(data) < VP8LHeaderSize {
		return 0, 0, false, ErrTruncated
	}
	br := bitio.NewReader(data[:VP8LHeaderSize])
	if sig := br.ReadBits(8); sig != VP8LMagicByte {
		return 0, 0, false, fmt.Errorf("%w: VP8L signature 0x%02x", ErrInvalidChunk, sig)
	}
	width = int(br.ReadBits(VP8LImageSizeBits)) + 1
	height = int(br.ReadBits(VP8LImageSizeBits)) + 1
	hasAlpha = br.ReadBit()
	if version := br.ReadBits(VP8LVersionBits); version != VP8LVersion {
		return 0, 0, false, fmt.Errorf("%w: VP8L version %d", ErrUnsupported, version)
	}
	return width, height, hasAlpha, nil
}

func parseVP8Header(data []byte) (width, height int, err error) {
	if len(data) < VP8FrameHeaderSize {
		return 0, 0, ErrTruncated
	}
	if data[0]&1 != 0 {
		return 0, 0, fmt.Errorf("%w: VP8 interframe", ErrUnsupported)
	}
	sig := uint32(data[3])<<16 | uint32(data[4])<<8 | uint32(data[5])
	if sig != VP8Signature {
		return 0, 0, fmt.Errorf("%w: VP8 signature 0x%06x", ErrInvalidChunk, sig)
	}
	width = int(binary.LittleEndian.Uint16(data[6:8])) & 0x3fff
	height = int(binary.LittleEndian.Uint16(data[8:10])) & 0x3fff
	if width == 0 || height == 0 {
		return 0, 0, ErrInvalidImage
	}
	return width, height, nil
}

func readLE24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}
