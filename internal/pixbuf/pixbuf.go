// Package pixbuf validates raw RGBA8 pixel data and exposes it in the
// packed ARGB layout used by the lossless coder.
package pixbuf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// MaxDimension is the largest width or height a VP8L header can carry
// (14 bits, stored as value-1).
const MaxDimension = 16383

// Channels is the number of interleaved bytes per pixel (R, G, B, A).
const Channels = 4

var (
	// ErrInvalidDimensions is returned when a width or height is zero,
	// negative or above MaxDimension.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrBufferSizeMismatch is returned when the byte length does not equal
	// width*height*4.
	ErrBufferSizeMismatch = errors.New("buffer size mismatch")
)

// Buffer is a read-only view of an RGBA8 image: row-major, no row padding.
// The bytes are borrowed from the caller and never modified.
type Buffer struct {
	Pix    []byte
	Width  int
	Height int
}

// Wrap checks that pix can be interpreted as a width x height RGBA8 image.
// Dimensions are validated before the buffer length.
func Wrap(pix []byte, width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d (each side must be 1-%d)",
			ErrInvalidDimensions, width, height, MaxDimension)
	}
	want := uint64(width) * uint64(height) * Channels
	if uint64(len(pix)) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%d",
			ErrBufferSizeMismatch, len(pix), want, width, height)
	}
	return &Buffer{Pix: pix, Width: width, Height: height}, nil
}

// Len returns the number of pixels.
func (b *Buffer) Len() int {
	return b.Width * b.Height
}

// ARGB packs the pixels as A<<24 | R<<16 | G<<8 | B into a new slice.
func (b *Buffer) ARGB() []uint32 {
	argb := make([]uint32, b.Len())
	pix := b.Pix
	for i := range argb {
		off := i * Channels
		argb[i] = uint32(pix[off+3])<<24 | uint32(pix[off])<<16 |
			uint32(pix[off+1])<<8 | uint32(pix[off+2])
	}
	return argb
}

// HasAlpha reports whether any pixel is not fully opaque.
func (b *Buffer) HasAlpha() bool {
	for off := 3; off < len(b.Pix); off += Channels {
		if b.Pix[off] != 0xff {
			return true
		}
	}
	return false
}

// FromImage copies img into a new Buffer holding non-premultiplied RGBA8.
// The image bounds are normalized so the result starts at (0, 0).
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d (each side must be 1-%d)",
			ErrInvalidDimensions, width, height, MaxDimension)
	}

	pix := make([]byte, width*height*Channels)
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < height; y++ {
			src := nrgba.Pix[nrgba.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			copy(pix[y*width*Channels:(y+1)*width*Channels], src[:width*Channels])
		}
	} else {
		off := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				pix[off] = c.R
				pix[off+1] = c.G
				pix[off+2] = c.B
				pix[off+3] = c.A
				off += Channels
			}
		}
	}
	return &Buffer{Pix: pix, Width: width, Height: height}, nil
}

// ToNRGBA returns an image backed by a copy of the buffer's pixels.
func (b *Buffer) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}
