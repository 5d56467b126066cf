// Package lossless implements the VP8L transform stage and entropy coder.
//
// The produced bitstream is the part of a VP8L chunk that follows the
// 5-byte image header: the transform list, the color cache parameters, the
// prefix code descriptions and the coded pixels. The header itself is
// written by the container package.
package lossless

import (
	"errors"
	"fmt"

	"github.com/deepteams/webpenc/internal/bitio"
)

// ErrInternal reports an encoder invariant violation. It never results
// from valid input.
var ErrInternal = errors.New("encoder internal error")

// Config selects the effort spent on compression.
type Config struct {
	// Effort is 0 (fastest) to 100 (smallest output).
	Effort int
	// CleanTransparent zeroes RGB under fully transparent pixels.
	CleanTransparent bool
}

// DefaultConfig matches the library's default quality of 75.
func DefaultConfig() Config {
	return Config{Effort: 75}
}

// maxCacheBitsForEffort bounds the color cache search.
func maxCacheBitsForEffort(effort int) int {
	switch {
	case effort < 25:
		return 0
	case effort < 75:
		return 6
	default:
		return 10
	}
}

// Encode runs the transform stage and the entropy coder.
func Encode(argb []uint32, width, height int, cfg Config) ([]byte, error) {
	return EncodeTransformed(Apply(argb, width, height, cfg), cfg)
}

// EncodeTransformed entropy codes ti.
func EncodeTransformed(ti *TransformedImage, cfg Config) ([]byte, error) {
	if ti.Width <= 0 || ti.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d image", ErrInternal, ti.Width, ti.Height)
	}
	ws, xsize := ti.widths()
	if len(ti.Pixels) != xsize*ti.Height {
		return nil, fmt.Errorf("%w: %d pixels for a %dx%d plane", ErrInternal, len(ti.Pixels), xsize, ti.Height)
	}
	params := lz77ParamsForEffort(cfg.Effort)
	bw := bitio.NewWriter(len(ti.Pixels) + 64)

	for i, t := range ti.Transforms {
		bw.WriteBits(1, 1)
		bw.WriteBits(uint32(t.Kind), 2)
		switch t.Kind {
		case PredictorTransform, CrossColorTransform:
			bw.WriteBits(uint32(t.Bits-MinTransformBits), NumTransformBits)
			w := subSampleSize(ws[i], t.Bits)
			h := subSampleSize(ti.Height, t.Bits)
			if len(t.Data) != w*h {
				return nil, fmt.Errorf("%w: %v image has %d entries, want %d", ErrInternal, t.Kind, len(t.Data), w*h)
			}
			if err := writeImage(bw, t.Data, w, params, 0, false); err != nil {
				return nil, fmt.Errorf("%v image: %w", t.Kind, err)
			}
		case SubtractGreenTransform:
		case ColorIndexingTransform:
			n := len(t.Data)
			if n < 1 || n > MaxPaletteSize || t.Bits != bundleBits(n) {
				return nil, fmt.Errorf("%w: %d colors with bundling bits %d", ErrInternal, n, t.Bits)
			}
			bw.WriteBits(uint32(n-1), 8)
			if err := writeImage(bw, paletteDeltas(t.Data), n, params, 0, false); err != nil {
				return nil, fmt.Errorf("palette: %w", err)
			}
		default:
			return nil, fmt.Errorf("%w: unsupported transform %v", ErrInternal, t.Kind)
		}
	}
	bw.WriteBits(0, 1)

	if err := writeImage(bw, ti.Pixels, xsize, params, maxCacheBitsForEffort(cfg.Effort), true); err != nil {
		return nil, err
	}
	return bw.Finish(), nil
}

// writeImage codes one entropy-coded image. The main image carries a
// meta prefix code flag (always 0 here: one code group for the image);
// transform sub-images do not.
func writeImage(bw *bitio.Writer, argb []uint32, xsize int, params lz77Params, maxCacheBits int, main bool) error {
	refs := backwardRefs(argb, xsize, params)
	if err := checkCoverage(refs, len(argb)); err != nil {
		return err
	}

	cacheBits, refs, codes := chooseCacheBits(argb, refs, xsize, maxCacheBits)

	if cacheBits > 0 {
		bw.WriteBits(1, 1)
		bw.WriteBits(uint32(cacheBits), 4)
	} else {
		bw.WriteBits(0, 1)
	}
	if main {
		bw.WriteBits(0, 1)
	}
	for _, c := range codes {
		storeHuffmanCode(bw, c)
	}
	return writeTokens(bw, refs, xsize, codes)
}

// chooseCacheBits tries every color cache size up to maxBits and keeps the
// one with the smallest exact coded size. Ties keep the smaller cache.
func chooseCacheBits(argb []uint32, refs []token, xsize, maxBits int) (int, []token, [NumHuffmanCodes]*huffmanCode) {
	var (
		bestBits  = -1
		bestCost  int
		bestRefs  []token
		bestCodes [NumHuffmanCodes]*huffmanCode
	)
	for bits := 0; bits <= maxBits; bits++ {
		cost, r, codes := cacheCost(argb, refs, xsize, bits)
		if bestBits < 0 || cost < bestCost {
			bestBits, bestCost, bestRefs, bestCodes = bits, cost, r, codes
		}
	}
	return bestBits, bestRefs, bestCodes
}

// cacheCost returns the size in bits of the image coded with a color cache
// of the given size, along with the rewritten tokens and their codes.
func cacheCost(argb []uint32, refs []token, xsize, bits int) (int, []token, [NumHuffmanCodes]*huffmanCode) {
	r := withColorCache(argb, refs, bits)
	h := histogramOf(r, xsize, bits)
	codes := h.buildCodes()
	cost := h.dataBits(codes)
	for _, c := range codes {
		cost += storedBits(c)
	}
	if bits > 0 {
		cost += 4
	}
	return cost, r, codes
}

func checkCoverage(refs []token, n int) error {
	covered := 0
	for _, t := range refs {
		covered += t.pixels()
	}
	if covered != n {
		return fmt.Errorf("%w: tokens cover %d of %d pixels", ErrInternal, covered, n)
	}
	return nil
}

// writeTokens emits the coded pixels.
func writeTokens(bw *bitio.Writer, refs []token, xsize int, codes [NumHuffmanCodes]*huffmanCode) error {
	for _, t := range refs {
		switch t.kind {
		case tokenLiteral:
			argb := t.value
			if err := codes[huffGreen].writeSymbol(bw, int(argb>>8)&0xff); err != nil {
				return err
			}
			if err := codes[huffRed].writeSymbol(bw, int(argb>>16)&0xff); err != nil {
				return err
			}
			if err := codes[huffBlue].writeSymbol(bw, int(argb)&0xff); err != nil {
				return err
			}
			if err := codes[huffAlpha].writeSymbol(bw, int(argb>>24)); err != nil {
				return err
			}
		case tokenCache:
			if err := codes[huffGreen].writeSymbol(bw, NumLiteralCodes+NumLengthCodes+int(t.value)); err != nil {
				return err
			}
		case tokenCopy:
			code, n, extra := prefixEncode(int(t.length))
			if err := codes[huffGreen].writeSymbol(bw, NumLiteralCodes+code); err != nil {
				return err
			}
			bw.WriteBits(uint32(extra), n)
			code, n, extra = prefixEncode(distanceToPlaneCode(xsize, int(t.value)))
			if err := codes[huffDist].writeSymbol(bw, code); err != nil {
				return err
			}
			bw.WriteBits(uint32(extra), n)
		}
	}
	return nil
}
