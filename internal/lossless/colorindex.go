package lossless

import "sort"

// MaxPaletteSize is the largest color table a color indexing transform can
// carry.
const MaxPaletteSize = 256

// buildPalette returns the distinct colors of argb in ascending order, or
// false when there are more than MaxPaletteSize of them.
func buildPalette(argb []uint32) ([]uint32, bool) {
	seen := make(map[uint32]struct{}, MaxPaletteSize+1)
	for _, p := range argb {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if len(seen) > MaxPaletteSize {
			return nil, false
		}
	}
	palette := make([]uint32, 0, len(seen))
	for c := range seen {
		palette = append(palette, c)
	}
	sort.Slice(palette, func(i, j int) bool { return palette[i] < palette[j] })
	return palette, true
}

// bundleBits returns the pixel bundling exponent for a palette: 2^bits
// indices share one coded pixel.
//
//	<= 2 colors   3 (8 one-bit indices)
//	<= 4 colors   2 (4 two-bit indices)
//	<= 16 colors  1 (2 four-bit indices)
//	otherwise     0
func bundleBits(paletteSize int) int {
	switch {
	case paletteSize <= 2:
		return 3
	case paletteSize <= 4:
		return 2
	case paletteSize <= 16:
		return 1
	default:
		return 0
	}
}

// indexPixels replaces every pixel with its palette index, stored in the
// green channel, and packs 2^bits indices per pixel. The result is
// subSampleSize(width, bits) pixels wide.
func indexPixels(argb []uint32, width, height int, palette []uint32) ([]uint32, int) {
	index := make(map[uint32]uint32, len(palette))
	for i, c := range palette {
		index[c] = uint32(i)
	}
	bits := bundleBits(len(palette))
	perPixel := 8 >> uint(bits)
	xsize := subSampleSize(width, bits)
	packed := make([]uint32, xsize*height)
	for y := 0; y < height; y++ {
		src := argb[y*width : (y+1)*width]
		dst := packed[y*xsize : (y+1)*xsize]
		for x, p := range src {
			shift := uint(8 + (x&(1<<uint(bits)-1))*perPixel)
			dst[x>>uint(bits)] |= index[p] << shift
		}
		for i := range dst {
			dst[i] |= ARGBBlack
		}
	}
	return packed, xsize
}

// unindexPixels is the decoder's view of the color indexing transform.
// Indices beyond the palette decode to transparent black.
func unindexPixels(packed []uint32, width, height int, palette []uint32) []uint32 {
	bits := bundleBits(len(palette))
	perPixel := 8 >> uint(bits)
	mask := uint32(1)<<uint(perPixel) - 1
	xsize := subSampleSize(width, bits)
	out := make([]uint32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			shift := uint((x & (1<<uint(bits) - 1)) * perPixel)
			idx := (packed[y*xsize+x>>uint(bits)] >> 8 >> shift) & mask
			if int(idx) < len(palette) {
				out[y*width+x] = palette[idx]
			}
		}
	}
	return out
}

// paletteDeltas is the color table as it is coded: the first entry, then
// each entry minus its predecessor.
func paletteDeltas(palette []uint32) []uint32 {
	d := make([]uint32, len(palette))
	for i, c := range palette {
		if i == 0 {
			d[i] = c
			continue
		}
		d[i] = subPixels(c, palette[i-1])
	}
	return d
}
