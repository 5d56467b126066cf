package lossless

// TransformKind is the 2-bit transform type written to the stream.
type TransformKind int

const (
	PredictorTransform     TransformKind = 0
	CrossColorTransform    TransformKind = 1
	SubtractGreenTransform TransformKind = 2
	ColorIndexingTransform TransformKind = 3
)

func (k TransformKind) String() string {
	switch k {
	case PredictorTransform:
		return "predictor"
	case CrossColorTransform:
		return "cross-color"
	case SubtractGreenTransform:
		return "subtract-green"
	case ColorIndexingTransform:
		return "color-indexing"
	}
	return "unknown"
}

// Transform is one applied image transform. For the predictor and
// cross-color transforms, Bits is the tile size exponent and Data the
// per-tile image of subSampleSize(xsize, Bits) x subSampleSize(height, Bits)
// pixels, where xsize is the image width the transform saw. For color
// indexing, Bits is the bundling exponent and Data the sorted palette.
type Transform struct {
	Kind TransformKind
	Bits int
	Data []uint32
}

// TransformedImage is the output of the transform stage: the residual plane
// in raster order plus the transforms in the order they were applied.
// Width is the image width; Pixels is CodedWidth() pixels wide.
type TransformedImage struct {
	Width      int
	Height     int
	Pixels     []uint32
	Transforms []Transform
}

// widths returns the width each transform was applied at, and the width
// of the final residual plane.
func (ti *TransformedImage) widths() ([]int, int) {
	ws := make([]int, len(ti.Transforms))
	xsize := ti.Width
	for i, t := range ti.Transforms {
		ws[i] = xsize
		if t.Kind == ColorIndexingTransform {
			xsize = subSampleSize(xsize, t.Bits)
		}
	}
	return ws, xsize
}

// CodedWidth is the width of the entropy-coded pixel plane. It differs from
// Width when palette indices are bundled.
func (ti *TransformedImage) CodedWidth() int {
	_, w := ti.widths()
	return w
}

// subtractGreen removes the green value from red and blue, modulo 256.
func subtractGreen(argb []uint32) {
	for i, p := range argb {
		g := (p >> 8) & 0xff
		rb := (p & 0x00ff00ff) + 0x01000100 - (g<<16 | g)
		argb[i] = p&0xff00ff00 | rb&0x00ff00ff
	}
}

// addGreen is the inverse of subtractGreen.
func addGreen(argb []uint32) {
	for i, p := range argb {
		g := (p >> 8) & 0xff
		rb := (p & 0x00ff00ff) + (g<<16 | g)
		argb[i] = p&0xff00ff00 | rb&0x00ff00ff
	}
}

// clearTransparent zeroes the color of fully transparent pixels.
func clearTransparent(argb []uint32) {
	for i, p := range argb {
		if p>>24 == 0 {
			argb[i] = 0
		}
	}
}

// Apply runs the transform stage on a copy of argb. Images with at most
// MaxPaletteSize colors are palette indexed and the predictor runs on the
// index plane. Others get subtract-green, the predictor and, at effort 50
// and above, the cross-color transform.
func Apply(argb []uint32, width, height int, cfg Config) *TransformedImage {
	pix := make([]uint32, len(argb))
	copy(pix, argb)
	if cfg.CleanTransparent {
		clearTransparent(pix)
	}

	ti := &TransformedImage{Width: width, Height: height}
	xsize := width
	palette, usePalette := buildPalette(pix)
	if usePalette {
		pix, xsize = indexPixels(pix, width, height, palette)
		ti.Transforms = append(ti.Transforms, Transform{
			Kind: ColorIndexingTransform,
			Bits: bundleBits(len(palette)),
			Data: palette,
		})
	} else if cfg.Effort >= 25 {
		subtractGreen(pix)
		ti.Transforms = append(ti.Transforms, Transform{Kind: SubtractGreenTransform})
	}

	bits := predictorBits(cfg.Effort)
	candidates := fastPredictors
	if cfg.Effort >= 50 {
		candidates = allPredictors
	}
	modes, residuals := predictorResiduals(pix, xsize, height, bits, candidates)
	ti.Transforms = append(ti.Transforms, Transform{Kind: PredictorTransform, Bits: bits, Data: modes})

	if !usePalette && cfg.Effort >= 50 {
		ti.Transforms = append(ti.Transforms, Transform{
			Kind: CrossColorTransform,
			Bits: bits,
			Data: crossColor(residuals, width, height, bits),
		})
	}
	ti.Pixels = residuals
	return ti
}

// Undo reverses every transform and returns the reconstructed ARGB pixels.
func (ti *TransformedImage) Undo() []uint32 {
	ws, _ := ti.widths()
	pix := make([]uint32, len(ti.Pixels))
	copy(pix, ti.Pixels)
	for i := len(ti.Transforms) - 1; i >= 0; i-- {
		t := ti.Transforms[i]
		switch t.Kind {
		case PredictorTransform:
			pix = undoPredictor(pix, t.Data, ws[i], ti.Height, t.Bits)
		case CrossColorTransform:
			undoCrossColor(pix, t.Data, ws[i], ti.Height, t.Bits)
		case SubtractGreenTransform:
			addGreen(pix)
		case ColorIndexingTransform:
			pix = unindexPixels(pix, ws[i], ti.Height, t.Data)
		}
	}
	return pix
}

var allPredictors = func() []int {
	m := make([]int, NumPredictors)
	for i := range m {
		m[i] = i
	}
	return m
}()

func predictorBits(effort int) int {
	switch {
	case effort < 25:
		return 5
	case effort < 75:
		return 4
	default:
		return 3
	}
}
