package lossless

// NumPredictors is the number of VP8L spatial predictor modes.
const NumPredictors = 14

// Predictor modes by name, for the cheap candidate set.
const (
	predL      = 1
	predT      = 2
	predTL     = 4
	predAvgLT  = 7
	predSelect = 11
)

// fastPredictors is tried at low effort.
var fastPredictors = []int{predL, predT, predTL, predAvgLT, predSelect}

// subPixels returns (a - b) per 8-bit channel, modulo 256. The bias terms
// keep borrows from crossing channel boundaries.
func subPixels(a, b uint32) uint32 {
	ag := 0x00ff00ff + (a & 0xff00ff00) - (b & 0xff00ff00)
	rb := 0xff00ff00 + (a & 0x00ff00ff) - (b & 0x00ff00ff)
	return ag&0xff00ff00 | rb&0x00ff00ff
}

// addPixels is the inverse of subPixels.
func addPixels(a, b uint32) uint32 {
	ag := (a & 0xff00ff00) + (b & 0xff00ff00)
	rb := (a & 0x00ff00ff) + (b & 0x00ff00ff)
	return ag&0xff00ff00 | rb&0x00ff00ff
}

func avg2(a, b uint32) uint32 {
	return (((a ^ b) & 0xfefefefe) >> 1) + (a & b)
}

func absDiff(a, b uint32) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// selectPredictor picks T or L, whichever lies closer to the gradient
// estimate L + T - TL in Manhattan distance. Since
// |estimate - L| = |T - TL| per channel, L wins when the top row changes
// less than the left column.
func selectPredictor(left, top, topLeft uint32) uint32 {
	pL, pT := 0, 0
	for shift := uint(0); shift < 32; shift += 8 {
		t := (top >> shift) & 0xff
		l := (left >> shift) & 0xff
		tl := (topLeft >> shift) & 0xff
		pL += absDiff(t, tl)
		pT += absDiff(l, tl)
	}
	if pL < pT {
		return left
	}
	return top
}

func clip255(v int) uint32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint32(v)
}

func clampAddSubtractFull(a, b, c uint32) uint32 {
	var out uint32
	for shift := uint(0); shift < 32; shift += 8 {
		v := int((a>>shift)&0xff) + int((b>>shift)&0xff) - int((c>>shift)&0xff)
		out |= clip255(v) << shift
	}
	return out
}

func clampAddSubtractHalf(a, b uint32) uint32 {
	var out uint32
	for shift := uint(0); shift < 32; shift += 8 {
		x := int((a >> shift) & 0xff)
		y := int((b >> shift) & 0xff)
		out |= clip255(x+(x-y)/2) << shift
	}
	return out
}

// predict evaluates mode with the neighbours of an interior pixel.
//
//	0 black      5 avg(avg(L,TR),T)  10 avg(avg(L,TL),avg(T,TR))
//	1 L          6 avg(L,TL)         11 select(L,T,TL)
//	2 T          7 avg(L,T)          12 clampAddSubtractFull(L,T,TL)
//	3 TR         8 avg(TL,T)         13 clampAddSubtractHalf(avg(L,T),TL)
//	4 TL         9 avg(T,TR)
func predict(mode int, left, top, topRight, topLeft uint32) uint32 {
	switch mode {
	case 1:
		return left
	case 2:
		return top
	case 3:
		return topRight
	case 4:
		return topLeft
	case 5:
		return avg2(avg2(left, topRight), top)
	case 6:
		return avg2(left, topLeft)
	case 7:
		return avg2(left, top)
	case 8:
		return avg2(topLeft, top)
	case 9:
		return avg2(top, topRight)
	case 10:
		return avg2(avg2(left, topLeft), avg2(top, topRight))
	case 11:
		return selectPredictor(left, top, topLeft)
	case 12:
		return clampAddSubtractFull(left, top, topLeft)
	case 13:
		return clampAddSubtractHalf(avg2(left, top), topLeft)
	default:
		return ARGBBlack
	}
}

// predictAt returns the prediction for pixel (x, y) of a width-wide image.
// The first pixel is predicted by black, the rest of the top row by L and
// the rest of the left column by T. Elsewhere TR is read at index
// i-width+1, which for the last column is the first pixel of the current
// row.
func predictAt(argb []uint32, width, x, y, mode int) uint32 {
	i := y*width + x
	switch {
	case y == 0 && x == 0:
		return ARGBBlack
	case y == 0:
		return argb[i-1]
	case x == 0:
		return argb[i-width]
	}
	return predict(mode, argb[i-1], argb[i-width], argb[i-width+1], argb[i-width-1])
}

// residualCost scores a residual by the wrapped magnitude of each channel,
// so that 0xff (-1) is as cheap as 0x01.
func residualCost(r uint32) int {
	cost := 0
	for shift := uint(0); shift < 32; shift += 8 {
		v := int((r >> shift) & 0xff)
		if v > 128 {
			v = 256 - v
		}
		cost += v
	}
	return cost
}

// bestPredictor returns the candidate mode with the smallest total residual
// cost over one tile. Ties go to the lowest mode number.
func bestPredictor(argb []uint32, width, height, tileX, tileY, bits int, candidates []int) int {
	x0, y0 := tileX<<uint(bits), tileY<<uint(bits)
	x1, y1 := x0+1<<uint(bits), y0+1<<uint(bits)
	if x1 > width {
		x1 = width
	}
	if y1 > height {
		y1 = height
	}

	best, bestCost := -1, 0
	for _, mode := range candidates {
		cost := 0
		for y := y0; y < y1; y++ {
			row := y * width
			for x := x0; x < x1; x++ {
				cost += residualCost(subPixels(argb[row+x], predictAt(argb, width, x, y, mode)))
			}
		}
		if best < 0 || cost < bestCost || (cost == bestCost && mode < best) {
			best, bestCost = mode, cost
		}
	}
	return best
}

// predictorResiduals chooses a mode per tile and returns the mode image
// (mode in the green channel, alpha 0xff) together with the residual image.
// The input is not modified.
func predictorResiduals(argb []uint32, width, height, bits int, candidates []int) (modes, residuals []uint32) {
	tilesX := subSampleSize(width, bits)
	tilesY := subSampleSize(height, bits)
	modes = make([]uint32, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			mode := bestPredictor(argb, width, height, tx, ty, bits, candidates)
			modes[ty*tilesX+tx] = ARGBBlack | uint32(mode)<<8
		}
	}

	residuals = make([]uint32, len(argb))
	for y := 0; y < height; y++ {
		row := y * width
		modeRow := (y >> uint(bits)) * tilesX
		for x := 0; x < width; x++ {
			mode := int(modes[modeRow+x>>uint(bits)]>>8) & 0xf
			residuals[row+x] = subPixels(argb[row+x], predictAt(argb, width, x, y, mode))
		}
	}
	return modes, residuals
}

// undoPredictor reconstructs pixels from residuals and a mode image. It is
// the decoder's view of the transform.
func undoPredictor(residuals, modes []uint32, width, height, bits int) []uint32 {
	tilesX := subSampleSize(width, bits)
	out := make([]uint32, len(residuals))
	for y := 0; y < height; y++ {
		row := y * width
		modeRow := (y >> uint(bits)) * tilesX
		for x := 0; x < width; x++ {
			mode := int(modes[modeRow+x>>uint(bits)]>>8) & 0xf
			out[row+x] = addPixels(residuals[row+x], predictAt(out, width, x, y, mode))
		}
	}
	return out
}
