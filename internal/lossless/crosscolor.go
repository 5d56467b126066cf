package lossless

import "math"

// multipliers are the per-tile cross-color coefficients in 3.5 fixed point.
type multipliers struct {
	greenToRed  int8
	greenToBlue int8
	redToBlue   int8
}

// pack stores m as a transform image pixel: greenToRed in blue,
// greenToBlue in green, redToBlue in red.
func (m multipliers) pack() uint32 {
	return ARGBBlack |
		uint32(uint8(m.redToBlue))<<16 |
		uint32(uint8(m.greenToBlue))<<8 |
		uint32(uint8(m.greenToRed))
}

func unpackMultipliers(p uint32) multipliers {
	return multipliers{
		greenToRed:  int8(p),
		greenToBlue: int8(p >> 8),
		redToBlue:   int8(p >> 16),
	}
}

func colorTransformDelta(m int8, color uint8) int32 {
	return (int32(m) * int32(int8(color))) >> 5
}

// forward subtracts the color shifts predicted from green and red.
func (m multipliers) forward(p uint32) uint32 {
	g := uint8(p >> 8)
	r := uint8(p >> 16)
	newR := int32(r) - colorTransformDelta(m.greenToRed, g)
	newB := int32(uint8(p)) - colorTransformDelta(m.greenToBlue, g) - colorTransformDelta(m.redToBlue, r)
	return p&0xff00ff00 | uint32(newR&0xff)<<16 | uint32(newB&0xff)
}

// inverse undoes forward. Red is restored first because the red-to-blue
// term uses the original red.
func (m multipliers) inverse(p uint32) uint32 {
	g := uint8(p >> 8)
	r := (int32(uint8(p>>16)) + colorTransformDelta(m.greenToRed, g)) & 0xff
	b := int32(uint8(p)) + colorTransformDelta(m.greenToBlue, g) + colorTransformDelta(m.redToBlue, uint8(r))
	return p&0xff00ff00 | uint32(r)<<16 | uint32(b&0xff)
}

// multiplierCost is the wrapped residual magnitude of target once the
// shift predicted from source by m is removed.
func multiplierCost(m int8, source, target []uint8) int64 {
	var total int64
	for i, s := range source {
		v := (int32(target[i]) - colorTransformDelta(m, s)) & 0xff
		if v > 128 {
			v = 256 - v
		}
		total += int64(v)
	}
	return total
}

// bestMultiplier searches m in steps of 8, then refines around the best
// coarse value. Ties keep the value found first, which makes 0 win over
// equally good coefficients in the coarse pass.
func bestMultiplier(source, target []uint8) int8 {
	best, bestCost := int8(0), multiplierCost(0, source, target)
	for m := -128; m <= 127; m += 8 {
		if c := multiplierCost(int8(m), source, target); c < bestCost {
			best, bestCost = int8(m), c
		}
	}
	center := int(best)
	for m := center - 7; m <= center+7; m++ {
		if m < math.MinInt8 || m > math.MaxInt8 {
			continue
		}
		if c := multiplierCost(int8(m), source, target); c < bestCost {
			best, bestCost = int8(m), c
		}
	}
	return best
}

// tileBounds clips tile (tx, ty) of size 2^bits to the image.
func tileBounds(width, height, tx, ty, bits int) (x0, y0, x1, y1 int) {
	x0, y0 = tx<<uint(bits), ty<<uint(bits)
	x1, y1 = min(x0+1<<uint(bits), width), min(y0+1<<uint(bits), height)
	return x0, y0, x1, y1
}

// tileMultipliers picks greenToRed and greenToBlue against green, then
// redToBlue against the blue left after the green correction.
func tileMultipliers(argb []uint32, width, height, tx, ty, bits int) multipliers {
	x0, y0, x1, y1 := tileBounds(width, height, tx, ty, bits)
	n := (x1 - x0) * (y1 - y0)
	greens := make([]uint8, 0, n)
	reds := make([]uint8, 0, n)
	blues := make([]uint8, 0, n)
	for y := y0; y < y1; y++ {
		for _, p := range argb[y*width+x0 : y*width+x1] {
			greens = append(greens, uint8(p>>8))
			reds = append(reds, uint8(p>>16))
			blues = append(blues, uint8(p))
		}
	}

	var m multipliers
	m.greenToRed = bestMultiplier(greens, reds)
	m.greenToBlue = bestMultiplier(greens, blues)
	for i, b := range blues {
		blues[i] = uint8(int32(b) - colorTransformDelta(m.greenToBlue, greens[i]))
	}
	m.redToBlue = bestMultiplier(reds, blues)
	return m
}

// crossColor chooses multipliers per tile and applies them in place. It
// returns the multiplier image.
func crossColor(argb []uint32, width, height, bits int) []uint32 {
	tilesX := subSampleSize(width, bits)
	tilesY := subSampleSize(height, bits)
	data := make([]uint32, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			m := tileMultipliers(argb, width, height, tx, ty, bits)
			data[ty*tilesX+tx] = m.pack()
			x0, y0, x1, y1 := tileBounds(width, height, tx, ty, bits)
			for y := y0; y < y1; y++ {
				row := argb[y*width+x0 : y*width+x1]
				for i, p := range row {
					row[i] = m.forward(p)
				}
			}
		}
	}
	return data
}

// undoCrossColor reverses crossColor in place.
func undoCrossColor(argb, data []uint32, width, height, bits int) {
	tilesX := subSampleSize(width, bits)
	for y := 0; y < height; y++ {
		row := argb[y*width : (y+1)*width]
		for x, p := range row {
			row[x] = unpackMultipliers(data[(y>>uint(bits))*tilesX+x>>uint(bits)]).inverse(p)
		}
	}
}
