package lossless

// histogram holds the symbol counts of the five prefix codes of one group.
type histogram struct {
	cacheBits int
	literal   []uint32 // green, then length prefixes, then cache slots
	red       [NumLiteralCodes]uint32
	blue      [NumLiteralCodes]uint32
	alpha     [NumLiteralCodes]uint32
	distance  [NumDistanceCodes]uint32

	// extraBits is the total of length and distance extra bits, which do
	// not depend on the prefix codes.
	extraBits int
}

func newHistogram(cacheBits int) *histogram {
	return &histogram{
		cacheBits: cacheBits,
		literal:   make([]uint32, alphabetSize(huffGreen, cacheBits)),
	}
}

// add counts the symbols token t will emit in an image of width xsize.
func (h *histogram) add(t token, xsize int) {
	switch t.kind {
	case tokenLiteral:
		argb := t.value
		h.alpha[argb>>24]++
		h.red[(argb>>16)&0xff]++
		h.literal[(argb>>8)&0xff]++
		h.blue[argb&0xff]++
	case tokenCache:
		h.literal[NumLiteralCodes+NumLengthCodes+int(t.value)]++
	case tokenCopy:
		code, extra, _ := prefixEncode(int(t.length))
		h.literal[NumLiteralCodes+code]++
		h.extraBits += extra
		code, extra, _ = prefixEncode(distanceToPlaneCode(xsize, int(t.value)))
		h.distance[code]++
		h.extraBits += extra
	}
}

func histogramOf(refs []token, xsize, cacheBits int) *histogram {
	h := newHistogram(cacheBits)
	for _, t := range refs {
		h.add(t, xsize)
	}
	return h
}

// counts returns the counts of prefix code idx.
func (h *histogram) counts(idx int) []uint32 {
	switch idx {
	case huffGreen:
		return h.literal
	case huffRed:
		return h.red[:]
	case huffBlue:
		return h.blue[:]
	case huffAlpha:
		return h.alpha[:]
	default:
		return h.distance[:]
	}
}

// buildCodes creates the five length-limited prefix codes of h.
func (h *histogram) buildCodes() [NumHuffmanCodes]*huffmanCode {
	var codes [NumHuffmanCodes]*huffmanCode
	for i := range codes {
		codes[i] = newHuffmanCode(h.counts(i), MaxAllowedCodeLength)
	}
	return codes
}

// dataBits is the cost in bits of the token stream under codes, including
// the extra bits but not the code descriptions.
func (h *histogram) dataBits(codes [NumHuffmanCodes]*huffmanCode) int {
	bits := h.extraBits
	for i, c := range codes {
		if c.trivial() {
			continue
		}
		for sym, n := range h.counts(i) {
			bits += int(n) * int(c.lengths[sym])
		}
	}
	return bits
}
