package lossless

// VP8L bitstream constants (WebP lossless format, RFC 9649 section 3).

const (
	// NumLiteralCodes is the number of 8-bit channel values.
	NumLiteralCodes = 256
	// NumLengthCodes is the number of LZ77 length prefix codes.
	NumLengthCodes = 24
	// NumDistanceCodes is the number of LZ77 distance prefix codes.
	NumDistanceCodes = 40
	// CodeLengthCodes is the size of the code-length alphabet (0..18).
	CodeLengthCodes = 19

	// MaxAllowedCodeLength is the longest Huffman code a VP8L decoder accepts.
	MaxAllowedCodeLength = 15
	// maxCodeLengthCodeLength bounds the code-length code (3-bit lengths).
	maxCodeLengthCodeLength = 7

	// NumHuffmanCodes is the number of prefix codes per group
	// (green+length+cache, red, blue, alpha, distance).
	NumHuffmanCodes = 5

	// MaxCacheBits is the largest color cache a VP8L decoder accepts.
	MaxCacheBits = 11

	// MinTransformBits and NumTransformBits describe how a predictor tile
	// size is stored: 3 bits holding (bits - 2).
	MinTransformBits = 2
	NumTransformBits = 3

	// ARGBBlack is the prediction for the first pixel of an image.
	ARGBBlack = 0xff000000

	// codeToPlaneCodes is the number of short-distance plane codes.
	codeToPlaneCodes = 120

	codeLengthRepeatCode = 16
	// initialRepeatLength is the length code 16 repeats before any non-zero
	// length has been sent.
	initialRepeatLength = 8
)

// Prefix code indices within a group, in stream order.
const (
	huffGreen = iota
	huffRed
	huffBlue
	huffAlpha
	huffDist
)

// codeLengthCodeOrder is the order in which code-length code lengths are
// transmitted.
var codeLengthCodeOrder = [CodeLengthCodes]int{
	17, 18, 0, 1, 2, 3, 4, 5, 16, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

// codeLengthExtraBits gives the extra bits carried by codes 16, 17 and 18.
var codeLengthExtraBits = [3]int{2, 3, 7}

// alphabetSize returns the size of prefix code idx for a given cache size.
func alphabetSize(idx, cacheBits int) int {
	switch idx {
	case huffGreen:
		n := NumLiteralCodes + NumLengthCodes
		if cacheBits > 0 {
			n += 1 << uint(cacheBits)
		}
		return n
	case huffDist:
		return NumDistanceCodes
	default:
		return NumLiteralCodes
	}
}

// codeToPlane maps a short distance code (1-based) to a packed
// (yoffset<<4 | 8-xoffset) neighbourhood offset.
var codeToPlane = [codeToPlaneCodes]uint8{
	0x18, 0x07, 0x17, 0x19, 0x28, 0x06, 0x27, 0x29, 0x16, 0x1a,
	0x26, 0x2a, 0x38, 0x05, 0x37, 0x39, 0x15, 0x1b, 0x36, 0x3a,
	0x25, 0x2b, 0x48, 0x04, 0x47, 0x49, 0x14, 0x1c, 0x35, 0x3b,
	0x46, 0x4a, 0x24, 0x2c, 0x58, 0x45, 0x4b, 0x34, 0x3c, 0x03,
	0x57, 0x59, 0x13, 0x1d, 0x56, 0x5a, 0x23, 0x2d, 0x44, 0x4c,
	0x55, 0x5b, 0x33, 0x3d, 0x68, 0x02, 0x67, 0x69, 0x12, 0x1e,
	0x66, 0x6a, 0x22, 0x2e, 0x54, 0x5c, 0x43, 0x4d, 0x65, 0x6b,
	0x32, 0x3e, 0x78, 0x01, 0x77, 0x79, 0x53, 0x5d, 0x11, 0x1f,
	0x64, 0x6c, 0x42, 0x4e, 0x76, 0x7a, 0x21, 0x2f, 0x75, 0x7b,
	0x31, 0x3f, 0x63, 0x6d, 0x52, 0x5e, 0x00, 0x74, 0x7c, 0x41,
	0x4f, 0x10, 0x20, 0x62, 0x6e, 0x30, 0x73, 0x7d, 0x51, 0x5f,
	0x40, 0x72, 0x7e, 0x61, 0x6f, 0x50, 0x71, 0x7f, 0x60, 0x70,
}

// planeToCode is the inverse of codeToPlane, indexed by yoffset*16+8-xoffset.
var planeToCode [128]uint8

func init() {
	for i, v := range codeToPlane {
		yoff := int(v >> 4)
		xoff := 8 - int(v&0xf)
		planeToCode[yoff*16+8-xoff] = uint8(i)
	}
}

// distanceToPlaneCode converts a linear pixel distance into the distance
// symbol space: 1..120 for the 2-D neighbourhood, dist+120 otherwise.
func distanceToPlaneCode(xsize, dist int) int {
	yoffset := dist / xsize
	xoffset := dist - yoffset*xsize
	if xoffset <= 8 && yoffset < 8 {
		return int(planeToCode[yoffset*16+8-xoffset]) + 1
	} else if xoffset > xsize-8 && yoffset < 7 {
		return int(planeToCode[(yoffset+1)*16+8+(xsize-xoffset)]) + 1
	}
	return dist + codeToPlaneCodes
}

// planeCodeToDistance is the decoder-side mapping, used to check the
// encoder's choice of codes.
func planeCodeToDistance(xsize, planeCode int) int {
	if planeCode > codeToPlaneCodes {
		return planeCode - codeToPlaneCodes
	}
	v := codeToPlane[planeCode-1]
	dist := int(v>>4)*xsize + 8 - int(v&0xf)
	if dist < 1 {
		return 1
	}
	return dist
}

// prefixEncode splits a 1-based length or distance symbol into its prefix
// code, the number of extra bits and their value.
func prefixEncode(v int) (code, extraBits, extraValue int) {
	v--
	if v < 2 {
		return v, 0, 0
	}
	hb := bitsLog2Floor(v)
	second := (v >> uint(hb-1)) & 1
	extraBits = hb - 1
	extraValue = v & (1<<uint(extraBits) - 1)
	return 2*hb + second, extraBits, extraValue
}

// bitsLog2Floor returns floor(log2(n)) for n > 0.
func bitsLog2Floor(n int) int {
	log := 0
	for n > 1 {
		log++
		n >>= 1
	}
	return log
}

// subSampleSize returns ceil(size / 2^bits).
func subSampleSize(size, bits int) int {
	return (size + 1<<uint(bits) - 1) >> uint(bits)
}
