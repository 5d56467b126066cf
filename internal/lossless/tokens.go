package lossless

// tokenKind distinguishes the three symbol kinds of a VP8L pixel stream.
type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenCache
	tokenCopy
)

// token is one element of the LZ77 stream: a literal pixel, a color cache
// reference, or a (length, distance) back-reference. For copies, value holds
// the linear pixel distance; the plane code is derived when writing.
type token struct {
	kind   tokenKind
	length uint16
	value  uint32
}

func literal(argb uint32) token {
	return token{kind: tokenLiteral, length: 1, value: argb}
}

func cacheRef(idx int) token {
	return token{kind: tokenCache, length: 1, value: uint32(idx)}
}

func backRef(length, distance int) token {
	return token{kind: tokenCopy, length: uint16(length), value: uint32(distance)}
}

// pixels returns how many image pixels the token covers.
func (t token) pixels() int {
	return int(t.length)
}

// withColorCache rewrites literals that hit a color cache of the given size
// into cache references. Copies are kept but their pixels still enter the
// cache, mirroring what a decoder does.
func withColorCache(argb []uint32, refs []token, cacheBits int) []token {
	if cacheBits == 0 {
		return refs
	}
	cc := newColorCache(cacheBits)
	out := make([]token, len(refs))
	pos := 0
	for i, t := range refs {
		switch t.kind {
		case tokenLiteral:
			if k, ok := cc.lookup(t.value); ok {
				out[i] = cacheRef(k)
			} else {
				out[i] = t
				cc.insert(t.value)
			}
		default:
			out[i] = t
			for j := 0; j < t.pixels(); j++ {
				cc.insert(argb[pos+j])
			}
		}
		pos += t.pixels()
	}
	return out
}
