package lossless

// lz77Params bounds the greedy match search.
type lz77Params struct {
	window   int
	maxIters int
}

func lz77ParamsForEffort(effort int) lz77Params {
	switch {
	case effort < 25:
		return lz77Params{window: 4096, maxIters: 4}
	case effort < 50:
		return lz77Params{window: 16384, maxIters: 16}
	case effort < 75:
		return lz77Params{window: maxWindow, maxIters: 32}
	default:
		return lz77Params{window: maxWindow, maxIters: 64 + effort}
	}
}

// backwardRefs turns argb into literals and copies with a greedy longest
// match. At each position the candidates are probed in ascending distance
// (previous pixel, pixel above, then the hash chain nearest first) and a
// candidate only replaces the current best when it is strictly longer, so
// equal lengths resolve to the nearest source.
func backwardRefs(argb []uint32, xsize int, p lz77Params) []token {
	n := len(argb)
	refs := make([]token, 0, n/2+1)
	hc := newHashChain(n)

	for i := 0; i < n; {
		limit := n - i
		if limit > maxLength {
			limit = maxLength
		}
		bestLen, bestDist := 0, 0
		if limit >= minLength {
			cur := argb[i:]
			try := func(dist int) {
				if dist < 1 || dist > i || dist > p.window {
					return
				}
				if l := matchLength(argb[i-dist:], cur, bestLen, limit); l > bestLen {
					bestLen, bestDist = l, dist
				}
			}
			try(1)
			try(xsize)
			iters := p.maxIters
			for pos := hc.first(argb, i); pos >= 0 && iters > 0 && bestLen < limit; pos = hc.next(pos) {
				dist := i - pos
				if dist > p.window {
					break
				}
				iters--
				try(dist)
			}
		}

		if bestLen >= minLength {
			refs = append(refs, backRef(bestLen, bestDist))
			for j := i; j < i+bestLen; j++ {
				hc.insert(argb, j)
			}
			i += bestLen
			continue
		}
		refs = append(refs, literal(argb[i]))
		hc.insert(argb, i)
		i++
	}
	return refs
}
