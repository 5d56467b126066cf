package lossless

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/deepteams/webpenc/internal/bitio"
)

// huffmanCode is a canonical prefix code over one alphabet. codes holds the
// bit-reversed codewords, ready to be written LSB first.
type huffmanCode struct {
	lengths []uint8
	codes   []uint16
	used    int // symbols with a non-zero length
}

// trivial reports whether the code has at most one symbol. Such codes are
// decoded without reading any bits, so nothing is emitted per symbol.
func (c *huffmanCode) trivial() bool {
	return c.used <= 1
}

// codeLengthToken is one entry of the run-length coded length sequence:
// a literal length 0..15, or a repeat code 16/17/18 with its extra value.
type codeLengthToken struct {
	code  uint8
	extra uint8
}

type treeNode struct {
	count uint32
	sym   int // -1 for internal nodes
	left  int
	right int
}

type nodeHeap struct {
	nodes []treeNode
	idx   []int
}

func (h *nodeHeap) Len() int { return len(h.idx) }

func (h *nodeHeap) Less(i, j int) bool {
	a, b := h.nodes[h.idx[i]], h.nodes[h.idx[j]]
	if a.count != b.count {
		return a.count < b.count
	}
	return h.idx[i] < h.idx[j]
}

func (h *nodeHeap) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }

func (h *nodeHeap) Push(x any) { h.idx = append(h.idx, x.(int)) }

func (h *nodeHeap) Pop() any {
	n := len(h.idx)
	v := h.idx[n-1]
	h.idx = h.idx[:n-1]
	return v
}

// newHuffmanCode builds a canonical code for counts with no length above
// limit. One or two used symbols get length 1.
func newHuffmanCode(counts []uint32, limit int) *huffmanCode {
	c := &huffmanCode{
		lengths: make([]uint8, len(counts)),
		codes:   make([]uint16, len(counts)),
	}
	var syms []int
	for s, n := range counts {
		if n > 0 {
			syms = append(syms, s)
		}
	}
	c.used = len(syms)
	switch len(syms) {
	case 0:
		return c
	case 1, 2:
		for _, s := range syms {
			c.lengths[s] = 1
		}
	default:
		buildLengths(counts, limit, c.lengths)
	}
	c.assignCodes()
	return c
}

// buildLengths runs the heap construction and, while the deepest leaf is
// past limit, retries with every count raised to a doubling floor. Raising
// small counts flattens the tree until it fits.
func buildLengths(counts []uint32, limit int, lengths []uint8) {
	for floor := uint32(1); ; floor *= 2 {
		h := &nodeHeap{nodes: make([]treeNode, 0, 2*len(counts))}
		for s, n := range counts {
			if n == 0 {
				continue
			}
			if n < floor {
				n = floor
			}
			h.idx = append(h.idx, len(h.nodes))
			h.nodes = append(h.nodes, treeNode{count: n, sym: s, left: -1, right: -1})
		}
		heap.Init(h)
		for h.Len() > 1 {
			l := heap.Pop(h).(int)
			r := heap.Pop(h).(int)
			h.nodes = append(h.nodes, treeNode{
				count: h.nodes[l].count + h.nodes[r].count,
				sym:   -1,
				left:  l,
				right: r,
			})
			heap.Push(h, len(h.nodes)-1)
		}

		for i := range lengths {
			lengths[i] = 0
		}
		if depth := setDepths(h.nodes, h.idx[0], 0, lengths); depth <= limit {
			return
		}
	}
}

// setDepths records leaf depths and returns the maximum depth.
func setDepths(nodes []treeNode, i, depth int, lengths []uint8) int {
	n := nodes[i]
	if n.sym >= 0 {
		lengths[n.sym] = uint8(depth)
		return depth
	}
	l := setDepths(nodes, n.left, depth+1, lengths)
	r := setDepths(nodes, n.right, depth+1, lengths)
	if l > r {
		return l
	}
	return r
}

// assignCodes gives consecutive codewords to symbols ordered by
// (length, symbol) and stores them bit-reversed.
func (c *huffmanCode) assignCodes() {
	type entry struct {
		sym int
		len uint8
	}
	var order []entry
	for s, l := range c.lengths {
		if l > 0 {
			order = append(order, entry{s, l})
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].len != order[j].len {
			return order[i].len < order[j].len
		}
		return order[i].sym < order[j].sym
	})

	code := uint32(0)
	prev := uint8(0)
	for _, e := range order {
		if e.len > prev {
			code <<= e.len - prev
			prev = e.len
		}
		c.codes[e.sym] = reverseBits(code, int(e.len))
		code++
	}
}

func reverseBits(v uint32, n int) uint16 {
	var r uint32
	for i := 0; i < n; i++ {
		r = r<<1 | v&1
		v >>= 1
	}
	return uint16(r)
}

// writeSymbol emits sym. It fails on symbols the code cannot represent.
func (c *huffmanCode) writeSymbol(bw *bitio.Writer, sym int) error {
	if sym < 0 || sym >= len(c.lengths) {
		return fmt.Errorf("%w: symbol %d outside alphabet of %d", ErrInternal, sym, len(c.lengths))
	}
	if c.trivial() {
		return nil
	}
	n := int(c.lengths[sym])
	if n == 0 || n > MaxAllowedCodeLength {
		return fmt.Errorf("%w: symbol %d has code length %d", ErrInternal, sym, n)
	}
	bw.WriteBits(uint32(c.codes[sym]), n)
	return nil
}

// codeLengthTokens run-length codes a length sequence. Zero runs use 17
// (3-10) and 18 (11-138); other runs use 16 to repeat the previous non-zero
// length 3-6 times, with the previous length starting at 8.
func codeLengthTokens(lengths []uint8) []codeLengthToken {
	var tokens []codeLengthToken
	prev := uint8(initialRepeatLength)
	for i := 0; i < len(lengths); {
		v := lengths[i]
		k := i + 1
		for k < len(lengths) && lengths[k] == v {
			k++
		}
		run := k - i
		i = k
		if v == 0 {
			tokens = appendZeroRun(tokens, run)
		} else {
			tokens = appendValueRun(tokens, run, v, prev)
			prev = v
		}
	}
	return tokens
}

func appendZeroRun(tokens []codeLengthToken, run int) []codeLengthToken {
	for run > 0 {
		switch {
		case run < 3:
			for ; run > 0; run-- {
				tokens = append(tokens, codeLengthToken{code: 0})
			}
		case run < 11:
			tokens = append(tokens, codeLengthToken{code: 17, extra: uint8(run - 3)})
			run = 0
		case run < 139:
			tokens = append(tokens, codeLengthToken{code: 18, extra: uint8(run - 11)})
			run = 0
		default:
			tokens = append(tokens, codeLengthToken{code: 18, extra: 0x7f})
			run -= 138
		}
	}
	return tokens
}

func appendValueRun(tokens []codeLengthToken, run int, v, prev uint8) []codeLengthToken {
	if v != prev {
		tokens = append(tokens, codeLengthToken{code: v})
		run--
	}
	for run > 0 {
		switch {
		case run < 3:
			for ; run > 0; run-- {
				tokens = append(tokens, codeLengthToken{code: v})
			}
		case run < 7:
			tokens = append(tokens, codeLengthToken{code: 16, extra: uint8(run - 3)})
			run = 0
		default:
			tokens = append(tokens, codeLengthToken{code: 16, extra: 3})
			run -= 6
		}
	}
	return tokens
}

// storeHuffmanCode writes the description of c. Codes with one or two
// symbols below 256 use the simple form, everything else the code-length
// code form.
func storeHuffmanCode(bw *bitio.Writer, c *huffmanCode) {
	var syms []int
	for s, l := range c.lengths {
		if l > 0 {
			syms = append(syms, s)
			if len(syms) > 2 {
				break
			}
		}
	}
	if len(syms) <= 2 {
		simple := true
		for _, s := range syms {
			if s >= NumLiteralCodes {
				simple = false
			}
		}
		if simple {
			storeSimpleCode(bw, syms)
			return
		}
	}
	storeFullCode(bw, c)
}

func storeSimpleCode(bw *bitio.Writer, syms []int) {
	bw.WriteBits(1, 1)
	if len(syms) == 0 {
		// An unused alphabet is sent as the single symbol 0.
		bw.WriteBits(0, 1)
		bw.WriteBits(0, 1)
		bw.WriteBits(0, 1)
		return
	}
	bw.WriteBits(uint32(len(syms)-1), 1)
	first := syms[0]
	if first < 2 {
		bw.WriteBits(0, 1)
		bw.WriteBits(uint32(first), 1)
	} else {
		bw.WriteBits(1, 1)
		bw.WriteBits(uint32(first), 8)
	}
	if len(syms) == 2 {
		bw.WriteBits(uint32(syms[1]), 8)
	}
}

func storeFullCode(bw *bitio.Writer, c *huffmanCode) {
	bw.WriteBits(0, 1)

	tokens := codeLengthTokens(c.lengths)
	var counts [CodeLengthCodes]uint32
	for _, t := range tokens {
		counts[t.code]++
	}
	lenCode := newHuffmanCode(counts[:], maxCodeLengthCodeLength)

	numCodes := 4
	for i := CodeLengthCodes - 1; i >= 4; i-- {
		if lenCode.lengths[codeLengthCodeOrder[i]] != 0 {
			numCodes = i + 1
			break
		}
	}
	bw.WriteBits(uint32(numCodes-4), 4)
	for i := 0; i < numCodes; i++ {
		bw.WriteBits(uint32(lenCode.lengths[codeLengthCodeOrder[i]]), 3)
	}

	// Trailing zero runs can be dropped when announcing the token count is
	// cheaper than sending them.
	trailing := 0
	trimmed := len(tokens)
	for trimmed > 0 {
		code := tokens[trimmed-1].code
		if code != 0 && code != 17 && code != 18 {
			break
		}
		trimmed--
		if !lenCode.trivial() {
			trailing += int(lenCode.lengths[code])
		}
		switch code {
		case 17:
			trailing += 3
		case 18:
			trailing += 7
		}
	}
	count := len(tokens)
	if trimmed > 1 && trailing > 12 {
		count = trimmed
		bw.WriteBits(1, 1)
		if trimmed == 2 {
			bw.WriteBits(0, 3+2)
		} else {
			nbits := bitsLog2Floor(trimmed - 2)
			pairs := nbits/2 + 1
			bw.WriteBits(uint32(pairs-1), 3)
			bw.WriteBits(uint32(trimmed-2), pairs*2)
		}
	} else {
		bw.WriteBits(0, 1)
	}

	for _, t := range tokens[:count] {
		if !lenCode.trivial() {
			bw.WriteBits(uint32(lenCode.codes[t.code]), int(lenCode.lengths[t.code]))
		}
		if t.code >= codeLengthRepeatCode {
			bw.WriteBits(uint32(t.extra), codeLengthExtraBits[t.code-codeLengthRepeatCode])
		}
	}
}

// storedBits returns the size in bits of c's description.
func storedBits(c *huffmanCode) int {
	bw := bitio.NewWriter(64)
	storeHuffmanCode(bw, c)
	return bw.BitLen()
}
