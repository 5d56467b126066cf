package lossless

const (
	// maxHashBits caps the hash table at 2^18 buckets.
	maxHashBits = 18
	minHashBits = 8

	// maxLength is the longest copy a length prefix code can express here.
	maxLength = 4095
	// minLength is the shortest copy worth emitting.
	minLength = 3
	// maxWindow bounds how far back a copy may reach, in pixels.
	maxWindow = 32768
)

// Multipliers for hashing two consecutive pixels.
const (
	hashMulHi = uint32(0xc6a4a793)
	hashMulLo = uint32(0x5bd1e996)
)

// hashChain links every inserted position to the previous position whose
// two-pixel prefix hashes to the same bucket. Walking a chain therefore
// visits candidates from nearest to farthest.
type hashChain struct {
	head []int32
	prev []int32
	bits uint
}

func newHashChain(size int) *hashChain {
	bits := bitsLog2Floor(size) + 1
	if bits < minHashBits {
		bits = minHashBits
	}
	if bits > maxHashBits {
		bits = maxHashBits
	}
	hc := &hashChain{
		head: make([]int32, 1<<uint(bits)),
		prev: make([]int32, size),
		bits: uint(bits),
	}
	for i := range hc.head {
		hc.head[i] = -1
	}
	return hc
}

func (hc *hashChain) hash(a, b uint32) uint32 {
	return (b*hashMulHi + a*hashMulLo) >> (32 - hc.bits)
}

// insert records pos. The last pixel has no successor and is never a
// candidate.
func (hc *hashChain) insert(argb []uint32, pos int) {
	if pos+1 >= len(argb) {
		return
	}
	h := hc.hash(argb[pos], argb[pos+1])
	hc.prev[pos] = hc.head[h]
	hc.head[h] = int32(pos)
}

// first returns the nearest earlier position sharing pos's bucket, or -1.
func (hc *hashChain) first(argb []uint32, pos int) int {
	if pos+1 >= len(argb) {
		return -1
	}
	return int(hc.head[hc.hash(argb[pos], argb[pos+1])])
}

func (hc *hashChain) next(pos int) int {
	return int(hc.prev[pos])
}

// matchLength counts equal leading pixels of a and b, up to limit. It bails
// out early when the pixel at index best differs, since such a candidate
// cannot beat the current best match.
func matchLength(a, b []uint32, best, limit int) int {
	if best < limit && a[best] != b[best] {
		return 0
	}
	n := 0
	for n < limit && a[n] == b[n] {
		n++
	}
	return n
}
