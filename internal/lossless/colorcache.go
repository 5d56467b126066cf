package lossless

// colorCacheHashMul is the multiplicative hash shared with decoders.
const colorCacheHashMul = 0x1e35a7bd

// colorCache is the hash-addressed table of recently seen ARGB values.
// Encoder and decoder insert every decoded pixel in raster order, so the
// tables stay in lockstep.
type colorCache struct {
	colors []uint32
	shift  uint
}

func newColorCache(bits int) *colorCache {
	return &colorCache{
		colors: make([]uint32, 1<<uint(bits)),
		shift:  uint(32 - bits),
	}
}

func (c *colorCache) key(argb uint32) int {
	return int((argb * colorCacheHashMul) >> c.shift)
}

func (c *colorCache) insert(argb uint32) {
	c.colors[c.key(argb)] = argb
}

// lookup returns the slot of argb if it is currently cached.
func (c *colorCache) lookup(argb uint32) (int, bool) {
	k := c.key(argb)
	if c.colors[k] == argb {
		return k, true
	}
	return -1, false
}
