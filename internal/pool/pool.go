// Package pool recycles the large byte buffers that hold raw RGBA frames
// while the frames command works through a directory.
// Buffers are kept in sync.Pools by size class.
package pool

import "sync"

// Size classes.
const (
	Size64K  = 1 << 16
	Size256K = 1 << 18
	Size1M   = 1 << 20
	Size4M   = 1 << 22
	Size16M  = 1 << 24
	Size64M  = 1 << 26
)

var sizes = [...]int{Size64K, Size256K, Size1M, Size4M, Size16M, Size64M}

var pools [len(sizes)]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

// bucketIndex returns the smallest class that holds size bytes, or -1 when
// size exceeds the largest class.
func bucketIndex(size int) int {
	for i, sz := range sizes {
		if size <= sz {
			return i
		}
	}
	return -1
}

// Get returns a slice of length size. Sizes above Size64M are allocated
// directly and never pooled.
func Get(size int) []byte {
	idx := bucketIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	bp := pools[idx].Get().(*[]byte)
	return (*bp)[:size]
}

// GetFrame returns a buffer for a width x height RGBA8 frame.
func GetFrame(width, height int) []byte {
	return Get(width * height * 4)
}

// Put hands b back for reuse. It is filed under the largest class its
// capacity covers; slices below Size64K or above Size64M are dropped.
func Put(b []byte) {
	c := cap(b)
	if c < Size64K || c > Size64M {
		return
	}
	idx := len(sizes) - 1
	for sizes[idx] > c {
		idx--
	}
	b = b[:sizes[idx]]
	pools[idx].Put(&b)
}
