// Package bitio provides the LSB-first bit sink used to build VP8L
// bitstreams.
package bitio

import "encoding/binary"

const (
	flushBits  = 32
	flushBytes = 4
)

// Writer accumulates bits least-significant first in a 64-bit register and
// spills them 32 bits at a time in little-endian byte order. It is
// append-only; Finish hands the bytes over and the writer must not be used
// afterwards.
type Writer struct {
	acc  uint64
	used int
	buf  []byte
	n    int
}

// NewWriter returns a Writer whose buffer is pre-sized for about
// expectedSize bytes.
func NewWriter(expectedSize int) *Writer {
	if expectedSize < 256 {
		expectedSize = 256
	}
	return &Writer{buf: make([]byte, expectedSize)}
}

// WriteBits appends the low nBits (0..32) bits of v.
func (w *Writer) WriteBits(v uint32, nBits int) {
	if nBits == 0 {
		return
	}
	if w.used >= flushBits {
		w.spill()
	}
	if nBits < 32 {
		v &= 1<<uint(nBits) - 1
	}
	w.acc |= uint64(v) << uint(w.used)
	w.used += nBits
}

// WriteBit appends a single flag bit.
func (w *Writer) WriteBit(b bool) {
	if b {
		w.WriteBits(1, 1)
	} else {
		w.WriteBits(0, 1)
	}
}

func (w *Writer) spill() {
	w.grow(flushBytes)
	binary.LittleEndian.PutUint32(w.buf[w.n:], uint32(w.acc))
	w.n += flushBytes
	w.acc >>= flushBits
	w.used -= flushBits
}

func (w *Writer) grow(n int) {
	if w.n+n <= len(w.buf) {
		return
	}
	size := len(w.buf) * 3 / 2
	if size < w.n+n {
		size = w.n + n
	}
	tmp := make([]byte, size)
	copy(tmp, w.buf[:w.n])
	w.buf = tmp
}

// BitLen returns the number of bits written so far.
func (w *Writer) BitLen() int {
	return w.n*8 + w.used
}

// Len returns the number of bytes Finish would return.
func (w *Writer) Len() int {
	return w.n + (w.used+7)/8
}

// Finish pads the last partial byte with zero bits and returns the stream.
func (w *Writer) Finish() []byte {
	for w.used >= flushBits {
		w.spill()
	}
	w.grow((w.used + 7) / 8)
	for w.used > 0 {
		w.buf[w.n] = byte(w.acc)
		w.n++
		w.acc >>= 8
		w.used -= 8
	}
	w.used = 0
	return w.buf[:w.n]
}
