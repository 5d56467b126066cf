package bitio

import "errors"

// ErrUnexpectedEOF is returned when a read runs past the end of the data.
var ErrUnexpectedEOF = errors.New("unexpected end of stream")

// Reader reads fields written by Writer, least-significant bit first.
// It is used to inspect headers of finished streams.
type Reader struct {
	data []byte
	pos  int // bit position
	err  error
}

// NewReader returns a Reader positioned at the first bit of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadBits reads nBits (0..32). After the first overrun every call returns
// 0 and Err reports ErrUnexpectedEOF.
func (r *Reader) ReadBits(nBits int) uint32 {
	if r.err != nil {
		return 0
	}
	if r.pos+nBits > len(r.data)*8 {
		r.err = ErrUnexpectedEOF
		return 0
	}
	var v uint32
	for i := 0; i < nBits; i++ {
		bit := (r.data[r.pos>>3] >> uint(r.pos&7)) & 1
		v |= uint32(bit) << uint(i)
		r.pos++
	}
	return v
}

// ReadBit reads a single flag bit.
func (r *Reader) ReadBit() bool {
	return r.ReadBits(1) == 1
}

// BitPos returns the number of bits consumed.
func (r *Reader) BitPos() int {
	return r.pos
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}
