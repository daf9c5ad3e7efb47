package packet

import (
	"errors"
)

const (
	// MaxFrameLength bounds the declared length of a single frame.
	MaxFrameLength = 2 * 1024 * 1024
)

var (
	ErrUnderrun       = errors.New("mcnet: buffer underrun")
	ErrVarIntTooLong  = errors.New("mcnet: varint longer than five bytes")
	ErrSizeMismatch   = errors.New("mcnet: inflated size does not match declared size")
	ErrNegativeLength = errors.New("mcnet: negative length prefix")
)

// Buffer is an append-only byte sequence with a read cursor. Reads that
// cannot be satisfied fail with ErrUnderrun and leave the cursor where it
// was, so the caller can retry after more bytes arrive.
type Buffer struct {
	data []byte
	off  int
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) Append(data []byte) {
	b.data = append(b.data, data...)
}

// ReadN consumes exactly n bytes. The returned slice aliases the buffer's
// storage and is only valid until the buffer is appended to or compacted.
func (b *Buffer) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if b.off+n > len(b.data) {
		return nil, ErrUnderrun
	}
	d := b.data[b.off : b.off+n]
	b.off += n
	return d, nil
}

func (b *Buffer) ReadByte() (byte, error) {
	if b.off >= len(b.data) {
		return 0, ErrUnderrun
	}
	c := b.data[b.off]
	b.off++
	return c, nil
}

func (b *Buffer) Remaining() int {
	return len(b.data) - b.off
}

func (b *Buffer) Len() int {
	return len(b.data)
}

func (b *Buffer) ReadOffset() int {
	return b.off
}

func (b *Buffer) SetReadOffset(off int) {
	if off < 0 {
		off = 0
	}
	if off > len(b.data) {
		off = len(b.data)
	}
	b.off = off
}

// Finished reports whether every byte has been consumed.
func (b *Buffer) Finished() bool {
	return b.off >= len(b.data)
}

// Suffix returns a fresh buffer holding only the bytes from off onward,
// with its cursor reset to zero. The data is copied so the old buffer's
// storage can be released.
func (b *Buffer) Suffix(off int) *Buffer {
	if off < 0 {
		off = 0
	}
	if off > len(b.data) {
		off = len(b.data)
	}
	d := make([]byte, len(b.data)-off)
	copy(d, b.data[off:])
	return &Buffer{data: d}
}

func (b *Buffer) Bytes() []byte {
	return b.data
}
