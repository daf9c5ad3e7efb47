package packet

// MaxVarIntLen is the largest encoding of a 32 bit value: five bytes of
// seven data bits each.
const MaxVarIntLen = 5

// ReadVarInt decodes a VarInt from the buffer. On underrun the cursor is
// rolled back to where it was so the same bytes can be decoded again once
// the rest of the sequence arrives.
func ReadVarInt(b *Buffer) (int32, error) {
	start := b.ReadOffset()
	var v uint32
	for i := 0; i < MaxVarIntLen; i++ {
		c, err := b.ReadByte()
		if err != nil {
			b.SetReadOffset(start)
			return 0, ErrUnderrun
		}
		v |= uint32(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			return int32(v), nil
		}
	}
	b.SetReadOffset(start)
	return 0, ErrVarIntTooLong
}

// AppendVarInt appends the minimal encoding of v to dst.
func AppendVarInt(dst []byte, v int32) []byte {
	u := uint32(v)
	for u >= 0x80 {
		dst = append(dst, byte(u)|0x80)
		u >>= 7
	}
	return append(dst, byte(u))
}

// VarIntLen reports how many bytes AppendVarInt would produce for v.
func VarIntLen(v int32) int {
	n := 1
	for u := uint32(v); u >= 0x80; u >>= 7 {
		n++
	}
	return n
}
