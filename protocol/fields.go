package protocol

import (
	"encoding/binary"
	"math"

	"github.com/mcnet-go/mcnet/packet"
)

// Field codecs over packet.Buffer. Readers inherit the buffer's rollback
// contract only per primitive read; packet deserializers that fail partway
// report the failure to the factory, which owns frame consumption.

func ReadString(b *packet.Buffer) (string, error) {
	n, err := packet.ReadVarInt(b)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", packet.ErrNegativeLength
	}
	d, err := b.ReadN(int(n))
	if err != nil {
		return "", err
	}
	return string(d), nil
}

func AppendString(dst []byte, s string) []byte {
	dst = packet.AppendVarInt(dst, int32(len(s)))
	return append(dst, s...)
}

func ReadByteArray(b *packet.Buffer) ([]byte, error) {
	n, err := packet.ReadVarInt(b)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, packet.ErrNegativeLength
	}
	d, err := b.ReadN(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(d))
	copy(out, d)
	return out, nil
}

func AppendByteArray(dst []byte, v []byte) []byte {
	dst = packet.AppendVarInt(dst, int32(len(v)))
	return append(dst, v...)
}

func ReadUint16(b *packet.Buffer) (uint16, error) {
	d, err := b.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d), nil
}

func AppendUint16(dst []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(dst, tmp[:]...)
}

func ReadInt32(b *packet.Buffer) (int32, error) {
	d, err := b.ReadN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(d)), nil
}

func ReadFloat32(b *packet.Buffer) (float32, error) {
	d, err := b.ReadN(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(d)), nil
}

func AppendFloat32(dst []byte, v float32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(dst, tmp[:]...)
}

func ReadFloat64(b *packet.Buffer) (float64, error) {
	d, err := b.ReadN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(d)), nil
}

func AppendFloat64(dst []byte, v float64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(dst, tmp[:]...)
}

func ReadBool(b *packet.Buffer) (bool, error) {
	c, err := b.ReadByte()
	if err != nil {
		return false, err
	}
	return c != 0, nil
}

func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func ReadInt8(b *packet.Buffer) (int8, error) {
	c, err := b.ReadByte()
	if err != nil {
		return 0, err
	}
	return int8(c), nil
}

func ReadUint8(b *packet.Buffer) (uint8, error) {
	return b.ReadByte()
}
