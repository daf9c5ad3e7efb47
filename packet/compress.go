package packet

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

// Compressor turns packet bytes into a frame body on send and a frame body
// back into packet bytes on receive. Exactly one compressor is active on a
// connection at any time.
type Compressor interface {
	// Compress encodes one packet's bytes into a frame body, without the
	// outer length prefix.
	Compress(data []byte) ([]byte, error)
	// DecompressFrame consumes exactly frameLen bytes from the buffer and
	// returns the decoded packet bytes.
	DecompressFrame(buf *Buffer, frameLen int32) ([]byte, error)
	Close() error
}

// NoneCompressor passes packets through untouched. The frame body still
// carries the uncompressed-size marker, always zero.
type NoneCompressor struct{}

func NewNoneCompressor() NoneCompressor {
	return NoneCompressor{}
}

func (NoneCompressor) Compress(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)+1)
	out = AppendVarInt(out, 0)
	return append(out, data...), nil
}

func (NoneCompressor) DecompressFrame(buf *Buffer, frameLen int32) ([]byte, error) {
	start := buf.ReadOffset()
	if _, err := ReadVarInt(buf); err != nil {
		return nil, err
	}
	return buf.ReadN(int(frameLen) - (buf.ReadOffset() - start))
}

func (NoneCompressor) Close() error {
	return nil
}

// ZlibCompressor deflates packets at or above the negotiated threshold.
// Smaller packets go out raw with a zero size marker, like NoneCompressor.
type ZlibCompressor struct {
	threshold   int
	writer      *zlib.Writer
	writeBuffer bytes.Buffer
}

func NewZlibCompressor(threshold int) *ZlibCompressor {
	c := &ZlibCompressor{threshold: threshold}
	c.writer = zlib.NewWriter(&c.writeBuffer)
	return c
}

func (c *ZlibCompressor) Threshold() int {
	return c.threshold
}

func (c *ZlibCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) < c.threshold {
		return NoneCompressor{}.Compress(data)
	}
	c.writeBuffer.Reset()
	c.writer.Reset(&c.writeBuffer)
	if _, err := c.writer.Write(data); err != nil {
		return nil, errors.Wrap(err, "mcnet: deflate packet")
	}
	if err := c.writer.Close(); err != nil {
		return nil, errors.Wrap(err, "mcnet: deflate packet")
	}
	out := make([]byte, 0, VarIntLen(int32(len(data)))+c.writeBuffer.Len())
	out = AppendVarInt(out, int32(len(data)))
	return append(out, c.writeBuffer.Bytes()...), nil
}

func (c *ZlibCompressor) DecompressFrame(buf *Buffer, frameLen int32) ([]byte, error) {
	start := buf.ReadOffset()
	size, err := ReadVarInt(buf)
	if err != nil {
		return nil, err
	}
	body, err := buf.ReadN(int(frameLen) - (buf.ReadOffset() - start))
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return body, nil
	}
	if size < 0 {
		return nil, ErrNegativeLength
	}
	reader, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "mcnet: inflate frame")
	}
	defer reader.Close()
	var rd bytes.Buffer
	rd.Grow(int(size))
	n, err := io.Copy(&rd, io.LimitReader(reader, int64(size)+1))
	if err != nil {
		return nil, errors.Wrap(err, "mcnet: inflate frame")
	}
	if n != int64(size) {
		return nil, ErrSizeMismatch
	}
	return rd.Bytes(), nil
}

func (c *ZlibCompressor) Close() error {
	return nil
}
