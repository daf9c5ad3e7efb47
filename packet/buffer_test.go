package packet

import (
	"bytes"
	"math/rand"
	"testing"
)

var letters = []byte("abcdefghijklmnopqrstuvwxyz01234567890~!@#$%^&*()_+-={}[]|:;'<>?/.,")

func randBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return b
}

func TestBufferReadN(t *testing.T) {
	data := randBytes(32)
	buf := NewBuffer(data)

	d, err := buf.ReadN(10)
	if err != nil {
		t.Errorf("read err: %v", err)
		return
	}
	if !bytes.Equal(d, data[:10]) {
		t.Errorf("read %v, want %v", d, data[:10])
	}
	if buf.Remaining() != 22 {
		t.Errorf("remaining %v, want 22", buf.Remaining())
	}
}

func TestBufferUnderrunKeepsCursor(t *testing.T) {
	data := randBytes(8)
	buf := NewBuffer(data[:5])

	if _, err := buf.ReadN(3); err != nil {
		t.Errorf("read err: %v", err)
		return
	}
	off := buf.ReadOffset()

	_, err := buf.ReadN(4)
	if err != ErrUnderrun {
		t.Errorf("err %v, want ErrUnderrun", err)
	}
	if buf.ReadOffset() != off {
		t.Errorf("cursor moved to %v after underrun, want %v", buf.ReadOffset(), off)
	}

	// After appending the missing bytes the same read succeeds.
	buf.Append(data[5:])
	d, err := buf.ReadN(4)
	if err != nil {
		t.Errorf("read after append err: %v", err)
		return
	}
	if !bytes.Equal(d, data[3:7]) {
		t.Errorf("read %v, want %v", d, data[3:7])
	}
}

func TestBufferSuffix(t *testing.T) {
	data := randBytes(16)
	buf := NewBuffer(data)
	if _, err := buf.ReadN(6); err != nil {
		t.Errorf("read err: %v", err)
		return
	}

	s := buf.Suffix(buf.ReadOffset())
	if s.ReadOffset() != 0 {
		t.Errorf("suffix cursor %v, want 0", s.ReadOffset())
	}
	if !bytes.Equal(s.Bytes(), data[6:]) {
		t.Errorf("suffix %v, want %v", s.Bytes(), data[6:])
	}

	// The suffix owns its storage.
	buf.Append(randBytes(4))
	if !bytes.Equal(s.Bytes(), data[6:]) {
		t.Errorf("suffix changed after append to source: %v", s.Bytes())
	}
}

func TestBufferFinished(t *testing.T) {
	buf := NewBuffer(randBytes(4))
	if buf.Finished() {
		t.Errorf("fresh buffer reports finished")
	}
	if _, err := buf.ReadN(4); err != nil {
		t.Errorf("read err: %v", err)
		return
	}
	if !buf.Finished() {
		t.Errorf("drained buffer not finished")
	}
}
