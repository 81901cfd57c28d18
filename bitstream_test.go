package jxln

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

var errSource = errors.New("source failed")

// TestBitReader checks LSB-first ordering across byte boundaries.
func TestBitReader(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte("Hello, World!")))

	steps := []struct {
		peek bool
		n    uint
		want uint64
	}{
		{true, 3, 0},
		{false, 4, 8},
		{true, 16, 0b1100_0110_0101_0100},
		{false, 7, 0b101_0100},
		{false, 9, 0b1100_0110_0},
		{false, 56, 0x26f57202c6f6c6},
	}

	for i, s := range steps {
		var got uint64
		var err error
		if s.peek {
			got, err = br.PeekBits(s.n)
		} else {
			got, err = br.ReadBits(s.n)
		}
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if got != s.want {
			t.Errorf("step %d: got %#b, want %#b", i, got, s.want)
		}
	}

	if br.BitsRead() != 76 {
		t.Errorf("BitsRead = %d, want 76", br.BitsRead())
	}
}

// TestBitReaderPeekRead verifies that peek and read agree for every supported width.
func TestBitReaderPeekRead(t *testing.T) {
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i*37 + 11)
	}

	readers := map[string]func() io.Reader{
		"ByteReader": func() io.Reader { return bytes.NewReader(data) },
		"OneByte":    func() io.Reader { return iotest.OneByteReader(bytes.NewReader(data)) },
		"DataErr":    func() io.Reader { return iotest.DataErrReader(bytes.NewReader(data)) },
	}

	for name, newReader := range readers {
		t.Run(name, func(t *testing.T) {
			br := NewBitReader(newReader())

			var total uint64
			for n := uint(1); n <= maxPeekBits; n++ {
				peeked, err := br.PeekBits(n)
				if err != nil {
					t.Fatalf("PeekBits(%d): %v", n, err)
				}

				got, err := br.ReadBits(n)
				if err != nil {
					t.Fatalf("ReadBits(%d): %v", n, err)
				}

				if got != peeked {
					t.Fatalf("ReadBits(%d) = %#x, PeekBits returned %#x", n, got, peeked)
				}

				total += uint64(n)
				if br.BitsRead() != total {
					t.Fatalf("BitsRead = %d after %d-bit read, want %d", br.BitsRead(), n, total)
				}
			}
		})
	}
}

// TestBitReaderEOF verifies that running out of data is an error, never zero padding.
func TestBitReaderEOF(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0xff, 0x0a}))

	if _, err := br.PeekBits(17); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("PeekBits(17) error = %v, want ErrUnexpectedEOF", err)
	}

	v, err := br.ReadBits(16)
	if err != nil {
		t.Fatalf("ReadBits(16): %v", err)
	}
	if v != 0x0aff {
		t.Errorf("ReadBits(16) = %#x, want 0x0aff", v)
	}

	if _, err := br.ReadBool(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ReadBool error = %v, want ErrUnexpectedEOF", err)
	}

	if br.BitsRead() != 16 {
		t.Errorf("BitsRead = %d, want 16", br.BitsRead())
	}
}

func TestBitReaderSourceError(t *testing.T) {
	br := NewBitReader(iotest.ErrReader(errSource))

	_, err := br.ReadBits(1)
	if !errors.Is(err, ErrIO) {
		t.Errorf("error = %v, want ErrIO", err)
	}
	if !errors.Is(err, errSource) {
		t.Errorf("error = %v, does not wrap the source error", err)
	}
	if errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("error = %v, must not be ErrUnexpectedEOF", err)
	}
}

// stalledReader never returns data or an error.
type stalledReader struct{}

func (stalledReader) Read([]byte) (int, error) {
	return 0, nil
}

func TestBitReaderNoProgress(t *testing.T) {
	_, err := NewBitReader(stalledReader{}).ReadBits(1)
	if !errors.Is(err, ErrIO) || !errors.Is(err, io.ErrNoProgress) {
		t.Errorf("error = %v, want ErrIO wrapping io.ErrNoProgress", err)
	}
}

func TestLowMask(t *testing.T) {
	if got := lowMask[uint32](32); got != ^uint32(0) {
		t.Errorf("lowMask[uint32](32) = %#x", got)
	}
	if got := lowMask[uint32](5); got != 0x1f {
		t.Errorf("lowMask[uint32](5) = %#x", got)
	}
	if got := lowMask[uint64](56); got != 1<<56-1 {
		t.Errorf("lowMask[uint64](56) = %#x", got)
	}
	if got := lowMask[uint8](9); got != 0xff {
		t.Errorf("lowMask[uint8](9) = %#x", got)
	}
}

// TestBitReaderSource checks that buffered bits are dropped and the source stays byte aligned.
func TestBitReaderSource(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04}))

	if _, err := br.ReadBits(12); err != nil {
		t.Fatalf("ReadBits(12): %v", err)
	}

	rest, err := io.ReadAll(br.Source())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if !bytes.Equal(rest, []byte{0x03, 0x04}) {
		t.Errorf("remaining source = % x, want 03 04", rest)
	}

	if br.BitsRead() != 12 {
		t.Errorf("BitsRead = %d after Source, want 12", br.BitsRead())
	}
}

func TestBitReaderInvalidWidth(t *testing.T) {
	for _, n := range []uint{0, maxPeekBits + 1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("PeekBits(%d) did not panic", n)
				}
			}()

			_, _ = NewBitReader(bytes.NewReader(make([]byte, 16))).PeekBits(n)
		}()
	}
}

// TestBitWriter writes the TestBitReader sequence back and compares the bytes.
func TestBitWriter(t *testing.T) {
	want := []byte("Hello, World!")

	var buf bytes.Buffer
	bw := NewBitWriter(&buf)

	br := NewBitReader(bytes.NewReader(want))
	for _, n := range []uint{4, 7, 9, 56, 1, 1, 22} {
		v, err := br.ReadBits(n)
		if err != nil {
			t.Fatalf("ReadBits(%d): %v", n, err)
		}

		if err := bw.WriteBits(v, n); err != nil {
			t.Fatalf("WriteBits(%#x, %d): %v", v, n, err)
		}
	}

	if bw.BitsWritten() != 100 {
		t.Errorf("BitsWritten = %d, want 100", bw.BitsWritten())
	}

	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// The last 4 bits of the final byte are padding.
	got := buf.Bytes()
	if len(got) != len(want) {
		t.Fatalf("wrote %d bytes, want %d", len(got), len(want))
	}
	if !bytes.Equal(got[:len(got)-1], want[:len(want)-1]) {
		t.Errorf("got % x, want % x", got, want)
	}
	if got[len(got)-1] != want[len(want)-1]&0x0f {
		t.Errorf("last byte = %#x, want %#x", got[len(got)-1], want[len(want)-1]&0x0f)
	}
}

func TestBitWriterIgnoresHighBits(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)

	if err := bw.WriteBits(0xfff5, 4); err != nil {
		t.Fatal(err)
	}
	if err := bw.WriteBool(true); err != nil {
		t.Fatal(err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatal(err)
	}

	if got := buf.Bytes(); !bytes.Equal(got, []byte{0x15}) {
		t.Errorf("got % x, want 15", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errSource
}

func TestBitWriterError(t *testing.T) {
	bw := NewBitWriter(failingWriter{})

	// Nothing reaches the sink until a byte is complete.
	if err := bw.WriteBits(1, 7); err != nil {
		t.Fatalf("WriteBits(7) = %v, want nil", err)
	}

	err := bw.WriteBits(1, 1)
	if !errors.Is(err, ErrIO) || !errors.Is(err, errSource) {
		t.Errorf("error = %v, want ErrIO wrapping the sink error", err)
	}
}
