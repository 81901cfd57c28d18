package jxln

import (
	"errors"
	"fmt"
	"io"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Bitstream handling

// maxPeekBits is the widest value a single peek or read can return.
// Keeping it at 56 guarantees a refill of one byte never shifts valid bits
// out of the 64-bit accumulator.
const maxPeekBits = 56

// maxEmptyReads is how many (0, nil) reads in a row the reader tolerates before giving up.
const maxEmptyReads = 100

// lowMask returns a value with the low n bits set.
func lowMask[T constraints.Unsigned](n uint) T {
	if n >= uint(bits.Len64(uint64(^T(0)))) {
		return ^T(0)
	}

	return (T(1) << n) - 1
}

// BitReader pulls individual bits or bit ranges of up to 56 bits per call out of an io.Reader.
//
// Bits are consumed least-significant-bit first: bit 0 of the first byte is the first bit
// returned by ReadBits(1). The reader pulls exactly one byte at a time from the source and
// never reads ahead further than the current request needs.
type BitReader struct {
	src      io.Reader
	buf      uint64  // Accumulator, the oldest bit is bit 0.
	bufBits  uint    // Number of valid low bits in buf.
	bitsRead uint64  // Total number of bits consumed.
	one      [1]byte // Scratch for sources that are not io.ByteReaders.
}

// NewBitReader returns a BitReader that owns r until Source is called.
func NewBitReader(r io.Reader) *BitReader {
	return &BitReader{src: r}
}

// readByte pulls the next byte from the source.
func (br *BitReader) readByte() (byte, error) {
	if rb, ok := br.src.(io.ByteReader); ok {
		b, err := rb.ReadByte()
		if err != nil {
			return 0, br.sourceError(err)
		}

		return b, nil
	}

	for i := 0; i < maxEmptyReads; i++ {
		n, err := br.src.Read(br.one[:])
		if n == 1 {
			// A reader may return data together with io.EOF; the EOF will repeat on the next call.
			return br.one[0], nil
		}
		if err != nil {
			return 0, br.sourceError(err)
		}
		// n == 0 && err == nil is allowed by io.Reader; try again.
	}

	return 0, fmt.Errorf("%w: %w", ErrIO, io.ErrNoProgress)
}

// sourceError maps a source error onto the package error taxonomy.
func (br *BitReader) sourceError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOF
	}

	return fmt.Errorf("%w: %w", ErrIO, err)
}

// fill refills the accumulator one byte at a time until it holds at least n bits.
func (br *BitReader) fill(n uint) error {
	for br.bufBits < n {
		b, err := br.readByte()
		if err != nil {
			return err
		}

		// Append the new byte above the bits already held.
		br.buf |= uint64(b) << br.bufBits
		br.bufBits += 8
	}

	return nil
}

// PeekBits returns the next n bits, 1 <= n <= 56, without consuming them.
func (br *BitReader) PeekBits(n uint) (uint64, error) {
	if n == 0 || n > maxPeekBits {
		panic(fmt.Sprintf("jxln: invalid bit count %d", n))
	}

	if err := br.fill(n); err != nil {
		return 0, err
	}

	return br.buf & lowMask[uint64](n), nil
}

// ReadBits reads and consumes the next n bits, 1 <= n <= 56.
func (br *BitReader) ReadBits(n uint) (uint64, error) {
	v, err := br.PeekBits(n)
	if err != nil {
		return 0, err
	}

	br.buf >>= n
	br.bufBits -= n
	br.bitsRead += uint64(n)

	return v, nil
}

// ReadBool reads a single bit and reports whether it is set.
func (br *BitReader) ReadBool() (bool, error) {
	v, err := br.ReadBits(1)

	return v == 1, err
}

// Read decodes one value with the given codec.
func (br *BitReader) Read(c Codec) (uint32, error) {
	return c.Decode(br)
}

// BitsRead returns the number of bits consumed so far.
func (br *BitReader) BitsRead() uint64 {
	return br.bitsRead
}

// Source ends the session and returns the wrapped reader.
//
// Bits that were buffered but never consumed are discarded: the returned reader is positioned
// after the last byte pulled from it, not at the logical bit cursor. BitsRead keeps
// reporting the bits consumed; the BitReader must not be read from again.
func (br *BitReader) Source() io.Reader {
	src := br.src
	br.src = nil
	br.buf, br.bufBits = 0, 0

	return src
}
