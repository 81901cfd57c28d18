package jxln

import (
	"fmt"
	"io"
)

// BitWriter is the encoding counterpart of BitReader.
//
// Bits are packed least-significant-bit first. Whole bytes are written to the sink as soon as
// they are complete; Flush pads the final partial byte with zero bits.
type BitWriter struct {
	dst         io.Writer
	buf         uint64 // Pending bits, the oldest bit is bit 0.
	bufBits     uint   // Number of pending bits in buf (always < 8 between calls).
	bitsWritten uint64
	out         [8]byte
}

// NewBitWriter returns a BitWriter writing to w.
func NewBitWriter(w io.Writer) *BitWriter {
	return &BitWriter{dst: w}
}

// WriteBits writes the low n bits of v, 1 <= n <= 56. Bits of v above n are ignored.
func (bw *BitWriter) WriteBits(v uint64, n uint) error {
	if n == 0 || n > maxPeekBits {
		panic(fmt.Sprintf("jxln: invalid bit count %d", n))
	}

	bw.buf |= (v & lowMask[uint64](n)) << bw.bufBits
	bw.bufBits += n
	bw.bitsWritten += uint64(n)

	return bw.drain()
}

// WriteBool writes a single bit, 1 for true.
func (bw *BitWriter) WriteBool(b bool) error {
	var v uint64
	if b {
		v = 1
	}

	return bw.WriteBits(v, 1)
}

// Write encodes v with the given codec.
func (bw *BitWriter) Write(c Codec, v uint32) error {
	return c.Encode(bw, v)
}

// BitsWritten returns the number of bits written so far, not counting Flush padding.
func (bw *BitWriter) BitsWritten() uint64 {
	return bw.bitsWritten
}

// drain writes out every complete byte held in the accumulator.
func (bw *BitWriter) drain() error {
	n := 0
	for bw.bufBits >= 8 {
		bw.out[n] = byte(bw.buf)
		bw.buf >>= 8
		bw.bufBits -= 8
		n++
	}

	if n == 0 {
		return nil
	}

	if _, err := bw.dst.Write(bw.out[:n]); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return nil
}

// Flush pads the pending bits with zeros up to the next byte boundary and writes them out.
func (bw *BitWriter) Flush() error {
	if bw.bufBits == 0 {
		return nil
	}

	bw.bufBits = 8

	return bw.drain()
}
