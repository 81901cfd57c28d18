package jxln

import "fmt"

// maxCodecBits is the widest field a single primitive codec may declare.
const maxCodecBits = 32

// Codec is a primitive bit-level value type: it knows how many bits it needs and how to move a
// value between a uint32 and the bitstream.
type Codec interface {
	// Decode reads one value. It fails only with the reader's own errors.
	Decode(br *BitReader) (uint32, error)
	// Encode writes v, or returns ErrRange if the codec cannot represent it.
	Encode(bw *BitWriter, v uint32) error
	// Fits reports whether v is representable by this codec.
	Fits(v uint32) bool
}

// Const is a constant that takes zero bits in the bitstream.
// It is mostly useful as an arm of PrefixU32.
type Const uint32

func (c Const) Decode(*BitReader) (uint32, error) {
	return uint32(c), nil
}

func (c Const) Encode(_ *BitWriter, v uint32) error {
	if !c.Fits(v) {
		return fmt.Errorf("%w: %d is not the constant %d", ErrRange, v, uint32(c))
	}

	return nil
}

func (c Const) Fits(v uint32) bool {
	return v == uint32(c)
}

// Bool is a single bit decoding to 0 or 1.
type Bool struct{}

func (Bool) Decode(br *BitReader) (uint32, error) {
	v, err := br.ReadBits(1)

	return uint32(v), err
}

func (b Bool) Encode(bw *BitWriter, v uint32) error {
	if !b.Fits(v) {
		return fmt.Errorf("%w: %d is not a boolean", ErrRange, v)
	}

	return bw.WriteBits(uint64(v), 1)
}

func (Bool) Fits(v uint32) bool {
	return v <= 1
}

// Bits is a directly coded unsigned number of the given width.
// Bits(0) always decodes to zero without touching the stream.
type Bits uint

func (b Bits) width() uint {
	w := uint(b)
	if w > maxCodecBits {
		panic(fmt.Sprintf("jxln: codec width %d exceeds %d bits", w, maxCodecBits))
	}

	return w
}

func (b Bits) Decode(br *BitReader) (uint32, error) {
	w := b.width()
	if w == 0 {
		return 0, nil
	}

	v, err := br.ReadBits(w)

	return uint32(v), err
}

func (b Bits) Encode(bw *BitWriter, v uint32) error {
	if !b.Fits(v) {
		return fmt.Errorf("%w: %d does not fit in %d bits", ErrRange, v, uint(b))
	}

	w := b.width()
	if w == 0 {
		return nil
	}

	return bw.WriteBits(uint64(v), w)
}

func (b Bits) Fits(v uint32) bool {
	return v <= lowMask[uint32](b.width())
}

// BitsOffset is a number coded in Width bits after subtracting Offset,
// covering [Offset, Offset + 2^Width - 1]. That range must fit in 32 bits; using a codec
// whose range does not panics.
type BitsOffset struct {
	Width  uint
	Offset uint32
}

// check panics if the largest value the codec can produce does not fit in 32 bits.
func (b BitsOffset) check() {
	hi := uint64(b.Offset) + uint64(lowMask[uint32](Bits(b.Width).width()))
	if hi > uint64(^uint32(0)) {
		panic(fmt.Sprintf("jxln: offset %d with width %d overflows 32 bits", b.Offset, b.Width))
	}
}

func (b BitsOffset) Decode(br *BitReader) (uint32, error) {
	b.check()

	v, err := Bits(b.Width).Decode(br)
	if err != nil {
		return 0, err
	}

	return v + b.Offset, nil
}

func (b BitsOffset) Encode(bw *BitWriter, v uint32) error {
	if !b.Fits(v) {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrRange, v, b.Offset,
			uint64(b.Offset)+uint64(lowMask[uint32](Bits(b.Width).width())))
	}

	return Bits(b.Width).Encode(bw, v-b.Offset)
}

func (b BitsOffset) Fits(v uint32) bool {
	b.check()

	return v >= b.Offset && Bits(b.Width).Fits(v-b.Offset)
}

// PrefixU32 is a variable width number: a 2-bit selector followed by the arm it selects.
//
// Encoding picks the lowest-indexed arm that can represent the value, so arms are expected
// to be ordered from the cheapest to the widest.
type PrefixU32 [4]Codec

func (p PrefixU32) Decode(br *BitReader) (uint32, error) {
	sel, err := br.ReadBits(2)
	if err != nil {
		return 0, err
	}

	return p[sel].Decode(br)
}

func (p PrefixU32) Encode(bw *BitWriter, v uint32) error {
	sel, ok := p.Select(v)
	if !ok {
		return fmt.Errorf("%w: %d fits none of the prefix arms", ErrRange, v)
	}

	if err := bw.WriteBits(uint64(sel), 2); err != nil {
		return err
	}

	return p[sel].Encode(bw, v)
}

func (p PrefixU32) Fits(v uint32) bool {
	_, ok := p.Select(v)

	return ok
}

// Select returns the index of the arm Encode uses for v.
func (p PrefixU32) Select(v uint32) (int, bool) {
	for i, c := range p {
		if c.Fits(v) {
			return i, true
		}
	}

	return 0, false
}
