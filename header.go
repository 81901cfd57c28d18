package jxln

// Rational is an aspect ratio used to derive the image width from its height.
type Rational struct {
	Num, Den uint32
}

// Mul returns floor(v * Num / Den).
func (r Rational) Mul(v uint32) uint32 {
	return uint32(uint64(v) * uint64(r.Num) / uint64(r.Den))
}

// ratios is indexed by the 3-bit ratio field minus one.
var ratios = [7]Rational{
	{1, 1},
	{12, 10},
	{4, 3},
	{3, 2},
	{16, 9},
	{5, 4},
	{2, 1},
}

// Header holds the image dimensions stored at the start of the codestream.
type Header struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Size field names.
const (
	fieldSmall  = "small"
	fieldHSmall = "h_small"
	fieldHLarge = "h_large"
	fieldRatio  = "ratio"
	fieldWSmall = "w_small"
	fieldWLarge = "w_large"
)

var (
	sizeSmall = Bits(5)
	sizeLarge = PrefixU32{
		BitsOffset{Width: 9, Offset: 1},
		BitsOffset{Width: 13, Offset: 1},
		BitsOffset{Width: 18, Offset: 1},
		BitsOffset{Width: 30, Offset: 1},
	}
)

func isSmall(f Fields) bool { return f.Bool(fieldSmall) }
func isLarge(f Fields) bool { return !f.Bool(fieldSmall) }

func explicitWidth(f Fields) bool { return f.Get(fieldRatio) == 0 }

var sizeSchema = Schema{
	{Name: fieldSmall, Codec: Bool{}},
	{Name: fieldHSmall, Codec: sizeSmall, If: isSmall},
	{Name: fieldHLarge, Codec: sizeLarge, If: isLarge},
	{Name: fieldRatio, Codec: Bits(3)},
	{Name: fieldWSmall, Codec: sizeSmall, If: func(f Fields) bool { return explicitWidth(f) && isSmall(f) }},
	{Name: fieldWLarge, Codec: sizeLarge, If: func(f Fields) bool { return explicitWidth(f) && isLarge(f) }},
}

// headerRecord decodes and encodes the size header (everything after the signature).
var headerRecord = &Record[Header]{
	Schema:      sizeSchema,
	Assemble:    assembleHeader,
	Disassemble: disassembleHeader,
}

// smallSize converts a decoded 5-bit size to pixels.
func smallSize(v uint32) uint32 {
	return 8 * (v + 1)
}

// fitsSmall reports whether size has a 5-bit small encoding.
func fitsSmall(size uint32) bool {
	return size%8 == 0 && size >= 8 && size <= 256
}

func assembleHeader(f Fields) Header {
	small := f.Bool(fieldSmall)

	var h Header
	if small {
		h.Height = smallSize(f.Get(fieldHSmall))
	} else {
		h.Height = f.Get(fieldHLarge)
	}

	switch ratio := f.Get(fieldRatio); {
	case ratio != 0:
		h.Width = ratios[ratio-1].Mul(h.Height)
	case small:
		h.Width = smallSize(f.Get(fieldWSmall))
	default:
		h.Width = f.Get(fieldWLarge)
	}

	return h
}

// disassembleHeader picks the tightest encoding of h: the first ratio that reproduces the width
// exactly, and the small regime whenever every explicitly coded size allows it.
func disassembleHeader(h Header) (Fields, error) {
	f := make(Fields, len(sizeSchema))

	for i, r := range ratios {
		if r.Mul(h.Height) == h.Width {
			f[fieldRatio] = uint32(i + 1)

			break
		}
	}

	explicit := f[fieldRatio] == 0
	small := fitsSmall(h.Height) && (!explicit || fitsSmall(h.Width))

	switch {
	case small:
		f[fieldSmall] = 1
		f[fieldHSmall] = h.Height/8 - 1
		if explicit {
			f[fieldWSmall] = h.Width/8 - 1
		}
	default:
		f[fieldHLarge] = h.Height
		if explicit {
			f[fieldWLarge] = h.Width
		}
	}

	return f, nil
}
