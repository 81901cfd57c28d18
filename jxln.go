package jxln

import (
	"errors"
	"image"
	"io"
)

// Standard error types for JPEG XL header decoding.
var (
	ErrBadSignature  = errors.New("invalid file signature")
	ErrUnexpectedEOF = errors.New("unexpected EOF")
	ErrIO            = errors.New("I/O error")
	ErrRange         = errors.New("value out of range")
	ErrUnsupported   = errors.New("unsupported operation")
	ErrDecoderUsed   = errors.New("decoder already used")
)

// signature is the codestream signature, read as a single 16-bit little-endian value.
const signature = 0x0aff

// magic is signature as it appears in the byte stream.
const magic = "\xff\x0a"

// Decoder reads the header of a bare JPEG XL codestream.
//
// A Decoder owns its source from construction and is good for a single ReadHeader call.
type Decoder struct {
	br   *BitReader
	used bool
}

// NewDecoder returns a Decoder reading from r.
//
// r is read one byte at a time and never past the last byte the header needs, so callers that
// want buffering should pass a reader that implements io.ByteReader, such as *bufio.Reader.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{br: NewBitReader(r)}
}

// ReadHeader checks the signature and decodes the image dimensions.
//
// On success it also returns the source, positioned after the last byte the header touched.
// A partially filled byte at the end of the header is skipped. On a signature mismatch the
// source is returned as well, with exactly two bytes consumed. On any other error the source
// is not returned and should be considered unusable.
func (d *Decoder) ReadHeader() (Header, io.Reader, error) {
	if d.used {
		return Header{}, nil, ErrDecoderUsed
	}
	d.used = true

	sig, err := d.br.ReadBits(16)
	if err != nil {
		return Header{}, nil, err
	}

	if sig != signature {
		return Header{}, d.br.Source(), ErrBadSignature
	}

	h, err := headerRecord.Decode(d.br)
	if err != nil {
		return Header{}, nil, err
	}

	return h, d.br.Source(), nil
}

// BitsRead returns the number of bits consumed by ReadHeader, including the signature.
func (d *Decoder) BitsRead() uint64 {
	return d.br.BitsRead()
}

// EncodeHeader writes the signature and h to w, padding the last byte with zero bits.
//
// The ratio field is used whenever a table entry reproduces the width exactly, and the
// small encoding whenever every explicitly coded size allows it.
func EncodeHeader(w io.Writer, h Header) error {
	bw := NewBitWriter(w)

	if err := bw.WriteBits(signature, 16); err != nil {
		return err
	}

	if err := headerRecord.Encode(bw, h); err != nil {
		return err
	}

	return bw.Flush()
}

// Decode reports ErrUnsupported after validating the header: only the header is decoded by
// this package.
func Decode(r io.Reader) (image.Image, error) {
	if _, err := DecodeConfig(r); err != nil {
		return nil, err
	}

	return nil, ErrUnsupported
}

// DecodeConfig returns the dimensions of a JPEG XL codestream without decoding any pixel data.
// The color model is left nil since the header does not describe it.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, _, err := NewDecoder(r).ReadHeader()
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		Width:  int(h.Width),
		Height: int(h.Height),
	}, nil
}

// init registers the JPEG XL codestream signature with the standard library's image package.
// This allows image.DecodeConfig to recognize bare JPEG XL codestreams.
func init() {
	image.RegisterFormat("jxl", magic, Decode, DecodeConfig)
}
