package tiff_writer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"tiffstack/contracts"
	"tiffstack/tensor"
)

// Encoder writes six-axis TZCYXS tensors as one page per T, Z, C plane.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

var _ contracts.Encoder = (*Encoder)(nil)

func (e *Encoder) Encode(w io.Writer, req contracts.EncodeRequest) error {
	if req.BigTIFF {
		return ErrBigTIFFUnsupported
	}
	img := req.Image
	if img == nil {
		return fmt.Errorf("no image to encode")
	}
	dims := req.Shape.Dims()
	if img.Rank() != 6 || img.Len() != req.Shape.Len() {
		return fmt.Errorf("image shape %v does not match %s", img.Shape, req.Shape)
	}
	for i, d := range dims {
		if img.Shape[i] != d {
			return fmt.Errorf("image shape %v does not match %s", img.Shape, req.Shape)
		}
	}
	if err := img.Validate(); err != nil {
		return err
	}

	compress, err := newCompressor(req.Compression)
	if err != nil {
		return err
	}

	description := req.Description
	if req.ImageJ && len(description) == 0 {
		description = []byte(imageJDescription(req.Shape))
	}

	tw := NewTIFFWriter(w, req.ByteOrder)
	shape := req.Shape
	size := img.DType.Size()
	pageBytes := shape.Y * shape.X * shape.S * size
	for p := 0; p < shape.Pages(); p++ {
		plane := img.Data[p*pageBytes : (p+1)*pageBytes]
		strip, err := compress(toByteOrder(plane, size, req.ByteOrder))
		if err != nil {
			return fmt.Errorf("error compressing page %d: %w", p, err)
		}
		page := Page{
			Width:         shape.X,
			Height:        shape.Y,
			Samples:       shape.S,
			BitsPerSample: size * 8,
			SampleFormat:  sampleFormat(img.DType),
			Compression:   req.Compression.Code,
			Strip:         strip,
			Resolution:    req.Resolution,
		}
		if p == 0 {
			page.Description = description
			page.Software = req.Software
			page.DateTime = req.Date
		}
		if err := tw.WritePage(page); err != nil {
			return err
		}
	}
	return tw.Finish()
}

func sampleFormat(dt tensor.DType) uint16 {
	switch {
	case dt.IsFloat():
		return SampleFloat
	case dt.IsSigned():
		return SampleInt
	default:
		return SampleUint
	}
}

// toByteOrder returns little-endian samples in the requested byte order.
func toByteOrder(data []byte, size int, order contracts.ByteOrder) []byte {
	if order == contracts.LittleEndian || size == 1 {
		return data
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += size {
		for j := 0; j < size; j++ {
			out[i+j] = data[i+size-1-j]
		}
	}
	return out
}

type compressor func([]byte) ([]byte, error)

func newCompressor(c contracts.Compression) (compressor, error) {
	codec := c.Codec
	if codec == "" {
		codec = contracts.CodecNone
	}
	switch codec {
	case contracts.CodecNone:
		return func(b []byte) ([]byte, error) { return b, nil }, nil
	case contracts.CodecAdobeDeflate, "deflate":
		level := c.Level
		if level == 0 {
			level = zlib.DefaultCompression
		}
		return func(b []byte) ([]byte, error) {
			var buf bytes.Buffer
			zw, err := zlib.NewWriterLevel(&buf, level)
			if err != nil {
				return nil, err
			}
			if _, err := zw.Write(b); err != nil {
				return nil, err
			}
			if err := zw.Close(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}, nil
	case "zstd":
		opts := []zstd.EOption{zstd.WithEncoderConcurrency(1)}
		if c.Level > 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.Level)))
		}
		enc, err := zstd.NewWriter(nil, opts...)
		if err != nil {
			return nil, err
		}
		return func(b []byte) ([]byte, error) {
			return enc.EncodeAll(b, nil), nil
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
}

// imageJDescription is the hyperstack header ImageJ expects in the first
// ImageDescription tag.
func imageJDescription(shape tensor.CanonicalShape) string {
	var sb strings.Builder
	sb.WriteString("ImageJ=1.11a\n")
	fmt.Fprintf(&sb, "images=%d\n", shape.Pages())
	if shape.C > 1 {
		fmt.Fprintf(&sb, "channels=%d\n", shape.C)
	}
	if shape.Z > 1 {
		fmt.Fprintf(&sb, "slices=%d\n", shape.Z)
	}
	if shape.T > 1 {
		fmt.Fprintf(&sb, "frames=%d\n", shape.T)
	}
	if shape.Pages() > 1 {
		sb.WriteString("hyperstack=true\n")
	}
	if shape.C > 1 {
		sb.WriteString("mode=grayscale\n")
	}
	sb.WriteString("loop=false\n")
	return sb.String()
}
