// Package tiff_writer lays out multi-page baseline TIFF files with tiff66.
package tiff_writer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/garyhouston/tiff66"

	"tiffstack/contracts"
)

var (
	ErrUnsupportedCodec   = errors.New("compression codec not supported by the encoder")
	ErrBigTIFFUnsupported = errors.New("BigTIFF is not supported by the encoder")
	ErrNoPages            = errors.New("no pages written")
)

const (
	photometricMinIsBlack  = 1
	planarContig           = 1
	resolutionUnitCM       = 3
	extraSampleUnspecified = 0

	dateTimeLayout = "2006:01:02 15:04:05"

	// ifdOverhead bounds the table and tag data of one page.
	ifdOverhead = 1024
)

// SampleFormat tag values.
const (
	SampleUint  uint16 = 1
	SampleInt   uint16 = 2
	SampleFloat uint16 = 3
)

// Page is one strip-encoded image plane. Description, Software and
// DateTime are written only on the first page.
type Page struct {
	Width         int
	Height        int
	Samples       int
	BitsPerSample int
	SampleFormat  uint16
	Compression   uint16
	Strip         []byte
	Resolution    *contracts.Resolution

	Description []byte
	Software    string
	DateTime    time.Time
}

type TIFFWriter struct {
	order contracts.ByteOrder
	cw    *countingWriter
	pages []Page
	size  int64
}

type countingWriter struct {
	w      io.Writer
	offset int64
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	if err == nil {
		cw.offset += int64(n)
	}
	return n, err
}

// stripData hands the strips of a page to tiff66, which places them and
// fills in the StripOffsets field.
type stripData struct {
	tiff66.SpaceRec
	strips []tiff66.ImageData
}

func (s stripData) GetImageData() []tiff66.ImageData {
	return s.strips
}

func NewTIFFWriter(dst io.Writer, order contracts.ByteOrder) *TIFFWriter {
	return &TIFFWriter{
		order: order,
		cw:    &countingWriter{w: dst},
		size:  tiff66.HeaderSize,
	}
}

// WritePage queues a page. Nothing is written before Finish.
func (tw *TIFFWriter) WritePage(p Page) error {
	if p.Width < 1 || p.Height < 1 || p.Samples < 1 {
		return fmt.Errorf("invalid page geometry %dx%dx%d", p.Width, p.Height, p.Samples)
	}
	if p.Width > math.MaxUint32 || p.Height > math.MaxUint32 || p.Samples > math.MaxUint16 {
		return fmt.Errorf("page geometry %dx%dx%d exceeds TIFF limits", p.Width, p.Height, p.Samples)
	}
	tw.size += int64(len(p.Strip)) + int64(len(p.Description)) + int64(len(p.Software)) + ifdOverhead + int64(4*p.Samples)
	if tw.size > math.MaxUint32 {
		return fmt.Errorf("%w: file would exceed 4 GiB", ErrBigTIFFUnsupported)
	}
	tw.pages = append(tw.pages, p)
	return nil
}

// Written returns the number of bytes written to the destination.
func (tw *TIFFWriter) Written() int64 {
	return tw.cw.offset
}

func (tw *TIFFWriter) Pages() int {
	return len(tw.pages)
}

// Finish lays out the header and the IFD chain in memory and writes the
// whole file with a single Write.
func (tw *TIFFWriter) Finish() error {
	if len(tw.pages) == 0 {
		return ErrNoPages
	}
	order := tw.order.Binary()

	var root, prev *tiff66.IFDNode
	for i, p := range tw.pages {
		node := &tiff66.IFDNode{
			Order:  order,
			Fields: tw.pageFields(p, i == 0),
			SpaceRec: stripData{
				SpaceRec: tiff66.NewSpaceRec(tiff66.TIFFSpace),
				strips: []tiff66.ImageData{{
					OffsetTag: tiff66.StripOffsets,
					SizeTag:   tiff66.StripByteCounts,
					Segments:  []tiff66.ImageSegment{p.Strip},
				}},
			},
		}
		if prev == nil {
			root = node
		} else {
			prev.Next = node
		}
		prev = node
	}
	root.Fix()

	buf := make([]byte, tiff66.HeaderSize+root.TreeSize())
	tiff66.PutHeader(buf, order, tiff66.HeaderSize)
	end, err := root.PutIFDTree(buf, tiff66.HeaderSize)
	if err != nil {
		return fmt.Errorf("error laying out IFDs: %w", err)
	}
	if _, err := tw.cw.Write(buf[:end]); err != nil {
		return fmt.Errorf("error writing TIFF data: %w", err)
	}
	return nil
}

func (tw *TIFFWriter) pageFields(p Page, first bool) []tiff66.Field {
	order := tw.order.Binary()
	samples := uint32(p.Samples)

	short := func(tag tiff66.Tag, vals ...uint16) tiff66.Field {
		f := tiff66.Field{Tag: tag, Type: tiff66.SHORT, Count: uint32(len(vals)), Data: make([]byte, 2*len(vals))}
		for i, v := range vals {
			f.PutShort(v, uint32(i), order)
		}
		return f
	}
	long := func(tag tiff66.Tag, v uint32) tiff66.Field {
		f := tiff66.Field{Tag: tag, Type: tiff66.LONG, Count: 1, Data: make([]byte, 4)}
		f.PutLong(v, 0, order)
		return f
	}
	repeat := func(v uint16, n uint32) []uint16 {
		vals := make([]uint16, n)
		for i := range vals {
			vals[i] = v
		}
		return vals
	}

	fields := []tiff66.Field{
		long(tiff66.NewSubfileType, 0),
		long(tiff66.ImageWidth, uint32(p.Width)),
		long(tiff66.ImageLength, uint32(p.Height)),
		short(tiff66.BitsPerSample, repeat(uint16(p.BitsPerSample), samples)...),
		short(tiff66.Compression, p.Compression),
		short(tiff66.PhotometricInterpretation, photometricMinIsBlack),
	}
	if first && len(p.Description) > 0 {
		fields = append(fields, asciiField(tiff66.ImageDescription, p.Description))
	}
	fields = append(fields,
		// StripOffsets are filled in when the strip is placed.
		tiff66.Field{Tag: tiff66.StripOffsets, Type: tiff66.LONG, Count: 1, Data: make([]byte, 4)},
		short(tiff66.SamplesPerPixel, uint16(p.Samples)),
		long(tiff66.RowsPerStrip, uint32(p.Height)),
		long(tiff66.StripByteCounts, uint32(len(p.Strip))),
	)
	if p.Resolution != nil {
		fields = append(fields,
			rationalField(tiff66.XResolution, p.Resolution.X, order),
			rationalField(tiff66.YResolution, p.Resolution.Y, order),
		)
	}
	fields = append(fields, short(tiff66.PlanarConfiguration, planarContig))
	if p.Resolution != nil {
		fields = append(fields, short(tiff66.ResolutionUnit, resolutionUnitCM))
	}
	if first && p.Software != "" {
		fields = append(fields, asciiField(tiff66.Software, []byte(p.Software)))
	}
	if first && !p.DateTime.IsZero() {
		fields = append(fields, asciiField(tiff66.DateTime, []byte(p.DateTime.Format(dateTimeLayout))))
	}
	if samples > 1 {
		fields = append(fields, short(tiff66.ExtraSamples, repeat(extraSampleUnspecified, samples-1)...))
	}
	fields = append(fields, short(tiff66.SampleFormat, repeat(p.SampleFormat, samples)...))
	return fields
}

func asciiField(tag tiff66.Tag, val []byte) tiff66.Field {
	f := tiff66.Field{Tag: tag, Type: tiff66.ASCII}
	f.PutASCII(string(val))
	f.Count = uint32(len(f.Data))
	return f
}

func rationalField(tag tiff66.Tag, v float64, order binary.ByteOrder) tiff66.Field {
	num, den := toRational(v)
	f := tiff66.Field{Tag: tag, Type: tiff66.RATIONAL, Count: 1, Data: make([]byte, 8)}
	f.PutRational(num, den, 0, order)
	return f
}

// toRational approximates v with the largest power-of-ten denominator
// that keeps the numerator in range.
func toRational(v float64) (uint32, uint32) {
	if !(v > 0) {
		return 0, 1
	}
	den := uint32(1)
	for den < 1_000_000 && v*float64(den)*10 <= math.MaxUint32 {
		den *= 10
	}
	return uint32(math.Round(v * float64(den))), den
}
