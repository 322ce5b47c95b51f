package tiff_writer

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/garyhouston/tiff66"

	"tiffstack/contracts"
)

// Info is what ReadInfo reports about a TIFF file.
type Info struct {
	ByteOrder     contracts.ByteOrder
	Pages         int
	Width         int
	Height        int
	Samples       int
	BitsPerSample int
	Compression   uint16
	Description   string
	Software      string
	DateTime      string
	XResolution   float64
}

func (i *Info) IsImageJ() bool {
	return strings.HasPrefix(i.Description, "ImageJ=")
}

func (i *Info) IsOME() bool {
	return strings.Contains(i.Description, "<OME")
}

// ReadInfo walks the IFD chain of a classic TIFF file.
func ReadInfo(buf []byte) (*Info, error) {
	valid, order, pos := tiff66.GetHeader(buf)
	if !valid {
		return nil, fmt.Errorf("not a classic TIFF file")
	}
	root, err := tiff66.GetIFDTree(buf, order, pos, tiff66.TIFFSpace)
	if err != nil {
		return nil, fmt.Errorf("error reading IFDs: %w", err)
	}

	info := &Info{ByteOrder: contracts.LittleEndian}
	if order == binary.BigEndian {
		info.ByteOrder = contracts.BigEndian
	}
	for node := root; node != nil; node = node.Next {
		info.Pages++
	}

	get := func(tag tiff66.Tag) *tiff66.Field {
		fields := root.FindFields([]tiff66.Tag{tag})
		if len(fields) == 0 {
			return nil
		}
		return fields[0]
	}
	integer := func(tag tiff66.Tag) int {
		if f := get(tag); f != nil && f.Count > 0 {
			return int(f.AnyInteger(0, order))
		}
		return 0
	}
	ascii := func(tag tiff66.Tag) string {
		if f := get(tag); f != nil {
			return f.ASCII()
		}
		return ""
	}

	info.Width = integer(tiff66.ImageWidth)
	info.Height = integer(tiff66.ImageLength)
	info.Samples = integer(tiff66.SamplesPerPixel)
	info.BitsPerSample = integer(tiff66.BitsPerSample)
	info.Compression = uint16(integer(tiff66.Compression))
	info.Description = ascii(tiff66.ImageDescription)
	info.Software = ascii(tiff66.Software)
	info.DateTime = ascii(tiff66.DateTime)
	if f := get(tiff66.XResolution); f != nil && f.Type == tiff66.RATIONAL {
		num, den := f.Rational(0, order)
		if den != 0 {
			info.XResolution = float64(num) / float64(den)
		}
	}
	return info, nil
}
