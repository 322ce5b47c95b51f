package utils

import (
	"fmt"
	"os"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

const (
	resolutionUnitNone = 1
	resolutionUnitCM   = 3

	micrometersPerInch = 25400.0
)

// GetTIFFDPI reads the X/Y resolution of the first IFD in dots per inch.
func GetTIFFDPI(filePath string) (float64, float64, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, 0, err
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return 0, 0, fmt.Errorf("EXIF not found: %v", err)
	}

	im := exifcommon.NewIfdMapping()
	ti := exif.NewTagIndex()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return 0, 0, err
	}

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return 0, 0, err
	}

	rational := func(name string) (float64, bool) {
		tag, err := index.RootIfd.FindTagWithName(name)
		if err != nil || len(tag) == 0 {
			return 0, false
		}
		val, err := tag[0].Value()
		if err != nil {
			return 0, false
		}
		rats, ok := val.([]exifcommon.Rational)
		if !ok || len(rats) == 0 || rats[0].Denominator == 0 {
			return 0, false
		}
		return float64(rats[0].Numerator) / float64(rats[0].Denominator), true
	}

	dpiX, okX := rational("XResolution")
	dpiY, okY := rational("YResolution")
	if !okX || !okY {
		return 0, 0, fmt.Errorf("no resolution in %s", filePath)
	}

	if tag, err := index.RootIfd.FindTagWithName("ResolutionUnit"); err == nil && len(tag) > 0 {
		if val, err := tag[0].Value(); err == nil {
			switch resolutionUnit(val) {
			case resolutionUnitCM:
				dpiX *= 2.54
				dpiY *= 2.54
			case resolutionUnitNone:
				return 0, 0, fmt.Errorf("resolution of %s has no unit", filePath)
			}
		}
	}

	return dpiX, dpiY, nil
}

func resolutionUnit(val interface{}) uint16 {
	switch u := val.(type) {
	case uint16:
		return u
	case []uint16:
		if len(u) > 0 {
			return u[0]
		}
	}
	return 0
}

// PixelSizeFromDPI converts dots per inch to the pixel size in micrometers.
func PixelSizeFromDPI(dpi float64) (float64, error) {
	if !(dpi > 0) {
		return 0, fmt.Errorf("invalid resolution %v dpi", dpi)
	}
	return micrometersPerInch / dpi, nil
}

// GetPixelSize returns the pixel size stored in a TIFF file, in micrometers.
func GetPixelSize(filePath string) (float64, error) {
	dpiX, _, err := GetTIFFDPI(filePath)
	if err != nil {
		return 0, err
	}
	return PixelSizeFromDPI(dpiX)
}
