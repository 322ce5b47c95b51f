package policy

import (
	"tiffstack/contracts"
	"tiffstack/tensor"
)

type access int

const (
	allowed access = iota
	ignored        // dropped with a diagnostic when set
)

// rules is one row of the profile policy table.
type rules struct {
	imageName    access
	channelNames access
	pixelDepth   access
	description  access

	// Image and channel names default to auto-detection.
	detectNames bool

	forceBigEndian     bool
	forceNoCompression bool
	forceNoBigTIFF     bool

	// dtypes lists the allowed element types; nil allows any.
	dtypes []tensor.DType
	// rgbDType is the element type 3 and 4 sample images are cast to.
	rgbDType tensor.DType
	// Interleaving is forced for 3 and 4 sample images.
	forceRGBInterleaved bool

	imageJ bool
	omeXML bool
}

var omeDTypes = []tensor.DType{
	tensor.Bool,
	tensor.Int8, tensor.Int16, tensor.Int32,
	tensor.Uint8, tensor.Uint16, tensor.Uint32,
	tensor.Float32, tensor.Float64,
}

var table = map[contracts.Profile]rules{
	contracts.Plain: {
		imageName:    ignored,
		channelNames: ignored,
		pixelDepth:   ignored,
		description:  allowed,
	},
	contracts.ImageJ: {
		imageName:          ignored,
		channelNames:       ignored,
		pixelDepth:         ignored,
		description:        ignored,
		forceBigEndian:     true,
		forceNoCompression: true,
		forceNoBigTIFF:     true,
		dtypes:             []tensor.DType{tensor.Uint8, tensor.Uint16, tensor.Float32},
		rgbDType:           tensor.Uint8,
		imageJ:             true,
	},
	contracts.OmeTiff: {
		imageName:           allowed,
		channelNames:        allowed,
		pixelDepth:          allowed,
		description:         ignored,
		detectNames:         true,
		dtypes:              omeDTypes,
		forceRGBInterleaved: true,
		omeXML:              true,
	},
}

func (r rules) allowsDType(dt tensor.DType) bool {
	if r.dtypes == nil {
		return true
	}
	for _, d := range r.dtypes {
		if d == dt {
			return true
		}
	}
	return false
}

func isRGB(shape tensor.CanonicalShape) bool {
	return shape.S == 3 || shape.S == 4
}
