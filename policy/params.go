package policy

import (
	"time"

	"tiffstack/contracts"
	"tiffstack/tensor"
)

// DefaultBigTIFFThreshold is 4 GiB minus 32 MiB reserved for metadata.
const DefaultBigTIFFThreshold int64 = 1<<32 - 1<<25

const DefaultSoftware = "tiffstack"

// CompressionParam is the requested codec name and level. An empty codec
// with a positive level means adobe_deflate at that level.
type CompressionParam struct {
	Codec string
	Level int
}

// Params are the raw, optional write parameters. Nil pointers are unset.
type Params struct {
	ImageName        Choice[string]
	ChannelNames     Choice[[]string]
	Date             *time.Time
	ByteOrder        *contracts.ByteOrder
	Compression      CompressionParam
	PixelSize        *float64
	PixelDepth       *float64
	BigTIFF          *bool
	BigTIFFThreshold *int64
	Interleaved      *bool
	Description      *string
	Software         string

	// FileName is the base name of the output file, if any.
	FileName string
}

// Environment carries the process-wide defaults used by Resolve.
type Environment struct {
	HostByteOrder contracts.ByteOrder
	Now           func() time.Time
}

func DefaultEnvironment() Environment {
	return Environment{
		HostByteOrder: contracts.HostByteOrder(),
		Now:           time.Now,
	}
}

// Config is the fully resolved write configuration. Every field already
// satisfies the profile's constraints.
type Config struct {
	Profile contracts.Profile
	Shape   tensor.CanonicalShape
	DType   tensor.DType

	// ImageName is empty when no name is written.
	ImageName string
	// ChannelNames is nil or has exactly Shape.C entries.
	ChannelNames []string

	Date        time.Time
	ByteOrder   contracts.ByteOrder
	Compression contracts.Compression
	PixelSize   *float64
	Resolution  *contracts.Resolution
	PixelDepth  *float64
	BigTIFF     bool
	Interleaved bool
	Description string
	Software    string

	ImageJ bool
	OmeXML bool
}

// Ptr returns a pointer to v, for filling optional Params fields.
func Ptr[T any](v T) *T {
	return &v
}
