// Package policy reconciles the optional write parameters with a TIFF
// profile into one consistent Config.
package policy

import (
	"fmt"
	"time"
	"unicode"

	"tiffstack/contracts"
	"tiffstack/tensor"
)

type resolver struct {
	profile contracts.Profile
	rules   rules
	norm    tensor.Normalized
	params  Params
	env     Environment

	cfg   *Config
	diags []contracts.Diagnostic
}

// Resolve validates params against the profile and the normalized image.
// Options the profile cannot carry are dropped or overridden and reported
// as diagnostics; structurally invalid values fail with an error.
func Resolve(profile contracts.Profile, norm tensor.Normalized, params Params, env Environment) (*Config, []contracts.Diagnostic, error) {
	r, ok := table[profile]
	if !ok {
		return nil, nil, invalid("profile", profile, "unknown profile")
	}
	if norm.Tensor == nil {
		return nil, nil, invalid("image", nil, "image is not normalized")
	}
	res := &resolver{
		profile: profile,
		rules:   r,
		norm:    norm,
		params:  params,
		env:     env,
		cfg: &Config{
			Profile: profile,
			Shape:   norm.Shape,
			DType:   norm.Tensor.DType,
			ImageJ:  r.imageJ,
			OmeXML:  r.omeXML,
		},
	}

	steps := []func() error{
		res.imageName,
		res.date,
		res.byteOrder,
		res.compression,
		res.resolution,
		res.pixelDepth,
		res.elementType,
		res.interleaved,
		res.channelNames,
		res.bigTIFF,
		res.description,
		res.software,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, nil, err
		}
	}
	return res.cfg, res.diags, nil
}

func (r *resolver) downgrade(field, format string, args ...any) {
	r.diags = append(r.diags, contracts.Diagnostic{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	})
}

func (r *resolver) imageName() error {
	choice := r.params.ImageName
	if choice.Kind() == Unset && r.rules.detectNames && (r.norm.Name != "" || r.params.FileName != "") {
		choice = Auto[string]()
	}
	if name, ok := choice.Get(); ok && name == "" {
		return invalid("image name", `""`, "image name is empty")
	}
	if r.rules.imageName == ignored {
		if choice.IsSet() {
			r.downgrade("image_name", "the %s profile does not support image names, ignoring image name", r.profile)
		}
		return nil
	}

	switch choice.Kind() {
	case Explicit:
		r.cfg.ImageName, _ = choice.Get()
	case AutoDetect:
		switch {
		case r.norm.Name != "":
			r.cfg.ImageName = r.norm.Name
		case r.params.FileName != "":
			r.cfg.ImageName = r.params.FileName
		default:
			return ErrImageNameUndeterminable
		}
	}
	return nil
}

func (r *resolver) date() error {
	switch {
	case r.params.Date != nil:
		r.cfg.Date = *r.params.Date
	case r.env.Now != nil:
		r.cfg.Date = r.env.Now()
	default:
		r.cfg.Date = time.Now()
	}
	return nil
}

func (r *resolver) byteOrder() error {
	order := r.env.HostByteOrder
	if r.rules.forceBigEndian {
		order = contracts.BigEndian
	}
	if r.params.ByteOrder != nil {
		order = *r.params.ByteOrder
		if r.rules.forceBigEndian && order != contracts.BigEndian {
			r.downgrade("byte_order", "the %s profile does not support %s byte order, continuing with big-endian", r.profile, order)
			order = contracts.BigEndian
		}
	}
	r.cfg.ByteOrder = order
	return nil
}

func (r *resolver) compression() error {
	req := r.params.Compression
	c := contracts.NoCompression()
	if req.Codec != "" {
		name, code, err := contracts.LookupCodec(req.Codec)
		if err != nil {
			return err
		}
		c.Codec, c.Code = name, code
	}
	if req.Level < 0 || req.Level > 9 {
		return invalid("compression level", req.Level, "level must be between 0 and 9")
	}
	c.Level = req.Level
	if req.Codec == "" && req.Level > 0 {
		c.Codec, c.Code = contracts.CodecAdobeDeflate, contracts.Codecs[contracts.CodecAdobeDeflate]
	}

	if r.rules.forceNoCompression && (!c.IsNone() || c.Level != 0) {
		r.downgrade("compression", "the %s profile does not support compression, ignoring compression", r.profile)
		c = contracts.NoCompression()
	}
	r.cfg.Compression = c
	return nil
}

func (r *resolver) resolution() error {
	if r.params.PixelSize == nil {
		return nil
	}
	size := *r.params.PixelSize
	if !(size > 0) {
		return invalid("pixel size", size, "pixel size must be larger than zero")
	}
	perCM := 1e4 / size
	r.cfg.PixelSize = &size
	r.cfg.Resolution = &contracts.Resolution{X: perCM, Y: perCM}
	return nil
}

func (r *resolver) pixelDepth() error {
	if r.params.PixelDepth == nil {
		return nil
	}
	if r.rules.pixelDepth == ignored {
		r.downgrade("pixel_depth", "pixel depth is supported for OME-TIFF only, ignoring pixel depth")
		return nil
	}
	depth := *r.params.PixelDepth
	if !(depth > 0) {
		return invalid("pixel depth", depth, "pixel depth must be larger than zero")
	}
	r.cfg.PixelDepth = &depth
	return nil
}

func (r *resolver) elementType() error {
	dt := r.cfg.DType
	if r.rules.rgbDType.Valid() && isRGB(r.cfg.Shape) && dt != r.rules.rgbDType {
		r.downgrade("dtype", "the %s profile does not support %s for %d-sample images, casting to %s",
			r.profile, dt, r.cfg.Shape.S, r.rules.rgbDType)
		dt = r.rules.rgbDType
	}
	if !r.rules.allowsDType(dt) {
		return invalid("dtype", dt, "not supported by the %s profile", r.profile)
	}
	r.cfg.DType = dt
	return nil
}

func (r *resolver) interleaved() error {
	interleaved := true
	if r.params.Interleaved != nil {
		interleaved = *r.params.Interleaved
	}
	if r.rules.forceRGBInterleaved && isRGB(r.cfg.Shape) && !interleaved {
		r.downgrade("interleaved", "%d-sample images must be saved as interleaved, ignoring interleaved parameter", r.cfg.Shape.S)
		interleaved = true
	}
	r.cfg.Interleaved = interleaved
	return nil
}

func (r *resolver) channelNames() error {
	choice := r.params.ChannelNames
	if choice.Kind() == Unset && r.rules.detectNames && r.norm.ChannelLabels != nil {
		choice = Auto[[]string]()
	}

	var names []string
	switch choice.Kind() {
	case Explicit:
		names, _ = choice.Get()
		if names == nil {
			names = []string{}
		}
	case AutoDetect:
		if !r.norm.HasChannelAxis() {
			return invalid("channel names", nil, "cannot detect channel names of an image without a channel axis")
		}
		if r.norm.ChannelLabels == nil {
			return invalid("channel names", nil, "cannot detect channel names of an image without channel labels")
		}
		names = r.norm.ChannelLabels
	}
	if names == nil {
		return nil
	}
	if len(names) != r.cfg.Shape.C {
		return invalid("channel names", len(names), "expected %d channel names", r.cfg.Shape.C)
	}
	if r.rules.channelNames == ignored {
		r.downgrade("channel_names", "channel names are supported for OME-TIFF only, ignoring channel names")
		return nil
	}
	r.cfg.ChannelNames = append([]string(nil), names...)
	return nil
}

func (r *resolver) bigTIFF() error {
	threshold := DefaultBigTIFFThreshold
	if r.params.BigTIFFThreshold != nil {
		threshold = *r.params.BigTIFFThreshold
	}
	if threshold < 0 {
		return invalid("BigTIFF threshold", threshold, "threshold is negative")
	}
	var big bool
	if r.params.BigTIFF != nil {
		big = *r.params.BigTIFF
	} else {
		size := int64(r.cfg.Shape.Len()) * int64(r.cfg.DType.Size())
		big = size > threshold
	}
	if big && r.rules.forceNoBigTIFF {
		r.downgrade("big_tiff", "BigTIFF is not supported by the %s profile, disabling BigTIFF", r.profile)
		big = false
	}
	r.cfg.BigTIFF = big
	return nil
}

func (r *resolver) description() error {
	if r.params.Description == nil {
		return nil
	}
	if r.rules.description == ignored {
		r.downgrade("description", "custom descriptions are not supported by the %s profile, ignoring description", r.profile)
		return nil
	}
	r.cfg.Description = *r.params.Description
	return nil
}

func (r *resolver) software() error {
	software := r.params.Software
	if software == "" {
		software = DefaultSoftware
	}
	for _, c := range software {
		if c > unicode.MaxASCII {
			return invalid("software", software, "software must be 7-bit ASCII")
		}
	}
	r.cfg.Software = software
	return nil
}
