package contracts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownCompressionCodec = errors.New("unknown compression codec")

// Codecs maps codec names to TIFF Compression tag values.
var Codecs = map[string]uint16{
	"none":          1,
	"ccittrle":      2,
	"ccitt_t4":      3,
	"ccitt_t6":      4,
	"lzw":           5,
	"ojpeg":         6,
	"jpeg":          7,
	"adobe_deflate": 8,
	"jbig":          34661,
	"packbits":      32773,
	"deflate":       32946,
	"lzma":          34925,
	"jpeg2000":      34712,
	"png":           34933,
	"jpegxr":        34934,
	"zstd":          50000,
	"webp":          50001,
	"jpegxl":        50002,
}

const (
	CodecNone         = "none"
	CodecAdobeDeflate = "adobe_deflate"
)

type UnknownCompressionCodecError struct {
	Codec string
}

func (e *UnknownCompressionCodecError) Error() string {
	return fmt.Sprintf("unknown compression codec %q (known: %s)", e.Codec, strings.Join(CodecNames(), ", "))
}

func (e *UnknownCompressionCodecError) Unwrap() error {
	return ErrUnknownCompressionCodec
}

// LookupCodec normalizes a codec name and returns its TIFF tag value.
func LookupCodec(name string) (string, uint16, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	code, ok := Codecs[key]
	if !ok {
		return "", 0, &UnknownCompressionCodecError{Codec: name}
	}
	return key, code, nil
}

func CodecNames() []string {
	names := make([]string, 0, len(Codecs))
	for name := range Codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compression is a resolved codec and level (0-9).
type Compression struct {
	Codec string
	Code  uint16
	Level int
}

func NoCompression() Compression {
	return Compression{Codec: CodecNone, Code: Codecs[CodecNone]}
}

func (c Compression) IsNone() bool {
	return c.Codec == "" || c.Codec == CodecNone
}
