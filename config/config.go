// Package config loads the optional YAML settings file of the CLI and merges
// it with the command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"tiffstack/contracts"
	"tiffstack/policy"
)

// Flag names understood by ApplyFlags.
const (
	FlagProfile          = "profile"
	FlagCompression      = "compression"
	FlagCompressionLevel = "compression-level"
	FlagPixelSize        = "pixel-size"
	FlagPixelDepth       = "pixel-depth"
	FlagByteOrder        = "byte-order"
	FlagBigTIFF          = "big-tiff"
	FlagSoftware         = "software"
	FlagDate             = "date"
	FlagWorkers          = "workers"
	FlagLogLevel         = "log-level"
	FlagLogFormat        = "log-format"
)

type Compression struct {
	Type  string `yaml:"type"`
	Level int    `yaml:"level"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config mirrors the settings file. Pointer fields are optional.
type Config struct {
	Profile          string      `yaml:"profile"`
	Compression      Compression `yaml:"compression"`
	PixelSize        *float64    `yaml:"pixel_size"`
	PixelDepth       *float64    `yaml:"pixel_depth"`
	BigEndian        *bool       `yaml:"big_endian"`
	BigTIFF          *bool       `yaml:"big_tiff"`
	BigTIFFThreshold *int64      `yaml:"big_tiff_threshold"`
	Interleaved      *bool       `yaml:"interleaved"`
	ImageName        string      `yaml:"image_name"`
	ChannelNames     []string    `yaml:"channel_names"`
	Description      *string     `yaml:"description"`
	Software         string      `yaml:"software"`
	Date             string      `yaml:"date"`
	Workers          int         `yaml:"workers"`
	Log              Log         `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Profile: contracts.OmeTiff.String(),
		Log: Log{
			Level:  "INFO",
			Format: "CONSOLE",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyFlags overrides the file values with the flags for which set
// reports true.
func (c *Config) ApplyFlags(f contracts.InputFlags, set func(name string) bool) error {
	if set(FlagProfile) {
		c.Profile = f.Profile
	}
	if set(FlagCompression) {
		c.Compression.Type = f.Compression
	}
	if set(FlagCompressionLevel) {
		c.Compression.Level = f.CompressionLevel
	}
	if set(FlagPixelSize) {
		c.PixelSize = policy.Ptr(f.PixelSize)
	}
	if set(FlagPixelDepth) {
		c.PixelDepth = policy.Ptr(f.PixelDepth)
	}
	if set(FlagByteOrder) {
		order, err := contracts.ParseByteOrder(f.ByteOrder)
		if err != nil {
			return err
		}
		c.BigEndian = policy.Ptr(order == contracts.BigEndian)
	}
	if set(FlagBigTIFF) {
		if strings.EqualFold(f.BigTIFF, "auto") {
			c.BigTIFF = nil
		} else {
			big, err := strconv.ParseBool(f.BigTIFF)
			if err != nil {
				return fmt.Errorf("invalid --%s value %q: expected auto, true or false", FlagBigTIFF, f.BigTIFF)
			}
			c.BigTIFF = &big
		}
	}
	if set(FlagSoftware) {
		c.Software = f.Software
	}
	if set(FlagDate) {
		c.Date = f.Date
	}
	if set(FlagWorkers) {
		c.Workers = f.Workers
	}
	if set(FlagLogLevel) {
		c.Log.Level = f.LogLevel
	}
	if set(FlagLogFormat) {
		c.Log.Format = f.LogFormat
	}
	return nil
}

func (c *Config) ProfileValue() (contracts.Profile, error) {
	return contracts.ParseProfile(c.Profile)
}

// Params converts the settings into write parameters.
func (c *Config) Params() (policy.Params, error) {
	p := policy.Params{
		Compression: policy.CompressionParam{
			Codec: c.Compression.Type,
			Level: c.Compression.Level,
		},
		PixelSize:        c.PixelSize,
		PixelDepth:       c.PixelDepth,
		BigTIFF:          c.BigTIFF,
		BigTIFFThreshold: c.BigTIFFThreshold,
		Interleaved:      c.Interleaved,
		Description:      c.Description,
		Software:         c.Software,
	}
	if c.ImageName != "" {
		p.ImageName = policy.Value(c.ImageName)
	}
	if c.ChannelNames != nil {
		p.ChannelNames = policy.Value(c.ChannelNames)
	}
	if c.BigEndian != nil {
		order := contracts.LittleEndian
		if *c.BigEndian {
			order = contracts.BigEndian
		}
		p.ByteOrder = &order
	}
	if c.Date != "" {
		date, err := policy.ParseDate(c.Date)
		if err != nil {
			return policy.Params{}, err
		}
		p.Date = &date
	}
	return p, nil
}
