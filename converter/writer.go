// Package converter sequences normalization, policy resolution, OME-XML
// generation and the encoder call, and stacks folders of TIFF planes.
package converter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tiffstack/contracts"
	"tiffstack/ome_xml"
	"tiffstack/policy"
	"tiffstack/tensor"
	"tiffstack/tiff_writer"
)

// Options holds the collaborators of a write. Zero values select the
// tiff66 encoder, no diagnostics and the process environment.
type Options struct {
	Encoder contracts.Encoder
	Sink    contracts.DiagnosticsSink
	Env     *policy.Environment
}

func (o Options) encoder() contracts.Encoder {
	if o.Encoder == nil {
		return tiff_writer.NewEncoder()
	}
	return o.Encoder
}

func (o Options) sink() contracts.DiagnosticsSink {
	if o.Sink == nil {
		return contracts.Discard
	}
	return o.Sink
}

func (o Options) env() policy.Environment {
	if o.Env == nil {
		return policy.DefaultEnvironment()
	}
	return *o.Env
}

// Prepare validates everything and builds the encoder request without
// writing anything.
func Prepare(img *tensor.Tensor, profile contracts.Profile, params policy.Params, opts Options) (contracts.EncodeRequest, *policy.Config, error) {
	norm, err := tensor.Normalize(img)
	if err != nil {
		return contracts.EncodeRequest{}, nil, err
	}

	cfg, diags, err := policy.Resolve(profile, norm, params, opts.env())
	if err != nil {
		return contracts.EncodeRequest{}, nil, err
	}
	sink := opts.sink()
	for _, d := range diags {
		sink.Emit(d)
	}

	data := norm.Tensor
	if cfg.DType != data.DType {
		data, err = data.Cast(cfg.DType)
		if err != nil {
			return contracts.EncodeRequest{}, nil, err
		}
	}

	var description []byte
	switch {
	case cfg.OmeXML:
		description, err = ome_xml.Build(cfg.Shape, cfg).Bytes()
		if err != nil {
			return contracts.EncodeRequest{}, nil, err
		}
	case cfg.Description != "":
		description = []byte(cfg.Description)
	}

	return contracts.EncodeRequest{
		Image:       data,
		Shape:       cfg.Shape,
		ByteOrder:   cfg.ByteOrder,
		BigTIFF:     cfg.BigTIFF,
		ImageJ:      cfg.ImageJ,
		Compression: cfg.Compression,
		Description: description,
		Date:        cfg.Date,
		Resolution:  cfg.Resolution,
		Software:    cfg.Software,
	}, cfg, nil
}

// WriteStack writes img to w. The encoder is called once, after all
// parameters have been validated.
func WriteStack(w io.Writer, img *tensor.Tensor, profile contracts.Profile, params policy.Params, opts Options) (*policy.Config, error) {
	req, cfg, err := Prepare(img, profile, params, opts)
	if err != nil {
		return nil, err
	}
	if err := opts.encoder().Encode(w, req); err != nil {
		return nil, &contracts.EncodeError{Err: err}
	}
	return cfg, nil
}

// WriteFile writes img to path. The file is created only after validation
// and removed again if encoding fails.
func WriteFile(path string, img *tensor.Tensor, profile contracts.Profile, params policy.Params, opts Options) (*policy.Config, error) {
	sink := opts.sink()
	for _, d := range suffixDiagnostics(path, profile) {
		sink.Emit(d)
	}
	if params.FileName == "" {
		params.FileName = filepath.Base(path)
	}

	req, cfg, err := Prepare(img, profile, params, opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating %s: %w", path, err)
	}
	if err := opts.encoder().Encode(f, req); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &contracts.EncodeError{Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("error closing %s: %w", path, err)
	}
	return cfg, nil
}

func suffixDiagnostics(path string, profile contracts.Profile) []contracts.Diagnostic {
	name := strings.ToLower(filepath.Base(path))
	var diags []contracts.Diagnostic
	if !strings.HasSuffix(name, ".tiff") && !strings.HasSuffix(name, ".tif") {
		diags = append(diags, contracts.Diagnostic{
			Field:  "file_name",
			Reason: fmt.Sprintf("the file name does not end with .tiff: %s", path),
		})
	}
	isOME := strings.HasSuffix(name, ".ome.tiff") || strings.HasSuffix(name, ".ome.tif")
	if profile == contracts.OmeTiff && !isOME {
		diags = append(diags, contracts.Diagnostic{
			Field:  "file_name",
			Reason: fmt.Sprintf("the OME-TIFF file name does not end with .ome.tiff: %s", path),
		})
	}
	if profile != contracts.OmeTiff && isOME {
		diags = append(diags, contracts.Diagnostic{
			Field:  "file_name",
			Reason: fmt.Sprintf("the non-OME-TIFF file name ends with .ome.tiff: %s", path),
		})
	}
	return diags
}
