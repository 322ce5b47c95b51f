// Package ome_xml builds the minimal OME-XML header stored in the
// ImageDescription tag of the first OME-TIFF page.
package ome_xml

import (
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"

	"tiffstack/contracts"
	"tiffstack/policy"
	"tiffstack/tensor"
)

const (
	Namespace      = "http://www.openmicroscopy.org/Schemas/OME/2016-06"
	SchemaLocation = Namespace + "/ome.xsd"
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"

	DimensionOrder = "XYCZT"
)

var omeTypes = map[tensor.DType]string{
	tensor.Bool:    "bool",
	tensor.Int8:    "int8",
	tensor.Int16:   "int16",
	tensor.Int32:   "int32",
	tensor.Uint8:   "uint8",
	tensor.Uint16:  "uint16",
	tensor.Uint32:  "uint32",
	tensor.Float32: "float",
	tensor.Float64: "double",
}

// PixelType returns the OME pixel type name of dt.
func PixelType(dt tensor.DType) (string, bool) {
	name, ok := omeTypes[dt]
	return name, ok
}

// Document is an OME-XML tree. It is not modified after Build.
type Document struct {
	doc *etree.Document
}

// Build creates the OME document for one image. cfg must come from
// policy.Resolve, which only lets OME pixel types through.
func Build(shape tensor.CanonicalShape, cfg *policy.Config) *Document {
	pixelType, ok := omeTypes[cfg.DType]
	if !ok {
		panic(fmt.Sprintf("ome_xml: no OME pixel type for %s", cfg.DType))
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateText("\n")

	ome := doc.CreateElement("OME")
	ome.CreateAttr("xmlns", Namespace)
	ome.CreateAttr("xmlns:xsi", xsiNamespace)
	ome.CreateAttr("xsi:schemaLocation", Namespace+" "+SchemaLocation)

	image := ome.CreateElement("Image")
	image.CreateAttr("ID", "Image:0")
	if cfg.ImageName != "" {
		image.CreateAttr("Name", cfg.ImageName)
	}

	pixels := image.CreateElement("Pixels")
	pixels.CreateAttr("ID", "Pixels:0")
	pixels.CreateAttr("Type", pixelType)
	pixels.CreateAttr("SizeX", strconv.Itoa(shape.X))
	pixels.CreateAttr("SizeY", strconv.Itoa(shape.Y))
	pixels.CreateAttr("SizeC", strconv.Itoa(shape.C))
	pixels.CreateAttr("SizeZ", strconv.Itoa(shape.Z))
	pixels.CreateAttr("SizeT", strconv.Itoa(shape.T))
	pixels.CreateAttr("DimensionOrder", DimensionOrder)
	pixels.CreateAttr("Interleaved", strconv.FormatBool(cfg.Interleaved))
	pixels.CreateAttr("BigEndian", strconv.FormatBool(cfg.ByteOrder == contracts.BigEndian))
	if cfg.PixelSize != nil {
		pixels.CreateAttr("PhysicalSizeX", formatSize(*cfg.PixelSize))
		pixels.CreateAttr("PhysicalSizeY", formatSize(*cfg.PixelSize))
	}
	if cfg.PixelDepth != nil {
		pixels.CreateAttr("PhysicalSizeZ", formatSize(*cfg.PixelDepth))
	}

	for c := 0; c < shape.C; c++ {
		channel := pixels.CreateElement("Channel")
		channel.CreateAttr("ID", fmt.Sprintf("Channel:0:%d", c))
		channel.CreateAttr("SamplesPerPixel", strconv.Itoa(shape.S))
		if c < len(cfg.ChannelNames) && cfg.ChannelNames[c] != "" {
			channel.CreateAttr("Name", cfg.ChannelNames[c])
		}
	}
	pixels.CreateElement("TiffData")

	return &Document{doc: doc}
}

// Bytes serializes the document as UTF-8 with an XML declaration.
func (d *Document) Bytes() ([]byte, error) {
	b, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("error serializing OME-XML: %w", err)
	}
	return b, nil
}

func (d *Document) String() string {
	b, err := d.Bytes()
	if err != nil {
		return ""
	}
	return string(b)
}

// formatSize writes the shortest decimal that round-trips, keeping a ".0"
// on integral values and switching to exponent notation outside [1e-4, 1e16).
func formatSize(v float64) string {
	abs := math.Abs(v)
	if abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) {
		s += ".0"
	}
	return s
}
