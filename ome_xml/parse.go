package ome_xml

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// Summary is what Parse reads back from an OME-XML header.
type Summary struct {
	ImageName    string
	PixelType    string
	SizeX, SizeY int
	SizeC, SizeZ int
	SizeT        int
	Interleaved  bool
	BigEndian    bool
	ChannelNames []string
	Samples      int
}

func Parse(data []byte) (*Summary, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("error parsing OME-XML: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "OME" {
		return nil, fmt.Errorf("not an OME-XML document")
	}
	image := root.SelectElement("Image")
	if image == nil {
		return nil, fmt.Errorf("OME-XML has no Image element")
	}
	pixels := image.SelectElement("Pixels")
	if pixels == nil {
		return nil, fmt.Errorf("OME-XML image has no Pixels element")
	}

	s := &Summary{
		ImageName:   image.SelectAttrValue("Name", ""),
		PixelType:   pixels.SelectAttrValue("Type", ""),
		Interleaved: pixels.SelectAttrValue("Interleaved", "") == "true",
		BigEndian:   pixels.SelectAttrValue("BigEndian", "") == "true",
	}
	for _, f := range []struct {
		attr string
		dst  *int
	}{
		{"SizeX", &s.SizeX},
		{"SizeY", &s.SizeY},
		{"SizeC", &s.SizeC},
		{"SizeZ", &s.SizeZ},
		{"SizeT", &s.SizeT},
	} {
		v, err := strconv.Atoi(pixels.SelectAttrValue(f.attr, ""))
		if err != nil {
			return nil, fmt.Errorf("invalid Pixels %s: %w", f.attr, err)
		}
		*f.dst = v
	}
	for _, ch := range pixels.SelectElements("Channel") {
		s.ChannelNames = append(s.ChannelNames, ch.SelectAttrValue("Name", ""))
		if n, err := strconv.Atoi(ch.SelectAttrValue("SamplesPerPixel", "")); err == nil {
			s.Samples = n
		}
	}
	return s, nil
}
