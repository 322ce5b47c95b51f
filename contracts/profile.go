package contracts

import (
	"fmt"
	"strings"
)

// Profile selects which TIFF flavour is written and which options are legal.
type Profile int

const (
	Plain Profile = iota
	ImageJ
	OmeTiff
)

func (p Profile) String() string {
	switch p {
	case Plain:
		return "tiff"
	case ImageJ:
		return "imagej"
	case OmeTiff:
		return "ome-tiff"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tiff", "plain":
		return Plain, nil
	case "imagej":
		return ImageJ, nil
	case "ome", "ome-tiff", "ometiff":
		return OmeTiff, nil
	}
	return Plain, fmt.Errorf("unknown profile %q (want tiff, imagej or ome-tiff)", s)
}
