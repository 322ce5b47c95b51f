package tensor

import (
	"errors"
	"fmt"
)

var ErrUnsupportedRank = errors.New("unsupported rank")

type UnsupportedRankError struct {
	Rank int
}

func (e *UnsupportedRankError) Error() string {
	return fmt.Sprintf("unsupported tensor rank %d: expected 2 to 6 axes", e.Rank)
}

func (e *UnsupportedRankError) Unwrap() error {
	return ErrUnsupportedRank
}

// CanonicalShape is the TZCYXS extent of a normalized tensor.
type CanonicalShape struct {
	T, Z, C, Y, X, S int
}

func (s CanonicalShape) Dims() [6]int {
	return [6]int{s.T, s.Z, s.C, s.Y, s.X, s.S}
}

func (s CanonicalShape) Len() int {
	return s.T * s.Z * s.C * s.Y * s.X * s.S
}

// Pages is the number of Y,X,S planes.
func (s CanonicalShape) Pages() int {
	return s.T * s.Z * s.C
}

func (s CanonicalShape) String() string {
	return fmt.Sprintf("T=%d Z=%d C=%d Y=%d X=%d S=%d", s.T, s.Z, s.C, s.Y, s.X, s.S)
}

// Normalized is a tensor reshaped into TZCYXS order.
type Normalized struct {
	Tensor *Tensor
	Shape  CanonicalShape

	// ChannelAxis indexes the original shape; -1 when there is no channel axis.
	ChannelAxis   int
	ChannelLabels []string
	Name          string
}

// axis layout per input rank: leading axes missing from the input are 1.
var channelAxisByRank = map[int]int{
	2: -1,
	3: 0,
	4: 1,
	5: 2,
	6: 2,
}

// Normalize interprets the tensor axes by rank (YX, CYX, ZCYX, TZCYX, TZCYXS)
// and returns a six-axis view over the same data.
func Normalize(t *Tensor) (Normalized, error) {
	rank := t.Rank()
	channelAxis, ok := channelAxisByRank[rank]
	if !ok {
		return Normalized{}, &UnsupportedRankError{Rank: rank}
	}
	if err := t.Validate(); err != nil {
		return Normalized{}, err
	}

	shape := CanonicalShape{T: 1, Z: 1, C: 1, S: 1}
	d := t.Shape
	switch rank {
	case 2:
		shape.Y, shape.X = d[0], d[1]
	case 3:
		shape.C, shape.Y, shape.X = d[0], d[1], d[2]
	case 4:
		shape.Z, shape.C, shape.Y, shape.X = d[0], d[1], d[2], d[3]
	case 5:
		shape.T, shape.Z, shape.C, shape.Y, shape.X = d[0], d[1], d[2], d[3], d[4]
	case 6:
		shape.T, shape.Z, shape.C, shape.Y, shape.X, shape.S = d[0], d[1], d[2], d[3], d[4], d[5]
	}

	dims := shape.Dims()
	view, err := t.Reshape(dims[:]...)
	if err != nil {
		return Normalized{}, err
	}

	n := Normalized{
		Tensor:      view,
		Shape:       shape,
		ChannelAxis: channelAxis,
		Name:        t.Name,
	}
	if channelAxis >= 0 && channelAxis < len(t.AxisLabels) && t.AxisLabels[channelAxis] != nil {
		n.ChannelLabels = append([]string(nil), t.AxisLabels[channelAxis]...)
	}
	return n, nil
}

// HasChannelAxis reports whether the input carried a channel axis.
func (n Normalized) HasChannelAxis() bool {
	return n.ChannelAxis >= 0
}
