// Package tensor holds the in-memory image tensor handed to the TIFF writer
// and the normalization of its shape into TZCYXS order.
package tensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrInvalidTensor = errors.New("invalid tensor")

// Tensor is a row-major N-dimensional array. Data holds the samples packed
// in little-endian byte order.
type Tensor struct {
	DType DType
	Shape []int
	Data  []byte

	// Name and AxisLabels are optional labels of a wrapper structure
	// (an image name and per-axis coordinate labels).
	Name       string
	AxisLabels [][]string
}

// New allocates a zeroed tensor.
func New(dtype DType, shape ...int) *Tensor {
	t := &Tensor{DType: dtype, Shape: append([]int(nil), shape...)}
	t.Data = make([]byte, t.Len()*dtype.Size())
	return t
}

// FromBytes wraps little-endian sample data without copying it.
func FromBytes(dtype DType, data []byte, shape ...int) (*Tensor, error) {
	t := &Tensor{DType: dtype, Shape: append([]int(nil), shape...), Data: data}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// ByteSize returns the size of the sample data in bytes.
func (t *Tensor) ByteSize() int64 {
	return int64(t.Len()) * int64(t.DType.Size())
}

func (t *Tensor) Rank() int {
	return len(t.Shape)
}

// Validate checks dtype, dimensions and the data length.
func (t *Tensor) Validate() error {
	if !t.DType.Valid() {
		return fmt.Errorf("%w: unsupported dtype %s", ErrInvalidTensor, t.DType)
	}
	for i, d := range t.Shape {
		if d < 1 {
			return fmt.Errorf("%w: axis %d has size %d", ErrInvalidTensor, i, d)
		}
	}
	if int64(len(t.Data)) != t.ByteSize() {
		return fmt.Errorf("%w: %d data bytes for shape %v of %s (want %d)",
			ErrInvalidTensor, len(t.Data), t.Shape, t.DType, t.ByteSize())
	}
	return nil
}

// Reshape returns a view with a new shape over the same data.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != t.Len() {
		return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrInvalidTensor, t.Shape, shape)
	}
	return &Tensor{
		DType:      t.DType,
		Shape:      append([]int(nil), shape...),
		Data:       t.Data,
		Name:       t.Name,
		AxisLabels: t.AxisLabels,
	}, nil
}

// Cast converts every element to dtype, like numpy's astype: floats are
// truncated toward zero and integers wrap around.
func (t *Tensor) Cast(dtype DType) (*Tensor, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: unsupported dtype %s", ErrInvalidTensor, dtype)
	}
	if dtype == t.DType {
		return t, nil
	}
	out := &Tensor{
		DType:      dtype,
		Shape:      append([]int(nil), t.Shape...),
		Data:       make([]byte, t.Len()*dtype.Size()),
		Name:       t.Name,
		AxisLabels: t.AxisLabels,
	}
	src, dst := t.DType.Size(), dtype.Size()
	for i := 0; i < t.Len(); i++ {
		in := t.Data[i*src : (i+1)*src]
		o := out.Data[i*dst : (i+1)*dst]
		if t.DType.IsFloat() && dtype.IsFloat() {
			putFloat(o, dtype, readFloat(in, t.DType))
			continue
		}
		var v int64
		if t.DType.IsFloat() {
			f := readFloat(in, t.DType)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				f = 0
			}
			v = int64(f)
		} else {
			v = readInt(in, t.DType)
		}
		if dtype.IsFloat() {
			putFloat(o, dtype, float64(v))
		} else {
			putInt(o, dtype, v)
		}
	}
	return out, nil
}

func readInt(b []byte, dt DType) int64 {
	switch dt {
	case Bool:
		if b[0] != 0 {
			return 1
		}
		return 0
	case Int8:
		return int64(int8(b[0]))
	case Uint8:
		return int64(b[0])
	case Int16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case Uint16:
		return int64(binary.LittleEndian.Uint16(b))
	case Int32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return int64(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func putInt(b []byte, dt DType, v int64) {
	switch dt {
	case Bool:
		if v != 0 {
			b[0] = 1
		} else {
			b[0] = 0
		}
	case Int8, Uint8:
		b[0] = uint8(v)
	case Int16, Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int32, Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

func readFloat(b []byte, dt DType) float64 {
	if dt == Float32 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func putFloat(b []byte, dt DType, v float64) {
	if dt == Float32 {
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		return
	}
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}
