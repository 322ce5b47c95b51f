package tensor

import (
	"fmt"
	"strings"
)

// DType is the element type of an image tensor.
type DType int

const (
	Invalid DType = iota
	Bool
	Int8
	Int16
	Int32
	Uint8
	Uint16
	Uint32
	Float32
	Float64
)

// Size returns the byte size of one element.
func (dt DType) Size() int {
	switch dt {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

func (dt DType) String() string {
	switch dt {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("dtype(%d)", int(dt))
	}
}

func (dt DType) Valid() bool {
	return dt >= Bool && dt <= Float64
}

func (dt DType) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

func (dt DType) IsSigned() bool {
	return dt == Int8 || dt == Int16 || dt == Int32
}

// ParseDType accepts the names returned by String.
func ParseDType(s string) (DType, error) {
	for dt := Bool; dt <= Float64; dt++ {
		if strings.EqualFold(s, dt.String()) {
			return dt, nil
		}
	}
	return Invalid, fmt.Errorf("unknown dtype %q", s)
}
