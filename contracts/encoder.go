package contracts

import (
	"fmt"
	"io"
	"time"

	"tiffstack/tensor"
)

// Resolution is the X/Y resolution in pixels per centimeter.
type Resolution struct {
	X, Y float64
}

// EncodeRequest is everything the byte encoder needs to write one image.
// Image is a six-axis TZCYXS tensor.
type EncodeRequest struct {
	Image       *tensor.Tensor
	Shape       tensor.CanonicalShape
	ByteOrder   ByteOrder
	BigTIFF     bool
	ImageJ      bool
	Compression Compression
	Description []byte
	Date        time.Time
	Resolution  *Resolution
	Software    string
}

// Encoder writes the TIFF bytes of a request to w.
type Encoder interface {
	Encode(w io.Writer, req EncodeRequest) error
}

// EncodeError wraps a failure reported by the Encoder.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
