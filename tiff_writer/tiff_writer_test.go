package tiff_writer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/garyhouston/tiff66"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/tiff"

	"tiffstack/contracts"
	"tiffstack/tensor"
)

func request(t *testing.T, img *tensor.Tensor) contracts.EncodeRequest {
	t.Helper()
	n, err := tensor.Normalize(img)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return contracts.EncodeRequest{
		Image:       n.Tensor,
		Shape:       n.Shape,
		ByteOrder:   contracts.LittleEndian,
		Compression: contracts.NoCompression(),
		Software:    "tiffstack",
		Date:        time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

func gray8(w, h int) *tensor.Tensor {
	img := tensor.New(tensor.Uint8, h, w)
	for i := range img.Data {
		img.Data[i] = byte(i * 7)
	}
	return img
}

func TestEncodeGray8(t *testing.T) {
	img := gray8(5, 3)
	req := request(t, img)
	req.Resolution = &contracts.Resolution{X: 20000, Y: 20000}

	var buf bytes.Buffer
	if err := NewEncoder().Encode(&buf, req); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := tiff.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gray, ok := decoded.(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray, got %T", decoded)
	}
	if gray.Bounds().Dx() != 5 || gray.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v", gray.Bounds())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			if got, want := gray.GrayAt(x, y).Y, img.Data[y*5+x]; got != want {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}

	info, err := ReadInfo(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}
	if info.Pages != 1 || info.Width != 5 || info.Height != 3 || info.Samples != 1 {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Software != "tiffstack" {
		t.Errorf("software = %q", info.Software)
	}
	if info.DateTime != "2024:05:06 07:08:09" {
		t.Errorf("date = %q", info.DateTime)
	}
	if info.XResolution != 20000 {
		t.Errorf("x resolution = %v", info.XResolution)
	}
	if info.ByteOrder != contracts.LittleEndian {
		t.Errorf("byte order = %s", info.ByteOrder)
	}
}

func TestEncodeGray16BigEndianPages(t *testing.T) {
	img := tensor.New(tensor.Uint16, 3, 2, 4)
	for i := 0; i < img.Len(); i++ {
		binary.LittleEndian.PutUint16(img.Data[i*2:], uint16(i*300))
	}
	req := request(t, img)
	req.ByteOrder = contracts.BigEndian

	var buf bytes.Buffer
	if err := NewEncoder().Encode(&buf, req); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("MM")) {
		t.Fatalf("expected big-endian header")
	}

	info, err := ReadInfo(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}
	if info.Pages != 3 {
		t.Errorf("pages = %d, want 3", info.Pages)
	}
	if info.BitsPerSample != 16 {
		t.Errorf("bits per sample = %d", info.BitsPerSample)
	}

	decoded, err := tiff.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gray, ok := decoded.(*image.Gray16)
	if !ok {
		t.Fatalf("expected *image.Gray16, got %T", decoded)
	}
	if got := gray.Gray16At(3, 1).Y; got != 7*300 {
		t.Errorf("pixel (3,1) = %d, want %d", got, 7*300)
	}
}

func TestEncodeAdobeDeflate(t *testing.T) {
	img := gray8(16, 16)
	req := request(t, img)
	req.Compression = contracts.Compression{Codec: contracts.CodecAdobeDeflate, Code: 8, Level: 6}

	var buf bytes.Buffer
	if err := NewEncoder().Encode(&buf, req); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := tiff.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded.(*image.Gray).Pix, img.Data) {
		t.Errorf("decompressed pixels differ")
	}
}

func TestEncodeZstd(t *testing.T) {
	img := gray8(8, 8)
	req := request(t, img)
	req.Compression = contracts.Compression{Codec: "zstd", Code: 50000, Level: 3}

	var buf bytes.Buffer
	if err := NewEncoder().Encode(&buf, req); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	valid, order, pos := tiff66.GetHeader(buf.Bytes())
	if !valid {
		t.Fatalf("invalid header")
	}
	root, err := tiff66.GetIFDTree(buf.Bytes(), order, pos, tiff66.TIFFSpace)
	if err != nil {
		t.Fatalf("GetIFDTree failed: %v", err)
	}
	data := root.GetImageData()
	if len(data) != 1 || len(data[0].Segments) != 1 {
		t.Fatalf("expected one strip, got %+v", data)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data[0].Segments[0], nil)
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	if !bytes.Equal(raw, img.Data) {
		t.Errorf("zstd strip differs")
	}
}

func TestEncodeErrors(t *testing.T) {
	t.Run("unsupported codec", func(t *testing.T) {
		req := request(t, gray8(2, 2))
		req.Compression = contracts.Compression{Codec: "lzw", Code: 5}
		var buf bytes.Buffer
		err := NewEncoder().Encode(&buf, req)
		if !errors.Is(err, ErrUnsupportedCodec) {
			t.Fatalf("expected ErrUnsupportedCodec, got %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("wrote %d bytes on failure", buf.Len())
		}
	})

	t.Run("bigtiff", func(t *testing.T) {
		req := request(t, gray8(2, 2))
		req.BigTIFF = true
		if err := NewEncoder().Encode(&bytes.Buffer{}, req); !errors.Is(err, ErrBigTIFFUnsupported) {
			t.Fatalf("expected ErrBigTIFFUnsupported, got %v", err)
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		req := request(t, gray8(2, 2))
		req.Shape.X = 3
		if err := NewEncoder().Encode(&bytes.Buffer{}, req); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestEncodeDescriptions(t *testing.T) {
	t.Run("utf-8 description kept on first page only", func(t *testing.T) {
		req := request(t, tensor.New(tensor.Uint8, 2, 2, 2))
		req.Description = []byte(`<?xml version="1.0" encoding="UTF-8"?><OME Name="µm"/>`)
		var buf bytes.Buffer
		if err := NewEncoder().Encode(&buf, req); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		info, err := ReadInfo(buf.Bytes())
		if err != nil {
			t.Fatalf("ReadInfo failed: %v", err)
		}
		if info.Description != string(req.Description) {
			t.Errorf("description = %q", info.Description)
		}
		if !info.IsOME() {
			t.Errorf("expected OME description")
		}
		if n := bytes.Count(buf.Bytes(), []byte("<OME")); n != 1 {
			t.Errorf("description written %d times", n)
		}
	})

	t.Run("imagej header", func(t *testing.T) {
		req := request(t, tensor.New(tensor.Uint8, 2, 3, 2, 2))
		req.ImageJ = true
		req.ByteOrder = contracts.BigEndian
		var buf bytes.Buffer
		if err := NewEncoder().Encode(&buf, req); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		info, err := ReadInfo(buf.Bytes())
		if err != nil {
			t.Fatalf("ReadInfo failed: %v", err)
		}
		if !info.IsImageJ() {
			t.Fatalf("expected ImageJ description, got %q", info.Description)
		}
		for _, want := range []string{"images=6", "channels=3", "slices=2", "hyperstack=true", "mode=grayscale", "loop=false"} {
			if !strings.Contains(info.Description, want) {
				t.Errorf("missing %q in %q", want, info.Description)
			}
		}
		if strings.Contains(info.Description, "frames=") {
			t.Errorf("unexpected frames in %q", info.Description)
		}
	})
}

func TestEncodeSampleLayout(t *testing.T) {
	img := tensor.New(tensor.Float32, 1, 1, 2, 2, 2, 3)
	var buf bytes.Buffer
	if err := NewEncoder().Encode(&buf, request(t, img)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	valid, order, pos := tiff66.GetHeader(buf.Bytes())
	if !valid {
		t.Fatalf("invalid header")
	}
	root, err := tiff66.GetIFDTree(buf.Bytes(), order, pos, tiff66.TIFFSpace)
	if err != nil {
		t.Fatalf("GetIFDTree failed: %v", err)
	}
	fields := root.FindFields([]tiff66.Tag{tiff66.ExtraSamples, tiff66.SampleFormat})
	if len(fields) != 2 {
		t.Fatalf("expected ExtraSamples and SampleFormat, got %d fields", len(fields))
	}
	if fields[0].Count != 2 {
		t.Errorf("extra samples = %d, want 2", fields[0].Count)
	}
	if got := fields[1].Short(0, order); got != SampleFloat {
		t.Errorf("sample format = %d, want %d", got, SampleFloat)
	}
	if root.Next == nil || root.Next.Next != nil {
		t.Errorf("expected two pages")
	}
}

func TestFinishWithoutPages(t *testing.T) {
	tw := NewTIFFWriter(&bytes.Buffer{}, contracts.LittleEndian)
	if err := tw.Finish(); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func TestToRational(t *testing.T) {
	num, den := toRational(20000)
	if float64(num)/float64(den) != 20000 {
		t.Errorf("20000 -> %d/%d", num, den)
	}
	num, den = toRational(10000 / 0.65)
	if got := float64(num) / float64(den); got < 15384.6 || got > 15384.7 {
		t.Errorf("15384.6 -> %d/%d", num, den)
	}
}
