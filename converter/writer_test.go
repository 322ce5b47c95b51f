package converter

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffstack/contracts"
	"tiffstack/ome_xml"
	"tiffstack/policy"
	"tiffstack/tensor"
	"tiffstack/tiff_writer"
)

var testEnv = policy.Environment{
	HostByteOrder: contracts.LittleEndian,
	Now:           func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) },
}

type failingEncoder struct{}

func (failingEncoder) Encode(w io.Writer, req contracts.EncodeRequest) error {
	w.Write([]byte("II*\x00"))
	return errors.New("disk full")
}

func labeledStack() *tensor.Tensor {
	img := tensor.New(tensor.Uint16, 2, 4, 4)
	for i := range img.Data {
		img.Data[i] = byte(i)
	}
	img.Name = "stack"
	img.AxisLabels = [][]string{{"DAPI", "GFP"}, nil, nil}
	return img
}

func TestWriteStackOME(t *testing.T) {
	collector := &contracts.Collector{}
	var buf bytes.Buffer
	cfg, err := WriteStack(&buf, labeledStack(), contracts.OmeTiff, policy.Params{}, Options{Sink: collector, Env: &testEnv})
	require.NoError(t, err)
	assert.Empty(t, collector.Diagnostics())
	assert.Equal(t, "stack", cfg.ImageName)

	info, err := tiff_writer.ReadInfo(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, info.Pages)
	assert.Equal(t, 16, info.BitsPerSample)
	require.True(t, info.IsOME())

	summary, err := ome_xml.Parse([]byte(info.Description))
	require.NoError(t, err)
	assert.Equal(t, "stack", summary.ImageName)
	assert.Equal(t, "uint16", summary.PixelType)
	assert.Equal(t, []string{"DAPI", "GFP"}, summary.ChannelNames)
	assert.Equal(t, 2, summary.SizeC)
}

func TestWriteStackImageJ(t *testing.T) {
	img := tensor.New(tensor.Uint16, 1, 1, 2, 3, 3, 3)
	collector := &contracts.Collector{}
	params := policy.Params{Compression: policy.CompressionParam{Codec: "zstd"}}

	var buf bytes.Buffer
	cfg, err := WriteStack(&buf, img, contracts.ImageJ, params, Options{Sink: collector, Env: &testEnv})
	require.NoError(t, err)
	assert.Equal(t, []string{"compression", "dtype"}, collector.Fields())
	assert.Equal(t, tensor.Uint8, cfg.DType)
	assert.Equal(t, contracts.BigEndian, cfg.ByteOrder)

	info, err := tiff_writer.ReadInfo(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, info.IsImageJ())
	assert.Equal(t, contracts.BigEndian, info.ByteOrder)
	assert.Equal(t, 3, info.Samples)
	assert.Equal(t, 8, info.BitsPerSample)
	assert.Equal(t, 2, info.Pages)
}

func TestWriteStackRejectsBeforeWriting(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteStack(&buf, tensor.New(tensor.Float64, 4, 4), contracts.ImageJ, policy.Params{}, Options{Env: &testEnv})
	require.ErrorIs(t, err, policy.ErrInvalidParameter)
	assert.Zero(t, buf.Len())

	_, err = WriteStack(&buf, tensor.New(tensor.Uint8, 1, 1, 1, 1, 1, 1, 1), contracts.Plain, policy.Params{}, Options{Env: &testEnv})
	require.ErrorIs(t, err, tensor.ErrUnsupportedRank)
	assert.Zero(t, buf.Len())
}

func TestWriteStackEncodeError(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteStack(&buf, tensor.New(tensor.Uint8, 4, 4), contracts.Plain, policy.Params{}, Options{Encoder: failingEncoder{}, Env: &testEnv})
	var encErr *contracts.EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.EqualError(t, encErr.Err, "disk full")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("image name falls back to the file name", func(t *testing.T) {
		path := filepath.Join(dir, "plain.ome.tiff")
		_, err := WriteFile(path, tensor.New(tensor.Uint8, 4, 4), contracts.OmeTiff, policy.Params{}, Options{Env: &testEnv})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		info, err := tiff_writer.ReadInfo(data)
		require.NoError(t, err)
		summary, err := ome_xml.Parse([]byte(info.Description))
		require.NoError(t, err)
		assert.Equal(t, "plain.ome.tiff", summary.ImageName)
	})

	t.Run("suffix diagnostics", func(t *testing.T) {
		collector := &contracts.Collector{}
		_, err := WriteFile(filepath.Join(dir, "stack.tif"), labeledStack(), contracts.OmeTiff, policy.Params{}, Options{Sink: collector, Env: &testEnv})
		require.NoError(t, err)
		assert.Equal(t, []string{"file_name"}, collector.Fields())

		collector = &contracts.Collector{}
		_, err = WriteFile(filepath.Join(dir, "stack.ome.tiff"), labeledStack(), contracts.Plain, policy.Params{}, Options{Sink: collector, Env: &testEnv})
		require.NoError(t, err)
		assert.Equal(t, []string{"file_name"}, collector.Fields())

		collector = &contracts.Collector{}
		_, err = WriteFile(filepath.Join(dir, "stack.raw"), labeledStack(), contracts.Plain, policy.Params{}, Options{Sink: collector, Env: &testEnv})
		require.NoError(t, err)
		assert.Equal(t, []string{"file_name"}, collector.Fields())
	})

	t.Run("invalid parameters create no file", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.tiff")
		_, err := WriteFile(path, tensor.New(tensor.Uint8, 4, 4), contracts.Plain, policy.Params{PixelSize: policy.Ptr(-1.0)}, Options{Env: &testEnv})
		require.ErrorIs(t, err, policy.ErrInvalidParameter)
		assert.NoFileExists(t, path)
	})

	t.Run("encode failure removes the file", func(t *testing.T) {
		path := filepath.Join(dir, "failed.tiff")
		_, err := WriteFile(path, tensor.New(tensor.Uint8, 4, 4), contracts.Plain, policy.Params{}, Options{Encoder: failingEncoder{}, Env: &testEnv})
		var encErr *contracts.EncodeError
		require.ErrorAs(t, err, &encErr)
		assert.NoFileExists(t, path)
	})
}
