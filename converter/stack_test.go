package converter

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffstack/contracts"
	"tiffstack/files_manager"
	"tiffstack/tensor"
	"tiffstack/tiff_writer"
)

func writePlane(t *testing.T, path string, img *tensor.Tensor, res *contracts.Resolution) {
	t.Helper()
	n, err := tensor.Normalize(img)
	require.NoError(t, err)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff_writer.NewEncoder().Encode(f, contracts.EncodeRequest{
		Image:       n.Tensor,
		Shape:       n.Shape,
		ByteOrder:   contracts.LittleEndian,
		Compression: contracts.NoCompression(),
		Resolution:  res,
	}))
}

func filledPlane(dtype tensor.DType, seed byte, shape ...int) *tensor.Tensor {
	img := tensor.New(dtype, shape...)
	for i := range img.Data {
		img.Data[i] = seed + byte(i)
	}
	return img
}

func TestLoadStackGray16(t *testing.T) {
	dir := t.TempDir()
	planes := []*tensor.Tensor{
		filledPlane(tensor.Uint16, 1, 3, 5),
		filledPlane(tensor.Uint16, 100, 3, 5),
	}
	writePlane(t, filepath.Join(dir, "a_DAPI.tif"), planes[0], nil)
	writePlane(t, filepath.Join(dir, "b_GFP.tif"), planes[1], nil)

	paths, _, err := files_manager.GetTIFFPaths(dir)
	require.NoError(t, err)
	folder := contracts.TIFFfolder{TiffFilesPaths: paths, Name: "sample", Path: dir}

	stack, err := LoadStack(folder, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Uint16, stack.DType)
	assert.Equal(t, []int{2, 3, 5}, stack.Shape)
	assert.Equal(t, "sample", stack.Name)
	assert.Equal(t, []string{"a_DAPI", "b_GFP"}, stack.AxisLabels[0])

	plane := len(planes[0].Data)
	assert.Equal(t, planes[0].Data, stack.Data[:plane])
	assert.Equal(t, planes[1].Data, stack.Data[plane:])
	assert.Equal(t, binary.LittleEndian.Uint16(planes[1].Data), binary.LittleEndian.Uint16(stack.Data[plane:]))
}

func TestLoadStackGray8(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"c0.tiff", "c1.tiff", "c2.tiff"} {
		writePlane(t, filepath.Join(dir, name), filledPlane(tensor.Uint8, byte(i*10), 4, 4), nil)
	}
	paths, _, err := files_manager.GetTIFFPaths(dir)
	require.NoError(t, err)

	stack, err := LoadStack(contracts.TIFFfolder{TiffFilesPaths: paths, Name: "gray"}, 8)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 4}, stack.Shape)
	assert.Equal(t, byte(20), stack.Data[32])
}

func TestLoadStackMismatch(t *testing.T) {
	dir := t.TempDir()
	writePlane(t, filepath.Join(dir, "a.tif"), filledPlane(tensor.Uint8, 0, 4, 4), nil)
	writePlane(t, filepath.Join(dir, "b.tif"), filledPlane(tensor.Uint8, 0, 4, 5), nil)
	paths, _, err := files_manager.GetTIFFPaths(dir)
	require.NoError(t, err)

	_, err = LoadStack(contracts.TIFFfolder{TiffFilesPaths: paths, Name: "bad"}, 1)
	require.ErrorIs(t, err, ErrMismatchedPlanes)

	writePlane(t, filepath.Join(dir, "b.tif"), filledPlane(tensor.Uint16, 0, 4, 4), nil)
	_, err = LoadStack(contracts.TIFFfolder{TiffFilesPaths: paths, Name: "bad"}, 1)
	require.ErrorIs(t, err, ErrMismatchedPlanes)
}

func TestLoadStackEmpty(t *testing.T) {
	_, err := LoadStack(contracts.TIFFfolder{Path: t.TempDir()}, 1)
	require.Error(t, err)
}
