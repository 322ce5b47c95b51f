package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffstack/contracts"
	"tiffstack/tensor"
	"tiffstack/tiff_writer"
)

func writePlane(t *testing.T, path string) {
	t.Helper()
	n, err := tensor.Normalize(tensor.New(tensor.Uint8, 4, 4))
	require.NoError(t, err)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff_writer.NewEncoder().Encode(f, contracts.EncodeRequest{
		Image:       n.Tensor,
		Shape:       n.Shape,
		ByteOrder:   contracts.LittleEndian,
		Compression: contracts.NoCompression(),
	}))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := NewCLI()
	cli.SetOut(&out)
	cli.SetErr(&out)
	cli.SetArgs(args)
	err := cli.Execute()
	return out.String(), err
}

func TestConvertAndInspect(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	folder := filepath.Join(in, "sample")
	require.NoError(t, os.Mkdir(folder, 0o755))
	writePlane(t, filepath.Join(folder, "DAPI.tif"))
	writePlane(t, filepath.Join(folder, "GFP.tif"))

	_, err := run(t, "convert", "-i", in, "-o", out, "--pixel-size", "0.5", "--log-level", "error")
	require.NoError(t, err)

	output, err := run(t, "inspect", filepath.Join(out, "sample.ome.tiff"))
	require.NoError(t, err)
	assert.Contains(t, output, "pages:        2")
	assert.Contains(t, output, "profile:      ome-tiff")
	assert.Contains(t, output, "image:        sample")
	assert.Contains(t, output, "channels:     DAPI, GFP")
	assert.Contains(t, output, "pixel size:   0.5 um")
}

func TestConvertImageJProfile(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writePlane(t, filepath.Join(in, "a.tif"))

	_, err := run(t, "convert", "-i", in, "-o", out, "--profile", "imagej", "--log-level", "error")
	require.NoError(t, err)

	output, err := run(t, "inspect", filepath.Join(out, filepath.Base(in)+".tiff"))
	require.NoError(t, err)
	assert.Contains(t, output, "byte order:   big-endian")
	assert.Contains(t, output, "profile:      imagej")
}

func TestConvertRejectsBadFlags(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()

	_, err := run(t, "convert", "-i", in)
	require.Error(t, err)

	_, err = run(t, "convert", "-i", in, "-o", out, "--profile", "png")
	require.Error(t, err)

	_, err = run(t, "convert", "-i", in, "-o", in)
	require.Error(t, err)
}

func TestInspectMissingFile(t *testing.T) {
	_, err := run(t, "inspect", filepath.Join(t.TempDir(), "missing.tif"))
	require.Error(t, err)
}
