package converter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"golang.org/x/image/tiff"

	"tiffstack/contracts"
	"tiffstack/files_manager"
	"tiffstack/tensor"
)

var ErrMismatchedPlanes = errors.New("planes differ in size or color model")

type planeKind int

const (
	gray8 planeKind = iota
	gray16
	rgb8
	rgba8
)

type planeLayout struct {
	kind          planeKind
	width, height int
}

func (l planeLayout) samples() int {
	switch l.kind {
	case rgb8:
		return 3
	case rgba8:
		return 4
	}
	return 1
}

func (l planeLayout) dtype() tensor.DType {
	if l.kind == gray16 {
		return tensor.Uint16
	}
	return tensor.Uint8
}

func (l planeLayout) planeBytes() int {
	return l.width * l.height * l.samples() * l.dtype().Size()
}

type loadTask struct {
	filePath   string
	pageNumber int
}

type loadResult struct {
	pageIndex int
	err       error
}

func getTIFFLayout(filePath string) (planeLayout, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return planeLayout{}, fmt.Errorf("error opening TIFF file: %w", err)
	}
	defer f.Close()
	cfg, err := tiff.DecodeConfig(f)
	if err != nil {
		return planeLayout{}, fmt.Errorf("error reading TIFF header of %s: %w", filePath, err)
	}
	l := planeLayout{width: cfg.Width, height: cfg.Height}
	switch cfg.ColorModel {
	case color.GrayModel:
		l.kind = gray8
	case color.Gray16Model:
		l.kind = gray16
	case color.RGBAModel:
		l.kind = rgb8
	case color.NRGBAModel:
		l.kind = rgba8
	default:
		return planeLayout{}, fmt.Errorf("unsupported color model in %s", filePath)
	}
	return l, nil
}

func getImageFromTiff(filePath string) (image.Image, error) {
	tiffFile, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening TIFF file: %w", err)
	}
	defer tiffFile.Close()
	img, err := tiff.Decode(tiffFile)
	if err != nil {
		return nil, fmt.Errorf("error decoding TIFF file %s: %w", filePath, err)
	}
	return img, nil
}

// putPlane copies img into dst as little-endian samples.
func putPlane(dst []byte, img image.Image, l planeLayout) {
	b := img.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			switch l.kind {
			case gray8:
				dst[i] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
				i++
			case gray16:
				v := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
				binary.LittleEndian.PutUint16(dst[i:], v)
				i += 2
			case rgb8:
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				dst[i], dst[i+1], dst[i+2] = c.R, c.G, c.B
				i += 3
			case rgba8:
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				dst[i], dst[i+1], dst[i+2], dst[i+3] = c.R, c.G, c.B, c.A
				i += 4
			}
		}
	}
}

func loadWorker(taskChan <-chan loadTask, resultChan chan<- loadResult, data []byte, l planeLayout, wg *sync.WaitGroup) {
	defer wg.Done()

	size := l.planeBytes()
	for task := range taskChan {
		img, err := getImageFromTiff(task.filePath)
		if err == nil && (img.Bounds().Dx() != l.width || img.Bounds().Dy() != l.height) {
			err = fmt.Errorf("%w: %s", ErrMismatchedPlanes, task.filePath)
		}
		if err == nil {
			putPlane(data[task.pageNumber*size:(task.pageNumber+1)*size], img, l)
		}
		resultChan <- loadResult{pageIndex: task.pageNumber, err: err}
	}
}

// LoadStack decodes the TIFF planes of a folder into one tensor. Grayscale
// planes give a CYX tensor; RGB planes give TZCYXS with S=3, or S=4 for
// unassociated alpha. Channels are labeled by file name and the tensor is
// named after the folder.
func LoadStack(folder contracts.TIFFfolder, workers int) (*tensor.Tensor, error) {
	if len(folder.TiffFilesPaths) == 0 {
		return nil, fmt.Errorf("no TIFF files found in %s", folder.Path)
	}

	layout, err := getTIFFLayout(folder.TiffFilesPaths[0])
	if err != nil {
		return nil, err
	}
	for _, path := range folder.TiffFilesPaths[1:] {
		l, err := getTIFFLayout(path)
		if err != nil {
			return nil, err
		}
		if l != layout {
			return nil, fmt.Errorf("%w: %s", ErrMismatchedPlanes, path)
		}
	}

	channels := len(folder.TiffFilesPaths)
	var t *tensor.Tensor
	labels := make([]string, channels)
	for i, path := range folder.TiffFilesPaths {
		labels[i] = files_manager.ChannelName(path)
	}
	if layout.samples() > 1 {
		t = tensor.New(layout.dtype(), 1, 1, channels, layout.height, layout.width, layout.samples())
		t.AxisLabels = [][]string{nil, nil, labels, nil, nil, nil}
	} else {
		t = tensor.New(layout.dtype(), channels, layout.height, layout.width)
		t.AxisLabels = [][]string{labels, nil, nil}
	}
	t.Name = folder.Name

	numWorkers := max(min(workers, channels), 1)
	taskChan := make(chan loadTask)
	resultChan := make(chan loadResult, channels)

	wg := &sync.WaitGroup{}
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go loadWorker(taskChan, resultChan, t.Data, layout, wg)
	}

	for i, file := range folder.TiffFilesPaths {
		taskChan <- loadTask{filePath: file, pageNumber: i}
	}
	close(taskChan)

	wg.Wait()
	close(resultChan)

	// report the failure of the lowest page
	var firstErr error
	failed := channels
	for result := range resultChan {
		if result.err != nil && result.pageIndex < failed {
			failed, firstErr = result.pageIndex, result.err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return t, nil
}
