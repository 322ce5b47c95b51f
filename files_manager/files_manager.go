package files_manager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tiffstack/contracts"
)

type TIFFfolder = contracts.TIFFfolder

func CheckProvidedDirs(inputRootDir string, outputDir string) error {
	if inputRootDir == "" || outputDir == "" {
		return fmt.Errorf("input and output directories required")
	}
	if stat, err := os.Stat(inputRootDir); err != nil || !stat.IsDir() {
		return fmt.Errorf("input directory does not exist or is not a directory")
	}
	if stat, err := os.Stat(outputDir); err != nil || !stat.IsDir() {
		return fmt.Errorf("output directory does not exist or is not a directory")
	}

	in, err := filepath.Abs(inputRootDir)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return err
	}
	if in == out {
		return fmt.Errorf("input and output directories must be different")
	}
	if isSubDir(in, out) || isSubDir(out, in) {
		return fmt.Errorf("input and output directories must not be subdirectories of each other")
	}
	return nil
}

func isSubDir(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func IsTIFF(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".tiff" || ext == ".tif"
}

// GetTIFFPaths lists the TIFF files of dir in name order.
func GetTIFFPaths(dir string) ([]string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}
	tiffFiles := make([]string, 0, len(entries))
	var size int64 = 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "._") {
			continue
		}
		if IsTIFF(entry.Name()) {
			tiffFiles = append(tiffFiles, filepath.Join(dir, entry.Name()))
			if info, err := entry.Info(); err == nil {
				size += info.Size()
			}
		}
	}
	sort.Strings(tiffFiles)
	return tiffFiles, size, nil
}

// GetTIFFFolders returns the sub-folders of rootFolder holding TIFF files.
// A root holding TIFF files itself is returned as a single folder.
func GetTIFFFolders(rootFolder string) ([]TIFFfolder, error) {
	subDirs, err := os.ReadDir(rootFolder)
	if err != nil {
		return nil, err
	}

	tiffFolders := make([]TIFFfolder, 0, len(subDirs))
	for _, entry := range subDirs {
		if !entry.IsDir() {
			continue
		}
		subDirPath := filepath.Join(rootFolder, entry.Name())
		tiffFiles, size, _ := GetTIFFPaths(subDirPath)
		if len(tiffFiles) == 0 {
			continue
		}
		tiffFolders = append(tiffFolders, TIFFfolder{
			TiffFilesPaths: tiffFiles,
			Name:           entry.Name(),
			Path:           subDirPath,
			TiffFilesSize:  size,
		})
	}
	if len(tiffFolders) > 0 {
		return tiffFolders, nil
	}

	tiffFiles, size, err := GetTIFFPaths(rootFolder)
	if err != nil || len(tiffFiles) == 0 {
		return tiffFolders, err
	}
	return []TIFFfolder{{
		TiffFilesPaths: tiffFiles,
		Name:           filepath.Base(filepath.Clean(rootFolder)),
		Path:           rootFolder,
		TiffFilesSize:  size,
	}}, nil
}

// OutputPath is the stack file written for a folder name.
func OutputPath(outputDir string, name string, profile contracts.Profile) string {
	ext := ".tiff"
	if profile == contracts.OmeTiff {
		ext = ".ome.tiff"
	}
	return filepath.Join(outputDir, name+ext)
}

// ChannelName is the file name of a plane without its extension.
func ChannelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
