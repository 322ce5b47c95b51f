package contracts

type TIFFfolder struct {
	TiffFilesPaths []string
	Name           string
	Path           string
	TiffFilesSize  int64
}

// ConversionRequest describes one batch run over input folders.
type ConversionRequest struct {
	Folders   []TIFFfolder
	OutputDir string
	Profile   Profile
	Workers   int
}

// ConvertResult is the outcome for one folder.
type ConvertResult struct {
	Folder      string
	OutputPath  string
	Pages       int
	Diagnostics []Diagnostic
	Err         error
}
