package contracts

// InputFlags holds the command line input of the convert command.
type InputFlags struct {
	InputRootDir     string
	OutputDir        string
	ConfigPath       string
	Profile          string
	Compression      string
	CompressionLevel int
	PixelSize        float64
	PixelDepth       float64
	ByteOrder        string
	BigTIFF          string
	Software         string
	Date             string
	Workers          int
	LogLevel         string
	LogFormat        string
}
