package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tiffstack/config"
	"tiffstack/contracts"
	"tiffstack/converter"
	"tiffstack/files_manager"
	"tiffstack/logger"
)

type InputFlags = contracts.InputFlags

func newConvertCmd() *cobra.Command {
	var args InputFlags

	convertCmd := &cobra.Command{
		Use:   "convert --input DIR --output DIR",
		Short: "Convert every folder of TIFF planes below the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return convertHandler(cmd, args)
		},
	}

	f := convertCmd.Flags()
	f.StringVarP(&args.InputRootDir, "input", "i", "", "Input directory containing TIFF folders")
	f.StringVarP(&args.OutputDir, "output", "o", "", "Output directory for stacked files")
	f.StringVarP(&args.ConfigPath, "config", "c", "", "YAML settings file")
	f.StringVar(&args.Profile, config.FlagProfile, "ome-tiff", "Output profile: tiff, imagej or ome-tiff")
	f.StringVar(&args.Compression, config.FlagCompression, "", "Compression codec (none, adobe_deflate, zstd, ...)")
	f.IntVar(&args.CompressionLevel, config.FlagCompressionLevel, 0, "Compression level 0-9")
	f.Float64Var(&args.PixelSize, config.FlagPixelSize, 0, "Pixel size in micrometers (default: read from the first plane)")
	f.Float64Var(&args.PixelDepth, config.FlagPixelDepth, 0, "Z spacing in micrometers (OME-TIFF only)")
	f.StringVar(&args.ByteOrder, config.FlagByteOrder, "", "Byte order: little or big (default: host)")
	f.StringVar(&args.BigTIFF, config.FlagBigTIFF, "auto", "BigTIFF: auto, true or false")
	f.StringVar(&args.Software, config.FlagSoftware, "", "Software tag value")
	f.StringVar(&args.Date, config.FlagDate, "", "DateTime tag value (YYYY:MM:DD HH:MM:SS or RFC 3339)")
	f.IntVar(&args.Workers, config.FlagWorkers, 0, "Folders converted in parallel (default: CPUs - 1)")
	f.StringVar(&args.LogLevel, config.FlagLogLevel, "INFO", "Log level: DEBUG, INFO, WARN or ERROR")
	f.StringVar(&args.LogFormat, config.FlagLogFormat, "CONSOLE", "Log format: CONSOLE or JSON")
	convertCmd.MarkFlagRequired("input")
	convertCmd.MarkFlagRequired("output")

	return convertCmd
}

func convertHandler(cmd *cobra.Command, args InputFlags) error {
	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(args, cmd.Flags().Changed); err != nil {
		return err
	}
	profile, err := cfg.ProfileValue()
	if err != nil {
		return err
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, logger.LogFormat(cfg.Log.Format)).Named(logger.ComponentCLI).Sugar()
	defer log.Sync()

	if err := files_manager.CheckProvidedDirs(args.InputRootDir, args.OutputDir); err != nil {
		return err
	}
	folders, err := files_manager.GetTIFFFolders(args.InputRootDir)
	if err != nil {
		return fmt.Errorf("error getting TIFF folders: %w", err)
	}
	if len(folders) == 0 {
		log.Infow("no TIFF files found in the input directory", "input", args.InputRootDir)
		return nil
	}
	log.Infow("starting conversion", "folders", len(folders), "profile", profile.String())

	startTime := time.Now()
	req := contracts.ConversionRequest{
		Folders:   folders,
		OutputDir: args.OutputDir,
		Profile:   profile,
		Workers:   cfg.Workers,
	}
	opts := converter.Options{
		Sink: logger.NewDiagnosticsSink(log.Desugar().Named(logger.ComponentPolicy).Sugar()),
	}
	results, err := converter.ConvertFolders(cmd.Context(), req, params, opts, log.Desugar().Named(logger.ComponentConverter).Sugar())
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	log.Infow("conversion finished", "converted", len(results)-failed, "failed", failed, "took", time.Since(startTime))
	if failed > 0 {
		return fmt.Errorf("%d of %d folders failed", failed, len(results))
	}
	return nil
}
