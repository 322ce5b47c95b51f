package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tiffstack/ome_xml"
	"tiffstack/tiff_writer"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the layout and metadata of a TIFF file",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectHandler,
	}
}

func inspectHandler(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	info, err := tiff_writer.ReadInfo(data)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "byte order:   %s\n", info.ByteOrder)
	fmt.Fprintf(out, "pages:        %d\n", info.Pages)
	fmt.Fprintf(out, "page size:    %dx%d, %d x %d bit\n", info.Width, info.Height, info.Samples, info.BitsPerSample)
	fmt.Fprintf(out, "compression:  %d\n", info.Compression)
	if info.XResolution > 0 {
		fmt.Fprintf(out, "pixel size:   %g um\n", 1e4/info.XResolution)
	}
	if info.Software != "" {
		fmt.Fprintf(out, "software:     %s\n", info.Software)
	}
	if info.DateTime != "" {
		fmt.Fprintf(out, "date:         %s\n", info.DateTime)
	}

	switch {
	case info.IsOME():
		summary, err := ome_xml.Parse([]byte(info.Description))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "profile:      ome-tiff\n")
		fmt.Fprintf(out, "image:        %s\n", summary.ImageName)
		fmt.Fprintf(out, "pixels:       %s T=%d Z=%d C=%d Y=%d X=%d S=%d\n",
			summary.PixelType, summary.SizeT, summary.SizeZ, summary.SizeC, summary.SizeY, summary.SizeX, summary.Samples)
		if len(summary.ChannelNames) > 0 {
			fmt.Fprintf(out, "channels:     %s\n", strings.Join(summary.ChannelNames, ", "))
		}
	case info.IsImageJ():
		fmt.Fprintf(out, "profile:      imagej\n")
		fmt.Fprintf(out, "description:  %s\n", strings.ReplaceAll(strings.TrimSpace(info.Description), "\n", " "))
	default:
		fmt.Fprintf(out, "profile:      tiff\n")
		if info.Description != "" {
			fmt.Fprintf(out, "description:  %s\n", info.Description)
		}
	}
	return nil
}
