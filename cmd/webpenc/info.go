package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepteams/webpenc/internal/container"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.webp>",
		Short: "Show the container structure of a WebP file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			f, err := container.Parse(data)
			if err != nil {
				return fmt.Errorf("info: %w", err)
			}

			name := args[0]
			if name == "-" {
				name = "<stdin>"
			}
			feat := f.Features
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:       %s\n", name)
			fmt.Fprintf(out, "Format:     %s\n", feat.Format)
			fmt.Fprintf(out, "Dimensions: %d x %d\n", feat.Width, feat.Height)
			fmt.Fprintf(out, "Lossless:   %v\n", feat.Lossless)
			fmt.Fprintf(out, "Alpha:      %v\n", feat.HasAlpha)
			fmt.Fprintf(out, "File size:  %d bytes\n", len(data))
			fmt.Fprintf(out, "Chunks:\n")
			for _, c := range f.Chunks {
				fmt.Fprintf(out, "  %s %8d\n", c.Tag(), len(c.Payload))
			}
			if len(data) != int(f.Header.FileSize)+8 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d trailing bytes after RIFF data\n", len(data)-int(f.Header.FileSize)-8)
			}
			return nil
		},
	}
}
