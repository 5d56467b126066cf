// Command webpenc encodes images and raw RGBA frames to lossless WebP.
//
// Usage:
//
//	webpenc encode [flags] <input>     PNG/JPEG/GIF/BMP/TIFF/WebP or raw .rgba[.zst] → WebP
//	webpenc frames [flags] <dir>       every frame in dir → frame-00000.webp, ...
//	webpenc info <file.webp>           list the chunks of a WebP file
//	webpenc version
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deepteams/webpenc/internal/config"
)

// Version is set at build time.
var Version = "develop"

// app holds state shared by all subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *zerolog.Logger
}

func (a *app) setup() error {
	cfg, err := config.Load(config.Path(a.configPath))
	if err != nil {
		return err
	}
	log, err := cfg.Logger(a.logLevel)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// logger returns the configured logger, or a plain stderr logger when
// setup never completed.
func (a *app) logger() *zerolog.Logger {
	if a.log != nil {
		return a.log
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return &log
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "webpenc",
		Short:         "Encode images to lossless WebP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $"+config.EnvPath+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newEncodeCmd(a),
		newFramesCmd(a),
		newInfoCmd(),
		newVersionCmd(Version),
	)
	return root
}

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		a.logger().Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
