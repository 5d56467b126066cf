package webpenc

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Options controls encoding.
type Options struct {
	// Quality is the compression effort (0-100, default 75). Output stays
	// lossless; higher values trade speed for smaller files.
	Quality float32

	// CleanTransparent zeroes the RGB values of fully transparent pixels,
	// which are invisible but otherwise stored exactly.
	CleanTransparent bool

	// ICC holds an ICC color profile to embed in the output.
	ICC []byte
	// EXIF holds EXIF metadata to embed in the output.
	EXIF []byte
	// XMP holds XMP metadata to embed in the output.
	XMP []byte

	// Logger receives debug events for each pipeline stage. Nil disables
	// logging.
	Logger *zerolog.Logger
}

// DefaultOptions returns options with quality 75 and no metadata.
func DefaultOptions() *Options {
	return &Options{Quality: 75}
}

func validateOptions(opts *Options) error {
	if !(opts.Quality >= 0 && opts.Quality <= 100) {
		return fmt.Errorf("%w: Quality %.2f (must be 0-100)", ErrInvalidOptions, opts.Quality)
	}
	return nil
}

func (o *Options) logger() *zerolog.Logger {
	if o.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return o.Logger
}
