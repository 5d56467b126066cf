package webpenc

import (
	"fmt"
	"image"
	"io"

	"github.com/rs/zerolog"

	"github.com/deepteams/webpenc/internal/container"
	"github.com/deepteams/webpenc/internal/lossless"
	"github.com/deepteams/webpenc/internal/pixbuf"
)

// MaxDimension is the largest width or height a WebP lossless image can
// have.
const MaxDimension = pixbuf.MaxDimension

// Encode encodes width x height RGBA8 pixels (row-major, 4 bytes per pixel,
// no row padding) with DefaultOptions. The pixel slice is not modified. On
// failure the returned slice is nil and the error is an *EncodeError.
func Encode(pixels []byte, width, height uint32) ([]byte, error) {
	return EncodeWithOptions(pixels, width, height, nil)
}

// EncodeWithOptions is like Encode with explicit options. If opts is nil,
// DefaultOptions() is used.
func EncodeWithOptions(pixels []byte, width, height uint32, opts *Options) ([]byte, error) {
	e := newEncoder(opts)
	if err := e.validateOptions(); err != nil {
		return nil, err
	}
	buf, err := pixbuf.Wrap(pixels, dimension(width), dimension(height))
	if err != nil {
		return nil, e.fail(err)
	}
	return e.run(buf)
}

// EncodeImage writes img to w in WebP format. If opts is nil,
// DefaultOptions() is used.
func EncodeImage(w io.Writer, img image.Image, opts *Options) error {
	e := newEncoder(opts)
	if err := e.validateOptions(); err != nil {
		return err
	}
	buf, err := pixbuf.FromImage(img)
	if err != nil {
		return e.fail(err)
	}
	data, err := e.run(buf)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("webpenc: write: %w", err)
	}
	return nil
}

// dimension converts a caller-supplied size, mapping values that overflow
// int to an out-of-range dimension.
func dimension(v uint32) int {
	if v > MaxDimension {
		return MaxDimension + 1
	}
	return int(v)
}

// encoder carries one call through the pipeline stages.
type encoder struct {
	opts  *Options
	log   *zerolog.Logger
	stage Stage
}

func newEncoder(opts *Options) *encoder {
	if opts == nil {
		opts = DefaultOptions()
	}
	e := &encoder{opts: opts, log: opts.logger(), stage: StageIdle}
	e.enter(StageValidating)
	return e
}

func (e *encoder) validateOptions() error {
	if err := validateOptions(e.opts); err != nil {
		return e.fail(err)
	}
	return nil
}

func (e *encoder) enter(s Stage) {
	e.stage = s
	e.log.Debug().Stringer("stage", s).Msg("Encoder stage")
}

// fail moves the encoder to StageFailed and wraps err with the stage it
// happened in.
func (e *encoder) fail(err error) error {
	failed := e.stage
	e.stage = StageFailed
	kind := classify(err)
	if kind == KindUnknown {
		kind = KindEncoderInternal
	}
	e.log.Debug().Err(err).Stringer("stage", failed).Stringer("kind", kind).Msg("Encoding failed")
	return &EncodeError{Stage: failed, Kind: kind, Err: err}
}

func (e *encoder) run(buf *pixbuf.Buffer) ([]byte, error) {
	cfg := lossless.Config{
		Effort:           int(e.opts.Quality),
		CleanTransparent: e.opts.CleanTransparent,
	}
	e.log.Debug().
		Int("width", buf.Width).
		Int("height", buf.Height).
		Int("effort", cfg.Effort).
		Msg("Encoding image")

	e.enter(StageTransforming)
	hasAlpha := buf.HasAlpha()
	ti := lossless.Apply(buf.ARGB(), buf.Width, buf.Height, cfg)

	e.enter(StageEntropyCoding)
	bitstream, err := lossless.EncodeTransformed(ti, cfg)
	if err != nil {
		return nil, e.fail(err)
	}

	e.enter(StageContainerAssembling)
	meta := container.Metadata{ICC: e.opts.ICC, EXIF: e.opts.EXIF, XMP: e.opts.XMP}
	data, err := container.Assemble(bitstream, buf.Width, buf.Height, hasAlpha, meta)
	if err != nil {
		return nil, e.fail(err)
	}

	e.enter(StageDone)
	e.log.Debug().Int("bytes", len(data)).Msg("Encoded image")
	return data, nil
}
