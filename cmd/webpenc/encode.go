package main

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/image/vp8l"

	"github.com/deepteams/webpenc"
	"github.com/deepteams/webpenc/internal/container"
	"github.com/deepteams/webpenc/internal/pixbuf"
)

// encoderFlags are shared by encode and frames. Unset flags fall back to the
// config file.
type encoderFlags struct {
	quality          float32
	cleanTransparent bool
	width, height    int
	maxW, maxH       int
}

func (f *encoderFlags) register(fs *pflag.FlagSet) {
	fs.Float32VarP(&f.quality, "quality", "q", 75, "compression effort 0-100")
	fs.BoolVar(&f.cleanTransparent, "clean-transparent", false, "zero RGB under fully transparent pixels")
	fs.IntVar(&f.width, "width", 0, "width of raw .rgba input")
	fs.IntVar(&f.height, "height", 0, "height of raw .rgba input")
	fs.IntVar(&f.maxW, "max-width", 0, "downscale wider input to this width (0 = no limit)")
	fs.IntVar(&f.maxH, "max-height", 0, "downscale taller input to this height (0 = no limit)")
}

func (f *encoderFlags) applyConfig(fs *pflag.FlagSet, a *app) {
	enc := a.cfg.Encoder
	if !fs.Changed("quality") {
		f.quality = enc.Quality
	}
	if !fs.Changed("clean-transparent") {
		f.cleanTransparent = enc.CleanTransparent
	}
	if !fs.Changed("max-width") {
		f.maxW = enc.MaxWidth
	}
	if !fs.Changed("max-height") {
		f.maxH = enc.MaxHeight
	}
}

func (f *encoderFlags) options(a *app) *webpenc.Options {
	return &webpenc.Options{
		Quality:          f.quality,
		CleanTransparent: f.cleanTransparent,
		Logger:           a.log,
	}
}

func newEncodeCmd(a *app) *cobra.Command {
	var (
		flags             encoderFlags
		output            string
		iccPath, exifPath string
		xmpPath           string
		verify            bool
	)
	cmd := &cobra.Command{
		Use:   "encode <input>",
		Short: "Encode one image or raw RGBA frame to WebP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.applyConfig(cmd.Flags(), a)
			if !cmd.Flags().Changed("verify") {
				verify = a.cfg.Encoder.Verify
			}
			opts := flags.options(a)
			var err error
			if opts.ICC, err = readOptional(iccPath); err != nil {
				return err
			}
			if opts.EXIF, err = readOptional(exifPath); err != nil {
				return err
			}
			if opts.XMP, err = readOptional(xmpPath); err != nil {
				return err
			}
			input := args[0]
			if output == "" {
				output = outputPath(input)
			}
			return runEncode(cmd, a, &flags, opts, input, output, verify)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", `output path (default <input>.webp, "-" for stdout)`)
	cmd.Flags().StringVar(&iccPath, "icc", "", "embed this ICC profile")
	cmd.Flags().StringVar(&exifPath, "exif", "", "embed this EXIF blob")
	cmd.Flags().StringVar(&xmpPath, "xmp", "", "embed this XMP packet")
	cmd.Flags().BoolVar(&verify, "verify", false, "decode the result and compare pixels")
	return cmd
}

// outputPath derives "<name>.webp" from an input path.
func outputPath(input string) string {
	if input == "-" {
		return "-"
	}
	base := strings.TrimSuffix(input, extRawZstd)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".webp"
}

func runEncode(cmd *cobra.Command, a *app, flags *encoderFlags, opts *webpenc.Options, input, output string, verify bool) error {
	l, err := newLoader(flags.width, flags.height, flags.maxW, flags.maxH)
	if err != nil {
		return err
	}
	defer l.Close()

	buf, release, err := l.load(input)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	data, err := webpenc.EncodeWithOptions(buf.Pix, uint32(buf.Width), uint32(buf.Height), opts)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if verify {
		if err := verifyOutput(data, buf, opts.CleanTransparent); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	}

	if output == "-" {
		_, err = cmd.OutOrStdout().Write(data)
	} else {
		err = os.WriteFile(output, data, 0o644)
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	a.log.Info().
		Str("input", input).
		Str("output", output).
		Int("width", buf.Width).
		Int("height", buf.Height).
		Int("bytes", len(data)).
		Float64("ratio", float64(len(data))/float64(len(buf.Pix))).
		Dur("elapsed", elapsed).
		Bool("verified", verify).
		Msg("Encoded image")
	return nil
}

// verifyOutput checks the file signature and decodes the VP8L chunk with an
// independent decoder, comparing every pixel with want. With clean set,
// fully transparent pixels are expected to come back as zero.
func verifyOutput(data []byte, want *pixbuf.Buffer, clean bool) error {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return fmt.Errorf("missing RIFF/WEBP signature")
	}
	f, err := container.Parse(data)
	if err != nil {
		return err
	}
	if !f.Features.Lossless {
		return fmt.Errorf("image chunk is not VP8L")
	}
	img, err := vp8l.Decode(bytes.NewReader(f.Image))
	if err != nil {
		return err
	}
	got, err := pixbuf.FromImage(img)
	if err != nil {
		return err
	}
	if got.Width != want.Width || got.Height != want.Height {
		return fmt.Errorf("decoded %dx%d, want %dx%d", got.Width, got.Height, want.Width, want.Height)
	}
	if clean {
		want = cleaned(want)
	}
	if !bytes.Equal(got.Pix, want.Pix) {
		return firstMismatch(got, want)
	}
	return nil
}

func cleaned(b *pixbuf.Buffer) *pixbuf.Buffer {
	pix := append([]byte(nil), b.Pix...)
	for i := 0; i < len(pix); i += pixbuf.Channels {
		if pix[i+3] == 0 {
			pix[i], pix[i+1], pix[i+2] = 0, 0, 0
		}
	}
	return &pixbuf.Buffer{Pix: pix, Width: b.Width, Height: b.Height}
}

func firstMismatch(got, want *pixbuf.Buffer) error {
	for i := 0; i < len(want.Pix); i += pixbuf.Channels {
		if !bytes.Equal(got.Pix[i:i+pixbuf.Channels], want.Pix[i:i+pixbuf.Channels]) {
			p := i / pixbuf.Channels
			pt := image.Pt(p%want.Width, p/want.Width)
			return fmt.Errorf("pixel %v is %v, want %v", pt, got.Pix[i:i+4], want.Pix[i:i+4])
		}
	}
	return nil
}
