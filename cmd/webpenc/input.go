package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zstd"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/webpenc/internal/pixbuf"
	"github.com/deepteams/webpenc/internal/pool"
)

const (
	extRaw     = ".rgba"
	extRawZstd = ".rgba.zst"
)

var supportedMIME = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

var supportedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// isRaw reports whether path names a headerless RGBA8 frame.
func isRaw(path string) bool {
	return strings.HasSuffix(path, extRaw) || strings.HasSuffix(path, extRawZstd)
}

// isInput reports whether the frames command should pick up path.
func isInput(path string) bool {
	return isRaw(path) || supportedExt[strings.ToLower(filepath.Ext(path))]
}

// loader turns input files into pixel buffers. Raw frames carry no header,
// so their size comes from width and height. A loader is safe for
// concurrent use.
type loader struct {
	width, height int
	maxW, maxH    int
	zstd          *zstd.Decoder
}

func newLoader(width, height, maxW, maxH int) (*loader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &loader{width: width, height: height, maxW: maxW, maxH: maxH, zstd: dec}, nil
}

func (l *loader) Close() {
	l.zstd.Close()
}

// load reads path ("-" for stdin). release returns pooled memory and must be
// called once the buffer is no longer used.
func (l *loader) load(path string) (buf *pixbuf.Buffer, release func(), err error) {
	release = func() {}
	if isRaw(path) {
		buf, release, err = l.loadRaw(path)
	} else {
		var data []byte
		if data, err = readInput(path); err == nil {
			buf, err = decodeImage(data)
		}
	}
	if err != nil {
		release()
		return nil, func() {}, fmt.Errorf("%s: %w", path, err)
	}
	if l.needsResize(buf) {
		resized, err := pixbuf.FromImage(resize.Thumbnail(uint(l.limit(l.maxW)), uint(l.limit(l.maxH)), buf.ToNRGBA(), resize.Lanczos3))
		release()
		if err != nil {
			return nil, func() {}, fmt.Errorf("%s: %w", path, err)
		}
		return resized, func() {}, nil
	}
	return buf, release, nil
}

func (l *loader) limit(v int) int {
	if v <= 0 {
		return pixbuf.MaxDimension
	}
	return v
}

func (l *loader) needsResize(buf *pixbuf.Buffer) bool {
	return buf.Width > l.limit(l.maxW) || buf.Height > l.limit(l.maxH)
}

func (l *loader) loadRaw(path string) (*pixbuf.Buffer, func(), error) {
	if l.width <= 0 || l.height <= 0 {
		return nil, func() {}, fmt.Errorf("raw input needs --width and --height")
	}
	in, err := openInput(path)
	if err != nil {
		return nil, func() {}, err
	}
	defer in.Close()

	pooled := pool.GetFrame(l.width, l.height)
	release := func() { pool.Put(pooled) }
	frame := pooled
	if strings.HasSuffix(path, extRawZstd) {
		compressed, err := io.ReadAll(in)
		if err != nil {
			return nil, release, err
		}
		frame, err = l.zstd.DecodeAll(compressed, frame[:0])
		if err != nil {
			return nil, release, fmt.Errorf("zstd: %w", err)
		}
	} else {
		n, err := io.ReadFull(in, frame)
		switch {
		case err == io.ErrUnexpectedEOF || err == io.EOF:
			frame = frame[:n]
		case err != nil:
			return nil, release, err
		default:
			var extra [1]byte
			if m, _ := in.Read(extra[:]); m > 0 {
				return nil, release, fmt.Errorf("%w: more than %dx%d RGBA pixels",
					pixbuf.ErrBufferSizeMismatch, l.width, l.height)
			}
		}
	}
	buf, err := pixbuf.Wrap(frame, l.width, l.height)
	return buf, release, err
}

func decodeImage(data []byte) (*pixbuf.Buffer, error) {
	mime := mimetype.Detect(data)
	if !supportedMIME[mime.String()] {
		return nil, fmt.Errorf("unsupported input type %s", mime)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", mime, err)
	}
	return pixbuf.FromImage(img)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func readInput(path string) ([]byte, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}

// readOptional returns the contents of path, or nil when path is empty.
func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
