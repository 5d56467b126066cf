package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"

	"github.com/deepteams/webpenc/internal/config"
)

// run executes the command tree in-process and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPath, filepath.Join(t.TempDir(), "absent.yaml"))
	root := newRootCmd(&app{})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: uint8(255 - x)})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func decodeFile(t *testing.T, path string) *image.NRGBA {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	nrgba, ok := img.(*image.NRGBA)
	require.True(t, ok, "decoded %T", img)
	return nrgba
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "webpenc "+Version)
}

func TestEncodePNG(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "gradient.png")
	img := testImage(8, 8)
	writePNG(t, in, img)

	_, err := run(t, "encode", "--verify", in)
	require.NoError(t, err)

	got := decodeFile(t, filepath.Join(dir, "gradient.webp"))
	assert.Equal(t, img.Pix, got.Pix)
}

func TestEncodeRaw(t *testing.T) {
	dir := t.TempDir()
	img := testImage(5, 3)
	raw := filepath.Join(dir, "frame.rgba")
	require.NoError(t, os.WriteFile(raw, img.Pix, 0o600))

	out := filepath.Join(dir, "out.webp")
	_, err := run(t, "encode", "--width", "5", "--height", "3", "--verify", "-o", out, raw)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, decodeFile(t, out).Pix)

	_, err = run(t, "encode", raw)
	assert.ErrorContains(t, err, "--width and --height")

	_, err = run(t, "encode", "--width", "4", "--height", "3", raw)
	assert.ErrorContains(t, err, "buffer size mismatch")
}

func TestEncodeRawZstd(t *testing.T) {
	dir := t.TempDir()
	img := testImage(16, 4)
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll(img.Pix, nil)
	require.NoError(t, enc.Close())

	raw := filepath.Join(dir, "frame.rgba.zst")
	require.NoError(t, os.WriteFile(raw, compressed, 0o600))

	_, err = run(t, "encode", "--width", "16", "--height", "4", raw)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, decodeFile(t, filepath.Join(dir, "frame.webp")).Pix)
}

func TestEncodeDownscale(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "big.png")
	writePNG(t, in, testImage(40, 20))

	_, err := run(t, "encode", "--max-width", "10", in)
	require.NoError(t, err)
	got := decodeFile(t, filepath.Join(dir, "big.webp"))
	assert.Equal(t, image.Rect(0, 0, 10, 5), got.Bounds())
}

func TestEncodeMetadataAndInfo(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "opaque.png")
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	writePNG(t, in, img)
	xmp := filepath.Join(dir, "meta.xmp")
	require.NoError(t, os.WriteFile(xmp, []byte("<x:xmpmeta/>"), 0o600))
	icc := filepath.Join(dir, "profile.icc")
	require.NoError(t, os.WriteFile(icc, []byte("icc"), 0o600))

	_, err := run(t, "encode", "--xmp", xmp, "--icc", icc, "--verify", in)
	require.NoError(t, err)

	out, err := run(t, "info", filepath.Join(dir, "opaque.webp"))
	require.NoError(t, err)
	assert.Contains(t, out, "Format:     VP8X")
	assert.Contains(t, out, "Dimensions: 4 x 4")
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "  ") {
			tags = append(tags, strings.Fields(line)[0])
		}
	}
	assert.Equal(t, []string{"VP8X", "ICCP", "VP8L", "XMP"}, tags)
}

func TestEncodeRejectsUnknownInput(t *testing.T) {
	in := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello"), 0o600))
	_, err := run(t, "encode", in)
	assert.ErrorContains(t, err, "unsupported input type")
}

func TestEncodeRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "webpenc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("encoder: {quality: 101}\n"), 0o600))
	in := filepath.Join(dir, "a.png")
	writePNG(t, in, testImage(2, 2))

	_, err := run(t, "--config", cfgPath, "encode", in)
	assert.ErrorContains(t, err, "quality")
}

func TestFrames(t *testing.T) {
	dir := t.TempDir()
	var want [][]byte
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		img := testImage(6+i, 4)
		writePNG(t, filepath.Join(dir, name), img)
		want = append(want, img.Pix)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("skip me"), 0o600))

	outDir := filepath.Join(dir, "out")
	metrics := filepath.Join(dir, "frames.prom")
	_, err := run(t, "frames", "-j", "2", "-o", outDir, "--metrics-file", metrics, dir)
	require.NoError(t, err)

	for i, pix := range want {
		got := decodeFile(t, filepath.Join(outDir, "frame-0000"+string(rune('0'+i))+".webp"))
		assert.Equal(t, pix, got.Pix, "frame %d", i)
	}
	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "webpenc_frames_encoded_total 3")
	assert.Contains(t, string(prom), "webpenc_frame_encode_seconds_count 3")
}

func TestFramesRaw(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		pix := bytes.Repeat([]byte{byte(i), 2, 3, 255}, 12)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "f"+string(rune('0'+i))+".rgba"), pix, 0o600))
	}
	_, err := run(t, "frames", "--width", "4", "--height", "3", "--pattern", "out-%d.webp", dir)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		got := decodeFile(t, filepath.Join(dir, "out-"+string(rune('0'+i))+".webp"))
		assert.Equal(t, uint8(i), got.Pix[0])
	}
}

func TestFramesRejectsPatternWithoutVerb(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), testImage(4, 4))
	writePNG(t, filepath.Join(dir, "b.png"), testImage(4, 4))
	_, err := run(t, "frames", "--pattern", "x.webp", dir)
	assert.ErrorContains(t, err, "--pattern")
	_, statErr := os.Stat(filepath.Join(dir, "x.webp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFramesEmptyDir(t *testing.T) {
	_, err := run(t, "frames", t.TempDir())
	assert.ErrorContains(t, err, "no frames")
}

func TestOutputPath(t *testing.T) {
	tests := map[string]string{
		"a.png":          "a.webp",
		"dir/b.jpeg":     "dir/b.webp",
		"frame.rgba":     "frame.webp",
		"frame.rgba.zst": "frame.webp",
		"-":              "-",
		"noext":          "noext.webp",
	}
	for in, want := range tests {
		assert.Equal(t, want, outputPath(in), in)
	}
}
