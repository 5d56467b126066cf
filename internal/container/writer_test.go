package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestVP8LHeader(t *testing.T) {
	got := VP8LHeader(1, 1, false)
	want := []byte{0x2f, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("1x1 header = % x, want % x", got, want)
	}

	got = VP8LHeader(100, 200, true)
	w, h, alpha, err := ParseVP8LHeader(got)
	if err != nil {
		t.Fatal(err)
	}
	if w != 100 || h != 200 || !alpha {
		t.Errorf("round trip = %dx%d alpha=%v", w, h, alpha)
	}

	got = VP8LHeader(VP8LMaxDimension, VP8LMaxDimension, false)
	if w, h, _, _ := ParseVP8LHeader(got); w != VP8LMaxDimension || h != VP8LMaxDimension {
		t.Errorf("max dimensions round trip = %dx%d", w, h)
	}
}

func TestAssembleSimple(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7} {
		bitstream := bytes.Repeat([]byte{0xab}, n)
		data, err := Assemble(bitstream, 4, 3, true, Metadata{})
		if err != nil {
			t.Fatal(err)
		}
		if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" || string(data[12:16]) != "VP8L" {
			t.Fatalf("bad layout: % x", data[:16])
		}
		if size := binary.LittleEndian.Uint32(data[4:8]); int(size) != len(data)-8 {
			t.Errorf("n=%d: RIFF size %d, file %d", n, size, len(data))
		}
		if len(data)%2 != 0 {
			t.Errorf("n=%d: odd file length %d", n, len(data))
		}
		payload := binary.LittleEndian.Uint32(data[16:20])
		if int(payload) != VP8LHeaderSize+n {
			t.Errorf("n=%d: VP8L size %d", n, payload)
		}
		if !bytes.Equal(data[20+VP8LHeaderSize:20+VP8LHeaderSize+n], bitstream) {
			t.Errorf("n=%d: bitstream not copied", n)
		}
		if payload%2 == 1 && data[len(data)-1] != 0 {
			t.Errorf("n=%d: pad byte = %#x", n, data[len(data)-1])
		}
	}
}

func TestAssembleExtended(t *testing.T) {
	meta := Metadata{ICC: []byte("icc"), EXIF: []byte("exif"), XMP: []byte("<x/>")}
	data, err := Assemble([]byte{9, 9, 9}, 20, 10, false, meta)
	if err != nil {
		t.Fatal(err)
	}
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}

	var tags []string
	for _, c := range f.Chunks {
		tags = append(tags, c.Tag())
	}
	want := []string{"VP8X", "ICCP", "VP8L", "EXIF", "XMP "}
	if len(tags) != len(want) {
		t.Fatalf("chunks = %q, want %q", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("chunks = %q, want %q", tags, want)
		}
	}

	feat := f.Features
	if feat.Format != FormatVP8X || !feat.HasICCP || !feat.HasEXIF || !feat.HasXMP || feat.HasAlpha {
		t.Errorf("features = %+v", feat)
	}
	if feat.Width != 20 || feat.Height != 10 || !feat.Lossless {
		t.Errorf("features = %+v", feat)
	}
	if string(f.Meta.ICC) != "icc" || string(f.Meta.EXIF) != "exif" || string(f.Meta.XMP) != "<x/>" {
		t.Errorf("metadata = %+v", f.Meta)
	}
	if int(f.Header.FileSize) != len(data)-8 {
		t.Errorf("RIFF size %d, file %d", f.Header.FileSize, len(data))
	}
}

func TestAssembleOnlyExifSetsOnlyExifFlag(t *testing.T) {
	data, err := Assemble(nil, 1, 1, true, Metadata{EXIF: []byte{1}})
	if err != nil {
		t.Fatal(err)
	}
	flags := uint32(data[RIFFHeaderSize+ChunkHeaderSize])
	if flags != EXIFFlag|AlphaFlag {
		t.Errorf("flags = %#x", flags)
	}
}

func TestAssembleRejectsBadDimensions(t *testing.T) {
	for _, d := range [][2]int{{0, 1}, {1, 0}, {VP8LMaxDimension + 1, 1}} {
		if _, err := Assemble(nil, d[0], d[1], false, Metadata{}); err == nil {
			t.Errorf("%dx%d accepted", d[0], d[1])
		}
	}
}

func TestFileSizeOverflow(t *testing.T) {
	if _, err := FileSize(MaxRIFFSize, Metadata{}); !errors.Is(err, ErrSizeOverflow) {
		t.Errorf("err = %v, want ErrSizeOverflow", err)
	}
	size, err := FileSize(5, Metadata{})
	if err != nil || size != 26 {
		t.Errorf("FileSize(5) = %d, %v; want 26", size, err)
	}
	size, err = FileSize(5, Metadata{XMP: []byte{1}})
	if err != nil || size != 26+18+10 {
		t.Errorf("FileSize(5, xmp) = %d, %v", size, err)
	}
}
