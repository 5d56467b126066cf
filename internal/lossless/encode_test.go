package lossless

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/deepteams/webpenc/internal/bitio"
)

// replay rebuilds the pixels a token stream describes, maintaining the
// color cache the way a decoder would.
func replay(t *testing.T, refs []token, cacheBits, n int) []uint32 {
	t.Helper()
	out := make([]uint32, 0, n)
	var cc *colorCache
	if cacheBits > 0 {
		cc = newColorCache(cacheBits)
	}
	for _, tk := range refs {
		start := len(out)
		switch tk.kind {
		case tokenLiteral:
			out = append(out, tk.value)
		case tokenCache:
			if cc == nil {
				t.Fatal("cache token without a cache")
			}
			out = append(out, cc.colors[tk.value])
		case tokenCopy:
			d := int(tk.value)
			if d < 1 || d > len(out) {
				t.Fatalf("copy distance %d at position %d", d, len(out))
			}
			for j := 0; j < int(tk.length); j++ {
				out = append(out, out[len(out)-d])
			}
		}
		if cc != nil {
			for _, p := range out[start:] {
				cc.insert(p)
			}
		}
	}
	if len(out) != n {
		t.Fatalf("replayed %d pixels, want %d", len(out), n)
	}
	return out
}

// ---------------------------------------------------------------------------
// Prefix and distance codes
// ---------------------------------------------------------------------------

func TestPrefixEncode(t *testing.T) {
	tests := []struct {
		v                      int
		code, extraBits, extra int
	}{
		{1, 0, 0, 0},
		{2, 1, 0, 0},
		{3, 2, 0, 0},
		{4, 3, 0, 0},
		{5, 4, 1, 0},
		{6, 4, 1, 1},
		{7, 5, 1, 0},
		{9, 6, 2, 0},
		{4095, 23, 10, 1022},
	}
	for _, tt := range tests {
		code, n, extra := prefixEncode(tt.v)
		if code != tt.code || n != tt.extraBits || extra != tt.extra {
			t.Errorf("prefixEncode(%d) = (%d, %d, %d), want (%d, %d, %d)",
				tt.v, code, n, extra, tt.code, tt.extraBits, tt.extra)
		}
	}
}

// prefixDecode mirrors a decoder's GetCopyDistance.
func prefixDecode(code, extra int) int {
	if code < 4 {
		return code + 1
	}
	extraBits := (code - 2) >> 1
	offset := (2 + code&1) << uint(extraBits)
	return offset + extra + 1
}

func TestPrefixRoundTrip(t *testing.T) {
	for v := 1; v < 1<<20; v = v*3/2 + 1 {
		code, _, extra := prefixEncode(v)
		if got := prefixDecode(code, extra); got != v {
			t.Fatalf("value %d decoded to %d", v, got)
		}
	}
}

func TestDistanceToPlaneCodeRoundTrip(t *testing.T) {
	for _, xsize := range []int{1, 2, 3, 7, 8, 9, 16, 100, 1000} {
		for dist := 1; dist < 5000; dist++ {
			code := distanceToPlaneCode(xsize, dist)
			if got := planeCodeToDistance(xsize, code); got != dist {
				t.Fatalf("xsize %d: distance %d -> code %d -> %d", xsize, dist, code, got)
			}
		}
	}
}

func TestDistanceToPlaneCodeNeighbours(t *testing.T) {
	if got := distanceToPlaneCode(100, 100); got != 1 {
		t.Errorf("pixel above: code %d, want 1", got)
	}
	if got := distanceToPlaneCode(100, 1); got != 2 {
		t.Errorf("pixel left: code %d, want 2", got)
	}
}

// ---------------------------------------------------------------------------
// LZ77 and color cache
// ---------------------------------------------------------------------------

func TestBackwardRefsReplay(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for _, effort := range []int{0, 40, 70, 100} {
		p := lz77ParamsForEffort(effort)
		for _, argb := range [][]uint32{
			randomImage(rng, 1, 0),
			randomImage(rng, 2, 2),
			randomImage(rng, 500, 0),
			randomImage(rng, 3000, 3),
			gradientImage(33, 31),
			make([]uint32, 10000),
		} {
			refs := backwardRefs(argb, 33, p)
			got := replay(t, refs, 0, len(argb))
			for i := range got {
				if got[i] != argb[i] {
					t.Fatalf("effort %d: pixel %d = %08x, want %08x", effort, i, got[i], argb[i])
				}
			}
			for _, tk := range refs {
				if tk.kind == tokenCopy && (tk.length < minLength || tk.length > maxLength || int(tk.value) > p.window) {
					t.Fatalf("invalid copy %+v", tk)
				}
			}
		}
	}
}

func TestBackwardRefsPrefersNearestOnTies(t *testing.T) {
	// Period-4 pattern: distances 4, 8, 12... all give the same length.
	argb := make([]uint32, 64)
	for i := range argb {
		argb[i] = uint32(i % 4)
	}
	refs := backwardRefs(argb, 64, lz77ParamsForEffort(100))
	for _, tk := range refs {
		if tk.kind == tokenCopy && tk.value != 4 {
			t.Errorf("copy distance %d, want 4", tk.value)
		}
	}
}

func TestBackwardRefsRunUsesDistanceOne(t *testing.T) {
	argb := make([]uint32, 100)
	refs := backwardRefs(argb, 10, lz77ParamsForEffort(50))
	if len(refs) != 2 {
		t.Fatalf("got %d tokens, want literal + copy", len(refs))
	}
	if refs[1].kind != tokenCopy || refs[1].value != 1 || refs[1].length != 99 {
		t.Errorf("second token = %+v", refs[1])
	}
}

func TestWithColorCacheReplay(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	argb := randomImage(rng, 4000, 40)
	refs := backwardRefs(argb, 50, lz77ParamsForEffort(30))
	for bits := 1; bits <= MaxCacheBits; bits++ {
		cached := withColorCache(argb, refs, bits)
		got := replay(t, cached, bits, len(argb))
		hits := 0
		for _, tk := range cached {
			if tk.kind == tokenCache {
				hits++
			}
		}
		if hits == 0 {
			t.Errorf("bits %d: no cache hits on a 40-color image", bits)
		}
		for i := range got {
			if got[i] != argb[i] {
				t.Fatalf("bits %d: pixel %d mismatch", bits, i)
			}
		}
	}
}

func TestChooseCacheBitsPicksCheapest(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, argb := range [][]uint32{randomImage(rng, 2000, 0), randomImage(rng, 2000, 30)} {
		refs := backwardRefs(argb, 40, lz77ParamsForEffort(75))
		bits, _, _ := chooseCacheBits(argb, refs, 40, 10)
		chosen, _, _ := cacheCost(argb, refs, 40, bits)
		for b := 0; b <= 10; b++ {
			cost, _, _ := cacheCost(argb, refs, 40, b)
			if cost < chosen || (cost == chosen && b < bits) {
				t.Errorf("chose %d bits (%d), but %d bits costs %d", bits, chosen, b, cost)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

func TestEncodeDeterministic(t *testing.T) {
	argb := gradientImage(64, 48)
	a, err := Encode(argb, 64, 48, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(argb, 64, 48, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("output differs between runs")
	}
}

func TestEncodeTransformHeader(t *testing.T) {
	data, err := Encode(gradientImage(32, 32), 32, 32, Config{Effort: 60})
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(data)
	if !r.ReadBit() || r.ReadBits(2) != uint32(SubtractGreenTransform) {
		t.Fatal("expected subtract-green first")
	}
	if !r.ReadBit() || r.ReadBits(2) != uint32(PredictorTransform) {
		t.Fatal("expected predictor second")
	}
	if bits := int(r.ReadBits(3)) + MinTransformBits; bits != predictorBits(60) {
		t.Errorf("predictor bits = %d, want %d", bits, predictorBits(60))
	}
}

func TestEncodeCompressesGradient(t *testing.T) {
	argb := gradientImage(128, 128)
	for _, effort := range []int{0, 50, 100} {
		data, err := Encode(argb, 128, 128, Config{Effort: effort})
		if err != nil {
			t.Fatal(err)
		}
		if len(data) >= 128*128/4 {
			t.Errorf("effort %d: gradient coded to %d bytes", effort, len(data))
		}
	}
}

func TestEncodeTransformedRejectsBadInput(t *testing.T) {
	_, err := EncodeTransformed(&TransformedImage{Width: 2, Height: 2, Pixels: make([]uint32, 3)}, DefaultConfig())
	if !errors.Is(err, ErrInternal) {
		t.Errorf("err = %v, want ErrInternal", err)
	}
	ti := &TransformedImage{
		Width: 4, Height: 4, Pixels: make([]uint32, 16),
		Transforms: []Transform{{Kind: PredictorTransform, Bits: 2, Data: make([]uint32, 2)}},
	}
	if _, err := EncodeTransformed(ti, DefaultConfig()); !errors.Is(err, ErrInternal) {
		t.Errorf("err = %v, want ErrInternal", err)
	}
	// Four colors need bundling bits 2; a plane coded without bundling is
	// inconsistent with the palette.
	ti = &TransformedImage{
		Width: 4, Height: 1, Pixels: make([]uint32, 4),
		Transforms: []Transform{{Kind: ColorIndexingTransform, Bits: 0, Data: []uint32{1, 2, 3, 4}}},
	}
	if _, err := EncodeTransformed(ti, DefaultConfig()); !errors.Is(err, ErrInternal) {
		t.Errorf("err = %v, want ErrInternal", err)
	}
}

func TestEncodePaletteHeader(t *testing.T) {
	argb := []uint32{0xff0000ff, 0xff00ff00, 0xff0000ff, 0xffff0000, 0xff00ff00}
	data, err := Encode(argb, 5, 1, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(data)
	if !r.ReadBit() || r.ReadBits(2) != uint32(ColorIndexingTransform) {
		t.Fatal("expected color indexing first")
	}
	if n := r.ReadBits(8) + 1; n != 3 {
		t.Errorf("palette size = %d, want 3", n)
	}
}

func TestEncodeBundlesFewColors(t *testing.T) {
	// Four random colors carry 2 bits of entropy per pixel.
	rng := rand.New(rand.NewSource(30))
	w, h := 256, 256
	argb := make([]uint32, w*h)
	colors := []uint32{0xff112233, 0xff445566, 0xff778899, 0xffaabbcc}
	for i := range argb {
		argb[i] = colors[rng.Intn(4)]
	}
	data, err := Encode(argb, w, h, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if limit := w * h * 2 / 8 * 11 / 10; len(data) > limit {
		t.Errorf("coded to %d bytes, want at most %d", len(data), limit)
	}
}
