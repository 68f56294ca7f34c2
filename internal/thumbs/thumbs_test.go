package thumbs

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, "src.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func decodeJPEG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open thumb: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode thumb: %v", err)
	}
	return img
}

func TestThumbnailDownscalesLargeImage(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, 800, 600)

	g, err := New(filepath.Join(dir, "cache"), 400, 92)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, generated, err := g.Thumbnail(src, 1)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if !generated {
		t.Fatal("first call must generate")
	}
	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("thumb size = %dx%d, want 400x300", b.Dx(), b.Dy())
	}
}

func TestThumbnailServedFromCache(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, 500, 500)

	g, err := New(filepath.Join(dir, "cache"), 0, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first, generated, err := g.Thumbnail(src, 7)
	if err != nil || !generated {
		t.Fatalf("first call: path=%q generated=%v err=%v", first, generated, err)
	}
	second, generated, err := g.Thumbnail(src, 7)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if generated {
		t.Fatal("second call must hit the cache")
	}
	if first != second {
		t.Fatalf("cache path changed: %q vs %q", first, second)
	}
}

func TestThumbnailNewMtimeRegenerates(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, 100, 100)

	g, err := New(filepath.Join(dir, "cache"), 0, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, _, err := g.Thumbnail(src, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, generated, err := g.Thumbnail(src, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !generated {
		t.Fatal("changed mtime must regenerate")
	}
	if a == b {
		t.Fatal("different mtimes must map to different cache paths")
	}
}

func TestThumbnailSmallImageKeepsSize(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, 120, 90)

	g, err := New(filepath.Join(dir, "cache"), 400, 92)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, _, err := g.Thumbnail(src, 1)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 120 || b.Dy() != 90 {
		t.Fatalf("thumb size = %dx%d, want 120x90 (no upscaling)", b.Dx(), b.Dy())
	}
}

func TestRemoveDropsCachedThumb(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, 100, 100)

	g, err := New(filepath.Join(dir, "cache"), 0, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, _, err := g.Thumbnail(src, 1)
	if err != nil {
		t.Fatal(err)
	}
	g.Remove(src, 1)
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("Remove must delete the cached file")
	}
}

func TestScaled(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{800, 600, 400, 400, 300},
		{600, 800, 400, 300, 400},
		{400, 400, 400, 400, 400},
		{50, 50, 400, 50, 50},
		{4000, 2, 400, 400, 1},
	}
	for _, tt := range tests {
		gotW, gotH := scaled(tt.w, tt.h, tt.max)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("scaled(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.w, tt.h, tt.max, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}
