// Package thumbs generates and caches downscaled previews so the gallery
// never serves full-size images to the grid.
package thumbs

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"imagegallery/internal/util"
)

const (
	DefaultMaxSize = 400
	DefaultQuality = 92
)

// matte is composited behind transparent images; thumbnails are JPEG, which
// has no alpha channel.
var matte = color.RGBA{R: 30, G: 30, B: 30, A: 255}

// Generator renders thumbnails into a disk cache directory.
type Generator struct {
	CacheDir string
	MaxSize  int
	Quality  int
}

// New creates a generator writing into cacheDir. Zero maxSize/quality select
// the defaults.
func New(cacheDir string, maxSize, quality int) (*Generator, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if quality <= 0 {
		quality = DefaultQuality
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	return &Generator{CacheDir: cacheDir, MaxSize: maxSize, Quality: quality}, nil
}

// CachePath returns where the thumbnail for an image version lives.
func (g *Generator) CachePath(imagePath string, mtime int64) string {
	return filepath.Join(g.CacheDir, util.ThumbCacheKey(imagePath, mtime)+".jpg")
}

// Thumbnail returns the cached thumbnail path for an image, generating it on
// a miss. The boolean reports whether generation ran.
func (g *Generator) Thumbnail(imagePath string, mtime int64) (string, bool, error) {
	out := g.CachePath(imagePath, mtime)
	if _, err := os.Stat(out); err == nil {
		return out, false, nil
	}
	if err := g.generate(imagePath, out); err != nil {
		return "", false, err
	}
	return out, true, nil
}

// Remove drops the cached thumbnail for an image version, if present.
func (g *Generator) Remove(imagePath string, mtime int64) {
	_ = os.Remove(g.CachePath(imagePath, mtime))
}

func (g *Generator) generate(imagePath, out string) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", imagePath, err)
	}

	b := src.Bounds()
	w, h := scaled(b.Dx(), b.Dy(), g.MaxSize)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: matte}, image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)

	tmp, err := os.CreateTemp(g.CacheDir, ".thumb.tmp.*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := jpeg.Encode(tmp, dst, &jpeg.Options{Quality: g.Quality}); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), out)
}

// scaled fits (w, h) inside a maxSize square without upscaling.
func scaled(w, h, maxSize int) (int, int) {
	if w <= maxSize && h <= maxSize {
		return w, h
	}
	if w >= h {
		nh := h * maxSize / w
		if nh < 1 {
			nh = 1
		}
		return maxSize, nh
	}
	nw := w * maxSize / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxSize
}
