package dataset

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	_ "golang.org/x/image/webp"
)

// Images returns the sorted list of source images for a dataset split,
// following the {mode}_data/images layout.
func Images(dataDir, dataset, mode string) ([]string, error) {
	pattern := filepath.Join(dataDir, dataset, mode+"_data", "images", "*.jpg")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no images match %s", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// Shard splits the image list into n contiguous sublists, one per output
// device folder. The remainder stays in the last shard. It is a pure split:
// no goroutines, just bookkeeping for launching independent processes later.
func Shard(list []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	perDevice := len(list) / n
	shards := make([][]string, 0, n)
	for d := 0; d < n-1; d++ {
		shards = append(shards, list[d*perDevice:(d+1)*perDevice])
	}
	shards = append(shards, list[(n-1)*perDevice:])
	return shards
}

// Layout describes where one device shard writes its tiles.
type Layout struct {
	ImageDir   string // <out>/<dataset>/part_<d>/<mode>
	DensityDir string // sibling <mode>_den folder
}

// SetupLayout creates the per-device output folders up front, before any
// worker writes into them. Existing directories are fine.
func SetupLayout(outputDir, dataset, mode string, device int) (Layout, error) {
	base := filepath.Join(outputDir, dataset, fmt.Sprintf("part_%d", device))
	l := Layout{
		ImageDir:   filepath.Join(base, mode),
		DensityDir: filepath.Join(base, mode+"_den"),
	}
	if err := os.MkdirAll(l.ImageDir, 0755); err != nil {
		return Layout{}, fmt.Errorf("create %s: %w", l.ImageDir, err)
	}
	if err := os.MkdirAll(l.DensityDir, 0755); err != nil {
		return Layout{}, fmt.Errorf("create %s: %w", l.DensityDir, err)
	}
	return l, nil
}

// LoadImage decodes a source image into RGBA with origin-anchored bounds.
// JPEG, PNG and WebP decoders are registered.
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}
