package geometry

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/transform"

	"github.com/martinmballe/crowdcount3/internal/annot"
)

// EnsureMinSize guarantees both image dimensions meet minSize so that
// fixed-size tiling downstream cannot run out of pixels. Undersized images are
// scaled up by a single integer factor, ceil(max(minSize/h, minSize/w)),
// applied to both axes, and every point coordinate is multiplied by the same
// factor. Images already large enough pass through untouched.
func EnsureMinSize(img *image.RGBA, points []annot.Point, minSize int) (*image.RGBA, []annot.Point, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= minSize && h >= minSize {
		return img, points, 1
	}

	scale := int(math.Ceil(math.Max(float64(minSize)/float64(h), float64(minSize)/float64(w))))
	resized := transform.Resize(img, w*scale, h*scale, transform.Linear)

	scaled := make([]annot.Point, len(points))
	for i, p := range points {
		scaled[i] = annot.Point{X: p.X * float64(scale), Y: p.Y * float64(scale)}
	}
	return resized, scaled, scale
}
