package geometry

import (
	"image"
	"testing"

	"github.com/martinmballe/crowdcount3/internal/annot"
)

func TestEnsureMinSizeIdempotent(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 256))
	points := []annot.Point{{X: 12, Y: 34}}

	out, outPoints, scale := EnsureMinSize(img, points, 256)
	if scale != 1 {
		t.Fatalf("Expected scale 1, got %d", scale)
	}
	if out != img {
		t.Error("Expected the exact input image back")
	}
	if len(outPoints) != 1 || outPoints[0] != points[0] {
		t.Errorf("Expected points unchanged, got %v", outPoints)
	}
}

func TestEnsureMinSizeScalesBothAxes(t *testing.T) {
	// 100 high x 300 wide with minSize 256: scale = ceil(256/100) = 3 on
	// both axes even though the width already fits.
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	points := []annot.Point{{X: 10, Y: 10}}

	out, outPoints, scale := EnsureMinSize(img, points, 256)
	if scale != 3 {
		t.Fatalf("Expected scale 3, got %d", scale)
	}

	b := out.Bounds()
	if b.Dx() != 900 || b.Dy() != 300 {
		t.Errorf("Expected 900x300, got %dx%d", b.Dx(), b.Dy())
	}
	if outPoints[0] != (annot.Point{X: 30, Y: 30}) {
		t.Errorf("Expected point (30,30), got %v", outPoints[0])
	}
}

func TestEnsureMinSizeExactFit(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	_, _, scale := EnsureMinSize(img, nil, 256)
	if scale != 1 {
		t.Errorf("Exact-size image must not be rescaled, got scale %d", scale)
	}
}
