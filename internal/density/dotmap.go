package density

import (
	"math"

	"github.com/jvlmdr/go-cv/rimg64"

	"github.com/martinmballe/crowdcount3/internal/annot"
)

// QuantPolicy controls how floating-point annotations are quantized to pixel
// cells. The defaults (floor truncation, last write wins) match the documented
// baseline; both knobs exist because the dataset intent is ambiguous.
type QuantPolicy struct {
	// Round quantizes to the nearest pixel instead of truncating toward zero.
	Round bool
	// Accumulate adds a unit of mass per colliding point instead of
	// collapsing collisions into a single unit.
	Accumulate bool
}

// DotMap rasterizes point annotations into a width x height impulse map.
// Points that quantize outside the map are dropped, never written out of
// bounds; the second return value counts the drops.
func DotMap(points []annot.Point, width, height int, policy QuantPolicy) (*rimg64.Image, int) {
	dot := rimg64.New(width, height)
	dropped := 0
	for _, p := range points {
		x, y := quantize(p, policy)
		if x < 0 || x >= width || y < 0 || y >= height {
			dropped++
			continue
		}
		if policy.Accumulate {
			dot.Set(x, y, dot.At(x, y)+1)
		} else {
			dot.Set(x, y, 1)
		}
	}
	return dot, dropped
}

func quantize(p annot.Point, policy QuantPolicy) (int, int) {
	if policy.Round {
		return int(math.Round(p.X)), int(math.Round(p.Y))
	}
	// Floor, not int(): truncation toward zero would pull coordinates in
	// (-1, 0) onto pixel 0 and past the bounds check.
	return int(math.Floor(p.X)), int(math.Floor(p.Y))
}
