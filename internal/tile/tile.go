package tile

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/jvlmdr/go-cv/rimg64"
)

// ShapeMismatchError reports an image whose pixel grid diverged from its
// density field. Tiling refuses to proceed rather than emit misaligned pairs.
type ShapeMismatchError struct {
	ImageWidth  int
	ImageHeight int
	FieldWidth  int
	FieldHeight int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("image %dx%d does not match density field %dx%d",
		e.ImageWidth, e.ImageHeight, e.FieldWidth, e.FieldHeight)
}

// Pair is one aligned image/density crop. Index is the 1-based sequence
// number within the source image, used to build output filenames; X and Y are
// the crop origin in source (or padded canvas) coordinates.
type Pair struct {
	Index int
	X     int
	Y     int
	Image *image.RGBA
	Field *rimg64.Multi
}

// Offsets computes sliding-window start positions along one axis: start at 0,
// advance by stride = floor(tileSize*(1-overlap)), and once the next window
// would overrun the axis emit a final offset flush with the far edge. An axis
// of at most one tile length yields the single offset 0.
func Offsets(length, tileSize int, overlap float64) []int {
	points := []int{0}
	if length <= tileSize {
		return points
	}
	stride := int(float64(tileSize) * (1 - overlap))
	if stride < 1 {
		stride = 1
	}
	for counter := 1; ; counter++ {
		pt := stride * counter
		if pt+tileSize >= length {
			points = append(points, length-tileSize)
			break
		}
		points = append(points, pt)
	}
	return points
}

// Overlapping partitions an image and its density field into tileSize square
// crops with the sliding-window offsets, row-major. The same offsets apply to
// both so the pairs stay spatially aligned.
func Overlapping(img *image.RGBA, field *rimg64.Multi, tileSize int, overlap float64) ([]Pair, error) {
	if err := checkShapes(img, field); err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() < tileSize || b.Dy() < tileSize {
		return nil, fmt.Errorf("image %dx%d is smaller than tile size %d; rescale it first",
			b.Dx(), b.Dy(), tileSize)
	}
	cols := Offsets(b.Dx(), tileSize, overlap)
	rows := Offsets(b.Dy(), tileSize, overlap)

	pairs := make([]Pair, 0, len(rows)*len(cols))
	for _, y := range rows {
		for _, x := range cols {
			pairs = append(pairs, Pair{
				Index: len(pairs) + 1,
				X:     x,
				Y:     y,
				Image: cropImage(img, x, y, tileSize),
				Field: cropField(field, x, y, tileSize),
			})
		}
	}
	return pairs, nil
}

// NonOverlapping centers the image and field on a zero-padded canvas whose
// dimensions are the smallest multiples of tileSize covering the source, then
// cuts the canvas into a flush row-major grid. Odd padding puts the extra
// pixel on the high side.
func NonOverlapping(img *image.RGBA, field *rimg64.Multi, tileSize int) ([]Pair, error) {
	if err := checkShapes(img, field); err != nil {
		return nil, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	canvasW := (w - 1 + tileSize) / tileSize * tileSize
	canvasH := (h - 1 + tileSize) / tileSize * tileSize
	startX := (canvasW - w) / 2
	startY := (canvasH - h) / 2

	padImg := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))
	draw.Draw(padImg, image.Rect(startX, startY, startX+w, startY+h), img, b.Min, draw.Src)

	padField := rimg64.NewMulti(canvasW, canvasH, field.Channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < field.Channels; ch++ {
				padField.Set(startX+x, startY+y, ch, field.At(x, y, ch))
			}
		}
	}

	pairs := make([]Pair, 0, (canvasH/tileSize)*(canvasW/tileSize))
	for y := 0; y < canvasH; y += tileSize {
		for x := 0; x < canvasW; x += tileSize {
			pairs = append(pairs, Pair{
				Index: len(pairs) + 1,
				X:     x,
				Y:     y,
				Image: cropImage(padImg, x, y, tileSize),
				Field: cropField(padField, x, y, tileSize),
			})
		}
	}
	return pairs, nil
}

// Whole wraps the full image and field as a single untiled pair, for runs
// with tiling disabled.
func Whole(img *image.RGBA, field *rimg64.Multi) ([]Pair, error) {
	if err := checkShapes(img, field); err != nil {
		return nil, err
	}
	return []Pair{{Index: 1, Image: img, Field: field}}, nil
}

func checkShapes(img *image.RGBA, field *rimg64.Multi) error {
	b := img.Bounds()
	if b.Dx() != field.Width || b.Dy() != field.Height {
		return &ShapeMismatchError{
			ImageWidth:  b.Dx(),
			ImageHeight: b.Dy(),
			FieldWidth:  field.Width,
			FieldHeight: field.Height,
		}
	}
	return nil
}

// cropImage copies a tileSize square starting at (x, y) into a fresh,
// self-contained RGBA whose bounds start at the origin.
func cropImage(img *image.RGBA, x, y, tileSize int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))
	src := img.Bounds().Min
	draw.Draw(out, out.Bounds(), img, image.Pt(src.X+x, src.Y+y), draw.Src)
	return out
}

func cropField(field *rimg64.Multi, x, y, tileSize int) *rimg64.Multi {
	out := rimg64.NewMulti(tileSize, tileSize, field.Channels)
	for ty := 0; ty < tileSize; ty++ {
		for tx := 0; tx < tileSize; tx++ {
			for ch := 0; ch < field.Channels; ch++ {
				out.Set(tx, ty, ch, field.At(x+tx, y+ty, ch))
			}
		}
	}
	return out
}
