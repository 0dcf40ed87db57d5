package store

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"

	"github.com/martinmballe/crowdcount3/internal/dataset"
	"github.com/martinmballe/crowdcount3/internal/tile"
)

// Store persists computed tile pairs for one device shard. It only ever sees
// fully computed tile sets, so a failed image never leaves partial output: on
// a mid-image write error every file already written for that image is
// removed again.
type Store struct {
	Layout dataset.Layout
	// Peaks are the per-kernel normalization constants, used only to scale
	// the optional visualization into a displayable range.
	Peaks []float64
	// WithDensity renders the density channels next to each image tile.
	WithDensity bool
	// Quality is the JPEG encoder quality for image tiles.
	Quality int
}

// New returns a Store writing into the given shard layout.
func New(layout dataset.Layout, peaks []float64, withDensity bool) *Store {
	return &Store{Layout: layout, Peaks: peaks, WithDensity: withDensity, Quality: 95}
}

// WriteTiles persists every tile pair of one source image. The filename stem
// is "<imageIndex>-<tileIndex>" under the image and density folders.
func (s *Store) WriteTiles(imageIndex string, pairs []tile.Pair) (err error) {
	var written []string
	defer func() {
		if err != nil {
			for _, path := range written {
				os.Remove(path)
			}
		}
	}()

	for _, p := range pairs {
		stem := fmt.Sprintf("%s-%d", imageIndex, p.Index)

		// Register each path before writing it, so the cleanup also
		// catches a file that failed halfway through.
		imgPath := filepath.Join(s.Layout.ImageDir, stem+".jpg")
		written = append(written, imgPath)
		if err = s.writeImage(imgPath, p); err != nil {
			return fmt.Errorf("write %s: %w", imgPath, err)
		}

		denPath := filepath.Join(s.Layout.DensityDir, stem+".csv")
		written = append(written, denPath)
		if err = writeDensity(denPath, p); err != nil {
			return fmt.Errorf("write %s: %w", denPath, err)
		}
	}
	return nil
}

func (s *Store) writeImage(path string, p tile.Pair) error {
	out := p.Image
	if s.WithDensity {
		out = s.renderSideBySide(p)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, out, &jpeg.Options{Quality: s.Quality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// renderSideBySide concatenates the image tile with each density channel
// normalized by its kernel peak to 0-255 and replicated to RGB.
func (s *Store) renderSideBySide(p tile.Pair) *image.RGBA {
	w, h := p.Field.Width, p.Field.Height
	imgW := p.Image.Bounds().Dx()
	out := image.NewRGBA(image.Rect(0, 0, imgW+w*p.Field.Channels, h))

	for y := 0; y < h; y++ {
		for x := 0; x < imgW; x++ {
			copy(out.Pix[out.PixOffset(x, y):], p.Image.Pix[p.Image.PixOffset(x, y):p.Image.PixOffset(x, y)+4])
		}
	}
	for ch := 0; ch < p.Field.Channels; ch++ {
		peak := 1.0
		if ch < len(s.Peaks) && s.Peaks[ch] > 0 {
			peak = s.Peaks[ch]
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := p.Field.At(x, y, ch) / peak * 255
				if v > 255 {
					v = 255
				}
				if v < 0 {
					v = 0
				}
				g := uint8(v)
				o := out.PixOffset(imgW+ch*w+x, y)
				out.Pix[o] = g
				out.Pix[o+1] = g
				out.Pix[o+2] = g
				out.Pix[o+3] = 255
			}
		}
	}
	return out
}

// writeDensity emits the tile as a headerless CSV with the channels laid out
// as adjacent column blocks: h rows, channels*w columns.
func writeDensity(path string, p tile.Pair) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	row := make([]string, p.Field.Channels*p.Field.Width)
	for y := 0; y < p.Field.Height; y++ {
		for ch := 0; ch < p.Field.Channels; ch++ {
			for x := 0; x < p.Field.Width; x++ {
				row[ch*p.Field.Width+x] = strconv.FormatFloat(p.Field.At(x, y, ch), 'g', -1, 64)
			}
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
