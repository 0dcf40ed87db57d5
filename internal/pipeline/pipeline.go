package pipeline

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/martinmballe/crowdcount3/internal/annot"
	"github.com/martinmballe/crowdcount3/internal/dataset"
	"github.com/martinmballe/crowdcount3/internal/density"
	"github.com/martinmballe/crowdcount3/internal/geometry"
	"github.com/martinmballe/crowdcount3/internal/store"
	"github.com/martinmballe/crowdcount3/internal/tile"
	"github.com/martinmballe/crowdcount3/internal/utils"
)

// Config is the per-run pipeline configuration. It is read-only while the
// workers run.
type Config struct {
	Mode     string
	TileSize int // -1 disables tiling and emits whole images
	Overlap  float64
	Workers  int
	Quant    density.QuantPolicy
}

// Driver runs the per-image transform: rescale, dot map, convolve, tile,
// persist. The kernel set is the only state shared across images and is never
// written after construction.
type Driver struct {
	Kernels *density.KernelSet
	Config  Config
}

func New(kernels *density.KernelSet, cfg Config) *Driver {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Driver{Kernels: kernels, Config: cfg}
}

// cropsForTraining reports whether this split gets the rescale plus
// overlapping sliding-window treatment. Other splits get the padded
// non-overlapping grid without rescaling.
func (d *Driver) cropsForTraining() bool {
	return d.Config.Mode == "train" || d.Config.Mode == "test"
}

// ProcessImage converts one source image into aligned tile pairs and persists
// them. It returns the number of tiles written.
func (d *Driver) ProcessImage(path string, st *store.Store) (int, error) {
	img, err := dataset.LoadImage(path)
	if err != nil {
		return 0, err
	}

	points, err := annot.Load(path)
	if err != nil {
		return 0, err
	}

	if d.Config.TileSize > 0 && d.cropsForTraining() {
		img, points, _ = geometry.EnsureMinSize(img, points, d.Config.TileSize)
	}

	b := img.Bounds()
	dot, dropped := density.DotMap(points, b.Dx(), b.Dy(), d.Config.Quant)
	if dropped > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  %s: dropped %d out-of-range points\n", path, dropped)
	}
	field := density.Convolve(dot, d.Kernels)

	var pairs []tile.Pair
	switch {
	case d.Config.TileSize <= 0:
		pairs, err = tile.Whole(img, field)
	case d.cropsForTraining():
		pairs, err = tile.Overlapping(img, field, d.Config.TileSize, d.Config.Overlap)
	default:
		pairs, err = tile.NonOverlapping(img, field, d.Config.TileSize)
	}
	if err != nil {
		return 0, err
	}

	if err := st.WriteTiles(utils.ImageIndex(path), pairs); err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// ShardResult summarizes one device shard after RunShard returns.
type ShardResult struct {
	Processed int
	Skipped   int
	Tiles     int
}

type imageResult struct {
	path  string
	tiles int
	err   error
}

// RunShard pushes one shard's images through a pool of workers. One source
// image is the unit of independent work; a failed image is logged with its
// filename and skipped, keeping the rest of the run alive. Missing
// annotations are reported as skips rather than errors.
func (d *Driver) RunShard(images []string, st *store.Store, progress func()) ShardResult {
	taskChan := make(chan string, d.Config.Workers)
	resultsChan := make(chan imageResult, d.Config.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < d.Config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range taskChan {
				tiles, err := d.ProcessImage(path, st)
				resultsChan <- imageResult{path: path, tiles: tiles, err: err}
			}
		}()
	}

	var result ShardResult
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		for res := range resultsChan {
			if progress != nil {
				progress()
			}
			if res.err != nil {
				var missing *annot.MissingAnnotationError
				if errors.As(res.err, &missing) {
					fmt.Fprintf(os.Stderr, "⚠️  Skipping %s: %v\n", res.path, res.err)
				} else {
					fmt.Fprintf(os.Stderr, "⚠️  Failed %s: %v\n", res.path, res.err)
				}
				result.Skipped++
				continue
			}
			result.Processed++
			result.Tiles += res.tiles
		}
	}()

	for _, path := range images {
		taskChan <- path
	}
	close(taskChan)
	wg.Wait()
	close(resultsChan)
	<-aggDone

	return result
}
