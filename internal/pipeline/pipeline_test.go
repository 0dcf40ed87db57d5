package pipeline

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/martinmballe/crowdcount3/internal/dataset"
	"github.com/martinmballe/crowdcount3/internal/density"
	"github.com/martinmballe/crowdcount3/internal/store"
)

// writeFixture lays out a tiny dataset split with one annotated image.
func writeFixture(t *testing.T, root string, name, gt string) string {
	t.Helper()
	imgDir := filepath.Join(root, "images")
	gtDir := filepath.Join(root, "ground-truth")
	for _, dir := range []string{imgDir, gtDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(imgDir, name+".jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, 40, 30)), nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if gt != "" {
		gtName := "GT_" + name + ".csv"
		if err := os.WriteFile(filepath.Join(gtDir, gtName), []byte(gt), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func newTestDriver(t *testing.T, cfg Config) *Driver {
	t.Helper()
	kernels, err := density.NewKernelSet([]int{5}, []float64{1.0})
	if err != nil {
		t.Fatal(err)
	}
	return New(kernels, cfg)
}

func newTestStore(t *testing.T, d *Driver) *store.Store {
	t.Helper()
	layout, err := dataset.SetupLayout(t.TempDir(), "ds", d.Config.Mode, 1)
	if err != nil {
		t.Fatal(err)
	}
	return store.New(layout, d.Kernels.Peaks(), false)
}

func TestProcessImageWholeMode(t *testing.T) {
	root := t.TempDir()
	path := writeFixture(t, root, "IMG_1", "10,10\n20,15\n")

	d := newTestDriver(t, Config{Mode: "train", TileSize: -1})
	st := newTestStore(t, d)

	tiles, err := d.ProcessImage(path, st)
	if err != nil {
		t.Fatalf("ProcessImage failed: %v", err)
	}
	if tiles != 1 {
		t.Errorf("Whole-image mode must emit exactly 1 tile, got %d", tiles)
	}
	if _, err := os.Stat(filepath.Join(st.Layout.ImageDir, "1-1.jpg")); err != nil {
		t.Errorf("Missing output tile: %v", err)
	}
}

func TestProcessImageTrainTiling(t *testing.T) {
	root := t.TempDir()
	// 40x30 source, tile size 32: rescaled x2 to 80x60, column offsets
	// [0,16,32,48] and row offsets [0,16,28] -> 12 tiles.
	path := writeFixture(t, root, "IMG_2", "5,5\n")

	d := newTestDriver(t, Config{Mode: "train", TileSize: 32, Overlap: 0.5})
	st := newTestStore(t, d)

	tiles, err := d.ProcessImage(path, st)
	if err != nil {
		t.Fatalf("ProcessImage failed: %v", err)
	}
	if tiles != 12 {
		t.Errorf("Expected 12 overlapping tiles, got %d", tiles)
	}
	for i := 1; i <= tiles; i++ {
		stem := filepath.Join(st.Layout.DensityDir, "2-"+strconv.Itoa(i)+".csv")
		if _, err := os.Stat(stem); err != nil {
			t.Errorf("Missing density tile %d: %v", i, err)
		}
	}
}

func TestProcessImageInferenceTiling(t *testing.T) {
	root := t.TempDir()
	path := writeFixture(t, root, "IMG_3", "5,5\n")

	// Non train/test modes get the padded non-overlapping grid and no
	// rescale: a 40x30 source with tile 32 pads to 64x32 -> 2 tiles.
	d := newTestDriver(t, Config{Mode: "val", TileSize: 32, Overlap: 0.5})
	st := newTestStore(t, d)

	tiles, err := d.ProcessImage(path, st)
	if err != nil {
		t.Fatalf("ProcessImage failed: %v", err)
	}
	if tiles != 2 {
		t.Errorf("Expected 2 non-overlapping tiles, got %d", tiles)
	}
}

func TestRunShardSkipsMissingAnnotation(t *testing.T) {
	root := t.TempDir()
	good := writeFixture(t, root, "IMG_4", "1,1\n")
	bad := writeFixture(t, root, "IMG_5", "")

	d := newTestDriver(t, Config{Mode: "train", TileSize: -1, Workers: 2})
	st := newTestStore(t, d)

	calls := 0
	res := d.RunShard([]string{good, bad}, st, func() { calls++ })
	if res.Processed != 1 || res.Skipped != 1 {
		t.Errorf("Expected 1 processed and 1 skipped, got %+v", res)
	}
	if calls != 2 {
		t.Errorf("Progress callback fired %d times, want 2", calls)
	}
	if res.Tiles != 1 {
		t.Errorf("Expected 1 tile total, got %d", res.Tiles)
	}
}
