package cmd

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/martinmballe/crowdcount3/internal/dataset"
	"github.com/martinmballe/crowdcount3/internal/density"
	"github.com/martinmballe/crowdcount3/internal/pipeline"
	"github.com/martinmballe/crowdcount3/internal/store"
	"github.com/martinmballe/crowdcount3/internal/utils"
)

var prepareOpts Options

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Convert images and point annotations into image/density tile pairs",
	Run: func(cmd *cobra.Command, args []string) {
		runPrepare(prepareOpts)
	},
}

func init() {
	prepareCmd.Flags().StringVar(&prepareOpts.Dataset, "dataset", "shtech_A", "Dataset name under the data directory")
	prepareCmd.Flags().StringVar(&prepareOpts.DataDir, "data-dir", "primary_datasets", "Path to the original dataset")
	prepareCmd.Flags().StringVarP(&prepareOpts.Mode, "mode", "m", "train", "Dataset split to process (train, test, ...)")
	prepareCmd.Flags().StringVarP(&prepareOpts.OutputDir, "output-dir", "o", "datasets/intermediate", "Path to save the results")
	prepareCmd.Flags().StringVarP(&prepareOpts.KernelSizes, "kernel-size", "k", "", "Space-separated Gaussian kernel sizes, e.g. \"9 15\"")
	prepareCmd.Flags().StringVarP(&prepareOpts.Sigmas, "sigma", "s", "", "Space-separated kernel sigmas, matching --kernel-size")
	prepareCmd.Flags().IntVar(&prepareOpts.ImageSize, "image-size", 256, "Tile size in pixels, or -1 to emit whole images")
	prepareCmd.Flags().Float64Var(&prepareOpts.Overlap, "overlap", 0.5, "Overlap fraction between neighboring training tiles")
	prepareCmd.Flags().IntVarP(&prepareOpts.NDevices, "ndevices", "n", 4, "Number of part_<n> output shards")
	prepareCmd.Flags().IntVarP(&prepareOpts.Workers, "workers", "w", 1, "Number of parallel image workers")
	prepareCmd.Flags().BoolVar(&prepareOpts.WithDensity, "with-density", false, "Also render the density channels next to each image tile")
	prepareCmd.Flags().BoolVar(&prepareOpts.RoundPoints, "round-points", false, "Quantize annotations to the nearest pixel instead of truncating")
	prepareCmd.Flags().BoolVar(&prepareOpts.Accumulate, "accumulate-points", false, "Accumulate colliding annotations instead of collapsing them")

	prepareCmd.MarkFlagRequired("kernel-size")
	prepareCmd.MarkFlagRequired("sigma")
	rootCmd.AddCommand(prepareCmd)
}

// runPrepare orchestrates the run: kernel bank, shard layout, worker pool and
// progress tracking. Configuration problems abort before any image is read.
func runPrepare(opts Options) {
	kernels, err := buildKernels(opts)
	if err != nil {
		utils.Die("Invalid kernel configuration", err)
	}

	images, err := dataset.Images(opts.DataDir, opts.Dataset, opts.Mode)
	if err != nil {
		utils.Die("Failed to list dataset images", err)
	}
	fmt.Fprintf(os.Stderr, "📂 Found %d images in %s/%s (%s split)\n", len(images), opts.DataDir, opts.Dataset, opts.Mode)

	shards := dataset.Shard(images, opts.NDevices)

	driver := pipeline.New(kernels, pipeline.Config{
		Mode:     opts.Mode,
		TileSize: opts.ImageSize,
		Overlap:  opts.Overlap,
		Workers:  opts.Workers,
		Quant: density.QuantPolicy{
			Round:      opts.RoundPoints,
			Accumulate: opts.Accumulate,
		},
	})

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("🧮 Building density tiles"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var total pipeline.ShardResult
	for device, shard := range shards {
		layout, err := dataset.SetupLayout(opts.OutputDir, opts.Dataset, opts.Mode, device+1)
		if err != nil {
			utils.Die("Failed to create output directories", err)
		}
		if len(shard) == 0 {
			continue
		}

		st := store.New(layout, kernels.Peaks(), opts.WithDensity)
		res := driver.RunShard(shard, st, func() { bar.Add(1) })
		total.Processed += res.Processed
		total.Skipped += res.Skipped
		total.Tiles += res.Tiles
	}
	bar.Finish()

	fmt.Fprintf(os.Stderr, "\n🏁 Processed %d images (%d skipped), wrote %d tile pairs.\n", total.Processed, total.Skipped, total.Tiles)
	fmt.Fprintf(os.Stderr, "📏 Normalization values: %v\n", kernels.Peaks())
}

// buildKernels parses the positional kernel lists and validates them through
// the kernel factory, which rejects mismatched or non-positive parameters.
func buildKernels(opts Options) (*density.KernelSet, error) {
	sizes, err := utils.ParseIntList(opts.KernelSizes)
	if err != nil {
		return nil, fmt.Errorf("--kernel-size: %w", err)
	}
	sigmas, err := utils.ParseFloatList(opts.Sigmas)
	if err != nil {
		return nil, fmt.Errorf("--sigma: %w", err)
	}
	if opts.Overlap < 0 || opts.Overlap >= 1 {
		return nil, fmt.Errorf("--overlap must be in [0, 1), got %g", opts.Overlap)
	}
	return density.NewKernelSet(sizes, sigmas)
}
