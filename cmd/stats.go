package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martinmballe/crowdcount3/internal/annot"
	"github.com/martinmballe/crowdcount3/internal/dataset"
	"github.com/martinmballe/crowdcount3/internal/utils"
)

var statsOpts Options

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the crowd-count distribution of a dataset split",
	Run: func(cmd *cobra.Command, args []string) {
		runStats(statsOpts)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsOpts.Dataset, "dataset", "shtech_A", "Dataset name under the data directory")
	statsCmd.Flags().StringVar(&statsOpts.DataDir, "data-dir", "primary_datasets", "Path to the original dataset")
	statsCmd.Flags().StringVarP(&statsOpts.Mode, "mode", "m", "train", "Dataset split to inspect")
	statsCmd.Flags().IntVar(&statsOpts.LowerBound, "lower-bound", 0, "Keep images with at least this many heads")
	statsCmd.Flags().IntVar(&statsOpts.UpperBound, "upper-bound", -1, "Keep images with at most this many heads (-1 for no limit)")
	rootCmd.AddCommand(statsCmd)
}

// countBins mirror the coarse crowd buckets the datasets are usually
// described with.
var countBins = []struct {
	Label string
	Max   int
}{
	{"0-99", 99},
	{"100-499", 499},
	{"500-999", 999},
	{"1000+", -1},
}

func runStats(opts Options) {
	images, err := dataset.Images(opts.DataDir, opts.Dataset, opts.Mode)
	if err != nil {
		utils.Die("Failed to list dataset images", err)
	}

	bins := make([]int, len(countBins))
	kept, skipped, total := 0, 0, 0
	for _, path := range images {
		points, err := annot.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Skipping %s: %v\n", path, err)
			skipped++
			continue
		}
		n := len(points)
		total += n
		for i, bin := range countBins {
			if bin.Max < 0 || n <= bin.Max {
				bins[i]++
				break
			}
		}
		if n >= opts.LowerBound && (opts.UpperBound < 0 || n <= opts.UpperBound) {
			kept++
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "BIN\tIMAGES")
	fmt.Fprintln(w, "---\t------")
	for i, bin := range countBins {
		fmt.Fprintf(w, "%s\t%d\n", bin.Label, bins[i])
	}
	w.Flush()

	annotated := len(images) - skipped
	fmt.Printf("\n%d images, %d annotated, %d heads total\n", len(images), annotated, total)
	if annotated > 0 {
		fmt.Printf("Mean count: %.1f heads/image\n", float64(total)/float64(annotated))
	}
	fmt.Printf("Count bounds [%d, %s] keep %d of %d images\n",
		opts.LowerBound, upperLabel(opts.UpperBound), kept, annotated)
}

func upperLabel(bound int) string {
	if bound < 0 {
		return "inf"
	}
	return fmt.Sprintf("%d", bound)
}
