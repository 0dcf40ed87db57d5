package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Options holds shared configuration for the prepare and stats commands
type Options struct {
	Dataset     string
	DataDir     string
	Mode        string
	OutputDir   string
	KernelSizes string
	Sigmas      string
	ImageSize   int
	Overlap     float64
	NDevices    int
	Workers     int
	WithDensity bool
	RoundPoints bool
	Accumulate  bool
	LowerBound  int
	UpperBound  int
}

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "crowdcount3",
	Short:   "Crowd-counting dataset preprocessor: density maps and tile pairs",
	Version: Version, // This enables the --version flag
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
