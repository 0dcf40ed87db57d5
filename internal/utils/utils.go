package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Die is the unified exit strategy for crowdcount3.
// It prints a formatted error box and terminates the process.
func Die(context string, err error) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 CROWDCOUNT ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	os.Exit(1)
}

// ParseIntList parses a space-separated list of integers, e.g. "9 15 21".
func ParseIntList(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseFloatList parses a space-separated list of floats, e.g. "2.0 4.0".
func ParseFloatList(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ImageIndex extracts the numeric suffix used to name output tiles from a
// dataset filename such as "IMG_123.jpg" or "GT_IMG_123.mat". It returns the
// text after the last underscore with the extension removed, so non-numeric
// stems still produce a usable key.
func ImageIndex(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.LastIndexByte(stem, '_'); i >= 0 {
		return stem[i+1:]
	}
	return stem
}
