package density

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ConfigError reports invalid kernel parameters. It aborts the whole run
// before any image is touched.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "kernel config: " + e.Reason }

// Kernel is one Gaussian blob used to spread a point annotation into density.
// Peak is the maximum cell value, kept only to rescale density into a
// displayable 0-255 range.
type Kernel struct {
	Size  int
	Sigma float64
	W     *mat.Dense
	Peak  float64
}

// KernelSet holds the process-wide kernel bank. It is read-only after
// construction and safe to share across workers.
type KernelSet struct {
	Kernels []Kernel
}

// NewKernelSet builds one kernel per (size, sigma) pair. Sizes must be odd
// positive integers and sigmas positive; the two lists are paired
// positionally and must have equal length.
func NewKernelSet(sizes []int, sigmas []float64) (*KernelSet, error) {
	if len(sizes) != len(sigmas) {
		return nil, &ConfigError{Reason: fmt.Sprintf("%d kernel sizes but %d sigmas", len(sizes), len(sigmas))}
	}
	if len(sizes) == 0 {
		return nil, &ConfigError{Reason: "no kernels configured"}
	}

	set := &KernelSet{Kernels: make([]Kernel, 0, len(sizes))}
	for i, size := range sizes {
		sigma := sigmas[i]
		if size <= 0 || size%2 == 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("kernel size must be odd and positive, got %d", size)}
		}
		if sigma <= 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("sigma must be positive, got %g", sigma)}
		}
		w := gaussianKernel(size, sigma)
		set.Kernels = append(set.Kernels, Kernel{
			Size:  size,
			Sigma: sigma,
			W:     w,
			Peak:  mat.Max(w),
		})
	}
	return set, nil
}

// Peaks returns the per-kernel normalization constants in declaration order.
func (s *KernelSet) Peaks() []float64 {
	peaks := make([]float64, len(s.Kernels))
	for i, k := range s.Kernels {
		peaks[i] = k.Peak
	}
	return peaks
}

// gaussianKernel smooths a unit impulse at the center of a size x size zero
// array with a separable truncated Gaussian. The 1-D profile is normalized to
// sum 1 over its finite support (radius 4*sigma, rounded), so mass that falls
// outside the kernel is lost and the kernel sums to at most 1.
func gaussianKernel(size int, sigma float64) *mat.Dense {
	profile := gauss1D(sigma)
	radius := len(profile) / 2
	center := size / 2

	w := mat.NewDense(size, size, nil)
	for r := 0; r < size; r++ {
		dy := r - center
		if dy < -radius || dy > radius {
			continue
		}
		for c := 0; c < size; c++ {
			dx := c - center
			if dx < -radius || dx > radius {
				continue
			}
			w.Set(r, c, profile[dy+radius]*profile[dx+radius])
		}
	}
	return w
}

// gauss1D returns the normalized 1-D Gaussian weights over [-r, r].
func gauss1D(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	weights := make([]float64, 2*radius+1)
	sum := 0.0
	for d := -radius; d <= radius; d++ {
		v := math.Exp(-float64(d*d) / (2 * sigma * sigma))
		weights[d+radius] = v
		sum += v
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}
