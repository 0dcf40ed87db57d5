package density

import (
	"github.com/jvlmdr/go-cv/rimg64"
)

// Convolve spreads the dot map through every kernel in the set and stacks the
// results into one channel per kernel, in declaration order. Each channel is a
// zero-padded "same" size 2-D convolution: density mass that would fall
// outside the image is lost at the edges.
func Convolve(dot *rimg64.Image, set *KernelSet) *rimg64.Multi {
	field := rimg64.NewMulti(dot.Width, dot.Height, len(set.Kernels))
	for ch, k := range set.Kernels {
		convolveChannel(field, ch, dot, &k)
	}
	return field
}

func convolveChannel(field *rimg64.Multi, ch int, dot *rimg64.Image, k *Kernel) {
	half := k.Size / 2
	for y := 0; y < dot.Height; y++ {
		for x := 0; x < dot.Width; x++ {
			var sum float64
			for ky := 0; ky < k.Size; ky++ {
				sy := y + ky - half
				if sy < 0 || sy >= dot.Height {
					continue
				}
				for kx := 0; kx < k.Size; kx++ {
					sx := x + kx - half
					if sx < 0 || sx >= dot.Width {
						continue
					}
					if w := k.W.At(ky, kx); w != 0 {
						sum += w * dot.At(sx, sy)
					}
				}
			}
			field.Set(x, y, ch, sum)
		}
	}
}
