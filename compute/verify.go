package compute

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/haixuanTao/wgpu-compute-tutorials/kernels"
)

// Tolerance is the absolute error allowed between GPU output and the CPU
// reference.
const Tolerance = 1e-5

// Verify checks output against k's CPU reference. tol <= 0 means Tolerance.
// A value passes within tol absolutely or relative to the reference
// magnitude, whichever is looser, so large-magnitude kernels are not held
// to sub-float32 precision. The first failing index is reported; kernels
// without a reference cannot be verified.
func Verify(k kernels.Kernel, input, output []float32, tol float32) error {
	if k.Reference == nil {
		return fmt.Errorf("kernel %q has no CPU reference to verify against", k.Name)
	}
	if tol <= 0 {
		tol = Tolerance
	}
	if len(output) != len(input) {
		return fmt.Errorf("length mismatch: %d outputs for %d inputs", len(output), len(input))
	}
	want := k.Reference(input)
	for i := range want {
		if !closeEnough(output[i], want[i], tol) {
			return fmt.Errorf("output[%d] = %v, reference %v exceeds tolerance %v",
				i, output[i], want[i], tol)
		}
	}
	return nil
}

func closeEnough(got, want, tol float32) bool {
	if math32.IsNaN(want) {
		return math32.IsNaN(got)
	}
	if math32.IsInf(want, 0) {
		return got == want
	}
	diff := math32.Abs(got - want)
	return diff <= tol || diff <= tol*math32.Abs(want)
}
