package kernels

import (
	"fmt"

	"github.com/chewxy/math32"
)

// perElementTemplate is the tutorial form: one invocation per element,
// dispatched as (N,1,1), no bounds guard needed.
const perElementTemplate = `
@group(0) @binding(0) var<storage, read> input : array<f32>;
@group(0) @binding(1) var<storage, read_write> output : array<f32>;

@compute @workgroup_size(1, 1, 1)
fn main(@builtin(global_invocation_id) gid : vec3<u32>) {
	let i = gid.x;
	output[i] = %s;
}
`

// groupedTemplate packs wg invocations per workgroup; the guard covers the
// final partial group.
const groupedTemplate = `
@group(0) @binding(0) var<storage, read> input : array<f32>;
@group(0) @binding(1) var<storage, read_write> output : array<f32>;

const N: u32 = %du;

@compute @workgroup_size(%d, 1, 1)
fn main(@builtin(global_invocation_id) gid : vec3<u32>) {
	let i = gid.x;
	if (i >= N) {
		return;
	}
	output[i] = %s;
}
`

// elementwiseSource builds a Source for a WGSL expression over input[i].
func elementwiseSource(expr string) func(n int, wg uint32) string {
	return func(n int, wg uint32) string {
		if wg <= 1 {
			return fmt.Sprintf(perElementTemplate, expr)
		}
		return fmt.Sprintf(groupedTemplate, n, wg, expr)
	}
}

// apply lifts a scalar function to a slice reference.
func apply(f func(float32) float32) func([]float32) []float32 {
	return func(in []float32) []float32 {
		out := make([]float32, len(in))
		for i, x := range in {
			out[i] = f(x)
		}
		return out
	}
}

func init() {
	Register(Kernel{
		Name:      "cos",
		Doc:       "cosine of each element",
		Entry:     "main",
		Source:    elementwiseSource("cos(input[i])"),
		Reference: apply(math32.Cos),
	})
	Register(Kernel{
		Name:      "sin",
		Doc:       "sine of each element",
		Entry:     "main",
		Source:    elementwiseSource("sin(input[i])"),
		Reference: apply(math32.Sin),
	})
	Register(Kernel{
		Name:      "exp",
		Doc:       "e raised to each element",
		Entry:     "main",
		Source:    elementwiseSource("exp(input[i])"),
		Reference: apply(math32.Exp),
	})
	Register(Kernel{
		Name:      "sqrt",
		Doc:       "square root of each element",
		Entry:     "main",
		Source:    elementwiseSource("sqrt(input[i])"),
		Reference: apply(math32.Sqrt),
	})
	Register(Kernel{
		Name:      "sigmoid",
		Doc:       "logistic function of each element",
		Entry:     "main",
		Source:    elementwiseSource("1.0 / (1.0 + exp(-input[i]))"),
		Reference: apply(func(x float32) float32 { return 1.0 / (1.0 + math32.Exp(-x)) }),
	})
	Register(Kernel{
		Name:      "relu",
		Doc:       "max(x, 0) of each element",
		Entry:     "main",
		Source:    elementwiseSource("max(input[i], 0.0)"),
		Reference: apply(func(x float32) float32 {
			if x > 0 {
				return x
			}
			return 0
		}),
	})
}
