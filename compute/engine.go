// Package compute ties the kernel registry to the GPU runner: resolve a
// kernel by name, render its WGSL for the input size, dispatch, read back,
// verify against the CPU reference.
package compute

import (
	"context"

	"github.com/haixuanTao/wgpu-compute-tutorials/gpu"
	"github.com/haixuanTao/wgpu-compute-tutorials/kernels"
)

// Engine runs registered kernels on one GPU context.
type Engine struct {
	ctx       *gpu.Context
	workgroup uint32
}

// NewEngine wraps c. workgroup 0 keeps the tutorial's one-invocation-per-
// element dispatch; larger values pack invocations per group and guard the
// partial tail group.
func NewEngine(c *gpu.Context, workgroup uint32) *Engine {
	return &Engine{ctx: c, workgroup: workgroup}
}

// Run resolves name in the registry and executes it over input.
func (e *Engine) Run(ctx context.Context, name string, input []float32) ([]float32, error) {
	k, err := kernels.Get(name)
	if err != nil {
		return nil, err
	}
	return e.RunKernel(ctx, k, input)
}

// RunKernel executes k over input, one output per element.
func (e *Engine) RunKernel(ctx context.Context, k kernels.Kernel, input []float32) ([]float32, error) {
	if len(input) == 0 {
		return []float32{}, nil
	}
	spec := gpu.Spec{
		Label:     k.Name,
		Source:    k.Source(len(input), e.workgroup),
		Entry:     k.Entry,
		Workgroup: e.workgroup,
	}
	return gpu.Run(ctx, e.ctx, spec, input)
}

// Ramp builds the tutorial's input: 0, 1, 2, ... n-1 as float32.
func Ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}
