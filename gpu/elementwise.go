package gpu

import (
	"context"
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// Spec configures one elementwise dispatch. Source is complete WGSL
// declaring exactly two storage bindings in group 0: binding 0 read (input),
// binding 1 read_write (output). That layout is the runner's contract; the
// transform inside is the caller's business.
type Spec struct {
	Label  string
	Source string
	Entry  string // defaults to "main"
	// Workgroup is the x size the source was generated with. 0 or 1 means
	// one invocation per element, dispatched as (N,1,1).
	Workgroup uint32
	N         int
}

// Elementwise holds the GPU resources for one Spec over one input.
type Elementwise struct {
	Spec Spec

	InputBuffer   *wgpu.Buffer
	OutputBuffer  *wgpu.Buffer
	StagingBuffer *wgpu.Buffer

	module    *wgpu.ShaderModule
	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup
}

func (e *Elementwise) AllocateBuffers(c *Context, input []float32) error {
	var err error

	e.InputBuffer, err = NewFloatBuffer(c, e.Spec.Label+"_In", input)
	if err != nil {
		return err
	}
	e.OutputBuffer, err = NewOutputBuffer(c, e.Spec.Label+"_Out", e.Spec.N)
	if err != nil {
		return err
	}
	e.StagingBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: e.Spec.Label + "_Staging",
		Size:  uint64(e.Spec.N * 4),
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create buffer %q: %w", e.Spec.Label+"_Staging", err)
	}
	return nil
}

func (e *Elementwise) Compile(c *Context) error {
	var err error

	e.module, err = c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          e.Spec.Label + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: e.Spec.Source},
	})
	if err != nil {
		return fmt.Errorf("compile shader %q: %w", e.Spec.Label, err)
	}

	entry := e.Spec.Entry
	if entry == "" {
		entry = "main"
	}
	// No explicit layout: inferred from the shader's declared bindings.
	e.pipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   e.Spec.Label + "_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: e.module, EntryPoint: entry},
	})
	if err != nil {
		return fmt.Errorf("create pipeline %q: %w", e.Spec.Label, err)
	}
	return nil
}

func (e *Elementwise) CreateBindGroup(c *Context) error {
	var err error
	e.bindGroup, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  e.Spec.Label + "_Bind",
		Layout: e.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: e.InputBuffer, Size: e.InputBuffer.GetSize()},
			{Binding: 1, Buffer: e.OutputBuffer, Size: e.OutputBuffer.GetSize()},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group %q: %w", e.Spec.Label, err)
	}
	return nil
}

// Groups is the x dimension of the dispatch grid.
func (e *Elementwise) Groups() uint32 {
	wg := e.Spec.Workgroup
	if wg <= 1 {
		return uint32(e.Spec.N)
	}
	return (uint32(e.Spec.N) + wg - 1) / wg
}

func (e *Elementwise) Dispatch(pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(e.pipeline)
	pass.SetBindGroup(0, e.bindGroup, nil)
	pass.DispatchWorkgroups(e.Groups(), 1, 1)
}

func (e *Elementwise) Cleanup() {
	if e.InputBuffer != nil {
		e.InputBuffer.Destroy()
		e.InputBuffer = nil
	}
	if e.OutputBuffer != nil {
		e.OutputBuffer.Destroy()
		e.OutputBuffer = nil
	}
	if e.StagingBuffer != nil {
		e.StagingBuffer.Destroy()
		e.StagingBuffer = nil
	}
	if e.pipeline != nil {
		e.pipeline.Release()
		e.pipeline = nil
	}
	if e.bindGroup != nil {
		e.bindGroup.Release()
		e.bindGroup = nil
	}
	if e.module != nil {
		e.module.Release()
		e.module = nil
	}
}

// Run executes spec over input and returns one output per element. Empty
// input returns an empty slice without touching the device. Resources are
// released on every path.
func Run(ctx context.Context, c *Context, spec Spec, input []float32) ([]float32, error) {
	if len(input) == 0 {
		return []float32{}, nil
	}
	spec.N = len(input)

	e := &Elementwise{Spec: spec}
	defer e.Cleanup()

	if err := e.AllocateBuffers(c, input); err != nil {
		return nil, err
	}
	if err := e.Compile(c); err != nil {
		return nil, err
	}
	if err := e.CreateBindGroup(c); err != nil {
		return nil, err
	}

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	pass := encoder.BeginComputePass(nil)
	e.Dispatch(pass)
	pass.End()
	encoder.CopyBufferToBuffer(e.OutputBuffer, 0, e.StagingBuffer, 0, e.OutputBuffer.GetSize())
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	c.Queue.Submit(cmd)

	return mapStaging(ctx, c, e.StagingBuffer, spec.N)
}
