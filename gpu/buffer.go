package gpu

import (
	"context"
	"fmt"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

// readTimeout bounds how long a readback waits for the map callback after
// the work is submitted.
const readTimeout = 2 * time.Second

// NewFloatBuffer creates a storage buffer initialized with data.
func NewFloatBuffer(c *Context, label string, data []float32) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: wgpu.ToBytes(data),
		Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return buf, nil
}

// NewOutputBuffer creates an uninitialized storage buffer holding n float32s,
// copyable to a staging buffer for readback.
func NewOutputBuffer(c *Context, label string, n int) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(n * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return buf, nil
}

// ReadFloats copies a storage buffer into a fresh staging buffer, submits the
// copy and returns the mapped contents as n float32s.
func ReadFloats(ctx context.Context, c *Context, buf *wgpu.Buffer, n int) ([]float32, error) {
	if n == 0 {
		return []float32{}, nil
	}

	sizeBytes := uint64(n * 4)
	staging, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadStaging",
		Size:  sizeBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer staging.Destroy()

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(buf, 0, staging, 0, sizeBytes)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	c.Queue.Submit(cmd)

	return mapStaging(ctx, c, staging, n)
}

// mapStaging waits for already-submitted work, maps the staging buffer and
// copies its contents out. The buffer is unmapped before returning; Destroy
// stays with the caller.
func mapStaging(ctx context.Context, c *Context, staging *wgpu.Buffer, n int) ([]float32, error) {
	sizeBytes := uint64(n * 4)
	done := make(chan struct{})
	var mapErr error

	err := staging.MapAsync(wgpu.MapModeRead, 0, sizeBytes, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("%w: %v", ErrMapFailed, status)
		}
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapFailed, err)
	}

	// Poll(false) so the loop stays interruptible; Poll(true) can block for
	// as long as the driver pleases.
	timeout := time.After(readTimeout)
loop:
	for {
		c.Device.Poll(false, nil)
		select {
		case <-done:
			break loop
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("%w after %s", ErrReadTimeout, readTimeout)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}

	data := staging.GetMappedRange(0, uint(sizeBytes))
	if data == nil {
		return nil, fmt.Errorf("%w: nil mapped range", ErrMapFailed)
	}
	out := make([]float32, n)
	copy(out, wgpu.FromBytes[float32](data))
	staging.Unmap()

	return out, nil
}
