package gpu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/openfluke/webgpu/wgpu"
)

// Power preference values accepted by Options.PowerPreference.
const (
	PowerDefault         = ""
	PowerHighPerformance = "high-performance"
	PowerLowPower        = "low-power"
)

// Options controls adapter selection in New.
type Options struct {
	// PowerPreference is tried first; the opposite preference and the
	// runtime default are fallbacks. Empty means high-performance first.
	PowerPreference string
	// Adapter, when non-empty, selects the first enumerated adapter whose
	// name or vendor contains it (case-insensitive). No fallback.
	Adapter string
}

// Context holds one WebGPU instance/adapter/device/queue chain.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
}

var (
	defaultCtx  *Context
	defaultErr  error
	defaultOnce sync.Once
)

// Get returns the process-wide context with default options, initializing it
// on first use. Callers that need explicit selection use New.
func Get() (*Context, error) {
	defaultOnce.Do(func() {
		defaultCtx, defaultErr = New(Options{})
	})
	return defaultCtx, defaultErr
}

// New acquires an adapter, device and queue. The caller owns the returned
// context and releases it with Release.
func New(opts Options) (*Context, error) {
	switch opts.PowerPreference {
	case PowerDefault, PowerHighPerformance, PowerLowPower:
	default:
		return nil, fmt.Errorf("gpu: unknown power preference %q", opts.PowerPreference)
	}

	c := &Context{}
	c.Instance = wgpu.CreateInstance(nil)
	if c.Instance == nil {
		return nil, fmt.Errorf("%w: instance creation failed", ErrNoGPU)
	}

	if opts.Adapter != "" {
		want := strings.ToLower(opts.Adapter)
		for _, a := range c.Instance.EnumerateAdapters(nil) {
			info := a.GetInfo()
			if strings.Contains(strings.ToLower(info.Name), want) ||
				strings.Contains(strings.ToLower(info.VendorName), want) {
				c.Adapter = a
				break
			}
		}
		if c.Adapter == nil {
			c.Instance.Release()
			return nil, fmt.Errorf("%w: no adapter matching %q", ErrNoGPU, opts.Adapter)
		}
	}

	var reqErr error
	tryRequest := func(o *wgpu.RequestAdapterOptions) {
		if c.Adapter != nil {
			return
		}
		a, err := c.Instance.RequestAdapter(o)
		if err != nil {
			reqErr = err
			return
		}
		c.Adapter = a
	}

	first := wgpu.PowerPreferenceHighPerformance
	second := wgpu.PowerPreferenceLowPower
	if opts.PowerPreference == PowerLowPower {
		first, second = second, first
	}
	tryRequest(&wgpu.RequestAdapterOptions{PowerPreference: first})
	tryRequest(&wgpu.RequestAdapterOptions{PowerPreference: second})
	tryRequest(nil)
	if c.Adapter == nil {
		c.Instance.Release()
		return nil, fmt.Errorf("%w: %v", ErrNoGPU, reqErr)
	}

	device, err := c.Adapter.RequestDevice(nil)
	if err != nil {
		c.Adapter.Release()
		c.Instance.Release()
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	c.Device = device
	c.Queue = device.GetQueue()

	return c, nil
}

// Release tears the chain down in reverse acquisition order. Safe to call
// more than once.
func (c *Context) Release() {
	if c.Queue != nil {
		c.Queue.Release()
		c.Queue = nil
	}
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
	if c.Adapter != nil {
		c.Adapter.Release()
		c.Adapter = nil
	}
	if c.Instance != nil {
		c.Instance.Release()
		c.Instance = nil
	}
}

// AdapterName reports the selected adapter, for logs and banners.
func (c *Context) AdapterName() string {
	if c == nil || c.Adapter == nil {
		return ""
	}
	info := c.Adapter.GetInfo()
	if info.VendorName == "" {
		return info.Name
	}
	return fmt.Sprintf("%s (%s)", info.Name, info.VendorName)
}
