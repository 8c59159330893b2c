package detector

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/openfluke/webgpu/wgpu"
	"golang.org/x/sys/cpu"
)

/* ---------- public API ---------- */

// Report is a portable summary of the current adapter/device caps.
type Report struct {
	Available   bool              `json:"available"`
	Reason      string            `json:"reason,omitempty"`
	WhenISO     string            `json:"when_iso"`
	Runtime     string            `json:"runtime"`
	Backend     string            `json:"backend,omitempty"`
	AdapterType string            `json:"adapter_type,omitempty"`
	VendorID    string            `json:"vendor_id_hex,omitempty"`
	DeviceID    string            `json:"device_id_hex,omitempty"`
	Name        string            `json:"name,omitempty"`
	Driver      string            `json:"driver,omitempty"`
	Recommended Recommendations   `json:"recommended"`
	Limits      Limits            `json:"limits"`
	Features    []string          `json:"features,omitempty"`
	Host        Host              `json:"host"`
	Env         map[string]string `json:"env,omitempty"`
}

type Limits struct {
	MaxComputeInvocationsPerWorkgroup uint32 `json:"max_compute_invocations_per_workgroup"`
	MaxComputeWorkgroupSizeX          uint32 `json:"max_compute_workgroup_size_x"`
	MaxComputeWorkgroupSizeY          uint32 `json:"max_compute_workgroup_size_y"`
	MaxComputeWorkgroupSizeZ          uint32 `json:"max_compute_workgroup_size_z"`
	MaxComputeWorkgroupsPerDimension  uint32 `json:"max_compute_workgroups_per_dimension"`
	MaxComputeWorkgroupStorageSize    uint32 `json:"max_compute_workgroup_storage_size"`
	MaxStorageBufferBindingSize       uint64 `json:"max_storage_buffer_binding_size"`
	MaxBufferSize                     uint64 `json:"max_buffer_size"`
}

type Recommendations struct {
	// Conservative 1D workgroup that should run everywhere.
	WorkgroupX uint32 `json:"workgroup_x"`
	WorkgroupY uint32 `json:"workgroup_y"`
	WorkgroupZ uint32 `json:"workgroup_z"`

	// Soft budget in bytes for staging + temps.
	BudgetBytes uint64 `json:"budget_bytes"`
}

// Host describes the machine driving the GPU.
type Host struct {
	OS          string   `json:"os"`
	Arch        string   `json:"arch"`
	NumCPU      int      `json:"num_cpu"`
	CPUFeatures []string `json:"cpu_features,omitempty"`
}

// budgetEnv overrides the staging budget, in MiB.
const budgetEnv = "WGPU_COMPUTE_BUDGET_MB"

// Detect probes the default adapter/device and synthesizes a report. It
// fails when no compute-capable adapter exists; Probe is the never-failing
// variant.
func Detect() (*Report, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, fmt.Errorf("wgpu.CreateInstance returned nil")
	}
	defer inst.Release()

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	if adapter == nil {
		return nil, fmt.Errorf("no adapter")
	}
	defer adapter.Release()

	info := adapter.GetInfo()
	limits := adapter.GetLimits()

	var feats []string
	for _, f := range adapter.EnumerateFeatures() {
		feats = append(feats, featureName(f))
	}

	// Confirm a logical device can actually be created before reporting
	// the adapter as usable.
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	defer device.Release()

	wgX, wgY, wgZ := chooseWorkgroup(limits)

	budget := uint64(128 * 1024 * 1024)
	if mbStr := os.Getenv(budgetEnv); mbStr != "" {
		if mb, err := strconv.Atoi(mbStr); err == nil && mb > 0 {
			budget = uint64(mb) * 1024 * 1024
		}
	}

	return &Report{
		Available:   true,
		WhenISO:     time.Now().UTC().Format(time.RFC3339),
		Runtime:     detectRuntime(),
		Backend:     backendName(info.BackendType),
		AdapterType: adapterTypeName(info.AdapterType),
		VendorID:    fmt.Sprintf("0x%04x", info.VendorId),
		DeviceID:    fmt.Sprintf("0x%04x", info.DeviceId),
		Name:        strings.TrimSpace(info.Name),
		Driver:      strings.TrimSpace(info.DriverDescription),
		Limits: Limits{
			MaxComputeInvocationsPerWorkgroup: limits.Limits.MaxComputeInvocationsPerWorkgroup,
			MaxComputeWorkgroupSizeX:          limits.Limits.MaxComputeWorkgroupSizeX,
			MaxComputeWorkgroupSizeY:          limits.Limits.MaxComputeWorkgroupSizeY,
			MaxComputeWorkgroupSizeZ:          limits.Limits.MaxComputeWorkgroupSizeZ,
			MaxComputeWorkgroupsPerDimension:  limits.Limits.MaxComputeWorkgroupsPerDimension,
			MaxComputeWorkgroupStorageSize:    limits.Limits.MaxComputeWorkgroupStorageSize,
			MaxStorageBufferBindingSize:       limits.Limits.MaxStorageBufferBindingSize,
			MaxBufferSize:                     limits.Limits.MaxBufferSize,
		},
		Features: feats,
		Recommended: Recommendations{
			WorkgroupX: wgX, WorkgroupY: wgY, WorkgroupZ: wgZ,
			BudgetBytes: budget,
		},
		Host: detectHost(),
		Env:  pickEnv([]string{budgetEnv}),
	}, nil
}

// Probe never fails: when no usable GPU exists the report carries
// Available=false plus the reason, with host info still filled in.
func Probe() *Report {
	rep, err := Detect()
	if err != nil {
		return &Report{
			Available: false,
			Reason:    err.Error(),
			WhenISO:   time.Now().UTC().Format(time.RFC3339),
			Runtime:   detectRuntime(),
			Host:      detectHost(),
			Recommended: Recommendations{
				WorkgroupX: 1, WorkgroupY: 1, WorkgroupZ: 1,
			},
		}
	}
	return rep
}

// JSON renders the report, indented.
func (r *Report) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DetectJSON runs a probe and returns the JSON string.
func DetectJSON() (string, error) {
	rep, err := Detect()
	if err != nil {
		return "", err
	}
	return rep.JSON()
}

/* ---------- helpers ---------- */

func chooseWorkgroup(l wgpu.SupportedLimits) (uint32, uint32, uint32) {
	maxX := l.Limits.MaxComputeWorkgroupSizeX
	maxTot := l.Limits.MaxComputeInvocationsPerWorkgroup

	candidates := []uint32{256, 128, 64, 32, 16, 8, 4, 1}
	for _, c := range candidates {
		if c <= maxX && c <= maxTot {
			return c, 1, 1
		}
	}
	// absolute portability fallback
	return 1, 1, 1
}

func featureName(f wgpu.FeatureName) string     { return f.String() }
func backendName(b wgpu.BackendType) string     { return b.String() }
func adapterTypeName(t wgpu.AdapterType) string { return t.String() }

func detectRuntime() string {
	if runtime.GOOS == "js" {
		return "wasm"
	}
	return "native"
}

func detectHost() Host {
	return Host{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		NumCPU:      runtime.NumCPU(),
		CPUFeatures: cpuFeatures(),
	}
}

func cpuFeatures() []string {
	var out []string
	if cpu.X86.HasSSE42 {
		out = append(out, "sse4.2")
	}
	if cpu.X86.HasAVX2 {
		out = append(out, "avx2")
	}
	if cpu.X86.HasAVX512F {
		out = append(out, "avx512f")
	}
	if cpu.X86.HasFMA {
		out = append(out, "fma")
	}
	if cpu.ARM64.HasASIMD {
		out = append(out, "asimd")
	}
	if cpu.ARM64.HasSVE {
		out = append(out, "sve")
	}
	return out
}

func pickEnv(keys []string) map[string]string {
	out := map[string]string{}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
