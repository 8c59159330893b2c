package detector

import (
	"runtime"
	"testing"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

func limitsWith(maxX, maxTotal uint32) wgpu.SupportedLimits {
	var l wgpu.SupportedLimits
	l.Limits.MaxComputeWorkgroupSizeX = maxX
	l.Limits.MaxComputeInvocationsPerWorkgroup = maxTotal
	return l
}

func TestChooseWorkgroup(t *testing.T) {
	cases := []struct {
		maxX, maxTotal uint32
		want           uint32
	}{
		{1024, 1024, 256},
		{256, 256, 256},
		{128, 1024, 128},
		{64, 64, 64},
		{256, 32, 32},
		{3, 1024, 1},
		{0, 0, 1},
	}
	for _, tc := range cases {
		x, y, z := chooseWorkgroup(limitsWith(tc.maxX, tc.maxTotal))
		if x != tc.want || y != 1 || z != 1 {
			t.Errorf("chooseWorkgroup(maxX=%d, maxTotal=%d): expected (%d,1,1), got (%d,%d,%d)",
				tc.maxX, tc.maxTotal, tc.want, x, y, z)
		}
	}
}

// TestProbe verifies the never-failing path with or without a GPU present.
func TestProbe(t *testing.T) {
	rep := Probe()
	if rep == nil {
		t.Fatal("Probe returned nil")
	}
	if !rep.Available && rep.Reason == "" {
		t.Error("Unavailable report must carry a reason")
	}
	if rep.Host.OS != runtime.GOOS {
		t.Errorf("Expected host OS %q, got %q", runtime.GOOS, rep.Host.OS)
	}
	if rep.Host.NumCPU < 1 {
		t.Errorf("Expected at least one CPU, got %d", rep.Host.NumCPU)
	}
	if _, err := time.Parse(time.RFC3339, rep.WhenISO); err != nil {
		t.Errorf("WhenISO not RFC3339: %q", rep.WhenISO)
	}

	out, err := rep.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	if out == "" || out[0] != '{' {
		t.Errorf("Expected JSON object, got %q", out)
	}
}
