package kernels

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FromFile loads a WGSL file as a kernel. The file must declare a @compute
// entry point named main and the runner's two-binding layout. The dispatch
// grid is still derived from the caller's workgroup setting, so it has to
// match the workgroup_size the file declares. No CPU reference is attached,
// so verification is unavailable for file kernels.
func FromFile(path string) (Kernel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Kernel{}, fmt.Errorf("read kernel file: %w", err)
	}
	src := string(raw)
	if !strings.Contains(src, "@compute") {
		return Kernel{}, fmt.Errorf("kernel file %s: missing @compute entry point", path)
	}
	if !strings.Contains(src, "fn main") {
		return Kernel{}, fmt.Errorf("kernel file %s: entry point must be named main", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Kernel{
		Name:   name,
		Doc:    "loaded from " + path,
		Entry:  "main",
		Source: func(int, uint32) string { return src },
	}, nil
}
