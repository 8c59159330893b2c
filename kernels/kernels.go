// Package kernels holds the injectable compute kernels the elementwise
// runner executes: name, WGSL source generator, entry point and a CPU
// reference for verification. Builtins register themselves; custom kernels
// come from WGSL files via FromFile.
package kernels

import (
	"errors"
	"sort"
)

// Default is the kernel the original tutorial ships with.
const Default = "cos"

// Kernel is one elementwise transform. Source must declare two storage
// bindings in group 0: binding 0 read (input), binding 1 read_write
// (output).
type Kernel struct {
	Name  string
	Doc   string
	Entry string // shader entry point, "main" unless the source says otherwise
	// Source renders WGSL for n elements with workgroup x-size wg; wg <= 1
	// means one invocation per element and no bounds guard.
	Source func(n int, wg uint32) string
	// Reference computes the same transform on the CPU. Nil when no
	// reference exists (file-loaded kernels), which disables verification.
	Reference func(in []float32) []float32
}

var registry = map[string]Kernel{}

func Register(k Kernel) { registry[k.Name] = k }

func Get(name string) (Kernel, error) {
	k, ok := registry[name]
	if !ok {
		return Kernel{}, errors.New("unknown kernel: " + name)
	}
	return k, nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
