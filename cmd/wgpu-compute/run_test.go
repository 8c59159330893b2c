package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haixuanTao/wgpu-compute-tutorials/internal/logger"
)

func TestHead(t *testing.T) {
	v := []float32{1, 2, 3}
	if got := head(v, 5); len(got) != 3 {
		t.Fatalf("head should return the whole short slice, got %v", got)
	}
	if got := head(v, 2); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected head: got %v", got)
	}
}

func TestResolveKernel(t *testing.T) {
	t.Run("registered name", func(t *testing.T) {
		k, err := resolveKernel("cos", "")
		if err != nil {
			t.Fatalf("resolveKernel returned error: %v", err)
		}
		if k.Name != "cos" {
			t.Fatalf("unexpected kernel: got %q", k.Name)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, err := resolveKernel("nope", ""); err == nil {
			t.Fatal("expected error for unknown kernel")
		}
	})

	t.Run("file wins over name", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "double.wgsl")
		src := `@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;

@compute @workgroup_size(1, 1, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    output[gid.x] = input[gid.x] * 2.0;
}
`
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatalf("write kernel: %v", err)
		}

		k, err := resolveKernel("cos", path)
		if err != nil {
			t.Fatalf("resolveKernel returned error: %v", err)
		}
		if k.Name != "double" {
			t.Fatalf("unexpected kernel name: got %q", k.Name)
		}
	})
}

func TestWatchKernelRerunsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "k.wgsl")
	if err := os.WriteFile(path, []byte("@compute fn main() {}"), 0o644); err != nil {
		t.Fatalf("write kernel: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.Text(io.Discard, slog.LevelError)
	ran := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watchKernel(ctx, log, path, func() error {
			ran <- struct{}{}
			return nil
		})
	}()

	// Let the watcher install before the write that should trigger it.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("@compute fn main() { }"), 0o644); err != nil {
		t.Fatalf("rewrite kernel: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not trigger a re-run")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected watcher exit: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}
