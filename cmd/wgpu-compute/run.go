package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/haixuanTao/wgpu-compute-tutorials/compute"
	"github.com/haixuanTao/wgpu-compute-tutorials/gpu"
	"github.com/haixuanTao/wgpu-compute-tutorials/internal/logger"
	"github.com/haixuanTao/wgpu-compute-tutorials/kernels"
)

// runResult is the --json output shape.
type runResult struct {
	Kernel     string    `json:"kernel"`
	Adapter    string    `json:"adapter"`
	Length     int       `json:"length"`
	Workgroup  uint32    `json:"workgroup"`
	DurationMS float64   `json:"duration_ms"`
	Values     []float32 `json:"values"`
	Expected   []float32 `json:"expected,omitempty"`
	Verified   *bool     `json:"verified,omitempty"`
}

func runCmd() *cli.Command {
	var (
		size       int64
		kernelName string
		kernelFile string
		workgroup  int64
		power      string
		adapter    string
		verify     bool
		watch      bool
		jsonOut    bool
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Run a kernel over a generated input vector",
		Flags: append(commonFlags(),
			&cli.Int64Flag{
				Name:        "size",
				Aliases:     []string{"n"},
				Usage:       "number of input elements, filled with 0..size-1",
				Value:       1028,
				Destination: &size,
			},
			&cli.StringFlag{
				Name:        "kernel",
				Aliases:     []string{"k"},
				Usage:       "registered kernel name",
				Value:       kernels.Default,
				Destination: &kernelName,
			},
			&cli.StringFlag{
				Name:        "kernel-file",
				Usage:       "WGSL file to run instead of a registered kernel",
				Destination: &kernelFile,
			},
			&cli.Int64Flag{
				Name:        "workgroup",
				Usage:       "workgroup x size (0 = one invocation per element)",
				Destination: &workgroup,
			},
			&cli.StringFlag{
				Name:        "power",
				Usage:       "adapter power preference (high-performance, low-power)",
				Destination: &power,
			},
			&cli.StringFlag{
				Name:        "adapter",
				Usage:       "substring to force a specific adapter",
				Destination: &adapter,
			},
			&cli.BoolFlag{
				Name:        "verify",
				Usage:       "check the output against the CPU reference",
				Destination: &verify,
			},
			&cli.BoolFlag{
				Name:        "watch",
				Usage:       "re-run when --kernel-file changes",
				Destination: &watch,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print a machine-readable result",
				Destination: &jsonOut,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := loadConfig()
			applyLogConfig(c, cfg)
			applyRunConfig(c, cfg, &size, &kernelName, &workgroup, &power, &adapter)
			log := newLog()

			if size < 0 {
				return cli.Exit("--size must not be negative", 1)
			}
			if workgroup < 0 {
				return cli.Exit("--workgroup must not be negative", 1)
			}
			if watch && kernelFile == "" {
				return cli.Exit("--watch requires --kernel-file", 1)
			}

			gctx, err := gpu.New(gpu.Options{PowerPreference: power, Adapter: adapter})
			if err != nil {
				return cli.Exit(fmt.Sprintf("GPU unavailable: %v", err), 1)
			}
			defer gctx.Release()
			log.Debug("adapter selected", "name", gctx.AdapterName())

			runOnce := func() error {
				return runKernelOnce(ctx, log, gctx, runOptions{
					size:       int(size),
					kernelName: kernelName,
					kernelFile: kernelFile,
					workgroup:  uint32(workgroup),
					verify:     verify,
					jsonOut:    jsonOut,
				})
			}

			if err := runOnce(); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if watch {
				return watchKernel(ctx, log, kernelFile, runOnce)
			}
			return nil
		},
	}
}

type runOptions struct {
	size       int
	kernelName string
	kernelFile string
	workgroup  uint32
	verify     bool
	jsonOut    bool
}

func runKernelOnce(ctx context.Context, log logger.Logger, gctx *gpu.Context, opts runOptions) error {
	k, err := resolveKernel(opts.kernelName, opts.kernelFile)
	if err != nil {
		return err
	}

	input := compute.Ramp(opts.size)
	engine := compute.NewEngine(gctx, opts.workgroup)

	start := time.Now()
	out, err := engine.RunKernel(ctx, k, input)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	log.Debug("dispatch complete", "kernel", k.Name, "n", len(out), "took", elapsed)

	var verified *bool
	if opts.verify {
		if err := compute.Verify(k, input, out, 0); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		ok := true
		verified = &ok
	}

	var expected []float32
	if k.Reference != nil {
		expected = k.Reference(head(input, 5))
	}

	if opts.jsonOut {
		res := runResult{
			Kernel:     k.Name,
			Adapter:    gctx.AdapterName(),
			Length:     len(out),
			Workgroup:  opts.workgroup,
			DurationMS: float64(elapsed.Nanoseconds()) / 1e6,
			Values:     head(out, 5),
			Expected:   expected,
			Verified:   verified,
		}
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}

	fmt.Printf("Result: %v\n", head(out, 5))
	if expected != nil {
		fmt.Printf("Expected: %v\n", expected)
	}
	fmt.Printf("Result length: %d\n", len(out))
	if verified != nil && *verified {
		fmt.Printf("Verified against CPU reference (tolerance %g)\n", float64(compute.Tolerance))
	}
	return nil
}

func resolveKernel(name, file string) (kernels.Kernel, error) {
	if file != "" {
		return kernels.FromFile(file)
	}
	return kernels.Get(name)
}

func head(v []float32, n int) []float32 {
	if len(v) < n {
		return v
	}
	return v[:n]
}

// watchKernel re-runs on changes to path until the context ends. Watching
// the parent directory keeps the watch alive across editors that replace
// the file on save.
func watchKernel(ctx context.Context, log logger.Logger, path string, run func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	base := filepath.Base(path)
	log.Info("watching kernel file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			// editors fire bursts of events on save
			time.Sleep(50 * time.Millisecond)
			log.Info("kernel changed, re-running", "path", path)
			if err := run(); err != nil {
				log.Error("run failed", "error", err)
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", "error", werr)
		}
	}
}
