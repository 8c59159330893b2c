package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
)

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	prev := cfgPath
	cfgPath = path
	t.Cleanup(func() { cfgPath = prev })
}

func TestLoadConfig(t *testing.T) {
	t.Run("reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := "size: 4096\nkernel: sqrt\nworkgroup: 64\nlog_level: debug\nserver_address: 0.0.0.0:9090\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		withConfigPath(t, path)

		cfg := loadConfig()
		if cfg.Size == nil || *cfg.Size != 4096 {
			t.Fatalf("unexpected size: got %v", cfg.Size)
		}
		if cfg.Kernel != "sqrt" {
			t.Fatalf("unexpected kernel: got %q", cfg.Kernel)
		}
		if cfg.Workgroup == nil || *cfg.Workgroup != 64 {
			t.Fatalf("unexpected workgroup: got %v", cfg.Workgroup)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("unexpected log level: got %q", cfg.LogLevel)
		}
		if cfg.ServerAddress != "0.0.0.0:9090" {
			t.Fatalf("unexpected server address: got %q", cfg.ServerAddress)
		}
	})

	t.Run("missing file yields zero config", func(t *testing.T) {
		withConfigPath(t, filepath.Join(t.TempDir(), "nope.yaml"))

		cfg := loadConfig()
		if cfg.Kernel != "" || cfg.Size != nil {
			t.Fatalf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("malformed yaml yields zero config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("size: [not an int\n"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		withConfigPath(t, path)

		cfg := loadConfig()
		if cfg.Size != nil {
			t.Fatalf("expected zero config, got %+v", cfg)
		}
	})
}

func TestConfigPath(t *testing.T) {
	t.Run("flag override wins", func(t *testing.T) {
		withConfigPath(t, "/etc/custom.yaml")
		if got := configPath(); got != "/etc/custom.yaml" {
			t.Fatalf("unexpected config path: got %q", got)
		}
	})

	t.Run("defaults under user config dir", func(t *testing.T) {
		withConfigPath(t, "")
		got := configPath()
		if got == "" {
			t.Skip("no user config dir on this host")
		}
		want := filepath.Join("wgpu-compute", "config.yaml")
		if !strings.HasSuffix(got, want) {
			t.Fatalf("unexpected config path: got %q want suffix %q", got, want)
		}
	})
}

func TestApplyRunConfig(t *testing.T) {
	var (
		size      int64
		kernel    string
		workgroup int64
		power     string
		adapter   string
	)

	cfgSize := int64(64)
	cfg := Config{Size: &cfgSize, Kernel: "sqrt", Power: "low-power"}

	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "size", Aliases: []string{"n"}, Value: 1028, Destination: &size},
			&cli.StringFlag{Name: "kernel", Aliases: []string{"k"}, Value: "cos", Destination: &kernel},
			&cli.Int64Flag{Name: "workgroup", Destination: &workgroup},
			&cli.StringFlag{Name: "power", Destination: &power},
			&cli.StringFlag{Name: "adapter", Destination: &adapter},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			applyRunConfig(c, cfg, &size, &kernel, &workgroup, &power, &adapter)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), []string{"test", "--size", "10"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if size != 10 {
		t.Fatalf("explicit --size overridden by config: got %d", size)
	}
	if kernel != "sqrt" {
		t.Fatalf("config kernel not applied: got %q", kernel)
	}
	if power != "low-power" {
		t.Fatalf("config power not applied: got %q", power)
	}
	if workgroup != 0 {
		t.Fatalf("workgroup changed without config value: got %d", workgroup)
	}
	if adapter != "" {
		t.Fatalf("adapter changed without config value: got %q", adapter)
	}
}
