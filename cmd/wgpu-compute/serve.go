package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/haixuanTao/wgpu-compute-tutorials/compute"
	"github.com/haixuanTao/wgpu-compute-tutorials/gpu"
	"github.com/haixuanTao/wgpu-compute-tutorials/internal/api"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		workgroup   int64
		power       string
		adapter     string
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the compute REST API",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
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
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := loadConfig()
			applyLogConfig(cmd, cfg)
			applyServeConfig(cmd, cfg, &addr, &workgroup, &power, &adapter)
			log := newLog()

			var runner api.Runner
			gctx, err := gpu.New(gpu.Options{PowerPreference: power, Adapter: adapter})
			if err != nil {
				log.Warn("starting without GPU, compute requests will fail", "error", err)
				runner = unavailableRunner{err: err}
			} else {
				defer gctx.Release()
				log.Info("GPU ready", "adapter", gctx.AdapterName())
				runner = compute.NewEngine(gctx, uint32(workgroup))
			}

			server := api.NewServer(log, runner)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// unavailableRunner stands in when no GPU could be acquired at startup, so
// the API still answers /healthz and /v1/kernels while compute requests get
// a 503 instead of a dead process.
type unavailableRunner struct {
	err error
}

func (u unavailableRunner) Run(_ context.Context, _ string, _ []float32) ([]float32, error) {
	return nil, fmt.Errorf("gpu unavailable: %w", u.err)
}
