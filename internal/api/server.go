// Package api exposes the compute flow over HTTP: run a kernel over an
// input vector, list registered kernels, report device capabilities.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/haixuanTao/wgpu-compute-tutorials/detector"
	"github.com/haixuanTao/wgpu-compute-tutorials/internal/logger"
	"github.com/haixuanTao/wgpu-compute-tutorials/kernels"
)

// Runner executes a named kernel over input. The GPU-backed implementation
// is compute.Engine; tests inject a CPU fake.
type Runner interface {
	Run(ctx context.Context, kernel string, input []float32) ([]float32, error)
}

type Server struct {
	log    logger.Logger
	runner Runner
	probe  func() *detector.Report
}

func NewServer(log logger.Logger, runner Runner) *Server {
	return &Server{
		log:    log,
		runner: runner,
		probe:  detector.Probe,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/compute", s.handleCompute)
	e.GET("/v1/kernels", s.handleKernels)
	e.GET("/v1/device", s.handleDevice)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleDevice reports capabilities even without a GPU; the report then
// carries available=false and the reason.
func (s *Server) handleDevice(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.probe())
}

func (s *Server) handleKernels(c *echo.Context) error {
	names := kernels.Names()
	infos := make([]KernelInfo, 0, len(names))
	for _, name := range names {
		k, err := kernels.Get(name)
		if err != nil {
			continue
		}
		infos = append(infos, KernelInfo{
			Name:       k.Name,
			Doc:        k.Doc,
			Verifiable: k.Reference != nil,
		})
	}
	return c.JSON(http.StatusOK, KernelList{Kernels: infos})
}
