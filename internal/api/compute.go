package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/haixuanTao/wgpu-compute-tutorials/compute"
	"github.com/haixuanTao/wgpu-compute-tutorials/gpu"
	"github.com/haixuanTao/wgpu-compute-tutorials/kernels"
)

// maxSize caps generated inputs so a single request cannot ask for
// gigabytes of staging memory.
const maxSize = 1 << 24

type ComputeRequest struct {
	Kernel string    `json:"kernel,omitempty"`
	Input  []float32 `json:"input,omitempty"`
	Size   *int      `json:"size,omitempty"`
}

type ComputeResponse struct {
	ID         string    `json:"id"`
	Kernel     string    `json:"kernel"`
	Length     int       `json:"length"`
	Values     []float32 `json:"values"`
	DurationMS float64   `json:"duration_ms"`
}

type KernelInfo struct {
	Name       string `json:"name"`
	Doc        string `json:"doc,omitempty"`
	Verifiable bool   `json:"verifiable"`
}

type KernelList struct {
	Kernels []KernelInfo `json:"kernels"`
}

func (s *Server) handleCompute(c *echo.Context) error {
	req, err := decodeJSON[ComputeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "malformed request body: "+err.Error())
	}

	name, input, err := resolveCompute(req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return writeBadRequest(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	start := time.Now()
	out, err := s.runner.Run(c.Request().Context(), name, input)
	if err != nil {
		if errors.Is(err, gpu.ErrNoGPU) || errors.Is(err, gpu.ErrNoDevice) {
			return writeError(c, http.StatusServiceUnavailable, "gpu_unavailable", err.Error())
		}
		s.log.Error("compute failed", "kernel", name, "n", len(input), "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	resp := ComputeResponse{
		ID:         "cmp-" + uuid.NewString(),
		Kernel:     name,
		Length:     len(out),
		Values:     out,
		DurationMS: float64(time.Since(start).Nanoseconds()) / 1e6,
	}
	s.log.Info("compute", "id", resp.ID, "kernel", name, "n", resp.Length)
	return c.JSON(http.StatusOK, resp)
}

// resolveCompute validates the request and materializes its input vector.
func resolveCompute(req ComputeRequest) (string, []float32, error) {
	name := req.Kernel
	if name == "" {
		name = kernels.Default
	}
	if _, err := kernels.Get(name); err != nil {
		return "", nil, newInvalidRequest(err.Error())
	}
	if req.Input != nil && req.Size != nil {
		return "", nil, newInvalidRequest("input and size are mutually exclusive")
	}
	if req.Input != nil {
		return name, req.Input, nil
	}
	if req.Size == nil {
		return "", nil, newInvalidRequest("input or size is required")
	}
	if *req.Size < 0 {
		return "", nil, newInvalidRequest("size must not be negative")
	}
	if *req.Size > maxSize {
		return "", nil, newInvalidRequest(fmt.Sprintf("size exceeds limit of %d", maxSize))
	}
	return name, compute.Ramp(*req.Size), nil
}
