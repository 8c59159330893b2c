package gpu

import "errors"

// Failure classes of the acquisition → dispatch → readback chain. Callers
// match with errors.Is; everything else arrives wrapped around one of these
// or around the binding's own error.
var (
	ErrNoGPU       = errors.New("gpu: no compute-capable adapter")
	ErrNoDevice    = errors.New("gpu: device creation failed")
	ErrMapFailed   = errors.New("gpu: output buffer mapping failed")
	ErrReadTimeout = errors.New("gpu: buffer readback timed out")
)
