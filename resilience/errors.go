package resilience

import "errors"

var (
	// ErrCircuitOpen is returned without calling the store while the breaker
	// is open.
	ErrCircuitOpen = errors.New("resilience: circuit open")

	// ErrTimeout is returned when a guarded call exceeds its deadline.
	ErrTimeout = errors.New("resilience: call timed out")
)
