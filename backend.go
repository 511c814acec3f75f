package imageflow

import "context"

// Backend is the sole network dependency of the core: one synchronous call
// per generation attempt against a remote model service.
//
// Implementations must represent expected remote failures as *BackendError
// values so the orchestrator can classify them; any other error is treated
// as transient. Generate must honor ctx cancellation.
type Backend interface {
	// Generate performs a single generation attempt. The request carries the
	// prompt, reference images, output configuration and any conversation
	// history to replay as context.
	Generate(ctx context.Context, req *Request) (*Result, error)

	// Close releases any resources held by the backend.
	Close() error
}
