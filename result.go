package imageflow

import "time"

// GeneratedImage represents a single generated image.
type GeneratedImage struct {
	// Data contains the raw image bytes
	Data []byte

	// MIMEType of the generated image
	MIMEType string

	// Index is the position in a multi-image result (0-indexed)
	Index int
}

// Result holds the complete outcome of a successful generation request.
// Failures are reported as *Failure errors, never as a partially filled
// Result; every submitted request yields exactly one of the two.
type Result struct {
	// Images contains all generated images
	Images []GeneratedImage

	// Text contains any text response from the model
	Text string

	// ThinkingContent contains the model's reasoning, when requested
	ThinkingContent string

	// SearchSources holds rendered grounding sources when search grounding
	// was enabled and the model consulted it
	SearchSources string

	// Usage contains token/billing information
	Usage *Usage

	// Timing records the admission-to-completion span and each attempt.
	// Observational only; populated by the orchestrator.
	Timing *Timing
}

// Usage contains usage information for billing and monitoring.
type Usage struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
	ImageCount       int
}

// Timing captures wall-clock measurements for one orchestrated operation.
type Timing struct {
	// StartedAt is when the operation was admitted.
	StartedAt time.Time

	// Total is the admission-to-completion span, including backoff waits.
	Total time.Duration

	// Attempts records each backend attempt in order.
	Attempts []AttemptTiming
}

// AttemptTiming records one backend attempt.
type AttemptTiming struct {
	// Number is 1-based.
	Number int

	StartedAt time.Time
	Duration  time.Duration

	// ErrKind is empty for the successful attempt.
	ErrKind ErrorKind
}
