package imageflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mhpenta/imageflow/progress"
	"github.com/mhpenta/imageflow/quota"
)

// RetryPolicy bounds the orchestrator's retry behavior for transient
// backend failures. The backoff values are floors; attempts never start
// earlier than the scheduled delay.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int

	// Backoff holds the delay before each retry. The last entry repeats if
	// MaxAttempts exceeds the schedule length.
	Backoff []time.Duration
}

// DefaultRetryPolicy returns the production policy: 3 attempts with
// 2s/4s/8s backoff floors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second},
	}
}

// delay returns the backoff after the given 1-based attempt.
func (p RetryPolicy) delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}

// Orchestrator executes generation requests against a backend: quota
// admission first, then bounded retries with error classification, with
// lifecycle events published to an optional progress tracker throughout.
type Orchestrator struct {
	backend Backend
	ledger  quota.Ledger
	tracker *progress.Tracker
	storage Storage
	logger  *slog.Logger
	retry   RetryPolicy

	batchConcurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLedger sets the quota ledger consulted before every backend call.
// Without a ledger, all requests are admitted.
func WithLedger(ledger quota.Ledger) Option {
	return func(o *Orchestrator) {
		o.ledger = ledger
	}
}

// WithTracker sets the progress tracker that receives lifecycle events.
func WithTracker(tracker *progress.Tracker) Option {
	return func(o *Orchestrator) {
		o.tracker = tracker
	}
}

// WithLogger sets a structured logger for the orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithStorage sets a storage backend for persisting generated images.
// Use SaveResult to save images after generation.
func WithStorage(storage Storage) Option {
	return func(o *Orchestrator) {
		o.storage = storage
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.retry = policy
	}
}

// WithBatchConcurrency bounds how many requests ExecuteBatch runs at once.
// Values below 1 are ignored and the default of 2 is kept.
func WithBatchConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchConcurrency = n
		}
	}
}

// NewOrchestrator creates an Orchestrator for the given backend.
//
// Example:
//
//	backend, err := gemini.New(ctx, gemini.Config{APIKey: apiKey})
//	if err != nil {
//	    return err
//	}
//	orch := imageflow.NewOrchestrator(backend,
//	    imageflow.WithLedger(quota.NewLocalLedger(quotaCfg)),
//	    imageflow.WithTracker(tracker),
//	)
func NewOrchestrator(backend Backend, opts ...Option) *Orchestrator {
	if backend == nil {
		panic("imageflow: nil backend")
	}

	o := &Orchestrator{
		backend:          backend,
		logger:           slog.Default(),
		retry:            DefaultRetryPolicy(),
		batchConcurrency: 2,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Close releases backend resources.
func (o *Orchestrator) Close() error {
	return o.backend.Close()
}

// Storage returns the configured storage backend, or nil if not set.
func (o *Orchestrator) Storage() Storage {
	return o.storage
}

// SaveResult saves all images from a Result to the configured storage.
// If no storage is configured, returns ErrStorageNotConfigured.
func (o *Orchestrator) SaveResult(ctx context.Context, result *Result, basePath string, meta SaveMetadata) ([]StorageResult, error) {
	return SaveToStorage(ctx, o.storage, result, basePath, meta)
}

// Cancel requests cooperative cancellation of an in-flight operation. It
// cannot interrupt a backend call already on the wire; it suppresses
// further retry attempts and makes Cancelled the final observed state.
// Without a tracker this is a no-op.
func (o *Orchestrator) Cancel(id uuid.UUID) {
	if o.tracker != nil {
		o.tracker.Cancel(id)
	}
}

// Execute runs one generation request to its terminal outcome. Expected
// failures — admission denials, classified backend errors, exhausted
// retries, cancellation — come back as a *Failure error; any returned
// Result is a success.
func (o *Orchestrator) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		panic("imageflow: nil request")
	}

	r := req.clone()
	r.normalize()
	opID := r.OperationID

	logger := o.logger.With(
		"operation_id", opID.String(),
		"mode", string(r.Mode),
	)

	o.trackBegin(opID, string(r.Mode))

	logger.Debug("starting generation",
		"prompt_length", len(r.Prompt),
		"image_count", len(r.Images),
		"size", string(r.Size),
	)

	if err := ValidateRequest(r); err != nil {
		o.trackFail(opID, KindInvalidRequest)
		logger.Warn("request rejected by validation", "error", err.Error())
		return nil, &Failure{
			Kind:    KindInvalidRequest,
			Message: err.Error(),
			Err:     err,
		}
	}

	if fail := o.admit(ctx, r, logger); fail != nil {
		o.trackFail(opID, fail.Kind)
		return nil, fail
	}
	o.trackAdmit(opID)

	start := time.Now()
	timing := &Timing{StartedAt: start}

	var lastErr error
	for attempt := 1; attempt <= o.retry.MaxAttempts; attempt++ {
		if o.cancelRequested(opID) {
			o.trackCancelled(opID)
			logger.Info("generation cancelled", "attempts", attempt-1)
			return nil, &Failure{
				Kind:    KindCancelled,
				Message: "cancellation requested",
			}
		}

		o.trackRun(opID, attempt)

		attemptStart := time.Now()
		result, err := o.backend.Generate(ctx, r)
		attemptDur := time.Since(attemptStart)

		if err == nil {
			timing.Attempts = append(timing.Attempts, AttemptTiming{
				Number:    attempt,
				StartedAt: attemptStart,
				Duration:  attemptDur,
			})
			timing.Total = time.Since(start)
			result.Timing = timing

			o.trackSucceed(opID)

			logAttrs := []any{
				"duration_ms", timing.Total.Milliseconds(),
				"attempts", attempt,
				"image_count", len(result.Images),
			}
			if result.Usage != nil {
				logAttrs = append(logAttrs,
					"prompt_tokens", result.Usage.PromptTokens,
					"response_tokens", result.Usage.CandidatesTokens,
					"total_tokens", result.Usage.TotalTokens,
				)
			}
			logger.Info("generation completed", logAttrs...)

			return result, nil
		}

		kind := Classify(err)
		timing.Attempts = append(timing.Attempts, AttemptTiming{
			Number:    attempt,
			StartedAt: attemptStart,
			Duration:  attemptDur,
			ErrKind:   kind,
		})
		lastErr = err

		if kind == KindCancelled {
			o.trackCancelled(opID)
			return nil, &Failure{
				Kind:    KindCancelled,
				Message: "context cancelled",
				Err:     err,
			}
		}

		if kind != KindTransient {
			o.trackFail(opID, kind)
			logger.Error("generation failed",
				"error_kind", string(kind),
				"attempt", attempt,
				"error", err.Error(),
			)
			return nil, &Failure{
				Kind:       kind,
				Message:    err.Error(),
				Retriable:  kind == KindRateLimited,
				RetryAfter: retryAfterOf(err),
				Err:        err,
			}
		}

		logger.Warn("transient backend failure",
			"attempt", attempt,
			"max_attempts", o.retry.MaxAttempts,
			"error", err.Error(),
		)

		if attempt < o.retry.MaxAttempts {
			if err := o.wait(ctx, o.retry.delay(attempt)); err != nil {
				o.trackCancelled(opID)
				return nil, &Failure{
					Kind:    KindCancelled,
					Message: "context cancelled during backoff",
					Err:     err,
				}
			}
		}
	}

	o.trackFail(opID, KindTransient)
	logger.Error("retry budget exhausted",
		"attempts", o.retry.MaxAttempts,
		"error", lastErr.Error(),
	)
	return nil, &Failure{
		Kind:      KindTransient,
		Message:   "retry budget exhausted",
		Retriable: false,
		Err:       lastErr,
	}
}

// admit consults the quota ledger. A nil return means the request may
// proceed; otherwise the returned Failure is the terminal outcome and no
// network call is made.
func (o *Orchestrator) admit(ctx context.Context, r *Request, logger *slog.Logger) *Failure {
	if o.ledger == nil {
		return nil
	}

	adm, err := o.ledger.Admit(ctx, quota.Attempt{
		Bucket:      quota.BucketFor(string(r.Mode), string(r.Size)),
		CooldownKey: r.ClientKey,
		Count:       r.Count,
	})
	if err != nil {
		logger.Error("quota ledger unavailable", "error", err.Error())
		return &Failure{
			Kind:      KindTransient,
			Message:   "quota ledger unavailable",
			Retriable: true,
			Err:       err,
		}
	}
	if adm.Granted {
		return nil
	}

	logger.Warn("admission denied",
		"reason", string(adm.Reason),
		"global_remaining", adm.Remaining.Global,
		"bucket_remaining", adm.Remaining.Bucket,
	)

	if adm.Reason == quota.ReasonCooldownActive {
		return &Failure{
			Kind:       KindCooldownActive,
			Message:    "cooldown active",
			Retriable:  true,
			RetryAfter: adm.RetryAfter,
		}
	}
	return &Failure{
		Kind:    KindQuotaExceeded,
		Message: string(adm.Reason),
	}
}

// wait blocks for the backoff delay or until ctx is cancelled.
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfterOf extracts a retry hint from a backend error, if present.
func retryAfterOf(err error) time.Duration {
	var be *BackendError
	if errors.As(err, &be) {
		return be.RetryAfter
	}
	return 0
}

// Tracker event helpers; all nil-safe so a tracker stays optional.

func (o *Orchestrator) trackBegin(id uuid.UUID, mode string) {
	if o.tracker != nil {
		o.tracker.Begin(id, mode)
	}
}

func (o *Orchestrator) trackAdmit(id uuid.UUID) {
	if o.tracker != nil {
		o.tracker.Admit(id)
	}
}

func (o *Orchestrator) trackRun(id uuid.UUID, attempt int) {
	if o.tracker != nil {
		o.tracker.Run(id, attempt)
	}
}

func (o *Orchestrator) trackSucceed(id uuid.UUID) {
	if o.tracker != nil {
		o.tracker.Succeed(id)
	}
}

func (o *Orchestrator) trackFail(id uuid.UUID, kind ErrorKind) {
	if o.tracker != nil {
		o.tracker.Fail(id, string(kind))
	}
}

func (o *Orchestrator) trackCancelled(id uuid.UUID) {
	if o.tracker != nil {
		o.tracker.MarkCancelled(id)
	}
}

func (o *Orchestrator) cancelRequested(id uuid.UUID) bool {
	return o.tracker != nil && o.tracker.CancelRequested(id)
}
