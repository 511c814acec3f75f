// Package quota enforces the shared daily generation quota for callers that
// share one backend credential. Admission is an atomic check-and-update over
// a ledger: cooldown window first, then the per-bucket daily limit, then the
// global daily pool. Quota is charged at admission, not at success; a failed
// backend call still spends provider capacity, so the charge is irrevocable.
package quota

import (
	"context"
	"time"
)

// Ledger is the admission authority shared by all callers. Implementations
// can be local (in-memory) or distributed (an external KV store with atomic
// increments) for multi-process deployments.
type Ledger interface {
	// Admit atomically evaluates an attempt against the ledger and, when
	// granted, charges the bucket and global counters and records the
	// cooldown timestamp. A denial mutates nothing.
	Admit(ctx context.Context, att Attempt) (Admission, error)

	// Status returns a read-only snapshot of today's ledger for display.
	Status(ctx context.Context) (Snapshot, error)

	// Reset clears today's counters. Admin use only; daily rollover is
	// automatic.
	Reset(ctx context.Context) error
}

// Attempt describes one admission request.
type Attempt struct {
	// Bucket is the quota bucket derived from mode and resolution.
	Bucket Bucket

	// CooldownKey identifies the caller for cooldown enforcement.
	CooldownKey string

	// Count is the number of images requested. The bucket counter is
	// charged Count; the global pool is charged Count times the bucket
	// cost.
	Count int
}

// Reason is a stable identifier for an admission denial.
type Reason string

const (
	ReasonCooldownActive  Reason = "cooldown_active"
	ReasonBucketExhausted Reason = "mode_quota_exceeded"
	ReasonGlobalExhausted Reason = "global_quota_exceeded"
	ReasonUnknownBucket   Reason = "unknown_bucket"
)

// Remaining reports capacity left after the admission decision.
type Remaining struct {
	// Global is the remaining global pool in points.
	Global int

	// Bucket is the remaining image count for the attempt's bucket.
	Bucket int
}

// Admission is the outcome of one Admit call.
type Admission struct {
	Granted bool

	// Reason is set on denial.
	Reason Reason

	// RetryAfter hints how long until a cooldown denial would clear.
	RetryAfter time.Duration

	Remaining Remaining
}

// BucketStatus describes one bucket in a Snapshot.
type BucketStatus struct {
	DisplayName string
	Used        int
	Limit       int
	Remaining   int
	Cost        int
}

// Snapshot is a read-only view of the ledger for display. Observers must
// not feed it back into admission decisions.
type Snapshot struct {
	// Day is the ledger day in YYYY-MM-DD form.
	Day string

	GlobalUsed      int
	GlobalLimit     int
	GlobalRemaining int

	Buckets map[Bucket]BucketStatus
}
