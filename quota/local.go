package quota

import (
	"context"
	"sync"
	"time"
)

// LocalLedger is the in-process Ledger for single-process deployments. One
// mutex guards the whole ledger, so a daily rollover can never race an
// admission check-and-increment.
type LocalLedger struct {
	cfg Config

	mu         sync.Mutex
	day        string
	globalUsed int
	bucketUsed map[Bucket]int
	lastAdmit  map[string]time.Time

	now func() time.Time
}

// Ensure LocalLedger implements Ledger.
var _ Ledger = (*LocalLedger)(nil)

// NewLocalLedger creates a ledger with the given configuration.
func NewLocalLedger(cfg Config) *LocalLedger {
	l := &LocalLedger{
		cfg:        cfg,
		bucketUsed: make(map[Bucket]int),
		lastAdmit:  make(map[string]time.Time),
		now:        time.Now,
	}
	l.day = l.currentDay(l.now())
	return l
}

// currentDay returns the ledger day for t, shifted by the reset offset.
func (l *LocalLedger) currentDay(t time.Time) string {
	return t.UTC().Add(-l.cfg.ResetOffset).Format("2006-01-02")
}

// rollover resets counters when the ledger day has changed. Caller holds mu.
func (l *LocalLedger) rollover(now time.Time) {
	day := l.currentDay(now)
	if day == l.day {
		return
	}
	l.day = day
	l.globalUsed = 0
	l.bucketUsed = make(map[Bucket]int)
	l.lastAdmit = make(map[string]time.Time)
}

// Admit evaluates the attempt as a single critical section: cooldown, then
// the bucket limit, then the global pool. A grant charges both counters and
// stamps the cooldown key; a denial changes nothing.
func (l *LocalLedger) Admit(_ context.Context, att Attempt) (Admission, error) {
	if att.Count <= 0 {
		att.Count = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)

	bl, ok := l.cfg.Buckets[att.Bucket]
	if !ok {
		return Admission{
			Granted:   false,
			Reason:    ReasonUnknownBucket,
			Remaining: l.remaining(att.Bucket),
		}, nil
	}

	if l.cfg.Cooldown > 0 && att.CooldownKey != "" {
		if last, seen := l.lastAdmit[att.CooldownKey]; seen {
			elapsed := now.Sub(last)
			if elapsed < l.cfg.Cooldown {
				return Admission{
					Granted:    false,
					Reason:     ReasonCooldownActive,
					RetryAfter: l.cfg.Cooldown - elapsed,
					Remaining:  l.remaining(att.Bucket),
				}, nil
			}
		}
	}

	if l.bucketUsed[att.Bucket]+att.Count > bl.DailyLimit {
		return Admission{
			Granted:   false,
			Reason:    ReasonBucketExhausted,
			Remaining: l.remaining(att.Bucket),
		}, nil
	}

	cost := bl.Cost * att.Count
	if l.globalUsed+cost > l.cfg.GlobalDailyLimit {
		return Admission{
			Granted:   false,
			Reason:    ReasonGlobalExhausted,
			Remaining: l.remaining(att.Bucket),
		}, nil
	}

	l.bucketUsed[att.Bucket] += att.Count
	l.globalUsed += cost
	if att.CooldownKey != "" {
		l.lastAdmit[att.CooldownKey] = now
	}

	return Admission{
		Granted:   true,
		Remaining: l.remaining(att.Bucket),
	}, nil
}

// remaining computes the post-decision counts. Caller holds mu.
func (l *LocalLedger) remaining(bucket Bucket) Remaining {
	r := Remaining{
		Global: l.cfg.GlobalDailyLimit - l.globalUsed,
	}
	if bl, ok := l.cfg.Buckets[bucket]; ok {
		r.Bucket = bl.DailyLimit - l.bucketUsed[bucket]
	}
	return r
}

// Status returns a display snapshot of today's ledger.
func (l *LocalLedger) Status(_ context.Context) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover(l.now())

	snap := Snapshot{
		Day:             l.day,
		GlobalUsed:      l.globalUsed,
		GlobalLimit:     l.cfg.GlobalDailyLimit,
		GlobalRemaining: l.cfg.GlobalDailyLimit - l.globalUsed,
		Buckets:         make(map[Bucket]BucketStatus, len(l.cfg.Buckets)),
	}
	for b, bl := range l.cfg.Buckets {
		used := l.bucketUsed[b]
		snap.Buckets[b] = BucketStatus{
			DisplayName: bl.DisplayName,
			Used:        used,
			Limit:       bl.DailyLimit,
			Remaining:   bl.DailyLimit - used,
			Cost:        bl.Cost,
		}
	}
	return snap, nil
}

// Reset clears today's counters.
func (l *LocalLedger) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.day = l.currentDay(l.now())
	l.globalUsed = 0
	l.bucketUsed = make(map[Bucket]int)
	l.lastAdmit = make(map[string]time.Time)
	return nil
}
