package quota

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Bucket identifies a quota bucket. Buckets split the mode tags by cost:
// 4K output costs three points against the global pool, search and blend
// cost two, everything else one.
type Bucket string

const (
	BucketBasic1K Bucket = "basic_1k"
	BucketBasic4K Bucket = "basic_4k"
	BucketChat    Bucket = "chat"
	BucketBatch1K Bucket = "batch_1k"
	BucketBatch4K Bucket = "batch_4k"
	BucketSearch  Bucket = "search"
	BucketBlend   Bucket = "blend"
)

// BucketFor maps a generation mode tag and resolution tier to its quota
// bucket. Mode and size arrive as plain strings to avoid a circular import
// with the root package.
func BucketFor(mode, size string) Bucket {
	is4K := size == "4K"
	switch mode {
	case "basic":
		if is4K {
			return BucketBasic4K
		}
		return BucketBasic1K
	case "batch":
		if is4K {
			return BucketBatch4K
		}
		return BucketBatch1K
	case "blend", "style":
		return BucketBlend
	default:
		// chat, search
		return Bucket(mode)
	}
}

// BucketLimit configures one bucket.
type BucketLimit struct {
	// Cost in quota points per image (1 point = 1 standard 1K/2K image).
	Cost int

	// DailyLimit is the maximum image count per day for this bucket.
	DailyLimit int

	// DisplayName for UI/status output.
	DisplayName string
}

// Config holds the static quota configuration for one deployment.
type Config struct {
	// GlobalDailyLimit is the shared daily pool, in points.
	GlobalDailyLimit int

	// Cooldown is the minimum gap between admitted attempts from the same
	// cooldown key. Zero disables the check.
	Cooldown time.Duration

	// ResetOffset shifts the daily reset boundary away from UTC midnight.
	ResetOffset time.Duration

	// Buckets maps each bucket to its limits.
	Buckets map[Bucket]BucketLimit
}

var bucketCosts = map[Bucket]int{
	BucketBasic1K: 1,
	BucketBasic4K: 3,
	BucketChat:    1,
	BucketBatch1K: 1,
	BucketBatch4K: 3,
	BucketSearch:  2,
	BucketBlend:   2,
}

var bucketNames = map[Bucket]string{
	BucketBasic1K: "Basic (1K/2K)",
	BucketBasic4K: "Basic (4K)",
	BucketChat:    "Chat",
	BucketBatch1K: "Batch (1K/2K)",
	BucketBatch4K: "Batch (4K)",
	BucketSearch:  "Search",
	BucketBlend:   "Blend/Style",
}

// autoRatios determine how AutoConfig distributes the global pool across
// buckets. Ratios deliberately oversubscribe the pool; the global limit is
// the hard ceiling.
var autoRatios = map[Bucket]float64{
	BucketBasic1K: 0.60,
	BucketBasic4K: 0.20,
	BucketChat:    0.40,
	BucketBatch1K: 0.30,
	BucketBatch4K: 0.10,
	BucketSearch:  0.30,
	BucketBlend:   0.20,
}

var defaultLimits = map[Bucket]int{
	BucketBasic1K: 30,
	BucketBasic4K: 10,
	BucketChat:    20,
	BucketBatch1K: 15,
	BucketBatch4K: 5,
	BucketSearch:  15,
	BucketBlend:   10,
}

// DefaultConfig returns the manual configuration defaults.
func DefaultConfig() Config {
	buckets := make(map[Bucket]BucketLimit, len(bucketCosts))
	for b, cost := range bucketCosts {
		buckets[b] = BucketLimit{
			Cost:        cost,
			DailyLimit:  defaultLimits[b],
			DisplayName: bucketNames[b],
		}
	}
	return Config{
		GlobalDailyLimit: 50,
		Cooldown:         3 * time.Second,
		Buckets:          buckets,
	}
}

// AutoConfig derives per-bucket limits from the global pool size using the
// built-in ratios.
func AutoConfig(globalLimit int) Config {
	buckets := make(map[Bucket]BucketLimit, len(bucketCosts))
	for b, ratio := range autoRatios {
		cost := bucketCosts[b]
		limit := int(float64(globalLimit) * ratio / float64(cost))
		if limit < 1 {
			limit = 1
		}
		buckets[b] = BucketLimit{
			Cost:        cost,
			DailyLimit:  limit,
			DisplayName: bucketNames[b],
		}
	}
	return Config{
		GlobalDailyLimit: globalLimit,
		Cooldown:         3 * time.Second,
		Buckets:          buckets,
	}
}

// FromEnv loads quota configuration from TRIAL_* environment variables.
// TRIAL_QUOTA_MODE selects "manual" (per-bucket TRIAL_<BUCKET>_LIMIT and
// TRIAL_<BUCKET>_COST overrides) or "auto" (limits scaled from
// TRIAL_GLOBAL_QUOTA). The returned warnings come from Validate.
func FromEnv() (Config, []string) {
	v := viper.New()
	v.SetEnvPrefix("TRIAL")
	v.AutomaticEnv()

	v.SetDefault("GLOBAL_QUOTA", 50)
	v.SetDefault("QUOTA_MODE", "manual")
	v.SetDefault("COOLDOWN_SECONDS", 3)
	v.SetDefault("RESET_OFFSET_HOURS", 0)

	global := v.GetInt("GLOBAL_QUOTA")

	var cfg Config
	if v.GetString("QUOTA_MODE") == "auto" {
		cfg = AutoConfig(global)
	} else {
		cfg = DefaultConfig()
		cfg.GlobalDailyLimit = global
		for b := range cfg.Buckets {
			limitKey := fmt.Sprintf("%s_LIMIT", b)
			costKey := fmt.Sprintf("%s_COST", b)
			bl := cfg.Buckets[b]
			if v.IsSet(limitKey) {
				bl.DailyLimit = v.GetInt(limitKey)
			}
			if v.IsSet(costKey) {
				bl.Cost = v.GetInt(costKey)
			}
			cfg.Buckets[b] = bl
		}
	}

	cfg.Cooldown = time.Duration(v.GetInt("COOLDOWN_SECONDS")) * time.Second
	cfg.ResetOffset = time.Duration(v.GetInt("RESET_OFFSET_HOURS")) * time.Hour

	return cfg, cfg.Validate()
}

// Validate checks the configuration for oversubscription and returns
// human-readable warnings. Warnings do not make a config unusable; the
// global pool still caps total spend.
func (c Config) Validate() []string {
	var warnings []string

	totalPossible := 0
	for _, bl := range c.Buckets {
		maxPoints := bl.DailyLimit * bl.Cost
		totalPossible += maxPoints

		if maxPoints > c.GlobalDailyLimit {
			warnings = append(warnings, fmt.Sprintf(
				"%s can use %d points (limit %d x cost %d), exceeding the global pool (%d)",
				bl.DisplayName, maxPoints, bl.DailyLimit, bl.Cost, c.GlobalDailyLimit))
		}
	}

	if totalPossible > c.GlobalDailyLimit*3 {
		warnings = append(warnings, fmt.Sprintf(
			"total possible usage (%d points) far exceeds the global pool (%d); reduce bucket limits or raise the pool",
			totalPossible, c.GlobalDailyLimit))
	}

	return warnings
}
