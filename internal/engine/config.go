package engine

import "fmt"

// ConfigurationError reports invalid engine settings at startup. It is never
// produced per record.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// Config holds the validated pipeline settings.
type Config struct {
	// Workers is the size of the per-posting worker pool.
	Workers int
	// MaxActiveApplications routes further postings to the review queue
	// once reached.
	MaxActiveApplications int
	// LowKeywordThreshold short-circuits to reject below this keyword
	// score when the keyword confidence is high. Saves the external call.
	LowKeywordThreshold int
	// ThresholdReject and ThresholdApply bound the decision bands. The
	// review band between them must be non-empty.
	ThresholdReject int
	ThresholdApply  int
	// LookbackDays bounds the deduplication window.
	LookbackDays int
	// DryRun performs every comparison and assessment without mutating
	// any record.
	DryRun bool
}

// DefaultConfig mirrors the production settings.
func DefaultConfig() Config {
	return Config{
		Workers:               4,
		MaxActiveApplications: 40,
		LowKeywordThreshold:   10,
		ThresholdReject:       60,
		ThresholdApply:        75,
		LookbackDays:          90,
	}
}

// Validate checks the invariants once at startup.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return &ConfigurationError{Reason: "workers must be at least 1"}
	}
	if c.MaxActiveApplications < 1 {
		return &ConfigurationError{Reason: "max active applications must be at least 1"}
	}
	if c.ThresholdReject >= c.ThresholdApply {
		return &ConfigurationError{Reason: fmt.Sprintf(
			"review band is empty: reject threshold %d must be below apply threshold %d",
			c.ThresholdReject, c.ThresholdApply)}
	}
	if c.LookbackDays < 1 {
		return &ConfigurationError{Reason: "lookback days must be at least 1"}
	}
	return nil
}
