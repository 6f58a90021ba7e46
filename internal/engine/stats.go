package engine

import (
	"sync"

	"github.com/quellwerk/akquise-engine/internal/posting"
)

// statsCollector aggregates decision labels across the worker pool.
type statsCollector struct {
	mu    sync.Mutex
	stats Stats
}

func (c *statsCollector) record(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Processed++
	switch label {
	case posting.DecisionApply:
		c.stats.Applied++
	case posting.DecisionReview:
		c.stats.Review++
	case posting.DecisionReject:
		c.stats.Rejected++
	case "error":
		c.stats.Errors++
	}
}

func (c *statsCollector) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
