package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SummaryCache memoizes the last dashboard summary for a short TTL.
// Entries are replaced whole under the lock, so readers never see a torn value.
type SummaryCache struct {
	mu         sync.Mutex
	now        Clock
	ttl        time.Duration
	value      *DashboardSummary
	computedAt time.Time

	group   singleflight.Group
	metrics *Metrics
}

func NewSummaryCache(now Clock, ttl time.Duration, metrics *Metrics) *SummaryCache {
	if now == nil {
		now = SystemClock
	}
	return &SummaryCache{now: now, ttl: ttl, metrics: metrics}
}

// Get returns the cached summary if it is younger than the TTL, otherwise
// computes a fresh one. Concurrent misses share a single computation.
func (c *SummaryCache) Get(ctx context.Context, compute func(context.Context) (*DashboardSummary, error)) (*DashboardSummary, error) {
	if v, ok := c.lookup(); ok {
		c.metrics.cacheLookup(true)
		return v, nil
	}
	c.metrics.cacheLookup(false)

	v, err, _ := c.group.Do("summary", func() (interface{}, error) {
		// A concurrent caller may have refilled the slot while we waited.
		if v, ok := c.lookup(); ok {
			return v, nil
		}
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		summary, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(summary)
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DashboardSummary), nil
}

func (c *SummaryCache) lookup() (*DashboardSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil || c.now().Sub(c.computedAt) >= c.ttl {
		return nil, false
	}
	return c.value, true
}

func (c *SummaryCache) store(v *DashboardSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.computedAt = c.now()
}
