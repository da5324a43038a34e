package model

import (
	"math"
	"sync"
	"time"
)

// DefaultEMAPeriod is the default hash-rate smoothing period.
const DefaultEMAPeriod = 30 * time.Second

// minSampleInterval rejects samples taken closer together than this, to
// avoid noisy instantaneous rates.
const minSampleInterval = 100 * time.Millisecond

// HashRate is a point-in-time hash-rate snapshot.
type HashRate struct {
	InstantRate float64
	EMARate     float64
	TotalCount  uint64
	Duration    time.Duration
}

// HashRateCalculator tracks a running hash count and derives both an
// instantaneous rate and an exponentially smoothed rate. Safe for
// concurrent use.
type HashRateCalculator struct {
	mu sync.Mutex

	period time.Duration

	startedAt   time.Time
	lastUpdate  time.Time
	lastCount   uint64
	totalCount  uint64
	instant     float64
	ema         float64
	initialized bool
}

// NewHashRateCalculator creates a calculator with the given EMA
// smoothing period. A zero period uses DefaultEMAPeriod.
func NewHashRateCalculator(period time.Duration) *HashRateCalculator {
	if period <= 0 {
		period = DefaultEMAPeriod
	}
	now := time.Now()
	return &HashRateCalculator{
		period:     period,
		startedAt:  now,
		lastUpdate: now,
	}
}

// Add increments the running total by delta hashes and recomputes the
// instantaneous and EMA rates, skipping samples taken less than 100ms
// after the previous one.
func (c *HashRateCalculator) Add(delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(c.lastUpdate)
	c.totalCount += delta

	if elapsed < minSampleInterval {
		return
	}

	countDelta := c.totalCount - c.lastCount
	c.instant = float64(countDelta) / elapsed.Seconds()

	if !c.initialized {
		c.ema = c.instant
		c.initialized = true
	} else {
		alpha := 1 - math.Exp(-elapsed.Seconds()/c.period.Seconds())
		c.ema = alpha*c.instant + (1-alpha)*c.ema
	}

	c.lastCount = c.totalCount
	c.lastUpdate = now
}

// Snapshot returns the current hash-rate reading.
func (c *HashRateCalculator) Snapshot() HashRate {
	c.mu.Lock()
	defer c.mu.Unlock()

	rate := c.instant
	if c.initialized {
		rate = c.ema
	}
	return HashRate{
		InstantRate: c.instant,
		EMARate:     rate,
		TotalCount:  c.totalCount,
		Duration:    time.Since(c.startedAt),
	}
}

// Reset clears the calculator back to zero, optionally continuing from
// initialCount (useful across a pause/resume where the total should not
// regress).
func (c *HashRateCalculator) Reset(initialCount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.startedAt = now
	c.lastUpdate = now
	c.lastCount = initialCount
	c.totalCount = initialCount
	c.instant = 0
	c.ema = 0
	c.initialized = false
}
