package github

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// GuardStats provides statistics about rate-limit guard usage
type GuardStats struct {
	RemainingRequests int           `json:"remaining_requests"`
	ResetTime         time.Time     `json:"reset_time"`
	Known             bool          `json:"known"`
	TotalWaits        int64         `json:"total_waits"`
	TotalDelayTime    time.Duration `json:"total_delay_time"`
}

// GuardConfig configures when the guard pauses
type GuardConfig struct {
	// Threshold is the remaining-request count below which calls pause until reset
	Threshold int

	// Buffer is added to the computed wait so the quota has reset on GitHub's side
	Buffer time.Duration
}

// DefaultGuardConfig returns a default guard configuration
func DefaultGuardConfig() *GuardConfig {
	return &GuardConfig{
		Threshold: 100,
		Buffer:    5 * time.Second,
	}
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// RateLimitGuard pauses sequential bulk loops when the API quota runs low. Once the
// remaining count crosses the threshold no further call passes Wait until the reset
// time plus the buffer has elapsed.
type RateLimitGuard struct {
	config *GuardConfig
	source RateSource
	mu     sync.Mutex

	remaining int
	resetTime time.Time
	known     bool

	stats GuardStats

	sleep Sleeper
	now   func() time.Time

	// OnWait is called before the guard sleeps
	OnWait func(remaining int, wait time.Duration)
}

// NewRateLimitGuard creates a guard. source may be nil until SetSource is called.
func NewRateLimitGuard(config *GuardConfig, source RateSource) *RateLimitGuard {
	if config == nil {
		config = DefaultGuardConfig()
	}

	return &RateLimitGuard{
		config: config,
		source: source,
		sleep:  SleepContext,
		now:    time.Now,
	}
}

// SetSource sets where Poll reads the quota from
func (g *RateLimitGuard) SetSource(source RateSource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.source = source
}

// UpdateLimits records quota information from an API response
func (g *RateLimitGuard) UpdateLimits(remaining int, resetTime time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.remaining = remaining
	g.resetTime = resetTime
	g.known = true
	g.stats.RemainingRequests = remaining
	g.stats.ResetTime = resetTime
	g.stats.Known = true
}

// Poll refreshes the quota from the rate limit endpoint
func (g *RateLimitGuard) Poll(ctx context.Context) (*RateStatus, error) {
	g.mu.Lock()
	source := g.source
	g.mu.Unlock()

	if source == nil {
		return nil, fmt.Errorf("rate limit guard has no source")
	}

	status, err := source.RateLimit(ctx)
	if err != nil {
		return nil, fmt.Errorf("polling rate limit: %w", err)
	}

	g.UpdateLimits(status.Remaining, status.Reset)
	return status, nil
}

// Delay returns how long Wait would block right now
func (g *RateLimitGuard) Delay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calculateDelay()
}

// Wait blocks until it is safe to make an API call
func (g *RateLimitGuard) Wait(ctx context.Context) error {
	g.mu.Lock()
	delay := g.calculateDelay()
	if delay <= 0 {
		g.mu.Unlock()
		return ctx.Err()
	}

	remaining := g.remaining
	g.stats.TotalWaits++
	g.stats.TotalDelayTime += delay
	onWait := g.OnWait
	g.mu.Unlock()

	if onWait != nil {
		onWait(remaining, delay)
	}

	if err := g.sleep(ctx, delay); err != nil {
		return err
	}

	// The quota has reset; the count is unknown until the next response or poll.
	g.mu.Lock()
	g.known = false
	g.stats.Known = false
	g.mu.Unlock()

	return nil
}

// Checkpoint polls the quota and waits if it is below the threshold. Bulk loops call
// it before starting and between repositories. A failed poll still waits on the last
// known quota before the poll error is returned.
func (g *RateLimitGuard) Checkpoint(ctx context.Context) error {
	_, pollErr := g.Poll(ctx)
	if err := g.Wait(ctx); err != nil {
		return err
	}
	return pollErr
}

// GetStats returns current guard statistics
func (g *RateLimitGuard) GetStats() GuardStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// calculateDelay must be called with g.mu held
func (g *RateLimitGuard) calculateDelay() time.Duration {
	if !g.known || g.remaining >= g.config.Threshold {
		return 0
	}

	wait := g.resetTime.Sub(g.now())
	if wait <= 0 {
		return 0
	}
	return wait + g.config.Buffer
}
