package client

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff is a bounded exponential retry schedule.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	Jitter      float64 // randomization factor in [0, 1)
	MaxAttempts int     // 0 means retry forever
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial:     500 * time.Millisecond,
		Max:         30 * time.Second,
		Multiplier:  2,
		Jitter:      0.2,
		MaxAttempts: 10,
	}
}

// policy returns a fresh schedule. NextBackOff yields backoff.Stop once
// MaxAttempts retries have been handed out.
func (b Backoff) policy() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if b.Initial > 0 {
		eb.InitialInterval = b.Initial
	}
	eb.MaxInterval = b.Max
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = time.Duration(math.MaxInt64)
	}
	eb.Multiplier = max(b.Multiplier, 1)
	eb.RandomizationFactor = b.Jitter
	// attempts bound the schedule, not wall time
	eb.MaxElapsedTime = 0
	eb.Reset()

	if b.MaxAttempts > 0 {
		return backoff.WithMaxRetries(eb, uint64(b.MaxAttempts))
	}
	return eb
}
