// Package ratelimit throttles chat traffic per user.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Users keeps one token bucket per user id. Buckets idle for longer than the
// idle TTL are swept lazily, at most once per TTL. A nil *Users allows
// everything.
type Users struct {
	every   rate.Limit
	burst   int
	idleTTL time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

// New returns nil when perSecond or burst is not positive, which disables
// limiting.
func New(perSecond float64, burst int, idleTTL time.Duration) *Users {
	if perSecond <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Users{
		every:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: idleTTL,
		buckets: make(map[string]*bucket),
	}
}

// Allow spends one token of userID's bucket at now.
func (u *Users) Allow(userID string, now time.Time) bool {
	userID = strings.TrimSpace(userID)
	if u == nil || userID == "" {
		return true
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.sweepLocked(now)

	b := u.buckets[userID]
	if b == nil {
		b = &bucket{Limiter: rate.NewLimiter(u.every, u.burst)}
		u.buckets[userID] = b
	}
	b.lastSeen = now
	return b.AllowN(now, 1)
}

// Forget drops the bucket of a user whose connection is gone.
func (u *Users) Forget(userID string) {
	if u == nil {
		return
	}
	u.mu.Lock()
	delete(u.buckets, strings.TrimSpace(userID))
	u.mu.Unlock()
}

// Len reports the number of tracked users.
func (u *Users) Len() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.buckets)
}

func (u *Users) sweepLocked(now time.Time) {
	if now.Before(u.nextSweep) {
		return
	}
	u.nextSweep = now.Add(u.idleTTL)
	cutoff := now.Add(-u.idleTTL)
	for id, b := range u.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(u.buckets, id)
		}
	}
}
