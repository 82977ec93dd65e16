package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	sweepInterval = 10 * time.Minute
	sweepMaxAge   = time.Hour
)

// Limit caps an action at MaxRequests per sliding Window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter is an in-memory per-(subject, action) sliding-window rate limiter.
// State is process-local: each worker instance enforces its own view, which
// is fine for abuse mitigation but not for strict quota accounting.
type Limiter struct {
	mu        sync.Mutex
	limits    map[string]Limit
	actions   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func New(limits map[string]Limit) *Limiter {
	return &Limiter{
		limits:    limits,
		actions:   make(map[string][]time.Time),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// NewWithClock injects a clock for deterministic tests.
func NewWithClock(limits map[string]Limit, now func() time.Time) *Limiter {
	l := New(limits)
	l.now = now
	l.lastSweep = now()
	return l
}

// DefaultLimits mirrors the production action table.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"check_live":       {MaxRequests: 5, Window: 60 * time.Second},
		"live_check_logic": {MaxRequests: 10, Window: 60 * time.Second},
		"button_click":     {MaxRequests: 20, Window: 60 * time.Second},
		"payment":          {MaxRequests: 3, Window: 300 * time.Second},
		"message":          {MaxRequests: 10, Window: 60 * time.Second},
	}
}

// Allowed reports whether the subject may perform the action now, and
// records the action when it is permitted. Unknown actions are always
// allowed (fail-open for forward compatibility).
func (l *Limiter) Allowed(subjectID int64, action string) bool {
	limit, ok := l.limits[action]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := limiterKey(subjectID, action)
	queue := expire(l.actions[key], now.Add(-limit.Window))

	if len(queue) >= limit.MaxRequests {
		l.actions[key] = queue
		slog.Warn("rate limit exceeded", "subject_id", subjectID, "action", action)
		return false
	}

	l.actions[key] = append(queue, now)
	l.sweepLocked(now)
	return true
}

// ResetIn returns how long until the oldest retained entry leaves the
// window. Zero when nothing is recorded or the action is unknown.
func (l *Limiter) ResetIn(subjectID int64, action string) time.Duration {
	limit, ok := l.limits[action]
	if !ok {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	queue := l.actions[limiterKey(subjectID, action)]
	if len(queue) == 0 {
		return 0
	}

	remaining := queue[0].Add(limit.Window).Sub(l.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetInSeconds is ResetIn rounded down to whole seconds.
func (l *Limiter) ResetInSeconds(subjectID int64, action string) int {
	return int(l.ResetIn(subjectID, action) / time.Second)
}

// sweepLocked drops stale queues so the map does not grow with every
// subject/action pair ever seen. Runs opportunistically, at most every
// sweepInterval. Caller must hold mu.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}

	removed := 0
	cutoff := now.Add(-sweepMaxAge)
	for key, queue := range l.actions {
		queue = expire(queue, cutoff)
		if len(queue) == 0 {
			delete(l.actions, key)
			removed++
			continue
		}
		l.actions[key] = queue
	}

	l.lastSweep = now
	if removed > 0 {
		slog.Info("swept rate limit queues", "removed", removed)
	}
}

func expire(queue []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(queue) && !queue[i].After(cutoff) {
		i++
	}
	return queue[i:]
}

func limiterKey(subjectID int64, action string) string {
	return fmt.Sprintf("%d:%s", subjectID, action)
}
