// Package traffic keeps sliding windows of request outcomes for /health.
package traffic

import (
	"sync"
	"time"
)

// retention bounds how long outcomes are kept; windows longer than this undercount.
const retention = 5 * time.Minute

// Outcome classifies a finished request.
type Outcome int

const (
	Success Outcome = iota
	Failure         // upstream or store failure
	Denied          // rejected by the rate limiter
)

// Tracker records outcome timestamps. The zero value is not usable; use New.
type Tracker struct {
	mu    sync.Mutex
	times [3][]time.Time
	now   func() time.Time
}

func New() *Tracker {
	return &Tracker{now: time.Now}
}

// Record adds one outcome at the current time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Snapshot is the outcome counts within one window.
type Snapshot struct {
	Successes int
	Failures  int
	Denials   int
}

// Requests is every outcome, denials included.
func (s Snapshot) Requests() int { return s.Successes + s.Failures + s.Denials }

// ErrorPct is failures as a percentage of served requests (denials excluded).
// Zero when nothing was served.
func (s Snapshot) ErrorPct() float64 {
	served := s.Successes + s.Failures
	if served == 0 {
		return 0
	}
	return float64(s.Failures) * 100 / float64(served)
}

// DenialPct is denials as a percentage of all requests.
func (s Snapshot) DenialPct() float64 {
	if s.Requests() == 0 {
		return 0
	}
	return float64(s.Denials) * 100 / float64(s.Requests())
}

func (t *Tracker) Window(window time.Duration) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.pruneLocked(now)
	cutoff := now.Add(-window)
	return Snapshot{
		Successes: countSince(t.times[Success], cutoff),
		Failures:  countSince(t.times[Failure], cutoff),
		Denials:   countSince(t.times[Denied], cutoff),
	}
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = [3][]time.Time{}
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops outcomes older than retention. Caller holds t.mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	for o := range t.times {
		times := t.times[o]
		i := 0
		for i < len(times) && times[i].Before(cutoff) {
			i++
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
