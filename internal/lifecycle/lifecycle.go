// Package lifecycle holds the process phase reported by /health.
package lifecycle

import "sync/atomic"

type Phase int32

const (
	Starting Phase = iota // preferences loading, cache warming
	Serving
	Draining // shutdown signal received
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Serving:
		return "serving"
	case Draining:
		return "shutting-down"
	}
	return "unknown"
}

var phase atomic.Int32

func Set(p Phase) { phase.Store(int32(p)) }

func Current() Phase { return Phase(phase.Load()) }

// IsDraining reports whether the process should stop receiving new traffic.
func IsDraining() bool { return Current() == Draining }
