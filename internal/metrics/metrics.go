package metrics

import (
	"sync/atomic"
	"time"
)

// Resolve outcomes
const (
	OutcomeFound   = "found"
	OutcomeNoValue = "no_value"
	OutcomeAbsent  = "absent"
	OutcomeError   = "error"
)

// Collector receives catalog and resolver events.
type Collector interface {
	// RecordBuild is called after every index build. rows and dropped are
	// zero when err is non-nil.
	RecordBuild(rows, dropped int, duration time.Duration, err error)

	// RecordCacheLookup is called on every index request; hit is true when the
	// current index was served without waiting on a build.
	RecordCacheLookup(hit bool)

	// RecordResolve is called once per resolve with one of the Outcome constants.
	RecordResolve(outcome string)
}

// Noop discards every event.
type Noop struct{}

func (Noop) RecordBuild(int, int, time.Duration, error) {}
func (Noop) RecordCacheLookup(bool)                     {}
func (Noop) RecordResolve(string)                       {}

// Basic keeps in-memory counters, handy in tests.
type Basic struct {
	Builds      atomic.Int64
	BuildErrors atomic.Int64
	Rows        atomic.Int64
	Hits        atomic.Int64
	Misses      atomic.Int64

	Found   atomic.Int64
	NoValue atomic.Int64
	Absent  atomic.Int64
	Errors  atomic.Int64
}

// RecordBuild implements Collector.
func (b *Basic) RecordBuild(rows, _ int, _ time.Duration, err error) {
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.Builds.Add(1)
	b.Rows.Store(int64(rows))
}

// RecordCacheLookup implements Collector.
func (b *Basic) RecordCacheLookup(hit bool) {
	if hit {
		b.Hits.Add(1)
	} else {
		b.Misses.Add(1)
	}
}

// RecordResolve implements Collector.
func (b *Basic) RecordResolve(outcome string) {
	switch outcome {
	case OutcomeFound:
		b.Found.Add(1)
	case OutcomeNoValue:
		b.NoValue.Add(1)
	case OutcomeAbsent:
		b.Absent.Add(1)
	case OutcomeError:
		b.Errors.Add(1)
	}
}
