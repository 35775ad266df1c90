// Package progress defines the observer contract used by the loading,
// parsing and matching stages to report how many records they have handled.
// Reports are advisory: no stage waits on or depends on an observer.
package progress

import (
	"sync"

	"go.uber.org/zap"
)

// Stage names reported by the pipeline.
const (
	StageIndex    = "index"
	StageGenotype = "genotype"
	StageMatch    = "match"
)

// Observer receives progress updates. n is the number of records processed
// so far in the given stage. done is true for the final report of a stage.
type Observer interface {
	Progress(stage string, n int, done bool)
}

// Func adapts a plain function to the Observer interface.
type Func func(stage string, n int, done bool)

// Progress calls f.
func (f Func) Progress(stage string, n int, done bool) { f(stage, n, done) }

type nop struct{}

func (nop) Progress(string, int, bool) {}

// Nop returns an observer that discards every report.
func Nop() Observer { return nop{} }

// OrNop returns obs, or a no-op observer when obs is nil.
func OrNop(obs Observer) Observer {
	if obs == nil {
		return nop{}
	}
	return obs
}

// throttled forwards every Nth report plus the final one.
type throttled struct {
	mu    sync.Mutex
	next  Observer
	every int
	last  map[string]int
}

// Throttle wraps obs so that it only sees a report when the count has
// advanced by at least every records since the last forwarded report,
// and always sees the final report of a stage. Forwarded reports are
// serialized, so obs need not be safe for concurrent use when every > 1.
func Throttle(obs Observer, every int) Observer {
	if obs == nil {
		return nop{}
	}
	if every <= 1 {
		return obs
	}
	return &throttled{next: obs, every: every, last: make(map[string]int)}
}

func (t *throttled) Progress(stage string, n int, done bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.last[stage]
	if done || !seen || n-last >= t.every {
		t.last[stage] = n
		t.next.Progress(stage, n, done)
	}
}

// loggerObserver writes progress to a zap logger.
type loggerObserver struct {
	logger *zap.Logger
}

// NewLogger returns an observer that logs intermediate counts at debug level
// and stage completion at info level.
func NewLogger(l *zap.Logger) Observer {
	if l == nil {
		return nop{}
	}
	return &loggerObserver{logger: l}
}

func (o *loggerObserver) Progress(stage string, n int, done bool) {
	if done {
		o.logger.Info("stage complete", zap.String("stage", stage), zap.Int("records", n))
		return
	}
	o.logger.Debug("progress", zap.String("stage", stage), zap.Int("records", n))
}
