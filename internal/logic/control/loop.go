// Package control drives a mount in real time: a fast loop steps the motors
// and a slow loop retargets auto-tracking and publishes the mount state.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/logic/mount"
)

// StatusSink receives a mount snapshot on every slow cycle.
type StatusSink interface {
	Observe(st mount.Status)
}

// Sinks fans a snapshot out to several sinks in order. Nil entries are skipped.
type Sinks []StatusSink

// Observe implements StatusSink.
func (s Sinks) Observe(st mount.Status) {
	for _, sink := range s {
		if sink != nil {
			sink.Observe(st)
		}
	}
}

// Loop serializes every access to a Mount. The motor tick, the auto-track
// recompute and user commands all take the same lock.
type Loop struct {
	mu    sync.Mutex
	mount *mount.Mount

	tickInterval  time.Duration
	trackInterval time.Duration
	sink          StatusSink
}

// NewLoop wraps m. sink may be nil.
func NewLoop(m *mount.Mount, tickInterval, trackInterval time.Duration, sink StatusSink) *Loop {
	return &Loop{
		mount:         m,
		tickInterval:  tickInterval,
		trackInterval: trackInterval,
		sink:          sink,
	}
}

// Run ticks the motors until ctx is done and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	debug.Section("Control loop")
	debug.Value("tick interval", l.tickInterval)
	debug.Value("track interval", l.trackInterval)

	tick := time.NewTicker(l.tickInterval)
	defer tick.Stop()
	track := time.NewTicker(l.trackInterval)
	defer track.Stop()

	l.publish()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			l.mu.Lock()
			l.mount.Tick()
			l.mu.Unlock()
		case <-track.C:
			l.housekeeping()
		}
	}
}

// housekeeping recomputes the auto-track target. A failed recompute keeps
// the previous target; the motors finish the last issued move.
func (l *Loop) housekeeping() {
	l.mu.Lock()
	if err := l.mount.RecomputeAutoTrackTarget(); err != nil {
		debug.Error(err)
	}
	l.mu.Unlock()
	l.publish()
}

func (l *Loop) publish() {
	if l.sink == nil {
		return
	}
	l.sink.Observe(l.Status())
}

// Do runs fn with exclusive access to the mount.
func (l *Loop) Do(fn func(m *mount.Mount) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.mount)
}

// Status returns a snapshot of the mount.
func (l *Loop) Status() mount.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mount.Status()
}
