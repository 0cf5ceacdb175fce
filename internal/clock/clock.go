// Package clock provides the wall-clock source used to timestamp alignment
// and auto-tracking. Reading the clock may fail.
package clock

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnavailable is returned when the wall clock cannot be read.
var ErrUnavailable = errors.New("clock unavailable")

// Clock returns the current wall-clock time in seconds since the Unix epoch.
type Clock interface {
	NowSeconds() (float64, error)
}

// Wall reads the host wall clock.
type Wall struct{}

// NowSeconds implements Clock.
func (Wall) NowSeconds() (float64, error) {
	sec, nsec, err := now()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return float64(sec) + float64(nsec)/1e9, nil
}

// Fake is a manually driven clock for tests and simulation.
type Fake struct {
	mu  sync.Mutex
	now float64
	err error
}

// NewFake returns a fake clock set to start seconds.
func NewFake(start float64) *Fake {
	return &Fake{now: start}
}

// NowSeconds implements Clock. It fails with ErrUnavailable while a failure is set.
func (f *Fake) NowSeconds() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, f.err)
	}
	return f.now, nil
}

// Set moves the clock to t seconds.
func (f *Fake) Set(t float64) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d seconds.
func (f *Fake) Advance(d float64) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

// Fail makes subsequent reads fail with err. A nil err restores the clock.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}
