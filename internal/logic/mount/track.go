package mount

import (
	"fmt"
	"time"

	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/logic/tracking"
)

// StartAutoTrack captures the current position and time as the tracking
// reference and switches to AutoTracking. An altazimuth mount without a
// pivot keeps its mode and reports ErrPivotNotSet.
func (m *Mount) StartAutoTrack() error {
	now, err := m.clk.NowSeconds()
	if err != nil {
		return fmt.Errorf("start auto-track: %w", err)
	}
	cur := m.CurrentSteps()
	if err := m.tracker.Start(m.kind, cur, now); err != nil {
		return err
	}
	m.x.MoveTo(m.x.CurrentPosition())
	m.y.MoveTo(m.y.CurrentPosition())
	debug.Info("Auto-track started at (%.0f, %.0f)", cur.X, cur.Y)
	return nil
}

// StopAutoTrack returns to Manual with both axes at rest.
func (m *Mount) StopAutoTrack() {
	m.tracker.Stop()
	m.x.SetSpeed(0)
	m.y.SetSpeed(0)
	m.lastManual = [2]int8{}
	debug.Info("Auto-track stopped")
}

// ToggleAutoTrack starts tracking from Manual and stops it otherwise.
func (m *Mount) ToggleAutoTrack() error {
	if m.tracker.Mode() == tracking.Manual {
		return m.StartAutoTrack()
	}
	m.StopAutoTrack()
	return nil
}

// RecomputeAutoTrackTarget retargets the axes to follow the sky. It does
// nothing unless auto-tracking.
func (m *Mount) RecomputeAutoTrackTarget() error {
	if m.tracker.Mode() != tracking.AutoTracking {
		return nil
	}
	now, err := m.clk.NowSeconds()
	if err != nil {
		return fmt.Errorf("auto-track: %w", err)
	}
	target, ok := m.tracker.Target(m.kind, now, m.axes.X.StepsPerRad())
	if !ok {
		return nil
	}
	if err := m.safeMoveTo(target, m.opts.MaxSpeed, SourceTrack); err != nil {
		return fmt.Errorf("auto-track: %w", err)
	}
	elapsed := time.Duration((now - m.tracker.State().StartTime) * float64(time.Second))
	debug.Track(elapsed, m.x.TargetPosition(), m.y.TargetPosition())
	m.rec.AutoTrackRecomputed()
	return nil
}

// SetManualSpeed drives the axes at x/128 and y/128 of the maximum speed and
// switches to Manual. A repeat of the previous command is ignored.
func (m *Mount) SetManualSpeed(x, y int8) {
	cmd := [2]int8{x, y}
	if cmd == m.lastManual {
		return
	}
	m.lastManual = cmd
	m.tracker.SetMode(tracking.Manual)

	vx := float64(x) / 128 * m.opts.MaxSpeed
	vy := float64(y) / 128 * m.opts.MaxSpeed
	m.x.SetMaxSpeed(m.opts.MaxSpeed)
	m.x.SetSpeed(vx)
	m.y.SetMaxSpeed(m.opts.MaxSpeed)
	m.y.SetSpeed(vy)
	debug.Live("manual speed (%.1f, %.1f) steps/s", vx, vy)
}

// Tick advances both motors by at most one step. It never blocks and never
// fails.
func (m *Mount) Tick() {
	if m.tracker.Mode() == tracking.Manual {
		m.x.RunSpeed()
		m.y.RunSpeed()
		return
	}
	m.x.Run()
	m.y.Run()
}
