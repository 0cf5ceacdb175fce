package mount

import (
	"fmt"

	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/logic/alignment"
	"github.com/cjeanneret/ScopeGo/internal/logic/coords"
	"github.com/cjeanneret/ScopeGo/internal/logic/geometry"
)

// AlignmentStage returns the progress of the two-star alignment.
func (m *Mount) AlignmentStage() alignment.Stage { return m.calib.Stage() }

// AlignmentModel returns the active model, if any.
func (m *Mount) AlignmentModel() (alignment.Model, bool) {
	model, _, ok := m.calib.Model()
	return model, ok
}

// ObserveFirstStar records that the mount is centered on c.
func (m *Mount) ObserveFirstStar(c coords.Coordinate) {
	obs := alignment.Observation{Celestial: c.Point(), Mount: m.CurrentPositionEQNormalizedRad()}
	m.calib.ObserveFirst(obs)
	debug.Alignment("first-star", map[string]interface{}{
		"target": c.String(),
		"mount":  fmt.Sprintf("(%.6f, %.6f)", obs.Mount.X, obs.Mount.Y),
	})
}

// ObserveSecondStar records that the mount is centered on c and builds the
// alignment model. On success the operation mode moves to EasyTrackGoto and,
// for altazimuth mounts, the auto-track pivot is set from the model.
// On error nothing changes.
func (m *Mount) ObserveSecondStar(c coords.Coordinate) error {
	now, err := m.clk.NowSeconds()
	if err != nil {
		m.rec.AlignmentDone(m.kind, err)
		return fmt.Errorf("second star: %w", err)
	}

	obs := alignment.Observation{Celestial: c.Point(), Mount: m.CurrentPositionEQNormalizedRad()}
	next := m.calib
	model, err := next.ObserveSecond(m.kind, obs, now)
	if err != nil {
		m.rec.AlignmentDone(m.kind, err)
		return fmt.Errorf("second star: %w", err)
	}

	var pivot geometry.Point
	sky, hasPivot := model.SkyPivot()
	if hasPivot {
		pivot, err = m.axes.Normalize(m.axes.StepsFromRad(sky))
		if err != nil {
			m.rec.AlignmentDone(m.kind, err)
			return fmt.Errorf("second star: sky pivot: %w", err)
		}
	}

	m.calib = next
	if hasPivot {
		m.tracker.SetPivot(pivot)
	}
	m.advance(EasyTrackGoto)

	fields := map[string]interface{}{"kind": m.kind.String(), "target": c.String()}
	switch md := model.(type) {
	case alignment.EquatorialModel:
		fields["offset"] = fmt.Sprintf("(%.6f, %.6f)", md.Offset.X, md.Offset.Y)
	case alignment.AltAzimuthModel:
		fields["angle"] = md.Angle
		fields["offset"] = fmt.Sprintf("(%.6f, %.6f)", md.Offset.X, md.Offset.Y)
		fields["pivot_steps"] = fmt.Sprintf("(%.0f, %.0f)", pivot.X, pivot.Y)
	}
	debug.Alignment("complete", fields)
	m.rec.AlignmentDone(m.kind, nil)
	return nil
}

// SetAutoTrackPivot fixes the auto-track pivot at the current pointing.
// An equatorial mount pointed at the pole redefines both axes as home;
// an altazimuth mount uses its current step position.
func (m *Mount) SetAutoTrackPivot() {
	if m.kind == Equatorial {
		home := m.axes.Home()
		m.x.SetCurrentPosition(int64(home.X))
		m.y.SetCurrentPosition(int64(home.Y))
		m.tracker.SetPivot(home)
	} else {
		m.tracker.SetPivot(m.CurrentSteps())
	}
	p, _ := m.tracker.Pivot()
	debug.Alignment("pivot", map[string]interface{}{"kind": m.kind.String(), "x": p.X, "y": p.Y})
}

// CompletePoleAlignment confirms the pole alignment: it sets the pivot and
// enables EasyTrack.
func (m *Mount) CompletePoleAlignment() {
	m.SetAutoTrackPivot()
	m.advance(EasyTrack)
}
