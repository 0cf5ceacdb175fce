package alignment

import (
	"errors"
	"fmt"
)

// ErrFirstStarNotObserved is returned when the second star is confirmed
// before the first.
var ErrFirstStarNotObserved = errors.New("first alignment star not observed")

// Stage is the progress of a two-star calibration.
type Stage int

const (
	Unset Stage = iota
	FirstObserved
	Complete
)

func (s Stage) String() string {
	switch s {
	case Unset:
		return "unset"
	case FirstObserved:
		return "first-observed"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// MarshalText encodes the stage name.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(b []byte) error {
	for v := Unset; v <= Complete; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown alignment stage %q", b)
}

// Calibration runs the two-star protocol. A completed model stays in use
// while a new first star is being observed and is only replaced once the
// second observation succeeds.
type Calibration struct {
	stage     Stage
	first     Observation
	model     Model
	timestamp float64
}

// Stage returns the current stage.
func (c *Calibration) Stage() Stage { return c.stage }

// ObserveFirst records the first star.
func (c *Calibration) ObserveFirst(obs Observation) {
	c.first = obs
	c.stage = FirstObserved
}

// ObserveSecond records the second star and builds the model of the given
// kind. timestamp is the wall-clock second at which the sky frame is fixed.
// On error the calibration is left unchanged.
func (c *Calibration) ObserveSecond(kind Kind, obs Observation, timestamp float64) (Model, error) {
	if c.stage != FirstObserved {
		return nil, ErrFirstStarNotObserved
	}
	m, err := Build(kind, c.first, obs)
	if err != nil {
		return nil, err
	}
	c.model = m
	c.timestamp = timestamp
	c.stage = Complete
	return m, nil
}

// Model returns the last completed model and its timestamp.
func (c *Calibration) Model() (Model, float64, bool) {
	if c.model == nil {
		return nil, 0, false
	}
	return c.model, c.timestamp, true
}

// Reset drops every observation and the model.
func (c *Calibration) Reset() {
	*c = Calibration{}
}
