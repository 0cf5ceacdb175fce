package mount

// Motor is one axis driver as seen by the mount.
//
// Run and RunSpeed do at most one unit of motion per call and never block:
// Run moves toward the target with the acceleration profile, RunSpeed keeps
// the constant speed set by SetSpeed.
type Motor interface {
	CurrentPosition() int64
	TargetPosition() int64
	MoveTo(target int64)
	SetSpeed(stepsPerSec float64)
	SetMaxSpeed(stepsPerSec float64)
	SetAcceleration(stepsPerSec2 float64)
	SetCurrentPosition(pos int64)
	Run()
	RunSpeed()
	Enable() error
	Disable() error
}
