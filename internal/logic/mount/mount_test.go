package mount

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/cjeanneret/ScopeGo/internal/clock"
	"github.com/cjeanneret/ScopeGo/internal/config"
	"github.com/cjeanneret/ScopeGo/internal/logic/alignment"
	"github.com/cjeanneret/ScopeGo/internal/logic/coords"
	"github.com/cjeanneret/ScopeGo/internal/logic/geometry"
	"github.com/cjeanneret/ScopeGo/internal/logic/tracking"
)

// ---------- fakes ----------

type recordingMotor struct {
	current, target int64
	speed, maxSpeed float64
	accel           float64
	calls           []string
	runs, runSpeeds int
	enabled         bool
	enableErr       error
}

func (r *recordingMotor) CurrentPosition() int64 { return r.current }
func (r *recordingMotor) TargetPosition() int64  { return r.target }

func (r *recordingMotor) MoveTo(t int64) {
	r.target = t
	r.calls = append(r.calls, fmt.Sprintf("MoveTo(%d)", t))
}

func (r *recordingMotor) SetSpeed(v float64) {
	r.speed = v
	r.calls = append(r.calls, fmt.Sprintf("SetSpeed(%g)", v))
}

func (r *recordingMotor) SetMaxSpeed(v float64) {
	r.maxSpeed = v
	r.calls = append(r.calls, fmt.Sprintf("SetMaxSpeed(%g)", v))
}

func (r *recordingMotor) SetAcceleration(a float64) {
	r.accel = a
	r.calls = append(r.calls, fmt.Sprintf("SetAcceleration(%g)", a))
}

func (r *recordingMotor) SetCurrentPosition(p int64) {
	r.current, r.target = p, p
	r.calls = append(r.calls, fmt.Sprintf("SetCurrentPosition(%d)", p))
}

func (r *recordingMotor) Run()      { r.runs++ }
func (r *recordingMotor) RunSpeed() { r.runSpeeds++ }

func (r *recordingMotor) Enable() error {
	if r.enableErr != nil {
		return r.enableErr
	}
	r.enabled = true
	return nil
}

func (r *recordingMotor) Disable() error {
	r.enabled = false
	return nil
}

func (r *recordingMotor) reset() { r.calls = nil }

func (r *recordingMotor) count(call string) int {
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

type countingRecorder struct {
	moves      map[string]int
	alignments []error
	recomputes int
}

func (c *countingRecorder) MoveIssued(source string) {
	if c.moves == nil {
		c.moves = map[string]int{}
	}
	c.moves[source]++
}

func (c *countingRecorder) AlignmentDone(_ Kind, err error) { c.alignments = append(c.alignments, err) }
func (c *countingRecorder) AutoTrackRecomputed()            { c.recomputes++ }

type fixture struct {
	m    *Mount
	x, y *recordingMotor
	clk  *clock.Fake
	rec  *countingRecorder
}

func newFixture(t *testing.T, kind Kind) *fixture {
	t.Helper()
	cfg := config.Default()
	opts := OptionsFromConfig(cfg)
	opts.Kind = kind
	f := &fixture{
		x:   &recordingMotor{},
		y:   &recordingMotor{},
		clk: clock.NewFake(1_000_000),
		rec: &countingRecorder{},
	}
	opts.Recorder = f.rec
	f.m = New(f.x, f.y, geometry.NewAxes(cfg), f.clk, opts)
	return f
}

// place puts both motors at a step position as if they had moved there.
func (f *fixture) place(x, y int64) {
	f.x.current, f.x.target = x, x
	f.y.current, f.y.target = y, y
}

func (f *fixture) targets() (int64, int64) { return f.x.target, f.y.target }

func deg(d float64) float64 { return d * math.Pi / 180 }

// Stars observed with a mount offset of about (10°, 20°).
var (
	star1      = coords.Coordinate{RA: 0, Dec: 0}
	star1Steps = [2]int64{711, 1422}
	star2      = coords.Coordinate{RA: deg(30), Dec: deg(10)}
	star2Steps = [2]int64{2844, 2133}
)

func (f *fixture) align(t *testing.T) {
	t.Helper()
	f.place(star1Steps[0], star1Steps[1])
	f.m.ObserveFirstStar(star1)
	f.place(star2Steps[0], star2Steps[1])
	if err := f.m.ObserveSecondStar(star2); err != nil {
		t.Fatalf("ObserveSecondStar() error: %v", err)
	}
}

// ---------- construction ----------

func TestNew_ConfiguresMotors(t *testing.T) {
	f := newFixture(t, Equatorial)

	wantX := []string{"SetMaxSpeed(400)", "SetAcceleration(800)", "SetCurrentPosition(0)"}
	wantY := []string{"SetMaxSpeed(400)", "SetAcceleration(800)", "SetCurrentPosition(6400)"}
	assertCalls(t, "x", f.x.calls, wantX)
	assertCalls(t, "y", f.y.calls, wantY)

	if f.m.TrackingMode() != tracking.Manual {
		t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
	}
	if f.m.OperationMode() != Uninitialized {
		t.Errorf("OperationMode() = %s, want uninitialized", f.m.OperationMode())
	}
	pos := f.m.CurrentPositionDeg()
	if pos.X != 0 || pos.Y != 90 {
		t.Errorf("CurrentPositionDeg() = %+v, want (0, 90)", pos)
	}
}

func assertCalls(t *testing.T, axis string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s calls = %v, want %v", axis, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s call[%d] = %s, want %s", axis, i, got[i], want[i])
		}
	}
}

// ---------- safe moves ----------

func TestSafeMoveTo_CallSequence(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.place(100, 200)
	f.x.reset()
	f.y.reset()

	if err := f.m.SafeMoveTo(geometry.Point{X: 500, Y: 300}, 250); err != nil {
		t.Fatalf("SafeMoveTo() error: %v", err)
	}
	assertCalls(t, "x", f.x.calls, []string{"MoveTo(100)", "SetMaxSpeed(250)", "MoveTo(500)"})
	assertCalls(t, "y", f.y.calls, []string{"MoveTo(200)", "SetMaxSpeed(250)", "MoveTo(300)"})
	if f.rec.moves[SourceDirect] != 1 {
		t.Errorf("recorded direct moves = %d, want 1", f.rec.moves[SourceDirect])
	}
}

func TestSafeMoveTo_DefaultSpeed(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.x.reset()
	if err := f.m.SafeMoveTo(geometry.Point{X: 10, Y: 10}, 0); err != nil {
		t.Fatalf("SafeMoveTo() error: %v", err)
	}
	if f.x.maxSpeed != 400 {
		t.Errorf("max speed = %v, want 400", f.x.maxSpeed)
	}
}

func TestSafeMoveTo_Normalizes(t *testing.T) {
	cases := []struct {
		name   string
		target geometry.Point
		wantX  int64
		wantY  int64
	}{
		{"inside", geometry.Point{X: -1000, Y: 5000}, -1000, 5000},
		{"flip_above_upper", geometry.Point{X: 1778, Y: 1000}, -11022, 11800},
		{"wrap_revolution", geometry.Point{X: 25700, Y: 500}, 100, 500},
		{"rounded", geometry.Point{X: 10.6, Y: -3.4}, 11, -3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Equatorial)
			if err := f.m.SafeMoveTo(tc.target, 0); err != nil {
				t.Fatalf("SafeMoveTo() error: %v", err)
			}
			x, y := f.targets()
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("target = (%d, %d), want (%d, %d)", x, y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestSafeMoveTo_DivergenceLeavesMotors(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.place(42, 43)
	f.x.reset()
	f.y.reset()

	err := f.m.SafeMoveTo(geometry.Point{X: math.NaN(), Y: 0}, 0)
	if !errors.Is(err, geometry.ErrNormalizationDiverged) {
		t.Fatalf("error = %v, want ErrNormalizationDiverged", err)
	}
	if len(f.x.calls) != 0 || len(f.y.calls) != 0 {
		t.Errorf("motors touched on error: x=%v y=%v", f.x.calls, f.y.calls)
	}
	if len(f.rec.moves) != 0 {
		t.Errorf("recorded moves = %v, want none", f.rec.moves)
	}
}

func TestSafeMoveToDeg_TenTwenty(t *testing.T) {
	f := newFixture(t, Equatorial)
	if err := f.m.SafeMoveToDeg(geometry.Point{X: 10, Y: 20}, 0); err != nil {
		t.Fatalf("SafeMoveToDeg() error: %v", err)
	}
	x, y := f.targets()
	if x != 711 || y != 1422 {
		t.Errorf("target = (%d, %d), want (711, 1422)", x, y)
	}
}

func TestSafeMoveToRad(t *testing.T) {
	f := newFixture(t, Equatorial)
	if err := f.m.SafeMoveToRad(geometry.Point{X: deg(-90), Y: deg(45)}, 0); err != nil {
		t.Fatalf("SafeMoveToRad() error: %v", err)
	}
	x, y := f.targets()
	if x != -6400 || y != 3200 {
		t.Errorf("target = (%d, %d), want (-6400, 3200)", x, y)
	}
}

// ---------- RA/Dec ----------

func TestSafeMoveToRADec_NotAligned(t *testing.T) {
	for _, kind := range []Kind{Equatorial, AltAzimuth} {
		t.Run(kind.String(), func(t *testing.T) {
			f := newFixture(t, kind)
			f.x.reset()
			if err := f.m.SafeMoveToRADec(star1, 0); !errors.Is(err, ErrNotAligned) {
				t.Errorf("error = %v, want ErrNotAligned", err)
			}
			if err := f.m.Goto(star1); !errors.Is(err, ErrNotAligned) {
				t.Errorf("Goto() error = %v, want ErrNotAligned", err)
			}
			if len(f.x.calls) != 0 {
				t.Errorf("motor touched: %v", f.x.calls)
			}
			if f.m.TrackingMode() != tracking.Manual {
				t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
			}
		})
	}
}

func TestRADec_AfterAlignment(t *testing.T) {
	cases := []struct {
		name    string
		kind    Kind
		target  coords.Coordinate
		elapsed float64
		wantX   int64
		wantY   int64
	}{
		{"eq_first_star", Equatorial, star1, 0, 711, 1422},
		{"eq_second_star_flips", Equatorial, star2, 0, -9956, 10667},
		{"eq_one_hour_later", Equatorial, star1, 3600, -359, 1422},
		{"az_second_star_flips", AltAzimuth, star2, 0, -9956, 10667},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.kind)
			f.align(t)
			f.clk.Advance(tc.elapsed)

			if err := f.m.Goto(tc.target); err != nil {
				t.Fatalf("Goto() error: %v", err)
			}
			x, y := f.targets()
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("target = (%d, %d), want (%d, %d)", x, y, tc.wantX, tc.wantY)
			}
			if f.m.TrackingMode() != tracking.MoveTo {
				t.Errorf("TrackingMode() = %s, want move-to", f.m.TrackingMode())
			}
			if f.x.maxSpeed != 400 {
				t.Errorf("goto speed = %v, want 400", f.x.maxSpeed)
			}
			if f.rec.moves[SourceRADec] != 1 {
				t.Errorf("recorded radec moves = %d, want 1", f.rec.moves[SourceRADec])
			}
		})
	}
}

func TestSafeMoveToRADec_ClockFailure(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.align(t)
	f.x.reset()
	f.clk.Fail(errors.New("rtc offline"))

	err := f.m.SafeMoveToRADec(star1, 0)
	if !errors.Is(err, clock.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if len(f.x.calls) != 0 {
		t.Errorf("motor touched: %v", f.x.calls)
	}
}

// ---------- alignment ----------

func TestAlignment_Equatorial(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.align(t)

	model, ok := f.m.AlignmentModel()
	if !ok {
		t.Fatal("AlignmentModel() not available")
	}
	eq, ok := model.(alignment.EquatorialModel)
	if !ok {
		t.Fatalf("model is %T, want EquatorialModel", model)
	}
	if math.Abs(eq.Offset.X-deg(10)) > 1e-3 || math.Abs(eq.Offset.Y-deg(20)) > 1e-3 {
		t.Errorf("offset = %+v, want about (10°, 20°) in rad", eq.Offset)
	}
	if f.m.OperationMode() != EasyTrackGoto {
		t.Errorf("OperationMode() = %s, want easy-track-goto", f.m.OperationMode())
	}
	if _, set := f.m.tracker.Pivot(); set {
		t.Error("equatorial alignment must not set a pivot")
	}
	if len(f.rec.alignments) != 1 || f.rec.alignments[0] != nil {
		t.Errorf("recorded alignments = %v, want one success", f.rec.alignments)
	}
}

func TestAlignment_AltAzimuthSetsPivot(t *testing.T) {
	f := newFixture(t, AltAzimuth)
	f.align(t)

	pivot, set := f.m.tracker.Pivot()
	if !set {
		t.Fatal("pivot not set after altazimuth alignment")
	}
	if math.Abs(pivot.X-711) > 1e-6 || math.Abs(pivot.Y-7822) > 1e-6 {
		t.Errorf("pivot = %+v, want (711, 7822)", pivot)
	}
	st := f.m.Status()
	if !st.Aligned || !st.PivotSet || st.Alignment != alignment.Complete {
		t.Errorf("Status() = %+v, want aligned with pivot", st)
	}
}

func TestAlignment_SecondStarFirst(t *testing.T) {
	f := newFixture(t, Equatorial)
	err := f.m.ObserveSecondStar(star2)
	if !errors.Is(err, alignment.ErrFirstStarNotObserved) {
		t.Fatalf("error = %v, want ErrFirstStarNotObserved", err)
	}
	if f.m.OperationMode() != Uninitialized {
		t.Errorf("OperationMode() = %s, want uninitialized", f.m.OperationMode())
	}
	if len(f.rec.alignments) != 1 || f.rec.alignments[0] == nil {
		t.Errorf("recorded alignments = %v, want one failure", f.rec.alignments)
	}
}

func TestAlignment_ClockFailureKeepsState(t *testing.T) {
	f := newFixture(t, AltAzimuth)
	f.place(star1Steps[0], star1Steps[1])
	f.m.ObserveFirstStar(star1)
	f.place(star2Steps[0], star2Steps[1])
	f.clk.Fail(errors.New("no time source"))

	err := f.m.ObserveSecondStar(star2)
	if !errors.Is(err, clock.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if f.m.AlignmentStage() != alignment.FirstObserved {
		t.Errorf("stage = %s, want first-observed", f.m.AlignmentStage())
	}
	if _, ok := f.m.AlignmentModel(); ok {
		t.Error("model created despite clock failure")
	}
	if _, set := f.m.tracker.Pivot(); set {
		t.Error("pivot set despite clock failure")
	}

	f.clk.Fail(nil)
	if err := f.m.ObserveSecondStar(star2); err != nil {
		t.Fatalf("retry after clock recovery: %v", err)
	}
}

func TestAlignment_DegenerateKeepsPreviousModel(t *testing.T) {
	f := newFixture(t, AltAzimuth)
	f.align(t)
	before, _ := f.m.AlignmentModel()

	// Same star twice: no line can be drawn through the observations.
	f.place(star1Steps[0], star1Steps[1])
	f.m.ObserveFirstStar(star1)
	err := f.m.ObserveSecondStar(star1)
	if !errors.Is(err, alignment.ErrDegenerateObservations) {
		t.Fatalf("error = %v, want ErrDegenerateObservations", err)
	}
	after, ok := f.m.AlignmentModel()
	if !ok || after != before {
		t.Errorf("model replaced on error: %+v -> %+v", before, after)
	}
}

func TestCompletePoleAlignment(t *testing.T) {
	t.Run("equatorial_resets_home", func(t *testing.T) {
		f := newFixture(t, Equatorial)
		f.place(123, 4567)
		f.m.CompletePoleAlignment()

		if f.x.current != 0 || f.y.current != 6400 {
			t.Errorf("position = (%d, %d), want home (0, 6400)", f.x.current, f.y.current)
		}
		if f.m.OperationMode() != EasyTrack {
			t.Errorf("OperationMode() = %s, want easy-track", f.m.OperationMode())
		}
	})
	t.Run("altazimuth_pivot_is_current", func(t *testing.T) {
		f := newFixture(t, AltAzimuth)
		f.place(123, 4567)
		f.m.CompletePoleAlignment()

		p, set := f.m.tracker.Pivot()
		if !set || p.X != 123 || p.Y != 4567 {
			t.Errorf("pivot = %+v (set %v), want (123, 4567)", p, set)
		}
		if f.x.current != 123 {
			t.Errorf("altazimuth pivot must not move the position, x = %d", f.x.current)
		}
	})
	t.Run("does_not_regress", func(t *testing.T) {
		f := newFixture(t, Equatorial)
		f.align(t)
		f.m.CompletePoleAlignment()
		if f.m.OperationMode() != EasyTrackGoto {
			t.Errorf("OperationMode() = %s, want easy-track-goto", f.m.OperationMode())
		}
	})
}

// ---------- auto-tracking ----------

func TestAutoTrack_EquatorialTarget(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.m.CompletePoleAlignment()
	if err := f.m.StartAutoTrack(); err != nil {
		t.Fatalf("StartAutoTrack() error: %v", err)
	}
	if f.m.TrackingMode() != tracking.AutoTracking {
		t.Fatalf("TrackingMode() = %s, want auto-tracking", f.m.TrackingMode())
	}

	f.clk.Advance(100)
	if err := f.m.RecomputeAutoTrackTarget(); err != nil {
		t.Fatalf("RecomputeAutoTrackTarget() error: %v", err)
	}
	want := -coords.EarthAngularSpeed * 100 * f.m.Axes().X.StepsPerRad()
	x, y := f.targets()
	if math.Abs(float64(x)-want) > 1 {
		t.Errorf("x target = %d, want %.2f within one step", x, want)
	}
	if y != 6400 {
		t.Errorf("y target = %d, want 6400", y)
	}
	if f.rec.recomputes != 1 || f.rec.moves[SourceTrack] != 1 {
		t.Errorf("recomputes = %d, track moves = %d, want 1/1", f.rec.recomputes, f.rec.moves[SourceTrack])
	}
}

func TestAutoTrack_AltAzimuthRotatesAroundPivot(t *testing.T) {
	f := newFixture(t, AltAzimuth)
	f.place(1000, 5000)
	f.m.CompletePoleAlignment()
	f.place(1000, 3000)
	if err := f.m.StartAutoTrack(); err != nil {
		t.Fatalf("StartAutoTrack() error: %v", err)
	}

	f.clk.Advance(600)
	if err := f.m.RecomputeAutoTrackTarget(); err != nil {
		t.Fatalf("RecomputeAutoTrackTarget() error: %v", err)
	}
	want := geometry.Rotate(geometry.Point{X: 1000, Y: 3000}, coords.EarthAngle(600), geometry.Point{X: 1000, Y: 5000})
	x, y := f.targets()
	if math.Abs(float64(x)-want.X) > 1 || math.Abs(float64(y)-want.Y) > 1 {
		t.Errorf("target = (%d, %d), want (%.1f, %.1f)", x, y, want.X, want.Y)
	}
}

func TestAutoTrack_AltAzimuthNeedsPivot(t *testing.T) {
	f := newFixture(t, AltAzimuth)
	if err := f.m.StartAutoTrack(); !errors.Is(err, ErrPivotNotSet) {
		t.Fatalf("error = %v, want ErrPivotNotSet", err)
	}
	if f.m.TrackingMode() != tracking.Manual {
		t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
	}
}

func TestAutoTrack_ClockFailure(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.clk.Fail(errors.New("gone"))
	if err := f.m.StartAutoTrack(); !errors.Is(err, clock.ErrUnavailable) {
		t.Fatalf("StartAutoTrack() error = %v, want ErrUnavailable", err)
	}
	if f.m.TrackingMode() != tracking.Manual {
		t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
	}

	f.clk.Fail(nil)
	if err := f.m.StartAutoTrack(); err != nil {
		t.Fatalf("StartAutoTrack() error: %v", err)
	}
	f.x.reset()
	f.clk.Fail(errors.New("gone"))
	if err := f.m.RecomputeAutoTrackTarget(); !errors.Is(err, clock.ErrUnavailable) {
		t.Fatalf("RecomputeAutoTrackTarget() error = %v, want ErrUnavailable", err)
	}
	if len(f.x.calls) != 0 {
		t.Errorf("motor touched: %v", f.x.calls)
	}
}

func TestRecompute_NoopUnlessTracking(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.x.reset()
	if err := f.m.RecomputeAutoTrackTarget(); err != nil {
		t.Fatalf("RecomputeAutoTrackTarget() error: %v", err)
	}
	if len(f.x.calls) != 0 || f.rec.recomputes != 0 {
		t.Errorf("recompute acted outside auto-tracking: %v", f.x.calls)
	}
}

func TestToggleAutoTrack(t *testing.T) {
	f := newFixture(t, Equatorial)
	if err := f.m.ToggleAutoTrack(); err != nil {
		t.Fatalf("ToggleAutoTrack() error: %v", err)
	}
	if f.m.TrackingMode() != tracking.AutoTracking {
		t.Fatalf("TrackingMode() = %s, want auto-tracking", f.m.TrackingMode())
	}

	f.x.reset()
	f.y.reset()
	if err := f.m.ToggleAutoTrack(); err != nil {
		t.Fatalf("ToggleAutoTrack() error: %v", err)
	}
	if f.m.TrackingMode() != tracking.Manual {
		t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
	}
	if f.x.count("SetSpeed(0)") != 1 || f.y.count("SetSpeed(0)") != 1 {
		t.Errorf("stop must zero both speeds: x=%v y=%v", f.x.calls, f.y.calls)
	}
}

func TestToggleAutoTrack_FromMoveToStops(t *testing.T) {
	f := newFixture(t, Equatorial)
	if err := f.m.Home(); err != nil {
		t.Fatalf("Home() error: %v", err)
	}
	if err := f.m.ToggleAutoTrack(); err != nil {
		t.Fatalf("ToggleAutoTrack() error: %v", err)
	}
	if f.m.TrackingMode() != tracking.Manual {
		t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
	}
}

// ---------- manual control and tick ----------

func TestSetManualSpeed_Debounce(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.x.reset()
	f.y.reset()

	f.m.SetManualSpeed(64, -32)
	f.m.SetManualSpeed(64, -32)

	if n := f.x.count("SetSpeed(200)"); n != 1 {
		t.Errorf("x SetSpeed(200) issued %d times, want 1 (calls %v)", n, f.x.calls)
	}
	if n := f.y.count("SetSpeed(-100)"); n != 1 {
		t.Errorf("y SetSpeed(-100) issued %d times, want 1 (calls %v)", n, f.y.calls)
	}

	f.m.SetManualSpeed(0, 0)
	if f.x.speed != 0 || f.y.speed != 0 {
		t.Errorf("speeds = %v/%v, want 0/0", f.x.speed, f.y.speed)
	}
}

func TestSetManualSpeed_InitialZeroIsNoop(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.m.CompletePoleAlignment()
	if err := f.m.StartAutoTrack(); err != nil {
		t.Fatal(err)
	}
	f.x.reset()
	f.m.SetManualSpeed(0, 0)
	if len(f.x.calls) != 0 {
		t.Errorf("calls = %v, want none", f.x.calls)
	}
	if f.m.TrackingMode() != tracking.AutoTracking {
		t.Errorf("TrackingMode() = %s, want auto-tracking", f.m.TrackingMode())
	}
}

func TestSetManualSpeed_ForcesManual(t *testing.T) {
	f := newFixture(t, Equatorial)
	if err := f.m.Home(); err != nil {
		t.Fatal(err)
	}
	f.m.SetManualSpeed(-128, 127)
	if f.m.TrackingMode() != tracking.Manual {
		t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
	}
	if f.x.speed != -400 {
		t.Errorf("x speed = %v, want -400", f.x.speed)
	}
	if want := 127.0 / 128 * 400; f.y.speed != want {
		t.Errorf("y speed = %v, want %v", f.y.speed, want)
	}
}

func TestTick_Dispatch(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.m.Tick()
	if f.x.runSpeeds != 1 || f.y.runSpeeds != 1 || f.x.runs != 0 {
		t.Errorf("manual tick: runSpeed %d/%d run %d, want 1/1/0", f.x.runSpeeds, f.y.runSpeeds, f.x.runs)
	}

	if err := f.m.GotoDeg(geometry.Point{X: 5, Y: 5}, 0); err != nil {
		t.Fatal(err)
	}
	f.m.Tick()
	if f.x.runs != 1 || f.y.runs != 1 || f.x.runSpeeds != 1 {
		t.Errorf("move-to tick: run %d/%d runSpeed %d, want 1/1/1", f.x.runs, f.y.runs, f.x.runSpeeds)
	}
}

// ---------- supplementary moves ----------

func TestHomeAndPoleCheck(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.place(1000, 3000)

	if err := f.m.PoleCheck(); err != nil {
		t.Fatalf("PoleCheck() error: %v", err)
	}
	if x, y := f.targets(); x != -12800 || y != 3000 {
		t.Errorf("pole check target = (%d, %d), want (-12800, 3000)", x, y)
	}
	if err := f.m.Home(); err != nil {
		t.Fatalf("Home() error: %v", err)
	}
	if x, y := f.targets(); x != 0 || y != 3000 {
		t.Errorf("home target = (%d, %d), want (0, 3000)", x, y)
	}
	if f.m.TrackingMode() != tracking.MoveTo {
		t.Errorf("TrackingMode() = %s, want move-to", f.m.TrackingMode())
	}
	if f.rec.moves[SourceHome] != 2 {
		t.Errorf("home moves = %d, want 2", f.rec.moves[SourceHome])
	}
}

func TestStopMotion(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.m.SetManualSpeed(100, 100)
	f.place(300, 400)
	f.x.target = 5000

	if err := f.m.StopMotion(); err != nil {
		t.Fatalf("StopMotion() error: %v", err)
	}
	if x, y := f.targets(); x != 300 || y != 400 {
		t.Errorf("target = (%d, %d), want (300, 400)", x, y)
	}
	if f.x.speed != 0 || f.y.speed != 0 {
		t.Errorf("speeds = %v/%v, want 0/0", f.x.speed, f.y.speed)
	}
	if f.m.TrackingMode() != tracking.Manual {
		t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
	}
}

func TestEnableDisableMotors(t *testing.T) {
	f := newFixture(t, Equatorial)
	if err := f.m.EnableMotors(); err != nil {
		t.Fatalf("EnableMotors() error: %v", err)
	}
	if !f.x.enabled || !f.y.enabled {
		t.Error("motors not enabled")
	}
	if err := f.m.DisableMotors(); err != nil {
		t.Fatalf("DisableMotors() error: %v", err)
	}

	boom := errors.New("driver fault")
	f.y.enableErr = boom
	if err := f.m.EnableMotors(); !errors.Is(err, boom) {
		t.Errorf("EnableMotors() error = %v, want %v", err, boom)
	}
	if !f.x.enabled {
		t.Error("x must still be enabled when y fails")
	}
}

// ---------- kind and operation mode ----------

func TestSetKind_InvalidatesAlignment(t *testing.T) {
	f := newFixture(t, AltAzimuth)
	f.align(t)
	if err := f.m.StartAutoTrack(); err != nil {
		t.Fatal(err)
	}

	if err := f.m.SetKind(Equatorial); err != nil {
		t.Fatalf("SetKind() error: %v", err)
	}
	if f.m.Kind() != Equatorial {
		t.Errorf("Kind() = %s, want equatorial", f.m.Kind())
	}
	if f.m.AlignmentStage() != alignment.Unset {
		t.Errorf("stage = %s, want unset", f.m.AlignmentStage())
	}
	if _, set := f.m.tracker.Pivot(); set {
		t.Error("pivot survived kind change")
	}
	if f.m.TrackingMode() != tracking.Manual {
		t.Errorf("TrackingMode() = %s, want manual", f.m.TrackingMode())
	}
	if f.m.OperationMode() != EasyTrackGoto {
		t.Errorf("OperationMode() = %s, want easy-track-goto", f.m.OperationMode())
	}
	if err := f.m.Goto(star1); !errors.Is(err, ErrNotAligned) {
		t.Errorf("Goto() after kind change error = %v, want ErrNotAligned", err)
	}
}

func TestSetKind_SameKindKeepsAlignment(t *testing.T) {
	f := newFixture(t, Equatorial)
	f.align(t)
	if err := f.m.SetKind(Equatorial); err != nil {
		t.Fatal(err)
	}
	if f.m.AlignmentStage() != alignment.Complete {
		t.Errorf("stage = %s, want complete", f.m.AlignmentStage())
	}
	if err := f.m.SetKind(Kind(7)); err == nil {
		t.Error("SetKind(7) expected error")
	}
}

func TestAdvanceOperationMode(t *testing.T) {
	f := newFixture(t, Equatorial)

	if err := f.m.AdvanceOperationMode(FullGoto); !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("FullGoto error = %v, want ErrUnsupportedMode", err)
	}
	if err := f.m.AdvanceOperationMode(EasyTrack); err != nil {
		t.Fatalf("EasyTrack error: %v", err)
	}
	if err := f.m.AdvanceOperationMode(EasyTrack); err != nil {
		t.Errorf("same mode error: %v", err)
	}
	if err := f.m.AdvanceOperationMode(EasyTrackGoto); err != nil {
		t.Fatalf("EasyTrackGoto error: %v", err)
	}
	if err := f.m.AdvanceOperationMode(EasyTrack); !errors.Is(err, ErrModeRegression) {
		t.Errorf("regression error = %v, want ErrModeRegression", err)
	}
	if f.m.OperationMode() != EasyTrackGoto {
		t.Errorf("OperationMode() = %s, want easy-track-goto", f.m.OperationMode())
	}
}

func TestParseOperationMode(t *testing.T) {
	for m := Uninitialized; m <= EasyTrackGoto; m++ {
		got, err := ParseOperationMode(" " + m.String() + " ")
		if err != nil || got != m {
			t.Errorf("ParseOperationMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseOperationMode("full"); err == nil {
		t.Error("ParseOperationMode(full) expected error")
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t, Equatorial)
	if err := f.m.SafeMoveToDeg(geometry.Point{X: 10, Y: 20}, 0); err != nil {
		t.Fatal(err)
	}
	st := f.m.Status()
	if st.Kind != Equatorial || st.Aligned || st.PivotSet {
		t.Errorf("Status() = %+v", st)
	}
	if st.PositionSteps != [2]int64{0, 6400} || st.TargetSteps != [2]int64{711, 1422} {
		t.Errorf("steps = %v -> %v, want [0 6400] -> [711 1422]", st.PositionSteps, st.TargetSteps)
	}
	if math.Abs(st.TargetDeg.X-10) > 0.02 || math.Abs(st.TargetDeg.Y-20) > 0.02 {
		t.Errorf("TargetDeg = %+v, want about (10, 20)", st.TargetDeg)
	}
}
