// Package metrics exposes the mount state as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cjeanneret/ScopeGo/internal/logic/mount"
)

// Collector bundles the mount metrics. It implements mount.Recorder for
// events and control.StatusSink for state gauges.
type Collector struct {
	gatherer prometheus.Gatherer

	TrackingMode  prometheus.Gauge
	OperationMode prometheus.Gauge
	Aligned       prometheus.Gauge
	Position      *prometheus.GaugeVec
	Target        *prometheus.GaugeVec

	Moves      *prometheus.CounterVec
	Alignments *prometheus.CounterVec
	Recomputes prometheus.Counter
}

// NewCollector registers the mount metrics against reg, defaulting to the
// global registry when nil. Metrics already registered under the same name
// are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.TrackingMode, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mount_tracking_mode",
		Help: "Tracking mode: 0 manual, 1 auto-tracking, 2 move-to.",
	}), "mount_tracking_mode"); err != nil {
		return nil, err
	}
	if c.OperationMode, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mount_operation_mode",
		Help: "Operation mode: 0 uninitialized, 1 full goto, 2 easy track, 3 easy track goto.",
	}), "mount_operation_mode"); err != nil {
		return nil, err
	}
	if c.Aligned, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mount_aligned",
		Help: "1 when a two-star alignment model is active.",
	}), "mount_aligned"); err != nil {
		return nil, err
	}
	if c.Position, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mount_axis_position_steps",
		Help: "Current motor position in steps.",
	}, []string{"axis"}), "mount_axis_position_steps"); err != nil {
		return nil, err
	}
	if c.Target, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mount_axis_target_steps",
		Help: "Motor target position in steps.",
	}, []string{"axis"}), "mount_axis_target_steps"); err != nil {
		return nil, err
	}
	if c.Moves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mount_moves_total",
		Help: "Safe moves issued to the motors, labeled by source.",
	}, []string{"kind"}), "mount_moves_total"); err != nil {
		return nil, err
	}
	if c.Alignments, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mount_alignments_total",
		Help: "Two-star alignment attempts, labeled by mount kind and result.",
	}, []string{"kind", "result"}), "mount_alignments_total"); err != nil {
		return nil, err
	}
	if c.Recomputes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mount_autotrack_recomputes_total",
		Help: "Auto-track target recomputes.",
	}), "mount_autotrack_recomputes_total"); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// MoveIssued counts a safe move.
func (c *Collector) MoveIssued(source string) {
	if c == nil {
		return
	}
	c.Moves.WithLabelValues(source).Inc()
}

// AlignmentDone counts an alignment attempt.
func (c *Collector) AlignmentDone(kind mount.Kind, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Alignments.WithLabelValues(kind.String(), result).Inc()
}

// AutoTrackRecomputed counts an auto-track retarget.
func (c *Collector) AutoTrackRecomputed() {
	if c == nil {
		return
	}
	c.Recomputes.Inc()
}

// Observe updates the state gauges from a mount snapshot.
func (c *Collector) Observe(st mount.Status) {
	if c == nil {
		return
	}
	c.TrackingMode.Set(float64(st.TrackingMode))
	c.OperationMode.Set(float64(st.OperationMode))
	aligned := 0.0
	if st.Aligned {
		aligned = 1
	}
	c.Aligned.Set(aligned)
	c.Position.WithLabelValues("x").Set(float64(st.PositionSteps[0]))
	c.Position.WithLabelValues("y").Set(float64(st.PositionSteps[1]))
	c.Target.WithLabelValues("x").Set(float64(st.TargetSteps[0]))
	c.Target.WithLabelValues("y").Set(float64(st.TargetSteps[1]))
}
