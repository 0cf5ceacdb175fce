package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/ScopeGo/internal/clock"
	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/logic/alignment"
	"github.com/cjeanneret/ScopeGo/internal/logic/catalog"
	"github.com/cjeanneret/ScopeGo/internal/logic/coords"
	"github.com/cjeanneret/ScopeGo/internal/logic/mount"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var (
	errBadRequest  = errors.New("bad request")
	errUnavailable = errors.New("service unavailable")
)

// Controller gives serialized access to the mount.
type Controller interface {
	Do(fn func(m *mount.Mount) error) error
	Status() mount.Status
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Mount       Controller
	Catalog     *catalog.Catalog
	metrics     http.Handler
	staticFS    fs.FS
	upgrader    websocket.Upgrader
}

// NewHandlers creates handlers with the given dependencies.
// If cat is nil, catalog lookups fail with 503; if metrics is nil, /metrics is 404.
func NewHandlers(ctrl Controller, cat *catalog.Catalog, broadcaster *StatusBroadcaster, metrics http.Handler, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Mount:       ctrl,
		Catalog:     cat,
		metrics:     metrics,
		staticFS:    staticFS,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// statusCode maps a command error to an HTTP status.
func statusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, coords.ErrInvalidFormat),
		errors.Is(err, mount.ErrUnsupportedMode):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrUnknownObject):
		return http.StatusNotFound
	case errors.Is(err, mount.ErrNotAligned),
		errors.Is(err, mount.ErrPivotNotSet),
		errors.Is(err, mount.ErrModeRegression),
		errors.Is(err, alignment.ErrFirstStarNotObserved),
		errors.Is(err, alignment.ErrDegenerateObservations):
		return http.StatusConflict
	case errors.Is(err, clock.ErrUnavailable), errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		debug.Error(err)
	}
	h.Broadcaster.Broadcast("error", err.Error())
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

// command runs fn on the mount and answers with the resulting status.
func (h *Handlers) command(w http.ResponseWriter, fn func(m *mount.Mount) error) {
	if err := h.Mount.Do(fn); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, h.Mount.Status())
}

// TargetRequest names a sky target either by catalog object or by
// "hh:mm:ss" and "ddd,mm,ss" strings.
type TargetRequest struct {
	Object string `json:"object,omitempty"`
	RA     string `json:"ra,omitempty"`
	Dec    string `json:"dec,omitempty"`
}

// resolve returns the coordinate of t and a label for messages.
func (h *Handlers) resolve(t TargetRequest) (coords.Coordinate, string, error) {
	if t.Object != "" {
		if h.Catalog == nil {
			return coords.Coordinate{}, "", fmt.Errorf("%w: catalog not loaded", errUnavailable)
		}
		obj, err := h.Catalog.Lookup(t.Object)
		if err != nil {
			return coords.Coordinate{}, "", err
		}
		return obj.Coordinate(), obj.Label(), nil
	}
	if t.RA == "" || t.Dec == "" {
		return coords.Coordinate{}, "", fmt.Errorf("%w: object or ra and dec required", errBadRequest)
	}
	c, err := coords.Parse(t.RA, t.Dec)
	if err != nil {
		return coords.Coordinate{}, "", err
	}
	return c, c.String(), nil
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Mount.Status())
}

// HandleCatalog handles GET /catalog.
func (h *Handlers) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		http.Error(w, "catalog not loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string][]catalog.Object{
		"stars":   h.Catalog.Stars(),
		"messier": h.Catalog.Messier(),
	})
}

// HandleKind handles POST /mount/kind {"kind":"eq"|"az"}.
func (h *Handlers) HandleKind(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	kind, err := alignment.ParseKind(req.Kind)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	h.command(w, func(m *mount.Mount) error { return m.SetKind(kind) })
}

// HandleMode handles POST /mount/mode {"mode":"easy-track"}.
func (h *Handlers) HandleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	mode, err := mount.ParseOperationMode(req.Mode)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	h.command(w, func(m *mount.Mount) error { return m.AdvanceOperationMode(mode) })
}

// HandleAlignPole handles POST /align/pole: the mount points at the pole.
func (h *Handlers) HandleAlignPole(w http.ResponseWriter, r *http.Request) {
	h.command(w, func(m *mount.Mount) error {
		m.CompletePoleAlignment()
		return nil
	})
	h.Broadcaster.BroadcastMsg("Pole alignment confirmed")
}

// AlignStarRequest confirms that the mount is centered on a star.
type AlignStarRequest struct {
	Step int `json:"step"`
	TargetRequest
}

// HandleAlignStar handles POST /align/star.
func (h *Handlers) HandleAlignStar(w http.ResponseWriter, r *http.Request) {
	var req AlignStarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Step != 1 && req.Step != 2 {
		h.writeError(w, fmt.Errorf("%w: step must be 1 or 2", errBadRequest))
		return
	}
	c, label, err := h.resolve(req.TargetRequest)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Mount.Do(func(m *mount.Mount) error {
		if req.Step == 1 {
			m.ObserveFirstStar(c)
			return nil
		}
		return m.ObserveSecondStar(c)
	}); err != nil {
		h.writeError(w, err)
		return
	}
	h.Broadcaster.BroadcastMsg(fmt.Sprintf("Alignment star %d: %s", req.Step, label))
	writeJSON(w, h.Mount.Status())
}

// HandleGoto handles POST /goto.
func (h *Handlers) HandleGoto(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	c, label, err := h.resolve(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.Mount.Do(func(m *mount.Mount) error { return m.Goto(c) }); err != nil {
		h.writeError(w, err)
		return
	}
	h.Broadcaster.BroadcastMsg("Goto " + label)
	writeJSON(w, h.Mount.Status())
}

// HandleHome handles POST /goto/home.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.command(w, func(m *mount.Mount) error { return m.Home() })
}

// HandlePoleCheck handles POST /goto/pole-check.
func (h *Handlers) HandlePoleCheck(w http.ResponseWriter, r *http.Request) {
	h.command(w, func(m *mount.Mount) error { return m.PoleCheck() })
}

// HandleTrackToggle handles POST /track/toggle.
func (h *Handlers) HandleTrackToggle(w http.ResponseWriter, r *http.Request) {
	h.command(w, func(m *mount.Mount) error { return m.ToggleAutoTrack() })
}

// HandleStop handles POST /stop.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.command(w, func(m *mount.Mount) error { return m.StopMotion() })
}

// HandleMotors handles POST /motors/{action} with action enable or disable.
func (h *Handlers) HandleMotors(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("action") {
	case "enable":
		h.command(w, func(m *mount.Mount) error { return m.EnableMotors() })
	case "disable":
		h.command(w, func(m *mount.Mount) error { return m.DisableMotors() })
	default:
		http.Error(w, "unknown motor action", http.StatusNotFound)
	}
}

// HandleMetrics serves the Prometheus registry.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.metrics.ServeHTTP(w, r)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
