package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/logic/mount"
)

const (
	joystickReadLimit   = 512
	joystickIdleTimeout = 30 * time.Second
)

// JoystickFrame is one manual speed command, each axis in [-128, 127].
type JoystickFrame struct {
	X int8 `json:"x"`
	Y int8 `json:"y"`
}

type joystickReply struct {
	Error string `json:"error,omitempty"`
}

// HandleJoystick handles GET /ws/joystick. Each text frame sets the manual
// speed; when the client goes away both axes are stopped.
func (h *Handlers) HandleJoystick(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Verbose("joystick upgrade: %v", err)
		return
	}
	defer conn.Close()
	defer h.Mount.Do(func(m *mount.Mount) error {
		m.SetManualSpeed(0, 0)
		return nil
	})

	debug.Info("Joystick connected from %s", r.RemoteAddr)
	conn.SetReadLimit(joystickReadLimit)
	for {
		conn.SetReadDeadline(time.Now().Add(joystickIdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				debug.Info("Joystick disconnected: %v", err)
			}
			return
		}

		var f JoystickFrame
		if err := json.Unmarshal(data, &f); err != nil {
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteJSON(joystickReply{Error: "invalid frame: " + err.Error()}); err != nil {
				return
			}
			continue
		}
		h.Mount.Do(func(m *mount.Mount) error {
			m.SetManualSpeed(f.X, f.Y)
			return nil
		})
	}
}
