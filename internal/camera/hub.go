// Package camera bridges a browser or phone camera page to the scanning station over a
// websocket. The page decodes frames and reports codes; the station sends back
// pause, resume and stop controls.
package camera

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Frame types exchanged with the camera page.
const (
	FrameDecode = "decode"
	FrameError  = "error"
	FramePause  = "pause"
	FrameResume = "resume"
	FrameStop   = "stop"
)

const writeWait = 2 * time.Second

// Frame is one websocket message in either direction.
type Frame struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ErrDisconnected is reported when the camera page goes away mid-session.
var ErrDisconnected = errors.New("camera page disconnected")

// Hub serves a single camera page connection and implements scan.Decoder. A new
// connection replaces the previous one.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logrus.Entry

	mu       sync.Mutex
	conn     *websocket.Conn
	onDecode func(string)
	onError  func(error)
	started  bool
	paused   bool

	writeMu sync.Mutex
}

func NewHub(log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The station listener binds to loopback or a trusted LAN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeHTTP upgrades the request and reads frames until the page disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("camera upgrade failed")
		return
	}
	h.log.WithField("remote", r.RemoteAddr).Info("camera page connected")

	h.mu.Lock()
	prev := h.conn
	h.conn = conn
	state := h.controlLocked()
	h.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	if state != "" {
		h.send(conn, Frame{Type: state})
	}
	h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			h.disconnected(conn, err)
			return
		}
		switch f.Type {
		case FrameDecode:
			h.decoded(f.Text)
		case FrameError:
			detail := f.Detail
			if detail == "" {
				detail = "camera error"
			}
			h.failed(errors.New(detail))
		default:
			h.log.WithField("type", f.Type).Debug("ignoring camera frame")
		}
	}
}

func (h *Hub) decoded(text string) {
	text = strings.TrimSpace(text)
	h.mu.Lock()
	cb := h.onDecode
	deliver := h.started && !h.paused && text != ""
	h.mu.Unlock()
	if deliver && cb != nil {
		cb(text)
	}
}

func (h *Hub) failed(err error) {
	h.mu.Lock()
	cb := h.onError
	started := h.started
	h.mu.Unlock()
	if started && cb != nil {
		cb(err)
	}
}

func (h *Hub) disconnected(conn *websocket.Conn, err error) {
	h.mu.Lock()
	current := h.conn == conn
	if current {
		h.conn = nil
	}
	h.mu.Unlock()
	if !current {
		return
	}
	h.log.WithError(err).Info("camera page disconnected")
	h.failed(fmt.Errorf("%w: %v", ErrDisconnected, err))
}

// Start arms the hub. Codes arriving before a page connects are simply not there yet.
func (h *Hub) Start(_ context.Context, onDecode func(string), onError func(error)) error {
	h.mu.Lock()
	h.onDecode = onDecode
	h.onError = onError
	h.started = true
	h.paused = false
	h.mu.Unlock()
	h.broadcast(FrameResume)
	return nil
}

func (h *Hub) Pause() error {
	h.mu.Lock()
	h.paused = true
	h.mu.Unlock()
	return h.broadcast(FramePause)
}

func (h *Hub) Resume() error {
	h.mu.Lock()
	h.paused = false
	h.mu.Unlock()
	return h.broadcast(FrameResume)
}

func (h *Hub) Stop() error {
	h.mu.Lock()
	h.started = false
	h.paused = false
	h.onDecode = nil
	h.onError = nil
	h.mu.Unlock()
	return h.broadcast(FrameStop)
}

// Connected reports whether a camera page is attached.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// Close drops the current connection.
func (h *Hub) Close() error {
	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	h.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (h *Hub) controlLocked() string {
	switch {
	case !h.started:
		return ""
	case h.paused:
		return FramePause
	default:
		return FrameResume
	}
}

func (h *Hub) broadcast(kind string) error {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return nil
	}
	return h.send(conn, Frame{Type: kind})
}

func (h *Hub) send(conn *websocket.Conn, f Frame) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(f); err != nil {
		h.log.WithError(err).WithField("type", f.Type).Warn("camera control send failed")
		return fmt.Errorf("send %s: %w", f.Type, err)
	}
	return nil
}
