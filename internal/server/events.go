package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/progress"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is one frame of the event stream. The first frame is a
// snapshot of the job board; every later frame carries one event.
type Message struct {
	Type  string              `json:"type"`
	Jobs  []model.DownloadJob `json:"jobs,omitempty"`
	Event *progress.Event     `json:"event,omitempty"`
}

const (
	MessageSnapshot = "snapshot"
	MessageProgress = "job:progress"
)

// handleEvents streams job events as JSON text messages.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade", slog.String("err", err.Error()))
		return
	}
	defer conn.Close()

	events, cancel := s.app.Bus().Channel(64)
	defer cancel()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Message{Type: MessageSnapshot, Jobs: s.app.Jobs()}); err != nil {
		return
	}

	// The read loop only watches for the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case e := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: MessageProgress, Event: &e}); err != nil {
				s.logger.Debug("websocket write", slog.String("err", err.Error()))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
