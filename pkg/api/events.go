package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rubiojr/fingertips/pkg/log"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// initMessage is the first frame sent on /api/events.
type initMessage struct {
	Type  string `json:"type"`
	State State  `json:"state"`
}

// HandleEvents streams progress events over a WebSocket. The first message
// carries the current batch state so a page opened mid-batch can catch up.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	l := log.ForService("api")
	if s.hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Events unavailable", "no progress hub configured")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Debugf("websocket upgrade: %v", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	id, events := s.hub.Register()
	defer s.hub.Unregister(id)

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(initMessage{Type: "init", State: s.runner.Current()}); err != nil {
		return
	}

	// The client never sends anything meaningful; reading is only needed to
	// notice it went away and to process pongs.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
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

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				l.Debugf("websocket write: %v", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
