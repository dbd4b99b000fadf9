package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the dashboard is served from anywhere
	CheckOrigin: func(*http.Request) bool { return true },
}

// Push is one message on /ws.
type Push struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ws sends the status immediately and then every push interval until the
// client goes away or the server closes.
func (s *Server) ws(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already answered
		s.log.Debug().Err(err).Msg("ws upgrade")
		return nil
	}
	defer conn.Close()

	// Reads only detect the client closing; incoming messages are ignored.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(Push{Event: "status_update", Data: s.status.Snapshot()})
	}
	if err := send(); err != nil {
		return nil
	}

	t := time.NewTicker(s.push)
	defer t.Stop()
	for {
		select {
		case <-gone:
			return nil
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return nil
		case <-t.C:
			if err := send(); err != nil {
				s.log.Debug().Err(err).Msg("ws write")
				return nil
			}
		}
	}
}
