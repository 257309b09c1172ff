package controller

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"smogdash/internal/modules/smog/views"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// handleWebsocket pushes the rendered station partial on connect and after
// every state transition. The connection closes when the store is closed.
func (c *stationControllerImpl) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		c.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	updates, cancel := c.store.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go readPump(conn, done)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case vs, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			var buf bytes.Buffer
			if err := views.RenderStationPartial(&buf, views.NewStationView(vs)); err != nil {
				c.logger.Error("websocket partial render failed", "error", err)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readPump drains client frames so control messages are processed and
// closes done once the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
