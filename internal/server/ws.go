package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// probeReadLimit bounds inbound frames; agents send nothing but pings.
	probeReadLimit = 512

	// probePongWait is how long a probe connection may stay silent before the
	// server considers it dead. Agents ping every 30s.
	probePongWait = 90 * time.Second

	// probeWriteTimeout bounds control-frame writes.
	probeWriteTimeout = 10 * time.Second
)

var probeUpgrader = websocket.Upgrader{
	ReadBufferSize:  256,
	WriteBufferSize: 256,
	// Agents connect with header auth, not from browser origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleProbeSocket holds a websocket open so field agents can derive their
// online/offline state from the connection itself. The server sends no data;
// pings from the agent refresh the read deadline and get answered with pongs.
func handleProbeSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := probeUpgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug(LogMsgProbeUpgradeFailed, "error", err, "remote_addr", r.RemoteAddr)
			return
		}
		defer conn.Close()

		conn.SetReadLimit(probeReadLimit)
		if err := conn.SetReadDeadline(time.Now().Add(probePongWait)); err != nil {
			return
		}
		conn.SetPingHandler(func(appData string) error {
			if err := conn.SetReadDeadline(time.Now().Add(probePongWait)); err != nil {
				return err
			}
			return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(probeWriteTimeout))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
