package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// probeWriteTimeout bounds control-frame writes on the probe socket.
	probeWriteTimeout = 10 * time.Second

	// probePingInterval is the keepalive cadence while connected.
	probePingInterval = 30 * time.Second

	// probeMaxBackoff caps the reconnect backoff after repeated failures.
	probeMaxBackoff = 2 * time.Minute
)

// SocketProbe derives connectivity from a persistent websocket to the sync
// server: connected means online, a failed read or dial means offline. The
// probe is the Go stand-in for the browser's online/offline events; it
// reports transitions through the embedded Notifier rather than being polled.
type SocketProbe struct {
	*Notifier

	url    string
	header http.Header

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSocketProbe creates a probe for the given websocket URL. The probe
// starts offline; call Start to begin dialing.
func NewSocketProbe(url string, header http.Header) *SocketProbe {
	return &SocketProbe{
		Notifier: NewNotifier(false),
		url:      url,
		header:   header,
	}
}

// Start begins the dial/keepalive loop.
func (p *SocketProbe) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop tears down the probe and marks the host offline.
func (p *SocketProbe) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.Set(false)
}

func (p *SocketProbe) run(ctx context.Context) {
	defer p.wg.Done()

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.url, p.header)
		if err != nil {
			p.Set(false)
			slog.Debug("Connectivity probe dial failed", "url", p.url, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, probeMaxBackoff)
			continue
		}

		backoff = time.Second
		p.Set(true)
		slog.Debug("Connectivity probe connected", "url", p.url)

		p.hold(ctx, conn)
		conn.Close()
		p.Set(false)
	}
}

// hold keeps the connection alive until it breaks or the probe stops.
func (p *SocketProbe) hold(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})

	// The server sends nothing of interest; reading surfaces closes and
	// resets promptly and services pong frames.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(probePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(probeWriteTimeout))
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(probeWriteTimeout)); err != nil {
				return
			}
		}
	}
}
