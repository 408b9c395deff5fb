package push

import (
	"context"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Reconnect pacing matches the device server retry configuration.
const (
	initialReconnectDelay = 10 * time.Second
	maxReconnectDelay     = 300 * time.Second
)

// WebsocketSource subscribes to the status feed over a websocket. It keeps
// redialing with exponential backoff until disconnected; a lost connection
// surfaces as an error event, a successful redial as a reconnected event.
type WebsocketSource struct {
	Url string

	logger *log.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func (ws *WebsocketSource) Connect(ctx context.Context, handler Handler) (err error) {
	if ws.cancel != nil {
		return errors.New("websocket source already connected")
	}

	feedUrl, err := url.Parse(ws.Url)
	if err != nil {
		return errors.Wrap(err, "failed to parse websocket feed address")
	}
	switch feedUrl.Scheme {
	case "ws", "wss":
	case "http":
		feedUrl.Scheme = "ws"
	case "https":
		feedUrl.Scheme = "wss"
	default:
		return errors.Errorf("unsupported websocket feed scheme: %s", feedUrl.Scheme)
	}

	ws.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "PushWs: ",
		Level:  log.GetLevel(),
	})

	ctx, ws.cancel = context.WithCancel(ctx)
	ws.done = make(chan struct{})

	go ws.run(ctx, feedUrl.String(), handler)

	return nil
}

func (ws *WebsocketSource) Disconnect(ctx context.Context) error {
	if ws.cancel == nil {
		return nil
	}
	ws.cancel()

	select {
	case <-ws.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "websocket source did not shut down in time")
	}
}

func (ws *WebsocketSource) run(ctx context.Context, addr string, handler Handler) {
	defer close(ws.done)

	delay := newBackoff(initialReconnectDelay, maxReconnectDelay)
	everConnected := false

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ws.logger.Error("failed to connect status feed", "err", err)
			handler(Event{Type: EventError})
			if !ws.wait(ctx, delay.Next()) {
				return
			}
			continue
		}

		delay.Reset()
		if everConnected {
			handler(Event{Type: EventReconnected})
		}
		everConnected = true

		ws.readLoop(ctx, conn, handler)

		if ctx.Err() != nil {
			return
		}
		ws.logger.Warn("status feed connection lost, will reconnect")
		handler(Event{Type: EventError})
		if !ws.wait(ctx, delay.Next()) {
			return
		}
	}
}

// readLoop delivers events until the connection breaks or ctx is cancelled.
func (ws *WebsocketSource) readLoop(ctx context.Context, conn *websocket.Conn, handler Handler) {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopped:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		ev, err := decodeEnvelope(data)
		if err != nil {
			ws.logger.Error("dropping unreadable push message", "err", err)
			continue
		}

		handler(ev)
	}
}

func (ws *WebsocketSource) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
