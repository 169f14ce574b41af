package host

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WebSocketNotifier forwards resize intents to a parent-side relay over a
// websocket. Delivery is fire-and-forget: write failures are logged and the
// intent is dropped, never retried.
type WebSocketNotifier struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialNotifier connects to a relay's widget endpoint.
func DialNotifier(ctx context.Context, url string) (*WebSocketNotifier, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial relay %s", url)
	}
	return &WebSocketNotifier{conn: conn}, nil
}

func (n *WebSocketNotifier) Notify(g Geometry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return
	}
	if err := n.conn.WriteJSON(g.resizeMessage()); err != nil {
		log.Warn().Err(err).Str("component", "host").Msg("relay write failed, dropping intent")
	}
}

func (n *WebSocketNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}
