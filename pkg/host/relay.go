package host

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Relay is a parent-document stand-in used when the widget is embedded out of
// process: widgets connect to /widget and publish resize intents, observers
// connect to /observe and receive every accepted intent, and /geometry serves
// the latest one. Intents are validated but never acknowledged.
type Relay struct {
	upgrader websocket.Upgrader

	mu        sync.Mutex
	observers map[*websocket.Conn]struct{}
	last      *ResizeMessage

	logger zerolog.Logger
}

func NewRelay(logger zerolog.Logger) *Relay {
	return &Relay{
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		observers: map[*websocket.Conn]struct{}{},
		logger:    logger.With().Str("component", "relay").Logger(),
	}
}

// Handler returns the relay's HTTP surface.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/widget", r.handleWidget)
	mux.HandleFunc("/observe", r.handleObserve)
	mux.HandleFunc("/geometry", r.handleGeometry)
	return mux
}

// Last returns the most recent accepted intent, if any.
func (r *Relay) Last() (ResizeMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return ResizeMessage{}, false
	}
	return *r.last, true
}

func (r *Relay) handleWidget(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn().Err(err).Msg("widget upgrade failed")
		return
	}
	id := uuid.NewString()
	logger := r.logger.With().Str("widget_id", id).Logger()
	logger.Info().Msg("widget connected")
	defer func() {
		_ = conn.Close()
		logger.Info().Msg("widget disconnected")
	}()

	for {
		var msg ResizeMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != MessageTypeResize || msg.Width < 0 || msg.Height < 0 {
			logger.Warn().Str("type", msg.Type).Msg("ignoring malformed intent")
			continue
		}
		logger.Debug().Int("width", msg.Width).Int("height", msg.Height).Bool("open", msg.Open).Msg("resize intent")
		r.accept(msg)
	}
}

func (r *Relay) handleObserve(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn().Err(err).Msg("observer upgrade failed")
		return
	}
	// Late joiners immediately learn the current geometry. The snapshot write
	// happens under the mutex and before the conn joins the broadcast set, so
	// it can neither interleave with a broadcast write nor arrive after one.
	r.mu.Lock()
	if r.last != nil {
		if err := conn.WriteJSON(*r.last); err != nil {
			r.mu.Unlock()
			_ = conn.Close()
			return
		}
	}
	r.observers[conn] = struct{}{}
	r.mu.Unlock()
	// Observers never send; the read loop only notices disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				r.drop(conn)
				return
			}
		}
	}()
}

func (r *Relay) handleGeometry(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	msg, ok := r.Last()
	if !ok {
		http.Error(w, "no geometry yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(msg)
}

func (r *Relay) accept(msg ResizeMessage) {
	r.mu.Lock()
	r.last = &msg
	for conn := range r.observers {
		if err := conn.WriteJSON(msg); err != nil {
			r.logger.Warn().Err(err).Msg("observer write failed, dropping connection")
			delete(r.observers, conn)
			_ = conn.Close()
		}
	}
	r.mu.Unlock()
}

func (r *Relay) drop(conn *websocket.Conn) {
	r.mu.Lock()
	delete(r.observers, conn)
	r.mu.Unlock()
	_ = conn.Close()
}
