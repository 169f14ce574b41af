// Package host manages the presentation side of the embedded chat widget:
// the open/closed state, the geometry the widget would like to occupy, and
// the fire-and-forget resize intents sent to whatever context embeds it.
// Geometry never touches conversation state.
package host

import (
	"sync"

	"github.com/rs/zerolog"
)

// MessageTypeResize is the type tag of every resize intent.
const MessageTypeResize = "RESIZE"

// Geometry describes the widget's desired size and open state.
type Geometry struct {
	Width  int
	Height int
	Open   bool
}

// ResizeMessage is the wire form of a resize intent sent to the parent
// context. There is no acknowledgment; the host never assumes the parent
// honors it.
type ResizeMessage struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Open   bool   `json:"open"`
}

func (g Geometry) resizeMessage() ResizeMessage {
	return ResizeMessage{Type: MessageTypeResize, Width: g.Width, Height: g.Height, Open: g.Open}
}

// Notifier delivers resize intents to the embedding parent.
type Notifier interface {
	Notify(Geometry)
}

// Size is a width/height pair.
type Size struct {
	Width  int
	Height int
}

// Launcher-bubble and open-panel defaults, matching a typical floating chat
// widget.
var (
	DefaultClosedSize = Size{Width: 72, Height: 72}
	DefaultOpenSize   = Size{Width: 380, Height: 560}
)

type Config struct {
	OpenSize   Size
	ClosedSize Size
	Notifier   Notifier
	Logger     zerolog.Logger
}

// Host tracks the widget's presentation state. On construction it
// unconditionally emits a "closed" intent so the embedding surface starts
// minimized regardless of any stale parent-side state.
type Host struct {
	mu         sync.Mutex
	open       bool
	openSize   Size
	closedSize Size
	notifier   Notifier
	logger     zerolog.Logger
}

func New(cfg Config) *Host {
	if cfg.OpenSize == (Size{}) {
		cfg.OpenSize = DefaultOpenSize
	}
	if cfg.ClosedSize == (Size{}) {
		cfg.ClosedSize = DefaultClosedSize
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	h := &Host{
		openSize:   cfg.OpenSize,
		closedSize: cfg.ClosedSize,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger.With().Str("component", "host").Logger(),
	}
	h.notify(h.geometryLocked())
	return h
}

// Open reports the current presentation state.
func (h *Host) Open() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// SetOpen transitions the presentation state and emits a resize intent on
// every transition, including redundant ones.
func (h *Host) SetOpen(open bool) {
	h.mu.Lock()
	h.open = open
	g := h.geometryLocked()
	h.mu.Unlock()
	h.notify(g)
}

// Toggle flips the open state and returns the new value.
func (h *Host) Toggle() bool {
	h.mu.Lock()
	h.open = !h.open
	open := h.open
	g := h.geometryLocked()
	h.mu.Unlock()
	h.notify(g)
	return open
}

// SetOpenSize updates the size used while open, re-announcing geometry when
// the widget is currently open. Dragging and resizing affect presentation
// only.
func (h *Host) SetOpenSize(size Size) {
	h.mu.Lock()
	h.openSize = size
	open := h.open
	g := h.geometryLocked()
	h.mu.Unlock()
	if open {
		h.notify(g)
	}
}

// Geometry returns the currently desired geometry.
func (h *Host) Geometry() Geometry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.geometryLocked()
}

func (h *Host) geometryLocked() Geometry {
	size := h.closedSize
	if h.open {
		size = h.openSize
	}
	return Geometry{Width: size.Width, Height: size.Height, Open: h.open}
}

func (h *Host) notify(g Geometry) {
	h.logger.Debug().Int("width", g.Width).Int("height", g.Height).Bool("open", g.Open).Msg("emitting resize intent")
	h.notifier.Notify(g)
}
