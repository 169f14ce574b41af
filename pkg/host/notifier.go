package host

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// NopNotifier swallows intents; used when the widget runs standalone.
type NopNotifier struct{}

func (NopNotifier) Notify(Geometry) {}

// FuncNotifier adapts a function, mainly for tests and composition.
type FuncNotifier func(Geometry)

func (f FuncNotifier) Notify(g Geometry) { f(g) }

// WriterNotifier writes one JSON-encoded resize message per line, for files
// and pipes to co-processes.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(g Geometry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, err := json.Marshal(g.resizeMessage())
	if err != nil {
		log.Warn().Err(err).Str("component", "host").Msg("encoding resize intent failed")
		return
	}
	if _, err := n.w.Write(append(b, '\n')); err != nil {
		log.Warn().Err(err).Str("component", "host").Msg("writing resize intent failed")
	}
}
