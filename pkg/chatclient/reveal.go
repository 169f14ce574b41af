package chatclient

import (
	"context"
	"time"
)

// RevealConfig tunes the typing simulation: the rendered prefix of an answer
// grows by Stride characters every Interval until it equals the full text.
type RevealConfig struct {
	Stride   int
	Interval time.Duration
}

const (
	defaultRevealStride   = 3
	defaultRevealInterval = 30 * time.Millisecond
)

func (c RevealConfig) withDefaults() RevealConfig {
	if c.Stride <= 0 {
		c.Stride = defaultRevealStride
	}
	if c.Interval <= 0 {
		c.Interval = defaultRevealInterval
	}
	return c
}

// Scheduler drives repeated reveal steps. step reports whether another step
// is wanted; Run returns when step says no or the context is done.
type Scheduler interface {
	Run(ctx context.Context, interval time.Duration, step func() bool)
}

// TickerScheduler is the default: one step per interval on a real ticker.
type TickerScheduler struct{}

func (TickerScheduler) Run(ctx context.Context, interval time.Duration, step func() bool) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !step() {
				return
			}
		}
	}
}

// ImmediateScheduler runs every step back to back with no delay. Tests and
// non-interactive hosts use it to skip the typing simulation.
type ImmediateScheduler struct{}

func (ImmediateScheduler) Run(ctx context.Context, _ time.Duration, step func() bool) {
	for step() {
		if ctx.Err() != nil {
			return
		}
	}
}

// revealer is the {idle, revealing(target, shown)} state machine. It mutates
// only the message it was created for, append-only, and stops the moment that
// message is no longer the last entry of the log — a clear or reset underneath
// the loop must never corrupt unrelated messages.
type revealer struct {
	store  *ConversationStore
	index  int
	target []rune
	shown  int
	stride int
}

func newRevealer(store *ConversationStore, index int, target string, stride int) *revealer {
	return &revealer{store: store, index: index, target: []rune(target), stride: stride}
}

// Step advances the shown prefix once. It returns false when the reveal is
// finished or has been invalidated by the log changing shape.
func (r *revealer) Step() bool {
	if r.shown >= len(r.target) {
		return false
	}
	if r.store.Len()-1 != r.index {
		return false
	}
	last, ok := r.store.Last()
	if !ok || last.Role != RoleAssistant || last.Text != string(r.target[:r.shown]) {
		return false
	}
	r.shown += r.stride
	if r.shown > len(r.target) {
		r.shown = len(r.target)
	}
	if !r.store.SetText(r.index, string(r.target[:r.shown])) {
		return false
	}
	return r.shown < len(r.target)
}
