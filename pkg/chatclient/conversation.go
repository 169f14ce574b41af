package chatclient

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/go-go-golems/jiminy/pkg/kvstore"
)

// DefaultStorageKey is the session-scoped key the message log is persisted
// under. Only the log is stored: not the token, and not the conversation id —
// a reload restores messages and starts a fresh backend conversation.
const DefaultStorageKey = "jiminy:messages"

// ConversationStore owns the ordered message log and the backend-assigned
// conversation id. It holds exactly one conversation at a time and persists
// the log after every mutation, so a crash mid-request can at worst lose the
// in-flight turn, never corrupt prior history.
type ConversationStore struct {
	mu       sync.Mutex
	id       string
	messages []Message
	kv       kvstore.Store
	key      string
	logger   zerolog.Logger
}

func NewConversationStore(kv kvstore.Store, key string, logger zerolog.Logger) *ConversationStore {
	if key == "" {
		key = DefaultStorageKey
	}
	return &ConversationStore{
		kv:     kv,
		key:    key,
		logger: logger.With().Str("component", "conversation_store").Logger(),
	}
}

// Restore loads the persisted log, best-effort: an absent key, a read error,
// or anything that is not a message sequence leaves the conversation empty.
// It never fails. The conversation id is intentionally not restored.
func (s *ConversationStore) Restore() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reading persisted log failed, starting empty")
		return nil
	}
	if !ok {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.logger.Warn().Err(&MalformedStateError{Err: err}).Msg("discarding malformed persisted log")
		return nil
	}
	s.messages = msgs
	return s.snapshotLocked()
}

// Append adds a message and persists the log. It returns the message's index,
// which reveal uses to identify its target.
func (s *ConversationStore) Append(msg Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.persistLocked()
	return len(s.messages) - 1
}

// SetText replaces the text of the message at index, but only while that
// message is still the last entry of the log. It reports whether the write
// happened; a false return tells the reveal loop the log changed underneath
// it and it must stop.
func (s *ConversationStore) SetText(index int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index != len(s.messages)-1 || index < 0 {
		return false
	}
	s.messages[index].Text = text
	s.persistLocked()
	return true
}

// Messages returns a copy of the log.
func (s *ConversationStore) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Last returns the final message, if any.
func (s *ConversationStore) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ID returns the backend-assigned conversation id, empty until the first
// successful turn.
func (s *ConversationStore) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// AdoptID overwrites the conversation id with the backend's value. The
// backend is authoritative for identifier continuity; the id is never
// client-generated and never persisted.
func (s *ConversationStore) AdoptID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// Clear resets the conversation to empty, drops the id, and purges the
// persisted copy. Only an explicit user action calls this.
func (s *ConversationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.id = ""
	if err := s.kv.Remove(s.key); err != nil {
		s.logger.Warn().Err(err).Msg("removing persisted log failed")
	}
}

func (s *ConversationStore) snapshotLocked() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ConversationStore) persistLocked() {
	b, err := json.Marshal(s.messages)
	if err != nil {
		s.logger.Warn().Err(err).Msg("marshaling log failed, skipping persist")
		return
	}
	if err := s.kv.Set(s.key, string(b)); err != nil {
		s.logger.Warn().Err(err).Msg("persisting log failed")
	}
}
