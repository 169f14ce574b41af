package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/jiminy/pkg/citations"
)

const (
	chatPath   = "/api/chat"
	healthPath = "/api/health"

	// non-2xx bodies are diagnostics only; don't slurp unbounded responses
	maxErrorBody = 64 << 10
)

// Config carries everything the client needs, injected once at construction.
// Business logic never reads ambient global state.
type Config struct {
	// APIBase is the backend's base URL, e.g. "https://api.example.com".
	APIBase string
	// Source is an optional tag identifying the embedding surface; it is
	// forwarded verbatim on every request.
	Source string
	Guard  *SessionGuard
	Store  *ConversationStore

	HTTPClient *http.Client
	Reveal     RevealConfig
	Scheduler  Scheduler
	Clock      func() time.Time
	Logger     zerolog.Logger
}

// Client executes the request/response exchange with the backend and owns the
// single-in-flight-request invariant. All effects of Send land in the
// ConversationStore; failures become visible assistant messages, never
// returned errors.
type Client struct {
	apiBase    string
	source     string
	guard      *SessionGuard
	store      *ConversationStore
	httpClient *http.Client
	reveal     RevealConfig
	scheduler  Scheduler
	clock      func() time.Time
	logger     zerolog.Logger

	busy atomic.Bool
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		return nil, errors.New("chatclient: APIBase is empty")
	}
	if cfg.Store == nil {
		return nil, errors.New("chatclient: Store is nil")
	}
	if cfg.Guard == nil {
		return nil, errors.New("chatclient: Guard is nil")
	}
	c := &Client{
		apiBase:    base,
		source:     strings.TrimSpace(cfg.Source),
		guard:      cfg.Guard,
		store:      cfg.Store,
		httpClient: cfg.HTTPClient,
		reveal:     cfg.Reveal.withDefaults(),
		scheduler:  cfg.Scheduler,
		clock:      cfg.Clock,
		logger:     cfg.Logger.With().Str("component", "chatclient").Logger(),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.scheduler == nil {
		c.scheduler = TickerScheduler{}
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c, nil
}

// Store exposes the conversation store so hosts can render from it.
func (c *Client) Store() *ConversationStore { return c.store }

// Busy reports whether a send is in flight (including its reveal phase).
func (c *Client) Busy() bool { return c.busy.Load() }

// Clear resets the conversation. A reveal loop running over the old log
// detects the shape change and stops on its next step.
func (c *Client) Clear() { c.store.Clear() }

// Send runs one full turn: optimistic user append, authorization gate,
// backend exchange, citation normalization, and progressive reveal. It runs
// in the caller's goroutine; hosts dispatch it as a background command.
//
// Preconditions: query non-empty after trimming, and no other send in flight.
// A send while busy is silently ignored, not queued.
func (c *Client) Send(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("send ignored, request already in flight")
		return
	}
	defer c.busy.Store(false)

	logger := c.logger.With().Str("request_id", uuid.NewString()).Logger()

	// History replay covers every turn before this one; the current query
	// travels in the query field.
	history := c.store.Messages()
	c.store.Append(Message{Role: RoleUser, Text: query, Timestamp: c.timestamp()})

	if !c.guard.CanSend() {
		logger.Info().Msg("send blocked, no live session token")
		c.appendFailure(AuthorizationError{})
		return
	}

	resp, err := c.exchange(ctx, ChatRequest{
		Query:          query,
		Source:         c.source,
		ConversationID: c.store.ID(),
		History:        history,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("turn failed")
		c.appendFailure(err)
		return
	}

	// Adoption precedes the assistant append for this turn.
	c.store.AdoptID(resp.ConversationID)

	deduped, oldToNew := citations.DedupeWithMap(resp.Citations)
	answer := citations.RenumberMarkers(resp.Answer, oldToNew)

	index := c.store.Append(Message{
		Role:      RoleAssistant,
		Citations: deduped,
		Timestamp: c.timestamp(),
	})
	logger.Debug().Str("conversation_id", resp.ConversationID).Int("citations", len(deduped)).Msg("revealing answer")
	r := newRevealer(c.store, index, answer, c.reveal.Stride)
	c.scheduler.Run(ctx, c.reveal.Interval, r.Step)
}

// Ping checks the backend's health probe.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+healthPath, nil)
	if err != nil {
		return errors.Wrap(err, "build health request")
	}
	resp, err := c.httpClient.Do(c.guard.Authorize(req))
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &BackendError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// Linkify renders a message's text against its own deduped citation list,
// resolving links with this client's base URL and token.
func (c *Client) Linkify(msg Message) []citations.Segment {
	return citations.Linkify(msg.Text, msg.Citations, c.apiBase, c.guard.Token())
}

// ResolveCitation resolves one citation with this client's base URL and token.
func (c *Client) ResolveCitation(cit citations.Citation) (string, bool) {
	return citations.Resolve(cit, c.apiBase, c.guard.Token())
}

func (c *Client) exchange(ctx context.Context, body ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "encode request")}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+chatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(c.guard.Authorize(req))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &BackendError{Status: resp.StatusCode, Body: string(raw)}
	}
	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "decode response")}
	}
	return &out, nil
}

func (c *Client) appendFailure(err error) {
	c.store.Append(Message{
		Role:      RoleAssistant,
		Text:      messageTextForError(err),
		Timestamp: c.timestamp(),
	})
}

func (c *Client) timestamp() string {
	return c.clock().UTC().Format(time.RFC3339)
}
