package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/jiminy/pkg/citations"
	"github.com/go-go-golems/jiminy/pkg/kvstore"
)

type backendStub struct {
	mu       sync.Mutex
	requests []ChatRequest
	hits     atomic.Int64

	status   int
	body     string
	answer   string
	cits     []citations.Citation
	convID   string
	blockCh  chan struct{} // when set, handler waits before answering
	authSeen []string
}

func (b *backendStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		b.hits.Add(1)
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.requests = append(b.requests, req)
		b.authSeen = append(b.authSeen, r.Header.Get("Authorization"))
		b.mu.Unlock()
		if b.blockCh != nil {
			<-b.blockCh
		}
		if b.status != 0 {
			w.WriteHeader(b.status)
			_, _ = w.Write([]byte(b.body))
			return
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Answer:         b.answer,
			Citations:      b.cits,
			ConversationID: b.convID,
		})
	})
}

func (b *backendStub) auth(t *testing.T, i int) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.Greater(t, len(b.authSeen), i)
	return b.authSeen[i]
}

func (b *backendStub) request(t *testing.T, i int) ChatRequest {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.Greater(t, len(b.requests), i)
	return b.requests[i]
}

func newTestClient(t *testing.T, srvURL string, guard *SessionGuard) (*Client, *ConversationStore) {
	t.Helper()
	store := NewConversationStore(kvstore.NewInMemoryStore(), "", zerolog.Nop())
	c, err := NewClient(Config{
		APIBase:   srvURL,
		Source:    "docs-site",
		Guard:     guard,
		Store:     store,
		Scheduler: ImmediateScheduler{},
		Clock:     func() time.Time { return time.Unix(1700000000, 0) },
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return c, store
}

func TestSendAppendsUserThenAssistant(t *testing.T) {
	stub := &backendStub{answer: "hi there", convID: "conv-abc"}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, NewSessionGuard("tok", 0))
	c.Send(context.Background(), "  hello?  ")

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, RoleUser, msgs[0].Role)
	require.Equal(t, "hello?", msgs[0].Text)
	require.Equal(t, RoleAssistant, msgs[1].Role)
	require.Equal(t, "hi there", msgs[1].Text)
	require.Equal(t, "conv-abc", store.ID())

	require.Equal(t, "Bearer tok", stub.auth(t, 0))
	require.Equal(t, "docs-site", stub.request(t, 0).Source)
	require.Empty(t, stub.request(t, 0).ConversationID)
	require.Empty(t, stub.request(t, 0).History)
	require.False(t, c.Busy())
}

func TestSendEmptyQueryIsNoop(t *testing.T) {
	stub := &backendStub{answer: "x", convID: "c"}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, NewSessionGuard("tok", 0))
	c.Send(context.Background(), "   ")
	require.Zero(t, store.Len())
	require.Zero(t, stub.hits.Load())
}

func TestSingleInFlightRejectsConcurrentSend(t *testing.T) {
	stub := &backendStub{answer: "done", convID: "c", blockCh: make(chan struct{})}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, NewSessionGuard("tok", 0))

	first := make(chan struct{})
	go func() {
		c.Send(context.Background(), "one")
		close(first)
	}()
	require.Eventually(t, c.Busy, time.Second, time.Millisecond)

	// Rejected, not queued: no request, no user append.
	c.Send(context.Background(), "two")

	close(stub.blockCh)
	<-first

	require.Equal(t, int64(1), stub.hits.Load())
	msgs := store.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "one", msgs[0].Text)
}

func TestSendWithoutTokenFailsLocally(t *testing.T) {
	stub := &backendStub{answer: "never", convID: "c"}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, NewSessionGuard("", 0))
	c.Send(context.Background(), "hello")

	require.Zero(t, stub.hits.Load())
	msgs := store.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, RoleUser, msgs[0].Role)
	require.Equal(t, RoleAssistant, msgs[1].Role)
	require.Equal(t, notAuthorizedText, msgs[1].Text)
	require.False(t, c.Busy())
}

func TestSendWithExpiredTokenFailsLocally(t *testing.T) {
	stub := &backendStub{answer: "never", convID: "c"}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	guard := NewSessionGuard("tok", 1000, WithClock(fixedClock(1000)))
	c, store := newTestClient(t, srv.URL, guard)
	c.Send(context.Background(), "hello")

	require.Zero(t, stub.hits.Load())
	msgs := store.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, notAuthorizedText, msgs[1].Text)
}

func TestBackendErrorBecomesAssistantMessage(t *testing.T) {
	stub := &backendStub{status: http.StatusInternalServerError, body: "index offline"}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, NewSessionGuard("tok", 0))
	c.Send(context.Background(), "hello")

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "Error: backend returned 500: index offline", msgs[1].Text)

	// The failure is terminal for the turn only; the next send still works.
	require.False(t, c.Busy())
}

func TestTransportErrorBecomesAssistantMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // refuse connections

	c, store := newTestClient(t, srv.URL, NewSessionGuard("tok", 0))
	c.Send(context.Background(), "hello")

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	require.True(t, strings.HasPrefix(msgs[1].Text, "Error: transport:"), msgs[1].Text)
}

func TestConversationIDAdoptionAndClear(t *testing.T) {
	stub := &backendStub{answer: "a", convID: "conv-abc"}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, NewSessionGuard("tok", 0))
	c.Send(context.Background(), "first")
	c.Send(context.Background(), "second")

	require.Empty(t, stub.request(t, 0).ConversationID)
	require.Equal(t, "conv-abc", stub.request(t, 1).ConversationID)

	// History replays the prior turn, not the current query.
	hist := stub.request(t, 1).History
	require.Len(t, hist, 2)
	require.Equal(t, "first", hist[0].Text)
	require.Equal(t, "a", hist[1].Text)

	c.Clear()
	require.Zero(t, store.Len())
	c.Send(context.Background(), "third")
	require.Empty(t, stub.request(t, 2).ConversationID)
	require.Empty(t, stub.request(t, 2).History)
}

func TestReloadRestoresMessagesButNotConversationID(t *testing.T) {
	stub := &backendStub{answer: "a", convID: "conv-abc"}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	kv := kvstore.NewInMemoryStore()
	store := NewConversationStore(kv, "", zerolog.Nop())
	c, err := NewClient(Config{
		APIBase: srv.URL, Guard: NewSessionGuard("tok", 0), Store: store,
		Scheduler: ImmediateScheduler{}, Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	c.Send(context.Background(), "first")

	// Simulate a reload: a fresh store over the same storage.
	reloaded := NewConversationStore(kv, "", zerolog.Nop())
	require.Len(t, reloaded.Restore(), 2)

	c2, err := NewClient(Config{
		APIBase: srv.URL, Guard: NewSessionGuard("tok", 0), Store: reloaded,
		Scheduler: ImmediateScheduler{}, Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	c2.Send(context.Background(), "after reload")

	require.Empty(t, stub.request(t, 1).ConversationID)
	require.Len(t, stub.request(t, 1).History, 2)
}

func TestCitationsDedupedAndMarkersRenumbered(t *testing.T) {
	stub := &backendStub{
		answer: "see [1] and [2]",
		cits: []citations.Citation{
			{URL: "file:///docs/policy.pdf"},
			{Title: "policy.pdf"},
		},
		convID: "c",
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, NewSessionGuard("tok", 0))
	c.Send(context.Background(), "q")

	last, ok := store.Last()
	require.True(t, ok)
	require.Len(t, last.Citations, 1)
	// Both markers now point at the single surviving citation.
	require.Equal(t, "see [1] and [1]", last.Text)

	segs := c.Linkify(last)
	require.Len(t, segs, 3)
	require.True(t, segs[0].IsLink())
	require.Contains(t, segs[0].Href, "/api/files/policy.pdf")
	require.Contains(t, segs[0].Href, "token=tok")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, NewSessionGuard("tok", 0))
	require.NoError(t, c.Ping(context.Background()))

	srv.Close()
	err := c.Ping(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}
