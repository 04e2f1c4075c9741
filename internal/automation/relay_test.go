package automation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contentflow/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type hook struct {
	Path   string
	Auth   string
	Header http.Header
	Body   map[string]any
}

type hookServer struct {
	mu     sync.Mutex
	hooks  []hook
	status int
	srv    *httptest.Server
}

func newHookServer(t *testing.T) *hookServer {
	t.Helper()
	hs := &hookServer{status: http.StatusOK}
	hs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		hs.mu.Lock()
		hs.hooks = append(hs.hooks, hook{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Header: r.Header.Clone(), Body: body})
		status := hs.status
		hs.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(hs.srv.Close)
	return hs
}

func (hs *hookServer) calls() []hook {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return append([]hook(nil), hs.hooks...)
}

func (hs *hookServer) setStatus(code int) {
	hs.mu.Lock()
	hs.status = code
	hs.mu.Unlock()
}

func newTestRelay(hs *hookServer, ledger Ledger) *Relay {
	return NewRelay(hs.srv.Client(), ledger, RelayConfig{BaseURL: hs.srv.URL + "/", APIKey: "n8n-key"})
}

func TestRelay_ContentPublishedTriggersSocialWebhook(t *testing.T) {
	hs := newHookServer(t)
	relay := newTestRelay(hs, NewMemoryLedger(time.Minute))
	ev := domain.NewContentPublishedEvent("c1", "u1", t0)

	require.NoError(t, relay.Handle(context.Background(), ev))

	calls := hs.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/webhook/social-media-posting", calls[0].Path)
	assert.Equal(t, "Bearer n8n-key", calls[0].Auth)
	assert.Equal(t, ev.EventID(), calls[0].Header.Get("X-Event-ID"))
	assert.Equal(t, "content.published", calls[0].Body["event_type"])
	assert.Equal(t, "c1", calls[0].Body["content_id"])
	assert.Equal(t, "u1", calls[0].Body["user_id"])
	assert.Equal(t, ev.EventID(), calls[0].Body["event_id"])
}

func TestRelay_WorkflowExecutedUsesWorkflowID(t *testing.T) {
	hs := newHookServer(t)
	relay := newTestRelay(hs, NewMemoryLedger(time.Minute))
	ev := domain.NewWorkflowExecutedEvent("wf-9", "u1", map[string]any{"source": "api"}, t0)

	require.NoError(t, relay.Handle(context.Background(), ev))

	calls := hs.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/webhook/wf-9", calls[0].Path)
	assert.Equal(t, map[string]any{"source": "api"}, calls[0].Body["execution_data"])
}

func TestRelay_UnroutedEventIgnored(t *testing.T) {
	hs := newHookServer(t)
	ledger := NewMemoryLedger(time.Minute)
	relay := newTestRelay(hs, ledger)
	c, err := domain.NewContent("c1", "T", domain.ContentBlogArticle, "B", "u1", t0)
	require.NoError(t, err)

	require.NoError(t, relay.Handle(context.Background(), domain.NewContentCreatedEvent(c, t0)))
	assert.Empty(t, hs.calls())
}

func TestRelay_DuplicateEventTriggersOnce(t *testing.T) {
	hs := newHookServer(t)
	ledger := NewMemoryLedger(time.Minute)
	relay := newTestRelay(hs, ledger)
	ev := domain.NewContentPublishedEvent("c1", "u1", t0)

	require.NoError(t, relay.Handle(context.Background(), ev))
	require.NoError(t, relay.Handle(context.Background(), ev))

	assert.Len(t, hs.calls(), 1)
	d, ok := ledger.Get(ev.EventID(), "social-media-posting")
	require.True(t, ok)
	assert.Equal(t, StatusDelivered, d.Status)
	assert.Equal(t, 1, d.Attempts)
}

func TestRelay_ConcurrentDuplicatesTriggerOnce(t *testing.T) {
	hs := newHookServer(t)
	relay := newTestRelay(hs, NewMemoryLedger(time.Minute))
	ev := domain.NewContentPublishedEvent("c1", "u1", t0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, relay.Handle(context.Background(), ev))
		}()
	}
	wg.Wait()
	assert.Len(t, hs.calls(), 1)
}

func TestRelay_FailureIsRecordedAndRetried(t *testing.T) {
	hs := newHookServer(t)
	hs.setStatus(http.StatusBadRequest)
	ledger := NewMemoryLedger(time.Minute)
	relay := newTestRelay(hs, ledger)
	ev := domain.NewContentPublishedEvent("c1", "u1", t0)

	err := relay.Handle(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")

	d, ok := ledger.Get(ev.EventID(), "social-media-posting")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Contains(t, d.LastError, "status 400")

	hs.setStatus(http.StatusOK)
	require.NoError(t, relay.Handle(context.Background(), ev))
	d, _ = ledger.Get(ev.EventID(), "social-media-posting")
	assert.Equal(t, StatusDelivered, d.Status)
	assert.Equal(t, 2, d.Attempts)
	assert.Len(t, hs.calls(), 2)
}

func TestRelay_CustomRoutes(t *testing.T) {
	hs := newHookServer(t)
	relay := NewRelay(hs.srv.Client(), NewMemoryLedger(time.Minute), RelayConfig{
		BaseURL: hs.srv.URL,
		Routes:  map[string]string{domain.EventUserCreated: "onboarding"},
	})
	email, _ := domain.NewEmail("new@example.com")
	u, _ := domain.NewUser("u1", email, "New", nil, t0)

	assert.Equal(t, "", relay.Target(domain.NewContentPublishedEvent("c1", "u1", t0)))
	require.NoError(t, relay.Handle(context.Background(), domain.NewUserCreatedEvent(u, t0)))

	calls := hs.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/webhook/onboarding", calls[0].Path)
	assert.Empty(t, calls[0].Auth)
}
