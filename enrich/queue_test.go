package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skillsenselab/voicediag/livechan"
	"github.com/skillsenselab/voicediag/llm"
	"github.com/skillsenselab/voicediag/session"
)

type stubLLM struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
	response string
}

func (s *stubLLM) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("transport down")
	}
	return &llm.CompletionResponse{Content: s.response}, nil
}

type recordConn struct {
	mu   sync.Mutex
	sent []interface{}
}

func (c *recordConn) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, message)
	return nil
}

func (c *recordConn) Close() error { return nil }

func (c *recordConn) messages() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.sent...)
}

func newEnrichFixture(t *testing.T, client llm.Client) (*Queue, *session.Store, *livechan.Registry) {
	t.Helper()
	store, err := session.NewStore(filepath.Join(t.TempDir(), "sessions.db"), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	registry := livechan.NewRegistry(nil)
	q := NewQueue(store, client, registry, Options{
		QueueSize:      4,
		HistoryLimit:   3,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	})
	return q, store, registry
}

func completedSession(t *testing.T, store *session.Store, id, userID string) *session.Session {
	t.Helper()
	sess := &session.Session{ID: id, UserID: userID, State: session.StatePending}
	if err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sess.Label = "resonant"
	sess.QualityScore = 0.82
	if err := sess.SetFeatureVector([]float64{0.1, 0.2}); err != nil {
		t.Fatalf("SetFeatureVector: %v", err)
	}
	if err := store.MarkCompleted(context.Background(), sess); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	return sess
}

func TestProcessSuccessPersistsAndPushes(t *testing.T) {
	client := &stubLLM{response: "steady breath support"}
	q, store, registry := newEnrichFixture(t, client)

	conn := &recordConn{}
	registry.Connect("u1", conn)

	sess := completedSession(t, store, "s1", "u1")
	q.process(context.Background(), sess)

	got, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Narrative != "steady breath support" {
		t.Errorf("narrative = %q", got.Narrative)
	}
	if got.Prompt == "" {
		t.Error("prompt not persisted")
	}

	msgs := conn.messages()
	if len(msgs) != 1 {
		t.Fatalf("pushed %d messages, want 1", len(msgs))
	}
	msg := msgs[0].(livechan.AnalysisMessage)
	if msg.Type != "llm_analysis" || msg.SessionID != "s1" || msg.Analysis != "steady breath support" {
		t.Errorf("unexpected push: %+v", msg)
	}
}

func TestProcessRetriesTransportFailure(t *testing.T) {
	client := &stubLLM{failures: 2, response: "eventually fine"}
	q, store, _ := newEnrichFixture(t, client)

	sess := completedSession(t, store, "s1", "u1")
	q.process(context.Background(), sess)

	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
	got, _ := store.Get(context.Background(), "s1")
	if got.Narrative != "eventually fine" {
		t.Errorf("narrative = %q", got.Narrative)
	}
}

func TestProcessExhaustedRetriesPersistsError(t *testing.T) {
	client := &stubLLM{failures: 100}
	q, store, registry := newEnrichFixture(t, client)

	conn := &recordConn{}
	registry.Connect("u1", conn)

	sess := completedSession(t, store, "s1", "u1")
	q.process(context.Background(), sess)

	if client.calls != 3 {
		t.Errorf("calls = %d, want bounded at 3", client.calls)
	}
	got, _ := store.Get(context.Background(), "s1")
	if got.Narrative == "" {
		t.Fatal("narrative must never stay empty")
	}
	if !strings.Contains(got.Narrative, "analysis unavailable") {
		t.Errorf("narrative = %q, want error text", got.Narrative)
	}
	if len(conn.messages()) != 0 {
		t.Error("failed enrichment must not push")
	}
}

func TestPromptIncludesHistory(t *testing.T) {
	client := &stubLLM{response: "ok"}
	q, store, _ := newEnrichFixture(t, client)

	for i, narrative := range []string{"first note", "second note"} {
		s := completedSession(t, store, string(rune('a'+i)), "u1")
		if err := store.SetNarrative(context.Background(), s.ID, narrative, "p"); err != nil {
			t.Fatalf("SetNarrative: %v", err)
		}
	}

	sess := completedSession(t, store, "s-new", "u1")
	q.process(context.Background(), sess)

	got, _ := store.Get(context.Background(), "s-new")
	if !strings.Contains(got.Prompt, "first note") || !strings.Contains(got.Prompt, "second note") {
		t.Errorf("prompt missing history:\n%s", got.Prompt)
	}
	if !strings.Contains(got.Prompt, "resonant") {
		t.Errorf("prompt missing label:\n%s", got.Prompt)
	}
}

func TestQueueEndToEnd(t *testing.T) {
	client := &stubLLM{response: "async narrative"}
	q, store, _ := newEnrichFixture(t, client)
	q.Start()

	sess := completedSession(t, store, "s1", "u1")
	q.SessionCompleted(sess)

	deadline := time.After(5 * time.Second)
	for {
		got, err := store.Get(context.Background(), "s1")
		if err == nil && got.Narrative != "" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("narrative never appeared")
		case <-time.After(10 * time.Millisecond):
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Stop(ctx)
}

func TestSessionCompletedAfterStopDropsJob(t *testing.T) {
	client := &stubLLM{response: "x"}
	q, store, _ := newEnrichFixture(t, client)
	q.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Stop(ctx)

	// A pipeline call racing shutdown must drop cleanly, not panic.
	sess := completedSession(t, store, "s1", "u1")
	q.SessionCompleted(sess)

	got, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Narrative != "" {
		t.Errorf("dropped job produced a narrative: %q", got.Narrative)
	}
}

type blockingLLM struct {
	startOnce sync.Once
	started   chan struct{}
}

func newBlockingLLM() *blockingLLM {
	return &blockingLLM{started: make(chan struct{})}
}

func (b *blockingLLM) Complete(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	b.startOnce.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStopCancelsInFlightGeneration(t *testing.T) {
	client := newBlockingLLM()
	q, store, _ := newEnrichFixture(t, client)
	q.Start()

	sess := completedSession(t, store, "s1", "u1")
	q.SessionCompleted(sess)

	select {
	case <-client.started:
	case <-time.After(time.Second):
		t.Fatal("generation call never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	q.Stop(ctx)
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("Stop blocked on the in-flight call for %v", elapsed)
	}
}

func TestQueueFullDropsJob(t *testing.T) {
	client := &stubLLM{response: "x"}
	q, store, _ := newEnrichFixture(t, client)
	// Worker not started: the buffered queue fills, later jobs drop.

	for i := 0; i < 10; i++ {
		sess := completedSession(t, store, string(rune('a'+i)), "u1")
		q.SessionCompleted(sess) // must never block
	}
}
