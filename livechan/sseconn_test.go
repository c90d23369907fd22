package livechan

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSSEConnDeliversEvent(t *testing.T) {
	conn := NewSSEConn()
	defer conn.Close()

	if err := conn.Send(NewAnalysisMessage("sess-1", "steady voice", "prompt")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/live/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan error, 1)
	go func() { done <- conn.Serve(rec, req) }()

	// The event is already queued, so Serve writes it before blocking.
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "llm_analysis") {
		t.Fatalf("event never flushed, body: %q", body)
	}
	if !strings.Contains(body, "event: message") {
		t.Errorf("expected sse event framing, got %q", body)
	}
	if !strings.Contains(body, `"session_id":"sess-1"`) {
		t.Errorf("expected session id in payload, got %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}
}

func TestSSEConnSendAfterClose(t *testing.T) {
	conn := NewSSEConn()
	conn.Close()
	conn.Close()

	if err := conn.Send("late"); err == nil {
		t.Fatal("expected error sending on closed channel")
	}
}

func TestSSEConnSendBufferFull(t *testing.T) {
	conn := NewSSEConn()
	defer conn.Close()

	var err error
	for i := 0; i <= sseBufferSize; i++ {
		err = conn.Send(i)
	}
	if err == nil {
		t.Fatal("expected buffer-full error with no reader")
	}
}
