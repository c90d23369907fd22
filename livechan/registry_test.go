package livechan

import (
	"errors"
	"sync"
	"testing"
)

type fakeConn struct {
	mu      sync.Mutex
	sent    []interface{}
	sendErr error
	closed  bool
}

func (c *fakeConn) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, message)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestSendDelivers(t *testing.T) {
	r := NewRegistry(nil)
	conn := &fakeConn{}
	r.Connect("u1", conn)

	r.Send("u1", NewAnalysisMessage("s1", "text", "prompt"))
	if conn.sentCount() != 1 {
		t.Fatalf("sent = %d, want 1", conn.sentCount())
	}
	msg, ok := conn.sent[0].(AnalysisMessage)
	if !ok || msg.Type != "llm_analysis" || msg.SessionID != "s1" {
		t.Errorf("unexpected message: %+v", conn.sent[0])
	}
}

func TestLastConnectWins(t *testing.T) {
	r := NewRegistry(nil)
	first := &fakeConn{}
	second := &fakeConn{}

	r.Connect("u1", first)
	r.Connect("u1", second)

	if !first.closed {
		t.Error("replaced channel not closed")
	}
	r.Send("u1", "hello")
	if first.sentCount() != 0 || second.sentCount() != 1 {
		t.Errorf("delivery went to wrong channel: first=%d second=%d", first.sentCount(), second.sentCount())
	}
}

func TestSendWithoutChannelDrops(t *testing.T) {
	r := NewRegistry(nil)
	r.Send("nobody", "hello") // must not panic
}

func TestSendAfterDisconnectIsNoop(t *testing.T) {
	r := NewRegistry(nil)
	conn := &fakeConn{}
	r.Connect("u1", conn)
	r.Disconnect("u1")

	if !conn.closed {
		t.Error("disconnect did not close channel")
	}
	r.Send("u1", "hello")
	if conn.sentCount() != 0 {
		t.Error("message delivered after disconnect")
	}
}

func TestDisconnectUnknownIsNoop(t *testing.T) {
	r := NewRegistry(nil)
	r.Disconnect("ghost") // must not panic
}

func TestSendFailureDeregisters(t *testing.T) {
	r := NewRegistry(nil)
	conn := &fakeConn{sendErr: errors.New("broken pipe")}
	r.Connect("u1", conn)

	r.Send("u1", "hello")
	if r.Connected("u1") {
		t.Error("dead channel still registered")
	}
	if !conn.closed {
		t.Error("dead channel not closed")
	}

	// Subsequent sends drop quietly.
	r.Send("u1", "again")
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			r.Connect("u1", &fakeConn{})
		}()
		go func() {
			defer wg.Done()
			r.Send("u1", "msg")
		}()
		go func() {
			defer wg.Done()
			r.Disconnect("u1")
		}()
	}
	wg.Wait()
}
