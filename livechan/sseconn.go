package livechan

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	sseBufferSize        = 16
	sseKeepAliveInterval = 30 * time.Second
)

// SSEConn is a server-sent-events live channel for clients that cannot
// hold a websocket. Send enqueues; Serve drains the queue onto the
// response stream until the client or the registry closes the channel.
type SSEConn struct {
	events chan []byte
	done   chan struct{}

	closeOnce sync.Once
}

// NewSSEConn creates an unstarted SSE channel. Call Serve from the
// HTTP handler goroutine.
func NewSSEConn() *SSEConn {
	return &SSEConn{
		events: make(chan []byte, sseBufferSize),
		done:   make(chan struct{}),
	}
}

// Send enqueues a message for the stream. A closed channel or a full
// buffer is a send failure so the registry deregisters the entry.
func (c *SSEConn) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("livechan: marshal sse event: %w", err)
	}

	select {
	case <-c.done:
		return fmt.Errorf("livechan: sse channel closed")
	case c.events <- data:
		return nil
	default:
		return fmt.Errorf("livechan: sse buffer full")
	}
}

// Close stops Serve. Safe to call more than once.
func (c *SSEConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Serve streams queued events to the client with periodic keep-alive
// comments. It returns when the client disconnects or Close is called.
func (c *SSEConn) Serve(w http.ResponseWriter, r *http.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("livechan: response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-c.done:
			return nil
		case data := <-c.events:
			if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", data); err != nil {
				return err
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
