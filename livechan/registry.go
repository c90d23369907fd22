// Package livechan maintains at most one live push channel per user
// and delivers fire-and-forget notifications over it. Delivery is
// best-effort: there is no buffering and no retry.
package livechan

import (
	"sync"

	"github.com/skillsenselab/voicediag/logger"
)

// Conn is a live channel handle to one client.
type Conn interface {
	Send(message interface{}) error
	Close() error
}

// AnalysisMessage is the outbound enrichment notification.
type AnalysisMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Analysis  string `json:"analysis"`
	Prompt    string `json:"prompt"`
}

// NewAnalysisMessage builds the llm_analysis push message.
func NewAnalysisMessage(sessionID, analysis, prompt string) AnalysisMessage {
	return AnalysisMessage{
		Type:      "llm_analysis",
		SessionID: sessionID,
		Analysis:  analysis,
		Prompt:    prompt,
	}
}

// ConnectedMessage is the ack frame sent when a channel attaches.
type ConnectedMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// NewConnectedMessage builds the attach acknowledgement.
func NewConnectedMessage(userID string) ConnectedMessage {
	return ConnectedMessage{Type: "connected", UserID: userID}
}

// Registry maps user identity to at most one live channel. All
// operations are serialized under one lock; contention is low since
// each user holds a single channel.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Conn
	log   *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry{
		conns: make(map[string]Conn),
		log:   log.WithComponent("livechan"),
	}
}

// Connect registers a channel for the user, replacing and closing any
// prior one. Last writer wins.
func (r *Registry) Connect(userID string, conn Conn) {
	r.mu.Lock()
	prior := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	if prior != nil {
		prior.Close() //nolint:errcheck
		r.log.Info("replaced live channel", logger.Fields(logger.FieldUserID, userID))
		return
	}
	r.log.Info("live channel connected", logger.Fields(logger.FieldUserID, userID))
}

// Disconnect removes the user's channel. Disconnecting an absent entry
// is a no-op with a logged warning.
func (r *Registry) Disconnect(userID string) {
	r.mu.Lock()
	conn, ok := r.conns[userID]
	delete(r.conns, userID)
	r.mu.Unlock()

	if !ok {
		r.log.Warn("disconnect for unknown live channel", logger.Fields(logger.FieldUserID, userID))
		return
	}
	conn.Close() //nolint:errcheck
	r.log.Info("live channel disconnected", logger.Fields(logger.FieldUserID, userID))
}

// DisconnectConn removes the user's channel only if it is still conn.
// A read loop noticing its socket died calls this so it never evicts a
// replacement channel that connected in the meantime.
func (r *Registry) DisconnectConn(userID string, conn Conn) {
	r.mu.Lock()
	current, ok := r.conns[userID]
	if !ok || current != conn {
		r.mu.Unlock()
		return
	}
	delete(r.conns, userID)
	r.mu.Unlock()

	conn.Close() //nolint:errcheck
	r.log.Info("live channel disconnected", logger.Fields(logger.FieldUserID, userID))
}

// Send delivers a message to the user's channel. Without a channel the
// message is logged and dropped. A send failure deregisters the entry
// immediately so future sends fail fast instead of hitting a dead
// handle.
func (r *Registry) Send(userID string, message interface{}) {
	r.mu.Lock()
	conn, ok := r.conns[userID]
	if !ok {
		r.mu.Unlock()
		r.log.Info("no live channel, dropping message", logger.Fields(logger.FieldUserID, userID))
		return
	}

	err := conn.Send(message)
	if err != nil {
		delete(r.conns, userID)
		r.mu.Unlock()
		conn.Close() //nolint:errcheck
		r.log.Warn("send failed, deregistering live channel", logger.Fields(
			logger.FieldUserID, userID,
			logger.FieldError, err.Error(),
		))
		return
	}
	r.mu.Unlock()
}

// Connected reports whether the user currently has a channel.
func (r *Registry) Connected(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[userID]
	return ok
}
