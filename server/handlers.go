package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/skillsenselab/voicediag/enrich"
	"github.com/skillsenselab/voicediag/errors"
	"github.com/skillsenselab/voicediag/livechan"
	"github.com/skillsenselab/voicediag/logger"
	"github.com/skillsenselab/voicediag/observability"
	"github.com/skillsenselab/voicediag/session"
	"github.com/skillsenselab/voicediag/validation"
)

const defaultPageSize = 20

// Handlers wires the HTTP surface to the pipeline service, session
// store, enrichment queue and live channel registry.
type Handlers struct {
	service    *session.Service
	store      *session.Store
	enrichment *enrich.Queue
	registry   *livechan.Registry
	healthFn   func() *observability.ServiceHealth
	upgrader   websocket.Upgrader
	log        *logger.Logger
}

// NewHandlers creates the handler set. healthFn is evaluated on each
// health probe so component status stays current.
func NewHandlers(service *session.Service, store *session.Store, enrichment *enrich.Queue,
	registry *livechan.Registry, healthFn func() *observability.ServiceHealth,
	log *logger.Logger) *Handlers {

	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handlers{
		service:    service,
		store:      store,
		enrichment: enrichment,
		registry:   registry,
		healthFn:   healthFn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log.WithComponent("handlers"),
	}
}

// Register mounts all routes on the engine. authMW guards everything
// under /api/v1; the health probe stays open.
func (h *Handlers) Register(engine *gin.Engine, authMW gin.HandlerFunc) {
	engine.GET("/health", h.health)

	api := engine.Group("/api/v1", authMW)
	api.POST("/diagnosis/sessions", h.upload)
	api.GET("/diagnosis/sessions/:id", h.getSession)
	api.GET("/diagnosis/history", h.history)
	api.POST("/diagnosis/sessions/:id/narrative", h.reanalyze)
	api.GET("/ws", h.live)
	api.GET("/sse", h.liveSSE)
}

func (h *Handlers) health(c *gin.Context) {
	sh := h.healthFn()
	status := http.StatusOK
	if sh.Status == observability.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, sh)
}

// upload accepts a multipart form with an "audio" file, runs the full
// synchronous pipeline and returns the diagnostic result.
func (h *Handlers) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		RespondWithError(c, errors.InvalidInput("audio", "multipart file field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondWithError(c, errors.Internal(err))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		RespondWithError(c, errors.Internal(err))
		return
	}

	result, err := h.service.Process(c.Request.Context(), currentUser(c), fileHeader.Filename, payload)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondCreated(c, result)
}

func (h *Handlers) getSession(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}
	RespondOK(c, sess)
}

// historyQuery is the paging request for the session list.
type historyQuery struct {
	Page     int `form:"page" validate:"gte=1"`
	PageSize int `form:"page_size" validate:"gte=1,lte=100"`
}

func (h *Handlers) history(c *gin.Context) {
	q := historyQuery{Page: 1, PageSize: defaultPageSize}
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondWithError(c, errors.InvalidInput("query", err.Error()))
		return
	}
	if err := validation.Validate(q); err != nil {
		RespondWithError(c, err)
		return
	}

	sessions, total, err := h.store.History(c.Request.Context(), currentUser(c), q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondList(c, sessions, q.Page, q.PageSize, total)
}

// reanalyze re-enqueues a completed session for enrichment, giving the
// narrative a fresh pass against the user's latest history.
func (h *Handlers) reanalyze(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}
	if sess.State != session.StateCompleted {
		RespondWithError(c, errors.InvalidInput("id", "only completed sessions can be re-analyzed"))
		return
	}

	h.enrichment.SessionCompleted(sess)
	RespondAccepted(c, gin.H{"session_id": sess.ID, "state": sess.State})
}

// live upgrades the request to a websocket and registers it as the
// user's push channel. The read loop exists only to observe the close;
// inbound frames are discarded.
func (h *Handlers) live(c *gin.Context) {
	userID := currentUser(c)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Fields(
			logger.FieldUserID, userID,
			logger.FieldError, err.Error(),
		))
		return
	}

	conn := livechan.NewWSConn(ws)
	h.registry.Connect(userID, conn)
	conn.Send(livechan.NewConnectedMessage(userID)) //nolint:errcheck

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	h.registry.DisconnectConn(userID, conn)
}

// liveSSE is the fallback live channel for clients that cannot hold a
// websocket. Both transports share the registry, so opening either one
// replaces the other.
func (h *Handlers) liveSSE(c *gin.Context) {
	userID := currentUser(c)

	conn := livechan.NewSSEConn()
	h.registry.Connect(userID, conn)
	defer h.registry.DisconnectConn(userID, conn)
	conn.Send(livechan.NewConnectedMessage(userID)) //nolint:errcheck

	if err := conn.Serve(c.Writer, c.Request); err != nil {
		h.log.Warn("sse stream ended with error", logger.Fields(
			logger.FieldUserID, userID,
			logger.FieldError, err.Error(),
		))
	}
}

// ownedSession loads the path session and enforces ownership. Foreign
// sessions read as not found so ids are not probeable.
func (h *Handlers) ownedSession(c *gin.Context) (*session.Session, bool) {
	id := c.Param("id")
	sess, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithError(c, err)
		return nil, false
	}
	if sess.UserID != currentUser(c) {
		RespondWithError(c, errors.NotFound("session", id))
		return nil, false
	}
	return sess, true
}
