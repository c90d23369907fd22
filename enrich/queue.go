// Package enrich runs the asynchronous narrative enrichment step:
// after a session completes, a background worker builds a prompt,
// calls the text-generation collaborator with bounded retries, and
// persists the narrative. The session's owner is notified through the
// live channel registry when one is open.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/skillsenselab/voicediag/livechan"
	"github.com/skillsenselab/voicediag/llm"
	"github.com/skillsenselab/voicediag/logger"
	"github.com/skillsenselab/voicediag/observability"
	"github.com/skillsenselab/voicediag/resilience"
	"github.com/skillsenselab/voicediag/session"
)

// Options configures the queue.
type Options struct {
	QueueSize      int
	HistoryLimit   int
	MaxAttempts    int
	InitialBackoff time.Duration
	Metrics        *observability.PipelineMetrics
	Logger         *logger.Logger
}

// Queue is the enrichment scheduler. It implements session.Notifier so
// the pipeline can hand completed sessions over without blocking.
type Queue struct {
	jobs         chan *session.Session
	store        *session.Store
	client       llm.Client
	registry     *livechan.Registry
	historyLimit int
	retryCfg     resilience.RetryConfig
	metrics      *observability.PipelineMetrics
	log          *logger.Logger

	// baseCtx bounds every job; cancel aborts an in-flight generation
	// call once the shutdown budget is spent.
	baseCtx context.Context
	cancel  context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
	done      chan struct{}
}

// NewQueue creates the scheduler. Call Start to launch the worker.
func NewQueue(store *session.Store, client llm.Client, registry *livechan.Registry, opts Options) *Queue {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 3
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	retryCfg := resilience.DefaultRetryConfig()
	if opts.MaxAttempts > 0 {
		retryCfg.MaxAttempts = opts.MaxAttempts
	}
	if opts.InitialBackoff > 0 {
		retryCfg.InitialBackoff = opts.InitialBackoff
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:         make(chan *session.Session, opts.QueueSize),
		store:        store,
		client:       client,
		registry:     registry,
		historyLimit: opts.HistoryLimit,
		retryCfg:     retryCfg,
		metrics:      opts.Metrics,
		log:          log.WithComponent("enrich"),
		baseCtx:      baseCtx,
		cancel:       cancel,
		stopped:      make(chan struct{}),
	}
}

// Start launches the worker goroutine. Safe to call once.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.done = make(chan struct{})
		go q.run()
	})
}

// Stop accepts no further jobs, lets the worker drain what is already
// queued, and waits for it to exit. When the context expires first the
// in-flight generation call is cancelled through the queue context.
func (q *Queue) Stop(ctx context.Context) {
	q.stopOnce.Do(func() { close(q.stopped) })
	if q.done == nil {
		q.cancel()
		return
	}

	select {
	case <-q.done:
	case <-ctx.Done():
		q.log.Warn("shutdown budget spent, cancelling in-flight enrichment")
		q.cancel()
		select {
		case <-q.done:
		case <-time.After(time.Second):
			q.log.Warn("enrichment worker did not exit")
		}
	}
	q.cancel()
}

// SessionCompleted enqueues a completed session for enrichment. The
// call never blocks: after Stop, or when the queue is full, the job is
// dropped with a log entry, since enrichment is a best-effort
// enhancement.
func (q *Queue) SessionCompleted(sess *session.Session) {
	select {
	case <-q.stopped:
		q.log.Warn("enrichment queue stopped, dropping job", logger.Fields(
			logger.FieldSessionID, sess.ID,
		))
		return
	default:
	}

	select {
	case q.jobs <- sess:
	default:
		q.log.Error("enrichment queue full, dropping job", logger.Fields(
			logger.FieldSessionID, sess.ID,
		))
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case sess := <-q.jobs:
			q.process(q.baseCtx, sess)
		case <-q.stopped:
			for {
				select {
				case sess := <-q.jobs:
					q.process(q.baseCtx, sess)
				default:
					return
				}
			}
		}
	}
}

// process runs one enrichment unit: prompt, bounded-retry generation,
// persistence, best-effort push. Errors never propagate to the caller
// that triggered the session; after exhausting retries the error text
// itself becomes the narrative so the field is never left empty.
func (q *Queue) process(ctx context.Context, sess *session.Session) {
	ctx, span := observability.StartSpan(ctx, "enrich.process")
	defer span.End()

	log := q.log.WithFields(logger.Fields(
		logger.FieldSessionID, sess.ID,
		logger.FieldUserID, sess.UserID,
	))

	history, err := q.store.RecentNarratives(ctx, sess.UserID, q.historyLimit)
	if err != nil {
		log.Warn("narrative history unavailable", logger.ErrorFields("history", err))
	}
	prompt := buildPrompt(sess, history)
	start := time.Now()

	retryCfg := q.retryCfg
	retryCfg.OnRetry = func(attempt int, retryErr error, backoff time.Duration) {
		q.metrics.RecordEnrichmentRetry(ctx)
		log.Warn("generation call retrying", logger.Fields(
			"attempt", attempt,
			"backoff", backoff.String(),
			logger.FieldError, retryErr.Error(),
		))
	}

	resp, err := resilience.Retry(ctx, retryCfg, func() (*llm.CompletionResponse, error) {
		return q.client.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			Prompt:       prompt,
		})
	})

	narrative := ""
	if err != nil {
		narrative = "analysis unavailable: " + err.Error()
		log.Error("enrichment failed after retries", logger.ErrorFields("complete", err))
	} else {
		narrative = resp.Content
	}
	q.metrics.RecordEnrichment(ctx, err == nil, time.Since(start))

	if err := q.store.SetNarrative(ctx, sess.ID, narrative, prompt); err != nil {
		log.Error("narrative persistence failed", logger.ErrorFields("set_narrative", err))
		return
	}

	if err == nil {
		// Push is a convenience notification; the persisted narrative
		// remains the source of truth.
		q.registry.Send(sess.UserID, livechan.NewAnalysisMessage(sess.ID, narrative, prompt))
	}
	log.Info("enrichment complete", logger.Fields("narrative_len", len(narrative)))
}
