package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/skillsenselab/voicediag/audio"
	"github.com/skillsenselab/voicediag/classifier"
	"github.com/skillsenselab/voicediag/dsp"
	"github.com/skillsenselab/voicediag/errors"
	"github.com/skillsenselab/voicediag/logger"
	"github.com/skillsenselab/voicediag/observability"
	"github.com/skillsenselab/voicediag/quality"
	"github.com/skillsenselab/voicediag/storage"
)

// Notifier receives completed sessions for asynchronous enrichment.
// Dispatch must not block the synchronous pipeline.
type Notifier interface {
	SessionCompleted(sess *Session)
}

// NopNotifier discards completion events.
type NopNotifier struct{}

func (NopNotifier) SessionCompleted(*Session) {}

// Service runs the synchronous diagnostic pipeline: validate, persist,
// normalize, extract, score, classify, then transition the session to
// a terminal state.
type Service struct {
	store      *Store
	artifacts  storage.Store
	normalizer *audio.Normalizer
	analyzer   *dsp.Analyzer
	scorer     *quality.Scorer
	model      classifier.Classifier
	notifier   Notifier
	metrics    *observability.PipelineMetrics
	log        *logger.Logger
}

// NewService wires the pipeline stages together. metrics may be nil.
func NewService(store *Store, artifacts storage.Store, normalizer *audio.Normalizer,
	analyzer *dsp.Analyzer, scorer *quality.Scorer, model classifier.Classifier,
	notifier Notifier, metrics *observability.PipelineMetrics, log *logger.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Service{
		store:      store,
		artifacts:  artifacts,
		normalizer: normalizer,
		analyzer:   analyzer,
		scorer:     scorer,
		model:      model,
		notifier:   notifier,
		metrics:    metrics,
		log:        log.WithComponent("pipeline"),
	}
}

// Result is the synchronous KPI payload returned to the uploader.
type Result struct {
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	Label         string    `json:"label"`
	QualityScore  float64   `json:"quality_score"`
	FeatureVector []float64 `json:"feature_vector_summary"`
	Degenerate    bool      `json:"degenerate"`
}

// Process runs the full synchronous pipeline for one upload. Quality
// issues downgrade trust but never fail the session; only validation,
// transcoding and classifier-load errors are terminal.
func (s *Service) Process(ctx context.Context, userID, filename string, payload []byte) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.process")
	defer span.End()

	if err := audio.ValidateUpload(filename, int64(len(payload))); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		Filename: filename,
		State:    StatePending,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, errors.Internal(err)
	}
	log := s.log.WithFields(logger.Fields(logger.FieldSessionID, sess.ID, logger.FieldUserID, userID))

	rawPath := storage.RawPath(sess.ID, filename)
	if err := s.artifacts.Upload(ctx, rawPath, bytes.NewReader(payload)); err != nil {
		return nil, s.fail(ctx, sess.ID, errors.Internal(err))
	}

	normPath := storage.NormalizedPath(sess.ID)
	err := s.normalizer.Normalize(ctx, s.artifacts.FullPath(rawPath), s.artifacts.FullPath(normPath))
	if err != nil {
		return nil, s.fail(ctx, sess.ID, err)
	}

	clip := s.loadClip(ctx, normPath, log)
	fv := s.extract(clip, log)
	report := s.scorer.Score(clip)

	label, err := s.model.Classify(fv)
	if err != nil {
		return nil, s.fail(ctx, sess.ID, err)
	}

	sess.Label = label
	sess.QualityScore = report.Score
	sess.Degenerate = report.Degenerate
	if err := sess.SetFeatureVector(fv.Vector()); err != nil {
		return nil, s.fail(ctx, sess.ID, errors.Internal(err))
	}
	if sub, err := json.Marshal(report.Sub); err == nil {
		sess.SubScores = string(sub)
	}
	if err := s.store.MarkCompleted(ctx, sess); err != nil {
		return nil, s.fail(ctx, sess.ID, errors.Internal(err))
	}
	s.metrics.RecordSessionCompleted(ctx, report.Score, report.Degenerate)

	log.Info("session completed", logger.Fields(
		"label", label,
		"quality_score", report.Score,
		"degenerate", report.Degenerate,
	))

	// Enrichment runs after the synchronous response; the notifier
	// must not block here.
	s.notifier.SessionCompleted(sess)

	return &Result{
		SessionID:     sess.ID,
		CreatedAt:     sess.CreatedAt,
		Label:         label,
		QualityScore:  report.Score,
		FeatureVector: fv.Vector(),
		Degenerate:    report.Degenerate,
	}, nil
}

// loadClip reads the normalized waveform back. Decode failure is an
// extraction degradation, not a pipeline failure: an empty clip flows
// through and both extractor and scorer report accordingly.
func (s *Service) loadClip(ctx context.Context, normPath string, log *logger.Logger) *audio.Clip {
	r, err := s.artifacts.Download(ctx, normPath)
	if err != nil {
		log.Error("normalized waveform unreadable", logger.ErrorFields("load_clip", err))
		return &audio.Clip{SampleRate: audio.CanonicalSampleRate}
	}
	defer r.Close() //nolint:errcheck

	data, err := io.ReadAll(r)
	if err != nil {
		log.Error("normalized waveform read failed", logger.ErrorFields("load_clip", err))
		return &audio.Clip{SampleRate: audio.CanonicalSampleRate}
	}
	clip, err := audio.DecodeWAV(data)
	if err != nil {
		log.Error("normalized waveform decode failed", logger.ErrorFields("load_clip", err))
		return &audio.Clip{SampleRate: audio.CanonicalSampleRate}
	}
	return clip
}

func (s *Service) extract(clip *audio.Clip, log *logger.Logger) *dsp.FeatureVector {
	fv := s.analyzer.ExtractFeatures(clip)
	if fv.Degraded {
		log.Warn("feature extraction degraded to zero vector")
	}
	return fv
}

// fail marks the session Failed with the captured reason and returns
// the original error for the caller.
func (s *Service) fail(ctx context.Context, id string, err error) error {
	if markErr := s.store.MarkFailed(ctx, id, err.Error()); markErr != nil {
		s.log.Error("failed-state transition error", logger.Fields(
			logger.FieldSessionID, id,
			logger.FieldError, markErr.Error(),
		))
	}
	code := errors.ErrCodeInternal
	if appErr, ok := errors.AsAppError(err); ok {
		code = appErr.Code
	}
	s.metrics.RecordSessionFailed(ctx, string(code))
	return err
}
