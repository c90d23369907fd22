package classifier

import (
	"sync"

	"github.com/skillsenselab/voicediag/dsp"
	"github.com/skillsenselab/voicediag/errors"
	"github.com/skillsenselab/voicediag/logger"
	"github.com/skillsenselab/voicediag/observability"
)

// Classifier is the narrow scoring interface the pipeline depends on,
// so tests can inject a fake instead of a model artifact.
type Classifier interface {
	Classify(fv *dsp.FeatureVector) (string, error)
}

// Handle is a process-wide lazily initialized model holder. The first
// Classify (or Load) call loads the artifact exactly once; concurrent
// first use cannot double-load. A failed load is sticky: the pipeline
// treats it as fatal rather than per-request recoverable.
type Handle struct {
	path string
	log  *logger.Logger

	once  sync.Once
	model *Model
	err   error
}

// NewHandle creates a Handle for the artifact at path. Nothing is read
// until first use.
func NewHandle(path string, log *logger.Logger) *Handle {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handle{path: path, log: log.WithComponent("classifier")}
}

// Load forces artifact initialization. Called at startup so a broken
// artifact fails the process instead of the first request.
func (h *Handle) Load() error {
	h.once.Do(h.load)
	return h.err
}

func (h *Handle) load() {
	h.model, h.err = LoadModel(h.path)
	if h.err != nil {
		h.log.Error("model artifact load failed", logger.Fields(
			"path", h.path,
			logger.FieldError, h.err.Error(),
		))
		return
	}
	h.log.Info("model artifact loaded", logger.Fields(
		"path", h.path,
		"version", h.model.Version,
		"labels", len(h.model.Labels),
	))
}

// CheckHealth reports whether the model artifact is loaded.
func (h *Handle) CheckHealth() observability.Health {
	if err := h.Load(); err != nil {
		return observability.Health{
			Name:    "classifier",
			Status:  observability.HealthStatusDown,
			Message: err.Error(),
		}
	}
	return observability.Health{
		Name:   "classifier",
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"version": h.model.Version,
		},
	}
}

// Classify scores a feature vector with the loaded model.
func (h *Handle) Classify(fv *dsp.FeatureVector) (string, error) {
	if err := h.Load(); err != nil {
		return "", errors.ClassifierUnavailable(err)
	}
	return h.model.Classify(fv)
}
