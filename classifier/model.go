// Package classifier scores feature vectors against a frozen,
// pre-trained model artifact. The model is an opaque scoring function:
// no training, no online updates.
package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/skillsenselab/voicediag/dsp"
)

// Model is a frozen linear classifier over feature vectors.
type Model struct {
	Version string
	Labels  []string

	weights [][]float64
	biases  []float64
}

type artifact struct {
	Version    string      `json:"version"`
	FeatureDim int         `json:"feature_dim"`
	Labels     []string    `json:"labels"`
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
}

// LoadModel reads and validates a model artifact.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: read artifact: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("classifier: parse artifact: %w", err)
	}

	if a.FeatureDim != dsp.FeatureDim {
		return nil, fmt.Errorf("classifier: artifact feature_dim %d does not match extractor dim %d", a.FeatureDim, dsp.FeatureDim)
	}
	if len(a.Labels) == 0 {
		return nil, fmt.Errorf("classifier: artifact has no labels")
	}
	if len(a.Weights) != len(a.Labels) || len(a.Biases) != len(a.Labels) {
		return nil, fmt.Errorf("classifier: artifact shape mismatch: %d labels, %d weight rows, %d biases",
			len(a.Labels), len(a.Weights), len(a.Biases))
	}
	for i, row := range a.Weights {
		if len(row) != a.FeatureDim {
			return nil, fmt.Errorf("classifier: weight row %d has %d entries, want %d", i, len(row), a.FeatureDim)
		}
	}

	return &Model{
		Version: a.Version,
		Labels:  a.Labels,
		weights: a.Weights,
		biases:  a.Biases,
	}, nil
}

// Classify returns the label with the highest linear score. Ties break
// toward the earlier label, keeping classification deterministic.
func (m *Model) Classify(fv *dsp.FeatureVector) (string, error) {
	x := fv.Vector()
	best := 0
	bestScore := 0.0
	for i := range m.Labels {
		score := m.biases[i]
		for j, w := range m.weights[i] {
			score += w * x[j]
		}
		if i == 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return m.Labels[best], nil
}
