package llm

import (
	"context"
	"fmt"
	"hash/fnv"
)

// Mock is the fallback Client used when no API credential is
// configured. Output is deterministic for a given prompt so tests and
// local development behave reproducibly.
type Mock struct {
	model string
}

// NewMock creates the mock client.
func NewMock(model string) *Mock {
	if model == "" {
		model = "mock"
	}
	return &Mock{model: model}
}

var mockObservations = []string{
	"The recording shows steady breath support with consistent energy across the analyzed window.",
	"Signal energy is concentrated in the lower vocal band, consistent with relaxed phonation.",
	"Frame-level variation suggests some instability; a quieter environment may improve clarity.",
	"Spectral content is well distributed and the clip carries enough voiced material for analysis.",
}

// Complete returns a canned observation selected by prompt hash.
func (m *Mock) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	h := fnv.New32a()
	h.Write([]byte(req.Prompt)) //nolint:errcheck
	observation := mockObservations[h.Sum32()%uint32(len(mockObservations))]

	return &CompletionResponse{
		Content: fmt.Sprintf("[offline analysis] %s", observation),
		Model:   m.model,
		Usage:   Usage{PromptTokens: len(req.Prompt) / 4},
	}, nil
}
