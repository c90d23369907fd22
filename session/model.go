// Package session owns the diagnostic session lifecycle: the state
// machine, the persisted record, and the synchronous pipeline that
// moves a session from Pending to a terminal state.
package session

import (
	"encoding/json"
	"time"
)

// State is a session lifecycle state. Transitions are one-shot:
// Pending moves to exactly one terminal state.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Session is the persisted diagnostic session record.
type Session struct {
	ID       string `gorm:"primaryKey" json:"id"`
	UserID   string `gorm:"index" json:"user_id"`
	Filename string `json:"filename"`
	State    State  `gorm:"index" json:"state"`

	// ErrorReason is populated only for failed sessions.
	ErrorReason string `json:"error_reason,omitempty"`

	// Diagnostic payload, populated only for completed sessions.
	Label         string  `json:"label,omitempty"`
	QualityScore  float64 `json:"quality_score"`
	Degenerate    bool    `json:"degenerate"`
	FeatureVector string  `gorm:"type:text" json:"-"`
	SubScores     string  `gorm:"type:text" json:"-"`

	// Narrative is filled in asynchronously by enrichment. On
	// enrichment failure it holds the error text, never stays empty.
	Narrative string `gorm:"type:text" json:"narrative,omitempty"`
	Prompt    string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// CompletedAt is the instant of the Pending -> Completed
	// transition. Later narrative updates move UpdatedAt only.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SetFeatureVector serializes the feature values into the record.
func (s *Session) SetFeatureVector(values []float64) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	s.FeatureVector = string(data)
	return nil
}

// FeatureValues deserializes the stored feature vector. Returns nil
// when no vector was persisted.
func (s *Session) FeatureValues() ([]float64, error) {
	if s.FeatureVector == "" {
		return nil, nil
	}
	var values []float64
	if err := json.Unmarshal([]byte(s.FeatureVector), &values); err != nil {
		return nil, err
	}
	return values, nil
}
