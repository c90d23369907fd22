package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skillsenselab/voicediag/errors"
	"github.com/skillsenselab/voicediag/logger"
	"github.com/skillsenselab/voicediag/observability"
)

// Store persists sessions in SQLite through GORM.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewStore opens (or creates) the session database and migrates the
// schema.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("session: create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, fmt.Errorf("session: migrate schema: %w", err)
	}
	return &Store{db: db, log: log.WithComponent("session-store")}, nil
}

// CheckHealth pings the underlying database connection.
func (s *Store) CheckHealth(ctx context.Context) observability.Health {
	health := observability.Health{Name: "database", Status: observability.HealthStatusUp}

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		health.Status = observability.HealthStatusDown
		health.Message = err.Error()
	}
	return health
}

// Create inserts a new session record.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

// Get fetches a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	return &sess, nil
}

// MarkCompleted transitions a pending session to Completed with its
// diagnostic payload. The state filter makes the transition one-shot.
func (s *Store) MarkCompleted(ctx context.Context, sess *Session) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND state = ?", sess.ID, StatePending).
		Updates(map[string]interface{}{
			"state":          StateCompleted,
			"label":          sess.Label,
			"quality_score":  sess.QualityScore,
			"degenerate":     sess.Degenerate,
			"feature_vector": sess.FeatureVector,
			"sub_scores":     sess.SubScores,
			"completed_at":   now,
		})
	if res.Error != nil {
		return fmt.Errorf("session: mark completed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session: %s is not pending", sess.ID)
	}
	sess.State = StateCompleted
	sess.CompletedAt = &now
	return nil
}

// MarkFailed transitions a pending session to Failed with a reason.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	res := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND state = ?", id, StatePending).
		Updates(map[string]interface{}{
			"state":        StateFailed,
			"error_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("session: mark failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session: %s is not pending", id)
	}
	return nil
}

// SetNarrative persists the enrichment output (or its error text) and
// the prompt that produced it.
func (s *Store) SetNarrative(ctx context.Context, id, narrative, prompt string) error {
	res := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"narrative": narrative,
			"prompt":    prompt,
		})
	if res.Error != nil {
		return fmt.Errorf("session: set narrative: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("session", id)
	}
	return nil
}

// RecentNarratives returns up to limit of the user's most recent
// non-empty narratives, newest first.
func (s *Store) RecentNarratives(ctx context.Context, userID string, limit int) ([]string, error) {
	var narratives []string
	err := s.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ? AND narrative <> ''", userID).
		Order("created_at DESC").
		Limit(limit).
		Pluck("narrative", &narratives).Error
	if err != nil {
		return nil, fmt.Errorf("session: recent narratives: %w", err)
	}
	return narratives, nil
}

// History returns a page of the user's sessions, newest first, plus
// the total count.
func (s *Store) History(ctx context.Context, userID string, limit, offset int) ([]Session, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&Session{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("session: count history: %w", err)
	}

	var sessions []Session
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&sessions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("session: list history: %w", err)
	}
	return sessions, total, nil
}
