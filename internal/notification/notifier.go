package notification

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fieldmatch-backend/internal/model"
)

// Notifier delivers lifecycle notifications to users. Implementations are
// fire-and-forget: delivery failure must never propagate to the caller.
type Notifier interface {
	SendToUsers(ctx context.Context, userIDs []string, title, content string)
}

// Service persists one notification row per user and hands delivery to the
// push worker pool. The row is the source of truth; push delivery is
// best-effort.
type Service struct {
	db   *gorm.DB
	pool *WorkerPool
}

// NewService creates a notifier backed by the given database and worker
// pool. pool may be nil when push delivery is disabled.
func NewService(db *gorm.DB, pool *WorkerPool) *Service {
	return &Service{db: db, pool: pool}
}

// SendToUsers records the notification for each user and dispatches push
// jobs. Errors are logged and swallowed.
func (s *Service) SendToUsers(ctx context.Context, userIDs []string, title, content string) {
	for _, userID := range userIDs {
		n := model.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     title,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
			log.Printf("Error persisting notification for user %s: %v", userID, err)
			continue
		}
		if s.pool != nil {
			s.pool.Dispatch(Job{UserID: userID, Title: title, Content: content})
		}
	}
}
