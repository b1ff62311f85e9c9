package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
	"go.uber.org/zap"
)

// ActivityStore persists and lists activity trail entries
type ActivityStore interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByTarget(ctx context.Context, targetType domain.ActivityTargetType, targetID uuid.UUID, limit int) ([]domain.Activity, error)
}

// ActivityService posts audit trail entries on state transitions and
// reconciliation events. Posting is fire-and-forget: failures are logged and
// never surfaced to the triggering operation.
type ActivityService struct {
	store  ActivityStore
	logger *zap.Logger
}

func NewActivityService(store ActivityStore, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		store:  store,
		logger: logger,
	}
}

// Post records an activity entry. Errors are swallowed after logging.
func (s *ActivityService) Post(ctx context.Context, targetType domain.ActivityTargetType, targetID uuid.UUID, actor *auth.UserContext, title, body string) {
	activity := &domain.Activity{
		TargetType: targetType,
		TargetID:   targetID,
		Title:      title,
		Body:       body,
		OccurredAt: time.Now().UTC(),
	}
	if actor != nil {
		activity.CreatorID = actor.UserID
		activity.CreatorName = actor.DisplayName
	}

	if err := s.store.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to post activity",
			zap.String("targetType", string(targetType)),
			zap.String("targetID", targetID.String()),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}

// ListByTarget returns the trail of an entity, newest first
func (s *ActivityService) ListByTarget(ctx context.Context, targetType domain.ActivityTargetType, targetID uuid.UUID, limit int) ([]domain.Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListByTarget(ctx, targetType, targetID, limit)
}
