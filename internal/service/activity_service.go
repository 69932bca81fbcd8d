package service

import (
	"context"

	"account-service/internal/apperr"
	"account-service/internal/model"
	"account-service/internal/repository"

	"github.com/google/uuid"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

type ActivityService interface {
	RecentActivity(ctx context.Context, userID uuid.UUID, limit int) ([]model.AccountEvent, error)
}

type activityService struct {
	eventRepo repository.AccountEventRepository
}

func NewActivityService(eventRepo repository.AccountEventRepository) ActivityService {
	return &activityService{eventRepo: eventRepo}
}

// RecentActivity returns the user's account events, newest first.
// A non-positive limit means the default; larger limits are capped.
func (s *activityService) RecentActivity(ctx context.Context, userID uuid.UUID, limit int) ([]model.AccountEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}

	events, err := s.eventRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Internal("Failed to load account activity", err)
	}
	if events == nil {
		events = []model.AccountEvent{}
	}
	return events, nil
}
