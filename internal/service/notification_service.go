package service

import (
	"context"

	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/internal/model"
)

// NotificationService exposes the two notification feeds. Reading the
// unread feed acknowledges what it returns.
type NotificationService struct {
	notifications *cache.NotificationCache
}

func NewNotificationService(notifications *cache.NotificationCache) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// Unread pages through unacknowledged notifications, marking each returned
// row read.
func (s *NotificationService) Unread(ctx context.Context, user *model.User, page int) (*cache.NotificationPage, error) {
	return s.notifications.GetPage(ctx, user.ID, page, true)
}

// Read pages through already acknowledged notifications.
func (s *NotificationService) Read(ctx context.Context, user *model.User, page int) (*cache.NotificationPage, error) {
	return s.notifications.GetPage(ctx, user.ID, page, false)
}
