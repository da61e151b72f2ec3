package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/internal/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Count(ctx context.Context, userID int64, read bool) (int64, error)

	// Page fetches one window of the recipient's notifications, newest
	// first, filtered by read state.
	Page(ctx context.Context, userID int64, read bool, offset, limit int) ([]model.Notification, error)

	MarkRead(ctx context.Context, ids []int64) error

	// UnacknowledgedEmail returns unread rows not yet included in a batch
	// email, and MarkEmailed flags them once the batch is enqueued.
	UnacknowledgedEmail(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkEmailed(ctx context.Context, ids []int64) error
}

type notificationRepository struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) Count(ctx context.Context, userID int64, read bool) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, read).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) Page(ctx context.Context, userID int64, read bool, offset, limit int) ([]model.Notification, error) {
	var rows []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, read).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id IN ?", ids).
		Update("is_read", true).Error
}

func (r *notificationRepository) UnacknowledgedEmail(ctx context.Context, userID int64) ([]model.Notification, error) {
	var rows []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ? AND emailed = ?", userID, false, false).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *notificationRepository) MarkEmailed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id IN ?", ids).
		Update("emailed", true).Error
}
