package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
	"github.com/uniconhq/unicon-backend/pkg/logger"
)

// EmailEnqueuer is the async outbound mail queue. Enqueue must never block
// and never fail the caller.
type EmailEnqueuer interface {
	Enqueue(to, subject, body string)
}

// NotificationPayload is the rendered view of a notification: the row plus
// the denormalized source content and type name, resolved from the tagged
// (SourceType, SourceID) reference.
type NotificationPayload struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user"`
	Group      string    `json:"group"`
	SourceType string    `json:"type_name"`
	SourceID   int64     `json:"source_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationPage is one rendered window of a recipient's notifications.
type NotificationPage struct {
	Count         int64
	Next          *Cursor
	Notifications []NotificationPayload
}

// notificationState mirrors threadState for one (recipient, read-or-new)
// scope.
type notificationState struct {
	Total int64                         `json:"total_notifications"`
	Order []int64                       `json:"order"`
	Items map[int64]NotificationPayload `json:"notifications"`
}

// NotificationCache paginates a recipient's notifications with the same
// lazy top-up shape as comment threads, and keeps the unacknowledged
// counter that batches notification emails.
type NotificationCache struct {
	store       *Store
	repo        repository.NotificationRepository
	articleRepo repository.ArticleRepository
	commentRepo repository.CommentRepository
	mailer      EmailEnqueuer
	threshold   int
	pageSize    int
}

func NewNotificationCache(
	store *Store,
	repo repository.NotificationRepository,
	articleRepo repository.ArticleRepository,
	commentRepo repository.CommentRepository,
	mailer EmailEnqueuer,
	threshold, pageSize int,
) *NotificationCache {
	return &NotificationCache{
		store:       store,
		repo:        repo,
		articleRepo: articleRepo,
		commentRepo: commentRepo,
		mailer:      mailer,
		threshold:   threshold,
		pageSize:    pageSize,
	}
}

// Add records a notification for the recipient, patches the warm cache and
// bumps the unacknowledged counter. Crossing the threshold flushes one
// batch email. Counter bookkeeping is best effort: concurrent adds may
// reorder around the threshold, never lose the row itself.
func (c *NotificationCache) Add(ctx context.Context, group string, recipient *model.User, sourceType string, sourceID int64) error {
	n := &model.Notification{
		UserID:     recipient.ID,
		Group:      group,
		SourceType: sourceType,
		SourceID:   sourceID,
	}
	if err := c.repo.Create(ctx, n); err != nil {
		return err
	}

	payload := c.render(ctx, n)

	key := notificationsKey(recipient.ID, true)
	var state notificationState
	if c.store.Get(ctx, key, &state) {
		state.Total++
		if _, ok := state.Items[n.ID]; !ok {
			state.Order = append([]int64{n.ID}, state.Order...)
			state.Items[n.ID] = payload
		}
		c.store.Set(ctx, key, state)
	}

	c.bumpCounter(ctx, recipient)
	return nil
}

// GetPage serves one window of the recipient's read or new notifications.
// Rows fetched into the "new" scope are marked read as a side effect of
// being served.
func (c *NotificationCache) GetPage(ctx context.Context, userID int64, page int, unread bool) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	key := notificationsKey(userID, unread)

	var state notificationState
	if !c.store.Get(ctx, key, &state) {
		total, err := c.repo.Count(ctx, userID, !unread)
		if err != nil {
			return nil, err
		}
		state = notificationState{Total: total, Items: map[int64]NotificationPayload{}}
		c.store.Set(ctx, key, state)
	}

	if state.Total == 0 {
		return &NotificationPage{Count: 0, Notifications: []NotificationPayload{}}, nil
	}

	if int64(len(state.Order)) < int64(page*c.pageSize) && int64(len(state.Order)) < state.Total {
		// The read-state filter shifts under the scope: acknowledged rows
		// leave the "new" set and enter the "old" one, so an offset of
		// len(Order) would skip or repeat rows. Refetch from the head with
		// room for everything already cached and dedupe against it.
		limit := page*c.pageSize + len(state.Order)
		rows, err := c.repo.Page(ctx, userID, !unread, 0, limit)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			row := &rows[i]
			if _, ok := state.Items[row.ID]; ok {
				continue
			}
			state.Order = append(state.Order, row.ID)
			state.Items[row.ID] = c.render(ctx, row)
		}
		c.store.Set(ctx, key, state)
	}

	start := (page - 1) * c.pageSize
	end := start + c.pageSize
	if start > len(state.Order) {
		start = len(state.Order)
	}
	if end > len(state.Order) {
		end = len(state.Order)
	}

	window := make([]NotificationPayload, 0, end-start)
	for _, id := range state.Order[start:end] {
		window = append(window, state.Items[id])
	}

	// Every served "new" row is acknowledged, whether it came from the
	// top-up or was sitting in the warm scope. MarkRead is idempotent.
	if unread && len(window) > 0 {
		served := make([]int64, len(window))
		for i, payload := range window {
			served[i] = payload.ID
		}
		if err := c.repo.MarkRead(ctx, served); err != nil {
			return nil, err
		}
	}

	result := &NotificationPage{Count: state.Total, Notifications: window}
	if int64(end) < state.Total {
		result.Next = &Cursor{Page: page + 1}
	}
	return result, nil
}

// bumpCounter increments the unacknowledged counter and flushes one batch
// email when the threshold is reached. The counter is rebuilt from the
// unread-and-unemailed rows on a cold cache.
func (c *NotificationCache) bumpCounter(ctx context.Context, recipient *model.User) {
	key := notificationCounterKey(recipient.ID)

	var count int
	if !c.store.Get(ctx, key, &count) {
		rows, err := c.repo.UnacknowledgedEmail(ctx, recipient.ID)
		if err != nil {
			logger.Warn("notification counter rebuild failed",
				zap.Int64("user", recipient.ID), zap.Error(err))
			return
		}
		count = len(rows)
	} else {
		count++
	}

	if count < c.threshold {
		c.store.Set(ctx, key, count)
		return
	}

	rows, err := c.repo.UnacknowledgedEmail(ctx, recipient.ID)
	if err != nil {
		logger.Warn("notification batch fetch failed",
			zap.Int64("user", recipient.ID), zap.Error(err))
		c.store.Set(ctx, key, count)
		return
	}
	if len(rows) > 0 {
		body := fmt.Sprintf("You have %d new notifications on UNI.CON.", len(rows))
		c.mailer.Enqueue(recipient.Email, "You have new notifications", body)

		ids := make([]int64, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		// At-most-once: the email is already queued, a failed mark is
		// logged and never rolls anything back.
		if err := c.repo.MarkEmailed(ctx, ids); err != nil {
			logger.Error("notification mark-emailed failed",
				zap.Int64("user", recipient.ID), zap.Error(err))
		}
	}
	c.store.Set(ctx, key, 0)
}

// render resolves the denormalized content for the tagged source reference.
func (c *NotificationCache) render(ctx context.Context, n *model.Notification) NotificationPayload {
	payload := NotificationPayload{
		ID:         n.ID,
		UserID:     n.UserID,
		Group:      n.Group,
		SourceType: n.SourceType,
		SourceID:   n.SourceID,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
	switch n.SourceType {
	case model.NotificationSourceArticle:
		if article, err := c.articleRepo.GetByID(ctx, n.SourceID); err == nil {
			payload.Content = article.Title
		}
	case model.NotificationSourceComment:
		if comment, err := c.commentRepo.GetByID(ctx, n.SourceID); err == nil {
			payload.Content = comment.Body
		}
	}
	return payload
}
