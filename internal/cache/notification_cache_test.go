package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniconhq/unicon-backend/internal/model"
)

func newNotificationFixture(t *testing.T, threshold int) (*fixture, *NotificationCache, *fakeMailer) {
	f := newFixture(t)
	mailer := &fakeMailer{}
	nc := NewNotificationCache(f.store, f.notifications, f.articles, f.comments, mailer, threshold, 10)
	return f, nc, mailer
}

func TestNotificationThresholdSendsOneBatchEmail(t *testing.T) {
	f, nc, mailer := newNotificationFixture(t, 3)
	ctx := context.Background()
	recipient := f.user(t, "reader@kaist.ac.kr")
	author := f.user(t, "author@kaist.ac.kr")
	a := f.article(t, author, "liked a lot", time.Now())

	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))
	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))
	assert.Empty(t, mailer.sent, "below threshold, no email")

	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))
	require.Len(t, mailer.sent, 1, "threshold crossed exactly once")
	assert.Contains(t, mailer.sent[0], "reader@kaist.ac.kr")
	assert.Contains(t, mailer.sent[0], "3 new notifications")

	// Batched rows are flagged so they are never emailed twice.
	var unemailed int64
	require.NoError(t, f.db.Model(&model.Notification{}).
		Where("user_id = ? AND emailed = ?", recipient.ID, false).
		Count(&unemailed).Error)
	assert.Zero(t, unemailed)

	// The counter restarts from zero: two more stay quiet.
	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))
	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))
	assert.Len(t, mailer.sent, 1)

	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))
	assert.Len(t, mailer.sent, 2)
}

func TestNotificationCounterRebuiltFromRows(t *testing.T) {
	f, nc, mailer := newNotificationFixture(t, 3)
	ctx := context.Background()
	recipient := f.user(t, "reader@kaist.ac.kr")
	author := f.user(t, "author@kaist.ac.kr")
	a := f.article(t, author, "post", time.Now())

	// Two unacknowledged rows exist but the counter cache is cold.
	for i := 0; i < 2; i++ {
		require.NoError(t, f.db.Create(&model.Notification{
			UserID: recipient.ID, Group: model.NotificationGroupLike,
			SourceType: model.NotificationSourceArticle, SourceID: a.ID,
		}).Error)
	}

	// The add rebuilds the counter from the rows: 2 existing + this one.
	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))
	assert.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0], "3 new notifications")
}

func TestNotificationUnreadPageAcknowledges(t *testing.T) {
	f, nc, _ := newNotificationFixture(t, 100)
	ctx := context.Background()
	recipient := f.user(t, "reader@kaist.ac.kr")
	author := f.user(t, "author@kaist.ac.kr")
	a := f.article(t, author, "post title", time.Now())

	for i := 0; i < 3; i++ {
		require.NoError(t, nc.Add(ctx, model.NotificationGroupComment, recipient, model.NotificationSourceArticle, a.ID))
	}

	unread, err := nc.GetPage(ctx, recipient.ID, 1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread.Count)
	require.Len(t, unread.Notifications, 3)
	// Content resolves through the tagged source.
	assert.Equal(t, "post title", unread.Notifications[0].Content)

	var stillUnread int64
	require.NoError(t, f.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", recipient.ID, false).
		Count(&stillUnread).Error)
	assert.Zero(t, stillUnread, "served unread rows are acknowledged")
}

func TestNotificationUnreadPagingCoversEveryRow(t *testing.T) {
	f, nc, _ := newNotificationFixture(t, 100)
	ctx := context.Background()
	recipient := f.user(t, "reader@kaist.ac.kr")
	author := f.user(t, "author@kaist.ac.kr")
	a := f.article(t, author, "post", time.Now())

	for i := 0; i < 25; i++ {
		require.NoError(t, f.db.Create(&model.Notification{
			UserID: recipient.ID, Group: model.NotificationGroupComment,
			SourceType: model.NotificationSourceArticle, SourceID: a.ID,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}).Error)
	}

	// Serving a page acknowledges its rows, which shrinks the unread set
	// under the pagination. Every row must still be served exactly once.
	seen := map[int64]int{}
	var sizes []int
	for page := 1; ; page++ {
		got, err := nc.GetPage(ctx, recipient.ID, page, true)
		require.NoError(t, err)
		assert.Equal(t, int64(25), got.Count)
		sizes = append(sizes, len(got.Notifications))
		for _, n := range got.Notifications {
			seen[n.ID]++
		}
		if got.Next == nil {
			break
		}
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)
	require.Len(t, seen, 25)
	for id, times := range seen {
		assert.Equalf(t, 1, times, "notification %d served once", id)
	}

	var stillUnread int64
	require.NoError(t, f.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", recipient.ID, false).
		Count(&stillUnread).Error)
	assert.Zero(t, stillUnread)
}

func TestNotificationWarmServedRowsAcknowledged(t *testing.T) {
	f, nc, _ := newNotificationFixture(t, 100)
	ctx := context.Background()
	recipient := f.user(t, "reader@kaist.ac.kr")
	author := f.user(t, "author@kaist.ac.kr")
	a := f.article(t, author, "post", time.Now())

	// Warm the unread scope, then deliver straight into it so the next
	// page is served without touching the top-up path.
	_, err := nc.GetPage(ctx, recipient.ID, 1, true)
	require.NoError(t, err)
	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))

	page, err := nc.GetPage(ctx, recipient.ID, 1, true)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)

	var row model.Notification
	require.NoError(t, f.db.First(&row, page.Notifications[0].ID).Error)
	assert.True(t, row.Read, "warm-served rows are acknowledged too")
}

func TestNotificationAddPatchesWarmUnreadScope(t *testing.T) {
	f, nc, _ := newNotificationFixture(t, 100)
	ctx := context.Background()
	recipient := f.user(t, "reader@kaist.ac.kr")
	author := f.user(t, "author@kaist.ac.kr")
	a := f.article(t, author, "post", time.Now())

	// Warm the unread scope while it is empty.
	empty, err := nc.GetPage(ctx, recipient.ID, 1, true)
	require.NoError(t, err)
	assert.Zero(t, empty.Count)

	require.NoError(t, nc.Add(ctx, model.NotificationGroupLike, recipient, model.NotificationSourceArticle, a.ID))

	page, err := nc.GetPage(ctx, recipient.ID, 1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, model.NotificationGroupLike, page.Notifications[0].Group)
}
