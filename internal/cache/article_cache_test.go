package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/internal/model"
)

func TestArticleCreatePersistsZeroValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author@kaist.ac.kr")

	// A school-scoped post must come back school-scoped; a column default
	// on a bool would make gorm drop the false and widen it campus-wide.
	a := &model.Article{Title: "campus only", Body: "b", UserID: author.ID, Unicon: false}
	require.NoError(t, f.articles.Create(ctx, a))

	got, err := f.articles.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Unicon)

	// Same trap for a zero-point snapshot.
	au := &model.ArticleUser{ArticleID: a.ID, UserID: author.ID, UserTempName: "quiet owl", UserStaticPoints: 0}
	require.NoError(t, f.db.Create(au).Error)

	var snapshot model.ArticleUser
	require.NoError(t, f.db.First(&snapshot, au.ID).Error)
	assert.Zero(t, snapshot.UserStaticPoints)
}

func TestArticleCachePageWindowStableUnderNewPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author@kaist.ac.kr")
	reader := f.user(t, "reader@kaist.ac.kr")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		f.article(t, author, "post", base.Add(time.Duration(i)*time.Minute))
	}

	ac := NewArticleCache(f.store, f.articles, f.userIndex, 10)
	key := ArticleListKey(f.school.ID, "article-list")
	compute := func(ctx context.Context) ([]int64, error) {
		return f.articles.RecentIDs(ctx, f.school.ID)
	}

	page1, err := ac.GetPage(ctx, reader.ID, key, compute, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(25), page1.Count)
	require.Len(t, page1.Articles, 10)
	require.NotNil(t, page1.Next)
	assert.Equal(t, 2, page1.Next.Page)
	assert.Equal(t, int64(25), page1.Next.Count)
	// Newest first.
	assert.Equal(t, int64(25), page1.Articles[0].ID)
	assert.Equal(t, int64(16), page1.Articles[9].ID)

	// Three articles arrive between the client's page 1 and page 2.
	for i := 0; i < 3; i++ {
		a := f.article(t, author, "new", base.Add(time.Duration(30+i)*time.Minute))
		ac.PrependID(ctx, key, a.ID)
	}

	// Page 2 against the old snapshot still starts right after page 1.
	page2, err := ac.GetPage(ctx, reader.ID, key, compute, 2, page1.Next.Count)
	require.NoError(t, err)
	require.Len(t, page2.Articles, 10)
	assert.Equal(t, int64(15), page2.Articles[0].ID)
	assert.Equal(t, int64(6), page2.Articles[9].ID)

	page3, err := ac.GetPage(ctx, reader.ID, key, compute, 3, page2.Next.Count)
	require.NoError(t, err)
	require.Len(t, page3.Articles, 5)
	assert.Equal(t, int64(1), page3.Articles[4].ID)
	assert.Nil(t, page3.Next)

	// Every snapshot article is served exactly once across the three pages.
	seen := map[int64]int{}
	for _, id := range append(append(articleIDs(page1), articleIDs(page2)...), articleIDs(page3)...) {
		seen[id]++
	}
	require.Len(t, seen, 25)
	for id, n := range seen {
		assert.Equalf(t, 1, n, "article %d served %d times", id, n)
	}

	// A fresh first page picks up the three new posts at the head.
	fresh, err := ac.GetPage(ctx, reader.ID, key, compute, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(28), fresh.Count)
	assert.Equal(t, int64(28), fresh.Articles[0].ID)
}

func TestArticleCachePatchRecomputesEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author@kaist.ac.kr")
	a := f.article(t, author, "hello", time.Now())

	ac := NewArticleCache(f.store, f.articles, f.userIndex, 10)

	// Warm the payload cache.
	_, err := ac.GetOne(ctx, author.ID, a.ID)
	require.NoError(t, err)

	require.NoError(t, ac.Patch(ctx, a.ID, map[string]interface{}{
		"views_count": gorm.Expr("views_count + 1"),
	}))
	require.NoError(t, ac.Patch(ctx, a.ID, map[string]interface{}{
		"likes_count": gorm.Expr("likes_count + 1"),
	}))
	require.NoError(t, ac.Patch(ctx, a.ID, map[string]interface{}{
		"comments_count": gorm.Expr("comments_count + 1"),
	}))

	var row model.Article
	require.NoError(t, f.db.First(&row, a.ID).Error)
	assert.Equal(t, int64(1), row.ViewsCount)
	assert.Equal(t, int64(1), row.LikesCount)
	assert.Equal(t, int64(1), row.CommentsCount)
	// views*1 + likes*2 + comments*3
	assert.Equal(t, float64(6), row.EngagementScore)

	// The warm cached payload tracked every counter.
	payload, err := ac.GetOne(ctx, author.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), payload.ViewsCount)
	assert.Equal(t, int64(1), payload.LikesCount)
	assert.Equal(t, int64(1), payload.CommentsCount)
}

func TestArticleCacheOverlaysReaderFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author@kaist.ac.kr")
	reader := f.user(t, "reader@kaist.ac.kr")
	a := f.article(t, author, "hello", time.Now())

	ac := NewArticleCache(f.store, f.articles, f.userIndex, 10)

	payload, err := ac.GetOne(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, payload.LikeStatus)
	assert.False(t, payload.SaveStatus)

	created, err := f.articles.CreateLike(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, f.userIndex.SetFlag(ctx, reader.ID, KindLikedArticles, a.ID, true))

	payload, err = ac.GetOne(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, payload.LikeStatus)

	// Flags are per reader, the author still sees their own state.
	payload, err = ac.GetOne(ctx, author.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, payload.LikeStatus)

	require.NoError(t, f.userIndex.SetFlag(ctx, reader.ID, KindLikedArticles, a.ID, false))
	payload, err = ac.GetOne(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, payload.LikeStatus)
}

func TestArticleCacheDedupedEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author@kaist.ac.kr")
	reader := f.user(t, "reader@kaist.ac.kr")
	a := f.article(t, author, "hello", time.Now())

	created, err := f.articles.CreateLike(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.articles.CreateLike(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, created, "second like must be a no-op")

	deleted, err := f.articles.DeleteLike(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.articles.DeleteLike(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "second unlike must be a no-op")

	// Like again after unlike works.
	created, err = f.articles.CreateLike(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, created)
}
