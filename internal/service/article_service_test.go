package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniconhq/unicon-backend/internal/model"
)

func TestCreateArticleValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "author@kaist.ac.kr", e.schoolA)

	_, err := e.articles.Create(ctx, author, CreateArticleInput{Title: "  ", Body: "x"})
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = e.articles.Create(ctx, author, CreateArticleInput{
		Title: "t", Body: "b", Unicon: true, CourseCodes: []string{"COMP1231"},
	})
	assert.ErrorIs(t, err, ErrUniconCourse)
}

func TestCreateArticleAnnotatesPayload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "author@kaist.ac.kr", e.schoolA)

	payload, err := e.articles.Create(ctx, author, CreateArticleInput{
		Title:       "course question",
		Body:        "anyone took this?",
		CourseCodes: []string{" comp1231 ", "Comp1320"},
	})
	require.NoError(t, err)

	assert.Equal(t, "K", payload.UserSchool)
	assert.NotEmpty(t, payload.UserTempName, "author gets a pseudonym at creation")
	assert.Equal(t, "COMP1231,COMP1320", payload.CourseCode, "codes are normalized uppercase")
	assert.False(t, payload.Deleted)
	assert.Zero(t, payload.ViewsCount)

	// The embedding landed in the similarity index.
	assert.Equal(t, 1, e.index.Len())
}

func TestArticleVisibilityAcrossSchools(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	authorA := e.user(t, "a@kaist.ac.kr", e.schoolA)
	readerB := e.user(t, "b@unist.ac.kr", e.schoolB)

	local := e.post(t, authorA, "school only", false)
	shared := e.post(t, authorA, "everyone", true)

	page, err := e.articles.List(ctx, readerB, 1, -1)
	require.NoError(t, err)
	require.Len(t, page.Articles, 1)
	assert.Equal(t, shared.ID, page.Articles[0].ID)

	// A direct fetch of the other school's local article looks nonexistent.
	_, err = e.articles.Retrieve(ctx, readerB, local.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.articles.Retrieve(ctx, readerB, shared.ID, 1)
	assert.NoError(t, err)
}

func TestRetrieveCountsViewsAndBlendsPreference(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)
	reader := e.user(t, "r@kaist.ac.kr", e.schoolA)
	a := e.post(t, author, "interesting", false)

	detail, err := e.articles.Retrieve(ctx, reader, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.Article.ViewsCount)
	assert.True(t, detail.Article.ViewStatus)

	// Every retrieve counts, the view edge only dedups the status flag.
	detail, err = e.articles.Retrieve(ctx, reader, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.Article.ViewsCount)

	stored, err := e.users.GetByID(ctx, reader.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.EmbeddingVector, "reading nudges the preference vector")

	var row model.Article
	require.NoError(t, e.db.First(&row, a.ID).Error)
	assert.Equal(t, float64(2), row.EngagementScore)
}

func TestLikeUnlikeIdempotence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)
	reader := e.user(t, "r@kaist.ac.kr", e.schoolA)
	a := e.post(t, author, "likeable", false)

	require.NoError(t, e.articles.Like(ctx, reader, a.ID))
	assert.ErrorIs(t, e.articles.Like(ctx, reader, a.ID), ErrNotModified)

	var row model.Article
	require.NoError(t, e.db.First(&row, a.ID).Error)
	assert.Equal(t, int64(1), row.LikesCount)
	assert.Equal(t, float64(2), row.EngagementScore)

	// The author got exactly one notification.
	var notifs int64
	require.NoError(t, e.db.Model(&model.Notification{}).
		Where("user_id = ?", author.ID).Count(&notifs).Error)
	assert.Equal(t, int64(1), notifs)

	require.NoError(t, e.articles.Unlike(ctx, reader, a.ID))
	assert.ErrorIs(t, e.articles.Unlike(ctx, reader, a.ID), ErrNotModified)

	require.NoError(t, e.db.First(&row, a.ID).Error)
	assert.Zero(t, row.LikesCount)
	assert.Zero(t, row.EngagementScore)

	// Like again restores.
	require.NoError(t, e.articles.Like(ctx, reader, a.ID))
	require.NoError(t, e.db.First(&row, a.ID).Error)
	assert.Equal(t, int64(1), row.LikesCount)
}

func TestLikeOwnArticleDoesNotNotify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)
	a := e.post(t, author, "self like", false)

	require.NoError(t, e.articles.Like(ctx, author, a.ID))

	var notifs int64
	require.NoError(t, e.db.Model(&model.Notification{}).Count(&notifs).Error)
	assert.Zero(t, notifs)
}

func TestSoftDeleteFreezesArticle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)
	other := e.user(t, "o@kaist.ac.kr", e.schoolA)
	a := e.post(t, author, "to delete", false)

	assert.ErrorIs(t, e.articles.Delete(ctx, other, a.ID), ErrForbidden)
	require.NoError(t, e.articles.Delete(ctx, author, a.ID))

	var row model.Article
	require.NoError(t, e.db.First(&row, a.ID).Error)
	assert.Equal(t, model.DeletedTitle, row.Title)
	assert.Equal(t, model.DeletedBody, row.Body)
	assert.True(t, row.Deleted)

	assert.ErrorIs(t, e.articles.Patch(ctx, author, a.ID, "new", "new"), ErrDeleted)
	assert.ErrorIs(t, e.articles.Delete(ctx, author, a.ID), ErrDeleted)

	// Deleted articles remain listed under their sentinel title.
	page, err := e.articles.List(ctx, author, 1, -1)
	require.NoError(t, err)
	require.Len(t, page.Articles, 1)
	assert.Equal(t, model.DeletedTitle, page.Articles[0].Title)
}

func TestPatchArticleMarksEdited(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)
	a := e.post(t, author, "v1", false)

	require.NoError(t, e.articles.Patch(ctx, author, a.ID, "v2", "updated body"))

	var row model.Article
	require.NoError(t, e.db.First(&row, a.ID).Error)
	assert.Equal(t, "v2", row.Title)
	assert.True(t, row.Edited)
}

func TestHotOrdersByEngagement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)
	r1 := e.user(t, "r1@kaist.ac.kr", e.schoolA)
	r2 := e.user(t, "r2@kaist.ac.kr", e.schoolA)

	quiet := e.post(t, author, "quiet", false)
	popular := e.post(t, author, "popular", false)
	middling := e.post(t, author, "middling", false)

	require.NoError(t, e.articles.Like(ctx, r1, popular.ID))
	require.NoError(t, e.articles.Like(ctx, r2, popular.ID))
	require.NoError(t, e.articles.Like(ctx, r1, middling.ID))

	page, err := e.articles.Hot(ctx, author, 1, -1)
	require.NoError(t, err)
	require.Len(t, page.Articles, 3)
	assert.Equal(t, popular.ID, page.Articles[0].ID)
	assert.Equal(t, middling.ID, page.Articles[1].ID)
	assert.Equal(t, quiet.ID, page.Articles[2].ID)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)

	e.post(t, author, "linear algebra midterm", false)
	target := e.post(t, author, "dorm laundry broken", false)

	// An identical text embeds onto an identical vector, so the target
	// article must rank first.
	page, err := e.articles.Search(ctx, author,
		"dorm laundry brokenbody of dorm laundry broken", 1, -1)
	require.NoError(t, err)
	require.NotEmpty(t, page.Articles)
	assert.Equal(t, target.ID, page.Articles[0].ID)

	_, err = e.articles.Search(ctx, author, "   ", 1, -1)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestSaveUnsaveAndListing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)
	reader := e.user(t, "r@kaist.ac.kr", e.schoolA)
	a := e.post(t, author, "bookmark me", false)

	require.NoError(t, e.articles.Save(ctx, reader, a.ID))
	assert.ErrorIs(t, e.articles.Save(ctx, reader, a.ID), ErrNotModified)

	page, err := e.articles.Saved(ctx, reader, 1, -1)
	require.NoError(t, err)
	require.Len(t, page.Articles, 1)
	assert.True(t, page.Articles[0].SaveStatus)

	require.NoError(t, e.articles.Unsave(ctx, reader, a.ID))
	assert.ErrorIs(t, e.articles.Unsave(ctx, reader, a.ID), ErrNotModified)
}
