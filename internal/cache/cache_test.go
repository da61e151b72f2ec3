package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
)

type fixture struct {
	db            *gorm.DB
	store         *Store
	articles      repository.ArticleRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	userIndex     *UserIndexCache
	school        *model.School
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.School{}, &model.User{},
		&model.Article{}, &model.ArticleUser{}, &model.ArticleLike{},
		&model.ArticleView{}, &model.ArticleSave{},
		&model.Course{}, &model.ArticleCourse{},
		&model.Comment{}, &model.CommentLike{},
		&model.Notification{},
	))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(client, time.Hour)

	school := &model.School{Name: "KAIST", Initial: "K", EmailIdentifier: "kaist.ac.kr"}
	require.NoError(t, db.Create(school).Error)

	articles := repository.NewArticleRepository(db)
	comments := repository.NewCommentRepository(db)
	notifications := repository.NewNotificationRepository(db)
	return &fixture{
		db:            db,
		store:         store,
		articles:      articles,
		comments:      comments,
		notifications: notifications,
		userIndex:     NewUserIndexCache(store, articles, comments),
		school:        school,
	}
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Password: "x", SchoolID: f.school.ID, IsValidated: true}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

// article inserts a row with an explicit creation time so listing order is
// deterministic under sqlite's timestamp resolution.
func (f *fixture) article(t *testing.T, author *model.User, title string, at time.Time) *model.Article {
	t.Helper()
	a := &model.Article{
		Title:     title,
		Body:      "body of " + title,
		UserID:    author.ID,
		Unicon:    false,
		CreatedAt: at,
	}
	require.NoError(t, f.db.Create(a).Error)
	return a
}

func (f *fixture) comment(t *testing.T, author *model.User, articleID int64, body string, parentID *int64, at time.Time) *model.Comment {
	t.Helper()
	c := &model.Comment{
		Body:            body,
		UserID:          author.ID,
		ArticleID:       articleID,
		ParentCommentID: parentID,
		CreatedAt:       at,
	}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func articleIDs(page *ArticlePage) []int64 {
	ids := make([]int64, len(page.Articles))
	for i, a := range page.Articles {
		ids[i] = a.ID
	}
	return ids
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) Enqueue(to, subject, body string) {
	m.sent = append(m.sent, fmt.Sprintf("%s|%s|%s", to, subject, body))
}
