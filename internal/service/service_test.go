package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/config"
	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
	"github.com/uniconhq/unicon-backend/internal/search"
)

const testVectorSize = 8

// fakeEmbedder derives a deterministic vector from the text so identical
// inputs land on identical vectors.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) (model.Vector, error) {
	v := make(model.Vector, testVectorSize)
	for i, r := range text {
		v[i%testVectorSize] += float32(r%31) / 31
	}
	return v, nil
}

type captureMailer struct {
	sent []string
}

func (m *captureMailer) Enqueue(to, subject, body string) {
	m.sent = append(m.sent, fmt.Sprintf("%s|%s|%s", to, subject, body))
}

type env struct {
	db     *gorm.DB
	mailer *captureMailer
	index  *search.Index

	users         repository.UserRepository
	articleRepo   repository.ArticleRepository
	commentRepo   repository.CommentRepository
	notifRepo     repository.NotificationRepository
	notifications *cache.NotificationCache

	accounts  *AccountService
	articles  *ArticleService
	comments  *CommentService
	tokens    *TokenService
	schoolA   *model.School
	schoolB   *model.School
}

func newEnv(t *testing.T) *env {
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

	schoolA := &model.School{Name: "KAIST", Initial: "K", EmailIdentifier: "kaist.ac.kr"}
	schoolB := &model.School{Name: "UNIST", Initial: "U", EmailIdentifier: "unist.ac.kr"}
	require.NoError(t, db.Create(schoolA).Error)
	require.NoError(t, db.Create(schoolB).Error)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(client, time.Hour)

	users := repository.NewUserRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	mailer := &captureMailer{}
	userIndex := cache.NewUserIndexCache(store, articleRepo, commentRepo)
	articleCache := cache.NewArticleCache(store, articleRepo, userIndex, 10)
	threads := cache.NewCommentThreadCache(store, commentRepo, userIndex, 10)
	notifications := cache.NewNotificationCache(store, notifRepo, articleRepo, commentRepo, mailer, 100, 10)

	index := search.NewIndex(filepath.Join(t.TempDir(), "index.idx"), testVectorSize)
	tokens := NewTokenService(config.JWTConfig{
		Secret:     "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})

	return &env{
		db:            db,
		mailer:        mailer,
		index:         index,
		users:         users,
		articleRepo:   articleRepo,
		commentRepo:   commentRepo,
		notifRepo:     notifRepo,
		notifications: notifications,
		accounts:      NewAccountService(users, tokens, mailer),
		articles: NewArticleService(articleRepo, users, articleCache, userIndex,
			threads, notifications, fakeEmbedder{}, index),
		comments: NewCommentService(commentRepo, articleRepo, users, articleCache,
			userIndex, threads, notifications),
		tokens:  tokens,
		schoolA: schoolA,
		schoolB: schoolB,
	}
}

func (e *env) user(t *testing.T, email string, school *model.School) *model.User {
	t.Helper()
	u := &model.User{Email: email, Password: "x", SchoolID: school.ID, IsValidated: true}
	require.NoError(t, e.db.Create(u).Error)
	u.School = *school
	return u
}

func (e *env) post(t *testing.T, author *model.User, title string, unicon bool) *repository.ArticlePayload {
	t.Helper()
	payload, err := e.articles.Create(context.Background(), author, CreateArticleInput{
		Title:  title,
		Body:   "body of " + title,
		Unicon: unicon,
	})
	require.NoError(t, err)
	return payload
}
