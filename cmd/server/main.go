package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/config"
	"github.com/uniconhq/unicon-backend/internal/api"
	"github.com/uniconhq/unicon-backend/internal/api/handler"
	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
	"github.com/uniconhq/unicon-backend/internal/search"
	"github.com/uniconhq/unicon-backend/internal/service"
	"github.com/uniconhq/unicon-backend/pkg/database"
	"github.com/uniconhq/unicon-backend/pkg/logger"
	"github.com/uniconhq/unicon-backend/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// @title UNI.CON API
// @version 1.0
// @description Anonymous campus forum backend.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := must(config.Load())

	if err := logger.Init(cfg.Server.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	shutdownTracing := must(tracing.Init(ctx, cfg))
	defer shutdownTracing(ctx)

	db := must(database.InitDB(cfg))
	must(0, db.AutoMigrate(
		&model.School{}, &model.User{},
		&model.Article{}, &model.ArticleUser{}, &model.ArticleLike{},
		&model.ArticleView{}, &model.ArticleSave{},
		&model.Course{}, &model.ArticleCourse{},
		&model.Comment{}, &model.CommentLike{},
		&model.Notification{},
	))
	must(0, seedSchools(db))

	rdb := database.InitRedis(cfg)
	store := cache.NewStore(rdb, cfg.Forum.CacheTTL)

	userRepo := repository.NewUserRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	index := search.NewIndex(cfg.Embedding.IndexFile, cfg.Embedding.VectorSize)
	if !index.Load() {
		logger.Info("similarity index missing, rebuilding")
		rows := must(articleRepo.AllEmbeddings(ctx))
		ids := make([]int64, len(rows))
		vectors := make([]model.Vector, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
			vectors[i] = row.Vector
		}
		must(0, index.Replace(ids, vectors))
	}
	logger.Info("similarity index ready", zap.Int("vectors", index.Len()))

	mailer := service.NewMailer(cfg.Email)
	stopMailer := mailer.Start(cfg.Email.Workers)

	userIndex := cache.NewUserIndexCache(store, articleRepo, commentRepo)
	articleCache := cache.NewArticleCache(store, articleRepo, userIndex, cfg.Forum.PageSize)
	threads := cache.NewCommentThreadCache(store, commentRepo, userIndex, cfg.Forum.PageSize)
	notificationCache := cache.NewNotificationCache(store, notificationRepo, articleRepo, commentRepo,
		mailer, cfg.Forum.EmailNotificationsThreshold, cfg.Forum.PageSize)

	tokens := service.NewTokenService(cfg.JWT)
	embedder := search.NewOpenAIEmbeddingClient(cfg.Embedding.APIKey, cfg.Embedding.Model)

	accounts := service.NewAccountService(userRepo, tokens, mailer)
	articles := service.NewArticleService(articleRepo, userRepo, articleCache, userIndex,
		threads, notificationCache, embedder, index)
	comments := service.NewCommentService(commentRepo, articleRepo, userRepo, articleCache,
		userIndex, threads, notificationCache)
	notifications := service.NewNotificationService(notificationCache)

	h := handler.NewHandler(accounts, articles, comments, notifications)
	router := api.NewRouter(cfg, h, tokens, accounts)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	if err := stopMailer(shutdownCtx); err != nil {
		logger.Warn("mail queue did not drain", zap.Error(err))
	}
}

// seedSchools loads the supported campuses on first boot.
func seedSchools(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.School{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	schools := []model.School{
		{Name: "KAIST", Color: "#004191", Initial: "K", EmailIdentifier: "kaist.ac.kr"},
		{Name: "Seoul National University", Color: "#103D92", Initial: "S", EmailIdentifier: "snu.ac.kr"},
		{Name: "Yonsei University", Color: "#003876", Initial: "Y", EmailIdentifier: "yonsei.ac.kr"},
		{Name: "Korea University", Color: "#8B0029", Initial: "K", EmailIdentifier: "korea.ac.kr"},
		{Name: "UNIST", Color: "#0F4C81", Initial: "U", EmailIdentifier: "unist.ac.kr"},
	}
	return db.Create(&schools).Error
}
