package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/uniconhq/unicon-backend/config"
	"github.com/uniconhq/unicon-backend/internal/api/handler"
	"github.com/uniconhq/unicon-backend/internal/api/middleware"
	"github.com/uniconhq/unicon-backend/internal/service"
)

// NewRouter wires middleware and routes. Account endpoints that bootstrap a
// session are public; everything else requires a token, and the forum
// additionally requires a validated email.
func NewRouter(cfg *config.Config, h *handler.Handler, tokens *service.TokenService, accounts *service.AccountService) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("unicon-backend"))
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Server.RateLimit > 0 {
		r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	user := v1.Group("/user")
	{
		user.POST("/register", h.Register)
		user.POST("/login", h.Login)
		user.POST("/forgot-password", h.ForgotPassword)

		authed := user.Group("", middleware.JWTAuth(tokens, accounts))
		authed.POST("/validate", h.Validate)
		authed.PATCH("/password", middleware.RequireValidated(), h.ChangePassword)
	}

	forum := v1.Group("", middleware.JWTAuth(tokens, accounts), middleware.RequireValidated())

	article := forum.Group("/article")
	{
		article.POST("", h.CreateArticle)
		article.GET("", h.ListArticles)
		article.GET("/hot", h.HotArticles)
		article.GET("/preference", h.PreferenceArticles)
		article.GET("/search", h.SearchArticles)
		article.GET("/posted", h.PostedArticles)
		article.GET("/commented", h.CommentedArticles)
		article.GET("/saved", h.SavedArticles)
		article.GET("/liked", h.LikedArticles)

		article.GET("/:id", h.GetArticle)
		article.PATCH("/:id", h.PatchArticle)
		article.DELETE("/:id", h.DeleteArticle)
		article.POST("/:id/like", h.LikeArticle)
		article.DELETE("/:id/like", h.UnlikeArticle)
		article.POST("/:id/save", h.SaveArticle)
		article.DELETE("/:id/save", h.UnsaveArticle)
	}

	comment := forum.Group("/comment")
	{
		comment.POST("", h.CreateComment)
		comment.GET("/:id/replies", h.CommentReplies)
		comment.PATCH("/:id", h.PatchComment)
		comment.DELETE("/:id", h.DeleteComment)
		comment.POST("/:id/like", h.LikeComment)
		comment.DELETE("/:id/like", h.UnlikeComment)
	}

	notification := forum.Group("/notification")
	{
		notification.GET("/new", h.UnreadNotifications)
		notification.GET("/old", h.ReadNotifications)
	}

	return r
}
