package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uniconhq/unicon-backend/internal/api/middleware"
	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/service"
	"github.com/uniconhq/unicon-backend/pkg/response"
)

type createArticleRequest struct {
	Title       string   `json:"title" binding:"required"`
	Body        string   `json:"body" binding:"required"`
	Unicon      bool     `json:"unicon"`
	CourseCodes []string `json:"courses"`
}

type patchArticleRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

func articlePage(c *gin.Context, p *cache.ArticlePage) gin.H {
	return gin.H{"count": p.Count, "next": nextURL(c, p.Next), "results": p.Articles}
}

// CreateArticle posts a new article.
// @Summary Post an article
// @Tags article
// @Accept json
// @Produce json
// @Param request body createArticleRequest true "article"
// @Success 201 {object} response.Response{data=repository.ArticlePayload}
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/article [post]
func (h *Handler) CreateArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	payload, err := h.articles.Create(c.Request.Context(), middleware.CurrentUser(c), service.CreateArticleInput{
		Title:       req.Title,
		Body:        req.Body,
		Unicon:      req.Unicon,
		CourseCodes: req.CourseCodes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, payload)
}

func (h *Handler) listing(c *gin.Context, fetch func(*model.User, int, int64) (*cache.ArticlePage, error)) {
	page, seen := pageParams(c)
	result, err := fetch(middleware.CurrentUser(c), page, seen)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, articlePage(c, result))
}

// ListArticles serves the newest-first feed for the user's school.
// @Summary List recent articles
// @Tags article
// @Produce json
// @Param page query int false "page" default(1)
// @Param count query int false "total seen on the first page" default(-1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/article [get]
func (h *Handler) ListArticles(c *gin.Context) {
	h.listing(c, func(u *model.User, page int, seen int64) (*cache.ArticlePage, error) {
		return h.articles.List(c.Request.Context(), u, page, seen)
	})
}

// HotArticles serves the engagement-ranked feed.
// @Summary List hot articles
// @Tags article
// @Produce json
// @Param page query int false "page" default(1)
// @Param count query int false "total seen on the first page" default(-1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/article/hot [get]
func (h *Handler) HotArticles(c *gin.Context) {
	h.listing(c, func(u *model.User, page int, seen int64) (*cache.ArticlePage, error) {
		return h.articles.Hot(c.Request.Context(), u, page, seen)
	})
}

// PreferenceArticles ranks the feed by the reader's preference vector.
// @Summary List recommended articles
// @Tags article
// @Produce json
// @Param page query int false "page" default(1)
// @Param count query int false "total seen on the first page" default(-1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/article/preference [get]
func (h *Handler) PreferenceArticles(c *gin.Context) {
	h.listing(c, func(u *model.User, page int, seen int64) (*cache.ArticlePage, error) {
		return h.articles.Preference(c.Request.Context(), u, page, seen)
	})
}

// SearchArticles ranks the feed by similarity to the query text.
// @Summary Search articles
// @Tags article
// @Produce json
// @Param search_content query string true "query text"
// @Param page query int false "page" default(1)
// @Param count query int false "total seen on the first page" default(-1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/article/search [get]
func (h *Handler) SearchArticles(c *gin.Context) {
	query := c.Query("search_content")
	h.listing(c, func(u *model.User, page int, seen int64) (*cache.ArticlePage, error) {
		return h.articles.Search(c.Request.Context(), u, query, page, seen)
	})
}

// PostedArticles lists the caller's own articles.
// @Summary List articles I posted
// @Tags article
// @Produce json
// @Param page query int false "page" default(1)
// @Param count query int false "total seen on the first page" default(-1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/article/posted [get]
func (h *Handler) PostedArticles(c *gin.Context) {
	h.listing(c, func(u *model.User, page int, seen int64) (*cache.ArticlePage, error) {
		return h.articles.Posted(c.Request.Context(), u, page, seen)
	})
}

// CommentedArticles lists articles the caller commented on.
// @Summary List articles I commented on
// @Tags article
// @Produce json
// @Param page query int false "page" default(1)
// @Param count query int false "total seen on the first page" default(-1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/article/commented [get]
func (h *Handler) CommentedArticles(c *gin.Context) {
	h.listing(c, func(u *model.User, page int, seen int64) (*cache.ArticlePage, error) {
		return h.articles.Commented(c.Request.Context(), u, page, seen)
	})
}

// SavedArticles lists the caller's bookmarks.
// @Summary List articles I saved
// @Tags article
// @Produce json
// @Param page query int false "page" default(1)
// @Param count query int false "total seen on the first page" default(-1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/article/saved [get]
func (h *Handler) SavedArticles(c *gin.Context) {
	h.listing(c, func(u *model.User, page int, seen int64) (*cache.ArticlePage, error) {
		return h.articles.Saved(c.Request.Context(), u, page, seen)
	})
}

// LikedArticles lists articles the caller liked.
// @Summary List articles I liked
// @Tags article
// @Produce json
// @Param page query int false "page" default(1)
// @Param count query int false "total seen on the first page" default(-1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/article/liked [get]
func (h *Handler) LikedArticles(c *gin.Context) {
	h.listing(c, func(u *model.User, page int, seen int64) (*cache.ArticlePage, error) {
		return h.articles.Liked(c.Request.Context(), u, page, seen)
	})
}

// GetArticle serves one article with its first page of comments. Viewing
// counts as engagement.
// @Summary Retrieve an article
// @Tags article
// @Produce json
// @Param id path int true "article id"
// @Param page query int false "comment page" default(1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/article/{id} [get]
func (h *Handler) GetArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, _ := pageParams(c)
	detail, err := h.articles.Retrieve(c.Request.Context(), middleware.CurrentUser(c), id, page)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"article": detail.Article,
		"comments": gin.H{
			"count":   detail.Comments.Count,
			"next":    nextURL(c, detail.Comments.Next),
			"results": detail.Comments.Comments,
		},
	})
}

// PatchArticle edits title and body, author only.
// @Summary Edit an article
// @Tags article
// @Accept json
// @Produce json
// @Param id path int true "article id"
// @Param request body patchArticleRequest true "new content"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/article/{id} [patch]
func (h *Handler) PatchArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req patchArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.articles.Patch(c.Request.Context(), middleware.CurrentUser(c), id, req.Title, req.Body); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteArticle soft-deletes, author only.
// @Summary Delete an article
// @Tags article
// @Produce json
// @Param id path int true "article id"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/article/{id} [delete]
func (h *Handler) DeleteArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.articles.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) articleEdge(c *gin.Context, op func(*model.User, int64) error) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := op(middleware.CurrentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// LikeArticle likes once; a repeat is reported as not modified.
// @Summary Like an article
// @Tags article
// @Produce json
// @Param id path int true "article id"
// @Success 200 {object} response.Response
// @Failure 304 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/article/{id}/like [post]
func (h *Handler) LikeArticle(c *gin.Context) {
	h.articleEdge(c, func(u *model.User, id int64) error {
		return h.articles.Like(c.Request.Context(), u, id)
	})
}

// UnlikeArticle removes the like.
// @Summary Unlike an article
// @Tags article
// @Produce json
// @Param id path int true "article id"
// @Success 200 {object} response.Response
// @Failure 304 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/article/{id}/like [delete]
func (h *Handler) UnlikeArticle(c *gin.Context) {
	h.articleEdge(c, func(u *model.User, id int64) error {
		return h.articles.Unlike(c.Request.Context(), u, id)
	})
}

// SaveArticle bookmarks the article.
// @Summary Save an article
// @Tags article
// @Produce json
// @Param id path int true "article id"
// @Success 200 {object} response.Response
// @Failure 304 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/article/{id}/save [post]
func (h *Handler) SaveArticle(c *gin.Context) {
	h.articleEdge(c, func(u *model.User, id int64) error {
		return h.articles.Save(c.Request.Context(), u, id)
	})
}

// UnsaveArticle removes the bookmark.
// @Summary Unsave an article
// @Tags article
// @Produce json
// @Param id path int true "article id"
// @Success 200 {object} response.Response
// @Failure 304 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/article/{id}/save [delete]
func (h *Handler) UnsaveArticle(c *gin.Context) {
	h.articleEdge(c, func(u *model.User, id int64) error {
		return h.articles.Unsave(c.Request.Context(), u, id)
	})
}
