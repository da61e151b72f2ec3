package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/internal/service"
	"github.com/uniconhq/unicon-backend/pkg/response"
)

// Handler bundles the HTTP endpoints over the service layer.
type Handler struct {
	accounts      *service.AccountService
	articles      *service.ArticleService
	comments      *service.CommentService
	notifications *service.NotificationService
}

func NewHandler(
	accounts *service.AccountService,
	articles *service.ArticleService,
	comments *service.CommentService,
	notifications *service.NotificationService,
) *Handler {
	return &Handler{
		accounts:      accounts,
		articles:      articles,
		comments:      comments,
		notifications: notifications,
	}
}

// pageParams reads ?page= and ?count=. count is the total the client saw on
// its first page, so later pages keep their offsets stable while new items
// arrive; -1 means "no snapshot yet".
func pageParams(c *gin.Context) (int, int64) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	count, err := strconv.ParseInt(c.DefaultQuery("count", "-1"), 10, 64)
	if err != nil {
		count = -1
	}
	return page, count
}

// nextURL rewrites the current request URL with the cursor's page and count.
func nextURL(c *gin.Context, cursor *cache.Cursor) *string {
	if cursor == nil {
		return nil
	}
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(cursor.Page))
	if cursor.Count > 0 {
		q.Set("count", strconv.FormatInt(cursor.Count, 10))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// fail maps service errors onto the response envelope.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotModified):
		response.NotModified(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrNotValidated):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrUnknownSchool),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrWrongCode),
		errors.Is(err, service.ErrSamePassword),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrDeleted),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrUniconCourse),
		errors.Is(err, service.ErrCommentDepth):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
