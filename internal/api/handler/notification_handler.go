package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uniconhq/unicon-backend/internal/api/middleware"
	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/pkg/response"
)

func notificationPage(c *gin.Context, p *cache.NotificationPage) gin.H {
	return gin.H{"count": p.Count, "next": nextURL(c, p.Next), "results": p.Notifications}
}

// UnreadNotifications pages through unread notifications; returned rows are
// acknowledged.
// @Summary List unread notifications
// @Tags notification
// @Produce json
// @Param page query int false "page" default(1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/notification/new [get]
func (h *Handler) UnreadNotifications(c *gin.Context) {
	page, _ := pageParams(c)
	result, err := h.notifications.Unread(c.Request.Context(), middleware.CurrentUser(c), page)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, notificationPage(c, result))
}

// ReadNotifications pages through already acknowledged notifications.
// @Summary List read notifications
// @Tags notification
// @Produce json
// @Param page query int false "page" default(1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Security BearerAuth
// @Router /api/v1/notification/old [get]
func (h *Handler) ReadNotifications(c *gin.Context) {
	page, _ := pageParams(c)
	result, err := h.notifications.Read(c.Request.Context(), middleware.CurrentUser(c), page)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, notificationPage(c, result))
}
