package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uniconhq/unicon-backend/internal/api/middleware"
	"github.com/uniconhq/unicon-backend/pkg/response"
)

type createCommentRequest struct {
	ArticleID     int64  `json:"article" binding:"required"`
	Body          string `json:"body" binding:"required"`
	ParentComment *int64 `json:"parent_comment"`
}

type patchCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// CreateComment posts a comment or a one-level reply.
// @Summary Post a comment
// @Tags comment
// @Accept json
// @Produce json
// @Param request body createCommentRequest true "comment"
// @Success 201 {object} response.Response{data=repository.CommentPayload}
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/comment [post]
func (h *Handler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	payload, err := h.comments.Create(c.Request.Context(), middleware.CurrentUser(c),
		req.ArticleID, req.Body, req.ParentComment)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, payload)
}

// CommentReplies pages through the replies under a top-level comment.
// @Summary List replies
// @Tags comment
// @Produce json
// @Param id path int true "comment id"
// @Param page query int false "page" default(1)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/comment/{id}/replies [get]
func (h *Handler) CommentReplies(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, _ := pageParams(c)
	result, err := h.comments.Replies(c.Request.Context(), middleware.CurrentUser(c), id, page)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"count":   result.Count,
		"next":    nextURL(c, result.Next),
		"results": result.Comments,
	})
}

// PatchComment edits the body, author only.
// @Summary Edit a comment
// @Tags comment
// @Accept json
// @Produce json
// @Param id path int true "comment id"
// @Param request body patchCommentRequest true "new body"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/comment/{id} [patch]
func (h *Handler) PatchComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req patchCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.comments.Patch(c.Request.Context(), middleware.CurrentUser(c), id, req.Body); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteComment soft-deletes, author only.
// @Summary Delete a comment
// @Tags comment
// @Produce json
// @Param id path int true "comment id"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/comment/{id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// LikeComment likes once; a repeat is reported as not modified.
// @Summary Like a comment
// @Tags comment
// @Produce json
// @Param id path int true "comment id"
// @Success 200 {object} response.Response
// @Failure 304 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/comment/{id}/like [post]
func (h *Handler) LikeComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Like(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// UnlikeComment removes the like.
// @Summary Unlike a comment
// @Tags comment
// @Produce json
// @Param id path int true "comment id"
// @Success 200 {object} response.Response
// @Failure 304 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/comment/{id}/like [delete]
func (h *Handler) UnlikeComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Unlike(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
