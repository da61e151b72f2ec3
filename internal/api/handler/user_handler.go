package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/uniconhq/unicon-backend/internal/api/middleware"
	"github.com/uniconhq/unicon-backend/internal/service"
	"github.com/uniconhq/unicon-backend/pkg/response"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type validateRequest struct {
	Code string `json:"validation_code" binding:"required,len=6"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Register creates an account for a recognized school email.
// @Summary Register a new account
// @Tags account
// @Accept json
// @Produce json
// @Param request body registerRequest true "credentials"
// @Success 201 {object} response.Response{data=service.UserProfile}
// @Failure 400 {object} response.Response
// @Router /api/v1/user/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	profile, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, profile)
}

// Login authenticates and returns a token pair. An unvalidated account
// still gets its tokens so the client can reach the validation endpoint;
// a fresh code is mailed as a side effect.
// @Summary Log in
// @Tags account
// @Accept json
// @Produce json
// @Param request body loginRequest true "credentials"
// @Success 200 {object} response.Response{data=service.UserProfile}
// @Failure 401 {object} response.Response
// @Router /api/v1/user/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	profile, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil && !errors.Is(err, service.ErrNotValidated) {
		fail(c, err)
		return
	}
	response.Success(c, profile)
}

// Validate confirms the emailed six digit code.
// @Summary Validate the account email
// @Tags account
// @Accept json
// @Produce json
// @Param request body validateRequest true "code"
// @Success 200 {object} response.Response{data=service.UserProfile}
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/user/validate [post]
func (h *Handler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user := middleware.CurrentUser(c)
	profile, err := h.accounts.Validate(c.Request.Context(), user, req.Code)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, profile)
}

// ChangePassword rotates the password after checking the current one.
// @Summary Change password
// @Tags account
// @Accept json
// @Produce json
// @Param request body changePasswordRequest true "passwords"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/user/password [patch]
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user := middleware.CurrentUser(c)
	if err := h.accounts.ChangePassword(c.Request.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ForgotPassword mails a temporary password. Always replies ok so the
// endpoint cannot be used to probe for registered emails.
// @Summary Request a temporary password
// @Tags account
// @Accept json
// @Produce json
// @Param request body forgotPasswordRequest true "email"
// @Success 200 {object} response.Response
// @Router /api/v1/user/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	_ = h.accounts.ForgotPassword(c.Request.Context(), req.Email)
	response.Success(c, nil)
}
