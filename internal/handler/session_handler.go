package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocknest/inventory-api/internal/middleware"
	"github.com/stocknest/inventory-api/internal/models"
	"github.com/stocknest/inventory-api/internal/service"
	appErrors "github.com/stocknest/inventory-api/pkg/errors"
	"github.com/stocknest/inventory-api/pkg/response"
)

// SessionService covers the session lifecycle operations the handler exposes.
type SessionService interface {
	Login(ctx context.Context, req models.LoginRequest) (*service.LoginResult, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error)
	Logout(ctx context.Context, accessToken, refreshToken string)
}

// SessionHandler wires the session endpoints to the session service.
type SessionHandler struct {
	service SessionService
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by e-mail and password; issues an access token (Authorization header) and a refresh cookie
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Authorization", "Bearer "+res.Access.Token)
	middleware.SetRefreshCookie(c, res.Refresh)

	response.JSON(c, http.StatusOK, models.LoginResponse{
		AccessToken: res.Access.Token,
		Expiration:  res.Access.ExpiresIn.Milliseconds(),
		User:        res.User,
	})
}

// Register godoc
// @Summary Register account
// @Description Create a new account
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /session/register [post]
func (h *SessionHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	info, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, info)
}

// Logout godoc
// @Summary Logout current session
// @Description Denylist whichever tokens are presented and clear the refresh cookie; always succeeds
// @Tags Session
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /session/logout [delete]
func (h *SessionHandler) Logout(c *gin.Context) {
	accessToken := middleware.BearerToken(c)
	refreshToken, _ := c.Cookie(middleware.RefreshCookieName)

	middleware.ClearRefreshCookie(c)

	h.service.Logout(c.Request.Context(), accessToken, refreshToken)

	response.NoContent(c)
}
