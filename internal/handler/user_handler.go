package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocknest/inventory-api/internal/middleware"
	"github.com/stocknest/inventory-api/internal/models"
	appErrors "github.com/stocknest/inventory-api/pkg/errors"
	"github.com/stocknest/inventory-api/pkg/response"
)

// UserService covers the authenticated account operations.
type UserService interface {
	Get(ctx context.Context, id string) (*models.UserInfo, error)
	Delete(ctx context.Context, id string) error
}

// UserHandler serves the authenticated user's own account.
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new handler.
func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated account
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	subjectID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info, err := h.service.Get(c.Request.Context(), subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info)
}

// Delete godoc
// @Summary Delete current user
// @Description Removes the account; outstanding tokens stop authorizing immediately
// @Tags Users
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/me [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	subjectID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), subjectID); err != nil {
		response.Error(c, err)
		return
	}

	middleware.ClearRefreshCookie(c)
	response.NoContent(c)
}
