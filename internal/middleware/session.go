package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stocknest/inventory-api/internal/service"
	"github.com/stocknest/inventory-api/internal/token"
	appErrors "github.com/stocknest/inventory-api/pkg/errors"
	"github.com/stocknest/inventory-api/pkg/response"
)

// ContextSubjectKey is the gin context key storing the authenticated subject id.
const ContextSubjectKey = "subjectID"

// RefreshCookieName is the HTTP-only cookie carrying the refresh token.
const RefreshCookieName = "refresh"

// Authorizer drives the authorize-and-refresh decision for one request.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken, refreshToken string) (*service.AuthResult, error)
}

// Session protects routes with transparent token rotation: every request
// carries its access token, and expired sessions are silently renewed off the
// refresh cookie. Clients overwrite their stored access token whenever a
// response carries an Authorization header.
func Session(sessions Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken, ok := bearerToken(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing Authorization header with Bearer schema"))
			c.Abort()
			return
		}

		refreshToken, _ := c.Cookie(RefreshCookieName)

		res, err := sessions.Authorize(c.Request.Context(), accessToken, refreshToken)
		if err != nil {
			if res != nil && res.ClearRefreshCookie {
				ClearRefreshCookie(c)
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		if res.NewRefresh != nil {
			SetRefreshCookie(c, *res.NewRefresh)
		}
		if res.NewAccess != nil {
			c.Header("Authorization", "Bearer "+res.NewAccess.Token)
		}

		c.Set(ContextSubjectKey, res.SubjectID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SubjectID returns the subject id bound to the request by Session.
func SubjectID(c *gin.Context) (string, bool) {
	if v, exists := c.Get(ContextSubjectKey); exists {
		if id, ok := v.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// BearerToken extracts the raw access token when present, for handlers that
// accept but do not require one (logout).
func BearerToken(c *gin.Context) string {
	tokenString, _ := bearerToken(c)
	return tokenString
}

// SetRefreshCookie installs the refresh token as an HTTP-only cookie. The
// max-age is the token lifetime in milliseconds, matching the contract the
// web client relies on.
func SetRefreshCookie(c *gin.Context, issued token.IssuedToken) {
	c.SetCookie(RefreshCookieName, issued.Token, int(issued.ExpiresIn.Milliseconds()), "/", "", false, true)
}

// ClearRefreshCookie removes the refresh cookie.
func ClearRefreshCookie(c *gin.Context) {
	c.SetCookie(RefreshCookieName, "", -1, "/", "", false, true)
}
