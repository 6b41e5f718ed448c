package middleware

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocknest/inventory-api/internal/models"
	"github.com/stocknest/inventory-api/internal/service"
	"github.com/stocknest/inventory-api/internal/token"
	"github.com/stocknest/inventory-api/pkg/password"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

type memUsers struct {
	byEmail map[string]*models.User
}

func (r *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	r.byEmail[user.Email] = user
	return nil
}

type memDenylist struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func (d *memDenylist) IsDenylisted(ctx context.Context, tokenString string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tokens[tokenString]
}

func (d *memDenylist) Denylist(ctx context.Context, tokenString string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens[tokenString] = true
}

type memIdentities struct {
	members map[string]bool
}

func (i *memIdentities) Exists(ctx context.Context, subjectID string) bool {
	return i.members[subjectID]
}

func (i *memIdentities) Add(ctx context.Context, subjectID string) error {
	i.members[subjectID] = true
	return nil
}

type authStack struct {
	codec      *token.Codec
	sessions   *service.SessionService
	users      *memUsers
	denylist   *memDenylist
	identities *memIdentities
	hasher     *password.Hasher
}

func newAuthStack(t *testing.T) *authStack {
	t.Helper()

	codec, err := token.NewCodec(
		token.ClassConfig{Secret: testAccessSecret, Lifetime: 2 * time.Hour},
		token.ClassConfig{Secret: testRefreshSecret, Lifetime: 14 * 24 * time.Hour},
	)
	require.NoError(t, err)

	users := &memUsers{byEmail: map[string]*models.User{}}
	denylist := &memDenylist{tokens: map[string]bool{}}
	identities := &memIdentities{members: map[string]bool{}}
	hasher := password.NewHasher(16)

	sessions := service.NewSessionService(
		users, denylist, identities, codec,
		token.RefreshPolicy{Lifetime: 14 * 24 * time.Hour, Threshold: 0.75},
		hasher, nil, nil, nil,
	)

	return &authStack{
		codec:      codec,
		sessions:   sessions,
		users:      users,
		denylist:   denylist,
		identities: identities,
		hasher:     hasher,
	}
}

// seedUser registers an account directly in the fakes and returns its id.
func (s *authStack) seedUser(t *testing.T, email, plaintext string) string {
	t.Helper()
	hash, err := s.hasher.Hash(plaintext)
	require.NoError(t, err)
	user := &models.User{ID: "subject-1", Email: email, PasswordHash: hash}
	s.users.byEmail[email] = user
	s.identities.members[user.ID] = true
	return user.ID
}

func newProtectedRouter(stack *authStack) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Session(stack.sessions), func(c *gin.Context) {
		id, _ := SubjectID(c)
		c.String(http.StatusOK, id)
	})
	return r
}

func signToken(t *testing.T, secret, subjectID string, issuedAt, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"id":  subjectID,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func get(r http.Handler, accessToken, refreshCookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if refreshCookie != "" {
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: refreshCookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMissingAuthorizationHeader(t *testing.T) {
	stack := newAuthStack(t)
	r := newProtectedRouter(stack)

	w := get(r, "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing Authorization header")
}

func TestSessionValidAccessToken(t *testing.T) {
	stack := newAuthStack(t)
	subjectID := stack.seedUser(t, "a@b.com", "Str0ng!Pass")
	r := newProtectedRouter(stack)

	issued, err := stack.codec.Issue(subjectID, token.ClassAccess)
	require.NoError(t, err)

	w := get(r, issued.Token, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, subjectID, w.Body.String())
	// Nothing rotated, nothing rewritten.
	assert.Empty(t, w.Header().Get("Authorization"))
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestSessionFallsBackToRefreshToken(t *testing.T) {
	stack := newAuthStack(t)
	subjectID := stack.seedUser(t, "a@b.com", "Str0ng!Pass")
	r := newProtectedRouter(stack)

	access, err := stack.codec.Issue(subjectID, token.ClassAccess)
	require.NoError(t, err)
	refresh, err := stack.codec.Issue(subjectID, token.ClassRefresh)
	require.NoError(t, err)

	stack.denylist.Denylist(context.Background(), access.Token)

	w := get(r, access.Token, refresh.Token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, subjectID, w.Body.String())

	// A replacement access token rides back on the response.
	header := w.Header().Get("Authorization")
	require.True(t, len(header) > len("Bearer "))
	claims, err := stack.codec.Decode(header[len("Bearer "):], token.ClassAccess)
	require.NoError(t, err)
	assert.Equal(t, subjectID, claims.SubjectID)

	// The refresh token is young, so it is kept as-is.
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestSessionRotatesAgedRefreshToken(t *testing.T) {
	stack := newAuthStack(t)
	subjectID := stack.seedUser(t, "a@b.com", "Str0ng!Pass")
	r := newProtectedRouter(stack)

	now := time.Now()
	expiredAccess := signToken(t, testAccessSecret, subjectID, now.Add(-3*time.Hour), now.Add(-time.Hour))
	agedRefresh := signToken(t, testRefreshSecret, subjectID, now.Add(-11*24*time.Hour), now.Add(3*24*time.Hour))

	w := get(r, expiredAccess, agedRefresh)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, subjectID, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Authorization"))

	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, RefreshCookieName+"=")
	assert.NotContains(t, cookie, agedRefresh)

	// The rotated-out refresh token can no longer be replayed.
	assert.True(t, stack.denylist.IsDenylisted(context.Background(), agedRefresh))
	// The expired access token was revoked on sight too.
	assert.True(t, stack.denylist.IsDenylisted(context.Background(), expiredAccess))
}

func TestSessionClearsCookieOnGarbageRefreshToken(t *testing.T) {
	stack := newAuthStack(t)
	r := newProtectedRouter(stack)

	w := get(r, "garbage-access", "garbage-refresh")

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, RefreshCookieName+"=")
	assert.Contains(t, cookie, "Max-Age=0")
}

func TestSessionRejectsWithoutRefreshFallback(t *testing.T) {
	stack := newAuthStack(t)
	r := newProtectedRouter(stack)

	w := get(r, "garbage-access", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

// The full client journey: log in, then use the returned credentials on a
// protected route.
func TestLoginThenProtectedRequest(t *testing.T) {
	stack := newAuthStack(t)
	subjectID := stack.seedUser(t, "a@b.com", "Str0ng!Pass")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/session/login", func(c *gin.Context) {
		var req models.LoginRequest
		require.NoError(t, c.ShouldBindJSON(&req))
		res, err := stack.sessions.Login(c.Request.Context(), req)
		require.NoError(t, err)
		c.Header("Authorization", "Bearer "+res.Access.Token)
		SetRefreshCookie(c, res.Refresh)
		c.Status(http.StatusOK)
	})
	r.GET("/protected", Session(stack.sessions), func(c *gin.Context) {
		id, _ := SubjectID(c)
		c.String(http.StatusOK, id)
	})

	body, _ := json.Marshal(models.LoginRequest{Email: "a@b.com", Password: "Str0ng!Pass"})
	loginReq := httptest.NewRequest(http.MethodPost, "/session/login", bytes.NewReader(body))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRes := httptest.NewRecorder()
	r.ServeHTTP(loginRes, loginReq)
	require.Equal(t, http.StatusOK, loginRes.Code)

	authHeader := loginRes.Header().Get("Authorization")
	require.True(t, len(authHeader) > len("Bearer "))
	cookies := loginRes.Result().Cookies()
	require.Len(t, cookies, 1)

	protectedReq := httptest.NewRequest(http.MethodGet, "/protected", nil)
	protectedReq.Header.Set("Authorization", authHeader)
	protectedReq.AddCookie(cookies[0])
	protectedRes := httptest.NewRecorder()
	r.ServeHTTP(protectedRes, protectedReq)

	require.Equal(t, http.StatusOK, protectedRes.Code)
	assert.Equal(t, subjectID, protectedRes.Body.String())
}
