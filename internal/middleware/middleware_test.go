package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/constants"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	tokens map[string]access.Principal
	users  map[uint64]access.Principal
}

func (f *fakeResolver) ResolveToken(_ context.Context, token string) (access.Principal, error) {
	p, ok := f.tokens[token]
	if !ok {
		return access.Principal{}, apierrors.New(apierrors.KindUnauthenticated, "invalid or expired token")
	}
	return p, nil
}

func (f *fakeResolver) ResolvePrincipal(_ context.Context, userID uint64) (access.Principal, error) {
	p, ok := f.users[userID]
	if !ok {
		return access.Principal{}, apierrors.New(apierrors.KindUnauthenticated, "authentication required")
	}
	return p, nil
}

func newAuthRouter(resolver PrincipalResolver) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.GET("/login/:id", func(c *gin.Context) {
		session := sessions.Default(c)
		switch c.Param("id") {
		case "7":
			session.Set(constants.ContextKeyUserID, uint64(7))
		default:
			session.Set(constants.ContextKeyUserID, uint64(99))
		}
		if err := session.Save(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	protected := r.Group("", RequireAuth(resolver))
	protected.GET("/me", func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role": p.Role})
	})
	protected.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	team := uint64(3)
	resolver := &fakeResolver{
		tokens: map[string]access.Principal{
			"good":  {UserID: 1, Role: models.RoleAdmin},
			"plain": {UserID: 2, Role: models.RoleUser, TeamID: &team},
		},
		users: map[uint64]access.Principal{
			7: {UserID: 7, Role: models.RoleManager, TeamID: &team},
		},
	}
	r := newAuthRouter(resolver)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no credentials", want: http.StatusUnauthorized},
		{name: "valid bearer", header: "Bearer good", want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", want: http.StatusOK},
		{name: "unknown token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireAuth_Session(t *testing.T) {
	team := uint64(3)
	resolver := &fakeResolver{
		users: map[uint64]access.Principal{7: {UserID: 7, Role: models.RoleManager, TeamID: &team}},
	}
	r := newAuthRouter(resolver)

	login := func(id string) []*http.Cookie {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		return w.Result().Cookies()
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, ck := range login("7") {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"manager"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, ck := range login("99") {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	resolver := &fakeResolver{
		tokens: map[string]access.Principal{
			"admin": {UserID: 1, Role: models.RoleAdmin},
			"user":  {UserID: 2, Role: models.RoleUser},
		},
	}
	r := newAuthRouter(resolver)

	for token, want := range map[string]int{"admin": http.StatusOK, "user": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, token)
	}

	// Without RequireAuth there is no principal to check.
	bare := gin.New()
	bare.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	bare.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserID(t *testing.T) {
	tests := []struct {
		value interface{}
		want  uint64
		ok    bool
	}{
		{value: uint64(5), want: 5, ok: true},
		{value: uint(6), want: 6, ok: true},
		{value: 7, want: 7, ok: true},
		{value: int64(8), want: 8, ok: true},
		{value: -1},
		{value: uint64(0)},
		{value: "9"},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(constants.ContextKeyUserID, tt.value)
		got, ok := GetUserID(c)
		assert.Equal(t, tt.ok, ok, "%v", tt.value)
		assert.Equal(t, tt.want, got, "%v", tt.value)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core).Sugar()

	r := gin.New()
	r.Use(RequestID(), RequestLogger(log), Recovery(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { apierrors.Respond(c, errors.New("db down")) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(constants.HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(constants.HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(constants.HeaderRequestID))
	assert.NotContains(t, w.Body.String(), "db down")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.FilterMessage("http").All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "db down", entries[1].ContextMap()["error"])
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
