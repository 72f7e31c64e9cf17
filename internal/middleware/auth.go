package middleware

import (
	"context"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/constants"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
)

var (
	errAuthRequired     = apierrors.New(apierrors.KindUnauthenticated, "Authentication required")
	errMalformedBearer  = apierrors.New(apierrors.KindUnauthenticated, "invalid authorization header format")
	errPrincipalMissing = apierrors.New(apierrors.KindUnauthenticated, "Not authenticated")
)

// PrincipalResolver turns request credentials into the current principal.
type PrincipalResolver interface {
	ResolveToken(ctx context.Context, accessToken string) (access.Principal, error)
	ResolvePrincipal(ctx context.Context, userID uint64) (access.Principal, error)
}

// RequireAuth authenticates the request with a bearer token or, failing
// that, the session cookie. The principal is reloaded on every request so
// role and team changes apply immediately.
func RequireAuth(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := authenticate(c, resolver)
		if err != nil {
			apierrors.Respond(c, err)
			return
		}

		c.Set(constants.ContextKeyUserID, p.UserID)
		c.Set(constants.ContextKeyPrincipal, p)
		c.Next()
	}
}

func authenticate(c *gin.Context, resolver PrincipalResolver) (access.Principal, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			return access.Principal{}, errMalformedBearer
		}
		return resolver.ResolveToken(c.Request.Context(), token)
	}

	session := sessions.Default(c)
	userID, ok := toUserID(session.Get(constants.ContextKeyUserID))
	if !ok {
		return access.Principal{}, errAuthRequired
	}
	return resolver.ResolvePrincipal(c.Request.Context(), userID)
}

// RequireRole rejects principals below min. It must run after RequireAuth.
func RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			apierrors.Respond(c, errPrincipalMissing)
			return
		}
		if !p.Role.AtLeast(min) {
			apierrors.Respond(c, access.Authorize(access.Deny, min.String()+" access required"))
			return
		}
		c.Next()
	}
}

// GetPrincipal retrieves the principal stored by RequireAuth.
func GetPrincipal(c *gin.Context) (access.Principal, bool) {
	v, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return access.Principal{}, false
	}
	p, ok := v.(access.Principal)
	return p, ok
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUserID(userID)
}

func toUserID(v interface{}) (uint64, bool) {
	switch id := v.(type) {
	case uint64:
		return id, id != 0
	case uint:
		return uint64(id), id != 0
	case int:
		if id <= 0 {
			return 0, false
		}
		return uint64(id), true
	case int64:
		if id <= 0 {
			return 0, false
		}
		return uint64(id), true
	default:
		return 0, false
	}
}
