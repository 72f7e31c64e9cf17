package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/teamwork-api/internal/access"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/middleware"
	"github.com/yukikurage/teamwork-api/internal/models"
)

// currentPrincipal returns the authenticated principal or answers 401.
func currentPrincipal(c *gin.Context) (access.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return p, ok
}

// pathID parses a positive id path parameter or answers 400.
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

func queryUint(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return nil, false
	}
	return &v, true
}

// queryTime parses an RFC 3339 query parameter.
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s, expected RFC 3339", name))
		return nil, false
	}
	t = t.UTC()
	return &t, true
}

func queryBool(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return false, false
	}
	return v, true
}

// canSeeTeamCode reports whether p may read the join code of teamID.
func canSeeTeamCode(p access.Principal, teamID uint64) bool {
	return access.CanAccessTeam(p, teamID, access.Managers...) == access.Allow
}

func queryRole(c *gin.Context, name string) (*models.Role, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	role, err := models.ParseRole(raw)
	if err != nil {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return nil, false
	}
	return &role, true
}
