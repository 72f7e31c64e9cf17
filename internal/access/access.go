// Package access decides whether an authenticated principal may act on a
// resource. It never loads data; callers pass in the fields it needs.
package access

import (
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
)

// Principal is the resolved caller of a request.
type Principal struct {
	UserID uint64
	Role   models.Role
	TeamID *uint64
}

func PrincipalOf(u *models.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role, TeamID: u.TeamID}
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p Principal) HasTeam() bool {
	return p.TeamID != nil
}

func (p Principal) InTeam(teamID uint64) bool {
	return p.TeamID != nil && *p.TeamID == teamID
}

type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// Managers is the role set for team-management operations.
var Managers = models.RolesAtLeast(models.RoleManager)

// CanAccess allows admins unconditionally. Everyone else needs one of the
// allowed roles (any role when none are given) and, unless resourceTeamID is
// nil, membership in the resource's team.
func CanAccess(p Principal, resourceTeamID *uint64, allowed ...models.Role) Decision {
	if p.IsAdmin() {
		return Allow
	}
	if !p.Role.Valid() || !roleAllowed(p.Role, allowed) {
		return Deny
	}
	if resourceTeamID == nil {
		return Allow
	}
	return Decision(p.InTeam(*resourceTeamID))
}

// CanAccessTeam is CanAccess for a resource that always belongs to a team.
func CanAccessTeam(p Principal, teamID uint64, allowed ...models.Role) Decision {
	return CanAccess(p, &teamID, allowed...)
}

// CanAccessSelf allows the owner of a resource and admins.
func CanAccessSelf(p Principal, ownerID uint64) Decision {
	return Decision(p.IsAdmin() || p.UserID == ownerID)
}

// Authorize turns a Deny into a Forbidden error.
func Authorize(d Decision, message string) error {
	if d == Allow {
		return nil
	}
	if message == "" {
		message = "Access denied"
	}
	return apierrors.New(apierrors.KindForbidden, message)
}

func roleAllowed(role models.Role, allowed []models.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
