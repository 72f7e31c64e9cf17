package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
)

var (
	ErrUnauthenticated    = apierrors.New(apierrors.KindUnauthenticated, "authentication required")
	ErrInvalidCredentials = apierrors.New(apierrors.KindUnauthenticated, "invalid email or password")
	ErrAccountInactive    = apierrors.New(apierrors.KindUnauthenticated, "account is inactive")
	ErrInvalidToken       = apierrors.New(apierrors.KindUnauthenticated, "invalid or expired token")

	ErrUserNotFound       = apierrors.NotFoundf("user not found")
	ErrTeamNotFound       = apierrors.NotFoundf("team not found")
	ErrTaskNotFound       = apierrors.NotFoundf("task not found")
	ErrMeetingNotFound    = apierrors.NotFoundf("meeting not found")
	ErrEvaluationNotFound = apierrors.NotFoundf("evaluation not found")
	ErrInvalidTeamCode    = apierrors.NotFoundf("no team uses this code")
	ErrNotTeamMember      = apierrors.NotFoundf("user is not a member of this team")

	ErrEmailTaken    = apierrors.Conflictf("email already registered")
	ErrTeamNameTaken = apierrors.Conflictf("team name already taken")
	ErrAlreadyInTeam = apierrors.Conflictf("user already belongs to a team")
	ErrNotInTeam     = apierrors.Conflictf("user does not belong to a team")
	ErrRoleUnchanged = apierrors.Conflictf("user already has this role")
	ErrNoPerformer   = apierrors.Conflictf("task has no performer to evaluate")

	ErrNotPerformer     = apierrors.Forbiddenf("only the task performer can change its status")
	ErrInvalidAdminKey  = apierrors.Forbiddenf("invalid admin key")
	ErrOutranked        = apierrors.Forbiddenf("cannot act on a user with a higher role")
	ErrCrossTeamGrading = apierrors.Forbiddenf("cannot evaluate tasks of another team")
	ErrAdminOnly        = apierrors.Forbiddenf("admin access required")

	ErrSelfOperation = apierrors.New(apierrors.KindSelfOperation, "cannot perform this operation on yourself")

	ErrAIServiceNotConfigured = apierrors.New(apierrors.KindUnavailable, "AI service is not configured")
)

// lookup maps a repository miss to notFound and wraps any other failure.
func lookup(err error, notFound error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

func validation(format string, args ...interface{}) error {
	return apierrors.Validationf(format, args...)
}
