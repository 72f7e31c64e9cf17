package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/constants"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

var errTeamCodeExhausted = errors.New("failed to generate a unique team code")

// TeamService owns team membership. Every membership change runs in one
// transaction with the affected rows locked.
type TeamService struct {
	store    *repository.Store
	generate func() (string, error)
}

func NewTeamService(store *repository.Store) *TeamService {
	return &TeamService{
		store:    store,
		generate: utils.GenerateTeamCode,
	}
}

// UpdateTeamInput holds the editable team fields.
type UpdateTeamInput struct {
	Name patch.Field[string]
}

// CreateTeam creates a team around its founder. A founder with the base
// role becomes the team's manager.
func (s *TeamService) CreateTeam(ctx context.Context, p access.Principal, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation("team name cannot be empty")
	}

	team := &models.Team{Name: name}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		founder, err := tx.Users.FindByIDForUpdate(ctx, p.UserID)
		if err != nil {
			return lookup(err, ErrUserNotFound, "user")
		}
		if founder.HasTeam() {
			return ErrAlreadyInTeam
		}

		taken, err := tx.Teams.NameTaken(ctx, name, 0)
		if err != nil {
			return fmt.Errorf("failed to check team name: %w", err)
		}
		if taken {
			return ErrTeamNameTaken
		}

		if err := s.createWithUniqueCode(ctx, tx, team); err != nil {
			return err
		}

		founder.TeamID = &team.ID
		if founder.Role == models.RoleUser {
			founder.Role = models.RoleManager
		}
		if err := tx.Users.Update(ctx, founder); err != nil {
			return fmt.Errorf("failed to assign founder: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return team, nil
}

// JoinByCode puts the caller in the team holding code.
func (s *TeamService) JoinByCode(ctx context.Context, p access.Principal, code string) (*models.Team, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, validation("team code is required")
	}

	var team *models.Team
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.FindByIDForUpdate(ctx, p.UserID)
		if err != nil {
			return lookup(err, ErrUserNotFound, "user")
		}
		if user.HasTeam() {
			return ErrAlreadyInTeam
		}

		team, err = tx.Teams.FindByCode(ctx, code)
		if err != nil {
			return lookup(err, ErrInvalidTeamCode, "team")
		}

		user.TeamID = &team.ID
		if err := tx.Users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to join team: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return team, nil
}

// Leave removes the caller from their team, demotes a manager and rotates
// the team code.
func (s *TeamService) Leave(ctx context.Context, p access.Principal) (*models.User, error) {
	var user *models.User
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		user, err = tx.Users.FindByIDForUpdate(ctx, p.UserID)
		if err != nil {
			return lookup(err, ErrUserNotFound, "user")
		}
		if !user.HasTeam() {
			return ErrNotInTeam
		}

		team, err := tx.Teams.FindByIDForUpdate(ctx, *user.TeamID)
		if err != nil {
			return lookup(err, ErrTeamNotFound, "team")
		}

		return s.detach(ctx, tx, team, user)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetTeam returns a team with its members to members and admins.
func (s *TeamService) GetTeam(ctx context.Context, p access.Principal, id uint64) (*models.Team, error) {
	team, err := s.store.Teams.FindByID(ctx, id, "Members")
	if err != nil {
		return nil, lookup(err, ErrTeamNotFound, "team")
	}
	if err := access.Authorize(access.CanAccessTeam(p, id), "not a member of this team"); err != nil {
		return nil, err
	}
	return team, nil
}

// ListTeams is admin only.
func (s *TeamService) ListTeams(ctx context.Context, p access.Principal, pagination utils.PaginationParams) ([]models.Team, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, ErrAdminOnly
	}

	teams, total, err := s.store.Teams.List(ctx, pagination)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, total, nil
}

func (s *TeamService) UpdateTeam(ctx context.Context, p access.Principal, id uint64, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.store.Teams.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, ErrTeamNotFound, "team")
	}
	if err := authorizeTeamManager(p, id); err != nil {
		return nil, err
	}

	if patch.Apply(&team.Name, input.Name) {
		team.Name = strings.TrimSpace(team.Name)
		if team.Name == "" {
			return nil, validation("team name cannot be empty")
		}
		taken, err := s.store.Teams.NameTaken(ctx, team.Name, team.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check team name: %w", err)
		}
		if taken {
			return nil, ErrTeamNameTaken
		}
	}

	if err := s.store.Teams.Update(ctx, team); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTeamNameTaken
		}
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return team, nil
}

// DeleteTeam removes the team and its tasks, meetings and evaluations.
// Members stay as users without a team.
func (s *TeamService) DeleteTeam(ctx context.Context, p access.Principal, id uint64) error {
	if _, err := s.store.Teams.FindByID(ctx, id); err != nil {
		return lookup(err, ErrTeamNotFound, "team")
	}
	if err := authorizeTeamManager(p, id); err != nil {
		return err
	}

	if err := s.store.Teams.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return nil
}

// RegenerateCode issues a fresh join code, invalidating the old one.
func (s *TeamService) RegenerateCode(ctx context.Context, p access.Principal, id uint64) (*models.Team, error) {
	var team *models.Team
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		team, err = tx.Teams.FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookup(err, ErrTeamNotFound, "team")
		}
		if err := authorizeTeamManager(p, id); err != nil {
			return err
		}
		return s.rotateCode(ctx, tx, team)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// RemoveMember takes targetID out of the team, demoting a manager and
// rotating the team code.
func (s *TeamService) RemoveMember(ctx context.Context, p access.Principal, teamID, targetID uint64) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		team, target, err := s.lockMember(ctx, tx, p, teamID, targetID)
		if err != nil {
			return err
		}
		return s.detach(ctx, tx, team, target)
	})
}

// Promote makes a team member a manager.
func (s *TeamService) Promote(ctx context.Context, p access.Principal, teamID, targetID uint64) (*models.User, error) {
	return s.setMemberRole(ctx, p, teamID, targetID, models.RoleUser, models.RoleManager)
}

// Demote turns a team manager back into a regular member.
func (s *TeamService) Demote(ctx context.Context, p access.Principal, teamID, targetID uint64) (*models.User, error) {
	return s.setMemberRole(ctx, p, teamID, targetID, models.RoleManager, models.RoleUser)
}

func (s *TeamService) setMemberRole(ctx context.Context, p access.Principal, teamID, targetID uint64, from, to models.Role) (*models.User, error) {
	var target *models.User
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		_, target, err = s.lockMember(ctx, tx, p, teamID, targetID)
		if err != nil {
			return err
		}
		if target.Role != from {
			return ErrRoleUnchanged
		}

		target.Role = to
		if err := tx.Users.Update(ctx, target); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// lockMember loads and locks the team and the target, checking that the
// caller manages the team, is not the target and does not rank below it.
func (s *TeamService) lockMember(ctx context.Context, tx *repository.Store, p access.Principal, teamID, targetID uint64) (*models.Team, *models.User, error) {
	team, err := tx.Teams.FindByIDForUpdate(ctx, teamID)
	if err != nil {
		return nil, nil, lookup(err, ErrTeamNotFound, "team")
	}
	if err := authorizeTeamManager(p, teamID); err != nil {
		return nil, nil, err
	}
	if targetID == p.UserID {
		return nil, nil, ErrSelfOperation
	}

	target, err := tx.Users.FindByIDForUpdate(ctx, targetID)
	if err != nil {
		return nil, nil, lookup(err, ErrUserNotFound, "user")
	}
	if !target.InTeam(teamID) {
		return nil, nil, ErrNotTeamMember
	}
	if target.Role > p.Role {
		return nil, nil, ErrOutranked
	}

	return team, target, nil
}

// detach clears the user's team, drops a manager to user and rotates the
// team code so the departed member's code stops working.
func (s *TeamService) detach(ctx context.Context, tx *repository.Store, team *models.Team, user *models.User) error {
	user.TeamID = nil
	if user.Role == models.RoleManager {
		user.Role = models.RoleUser
	}
	if err := tx.Users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to detach member: %w", err)
	}

	return s.rotateCode(ctx, tx, team)
}

func (s *TeamService) createWithUniqueCode(ctx context.Context, tx *repository.Store, team *models.Team) error {
	for attempt := 0; attempt < constants.TeamCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return err
		}
		team.ID = 0
		team.Code = code

		err = tx.Transaction(ctx, func(sp *repository.Store) error {
			return sp.Teams.Create(ctx, team)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create team: %w", err)
		}

		taken, checkErr := tx.Teams.NameTaken(ctx, team.Name, 0)
		if checkErr != nil {
			return fmt.Errorf("failed to check team name: %w", checkErr)
		}
		if taken {
			return ErrTeamNameTaken
		}
	}
	return errTeamCodeExhausted
}

func (s *TeamService) rotateCode(ctx context.Context, tx *repository.Store, team *models.Team) error {
	return rotateTeamCode(ctx, tx, team, s.generate)
}

// rotateTeamCode gives team a fresh code different from the current one. It
// must run inside a transaction holding the team row lock; every path that
// shrinks a team goes through it.
func rotateTeamCode(ctx context.Context, tx *repository.Store, team *models.Team, generate func() (string, error)) error {
	previous := team.Code
	for attempt := 0; attempt < constants.TeamCodeAttempts; attempt++ {
		code, err := generate()
		if err != nil {
			return err
		}
		if code == previous {
			continue
		}
		team.Code = code

		err = tx.Transaction(ctx, func(sp *repository.Store) error {
			return sp.Teams.Update(ctx, team)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to rotate team code: %w", err)
		}
	}
	team.Code = previous
	return errTeamCodeExhausted
}

func authorizeTeamManager(p access.Principal, teamID uint64) error {
	return access.Authorize(access.CanAccessTeam(p, teamID, access.Managers...), "team manager access required")
}
