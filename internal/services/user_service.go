package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// UserService manages accounts after signup.
type UserService struct {
	store    *repository.Store
	adminKey string
	now      func() time.Time
	generate func() (string, error)
}

func NewUserService(store *repository.Store, adminKey string) *UserService {
	return &UserService{
		store:    store,
		adminKey: adminKey,
		now:      time.Now,
		generate: utils.GenerateTeamCode,
	}
}

// UpdateProfileInput is the set of fields a user may change on their own account.
type UpdateProfileInput struct {
	FirstName patch.Field[string]
	LastName  patch.Field[string]
	Email     patch.Field[string]
}

// AdminUpdateInput adds the fields only an admin may change.
type AdminUpdateInput struct {
	UpdateProfileInput
	Role     patch.Field[models.Role]
	IsActive patch.Field[bool]
}

// Dashboard is the landing view of a signed-in user.
type Dashboard struct {
	User     *models.User     `json:"user"`
	Team     *models.Team     `json:"team"`
	Tasks    []models.Task    `json:"tasks"`
	Meetings []models.Meeting `json:"meetings"`
}

func (s *UserService) GetProfile(ctx context.Context, p access.Principal) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, lookup(err, ErrUserNotFound, "user")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, p access.Principal, input UpdateProfileInput) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, lookup(err, ErrUserNotFound, "user")
	}

	if err := s.applyProfile(ctx, user, input); err != nil {
		return nil, err
	}
	if err := s.saveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, p access.Principal, current, next string) error {
	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return lookup(err, ErrUserNotFound, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return validation("current password is incorrect")
	}
	if err := utils.CheckPasswordStrength(next); err != nil {
		return validation("%s", err.Error())
	}

	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	return s.saveUser(ctx, user)
}

// DeleteAccount removes the caller's own account.
func (s *UserService) DeleteAccount(ctx context.Context, p access.Principal) error {
	return s.Delete(ctx, p, p.UserID)
}

// Delete removes a user. Only the user themself or an admin may do it.
// Deleting a team member shrinks the team, so its code is rotated in the
// same transaction.
func (s *UserService) Delete(ctx context.Context, p access.Principal, id uint64) error {
	if _, err := s.store.Users.FindByID(ctx, id); err != nil {
		return lookup(err, ErrUserNotFound, "user")
	}
	if err := access.Authorize(access.CanAccessSelf(p, id), ""); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.FindByIDForUpdate(ctx, id)
		if err != nil {
			return lookup(err, ErrUserNotFound, "user")
		}

		if user.TeamID != nil {
			team, err := tx.Teams.FindByIDForUpdate(ctx, *user.TeamID)
			if err != nil {
				return lookup(err, ErrTeamNotFound, "team")
			}
			if err := rotateTeamCode(ctx, tx, team, s.generate); err != nil {
				return err
			}
		}

		if err := tx.Users.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

// UpgradeToAdmin grants the admin role to a caller holding the configured key.
func (s *UserService) UpgradeToAdmin(ctx context.Context, p access.Principal, key string) (*models.User, error) {
	if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminKey)) != 1 {
		return nil, ErrInvalidAdminKey
	}

	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, lookup(err, ErrUserNotFound, "user")
	}

	user.Role = models.RoleAdmin
	if err := s.saveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Dashboard lists the caller's team, active tasks they perform and upcoming
// meetings they take part in.
func (s *UserService) Dashboard(ctx context.Context, p access.Principal) (*Dashboard, error) {
	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, lookup(err, ErrUserNotFound, "user")
	}

	dashboard := &Dashboard{User: user, Tasks: []models.Task{}, Meetings: []models.Meeting{}}

	if user.TeamID != nil {
		team, err := s.store.Teams.FindByID(ctx, *user.TeamID)
		if err != nil {
			return nil, lookup(err, ErrTeamNotFound, "team")
		}
		dashboard.Team = team
	}

	tasks, _, err := s.store.Tasks.List(ctx, repository.TaskFilter{
		PerformerID: &user.ID,
		Statuses:    []models.TaskStatus{models.TaskStatusOpen, models.TaskStatusInProgress},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	dashboard.Tasks = tasks

	now := s.now().UTC()
	meetings, _, err := s.store.Meetings.List(ctx, repository.MeetingFilter{
		ParticipantID: &user.ID,
		From:          &now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	dashboard.Meetings = meetings

	return dashboard, nil
}

// Get returns a user to themself or to an admin.
func (s *UserService) Get(ctx context.Context, p access.Principal, id uint64) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, ErrUserNotFound, "user")
	}
	if err := access.Authorize(access.CanAccessSelf(p, id), ""); err != nil {
		return nil, err
	}
	return user, nil
}

// List is admin only.
func (s *UserService) List(ctx context.Context, p access.Principal, filter repository.UserFilter) ([]models.User, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, ErrAdminOnly
	}

	users, total, err := s.store.Users.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// AdminUpdate lets an admin edit any account. Admins cannot change their own
// role or deactivate themselves.
func (s *UserService) AdminUpdate(ctx context.Context, p access.Principal, id uint64, input AdminUpdateInput) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, ErrUserNotFound, "user")
	}
	if !p.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if id == p.UserID && (input.Role.Set || input.IsActive.Set) {
		return nil, ErrSelfOperation
	}

	if err := s.applyProfile(ctx, user, input.UpdateProfileInput); err != nil {
		return nil, err
	}
	if input.Role.Set && !input.Role.Value.Valid() {
		return nil, validation("invalid role")
	}
	patch.Apply(&user.Role, input.Role)
	patch.Apply(&user.IsActive, input.IsActive)

	// A manager without a team has nothing to manage.
	if user.Role == models.RoleManager && !user.HasTeam() {
		return nil, validation("a manager must belong to a team")
	}

	if err := s.saveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) applyProfile(ctx context.Context, user *models.User, input UpdateProfileInput) error {
	if patch.Apply(&user.FirstName, input.FirstName) {
		user.FirstName = strings.TrimSpace(user.FirstName)
		if user.FirstName == "" {
			return validation("first name cannot be empty")
		}
	}
	if patch.Apply(&user.LastName, input.LastName) {
		user.LastName = strings.TrimSpace(user.LastName)
		if user.LastName == "" {
			return validation("last name cannot be empty")
		}
	}
	if patch.Apply(&user.Email, input.Email) {
		user.Email = normalizeEmail(user.Email)
		if user.Email == "" {
			return validation("email cannot be empty")
		}
		taken, err := s.store.Users.EmailTaken(ctx, user.Email, user.ID)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return ErrEmailTaken
		}
	}
	return nil
}

func (s *UserService) saveUser(ctx context.Context, user *models.User) error {
	if err := s.store.Users.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
