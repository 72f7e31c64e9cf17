package repository

import (
	"context"
	"time"

	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByIDForUpdate finds a user by ID and locks the row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// EmailTaken reports whether another user already uses email
	EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error)

	// Update saves every column of the user
	Update(ctx context.Context, user *models.User) error

	// Delete removes the user together with their participations and evaluations
	Delete(ctx context.Context, id uint64) error

	// List retrieves users with filtering and pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// ListByTeam lists the current members of a team
	ListByTeam(ctx context.Context, teamID uint64) ([]models.User, error)

	// FilterTeamMembers returns the subset of userIDs that belong to teamID
	FilterTeamMembers(ctx context.Context, teamID uint64, userIDs []uint64) ([]uint64, error)
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Role       *models.Role
	TeamID     *uint64
	Pagination utils.PaginationParams
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// Create creates a new team
	Create(ctx context.Context, team *models.Team) error

	// FindByID finds a team by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Team, error)

	// FindByIDForUpdate finds a team by ID and locks the row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uint64) (*models.Team, error)

	// FindByCode finds a team by its join code
	FindByCode(ctx context.Context, code string) (*models.Team, error)

	// NameTaken reports whether another team already uses name
	NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error)

	// Update saves the team columns, leaving members untouched
	Update(ctx context.Context, team *models.Team) error

	// List retrieves teams with pagination
	List(ctx context.Context, pagination utils.PaginationParams) ([]models.Team, int64, error)

	// Delete deletes a team and all team-owned data, detaching its members
	Delete(ctx context.Context, id uint64) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// FindByIDForUpdate finds a task by ID and locks the row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update saves the task columns
	Update(ctx context.Context, task *models.Task) error

	// Delete deletes a task and its evaluations
	Delete(ctx context.Context, id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	TeamID       *uint64
	Statuses     []models.TaskStatus
	PerformerID  *uint64
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
	Pagination   utils.PaginationParams
}

// MeetingRepository defines the interface for meeting data access
type MeetingRepository interface {
	// Create creates a meeting and its participant rows
	Create(ctx context.Context, meeting *models.Meeting, participantIDs []uint64) error

	// FindByID finds a meeting by ID with its participants
	FindByID(ctx context.Context, id uint64) (*models.Meeting, error)

	// List retrieves meetings with filtering and pagination
	List(ctx context.Context, filter MeetingFilter) ([]models.Meeting, int64, error)

	// Update saves the meeting columns
	Update(ctx context.Context, meeting *models.Meeting) error

	// ReplaceParticipants sets the participant list to exactly userIDs
	ReplaceParticipants(ctx context.Context, meetingID uint64, userIDs []uint64) error

	// Delete deletes a meeting and its participant rows
	Delete(ctx context.Context, id uint64) error
}

// MeetingFilter holds filtering options for listing meetings
type MeetingFilter struct {
	TeamID        *uint64
	ParticipantID *uint64
	From          *time.Time
	To            *time.Time
	Pagination    utils.PaginationParams
}

// EvaluationRepository defines the interface for evaluation data access
type EvaluationRepository interface {
	// Create creates a new evaluation
	Create(ctx context.Context, evaluation *models.Evaluation) error

	// FindByID finds an evaluation by ID
	FindByID(ctx context.Context, id uint64) (*models.Evaluation, error)

	// List retrieves evaluations with pagination
	List(ctx context.Context, pagination utils.PaginationParams) ([]models.Evaluation, int64, error)

	// ListByTask lists the evaluations of a task
	ListByTask(ctx context.Context, taskID uint64) ([]models.Evaluation, error)

	// Update saves the evaluation columns
	Update(ctx context.Context, evaluation *models.Evaluation) error

	// Delete deletes an evaluation
	Delete(ctx context.Context, id uint64) error

	// AverageByUser returns the mean grade of a user, or nil with no evaluations
	AverageByUser(ctx context.Context, userID uint64) (*float64, error)

	// AverageByTeam returns the mean grade over the team's current members, or nil with no evaluations
	AverageByTeam(ctx context.Context, teamID uint64) (*float64, error)
}
