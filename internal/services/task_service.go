package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/constants"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// TaskGenerator drafts tasks from free text.
type TaskGenerator interface {
	GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error)
}

// TaskService handles task business logic
type TaskService struct {
	store *repository.Store
	ai    TaskGenerator
	now   func() time.Time
}

// NewTaskService creates a new TaskService. ai may be nil.
func NewTaskService(store *repository.Store, ai TaskGenerator) *TaskService {
	return &TaskService{
		store: store,
		ai:    ai,
		now:   time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Deadline    *time.Time
	PerformerID *uint64
	TeamID      *uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title       patch.Field[string]
	Description patch.Field[string]
	Status      patch.Field[models.TaskStatus]
	Deadline    patch.Field[*time.Time]
	PerformerID patch.Field[*uint64]
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	TeamID       *uint64
	Status       *models.TaskStatus
	PerformerID  *uint64
	Mine         bool
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
	Pagination   utils.PaginationParams
}

// CreateTask creates an open task in the caller's team, or in TeamID for admins.
func (s *TaskService) CreateTask(ctx context.Context, p access.Principal, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validation("title is required")
	}
	if input.Deadline != nil && input.Deadline.Before(s.now()) {
		return nil, validation("deadline cannot be in the past")
	}

	teamID, err := resolveTeam(p, input.TeamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Teams.FindByID(ctx, teamID); err != nil {
		return nil, lookup(err, ErrTeamNotFound, "team")
	}
	if err := access.Authorize(access.CanAccessTeam(p, teamID), "not a member of this team"); err != nil {
		return nil, err
	}

	if err := s.checkPerformer(ctx, teamID, input.PerformerID); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Status:      models.TaskStatusOpen,
		Deadline:    input.Deadline,
		TeamID:      teamID,
		PerformerID: input.PerformerID,
	}

	if err := s.store.Tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.store.Tasks.FindByID(ctx, task.ID, "Performer")
}

// GetTask returns a task to members of its team and admins.
func (s *TaskService) GetTask(ctx context.Context, p access.Principal, taskID uint64) (*models.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, taskID, "Performer")
	if err != nil {
		return nil, lookup(err, ErrTaskNotFound, "task")
	}
	if err := access.Authorize(access.CanAccessTeam(p, task.TeamID), "not a member of this team"); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks lists the tasks of the caller's team. Admins may name any team
// or omit it to see every task.
func (s *TaskService) ListTasks(ctx context.Context, p access.Principal, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		PerformerID:  input.PerformerID,
		DeadlineFrom: input.DeadlineFrom,
		DeadlineTo:   input.DeadlineTo,
		Pagination:   input.Pagination,
	}

	switch {
	case input.TeamID != nil:
		if err := access.Authorize(access.CanAccessTeam(p, *input.TeamID), "not a member of this team"); err != nil {
			return nil, 0, err
		}
		filter.TeamID = input.TeamID
	case p.IsAdmin():
	case p.HasTeam():
		filter.TeamID = p.TeamID
	default:
		return []models.Task{}, 0, nil
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, 0, validation("invalid status %q", *input.Status)
		}
		filter.Statuses = []models.TaskStatus{*input.Status}
	}
	if input.Mine {
		filter.PerformerID = &p.UserID
	}

	tasks, total, err := s.store.Tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// UpdateTask edits a task. Status changes follow the same transition table
// as ChangeStatus.
func (s *TaskService) UpdateTask(ctx context.Context, p access.Principal, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByIDForUpdate(ctx, taskID)
		if err != nil {
			return lookup(err, ErrTaskNotFound, "task")
		}
		if err := authorizeTeamManager(p, task.TeamID); err != nil {
			return err
		}

		if patch.Apply(&task.Title, input.Title) {
			task.Title = strings.TrimSpace(task.Title)
			if task.Title == "" {
				return validation("title cannot be empty")
			}
		}
		patch.Apply(&task.Description, input.Description)

		if input.Status.Set {
			if err := checkTransition(task.Status, input.Status.Value); err != nil {
				return err
			}
			task.Status = input.Status.Value
		}

		if input.Deadline.Set {
			if d := input.Deadline.Value; d != nil && d.Before(s.now()) {
				return validation("deadline cannot be in the past")
			}
			task.Deadline = input.Deadline.Value
		}

		if input.PerformerID.Set {
			if err := s.checkPerformerTx(ctx, tx, task.TeamID, input.PerformerID.Value); err != nil {
				return err
			}
			task.PerformerID = input.PerformerID.Value
			task.Performer = nil
		}

		if err := tx.Tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.store.Tasks.FindByID(ctx, taskID, "Performer")
}

// DeleteTask removes a task and its evaluations.
func (s *TaskService) DeleteTask(ctx context.Context, p access.Principal, taskID uint64) error {
	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return lookup(err, ErrTaskNotFound, "task")
	}
	if err := authorizeTeamManager(p, task.TeamID); err != nil {
		return err
	}

	if err := s.store.Tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ChangeStatus moves a task one step along open -> in_progress -> done.
// Only the performer may do it; asking for the current status is a no-op.
func (s *TaskService) ChangeStatus(ctx context.Context, p access.Principal, taskID uint64, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, validation("invalid status %q", status)
	}

	var task *models.Task
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		task, err = tx.Tasks.FindByIDForUpdate(ctx, taskID)
		if err != nil {
			return lookup(err, ErrTaskNotFound, "task")
		}
		if !task.IsPerformer(p.UserID) {
			return ErrNotPerformer
		}
		if task.Status == status {
			return nil
		}
		if err := checkTransition(task.Status, status); err != nil {
			return err
		}

		task.Status = status
		if err := tx.Tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to change status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return task, nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text string
}

// GenerateTasks drafts tasks for the caller's team from free text. Drafts are
// not saved.
func (s *TaskService) GenerateTasks(ctx context.Context, p access.Principal, input GenerateTasksInput) ([]GeneratedTask, error) {
	if err := access.Authorize(access.CanAccess(p, nil, access.Managers...), "team manager access required"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, validation("text is required")
	}
	if s.ai == nil {
		return nil, ErrAIServiceNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, constants.AIRequestTimeout)
	defer cancel()

	aiTasks, err := s.ai.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	valid := make([]GeneratedTask, 0, len(aiTasks))
	now := s.now()
	for _, aiTask := range aiTasks {
		aiTask.Title = strings.TrimSpace(aiTask.Title)
		if aiTask.Title == "" {
			continue
		}
		if aiTask.Deadline != nil && aiTask.Deadline.Before(now) {
			aiTask.Deadline = nil
		}
		valid = append(valid, aiTask)
	}

	return valid, nil
}

func checkTransition(from, to models.TaskStatus) error {
	if !to.Valid() {
		return validation("invalid status %q", to)
	}
	if from == to {
		return nil
	}
	if !from.CanTransitionTo(to) {
		return &apierrors.TransitionError{From: string(from), To: string(to)}
	}
	return nil
}

func (s *TaskService) checkPerformer(ctx context.Context, teamID uint64, performerID *uint64) error {
	return s.checkPerformerTx(ctx, s.store, teamID, performerID)
}

// checkPerformerTx requires a performer, when given, to belong to the task's team.
func (s *TaskService) checkPerformerTx(ctx context.Context, store *repository.Store, teamID uint64, performerID *uint64) error {
	if performerID == nil {
		return nil
	}
	members, err := store.Users.FilterTeamMembers(ctx, teamID, []uint64{*performerID})
	if err != nil {
		return fmt.Errorf("failed to check performer: %w", err)
	}
	if len(members) == 0 {
		return validation("performer must be a member of the task's team")
	}
	return nil
}

// resolveTeam picks the team a new resource belongs to.
func resolveTeam(p access.Principal, requested *uint64) (uint64, error) {
	if requested != nil {
		return *requested, nil
	}
	if p.TeamID == nil {
		return 0, validation("team_id is required when you are not in a team")
	}
	return *p.TeamID, nil
}
