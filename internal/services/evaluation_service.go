package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/constants"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

type EvaluationService struct {
	store *repository.Store
}

func NewEvaluationService(store *repository.Store) *EvaluationService {
	return &EvaluationService{store: store}
}

type CreateEvaluationInput struct {
	TaskID  uint64
	Grade   int
	Comment string
}

type UpdateEvaluationInput struct {
	Grade   patch.Field[int]
	Comment patch.Field[string]
}

// CreateEvaluation grades the performer of a task. The rated user always
// comes from the task; managers may only grade their own team's work.
func (s *EvaluationService) CreateEvaluation(ctx context.Context, p access.Principal, input CreateEvaluationInput) (*models.Evaluation, error) {
	if err := checkGrade(input.Grade); err != nil {
		return nil, err
	}
	if !p.Role.AtLeast(models.RoleManager) {
		return nil, access.Authorize(access.Deny, "manager access required")
	}

	task, err := s.store.Tasks.FindByID(ctx, input.TaskID)
	if err != nil {
		return nil, lookup(err, ErrTaskNotFound, "task")
	}
	if err := s.authorizeGrader(p, task.TeamID); err != nil {
		return nil, err
	}
	if task.PerformerID == nil {
		return nil, ErrNoPerformer
	}

	performer, err := s.store.Users.FindByID(ctx, *task.PerformerID)
	if err != nil {
		return nil, lookup(err, ErrUserNotFound, "performer")
	}
	if !p.IsAdmin() && !performer.InTeam(task.TeamID) {
		return nil, ErrCrossTeamGrading
	}

	evaluation := &models.Evaluation{
		Grade:     input.Grade,
		Comment:   strings.TrimSpace(input.Comment),
		ManagerID: p.UserID,
		UserID:    performer.ID,
		TaskID:    task.ID,
	}

	if err := s.store.Evaluations.Create(ctx, evaluation); err != nil {
		return nil, fmt.Errorf("failed to create evaluation: %w", err)
	}
	return evaluation, nil
}

// GetEvaluation is visible to members of the task's team and admins.
func (s *EvaluationService) GetEvaluation(ctx context.Context, p access.Principal, id uint64) (*models.Evaluation, error) {
	evaluation, task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(access.CanAccessTeam(p, task.TeamID), "not a member of this team"); err != nil {
		return nil, err
	}
	return evaluation, nil
}

// ListEvaluations is admin only.
func (s *EvaluationService) ListEvaluations(ctx context.Context, p access.Principal, pagination utils.PaginationParams) ([]models.Evaluation, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, ErrAdminOnly
	}

	evaluations, total, err := s.store.Evaluations.List(ctx, pagination)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evaluations, total, nil
}

func (s *EvaluationService) ListByTask(ctx context.Context, p access.Principal, taskID uint64) ([]models.Evaluation, error) {
	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookup(err, ErrTaskNotFound, "task")
	}
	if err := access.Authorize(access.CanAccessTeam(p, task.TeamID), "not a member of this team"); err != nil {
		return nil, err
	}

	evaluations, err := s.store.Evaluations.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evaluations, nil
}

func (s *EvaluationService) UpdateEvaluation(ctx context.Context, p access.Principal, id uint64, input UpdateEvaluationInput) (*models.Evaluation, error) {
	evaluation, task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeGrader(p, task.TeamID); err != nil {
		return nil, err
	}

	if input.Grade.Set {
		if err := checkGrade(input.Grade.Value); err != nil {
			return nil, err
		}
	}
	patch.Apply(&evaluation.Grade, input.Grade)
	if patch.Apply(&evaluation.Comment, input.Comment) {
		evaluation.Comment = strings.TrimSpace(evaluation.Comment)
	}

	if err := s.store.Evaluations.Update(ctx, evaluation); err != nil {
		return nil, fmt.Errorf("failed to update evaluation: %w", err)
	}
	return evaluation, nil
}

func (s *EvaluationService) DeleteEvaluation(ctx context.Context, p access.Principal, id uint64) error {
	_, task, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeGrader(p, task.TeamID); err != nil {
		return err
	}

	if err := s.store.Evaluations.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	return nil
}

// UserAverage returns the mean grade of a user, nil when they have none.
// Visible to the user, their teammates and admins.
func (s *EvaluationService) UserAverage(ctx context.Context, p access.Principal, userID uint64) (*float64, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, ErrUserNotFound, "user")
	}
	allowed := access.CanAccessSelf(p, userID)
	if !allowed && user.TeamID != nil {
		allowed = access.CanAccessTeam(p, *user.TeamID)
	}
	if err := access.Authorize(allowed, ""); err != nil {
		return nil, err
	}

	avg, err := s.store.Evaluations.AverageByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average: %w", err)
	}
	return avg, nil
}

// TeamAverage returns the mean grade over the team's current members, nil
// when there are no evaluations.
func (s *EvaluationService) TeamAverage(ctx context.Context, p access.Principal, teamID uint64) (*float64, error) {
	if _, err := s.store.Teams.FindByID(ctx, teamID); err != nil {
		return nil, lookup(err, ErrTeamNotFound, "team")
	}
	if err := access.Authorize(access.CanAccessTeam(p, teamID), "not a member of this team"); err != nil {
		return nil, err
	}

	avg, err := s.store.Evaluations.AverageByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average: %w", err)
	}
	return avg, nil
}

func (s *EvaluationService) load(ctx context.Context, id uint64) (*models.Evaluation, *models.Task, error) {
	evaluation, err := s.store.Evaluations.FindByID(ctx, id)
	if err != nil {
		return nil, nil, lookup(err, ErrEvaluationNotFound, "evaluation")
	}
	task, err := s.store.Tasks.FindByID(ctx, evaluation.TaskID)
	if err != nil {
		return nil, nil, lookup(err, ErrTaskNotFound, "task")
	}
	return evaluation, task, nil
}

// authorizeGrader allows admins and managers of the task's team.
func (s *EvaluationService) authorizeGrader(p access.Principal, teamID uint64) error {
	if access.CanAccessTeam(p, teamID, access.Managers...) == access.Allow {
		return nil
	}
	if p.Role.AtLeast(models.RoleManager) {
		return ErrCrossTeamGrading
	}
	return access.Authorize(access.Deny, "manager access required")
}

func checkGrade(grade int) error {
	if grade < constants.MinGrade || grade > constants.MaxGrade {
		return validation("grade must be between %d and %d", constants.MinGrade, constants.MaxGrade)
	}
	return nil
}
