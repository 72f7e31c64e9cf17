package dto

import (
	"time"

	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

type EvaluationDTO struct {
	ID        uint64    `json:"id"`
	Grade     int       `json:"grade"`
	Comment   string    `json:"comment"`
	ManagerID uint64    `json:"manager_id"`
	UserID    uint64    `json:"user_id"`
	TaskID    uint64    `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EvaluationListResponse struct {
	Evaluations []EvaluationDTO          `json:"evaluations"`
	Pagination  utils.PaginationResponse `json:"pagination"`
}

// CreateEvaluationRequest grades the performer of task_id.
type CreateEvaluationRequest struct {
	TaskID  uint64 `json:"task_id" binding:"required"`
	Grade   int    `json:"grade" binding:"required"`
	Comment string `json:"comment" binding:"max=2000"`
}

type UpdateEvaluationRequest struct {
	Grade   patch.Field[int]    `json:"grade"`
	Comment patch.Field[string] `json:"comment"`
}

func ToEvaluationDTO(evaluation models.Evaluation) EvaluationDTO {
	return EvaluationDTO{
		ID:        evaluation.ID,
		Grade:     evaluation.Grade,
		Comment:   evaluation.Comment,
		ManagerID: evaluation.ManagerID,
		UserID:    evaluation.UserID,
		TaskID:    evaluation.TaskID,
		CreatedAt: evaluation.CreatedAt,
		UpdatedAt: evaluation.UpdatedAt,
	}
}

func ToEvaluationDTOs(evaluations []models.Evaluation) []EvaluationDTO {
	items := make([]EvaluationDTO, len(evaluations))
	for i, evaluation := range evaluations {
		items[i] = ToEvaluationDTO(evaluation)
	}
	return items
}
