package dto

import (
	"time"

	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/services"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	Deadline    *time.Time        `json:"deadline"`
	TeamID      uint64            `json:"team_id"`
	PerformerID *uint64           `json:"performer_id"`
	Performer   *UserDTO          `json:"performer,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=5000"`
	Deadline    *time.Time `json:"deadline"`
	PerformerID *uint64    `json:"performer_id"`
	TeamID      *uint64    `json:"team_id"`
}

// UpdateTaskRequest is a partial update. A null deadline or performer_id
// clears the field.
type UpdateTaskRequest struct {
	Title       patch.Field[string]            `json:"title"`
	Description patch.Field[string]            `json:"description"`
	Status      patch.Field[models.TaskStatus] `json:"status"`
	Deadline    patch.Field[*time.Time]        `json:"deadline"`
	PerformerID patch.Field[*uint64]           `json:"performer_id"`
}

type ChangeStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

type GenerateTasksRequest struct {
	Text string `json:"text" binding:"required,max=10000"`
}

// GeneratedTasksResponse holds unsaved task drafts
type GeneratedTasksResponse struct {
	Tasks []services.GeneratedTask `json:"tasks"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Deadline:    task.Deadline,
		TeamID:      task.TeamID,
		PerformerID: task.PerformerID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Include performer if preloaded
	if task.Performer != nil && task.Performer.ID != 0 {
		performer := ToUserDTO(*task.Performer)
		dto.Performer = &performer
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return TaskListResponse{
		Tasks:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
