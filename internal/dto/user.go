package dto

import (
	"time"

	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64      `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
	TeamID    *uint64     `json:"team_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// UpdateProfileRequest is a partial update of the caller's profile.
type UpdateProfileRequest struct {
	FirstName patch.Field[string] `json:"first_name"`
	LastName  patch.Field[string] `json:"last_name"`
	Email     patch.Field[string] `json:"email"`
}

// AdminUpdateUserRequest also carries the admin-only fields.
type AdminUpdateUserRequest struct {
	UpdateProfileRequest
	Role     patch.Field[models.Role] `json:"role"`
	IsActive patch.Field[bool]        `json:"is_active"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,password"`
}

type AdminKeyRequest struct {
	Key string `json:"key" binding:"required"`
}

// UserAverageResponse carries a user's mean grade; null when never graded.
type UserAverageResponse struct {
	UserID  uint64   `json:"user_id"`
	Average *float64 `json:"average"`
}

// DashboardResponse is the signed-in user's landing view.
type DashboardResponse struct {
	User     UserDTO      `json:"user"`
	Team     *TeamDTO     `json:"team"`
	Tasks    []TaskDTO    `json:"tasks"`
	Meetings []MeetingDTO `json:"meetings"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		TeamID:    user.TeamID,
		CreatedAt: user.CreatedAt,
	}
}

func ToUserListResponse(users []models.User, params utils.PaginationParams, total int64) UserListResponse {
	items := make([]UserDTO, len(users))
	for i, user := range users {
		items[i] = ToUserDTO(user)
	}
	return UserListResponse{
		Users:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}

// ToDashboardResponse converts the dashboard. showCode controls whether the
// team's join code is included.
func ToDashboardResponse(user models.User, team *models.Team, tasks []models.Task, meetings []models.Meeting, showCode bool) DashboardResponse {
	resp := DashboardResponse{
		User:     ToUserDTO(user),
		Tasks:    make([]TaskDTO, len(tasks)),
		Meetings: make([]MeetingDTO, len(meetings)),
	}
	if team != nil {
		t := ToTeamDTO(*team, showCode)
		resp.Team = &t
	}
	for i, task := range tasks {
		resp.Tasks[i] = ToTaskDTO(task)
	}
	for i, meeting := range meetings {
		resp.Meetings[i] = ToMeetingDTO(meeting)
	}
	return resp
}
