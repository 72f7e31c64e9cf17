package dto

import (
	"time"

	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// TeamDTO represents a team in API responses. Code is only filled in for
// the team's managers and admins.
type TeamDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamDetailDTO represents a team together with its members
type TeamDetailDTO struct {
	TeamDTO
	Members []UserDTO `json:"members"`
}

// TeamListResponse represents a paginated list of teams
type TeamListResponse struct {
	Teams      []TeamDTO                `json:"teams"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type JoinTeamRequest struct {
	Code string `json:"code" binding:"required,max=16"`
}

type UpdateTeamRequest struct {
	Name patch.Field[string] `json:"name"`
}

type TeamAverageResponse struct {
	TeamID  uint64   `json:"team_id"`
	Average *float64 `json:"average"`
}

// ToTeamDTO converts a Team model to TeamDTO
func ToTeamDTO(team models.Team, includeCode bool) TeamDTO {
	dto := TeamDTO{
		ID:        team.ID,
		Name:      team.Name,
		CreatedAt: team.CreatedAt,
	}
	if includeCode {
		dto.Code = team.Code
	}
	return dto
}

// ToTeamDetailDTO converts a team with preloaded members
func ToTeamDetailDTO(team models.Team, includeCode bool) TeamDetailDTO {
	members := make([]UserDTO, len(team.Members))
	for i, member := range team.Members {
		members[i] = ToUserDTO(member)
	}
	return TeamDetailDTO{
		TeamDTO: ToTeamDTO(team, includeCode),
		Members: members,
	}
}

func ToTeamListResponse(teams []models.Team, params utils.PaginationParams, total int64) TeamListResponse {
	items := make([]TeamDTO, len(teams))
	for i, team := range teams {
		items[i] = ToTeamDTO(team, true)
	}
	return TeamListResponse{
		Teams:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
