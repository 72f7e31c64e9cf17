package dto

import (
	"time"

	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// MeetingDTO represents a meeting in API responses
type MeetingDTO struct {
	ID             uint64    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	TeamID         uint64    `json:"team_id"`
	OrganizerID    uint64    `json:"organizer_id"`
	ParticipantIDs []uint64  `json:"participant_ids"`
	Participants   []UserDTO `json:"participants,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type MeetingListResponse struct {
	Meetings   []MeetingDTO             `json:"meetings"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type CreateMeetingRequest struct {
	Title          string    `json:"title" binding:"required,max=200"`
	Description    string    `json:"description" binding:"max=5000"`
	ScheduledAt    time.Time `json:"scheduled_at" binding:"required"`
	TeamID         *uint64   `json:"team_id"`
	ParticipantIDs []uint64  `json:"participant_ids"`
	AddTeamMembers bool      `json:"add_team_members"`
}

// UpdateMeetingRequest is a partial update; participant_ids replaces the
// whole participant set.
type UpdateMeetingRequest struct {
	Title          patch.Field[string]    `json:"title"`
	Description    patch.Field[string]    `json:"description"`
	ScheduledAt    patch.Field[time.Time] `json:"scheduled_at"`
	ParticipantIDs patch.Field[[]uint64]  `json:"participant_ids"`
}

func ToMeetingDTO(meeting models.Meeting) MeetingDTO {
	dto := MeetingDTO{
		ID:             meeting.ID,
		Title:          meeting.Title,
		Description:    meeting.Description,
		ScheduledAt:    meeting.ScheduledAt,
		TeamID:         meeting.TeamID,
		OrganizerID:    meeting.OrganizerID,
		ParticipantIDs: meeting.ParticipantIDs(),
		CreatedAt:      meeting.CreatedAt,
		UpdatedAt:      meeting.UpdatedAt,
	}

	// Participants are only present when the users were preloaded
	for _, p := range meeting.Participants {
		if p.User.ID != 0 {
			dto.Participants = append(dto.Participants, ToUserDTO(p.User))
		}
	}

	return dto
}

func ToMeetingListResponse(meetings []models.Meeting, params utils.PaginationParams, total int64) MeetingListResponse {
	items := make([]MeetingDTO, len(meetings))
	for i, meeting := range meetings {
		items[i] = ToMeetingDTO(meeting)
	}
	return MeetingListResponse{
		Meetings:   items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
