package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/teamwork-api/internal/dto"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/services"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

type MeetingHandler struct {
	meetingService *services.MeetingService
}

func NewMeetingHandler(meetingService *services.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService}
}

func (h *MeetingHandler) CreateMeeting(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateMeetingRequest
	if !bindJSON(c, &req) {
		return
	}

	meeting, err := h.meetingService.CreateMeeting(c.Request.Context(), p, services.CreateMeetingInput{
		Title:          req.Title,
		Description:    req.Description,
		ScheduledAt:    req.ScheduledAt,
		TeamID:         req.TeamID,
		ParticipantIDs: req.ParticipantIDs,
		AddTeamMembers: req.AddTeamMembers,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMeetingDTO(*meeting))
}

// ListMeetings returns team meetings, soonest first
func (h *MeetingHandler) ListMeetings(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	input := services.ListMeetingsInput{Pagination: utils.GetPaginationParams(c)}
	if input.TeamID, ok = queryUint(c, "team_id"); !ok {
		return
	}
	if input.From, ok = queryTime(c, "from"); !ok {
		return
	}
	if input.To, ok = queryTime(c, "to"); !ok {
		return
	}
	if input.Mine, ok = queryBool(c, "mine"); !ok {
		return
	}

	meetings, total, err := h.meetingService.ListMeetings(c.Request.Context(), p, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMeetingListResponse(meetings, input.Pagination, total))
}

func (h *MeetingHandler) GetMeeting(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	meeting, err := h.meetingService.GetMeeting(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMeetingDTO(*meeting))
}

func (h *MeetingHandler) UpdateMeeting(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateMeetingRequest
	if !bindJSON(c, &req) {
		return
	}

	meeting, err := h.meetingService.UpdateMeeting(c.Request.Context(), p, id, services.UpdateMeetingInput{
		Title:          req.Title,
		Description:    req.Description,
		ScheduledAt:    req.ScheduledAt,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMeetingDTO(*meeting))
}

func (h *MeetingHandler) DeleteMeeting(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.meetingService.DeleteMeeting(c.Request.Context(), p, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
