package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/dto"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/services"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// CreateTeam creates a team with the caller as its manager
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.CreateTeam(c.Request.Context(), p, req.Name)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	// The founder now manages the team.
	c.JSON(http.StatusCreated, dto.ToTeamDTO(*team, true))
}

func (h *TeamHandler) ListTeams(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	teams, total, err := h.teamService.ListTeams(c.Request.Context(), p, params)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamListResponse(teams, params, total))
}

// JoinTeam joins the team holding the given code
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req dto.JoinTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.JoinByCode(c.Request.Context(), p, req.Code)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, p.IsAdmin()))
}

// LeaveTeam removes the caller from their team
func (h *TeamHandler) LeaveTeam(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	user, err := h.teamService.Leave(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *TeamHandler) GetTeam(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDetailDTO(*team, canSeeTeamCode(p, team.ID)))
}

func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.UpdateTeam(c.Request.Context(), p, id, services.UpdateTeamInput{Name: req.Name})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, true))
}

func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(c.Request.Context(), p, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegenerateCode issues a new join code
func (h *TeamHandler) RegenerateCode(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	team, err := h.teamService.RegenerateCode(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, true))
}

// RemoveMember removes a member from the team
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(c.Request.Context(), p, teamID, userID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TeamHandler) PromoteMember(c *gin.Context) {
	h.changeRole(c, h.teamService.Promote)
}

func (h *TeamHandler) DemoteMember(c *gin.Context) {
	h.changeRole(c, h.teamService.Demote)
}

type roleChange func(ctx context.Context, p access.Principal, teamID, userID uint64) (*models.User, error)

func (h *TeamHandler) changeRole(c *gin.Context, change roleChange) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	user, err := change(c.Request.Context(), p, teamID, userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}
