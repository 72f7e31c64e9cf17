package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/dto"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/services"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe returns the authenticated user.
func (h *UserHandler) GetMe(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), p, profileInput(req))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteMe deletes the caller's account and ends their session.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteAccount(c.Request.Context(), p); err != nil {
		apierrors.Respond(c, err)
		return
	}
	if err := clearSession(c); err != nil {
		_ = c.Error(err)
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) UpgradeToAdmin(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req dto.AdminKeyRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpgradeToAdmin(c.Request.Context(), p, req.Key)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *UserHandler) Dashboard(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	dashboard, err := h.userService.Dashboard(c.Request.Context(), p)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	showCode := dashboard.Team != nil && canSeeTeamCode(access.PrincipalOf(dashboard.User), dashboard.Team.ID)
	c.JSON(http.StatusOK, dto.ToDashboardResponse(*dashboard.User, dashboard.Team, dashboard.Tasks, dashboard.Meetings, showCode))
}

// ListUsers is admin only; filters by role and team_id.
func (h *UserHandler) ListUsers(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	role, ok := queryRole(c, "role")
	if !ok {
		return
	}
	teamID, ok := queryUint(c, "team_id")
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	users, total, err := h.userService.List(c.Request.Context(), p, repository.UserFilter{
		Role:       role,
		TeamID:     teamID,
		Pagination: params,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, params, total))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.AdminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.AdminUpdate(c.Request.Context(), p, id, services.AdminUpdateInput{
		UpdateProfileInput: profileInput(req.UpdateProfileRequest),
		Role:               req.Role,
		IsActive:           req.IsActive,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func profileInput(req dto.UpdateProfileRequest) services.UpdateProfileInput {
	return services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
}
