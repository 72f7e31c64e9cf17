package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/teamwork-api/internal/dto"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/services"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

type EvaluationHandler struct {
	evaluationService *services.EvaluationService
}

func NewEvaluationHandler(evaluationService *services.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluationService: evaluationService}
}

// CreateEvaluation grades the performer of a task
func (h *EvaluationHandler) CreateEvaluation(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateEvaluationRequest
	if !bindJSON(c, &req) {
		return
	}

	evaluation, err := h.evaluationService.CreateEvaluation(c.Request.Context(), p, services.CreateEvaluationInput{
		TaskID:  req.TaskID,
		Grade:   req.Grade,
		Comment: req.Comment,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEvaluationDTO(*evaluation))
}

func (h *EvaluationHandler) ListEvaluations(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	evaluations, total, err := h.evaluationService.ListEvaluations(c.Request.Context(), p, params)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EvaluationListResponse{
		Evaluations: dto.ToEvaluationDTOs(evaluations),
		Pagination:  utils.NewPaginationResponse(params, total),
	})
}

func (h *EvaluationHandler) GetEvaluation(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	evaluation, err := h.evaluationService.GetEvaluation(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEvaluationDTO(*evaluation))
}

// ListTaskEvaluations returns every evaluation of one task
func (h *EvaluationHandler) ListTaskEvaluations(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	evaluations, err := h.evaluationService.ListByTask(c.Request.Context(), p, taskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"evaluations": dto.ToEvaluationDTOs(evaluations)})
}

func (h *EvaluationHandler) UpdateEvaluation(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateEvaluationRequest
	if !bindJSON(c, &req) {
		return
	}

	evaluation, err := h.evaluationService.UpdateEvaluation(c.Request.Context(), p, id, services.UpdateEvaluationInput{
		Grade:   req.Grade,
		Comment: req.Comment,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEvaluationDTO(*evaluation))
}

func (h *EvaluationHandler) DeleteEvaluation(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.evaluationService.DeleteEvaluation(c.Request.Context(), p, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UserAverage returns the user's mean grade; average is null when the user
// has never been graded.
func (h *EvaluationHandler) UserAverage(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	avg, err := h.evaluationService.UserAverage(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserAverageResponse{UserID: id, Average: avg})
}

func (h *EvaluationHandler) TeamAverage(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	avg, err := h.evaluationService.TeamAverage(c.Request.Context(), p, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TeamAverageResponse{TeamID: id, Average: avg})
}
