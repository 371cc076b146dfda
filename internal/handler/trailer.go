package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/service"
	"github.com/reelworks/mediagen/pkg/response"
)

type TrailerHandler struct {
	service   *service.TrailerService
	validator *validator.Validate
}

func NewTrailerHandler(svc *service.TrailerService, v *validator.Validate) *TrailerHandler {
	return &TrailerHandler{
		service:   svc,
		validator: v,
	}
}

// CreateProject handles POST /trailer/project
func (h *TrailerHandler) CreateProject(c *fiber.Ctx) error {
	var req model.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.CreateProject(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, model.CreateProjectResponse{
		ProjectID: job.ProjectID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	})
}

// Generate handles POST /trailer/generate/:projectId
func (h *TrailerHandler) Generate(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	job, err := h.service.Generate(c.Context(), projectID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, model.StartResponse{
		ProjectID: job.ProjectID,
		Status:    job.Status,
		Message:   "Trailer generation in progress",
	})
}

// Status handles GET /trailer/status/:projectId
func (h *TrailerHandler) Status(c *fiber.Ctx) error {
	result, err := h.service.Flow().GetStatus(c.Context(), c.Params("projectId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Project handles GET /trailer/project/:projectId
func (h *TrailerHandler) Project(c *fiber.Ctx) error {
	job, err := h.service.Flow().GetJob(c.Context(), c.Params("projectId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, job)
}

// List handles GET /trailer/projects
func (h *TrailerHandler) List(c *fiber.Ctx) error {
	return listProjects(c, h.service.Flow())
}

// DraftNarrative handles POST /trailer/draft-narrative
func (h *TrailerHandler) DraftNarrative(c *fiber.Ctx) error {
	var req model.DraftNarrativeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.DraftNarrative(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, model.StartResponse{
		ProjectID: job.ProjectID,
		Status:    job.Status,
		Message:   "Narrative draft in progress",
	})
}

// ApproveNarrative handles POST /trailer/approve-narrative
func (h *TrailerHandler) ApproveNarrative(c *fiber.Ctx) error {
	var req model.ApproveNarrativeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.ApproveNarrative(c.Context(), &req)
	if err != nil {
		if err == service.ErrDraftNotReady {
			return response.Conflict(c, "Narrative draft is not ready for approval")
		}
		return serviceError(c, err)
	}

	return response.Accepted(c, model.StartResponse{
		ProjectID: job.ProjectID,
		Status:    job.Status,
		Message:   "Trailer generation from approved narrative in progress",
	})
}

// Narrative handles GET /trailer/narrative/:projectId
func (h *TrailerHandler) Narrative(c *fiber.Ctx) error {
	body, err := h.service.GetNarrative(c.Context(), c.Params("projectId"))
	if err != nil {
		if err == service.ErrDraftNotReady {
			return response.NotFound(c, "Narrative draft not found")
		}
		return serviceError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// NarrativeStatus handles GET /trailer/narrative-status/:projectId
func (h *TrailerHandler) NarrativeStatus(c *fiber.Ctx) error {
	result, err := h.service.NarrativeStatus(c.Context(), c.Params("projectId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}
