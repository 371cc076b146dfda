package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/service"
	"github.com/reelworks/mediagen/pkg/response"
)

type VideoQcHandler struct {
	service   *service.VideoQcService
	validator *validator.Validate
}

func NewVideoQcHandler(svc *service.VideoQcService, v *validator.Validate) *VideoQcHandler {
	return &VideoQcHandler{
		service:   svc,
		validator: v,
	}
}

// CreateProject handles POST /video-qc/project
func (h *VideoQcHandler) CreateProject(c *fiber.Ctx) error {
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

// Initiate handles POST /video-qc/initiate/:projectId
func (h *VideoQcHandler) Initiate(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	job, err := h.service.Initiate(c.Context(), projectID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, model.StartResponse{
		ProjectID: job.ProjectID,
		Status:    job.Status,
		Message:   "Video QC in progress",
	})
}

// Status handles GET /video-qc/status/:projectId
func (h *VideoQcHandler) Status(c *fiber.Ctx) error {
	result, err := h.service.Flow().GetStatus(c.Context(), c.Params("projectId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Project handles GET /video-qc/project/:projectId
func (h *VideoQcHandler) Project(c *fiber.Ctx) error {
	job, err := h.service.Flow().GetJob(c.Context(), c.Params("projectId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, job)
}

// List handles GET /video-qc/projects
func (h *VideoQcHandler) List(c *fiber.Ctx) error {
	return listProjects(c, h.service.Flow())
}
