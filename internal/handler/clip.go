package handler

import (
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/service"
	"github.com/reelworks/mediagen/pkg/response"
)

type ClipExtractorHandler struct {
	service   *service.ClipExtractorService
	storage   client.StorageClient
	validator *validator.Validate
}

func NewClipExtractorHandler(svc *service.ClipExtractorService, storage client.StorageClient, v *validator.Validate) *ClipExtractorHandler {
	return &ClipExtractorHandler{
		service:   svc,
		storage:   storage,
		validator: v,
	}
}

// CreateProject handles POST /clip-extractor/project
func (h *ClipExtractorHandler) CreateProject(c *fiber.Ctx) error {
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

// Extract handles POST /clip-extractor/extract/:projectId
func (h *ClipExtractorHandler) Extract(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	job, err := h.service.StartExtraction(c.Context(), projectID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, model.StartResponse{
		ProjectID: job.ProjectID,
		Status:    job.Status,
		Message:   "Clip extraction in progress",
	})
}

// Status handles GET /clip-extractor/status/:projectId
func (h *ClipExtractorHandler) Status(c *fiber.Ctx) error {
	result, err := h.service.Flow().GetStatus(c.Context(), c.Params("projectId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Project handles GET /clip-extractor/project/:projectId
func (h *ClipExtractorHandler) Project(c *fiber.Ctx) error {
	job, err := h.service.Flow().GetJob(c.Context(), c.Params("projectId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, job)
}

// List handles GET /clip-extractor/projects
func (h *ClipExtractorHandler) List(c *fiber.Ctx) error {
	return listProjects(c, h.service.Flow())
}

// Stream handles GET /clip-extractor/stream/:projectId/:fileName
//
// The object store is not browser-addressable in this deployment, so
// clips are proxied through the API. Authless; any fetch error is a 404.
func (h *ClipExtractorHandler) Stream(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	fileName := c.Params("fileName")

	body, err := h.storage.Download(c.Context(), h.service.StreamKey(projectID, fileName))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	c.Set(fiber.HeaderContentType, "video/mp4")
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	return c.Send(data)
}
