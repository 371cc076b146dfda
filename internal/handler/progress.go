package handler

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/service"
	"github.com/reelworks/mediagen/pkg/response"
)

// ProgressHandler ingests the inbound worker webhooks for every kind.
// It always acknowledges structurally valid requests: a malformed or
// unknown-project event is logged and dropped, never bounced back with
// an error a well-behaved worker would retry forever.
type ProgressHandler struct {
	flows     map[model.JobKind]*service.Flow
	validator *validator.Validate
}

func NewProgressHandler(v *validator.Validate, flows ...*service.Flow) *ProgressHandler {
	byKind := make(map[model.JobKind]*service.Flow, len(flows))
	for _, f := range flows {
		byKind[f.Kind()] = f
	}
	return &ProgressHandler{flows: byKind, validator: v}
}

// Handle serves POST /{kind}/progress/:projectId.
func (h *ProgressHandler) Handle(kind model.JobKind) fiber.Handler {
	flow := h.flows[kind]
	return func(c *fiber.Ctx) error {
		projectID := c.Params("projectId")

		var event model.ProgressEvent
		if err := c.BodyParser(&event); err != nil {
			log.Printf("[%s] unparseable progress payload for %s dropped: %v", kind, projectID, err)
			return response.OK(c, fiber.Map{"accepted": false})
		}
		if err := h.validator.Struct(&event); err != nil {
			log.Printf("[%s] invalid progress event for %s dropped: %v", kind, projectID, err)
			return response.OK(c, fiber.Map{"accepted": false})
		}

		if err := flow.HandleProgress(c.Context(), projectID, &event); err != nil {
			// Store-level failure: worth a retry from the worker side.
			return response.ServiceError(c, err.Error())
		}
		return response.OK(c, fiber.Map{"accepted": true})
	}
}
