package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/store"
	"github.com/reelworks/mediagen/pkg/response"
)

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errs := make(map[string]string)
		for _, e := range validationErrors {
			errs[e.Field()] = e.Tag()
		}
		return errs
	}
	return err.Error()
}

// serviceError maps orchestration errors to the response envelope.
func serviceError(c *fiber.Ctx, err error) error {
	var dispatchErr *dispatch.DispatchError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return response.NotFound(c, "Project not found")
	case errors.Is(err, store.ErrAlreadyExists):
		return response.Conflict(c, "Project already exists")
	case errors.As(err, &dispatchErr):
		return response.DispatchError(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}
