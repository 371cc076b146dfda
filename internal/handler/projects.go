package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/service"
	"github.com/reelworks/mediagen/pkg/response"
)

// listProjects serves the shared GET /{kind}/projects listing.
func listProjects(c *fiber.Ctx, flow *service.Flow) error {
	filter := model.ListFilter{
		Search: c.Query("search"),
		Status: model.JobStatus(c.Query("status")),
	}
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", 20)
	if pageSize > 100 {
		pageSize = 100
	}

	result, err := flow.List(c.Context(), filter, page, pageSize)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}
