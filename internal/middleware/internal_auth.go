package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/reelworks/mediagen/internal/auth"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/pkg/response"
)

// InternalAuth guards one kind's progress webhook route. The external
// worker presents the callback token it was handed at dispatch; the
// token is bound to one kind and project, so a worker can only report
// on the job it runs. This is inter-service trust, not end-user auth.
func InternalAuth(secret string, kind model.JobKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return response.Unauthorized(c, "Missing callback token")
		}

		claims, err := auth.VerifyCallbackToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return response.Unauthorized(c, "Invalid callback token")
		}

		if claims.Kind != string(kind) || claims.ProjectID != c.Params("projectId") {
			return response.Forbidden(c, "Callback token does not match job")
		}

		return c.Next()
	}
}
