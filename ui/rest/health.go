package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AzielCF/chatbot-platform/platform"
)

// Health reports process liveness and database reachability.
type Health struct {
	St *platform.State
}

func InitRestHealth(app fiber.Router, st *platform.State) Health {
	rest := Health{St: st}
	app.Get("/health", rest.Check)
	return rest
}

func (controller *Health) Check(c *fiber.Ctx) error {
	if err := controller.St.Store.Client.Ping(c.UserContext(), nil); err != nil {
		return c.Status(503).JSON(fiber.Map{"status": "degraded", "database": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
