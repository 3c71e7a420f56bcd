package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AzielCF/chatbot-platform/platform"
)

// FeatureQueue exposes the archived correspondent-queue messages behind
// the automatic-bot-reply feature for inspection and cleanup.
type FeatureQueue struct {
	St *platform.State
}

func InitRestFeatureQueue(app fiber.Router, st *platform.State) FeatureQueue {
	rest := FeatureQueue{St: st}
	app.Get("/features/automatic_bot_reply/queue/:bot_id", rest.List)
	app.Get("/features/automatic_bot_reply/queue/:bot_id/:correspondent_id", rest.List)
	app.Delete("/features/automatic_bot_reply/queue/:bot_id", rest.Delete)
	app.Delete("/features/automatic_bot_reply/queue/:bot_id/:correspondent_id", rest.Delete)
	return rest
}

func (controller *FeatureQueue) List(c *fiber.Ctx) error {
	messages, err := controller.St.Archive.ListMessages(c.UserContext(), c.Params("bot_id"), c.Params("correspondent_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Success fetch queue messages", messages)
}

func (controller *FeatureQueue) Delete(c *fiber.Ctx) error {
	deleted, err := controller.St.Archive.DeleteMessages(c.UserContext(), c.Params("bot_id"), c.Params("correspondent_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Success delete queue messages", fiber.Map{"deleted": deleted})
}
