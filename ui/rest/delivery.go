package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/platform"
)

// Delivery exposes the three delivery collections for inspection and
// manual cleanup. The public path segment "unconnected" maps to the
// holding collection.
type Delivery struct {
	St *platform.State
}

func InitRestDelivery(app fiber.Router, st *platform.State) Delivery {
	rest := Delivery{St: st}
	app.Get("/async-message-delivery-queue/:queue", rest.List)
	app.Delete("/async-message-delivery-queue/:queue/:id", rest.Delete)
	app.Delete("/async-message-delivery-queue/:queue", rest.DeleteAll)
	return rest
}

func queueNameFromPath(segment string) (domain.DeliveryQueueName, bool) {
	switch segment {
	case "active":
		return domain.QueueActive, true
	case "failed":
		return domain.QueueFailed, true
	case "unconnected":
		return domain.QueueHolding, true
	}
	return "", false
}

func (controller *Delivery) List(c *fiber.Ctx) error {
	queue, valid := queueNameFromPath(c.Params("queue"))
	if !valid {
		return badRequest(c, "queue must be one of active, failed, unconnected")
	}

	jobs, err := controller.St.Delivery.ListItems(c.UserContext(), queue, c.Query("user_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Success fetch delivery queue", jobs)
}

func (controller *Delivery) Delete(c *fiber.Ctx) error {
	queue, valid := queueNameFromPath(c.Params("queue"))
	if !valid {
		return badRequest(c, "queue must be one of active, failed, unconnected")
	}

	if err := controller.St.Delivery.DeleteItem(c.UserContext(), queue, c.Params("id")); err != nil {
		return fail(c, err)
	}
	return ok(c, "Success delete delivery item", nil)
}

func (controller *Delivery) DeleteAll(c *fiber.Ctx) error {
	queue, valid := queueNameFromPath(c.Params("queue"))
	if !valid {
		return badRequest(c, "queue must be one of active, failed, unconnected")
	}

	jobs, err := controller.St.Delivery.ListItems(c.UserContext(), queue, c.Query("user_id"))
	if err != nil {
		return fail(c, err)
	}
	for _, job := range jobs {
		if err := controller.St.Delivery.DeleteItem(c.UserContext(), queue, job.MessageID); err != nil {
			return fail(c, err)
		}
	}
	return ok(c, "Success clear delivery queue", fiber.Map{"deleted": len(jobs)})
}
