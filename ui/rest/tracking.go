package rest

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/AzielCF/chatbot-platform/platform"
)

// Tracking exposes persisted group-tracking periods for inspection and
// cleanup.
type Tracking struct {
	St *platform.State
}

func InitRestTracking(app fiber.Router, st *platform.State) Tracking {
	rest := Tracking{St: st}
	app.Get("/features/periodic_group_tracking/trackedGroupMessages/:bot_id", rest.ListGroups)
	app.Get("/features/periodic_group_tracking/trackedGroupMessages/:bot_id/:group_id", rest.GetGroup)
	app.Delete("/features/periodic_group_tracking/trackedGroupMessages/:bot_id", rest.DeleteAll)
	app.Delete("/features/periodic_group_tracking/trackedGroupMessages/:bot_id/:group_id", rest.DeleteGroup)
	return rest
}

func (controller *Tracking) ListGroups(c *fiber.Ctx) error {
	groups, err := controller.St.History.GetGroups(c.UserContext(), c.Params("bot_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Success fetch tracked groups", groups)
}

func (controller *Tracking) GetGroup(c *fiber.Ctx) error {
	lastPeriods, _ := strconv.ParseInt(c.Query("last_periods", "0"), 10, 64)

	group, periods, err := controller.St.History.GetTrackedPeriods(c.UserContext(), c.Params("bot_id"), c.Params("group_id"), lastPeriods)
	if err != nil {
		return fail(c, err)
	}
	if group == nil {
		return notFound(c, "tracked group not found")
	}
	return ok(c, "Success fetch tracked group messages", fiber.Map{"group": group, "periods": periods})
}

func (controller *Tracking) DeleteGroup(c *fiber.Ctx) error {
	deleted, err := controller.St.History.DeleteGroupMessages(c.UserContext(), c.Params("bot_id"), c.Params("group_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Success delete tracked group messages", fiber.Map{"deleted": deleted})
}

func (controller *Tracking) DeleteAll(c *fiber.Ctx) error {
	deleted, err := controller.St.History.DeleteAllMessages(c.UserContext(), c.Params("bot_id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Success delete tracked messages", fiber.Map{"deleted": deleted})
}
