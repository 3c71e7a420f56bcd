// Package rest is the backend's internal HTTP surface, reachable only
// through the gateway's reverse proxy. Handlers trust the gateway for
// authentication and ownership scoping; they enforce data-shape
// validation and the invariants the store itself must uphold.
package rest

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/pkg/apperror"
	"github.com/AzielCF/chatbot-platform/pkg/utils"
	"github.com/AzielCF/chatbot-platform/platform"
)

// InitRestApp builds the backend Fiber app and registers every
// controller under /api/internal.
func InitRestApp(st *platform.State, log *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())

	api := app.Group("/api/internal")

	InitRestHealth(api, st)
	InitRestBot(api, st, log)
	InitRestUser(api, st, log)
	InitRestFeatureQueue(api, st)
	InitRestTracking(api, st)
	InitRestDelivery(api, st)
	InitRestSchema(api)

	return app
}

// ok wraps results in the standard envelope.
func ok(c *fiber.Ctx, message string, results any) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: results,
	})
}

// fail maps an error to its HTTP status: AppError kinds carry their own
// status, anything else is a 500.
func fail(c *fiber.Ctx, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.StatusCode()).JSON(utils.ResponseData{
			Status:  appErr.StatusCode(),
			Code:    strings.ToUpper(string(appErr.Kind)),
			Message: appErr.Message,
		})
	}
	return c.Status(500).JSON(utils.ResponseData{Status: 500, Message: err.Error()})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "BAD_REQUEST", Message: message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(404).JSON(utils.ResponseData{Status: 404, Code: "NOT_FOUND", Message: message})
}

// splitIDs parses the comma-separated id filter the gateway injects on
// list endpoints for non-admin callers.
func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
